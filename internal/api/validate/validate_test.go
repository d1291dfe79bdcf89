package validate

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSONReportsFieldsByJSONName(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"password":"short"}`))
	var b loginBody
	err := DecodeJSON(r, &b)

	var errs Errs
	require.True(t, errors.As(err, &errs), err)
	assert.ElementsMatch(t, Errs{
		{Field: "username", Msg: "required"},
		{Field: "password", Msg: "must be at least 8"},
	}, errs)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"a","password":"longenough","role":"admin"}`))
	var b loginBody
	assert.ErrorIs(t, DecodeJSON(r, &b), ErrBody)
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	type optional struct {
		Note string `json:"note"`
	}
	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	var o optional
	assert.NoError(t, DecodeJSON(r, &o))
}
