package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePairAndParse(t *testing.T) {
	tm := NewTokenManager("checkflow", "access-secret", "refresh-secret", time.Minute, time.Hour)

	access, refresh, exp, err := tm.GeneratePair(42, "Alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	c, isRefresh, err := tm.ParseAny(access)
	require.NoError(t, err)
	assert.False(t, isRefresh)
	assert.Equal(t, int64(42), c.PartyID)
	assert.Equal(t, "Alice", c.Username)

	c, isRefresh, err = tm.ParseAny(refresh)
	require.NoError(t, err)
	assert.True(t, isRefresh)
	assert.Equal(t, int64(42), c.PartyID)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager("checkflow", "a", "r", time.Minute, time.Hour)
	other := NewTokenManager("checkflow", "x", "y", time.Minute, time.Hour)
	wrongIssuer := NewTokenManager("someone-else", "a", "r", time.Minute, time.Hour)

	access, _, _, err := other.GeneratePair(1, "Bob")
	require.NoError(t, err)
	_, _, err = tm.ParseAny(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, _, _, err = wrongIssuer.GeneratePair(1, "Bob")
	require.NoError(t, err)
	_, _, err = tm.ParseAny(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = tm.ParseAny("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessToken(t *testing.T) {
	tm := NewTokenManager("checkflow", "a", "r", -time.Minute, time.Hour)
	access, _, _, err := tm.GeneratePair(1, "Bob")
	require.NoError(t, err)
	_, _, err = tm.ParseAny(access)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword("s3cret-pass", hash))
	assert.Error(t, VerifyPassword("nope", hash))
}
