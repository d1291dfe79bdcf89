package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExactMatchIgnoresCase(t *testing.T) {
	e := newTestEnv(t)
	bob := e.party(t, "Bob")

	id, err := e.resolver.Resolve(e.ctx, "  bOB ")
	require.NoError(t, err)
	assert.Equal(t, bob, id)
}

func TestResolveUniqueSubstring(t *testing.T) {
	e := newTestEnv(t)
	corp := e.party(t, "Alice Corporation")
	e.party(t, "Bob")

	id, err := e.resolver.Resolve(e.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, corp, id)
	assert.Equal(t, 2, e.userCount(t))
}

func TestResolveExactBeatsSubstring(t *testing.T) {
	e := newTestEnv(t)
	e.party(t, "Alice Corporation")
	alice := e.party(t, "Alice")

	id, err := e.resolver.Resolve(e.ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, alice, id)
}

func TestResolveAmbiguousCreatesNewParty(t *testing.T) {
	e := newTestEnv(t)
	a := e.party(t, "Alice Corp")
	b := e.party(t, "Alice Corp West")

	id, err := e.resolver.Resolve(e.ctx, "Alice")
	require.NoError(t, err)
	assert.NotEqual(t, a, id)
	assert.NotEqual(t, b, id)

	u, err := e.repos.Users.GetByID(e.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Username)
	assert.True(t, u.Balance.IsZero())

	again, err := e.resolver.Resolve(e.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, again, "the created party now matches exactly")
}

func TestResolveUnknownCreatesOnce(t *testing.T) {
	e := newTestEnv(t)

	first, err := e.resolver.Resolve(e.ctx, "Dana")
	require.NoError(t, err)
	second, err := e.resolver.Resolve(e.ctx, "Dana")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, e.userCount(t))
}

func TestResolveBlankName(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.resolver.Resolve(e.ctx, " \t ")
	assert.ErrorIs(t, err, ErrBlankName)
	assert.Equal(t, 0, e.userCount(t))
}
