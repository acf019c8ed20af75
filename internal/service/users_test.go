package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserAutoRegisters(t *testing.T) {
	store := newFakeUserStore()
	users := NewUserManager(store, true)

	user, err := users.EnsureUser(42, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.UserID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.Pvtkey)
	assert.NotEmpty(t, user.Pubkey)
	assert.NotEmpty(t, user.Address)

	// A second call returns the same identity.
	again, err := users.EnsureUser(42, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.Pvtkey, again.Pvtkey)
}

func TestEnsureUserWithoutAutoRegister(t *testing.T) {
	users := NewUserManager(newFakeUserStore(), false)

	_, err := users.EnsureUser(42, "alice")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegisterRotatesExistingKey(t *testing.T) {
	store := newFakeUserStore()
	users := NewUserManager(store, true)

	first, err := users.Register(42, "alice", "")
	require.NoError(t, err)

	second, err := users.Register(42, "alice", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Pvtkey, second.Pvtkey)

	used, err := users.UsedKeys(42)
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.Equal(t, first.Pvtkey, used[0].Pvtkey)
}

func TestRegisterImportsKey(t *testing.T) {
	store := newFakeUserStore()
	users := NewUserManager(store, true)

	created, err := users.Register(1, "bob", "")
	require.NoError(t, err)

	imported, err := users.Register(2, "carol", created.Pvtkey)
	require.NoError(t, err)
	assert.Equal(t, created.Pvtkey, imported.Pvtkey)
	assert.Equal(t, created.Address, imported.Address)
}

func TestRegisterRejectsInvalidKey(t *testing.T) {
	users := NewUserManager(newFakeUserStore(), true)

	_, err := users.Register(1, "bob", "not-a-key")
	assert.Error(t, err)
}

func TestGetDoesNotProvision(t *testing.T) {
	store := newFakeUserStore()
	users := NewUserManager(store, true)

	user, err := users.Get(7)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, store.users)
}
