package service

import (
	"errors"
	"fmt"

	"tg-rum-bridge/internal/logger"
	"tg-rum-bridge/internal/models"
	"tg-rum-bridge/internal/rum"
)

// ErrNotRegistered means the user has no keypair and auto-registration is
// disabled; they must run /new_pvtkey first.
var ErrNotRegistered = errors.New("user has no chain keypair")

// UserManager owns the chat-user to chain-keypair mapping.
type UserManager struct {
	store        UserStore
	autoRegister bool
}

func NewUserManager(store UserStore, autoRegister bool) *UserManager {
	return &UserManager{store: store, autoRegister: autoRegister}
}

// EnsureUser returns the user's identity, provisioning a fresh keypair on
// first use when auto-registration is enabled.
func (m *UserManager) EnsureUser(userID int64, username string) (*models.User, error) {
	user, err := m.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user != nil {
		return user, nil
	}
	if !m.autoRegister {
		return nil, ErrNotRegistered
	}
	return m.Register(userID, username, "")
}

// Register provisions a keypair for the user. An empty pvtkey generates a
// new one; otherwise the given hex key is imported. If the user already
// has a key it is archived as a UsedKey before being replaced.
func (m *UserManager) Register(userID int64, username, pvtkey string) (*models.User, error) {
	var account *rum.Account
	var err error
	if pvtkey == "" {
		account, err = rum.NewAccount()
	} else {
		account, err = rum.AccountFromPvtkey(pvtkey)
	}
	if err != nil {
		return nil, err
	}

	existing, err := m.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	user := &models.User{
		UserID:   userID,
		Username: username,
		Pvtkey:   account.Pvtkey(),
		Pubkey:   account.Pubkey(),
		Address:  account.Address(),
	}

	if existing != nil {
		if err := m.store.RotateKey(user, existing.Pvtkey); err != nil {
			return nil, fmt.Errorf("failed to rotate key for user %d: %w", userID, err)
		}
		logger.Infof("rotated key for user %d, previous key archived", userID)
	} else {
		if err := m.store.SaveUser(user); err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
		}
		logger.Infof("registered user %d with address %s", userID, user.Address)
	}

	return m.store.GetUser(userID)
}

// Get returns the user row without provisioning, or nil.
func (m *UserManager) Get(userID int64) (*models.User, error) {
	return m.store.GetUser(userID)
}

// UsedKeys returns the user's archived private keys.
func (m *UserManager) UsedKeys(userID int64) ([]models.UsedKey, error) {
	return m.store.UsedKeys(userID)
}
