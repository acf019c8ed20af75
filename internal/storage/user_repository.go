package storage

import (
	"errors"
	"time"

	"tg-rum-bridge/internal/models"

	"gorm.io/gorm"
)

// UserRepository handles database operations for User and UsedKey
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// MigrateTable ensures the users and used_keys tables exist
func (r *UserRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.User{}, &models.UsedKey{})
}

// GetUser returns the user row for a Telegram user id, or nil.
func (r *UserRepository) GetUser(userID int64) (*models.User, error) {
	var user models.User
	err := r.db.Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveUser creates the user row.
func (r *UserRepository) SaveUser(user *models.User) error {
	return r.db.Create(user).Error
}

// RotateKey replaces a user's keypair, archiving the previous private key
// as a UsedKey row in the same transaction so the old key is never lost.
func (r *UserRepository) RotateKey(user *models.User, oldPvtkey string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if oldPvtkey != "" {
			used := &models.UsedKey{
				UserID: user.UserID,
				Pvtkey: oldPvtkey,
			}
			if err := tx.Create(used).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.User{}).Where("user_id = ?", user.UserID).
			Updates(map[string]interface{}{
				"username": user.Username,
				"pvtkey":   user.Pvtkey,
				"pubkey":   user.Pubkey,
				"address":  user.Address,
			}).Error
	})
}

// UsedKeys returns the archived keys of a user, oldest first.
func (r *UserRepository) UsedKeys(userID int64) ([]models.UsedKey, error) {
	var keys []models.UsedKey
	err := r.db.Where("user_id = ?", userID).Order("id asc").Find(&keys).Error
	return keys, err
}

// UpdateExportAt stamps the user's last data export time.
func (r *UserRepository) UpdateExportAt(userID int64, at time.Time) error {
	return r.db.Model(&models.User{}).Where("user_id = ?", userID).
		Update("export_at", at).Error
}
