package models

import "time"

// User maps a Telegram user to one chain keypair. Exactly one active key
// per user; rotation archives the previous key as a UsedKey row before
// overwriting, so no key is ever lost.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"uniqueIndex;not null"`
	Username  string `gorm:"index"`
	Pvtkey    string `gorm:"uniqueIndex"`
	Pubkey    string `gorm:"uniqueIndex"`
	Address   string `gorm:"uniqueIndex"`
	ExportAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UsedKey is an append-only archive of superseded private keys.
type UsedKey struct {
	ID     uint  `gorm:"primaryKey;autoIncrement"`
	UserID int64 `gorm:"index"`
	Pvtkey string
}
