package models

import "time"

// Trx types recorded on a relation. A post is a root content item on the
// chain, a comment is reply-linked to another post.
const (
	TrxTypePost    = "post"
	TrxTypeComment = "comment"
)

// Telegram chat surfaces. Message ids are only unique within a surface,
// so chat_type is part of the chat-side key.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

// Relation maps one Telegram message to one chain transaction.
// A row may be created with only chat-side fields and filled in with
// chain-side fields once the trx confirms, so all bridging columns are
// nullable. Image posts relayed to the channel produce one row per sent
// photo: the rows share trx_id but carry distinct channel_message_id.
type Relation struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	GroupID          string `gorm:"index"`
	TrxID            string `gorm:"index"`
	TrxType          string
	RumPostID        string `gorm:"index"`
	RumPostURL       string
	ChatType         string `gorm:"uniqueIndex:idx_chat_message"`
	ChatMessageID    *int   `gorm:"uniqueIndex:idx_chat_message"`
	ChannelMessageID *int   `gorm:"index"`
	UserID           int64
	Pubkey           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasTrx reports whether the row carries a chain confirmation.
func (r *Relation) HasTrx() bool {
	return r.TrxID != ""
}
