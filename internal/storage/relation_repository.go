package storage

import (
	"errors"
	"fmt"

	"tg-rum-bridge/internal/logger"
	"tg-rum-bridge/internal/models"

	"gorm.io/gorm"
)

// RelationRepository handles database operations for Relation rows.
// All upserts are merge-by-key: an existing row keeps every field the
// incoming payload leaves at its zero value. Each upsert runs in one
// transaction so the two bridge directions never interleave a
// read-modify-write on the same key.
type RelationRepository struct {
	db *gorm.DB
}

// NewRelationRepository creates a new RelationRepository
func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

// MigrateTable ensures the relations table exists
func (r *RelationRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.Relation{})
}

func (r *RelationRepository) upsert(rel *models.Relation, query string, args ...interface{}) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Relation
		err := tx.Where(query, args...).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(rel).Error
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&existing).Updates(rel).Error; err != nil {
			return err
		}
		// hand the merged row back to the caller
		return tx.First(rel, existing.ID).Error
	})
	if err != nil {
		logger.Errorf("relation upsert failed (%s %v): %v", query, args, err)
		return fmt.Errorf("relation upsert failed: %w", err)
	}
	return nil
}

// UpsertByTrxID writes a chain-confirmed relation keyed by its trx id.
func (r *RelationRepository) UpsertByTrxID(rel *models.Relation) error {
	if rel.TrxID == "" {
		return fmt.Errorf("relation has no trx id")
	}
	return r.upsert(rel, "trx_id = ?", rel.TrxID)
}

// UpsertByChatMessage writes a relation keyed by its chat surface and
// message id. Used for chat-first rows that may be confirmed later.
func (r *RelationRepository) UpsertByChatMessage(rel *models.Relation) error {
	if rel.ChatMessageID == nil {
		return fmt.Errorf("relation has no chat message id")
	}
	return r.upsert(rel, "chat_type = ? AND chat_message_id = ?", rel.ChatType, *rel.ChatMessageID)
}

// UpsertByTrxAndChannelMessage writes a poller relation keyed by
// (trx_id, channel_message_id): a multi-image post produces one row per
// sent photo, all sharing the trx id.
func (r *RelationRepository) UpsertByTrxAndChannelMessage(rel *models.Relation) error {
	if rel.TrxID == "" || rel.ChannelMessageID == nil {
		return fmt.Errorf("relation needs trx id and channel message id")
	}
	return r.upsert(rel, "trx_id = ? AND channel_message_id = ?", rel.TrxID, *rel.ChannelMessageID)
}

func (r *RelationRepository) findOne(query string, args ...interface{}) (*models.Relation, error) {
	var rel models.Relation
	err := r.db.Where(query, args...).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// FindByRumPostID returns the relation holding the given logical post id.
func (r *RelationRepository) FindByRumPostID(postID string) (*models.Relation, error) {
	return r.findOne("rum_post_id = ?", postID)
}

// FindByTrxID returns the relation for a trx id.
func (r *RelationRepository) FindByTrxID(trxID string) (*models.Relation, error) {
	return r.findOne("trx_id = ?", trxID)
}

// FindByChatMessage returns the relation written for a chat message.
func (r *RelationRepository) FindByChatMessage(chatType string, chatMessageID int) (*models.Relation, error) {
	return r.findOne("chat_type = ? AND chat_message_id = ?", chatType, chatMessageID)
}

// TrxExists reports whether any relation row references the trx id.
func (r *RelationRepository) TrxExists(trxID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Relation{}).Where("trx_id = ?", trxID).Count(&count).Error
	return count > 0, err
}

// FindRelationWithTrx returns the chain-confirmed relation for a channel
// message. A channel message can accumulate several rows (one per image,
// plus chat-first bridge rows); the one carrying a trx id wins. Returns
// nil when no row is confirmed yet.
func (r *RelationRepository) FindRelationWithTrx(channelMessageID int) (*models.Relation, error) {
	var rels []models.Relation
	err := r.db.Where("channel_message_id = ?", channelMessageID).Find(&rels).Error
	if err != nil {
		return nil, err
	}
	for i := range rels {
		if rels[i].HasTrx() {
			return &rels[i], nil
		}
	}
	return nil, nil
}
