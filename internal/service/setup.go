package service

import (
	"fmt"
	"time"

	"tg-rum-bridge/internal/config"
	"tg-rum-bridge/internal/models"
	"tg-rum-bridge/internal/rum"
	"tg-rum-bridge/internal/storage"

	"gorm.io/gorm"
)

// RelationStore is the persistence surface the bridge components share.
// Implemented by storage.RelationRepository.
type RelationStore interface {
	UpsertByTrxID(rel *models.Relation) error
	UpsertByChatMessage(rel *models.Relation) error
	UpsertByTrxAndChannelMessage(rel *models.Relation) error
	FindByRumPostID(postID string) (*models.Relation, error)
	FindByChatMessage(chatType string, chatMessageID int) (*models.Relation, error)
	FindRelationWithTrx(channelMessageID int) (*models.Relation, error)
	TrxExists(trxID string) (bool, error)
}

// UserStore is the persistence surface for chain identities.
// Implemented by storage.UserRepository.
type UserStore interface {
	GetUser(userID int64) (*models.User, error)
	SaveUser(user *models.User) error
	RotateKey(user *models.User, oldPvtkey string) error
	UsedKeys(userID int64) ([]models.UsedKey, error)
	UpdateExportAt(userID int64, at time.Time) error
}

// Services wires the bridge components over one relation store and one
// chain client.
type Services struct {
	Chain     rum.Client
	Relations *storage.RelationRepository
	UserRepo  *storage.UserRepository
	Users     *UserManager
	Resolver  *Resolver
	Binder    *Binder
	Relay     *Relay
	Poller    *Poller
}

// Initialize migrates the schema and constructs the service graph.
func Initialize(cfg *config.Config, db *gorm.DB, chain rum.Client, sender ChannelSender) (*Services, error) {
	relations := storage.NewRelationRepository(db)
	if err := relations.MigrateTable(); err != nil {
		return nil, fmt.Errorf("failed to migrate relations table: %w", err)
	}
	userRepo := storage.NewUserRepository(db)
	if err := userRepo.MigrateTable(); err != nil {
		return nil, fmt.Errorf("failed to migrate user tables: %w", err)
	}

	users := NewUserManager(userRepo, cfg.Rum.AutoRegister)
	resolver := NewResolver(relations, chain)
	binder := NewBinder(relations)
	relay := NewRelay(cfg, chain, relations, users, resolver)
	poller := NewPoller(cfg, chain, relations, sender)

	return &Services{
		Chain:     chain,
		Relations: relations,
		UserRepo:  userRepo,
		Users:     users,
		Resolver:  resolver,
		Binder:    binder,
		Relay:     relay,
		Poller:    poller,
	}, nil
}
