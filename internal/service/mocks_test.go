package service

import (
	"context"
	"fmt"
	"time"

	"tg-rum-bridge/internal/models"
	"tg-rum-bridge/internal/rum"
)

// fakeRelationStore is an in-memory RelationStore.
type fakeRelationStore struct {
	relations []*models.Relation
	findErr   error
	upsertErr error
}

func (s *fakeRelationStore) merge(dst, src *models.Relation) {
	if src.GroupID != "" {
		dst.GroupID = src.GroupID
	}
	if src.TrxID != "" {
		dst.TrxID = src.TrxID
	}
	if src.TrxType != "" {
		dst.TrxType = src.TrxType
	}
	if src.RumPostID != "" {
		dst.RumPostID = src.RumPostID
	}
	if src.RumPostURL != "" {
		dst.RumPostURL = src.RumPostURL
	}
	if src.ChatType != "" {
		dst.ChatType = src.ChatType
	}
	if src.ChatMessageID != nil {
		dst.ChatMessageID = src.ChatMessageID
	}
	if src.ChannelMessageID != nil {
		dst.ChannelMessageID = src.ChannelMessageID
	}
	if src.UserID != 0 {
		dst.UserID = src.UserID
	}
	if src.Pubkey != "" {
		dst.Pubkey = src.Pubkey
	}
}

func (s *fakeRelationStore) upsert(rel *models.Relation, match func(*models.Relation) bool) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, existing := range s.relations {
		if match(existing) {
			s.merge(existing, rel)
			*rel = *existing
			return nil
		}
	}
	stored := *rel
	s.relations = append(s.relations, &stored)
	return nil
}

func (s *fakeRelationStore) UpsertByTrxID(rel *models.Relation) error {
	return s.upsert(rel, func(r *models.Relation) bool { return r.TrxID == rel.TrxID })
}

func (s *fakeRelationStore) UpsertByChatMessage(rel *models.Relation) error {
	return s.upsert(rel, func(r *models.Relation) bool {
		return r.ChatType == rel.ChatType && r.ChatMessageID != nil && rel.ChatMessageID != nil &&
			*r.ChatMessageID == *rel.ChatMessageID
	})
}

func (s *fakeRelationStore) UpsertByTrxAndChannelMessage(rel *models.Relation) error {
	return s.upsert(rel, func(r *models.Relation) bool {
		return r.TrxID == rel.TrxID && r.ChannelMessageID != nil && rel.ChannelMessageID != nil &&
			*r.ChannelMessageID == *rel.ChannelMessageID
	})
}

func (s *fakeRelationStore) FindByRumPostID(postID string) (*models.Relation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, rel := range s.relations {
		if rel.RumPostID == postID {
			return rel, nil
		}
	}
	return nil, nil
}

func (s *fakeRelationStore) FindByChatMessage(chatType string, chatMessageID int) (*models.Relation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, rel := range s.relations {
		if rel.ChatType == chatType && rel.ChatMessageID != nil && *rel.ChatMessageID == chatMessageID {
			return rel, nil
		}
	}
	return nil, nil
}

func (s *fakeRelationStore) FindRelationWithTrx(channelMessageID int) (*models.Relation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, rel := range s.relations {
		if rel.ChannelMessageID != nil && *rel.ChannelMessageID == channelMessageID && rel.HasTrx() {
			return rel, nil
		}
	}
	return nil, nil
}

func (s *fakeRelationStore) TrxExists(trxID string) (bool, error) {
	for _, rel := range s.relations {
		if rel.TrxID == trxID {
			return true, nil
		}
	}
	return false, nil
}

// fakeChain is an in-memory rum.Client.
type fakeChain struct {
	groupID string
	trxs    map[string]*rum.Trx
	pages   [][]rum.Trx
	page    int

	postErr   error
	getTrxErr error
	posted    []postedContent
	nextTrxID int
}

type postedContent struct {
	pubkey   string
	activity *rum.Activity
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		groupID: "group-1",
		trxs:    make(map[string]*rum.Trx),
	}
}

func (c *fakeChain) GroupID() string { return c.groupID }

func (c *fakeChain) PostContent(_ context.Context, account *rum.Account, data *rum.Activity) (string, error) {
	if c.postErr != nil {
		return "", c.postErr
	}
	c.nextTrxID++
	trxID := fmt.Sprintf("trx-%d", c.nextTrxID)
	c.posted = append(c.posted, postedContent{pubkey: account.Pubkey(), activity: data})
	c.trxs[trxID] = &rum.Trx{
		TrxID:        trxID,
		GroupID:      c.groupID,
		Data:         *data,
		TimeStamp:    time.Now().UnixNano(),
		SenderPubkey: account.Pubkey(),
	}
	return trxID, nil
}

func (c *fakeChain) GetContent(_ context.Context, _ rum.ContentOptions) ([]rum.Trx, error) {
	if c.page >= len(c.pages) {
		return nil, nil
	}
	page := c.pages[c.page]
	c.page++
	return page, nil
}

func (c *fakeChain) GetTrx(_ context.Context, trxID string) (*rum.Trx, error) {
	if c.getTrxErr != nil {
		return nil, c.getTrxErr
	}
	trx, ok := c.trxs[trxID]
	if !ok {
		return nil, fmt.Errorf("trx %s not found", trxID)
	}
	return trx, nil
}

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	users    map[int64]*models.User
	usedKeys []models.UsedKey
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*models.User)}
}

func (s *fakeUserStore) GetUser(userID int64) (*models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) SaveUser(user *models.User) error {
	copied := *user
	s.users[user.UserID] = &copied
	return nil
}

func (s *fakeUserStore) RotateKey(user *models.User, oldPvtkey string) error {
	if oldPvtkey != "" {
		s.usedKeys = append(s.usedKeys, models.UsedKey{UserID: user.UserID, Pvtkey: oldPvtkey})
	}
	return s.SaveUser(user)
}

func (s *fakeUserStore) UsedKeys(userID int64) ([]models.UsedKey, error) {
	var keys []models.UsedKey
	for _, key := range s.usedKeys {
		if key.UserID == userID {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *fakeUserStore) UpdateExportAt(userID int64, at time.Time) error {
	if user, ok := s.users[userID]; ok {
		user.ExportAt = &at
	}
	return nil
}

// fakeSender records channel sends.
type fakeSender struct {
	nextMessageID int
	texts         []string
	captions      []string
	sendErr       error
}

func (s *fakeSender) SendText(_ context.Context, text string) (int, error) {
	if s.sendErr != nil {
		return 0, s.sendErr
	}
	s.nextMessageID++
	s.texts = append(s.texts, text)
	return s.nextMessageID, nil
}

func (s *fakeSender) SendPhoto(_ context.Context, _ []byte, caption string) (int, error) {
	if s.sendErr != nil {
		return 0, s.sendErr
	}
	s.nextMessageID++
	s.captions = append(s.captions, caption)
	return s.nextMessageID, nil
}

func intPtr(v int) *int { return &v }
