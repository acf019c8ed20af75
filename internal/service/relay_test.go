package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-rum-bridge/internal/config"
	"tg-rum-bridge/internal/models"
)

func relayTestConfig() *config.Config {
	return &config.Config{
		Channel: config.ChannelConfig{
			ID:   -100123,
			Name: "@my_channel",
			URL:  "https://t.me/my_channel",
		},
		Rum: config.RumConfig{
			AutoRegister: true,
		},
		Feed: config.FeedConfig{URLBase: "https://feed.example.com"},
	}
}

func newTestRelay(cfg *config.Config, chain *fakeChain, store *fakeRelationStore) *Relay {
	users := NewUserManager(newFakeUserStore(), cfg.Rum.AutoRegister)
	resolver := NewResolver(store, chain)
	return NewRelay(cfg, chain, store, users, resolver)
}

func TestRelayChatMessageRejectsEmpty(t *testing.T) {
	relay := newTestRelay(relayTestConfig(), newFakeChain(), &fakeRelationStore{})

	_, err := relay.RelayChatMessage(context.Background(), &OutboundMessage{
		UserID: 1,
		Record: PrivateChatRelation{ChatMessageID: 1, ChannelMessageID: 2},
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestRelayChatMessageNewPost(t *testing.T) {
	chain := newFakeChain()
	store := &fakeRelationStore{}
	relay := newTestRelay(relayTestConfig(), chain, store)

	rel, err := relay.RelayChatMessage(context.Background(), &OutboundMessage{
		Text:     "hello world",
		UserID:   42,
		Username: "alice",
		Binding:  Binding{ChannelMessageID: intPtr(7)},
		Record:   PrivateChatRelation{ChatMessageID: 3, ChannelMessageID: 7},
	})
	require.NoError(t, err)

	assert.Equal(t, "trx-1", rel.TrxID)
	assert.Equal(t, models.TrxTypePost, rel.TrxType)
	assert.Equal(t, "group-1", rel.GroupID)
	assert.Equal(t, int64(42), rel.UserID)
	assert.Equal(t, models.ChatTypePrivate, rel.ChatType)
	assert.NotEmpty(t, rel.RumPostID)
	assert.Equal(t, "https://feed.example.com/posts/"+rel.RumPostID, rel.RumPostURL)

	require.Len(t, chain.posted, 1)
	activity := chain.posted[0].activity
	assert.Equal(t, "hello world", activity.Object.Content)
	assert.Nil(t, activity.Object.InReplyTo)
	require.NotNil(t, activity.Origin)
	assert.Equal(t, "telegram", activity.Origin.Type)
	assert.Equal(t, "https://t.me/my_channel/7", activity.Origin.URL)
	assert.Equal(t, chain.posted[0].pubkey, rel.Pubkey)

	require.Len(t, store.relations, 1)
	assert.Equal(t, "trx-1", store.relations[0].TrxID)
}

func TestRelayChatMessageAppendsFooter(t *testing.T) {
	cfg := relayTestConfig()
	cfg.Rum.PostFooter = "from telegram"
	chain := newFakeChain()
	relay := newTestRelay(cfg, chain, &fakeRelationStore{})

	_, err := relay.RelayChatMessage(context.Background(), &OutboundMessage{
		Text:   "hello",
		UserID: 1,
		Record: ChannelPostRelation{ChannelMessageID: 9},
	})
	require.NoError(t, err)

	require.Len(t, chain.posted, 1)
	assert.Equal(t, "hello from telegram", chain.posted[0].activity.Object.Content)
}

func TestRelayChatMessageComment(t *testing.T) {
	chain := newFakeChain()
	store := &fakeRelationStore{relations: []*models.Relation{
		{RumPostID: "p1", TrxID: "t1", TrxType: models.TrxTypePost},
	}}
	relay := newTestRelay(relayTestConfig(), chain, store)

	rel, err := relay.RelayChatMessage(context.Background(), &OutboundMessage{
		Text:    "a reply",
		UserID:  2,
		Binding: Binding{ReplyID: "p1", ChannelMessageID: intPtr(100)},
		Record: GroupReplyRelation{
			ChatType:         models.ChatTypeSupergroup,
			ChatMessageID:    8,
			ChannelMessageID: intPtr(100),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.TrxTypeComment, rel.TrxType)
	// The shareable URL points at the root of the reply chain.
	assert.Equal(t, "https://feed.example.com/posts/p1", rel.RumPostURL)

	activity := chain.posted[0].activity
	require.NotNil(t, activity.Object.InReplyTo)
	assert.Equal(t, "p1", activity.Object.InReplyTo.ID)
	// Footer applies to root posts only.
	assert.Equal(t, "a reply", activity.Object.Content)
}

func TestRelayChatMessageCommentOnUnknownTargetDegrades(t *testing.T) {
	chain := newFakeChain()
	relay := newTestRelay(relayTestConfig(), chain, &fakeRelationStore{})

	rel, err := relay.RelayChatMessage(context.Background(), &OutboundMessage{
		Text:    "a reply",
		UserID:  2,
		Binding: Binding{ReplyID: "missing"},
		Record: GroupReplyRelation{
			ChatType:      models.ChatTypeSupergroup,
			ChatMessageID: 8,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://feed.example.com/posts/missing", rel.RumPostURL)
}

func TestRelayChatMessageUnregisteredUser(t *testing.T) {
	cfg := relayTestConfig()
	cfg.Rum.AutoRegister = false
	relay := newTestRelay(cfg, newFakeChain(), &fakeRelationStore{})

	_, err := relay.RelayChatMessage(context.Background(), &OutboundMessage{
		Text:   "hello",
		UserID: 1,
		Record: PrivateChatRelation{ChatMessageID: 1, ChannelMessageID: 2},
	})
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRelayChatMessageImagesOnly(t *testing.T) {
	chain := newFakeChain()
	relay := newTestRelay(relayTestConfig(), chain, &fakeRelationStore{})

	rel, err := relay.RelayChatMessage(context.Background(), &OutboundMessage{
		Images: [][]byte{{0xff, 0xd8}},
		UserID: 1,
		Record: PrivateChatRelation{ChatMessageID: 1, ChannelMessageID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TrxTypePost, rel.TrxType)
	require.Len(t, chain.posted[0].activity.Object.Image, 1)
	assert.Equal(t, "image/jpeg", chain.posted[0].activity.Object.Image[0].MediaType)
}
