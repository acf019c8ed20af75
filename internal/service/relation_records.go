package service

import "tg-rum-bridge/internal/models"

// Each relation-writing path has its own record type carrying exactly the
// chat-side fields that path knows, so a forgotten field is a compile
// error instead of a silently incomplete row. All variants normalize into
// the single Relation schema.

// RelationRecord is one relation-writing path.
type RelationRecord interface {
	Normalize() *models.Relation
}

// PrivateChatRelation records a private message mirrored to the channel
// and posted to the chain.
type PrivateChatRelation struct {
	ChatMessageID    int
	ChannelMessageID int
}

func (p PrivateChatRelation) Normalize() *models.Relation {
	chatID := p.ChatMessageID
	channelID := p.ChannelMessageID
	return &models.Relation{
		ChatType:         models.ChatTypePrivate,
		ChatMessageID:    &chatID,
		ChannelMessageID: &channelID,
	}
}

// ChannelPostRelation records a channel post submitted to the chain.
type ChannelPostRelation struct {
	ChannelMessageID int
}

func (c ChannelPostRelation) Normalize() *models.Relation {
	channelID := c.ChannelMessageID
	return &models.Relation{
		ChatType:         models.ChatTypeChannel,
		ChannelMessageID: &channelID,
	}
}

// GroupReplyRelation records a group message commented onto the chain,
// optionally bridged to a channel message.
type GroupReplyRelation struct {
	ChatType         string
	ChatMessageID    int
	ChannelMessageID *int
}

func (g GroupReplyRelation) Normalize() *models.Relation {
	chatID := g.ChatMessageID
	return &models.Relation{
		ChatType:         g.ChatType,
		ChatMessageID:    &chatID,
		ChannelMessageID: g.ChannelMessageID,
	}
}

// ChannelForwardRelation records the chat-side bridge row for a channel
// post auto-forwarded into the group. It carries no chain fields; the
// chain confirmation lives on the channel post's own relation.
type ChannelForwardRelation struct {
	ChatType         string
	ChatMessageID    int
	ChannelMessageID int
}

func (c ChannelForwardRelation) Normalize() *models.Relation {
	chatID := c.ChatMessageID
	channelID := c.ChannelMessageID
	return &models.Relation{
		ChatType:         c.ChatType,
		ChatMessageID:    &chatID,
		ChannelMessageID: &channelID,
	}
}

// InboundPostRelation records a chain post relayed to the channel by the
// poller. Multi-image posts produce one record per sent photo.
type InboundPostRelation struct {
	ChannelMessageID int
}

func (i InboundPostRelation) Normalize() *models.Relation {
	channelID := i.ChannelMessageID
	return &models.Relation{
		ChannelMessageID: &channelID,
	}
}
