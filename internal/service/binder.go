package service

import (
	"fmt"

	"tg-rum-bridge/internal/logger"
)

// Binding is the resolved reply context for an outbound message: the
// chain post id to comment on (empty for a new root post) and the channel
// message bridging the two chat surfaces. The channel message id doubles
// as the origin reference for loop prevention.
type Binding struct {
	ReplyID          string
	ChannelMessageID *int
}

// ReplyTarget describes the message an inbound chat message replies to.
type ReplyTarget struct {
	// ChannelMessageID is set when the reply target was forwarded from
	// the broadcast channel.
	ChannelMessageID *int
	// ChatMessageID / ChatType identify the reply target on its own
	// chat surface.
	ChatMessageID *int
	ChatType      string
}

// Binder decides which chain post an inbound message should comment on.
type Binder struct {
	store RelationStore
}

func NewBinder(store RelationStore) *Binder {
	return &Binder{store: store}
}

// Bind resolves a binding with this precedence: the reply target's
// channel-forward relation, then its stored chat relation (re-resolving
// through the channel when the chat row predates chain confirmation),
// then the pinned-message fallback. No resolution at all yields an empty
// binding — the message becomes a new root post, not an error.
func (b *Binder) Bind(target *ReplyTarget, pinned func() (*int, error)) (Binding, error) {
	if target != nil {
		if target.ChannelMessageID != nil {
			return b.bindChannel(*target.ChannelMessageID)
		}
		if target.ChatMessageID != nil {
			binding, ok, err := b.bindChatMessage(target.ChatType, *target.ChatMessageID)
			if err != nil {
				return Binding{}, err
			}
			if ok {
				return binding, nil
			}
		}
	}

	if pinned != nil {
		channelMessageID, err := pinned()
		if err != nil {
			logger.Warningf("pinned message lookup failed: %v", err)
		} else if channelMessageID != nil {
			return b.bindChannel(*channelMessageID)
		}
	}

	return Binding{}, nil
}

// bindChannel binds against the chain-confirmed relation of a channel
// message. A missing relation is a soft miss: the channel reference is
// kept for provenance, the message becomes a root post.
func (b *Binder) bindChannel(channelMessageID int) (Binding, error) {
	rel, err := b.store.FindRelationWithTrx(channelMessageID)
	if err != nil {
		return Binding{}, fmt.Errorf("failed to look up channel message %d: %w", channelMessageID, err)
	}
	binding := Binding{ChannelMessageID: &channelMessageID}
	if rel != nil {
		binding.ReplyID = rel.RumPostID
	} else {
		logger.Warningf("no confirmed relation for channel message %d", channelMessageID)
	}
	return binding, nil
}

func (b *Binder) bindChatMessage(chatType string, chatMessageID int) (Binding, bool, error) {
	rel, err := b.store.FindByChatMessage(chatType, chatMessageID)
	if err != nil {
		return Binding{}, false, fmt.Errorf("failed to look up chat message %d: %w", chatMessageID, err)
	}
	if rel == nil {
		return Binding{}, false, nil
	}

	binding := Binding{
		ReplyID:          rel.RumPostID,
		ChannelMessageID: rel.ChannelMessageID,
	}
	// A chat-first row written before its chain confirmation has no post
	// id yet; re-resolve through the channel bridge it recorded.
	if binding.ReplyID == "" && rel.ChannelMessageID != nil {
		confirmed, err := b.store.FindRelationWithTrx(*rel.ChannelMessageID)
		if err != nil {
			return Binding{}, false, fmt.Errorf("failed to re-resolve channel message %d: %w", *rel.ChannelMessageID, err)
		}
		if confirmed != nil {
			binding.ReplyID = confirmed.RumPostID
		}
	}
	return binding, true, nil
}
