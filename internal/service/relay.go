package service

import (
	"context"
	"errors"
	"fmt"

	"tg-rum-bridge/internal/config"
	"tg-rum-bridge/internal/logger"
	"tg-rum-bridge/internal/models"
	"tg-rum-bridge/internal/rum"
)

// ErrEmptyMessage rejects outbound messages with no text and no images
// before anything reaches the chain.
var ErrEmptyMessage = errors.New("message has no content")

// OutboundMessage is one chat message headed for the chain.
type OutboundMessage struct {
	Text     string
	Images   [][]byte
	UserID   int64
	Username string
	// Binding carries the reply target and the channel bridge reference
	// (also used as origin provenance for loop prevention).
	Binding Binding
	// Record contributes the chat-side relation fields for this path.
	Record RelationRecord
}

// Relay converts inbound chat messages into chain submissions and records
// the resulting relation.
type Relay struct {
	cfg      *config.Config
	chain    rum.Client
	store    RelationStore
	users    *UserManager
	resolver *Resolver
}

func NewRelay(cfg *config.Config, chain rum.Client, store RelationStore, users *UserManager, resolver *Resolver) *Relay {
	return &Relay{cfg: cfg, chain: chain, store: store, users: users, resolver: resolver}
}

// RelayChatMessage submits the message as a new post or comment, signed
// with the sender's own key, and upserts the relation row keyed by the
// resulting trx id. Submission failures surface to the caller; there is
// no automatic retry here.
func (r *Relay) RelayChatMessage(ctx context.Context, msg *OutboundMessage) (*models.Relation, error) {
	if msg.Text == "" && len(msg.Images) == 0 {
		return nil, ErrEmptyMessage
	}

	user, err := r.users.EnsureUser(msg.UserID, msg.Username)
	if err != nil {
		return nil, err
	}
	account, err := rum.AccountFromPvtkey(user.Pvtkey)
	if err != nil {
		return nil, fmt.Errorf("stored key for user %d is invalid: %w", msg.UserID, err)
	}

	var activity *rum.Activity
	trxType := models.TrxTypePost
	if msg.Binding.ReplyID != "" {
		activity = rum.Reply(msg.Text, msg.Images, msg.Binding.ReplyID)
		trxType = models.TrxTypeComment
	} else {
		text := msg.Text
		if r.cfg.Rum.PostFooter != "" {
			text += " " + r.cfg.Rum.PostFooter
		}
		activity = rum.NewPost(text, msg.Images)
	}

	// Stamp channel provenance so the poller can recognize content that
	// already started on the Telegram side.
	if msg.Binding.ChannelMessageID != nil {
		activity.Origin = &rum.Origin{
			Type: "telegram",
			Name: r.cfg.Channel.Name,
			URL:  fmt.Sprintf("%s/%d", r.cfg.Channel.URL, *msg.Binding.ChannelMessageID),
		}
	}

	trxID, err := r.chain.PostContent(ctx, account, activity)
	if err != nil {
		return nil, fmt.Errorf("chain submission failed: %w", err)
	}
	logger.Infof("sent trx %s (%s) for user %d", trxID, trxType, msg.UserID)

	rel := msg.Record.Normalize()
	rel.GroupID = r.chain.GroupID()
	rel.TrxID = trxID
	rel.TrxType = trxType
	rel.RumPostID = activity.Object.ID
	rel.RumPostURL = fmt.Sprintf("%s/posts/%s", r.cfg.Feed.URLBase, r.rootPostID(ctx, msg.Binding.ReplyID, activity.Object.ID))
	rel.UserID = msg.UserID
	rel.Pubkey = account.Pubkey()

	if err := r.store.UpsertByTrxID(rel); err != nil {
		// At-least-once: the submission stands even if the record write
		// lost a race, so report but do not fail the relay.
		logger.Errorf("failed to record relation for trx %s: %v", trxID, err)
	}
	return rel, nil
}

// rootPostID resolves the shareable post id: the root of the reply chain
// for comments, the new object id for root posts. Resolution misses
// degrade to treating the reply target as its own root.
func (r *Relay) rootPostID(ctx context.Context, replyID, newPostID string) string {
	if replyID == "" {
		return newPostID
	}
	root, err := r.resolver.ResolveRoot(ctx, replyID)
	if err != nil {
		if errors.Is(err, ErrUnresolvable) {
			logger.Warningf("reply target %s has no relation, using it as root", replyID)
		} else {
			logger.Errorf("root resolution for %s failed: %v", replyID, err)
		}
		return replyID
	}
	return root
}
