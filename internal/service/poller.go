package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"tg-rum-bridge/internal/config"
	"tg-rum-bridge/internal/logger"
	"tg-rum-bridge/internal/models"
	"tg-rum-bridge/internal/rum"
)

// ChannelSender posts relayed content into the broadcast channel.
// Implemented by bot.ChannelWriter.
type ChannelSender interface {
	SendText(ctx context.Context, text string) (messageID int, err error)
	SendPhoto(ctx context.Context, photo []byte, caption string) (messageID int, err error)
}

// Poller reads new chain transactions and relays qualifying posts to the
// channel. It runs as a single cooperative loop; the relation store is
// its only coordination point with the outbound side.
type Poller struct {
	cfg    *config.Config
	chain  rum.Client
	store  RelationStore
	sender ChannelSender
	cursor string
	now    func() time.Time
}

func NewPoller(cfg *config.Config, chain rum.Client, store RelationStore, sender ChannelSender) *Poller {
	return &Poller{
		cfg:    cfg,
		chain:  chain,
		store:  store,
		sender: sender,
		now:    time.Now,
	}
}

// Run polls until the context is cancelled. When a page yields no new
// transactions the loop sleeps one interval before retrying.
func (p *Poller) Run(ctx context.Context) {
	if !p.cfg.Rum.ToTelegram {
		logger.Warningf("chain-to-telegram relay is disabled")
		return
	}

	interval := time.Duration(p.cfg.Rum.PollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	if p.cursor == "" {
		if err := p.initCursor(ctx); err != nil {
			logger.Errorf("failed to initialize poll cursor: %v", err)
		}
	}

	for {
		next, err := p.Step(ctx)
		if err != nil {
			logger.Errorf("poll step failed: %v", err)
		}
		progressed := next != p.cursor
		p.cursor = next
		if progressed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// initCursor starts polling at the newest known trx so a fresh deployment
// does not replay the whole chain into the channel.
func (p *Poller) initCursor(ctx context.Context) error {
	trxs, err := p.chain.GetContent(ctx, rum.ContentOptions{Num: p.cfg.Rum.PageSize, Reverse: true})
	if err != nil {
		return err
	}
	if len(trxs) > 0 {
		p.cursor = trxs[len(trxs)-1].TrxID
		logger.Infof("poll cursor initialized at %s", p.cursor)
	}
	return nil
}

// Step fetches one page after the cursor and processes it. The returned
// cursor advances past every transaction seen, filtered or not, so
// rejected transactions are never retried.
func (p *Poller) Step(ctx context.Context) (string, error) {
	trxs, err := p.chain.GetContent(ctx, rum.ContentOptions{StartTrx: p.cursor, Num: p.cfg.Rum.PageSize})
	if err != nil {
		return p.cursor, fmt.Errorf("failed to fetch content page: %w", err)
	}

	cursor := p.cursor
	for i := range trxs {
		trx := &trxs[i]
		cursor = trx.TrxID
		if skip, reason := p.filter(trx); skip {
			logger.Debugf("skipping trx %s: %s", trx.TrxID, reason)
			continue
		}
		if err := p.relay(ctx, trx); err != nil {
			logger.Errorf("failed to relay trx %s: %v", trx.TrxID, err)
		}
	}
	return cursor, nil
}

// filter applies the relay policy in order; the first failing check wins.
func (p *Poller) filter(trx *rum.Trx) (bool, string) {
	if p.cfg.Rum.PostAuthType == "whitelist" && !slices.Contains(p.cfg.Rum.WhitelistPubkeys, trx.SenderPubkey) {
		return true, "sender not in whitelist"
	}
	if slices.Contains(p.cfg.Rum.BlacklistPubkeys, trx.SenderPubkey) {
		return true, "sender blacklisted"
	}
	if trx.Type() != rum.TrxPost {
		return true, "not a post"
	}

	content := ""
	var images rum.ImageList
	if trx.Data.Object != nil {
		content = trx.Data.Object.Content
		images = trx.Data.Object.Image
	}

	if tag := p.cfg.Rum.ToTelegramTag; tag != "" && !strings.Contains(content, tag) {
		return true, "missing relay tag"
	}

	// Delay window: relay only content published at or after now+delay.
	// Negative delay_hours gives a freshness cutoff, positive holds
	// everything back.
	delay := time.Duration(p.cfg.Rum.DelayHours * float64(time.Hour))
	if trx.Published().Before(p.now().Add(delay)) {
		return true, "outside delay window"
	}

	if trx.Data.Origin != nil && p.cfg.Channel.URL != "" && strings.Contains(trx.Data.Origin.URL, p.cfg.Channel.URL) {
		return true, "originated from this channel"
	}

	exists, err := p.store.TrxExists(trx.TrxID)
	if err != nil {
		logger.Errorf("dedup check for trx %s failed: %v", trx.TrxID, err)
		return true, "dedup check failed"
	}
	if exists {
		return true, "already relayed"
	}

	if content == "" && len(images) == 0 {
		return true, "empty content"
	}
	return false, ""
}

// relay sends the post into the channel: one message for text-only posts,
// one photo per image otherwise. Every sent channel message gets its own
// relation row; the rows share the trx id.
func (p *Poller) relay(ctx context.Context, trx *rum.Trx) error {
	content := trx.Data.Object.Content
	images := trx.Data.Object.Image
	postURL := fmt.Sprintf("%s/posts/%s", p.cfg.Feed.URLBase, trx.Data.Object.ID)
	logger.Infof("new post from chain %s", postURL)

	if len(images) == 0 {
		messageID, err := p.sender.SendText(ctx, content)
		if err != nil {
			return fmt.Errorf("failed to send channel message: %w", err)
		}
		return p.record(trx, postURL, messageID)
	}

	for i, img := range images {
		photo, err := base64.StdEncoding.DecodeString(img.Content)
		if err != nil {
			logger.Errorf("trx %s image %d is not valid base64: %v", trx.TrxID, i, err)
			continue
		}
		caption := content
		if len(images) > 1 {
			caption = fmt.Sprintf("%d/%d %s", i+1, len(images), content)
		}
		messageID, err := p.sender.SendPhoto(ctx, photo, caption)
		if err != nil {
			// Earlier image rows stand; the dedup check keeps the trx
			// from being re-imported wholesale.
			return fmt.Errorf("failed to send image %d/%d: %w", i+1, len(images), err)
		}
		if err := p.record(trx, postURL, messageID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Poller) record(trx *rum.Trx, postURL string, channelMessageID int) error {
	rel := InboundPostRelation{ChannelMessageID: channelMessageID}.Normalize()
	rel.GroupID = p.chain.GroupID()
	rel.TrxID = trx.TrxID
	rel.TrxType = models.TrxTypePost
	rel.RumPostID = trx.Data.Object.ID
	rel.RumPostURL = postURL
	rel.UserID = p.cfg.Channel.ID
	rel.Pubkey = trx.SenderPubkey
	if err := p.store.UpsertByTrxAndChannelMessage(rel); err != nil {
		return fmt.Errorf("failed to record relation for trx %s: %w", trx.TrxID, err)
	}
	logger.Infof("recorded relation trx %s channel message %d", trx.TrxID, channelMessageID)
	return nil
}
