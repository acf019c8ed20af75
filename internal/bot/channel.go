package bot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tg-rum-bridge/internal/config"
)

// ChannelWriter posts messages into the broadcast channel. It is the
// poller's sending side, kept behind a small interface so the relay loop
// can be tested without Telegram.
type ChannelWriter struct {
	bot    *telego.Bot
	chatID telego.ChatID
}

func NewChannelWriter(bot *telego.Bot, cfg *config.Config) *ChannelWriter {
	chatID := telego.ChatID{ID: cfg.Channel.ID}
	if cfg.Channel.ID == 0 {
		chatID = telego.ChatID{Username: cfg.Channel.Name}
	}
	return &ChannelWriter{bot: bot, chatID: chatID}
}

// SendText posts a text message and returns its channel message id.
func (w *ChannelWriter) SendText(ctx context.Context, text string) (int, error) {
	msg, err := w.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: w.chatID,
		Text:   text,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send channel message: %w", err)
	}
	return msg.MessageID, nil
}

// SendPhoto posts a photo with caption and returns its channel message id.
func (w *ChannelWriter) SendPhoto(ctx context.Context, photo []byte, caption string) (int, error) {
	msg, err := w.bot.SendPhoto(ctx, &telego.SendPhotoParams{
		ChatID:  w.chatID,
		Photo:   telego.InputFile{File: tu.NameReader(bytes.NewReader(photo), "post.jpg")},
		Caption: caption,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send channel photo: %w", err)
	}
	return msg.MessageID, nil
}
