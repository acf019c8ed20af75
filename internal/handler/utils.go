package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	tgbot "tg-rum-bridge/internal/bot"
)

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// chatTypeIs matches messages from one chat surface
func chatTypeIs(chatType string) th.Predicate {
	return func(ctx context.Context, update telego.Update) bool {
		return update.Message != nil && update.Message.Chat.Type == chatType
	}
}

// notCommand skips messages starting with a bot command
func notCommand() th.Predicate {
	return func(ctx context.Context, update telego.Update) bool {
		return update.Message == nil || !strings.HasPrefix(update.Message.Text, "/")
	}
}

// isChannelForward reports whether the group message is the linked
// channel's post auto-forwarded by Telegram.
func isChannelForward(message telego.Message) bool {
	if message.IsAutomaticForward {
		return true
	}
	return message.SenderChat != nil && message.SenderChat.ID == globalConfig.Channel.ID
}

// forwardedChannelMessageID extracts the original channel message id from
// a forwarded message, or nil.
func forwardedChannelMessageID(message *telego.Message) *int {
	if message == nil || message.ForwardOrigin == nil {
		return nil
	}
	origin, ok := message.ForwardOrigin.(*telego.MessageOriginChannel)
	if !ok {
		return nil
	}
	id := origin.MessageID
	return &id
}

// messageText returns the text or caption of a message
func messageText(message telego.Message) string {
	if message.Text != "" {
		return message.Text
	}
	return message.Caption
}

// fullName returns the display name of a Telegram user
func fullName(user *telego.User) string {
	if user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}
	return user.FirstName
}

// photoList wraps a single downloaded photo for the relay
func photoList(photo []byte) [][]byte {
	if photo == nil {
		return nil
	}
	return [][]byte{photo}
}

// downloadLargestPhoto fetches the best-resolution rendition of the
// message photo, or nil when the message has none.
func downloadLargestPhoto(ctx context.Context, bot *telego.Bot, message telego.Message) ([]byte, error) {
	if len(message.Photo) == 0 {
		return nil, nil
	}
	// renditions are ordered smallest to largest
	fileID := message.Photo[len(message.Photo)-1].FileID

	file, err := bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bot.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// replyText sends a plain text reply to the message
func replyText(ctx *th.Context, bot *telego.Bot, message telego.Message, text string) error {
	_, err := bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            text,
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	})
	return err
}

// channelWriter builds the channel sending side for mirror operations
func channelWriter(bot *telego.Bot) *tgbot.ChannelWriter {
	return tgbot.NewChannelWriter(bot, globalConfig)
}
