package handler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-rum-bridge/internal/config"
	"tg-rum-bridge/internal/logger"
	"tg-rum-bridge/internal/service"
)

var (
	// Global configuration
	globalConfig *config.Config
	svcs         *service.Services
)

// Initialize initializes the handler with configuration and services
func Initialize(cfg *config.Config, services *service.Services) {
	globalConfig = cfg
	svcs = services
}

// SetupMessageHandlers configures all bot message and update handlers
func SetupMessageHandlers(bh *th.BotHandler, bot *telego.Bot) {
	RegisterCommands(bh, bot)

	// Private chat: mirror to the channel and post to the chain
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return handlePrivateMessage(ctx, bot, message)
	}, chatTypeIs("private"), notCommand())

	// Linked supergroup: comment onto the reply target or pinned post.
	// Channel posts auto-forwarded into the group are bridged instead.
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		if isChannelForward(message) {
			return handleChannelForward(ctx, bot, message)
		}
		return handleGroupMessage(ctx, bot, message)
	}, chatTypeIs("supergroup"), notCommand())

	// Channel posts become new chain posts
	bh.HandleChannelPost(func(ctx *th.Context, message telego.Message) error {
		return handleChannelPost(ctx, bot, message)
	})
}

// handlePrivateMessage mirrors a private message to the channel, posts it
// to the chain as a new root post, and replies with the feed url.
func handlePrivateMessage(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil || message.From.IsBot {
		return nil
	}
	logger.Infof("handle private message %d", message.MessageID)

	userID := message.From.ID
	if slices.Contains(globalConfig.Bot.BlacklistIDs, userID) {
		return replyText(ctx, bot, message, "You are in the blacklist.")
	}
	if globalConfig.Rum.PostAuthType == "whitelist" && !slices.Contains(globalConfig.Bot.WhitelistIDs, userID) {
		return replyText(ctx, bot, message, fmt.Sprintf(
			"You are not in the whitelist. Your content will not be posted to the channel.\nYou can leave a comment to any post of the channel @%s",
			strings.TrimPrefix(globalConfig.Channel.Name, "@")))
	}

	text := messageText(message)
	photo, err := downloadLargestPhoto(ctx.Context(), bot, message)
	if err != nil {
		logger.Errorf("failed to download photo: %v", err)
		return replyText(ctx, bot, message, "Failed to read your photo, please try again.")
	}
	if text == "" && photo == nil {
		return nil
	}

	// Mirror into the channel with attribution
	decorated := fmt.Sprintf("%s\nFrom %s through %s", text, fullName(message.From), globalConfig.Bot.Name)
	channelMessageID, err := mirrorToChannel(ctx.Context(), bot, decorated, photo)
	if err != nil {
		logger.Errorf("failed to mirror message %d to channel: %v", message.MessageID, err)
		return replyText(ctx, bot, message, "Failed to publish to the channel, please try again later.")
	}

	rel, err := svcs.Relay.RelayChatMessage(ctx.Context(), &service.OutboundMessage{
		Text:     text,
		Images:   photoList(photo),
		UserID:   userID,
		Username: message.From.Username,
		Binding:  service.Binding{ChannelMessageID: &channelMessageID},
		Record: service.PrivateChatRelation{
			ChatMessageID:    message.MessageID,
			ChannelMessageID: channelMessageID,
		},
	})
	if err != nil {
		return replyRelayError(ctx, bot, message, err)
	}

	extend := fmt.Sprintf(" and to [%s](%s/%d)",
		strings.TrimPrefix(globalConfig.Channel.Name, "@"), globalConfig.Channel.URL, channelMessageID)
	return replyWithPostURL(ctx.Context(), bot, message.Chat.ID, message.MessageID, rel.RumPostURL, extend)
}

// handleGroupMessage posts a group message to the chain as a comment: on
// the post it replies to when one can be bound, else on the group's
// pinned channel post, else as a new root post.
func handleGroupMessage(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil || message.From.IsBot {
		return nil
	}
	logger.Infof("handle group message %d", message.MessageID)

	userID := message.From.ID
	if slices.Contains(globalConfig.Bot.BlacklistIDs, userID) {
		return replyText(ctx, bot, message, "You are in the blacklist.")
	}

	text := messageText(message)
	photo, err := downloadLargestPhoto(ctx.Context(), bot, message)
	if err != nil {
		logger.Errorf("failed to download photo: %v", err)
		return nil
	}
	if text == "" && photo == nil {
		return nil
	}

	var target *service.ReplyTarget
	if reply := message.ReplyToMessage; reply != nil {
		replyChatID := reply.MessageID
		target = &service.ReplyTarget{
			ChannelMessageID: forwardedChannelMessageID(reply),
			ChatMessageID:    &replyChatID,
			ChatType:         message.Chat.Type,
		}
	}

	binding, err := svcs.Binder.Bind(target, func() (*int, error) {
		return pinnedChannelMessageID(ctx.Context(), bot)
	})
	if err != nil {
		logger.Errorf("failed to bind reply for message %d: %v", message.MessageID, err)
		// degrade to a new root post
		binding = service.Binding{}
	}

	rel, err := svcs.Relay.RelayChatMessage(ctx.Context(), &service.OutboundMessage{
		Text:     text,
		Images:   photoList(photo),
		UserID:   userID,
		Username: message.From.Username,
		Binding:  binding,
		Record: service.GroupReplyRelation{
			ChatType:         message.Chat.Type,
			ChatMessageID:    message.MessageID,
			ChannelMessageID: binding.ChannelMessageID,
		},
	})
	if err != nil {
		return replyRelayError(ctx, bot, message, err)
	}
	return replyWithPostURL(ctx.Context(), bot, message.Chat.ID, message.MessageID, rel.RumPostURL, "")
}

// handleChannelPost submits a channel post to the chain as a new root
// post owned by the channel identity.
func handleChannelPost(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	logger.Infof("handle channel post %d", message.MessageID)

	text := messageText(message)
	photo, err := downloadLargestPhoto(ctx.Context(), bot, message)
	if err != nil {
		logger.Errorf("failed to download photo: %v", err)
		return nil
	}
	if text == "" && photo == nil {
		return nil
	}

	channelMessageID := message.MessageID
	_, err = svcs.Relay.RelayChatMessage(ctx.Context(), &service.OutboundMessage{
		Text:     text,
		Images:   photoList(photo),
		UserID:   message.Chat.ID,
		Username: message.Chat.Username,
		Binding:  service.Binding{ChannelMessageID: &channelMessageID},
		Record:   service.ChannelPostRelation{ChannelMessageID: channelMessageID},
	})
	if err != nil {
		logger.Errorf("failed to relay channel post %d: %v", message.MessageID, err)
	}
	return nil
}

// handleChannelForward bridges a channel post auto-forwarded into the
// group: reply in-group with the feed url once the chain confirmation
// lands, and record the chat-side bridge row.
func handleChannelForward(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	channelMessageID := forwardedChannelMessageID(&message)
	if channelMessageID == nil {
		return nil
	}
	logger.Infof("handle channel forward %d (channel message %d)", message.MessageID, *channelMessageID)

	// The channel post handler races us to the chain; wait briefly for
	// its confirmed relation.
	var postURL string
	for i := 0; i < 50; i++ {
		rel, err := svcs.Relations.FindRelationWithTrx(*channelMessageID)
		if err != nil {
			logger.Errorf("failed to look up channel message %d: %v", *channelMessageID, err)
			break
		}
		if rel != nil && rel.RumPostURL != "" {
			postURL = rel.RumPostURL
			break
		}
		select {
		case <-ctx.Context().Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
	}
	if postURL == "" {
		logger.Warningf("no confirmed relation for channel message %d", *channelMessageID)
	} else if err := replyWithPostURL(ctx.Context(), bot, message.Chat.ID, message.MessageID, postURL, ""); err != nil {
		logger.Errorf("failed to reply with post url: %v", err)
	}

	rel := service.ChannelForwardRelation{
		ChatType:         message.Chat.Type,
		ChatMessageID:    message.MessageID,
		ChannelMessageID: *channelMessageID,
	}.Normalize()
	if err := svcs.Relations.UpsertByChatMessage(rel); err != nil {
		logger.Errorf("failed to record bridge relation for message %d: %v", message.MessageID, err)
	}
	return nil
}

// pinnedChannelMessageID extracts the forwarded-from-channel id of the
// group's pinned message.
func pinnedChannelMessageID(ctx context.Context, bot *telego.Bot) (*int, error) {
	chat, err := bot.GetChat(ctx, &telego.GetChatParams{
		ChatID: telego.ChatID{ID: globalConfig.Group.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get group chat: %w", err)
	}
	if chat.PinnedMessage == nil {
		return nil, nil
	}
	return forwardedChannelMessageID(chat.PinnedMessage), nil
}

// replyWithPostURL answers the originating message with the feed url,
// unless suppressed by configuration.
func replyWithPostURL(ctx context.Context, bot *telego.Bot, chatID int64, replyToMessageID int, postURL, extend string) error {
	if !globalConfig.Bot.ReplyPostURL || postURL == "" {
		return nil
	}
	text := fmt.Sprintf("⚜️ Success to blockchain.\n👉[%s](%s)%s", globalConfig.Feed.Title, postURL, extend)
	_, err := bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:             telego.ChatID{ID: chatID},
		Text:               text,
		ParseMode:          "Markdown",
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
		ReplyParameters:    &telego.ReplyParameters{MessageID: replyToMessageID},
	})
	if err != nil {
		return fmt.Errorf("failed to send feed url reply: %w", err)
	}
	return nil
}

// replyRelayError turns a relay failure into a user-visible notice.
func replyRelayError(ctx *th.Context, bot *telego.Bot, message telego.Message, err error) error {
	switch {
	case errors.Is(err, service.ErrNotRegistered):
		return replyText(ctx, bot, message, "You are not registered yet. Use /new_pvtkey to create your chain keypair first.")
	case errors.Is(err, service.ErrEmptyMessage):
		return nil
	default:
		logger.Errorf("failed to relay message %d: %v", message.MessageID, err)
		return replyText(ctx, bot, message, "Failed to send to blockchain. Please try again later.")
	}
}

// mirrorToChannel copies a private message into the broadcast channel and
// returns the channel message id.
func mirrorToChannel(ctx context.Context, bot *telego.Bot, text string, photo []byte) (int, error) {
	writer := channelWriter(bot)
	if photo != nil {
		return writer.SendPhoto(ctx, photo, text)
	}
	return writer.SendText(ctx, text)
}
