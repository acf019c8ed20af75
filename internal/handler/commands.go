package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"tg-rum-bridge/internal/logger"
	"tg-rum-bridge/internal/rum"
	"tg-rum-bridge/internal/service"
)

// RegisterCommands registers bot commands
func RegisterCommands(bh *th.BotHandler, bot *telego.Bot) {
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return handleStartCommand(ctx, bot, message)
	}, th.CommandEqual("start"))

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return handleProfileCommand(ctx, bot, message)
	}, th.CommandEqual("profile"))

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return handleShowPvtkeyCommand(ctx, bot, message)
	}, th.CommandEqual("show_pvtkey"), chatTypeIs("private"))

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return handleNewPvtkeyCommand(ctx, bot, message)
	}, th.CommandEqual("new_pvtkey"), chatTypeIs("private"))

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return handleImportPvtkeyCommand(ctx, bot, message)
	}, th.CommandEqual("import_pvtkey"), chatTypeIs("private"))

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return handleExportDataCommand(ctx, bot, message)
	}, th.CommandEqual("export_data"), chatTypeIs("private"))
}

func handleStartCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	username := ""
	if message.From != nil {
		username = message.From.Username
	}
	text := fmt.Sprintf("Hello %s! I'm %s.\nI can send your message (such as text, photo) as a new microblog from telegram to the blockchain of RUM network.\nTry to say something to me.",
		username, globalConfig.Bot.Name)
	return replyText(ctx, bot, message, text)
}

// handleProfileCommand updates the user's nickname (and avatar) on chain
func handleProfileCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil {
		return nil
	}

	name := commandArg(messageText(message), "/profile")
	if utf8.RuneCountInString(name) < 2 || utf8.RuneCountInString(name) > 32 {
		return replyText(ctx, bot, message,
			"Change your nickname or avatar for the blockchain of rum group.\nUse command as `/profile your-nickname`, nickname should be 2-32 characters, and you can add a picture as avatar.")
	}

	avatar, err := downloadLargestPhoto(ctx.Context(), bot, message)
	if err != nil {
		logger.Errorf("failed to download avatar: %v", err)
		return replyText(ctx, bot, message, "Failed to read your photo, please try again.")
	}

	user, err := svcs.Users.EnsureUser(message.From.ID, message.From.Username)
	if err != nil {
		if errors.Is(err, service.ErrNotRegistered) {
			return replyText(ctx, bot, message, "You are not registered yet. Use /new_pvtkey first.")
		}
		return err
	}
	account, err := rum.AccountFromPvtkey(user.Pvtkey)
	if err != nil {
		return fmt.Errorf("stored key for user %d is invalid: %w", user.UserID, err)
	}

	reply := fmt.Sprintf("Enter name: ```%s```\n", name)
	data := rum.Profile(name, avatar, user.Address)
	if _, err := svcs.Chain.PostContent(ctx.Context(), account, data); err != nil {
		logger.Errorf("profile update for user %d failed: %v", user.UserID, err)
		reply += "Profile update failed. Please try again later."
	} else {
		reply += fmt.Sprintf("Profile updated. View %s/users/%s", globalConfig.Feed.URLBase, user.Address)
	}
	return replyMarkdown(ctx, bot, message, reply)
}

func handleShowPvtkeyCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	user, err := svcs.Users.EnsureUser(message.From.ID, message.From.Username)
	if err != nil {
		if errors.Is(err, service.ErrNotRegistered) {
			return replyText(ctx, bot, message, "You are not registered yet. Use /new_pvtkey to create your chain keypair.")
		}
		return err
	}

	text := fmt.Sprintf("Your private key (please keep it safe) now is: \n```\n%s\n```\nYour Address (can show to others) now is:\n```\n%s\n```",
		user.Pvtkey, user.Address)

	used, err := svcs.Users.UsedKeys(user.UserID)
	if err != nil {
		logger.Errorf("failed to load used keys for user %d: %v", user.UserID, err)
	}
	if len(used) > 0 {
		text += "\n\nUsed private key (please keep it safe) is: \n"
		for _, key := range used {
			text += fmt.Sprintf("\n```\n%s\n```\n", key.Pvtkey)
		}
	}
	return replyMarkdown(ctx, bot, message, text)
}

func handleNewPvtkeyCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	user, err := svcs.Users.Register(message.From.ID, message.From.Username, "")
	if err != nil {
		logger.Errorf("key rotation for user %d failed: %v", message.From.ID, err)
		return replyText(ctx, bot, message, "Failed to create a new key. Please try again later.")
	}
	text := fmt.Sprintf("Your private key (please keep it safe) is: \n```\n%s\n```\nYour Address (can show to others) is:\n```\n%s\n```",
		user.Pvtkey, user.Address)
	return replyMarkdown(ctx, bot, message, text)
}

func handleImportPvtkeyCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	pvtkey := commandArg(messageText(message), "/import_pvtkey")
	text := fmt.Sprintf("Try to import private key: \n```\n%s\n```\n", pvtkey)

	user, err := svcs.Users.Register(message.From.ID, message.From.Username, pvtkey)
	if err != nil {
		logger.Warningf("key import for user %d failed: %v", message.From.ID, err)
		text += "Please use command as `/import_pvtkey 0x5ee77ca3c261cdd...adeffaf`. Please check your private key and try again."
	} else {
		text += fmt.Sprintf("Success. Please keep it safe.\nYour Address is:\n```\n%s\n```", user.Address)
	}
	return replyMarkdown(ctx, bot, message, text)
}

// handleExportDataCommand collects every trx the user sent to the chain
// and returns it as a JSON document, at most once per hour.
func handleExportDataCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	user, err := svcs.Users.Get(message.From.ID)
	if err != nil {
		return err
	}
	if user == nil {
		return replyText(ctx, bot, message, "You have not registered yet. Please use command as `/new_pvtkey` to register.")
	}
	if user.ExportAt != nil && user.ExportAt.After(time.Now().Add(-time.Hour)) {
		return replyText(ctx, bot, message, "You have exported your data in one hour. Please try again later.")
	}

	trxs, err := collectSenderTrxs(ctx, user.Pubkey)
	if err != nil {
		logger.Errorf("data export for user %d failed: %v", user.UserID, err)
		return replyText(ctx, bot, message, "Export failed. Please try again later.")
	}
	if len(trxs) == 0 {
		return replyText(ctx, bot, message, "You have not any data in blockchain of rum-group.")
	}

	data, err := json.MarshalIndent(trxs, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	filename := fmt.Sprintf("%s_export_data_%s.json", time.Now().Format("2006-01-02"), globalConfig.Bot.Name)
	_, err = bot.SendDocument(ctx.Context(), &telego.SendDocumentParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Document:        telego.InputFile{File: tu.NameReader(bytes.NewReader(data), filename)},
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	})
	if err != nil {
		return fmt.Errorf("failed to send export document: %w", err)
	}

	if err := svcs.UserRepo.UpdateExportAt(user.UserID, time.Now()); err != nil {
		logger.Errorf("failed to stamp export time for user %d: %v", user.UserID, err)
	}

	reply := fmt.Sprintf("You have exported your data, that is %d trxs in blockchain of rum-group.\nYour private key is:\n```%s```\nPlease keep it safe.",
		len(trxs), user.Pvtkey)
	return replyMarkdown(ctx, bot, message, reply)
}

// collectSenderTrxs pages through the whole chain history of one sender.
func collectSenderTrxs(ctx *th.Context, pubkey string) ([]rum.Trx, error) {
	var all []rum.Trx
	cursor := ""
	for {
		page, err := svcs.Chain.GetContent(ctx.Context(), rum.ContentOptions{
			Senders:  []string{pubkey},
			StartTrx: cursor,
			Num:      globalConfig.Rum.PageSize,
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		cursor = page[len(page)-1].TrxID
	}
}

// commandArg strips the command prefix and surrounding quotes
func commandArg(text, command string) string {
	return strings.Trim(strings.TrimPrefix(text, command), "\n '\"")
}

func replyMarkdown(ctx *th.Context, bot *telego.Bot, message telego.Message, text string) error {
	_, err := bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            text,
		ParseMode:       "Markdown",
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	})
	return err
}
