package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-rum-bridge/internal/config"
)

// BotService represents the Telegram bot service
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
}

// Start starts the bot handler
func (b *BotService) Start() {
	b.Handler.Start()
}

// Stop stops the bot handler
func (b *BotService) Stop() {
	b.Handler.Stop()
}

// Initialize initializes the bot and the long-polling update stream
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, error) {
	// Validate configuration
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	// Initialize bot
	bot, err := telego.NewBot(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	// Get bot info
	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Printf("Authorized on account %s", botUser.Username)

	setCommands(ctx, bot)

	// Delete any existing webhook so long polling can take over
	err = bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "edited_message", "channel_post"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start long polling: %w", err)
	}

	bh, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot handler: %w", err)
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
	}, nil
}

// setCommands registers the bot command menu
func setCommands(ctx context.Context, bot *telego.Bot) {
	commands := []telego.BotCommand{
		{Command: "start", Description: "What this bot does"},
		{Command: "profile", Description: "Set your nickname (and avatar) on the chain"},
		{Command: "show_pvtkey", Description: "Show your current and archived private keys"},
		{Command: "new_pvtkey", Description: "Generate a new keypair (old key is archived)"},
		{Command: "import_pvtkey", Description: "Import an existing private key"},
		{Command: "export_data", Description: "Export all your chain data as JSON"},
	}

	err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		log.Printf("Warning: Failed to set bot commands: %v", err)
	}
}
