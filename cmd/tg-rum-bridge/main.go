package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tg-rum-bridge/internal/bot"
	"tg-rum-bridge/internal/config"
	"tg-rum-bridge/internal/crash"
	"tg-rum-bridge/internal/handler"
	"tg-rum-bridge/internal/logger"
	"tg-rum-bridge/internal/rum"
	"tg-rum-bridge/internal/service"
	"tg-rum-bridge/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize database
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Connect to the RUM group described by the seed
	seed, err := rum.ParseSeed(cfg.Rum.SeedURL)
	if err != nil {
		log.Fatalf("Failed to parse rum seed: %v", err)
	}
	chain := rum.NewHTTPClient(seed)
	log.Printf("Using rum group %s (%s)", seed.GroupID, seed.Name)

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize bot with configuration
	botService, err := bot.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	// Wire the service graph
	sender := bot.NewChannelWriter(botService.Bot, cfg)
	svcs, err := service.Initialize(cfg, storage.GetDB(), chain, sender)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers and start consuming updates
	handler.Initialize(cfg, svcs)
	handler.SetupMessageHandlers(botService.Handler, botService.Bot)

	// Chain-to-channel relay runs independently of the update loop
	crash.SafeGoroutine("rum-poller", func() {
		svcs.Poller.Run(ctx)
	})

	crash.SafeGoroutine("bot-handler", func() {
		botService.Start()
	})

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)

	cancel()
	botService.Stop()

	log.Println("Bridge gracefully stopped")
}
