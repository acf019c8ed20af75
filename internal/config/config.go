package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Channel  ChannelConfig  `mapstructure:"channel"`
	Group    GroupConfig    `mapstructure:"group"`
	Rum      RumConfig      `mapstructure:"rum"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Database DatabaseConfig `mapstructure:"database"`
}

// Telegram bot configuration
type BotConfig struct {
	Token        string  `mapstructure:"token"`
	Name         string  `mapstructure:"name"`
	ReplyPostURL bool    `mapstructure:"reply_post_url"`
	BlacklistIDs []int64 `mapstructure:"blacklist_ids"`
	WhitelistIDs []int64 `mapstructure:"whitelist_ids"`
}

// broadcast channel that mirrors chain posts
type ChannelConfig struct {
	ID   int64  `mapstructure:"id"`
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// discussion supergroup linked to the channel
type GroupConfig struct {
	ID int64 `mapstructure:"id"`
}

// RUM group-chain settings
type RumConfig struct {
	SeedURL          string   `mapstructure:"seed_url"`
	DelayHours       float64  `mapstructure:"delay_hours"`
	PostFooter       string   `mapstructure:"post_footer"`
	ToTelegram       bool     `mapstructure:"to_telegram"`
	ToTelegramTag    string   `mapstructure:"to_telegram_tag"`
	AutoRegister     bool     `mapstructure:"auto_register"`
	PostAuthType     string   `mapstructure:"post_auth_type"`
	WhitelistPubkeys []string `mapstructure:"whitelist_pubkeys"`
	BlacklistPubkeys []string `mapstructure:"blacklist_pubkeys"`
	ServicePvtkey    string   `mapstructure:"service_pvtkey"`
	PollIntervalSecs int      `mapstructure:"poll_interval_secs"`
	PageSize         int      `mapstructure:"page_size"`
}

// feed front-end serving the chain content
type FeedConfig struct {
	URLBase string `mapstructure:"url_base"`
	Title   string `mapstructure:"title"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	// Unmarshal configuration
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Derive the channel URL from its public name unless overridden
	if cfg.Channel.URL == "" && cfg.Channel.Name != "" {
		cfg.Channel.URL = fmt.Sprintf("https://t.me/%s", strings.TrimPrefix(cfg.Channel.Name, "@"))
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		log.Fatal("Configuration not initialized, call Load() first")
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.reply_post_url", true)

	v.SetDefault("rum.delay_hours", -3)
	v.SetDefault("rum.to_telegram", true)
	v.SetDefault("rum.auto_register", true)
	v.SetDefault("rum.post_auth_type", "")
	v.SetDefault("rum.poll_interval_secs", 1)
	v.SetDefault("rum.page_size", 20)

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.charset", "utf8mb4")
}
