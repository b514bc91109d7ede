package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const envConfigPath = "IMOPERATOR_CONFIG"

// ErrConfigNotFound reports that no config file exists in the fallback locations.
var ErrConfigNotFound = errors.New("config file not found")

// Config is the root runtime configuration loaded from config.json or config.yaml.
type Config struct {
	Bot      BotConfig      `json:"bot" yaml:"bot"`
	Channels ChannelsConfig `json:"channels" yaml:"channels"`
	Gateway  GatewayConfig  `json:"gateway" yaml:"gateway"`
	Logging  LoggingConfig  `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Level     string `json:"level,omitempty" yaml:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty" yaml:"add_source,omitempty"`
}

// BotConfig holds processor settings shared by every channel.
type BotConfig struct {
	// Operators are privileged addresses. No command consults them yet.
	Operators  []string `json:"operators" yaml:"operators"`
	DebugLevel int      `json:"debug_level" yaml:"debug_level"`
	Workers    int      `json:"workers" yaml:"workers"`
	QueueSize  int      `json:"queue_size" yaml:"queue_size"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	XMPP     XMPPConfig     `json:"xmpp" yaml:"xmpp"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
	Twitch   TwitchConfig   `json:"twitch" yaml:"twitch"`
}

// SendLimit throttles outbound messages. A zero rate disables throttling.
type SendLimit struct {
	PerSecond float64 `json:"per_second" yaml:"per_second"`
	Burst     int     `json:"burst" yaml:"burst"`
}

// XMPPConfig configures the XMPP client connection.
type XMPPConfig struct {
	Enabled            bool      `json:"enabled" yaml:"enabled"`
	Host               string    `json:"host" yaml:"host"`
	User               string    `json:"user" yaml:"user"`
	Password           string    `json:"password" yaml:"password"`
	Resource           string    `json:"resource" yaml:"resource"`
	NoTLS              bool      `json:"no_tls" yaml:"no_tls"`
	StartTLS           bool      `json:"start_tls" yaml:"start_tls"`
	InsecureSkipVerify bool      `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	StatusMessage      string    `json:"status_message" yaml:"status_message"`
	Debug              bool      `json:"debug" yaml:"debug"`
	AllowFrom          []string  `json:"allow_from" yaml:"allow_from"`
	SendLimit          SendLimit `json:"send_limit" yaml:"send_limit"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	Token     string    `json:"token" yaml:"token"`
	AllowFrom []string  `json:"allow_from" yaml:"allow_from"`
	SendLimit SendLimit `json:"send_limit" yaml:"send_limit"`
}

// DiscordConfig configures the Discord bot session.
type DiscordConfig struct {
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	Token     string    `json:"token" yaml:"token"`
	AllowFrom []string  `json:"allow_from" yaml:"allow_from"`
	SendLimit SendLimit `json:"send_limit" yaml:"send_limit"`
}

// TwitchConfig configures the Twitch IRC client.
type TwitchConfig struct {
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	Username  string    `json:"username" yaml:"username"`
	OAuth     string    `json:"oauth" yaml:"oauth"`
	ClientID  string    `json:"client_id" yaml:"client_id"`
	Channels  []string  `json:"channels" yaml:"channels"`
	AllowFrom []string  `json:"allow_from" yaml:"allow_from"`
	SendLimit SendLimit `json:"send_limit" yaml:"send_limit"`
}

// GatewayConfig configures HTTP status server bind settings.
type GatewayConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// envOverrides lists the environment variables layered on top of the file.
type envOverrides struct {
	XMPPPassword      string   `env:"IMOPERATOR_XMPP_PASSWORD"`
	TelegramBotToken  string   `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAllowFrom string   `env:"TELEGRAM_ALLOW_FROM"`
	DiscordBotToken   string   `env:"DISCORD_BOT_TOKEN"`
	TwitchOAuth       string   `env:"TWITCH_OAUTH"`
	TwitchClientID    string   `env:"TWITCH_CLIENT_ID"`
	Operators         []string `env:"IMOPERATOR_OPERATORS" envSeparator:","`
	DebugLevel        *int     `env:"IMOPERATOR_DEBUG_LEVEL"`
}

// LoadConfig resolves the config file, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFile(configPath)
}

// LoadFile parses one JSON or YAML config file and applies environment overrides.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &cfg)
	default:
		err = json.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if value := strings.TrimSpace(overrides.XMPPPassword); value != "" {
		cfg.Channels.XMPP.Password = value
	}
	if value := strings.TrimSpace(overrides.TelegramBotToken); value != "" {
		cfg.Channels.Telegram.Token = value
	}
	if value := strings.TrimSpace(overrides.TelegramAllowFrom); value != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(value)
	}
	if value := strings.TrimSpace(overrides.DiscordBotToken); value != "" {
		cfg.Channels.Discord.Token = value
	}
	if value := strings.TrimSpace(overrides.TwitchOAuth); value != "" {
		cfg.Channels.Twitch.OAuth = value
	}
	if value := strings.TrimSpace(overrides.TwitchClientID); value != "" {
		cfg.Channels.Twitch.ClientID = value
	}
	if len(overrides.Operators) > 0 {
		cfg.Bot.Operators = overrides.Operators
	}
	if overrides.DebugLevel != nil {
		cfg.Bot.DebugLevel = *overrides.DebugLevel
	}

	return nil
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is IMOPERATOR_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config.yaml"),
		filepath.Join(cwd, "config.yml"),
		filepath.Join(cwd, "config", "config.json"),
		filepath.Join(cwd, "config", "config.yaml"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w (checked %s)", ErrConfigNotFound, strings.Join(candidates, ", "))
}
