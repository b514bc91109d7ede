package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"imoperator/pkg/channel/console"
	"imoperator/pkg/command"
	"imoperator/pkg/config"
	"imoperator/pkg/processor"
	"imoperator/pkg/version"
)

// loadConfigOrDefault loads the config file, falling back to defaults when none exists.
func loadConfigOrDefault() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if errors.Is(err, config.ErrConfigNotFound) {
		return &config.Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLocalSession wires a console session to a processor over the default command table.
func newLocalSession(cfg *config.Config, debugLevel int, log *slog.Logger) (*console.Session, *command.Table, error) {
	table, err := command.NewTable(command.Defaults(version.Long(), time.Now)...)
	if err != nil {
		return nil, nil, fmt.Errorf("build command table: %w", err)
	}

	if debugLevel < 0 {
		debugLevel = cfg.Bot.DebugLevel
	}

	session := console.NewSession("", "")
	chat, err := processor.New(table, session, processor.Options{
		Service:    session.Name(),
		Operators:  cfg.Bot.Operators,
		DebugLevel: debugLevel,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, err
	}

	session.Attach(chat.Process)
	return session, table, nil
}
