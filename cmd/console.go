package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"imoperator/pkg/logger"
	"imoperator/pkg/ui/chat"
	"imoperator/pkg/version"
)

var (
	consoleLogFile    string
	consoleDebugLevel int
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the bot in the terminal",
	Long:  "Starts an interactive terminal session that talks to the command router exactly like a one-to-one chat contact.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigOrDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// The TUI owns the terminal; logs go to a file or nowhere.
		var sink io.Writer = io.Discard
		if path := strings.TrimSpace(consoleLogFile); path != "" {
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer file.Close()
			sink = file
		}

		log, err := logger.NewWithWriter(cfg.Logging, sink)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		session, table, err := newLocalSession(cfg, consoleDebugLevel, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return chat.RunInteractive(ctx, session.Say, chat.SessionInfo{
			Address:  session.Address(),
			Version:  version.Version,
			Commands: table.SortedKeywords(),
		})
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().StringVar(&consoleLogFile, "log-file", "", "append logs to this file")
	consoleCmd.Flags().IntVar(&consoleDebugLevel, "debug-level", -1, "packet diagnostics level (default from config)")
}
