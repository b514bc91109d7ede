package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"imoperator/pkg/channel/console"
	"imoperator/pkg/logger"
	"imoperator/pkg/ui/chat"
	"imoperator/pkg/version"
)

var (
	messageText   string
	askTUI        bool
	askDebugLevel int
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [text]",
	Short: "Send one message, or read messages from stdin",
	Long:  "Sends one chat message to the command router and prints the replies. Without text it reads one message per line from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := resolveMessage(args)

		cfg, err := loadConfigOrDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		session, table, err := newLocalSession(cfg, askDebugLevel, log)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if text == "" {
			return runLines(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
		}

		if askTUI {
			return chat.RunOneShot(ctx, session.Say, text, chat.SessionInfo{
				Address:  session.Address(),
				Version:  version.Version,
				Commands: table.SortedKeywords(),
			})
		}

		replies, err := session.Say(ctx, text)
		if err != nil {
			return err
		}
		printReplies(cmd.OutOrStdout(), replies)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&messageText, "message", "m", "", "message text to send")
	askCmd.Flags().BoolVar(&askTUI, "tui", false, "render the exchange with the terminal UI")
	askCmd.Flags().IntVar(&askDebugLevel, "debug-level", -1, "packet diagnostics level (default from config)")
}

func resolveMessage(args []string) string {
	if strings.TrimSpace(messageText) != "" {
		return messageText
	}

	value := strings.Join(args, " ")
	if strings.TrimSpace(value) == "" {
		return ""
	}

	return value
}

// runLines sends each non-empty input line until EOF or an exit command.
func runLines(ctx context.Context, session *console.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isExitCommand(line) {
			return nil
		}

		replies, err := session.Say(ctx, line)
		if err != nil {
			return err
		}
		printReplies(out, replies)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	return nil
}

func printReplies(out io.Writer, replies []string) {
	for _, reply := range replies {
		for _, line := range replyLines(reply) {
			fmt.Fprintf(out, "📟 %s\n", line)
		}
	}
}

func replyLines(reply string) []string {
	if reply == "" {
		return []string{""}
	}

	return strings.Split(strings.TrimRight(reply, "\n"), "\n")
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}

