package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptFunc sends one message to the bot and returns every reply it produced.
type PromptFunc func(ctx context.Context, text string) ([]string, error)

// SessionInfo describes the conversation shown in the header.
type SessionInfo struct {
	Address  string
	Version  string
	Commands []string
}

func RunInteractive(ctx context.Context, promptFn PromptFunc, info SessionInfo) error {
	model := newModel(ctx, promptFn, modeInteractive, "", info)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	if err != nil {
		return err
	}

	fmt.Println(renderGoodbyeBanner())
	return nil
}

func RunOneShot(ctx context.Context, promptFn PromptFunc, text string, info SessionInfo) error {
	model := newModel(ctx, promptFn, modeOneShot, text, info)
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("88")).
		Padding(1, 2)

	return style.Render("📟 IMOperator signing off")
}
