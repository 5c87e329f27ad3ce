package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lachiem1/payplan/internal/syncer"
	"github.com/lachiem1/payplan/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive planner",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	events := make(chan syncer.Event, 16)
	a, err := openApp(cmd.Context(), appOptions{
		onEvent: func(evt syncer.Event) {
			select {
			case events <- evt:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.sync.Start(cmd.Context()); err != nil {
		a.log.Warn("sync loop did not start", zap.Error(err))
	}

	p := tea.NewProgram(tui.New(tui.Deps{
		Planner: a.planner,
		Sync:    a.sync,
		Events:  events,
	}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
