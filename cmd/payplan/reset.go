package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/cli"
)

var flagResetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace all bills, goals, periods and settings with the starter data",
	Long: `Reset replaces the whole plan with the starter data set. The change is
saved like any other edit, so a configured remote is overwritten too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !flagResetYes {
			confirmed := false
			err := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title("Reset every bill, goal and period to the starter data?").
					Affirmative("Reset").
					Negative("Cancel").
					Value(&confirmed),
			)).Run()
			if err != nil || !confirmed {
				fmt.Println("  Nothing was reset.")
				return nil
			}
		}

		return withApp(cmd.Context(), func(a *app) error {
			if err := a.planner.Reset(); err != nil {
				return err
			}
			fmt.Println(cli.OK("reset to the starter data"))
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&flagResetYes, "yes", "y", false, "skip the confirmation")
	rootCmd.AddCommand(resetCmd)
}
