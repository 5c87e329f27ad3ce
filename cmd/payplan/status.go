package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/cli"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current pay period",
	RunE:  runStatus,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "List the pay periods around today and the bills due in each",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			w, err := a.planner.Window()
			if err != nil {
				return err
			}
			fmt.Print(cli.RenderCalendar(w, a.planner.Snapshot().ActiveBills()))
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show what each closed period saved",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			fmt.Print(cli.RenderHistory(a.planner.Snapshot().PeriodHistory))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, calendarCmd, historyCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		d, err := dashboard(a)
		if err != nil {
			return err
		}
		fmt.Print(cli.RenderDashboard(d, a.planner.Snapshot().PeriodHistory))
		return nil
	})
}

// dashboard honours --period.
func dashboard(a *app) (budget.Dashboard, error) {
	if flagPeriod == "" {
		return a.planner.Dashboard()
	}
	return a.planner.DashboardFor(flagPeriod)
}
