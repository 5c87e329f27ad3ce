package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/planner"
)

var (
	flagLogLevel string
	flagOffline  bool
	flagPeriod   string
)

var rootCmd = &cobra.Command{
	Use:   "payplan",
	Short: "Plan each paycheck against the bills and goals it has to cover",
	Long: `payplan splits the year into two-week pay periods and tracks which
bills each paycheck covers, what is left over and what was saved.

Run without a subcommand to print the current period.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "skip the remote pull before running")
	rootCmd.PersistentFlags().StringVar(&flagPeriod, "period", "", "period start date YYYY-MM-DD (default: the current period)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, planner.ErrPeriodClosed) {
			fmt.Fprintln(os.Stderr, "hint: run `payplan reopen` to edit a closed period")
		}
		os.Exit(1)
	}
}
