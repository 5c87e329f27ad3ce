package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/cli"
)

// billOp builds a command acting on one bill in the --period period.
func billOp(use, short string, args cobra.PositionalArgs, fn func(a *app, key string, b budget.Bill, rest []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				b, err := findBill(a.planner.Snapshot(), argv[0])
				if err != nil {
					return err
				}
				msg, err := fn(a, flagPeriod, b, argv[1:])
				if err != nil {
					return err
				}
				fmt.Println(cli.OK(msg))
				return nil
			})
		},
	}
}

var payCmd = billOp("pay <bill>", "Toggle whether a bill is paid", cobra.ExactArgs(1),
	func(a *app, key string, b budget.Bill, _ []string) (string, error) {
		if err := a.planner.TogglePaid(key, b.ID); err != nil {
			return "", err
		}
		return "toggled " + b.Name, nil
	})

var actualCmd = billOp("actual <bill> [amount]", "Record what a bill actually cost; omit the amount to clear it", cobra.RangeArgs(1, 2),
	func(a *app, key string, b budget.Bill, rest []string) (string, error) {
		var actual *decimal.Decimal
		if len(rest) == 1 {
			v, err := budget.ParseMoney(rest[0])
			if err != nil {
				return "", err
			}
			actual = v
		}
		if err := a.planner.UpdateActual(key, b.ID, actual); err != nil {
			return "", err
		}
		if actual == nil {
			return "cleared actual for " + b.Name, nil
		}
		return fmt.Sprintf("%s actual set to %s", b.Name, budget.FormatMoney(*actual)), nil
	})

var deferCmd = billOp("defer <bill>", "Push a bill into the next period", cobra.ExactArgs(1),
	func(a *app, key string, b budget.Bill, _ []string) (string, error) {
		if err := a.planner.DeferBill(key, b.ID); err != nil {
			return "", err
		}
		return "deferred " + b.Name + " to next period", nil
	})

var undoDeferCmd = billOp("undo-defer <bill>", "Bring a deferred bill back", cobra.ExactArgs(1),
	func(a *app, key string, b budget.Bill, _ []string) (string, error) {
		if err := a.planner.UndoDefer(key, b.ID); err != nil {
			return "", err
		}
		return b.Name + " is back in this period", nil
	})

var splitCmd = billOp("split <bill> <amount>", "Pay part of a bill now and carry the rest", cobra.ExactArgs(2),
	func(a *app, key string, b budget.Bill, rest []string) (string, error) {
		amount, err := requireAmount(rest[0])
		if err != nil {
			return "", err
		}
		if err := a.planner.SplitBill(key, b.ID, amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("split %s: %s now", b.Name, budget.FormatMoney(amount)), nil
	})

var undoSplitCmd = billOp("undo-split <bill>", "Undo a split", cobra.ExactArgs(1),
	func(a *app, key string, b budget.Bill, _ []string) (string, error) {
		if err := a.planner.UndoSplit(key, b.ID); err != nil {
			return "", err
		}
		return "undid split on " + b.Name, nil
	})

var payEarlyCmd = billOp("pay-early <bill> [amount]", "Pay a next-period bill from this paycheck; omit the amount to pay it all", cobra.RangeArgs(1, 2),
	func(a *app, key string, b budget.Bill, rest []string) (string, error) {
		var prepay *decimal.Decimal
		if len(rest) == 1 {
			v, err := budget.ParseMoney(rest[0])
			if err != nil {
				return "", err
			}
			prepay = v
		}
		if err := a.planner.PayEarly(key, b.ID, prepay); err != nil {
			return "", err
		}
		d, err := dashboard(a)
		if err != nil {
			return "", err
		}
		return payEarlyMessage(d, b, prepay), nil
	})

// payEarlyMessage reports a pay-early and what the next period still owes.
func payEarlyMessage(d budget.Dashboard, b budget.Bill, prepay *decimal.Decimal) string {
	if prepay == nil {
		return "paying " + b.Name + " early"
	}
	msg := fmt.Sprintf("prepaying %s of %s", budget.FormatMoney(*prepay), b.Name)
	if line, ok := d.NextLine(b.ID); ok && line.Amount.IsPositive() {
		msg += fmt.Sprintf("; %s still due next period", budget.FormatMoney(line.Amount))
	}
	return msg
}

var undoPayEarlyCmd = billOp("undo-pay-early <bill>", "Leave a bill for the period it is due in", cobra.ExactArgs(1),
	func(a *app, key string, b budget.Bill, _ []string) (string, error) {
		if err := a.planner.UndoPayEarly(key, b.ID); err != nil {
			return "", err
		}
		return b.Name + " left for its own period", nil
	})

var adjustCmd = &cobra.Command{
	Use:   "adjust <label> <amount>",
	Short: "Add a one-off income (+) or expense (-) to the period",
	Example: `  payplan adjust "Birthday gift" 50
  payplan adjust -- "Car repair" -320`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			amount, err := requireAmount(args[len(args)-1])
			if err != nil {
				return err
			}
			label := strings.Join(args[:len(args)-1], " ")
			adj, err := a.planner.AddAdjustment(flagPeriod, label, amount)
			if err != nil {
				return err
			}
			fmt.Println(cli.OK(fmt.Sprintf("added %s %s (%s)", adj.Label, budget.FormatMoney(adj.Amount), adj.ID)))
			return nil
		})
	},
}

var unadjustCmd = &cobra.Command{
	Use:   "unadjust <id>",
	Short: "Remove an adjustment by id or id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			key, err := periodKey(a)
			if err != nil {
				return err
			}
			adj, err := findAdjustment(a.planner.Snapshot().Period(key), args[0])
			if err != nil {
				return err
			}
			if err := a.planner.RemoveAdjustment(key, adj.ID); err != nil {
				return err
			}
			fmt.Println(cli.OK("removed " + adj.Label))
			return nil
		})
	},
}

var netPayCmd = &cobra.Command{
	Use:   "net-pay [amount]",
	Short: "Override this period's net pay; omit the amount to use the default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			var pay *decimal.Decimal
			if len(args) == 1 {
				v, err := budget.ParseMoney(args[0])
				if err != nil {
					return err
				}
				pay = v
			}
			if err := a.planner.SetNetPayOverride(flagPeriod, pay); err != nil {
				return err
			}
			if pay == nil {
				fmt.Println(cli.OK("net pay override cleared"))
				return nil
			}
			fmt.Println(cli.OK("net pay set to " + budget.FormatMoney(*pay)))
			return nil
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the period and record what it saved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			entry, err := a.planner.ClosePeriod(flagPeriod)
			if err != nil {
				return err
			}
			fmt.Println(cli.OK(fmt.Sprintf("closed %s, saved %s", entry.Label, budget.FormatMoney(entry.Saved))))
			return nil
		})
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen",
	Short: "Reopen a closed period and drop its history entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.planner.ReopenPeriod(flagPeriod); err != nil {
				return err
			}
			fmt.Println(cli.OK("period reopened"))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(
		payCmd, actualCmd, deferCmd, undoDeferCmd, splitCmd, undoSplitCmd,
		payEarlyCmd, undoPayEarlyCmd,
		adjustCmd, unadjustCmd, netPayCmd, closeCmd, reopenCmd,
	)
}

// periodKey resolves --period, defaulting to the current period.
func periodKey(a *app) (string, error) {
	if flagPeriod == "" {
		return a.planner.CurrentKey()
	}
	p, err := budget.PeriodAt(a.planner.Snapshot().Settings, flagPeriod)
	if err != nil {
		return "", err
	}
	return p.Key(), nil
}
