package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/cli"
)

type billFlags struct {
	name          string
	amount        string
	due           int
	billType      string
	frequency     string
	quarterMonths string
	annualMonth   int
}

var billOpts billFlags

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "List and manage recurring bills",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			fmt.Print(cli.RenderBills(a.planner.Snapshot().Bills))
			return nil
		})
	},
}

var billsAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a bill",
	Example: `  payplan bills add --name Rent --amount 1450 --due 1`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			b := budget.Bill{
				BillType:  budget.BillFixed,
				Frequency: budget.FrequencyMonthly,
				IsActive:  true,
			}
			if err := billOpts.apply(cmd, &b); err != nil {
				return err
			}
			saved, err := a.planner.SaveBill(b)
			if err != nil {
				return err
			}
			fmt.Println(cli.OK("added " + saved.Name + " (" + saved.ID + ")"))
			return nil
		})
	},
}

var billsEditCmd = &cobra.Command{
	Use:   "edit <bill>",
	Short: "Change fields of a bill; unset flags keep their value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			b, err := findBill(a.planner.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := billOpts.apply(cmd, &b); err != nil {
				return err
			}
			if _, err := a.planner.SaveBill(b); err != nil {
				return err
			}
			fmt.Println(cli.OK("updated " + b.Name))
			return nil
		})
	},
}

var billsPauseCmd = &cobra.Command{
	Use:   "pause <bill>",
	Short: "Stop a bill from appearing in future periods",
	Args:  cobra.ExactArgs(1),
	RunE:  setBillActive(false),
}

var billsResumeCmd = &cobra.Command{
	Use:   "resume <bill>",
	Short: "Resume a paused bill",
	Args:  cobra.ExactArgs(1),
	RunE:  setBillActive(true),
}

var billsDeleteCmd = &cobra.Command{
	Use:   "delete <bill>",
	Short: "Delete a bill; past allocations stay in their periods",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			b, err := findBill(a.planner.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := a.planner.DeleteBill(b.ID); err != nil {
				return err
			}
			fmt.Println(cli.OK("deleted " + b.Name))
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{billsAddCmd, billsEditCmd} {
		f := c.Flags()
		f.StringVar(&billOpts.name, "name", "", "bill name")
		f.StringVar(&billOpts.amount, "amount", "", "planned amount")
		f.IntVar(&billOpts.due, "due", 1, "day of month the bill is due (1-31)")
		f.StringVar(&billOpts.billType, "type", string(budget.BillFixed), "fixed or variable")
		f.StringVar(&billOpts.frequency, "frequency", string(budget.FrequencyMonthly), "monthly, quarterly or annual")
		f.StringVar(&billOpts.quarterMonths, "quarter-months", "", "months a quarterly bill is due, e.g. 1,4,7,10")
		f.IntVar(&billOpts.annualMonth, "annual-month", 0, "month an annual bill is due (1-12)")
	}
	billsAddCmd.MarkFlagRequired("name")
	billsAddCmd.MarkFlagRequired("amount")

	billsCmd.AddCommand(billsAddCmd, billsEditCmd, billsPauseCmd, billsResumeCmd, billsDeleteCmd)
	rootCmd.AddCommand(billsCmd)
}

// apply copies the flags that were set on cmd into b. Add sets defaults
// before calling, so only explicit flags matter here.
func (o billFlags) apply(cmd *cobra.Command, b *budget.Bill) error {
	f := cmd.Flags()
	if f.Changed("name") {
		b.Name = o.name
	}
	if f.Changed("amount") {
		amount, err := requireAmount(o.amount)
		if err != nil {
			return err
		}
		b.Amount = amount
	}
	if f.Changed("due") {
		b.DueDay = o.due
	} else if b.DueDay == 0 {
		b.DueDay = o.due
	}
	if f.Changed("type") {
		b.BillType = budget.BillType(strings.ToLower(o.billType))
	}
	if f.Changed("frequency") {
		b.Frequency = budget.Frequency(strings.ToLower(o.frequency))
	}
	if f.Changed("quarter-months") {
		months, err := budget.ParseQuarterMonths(o.quarterMonths)
		if err != nil {
			return err
		}
		b.QuarterMonths = months
	}
	if f.Changed("annual-month") {
		b.AnnualMonth = o.annualMonth
	}
	return nil
}

func setBillActive(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			b, err := findBill(a.planner.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := a.planner.SetBillActive(b.ID, active); err != nil {
				return err
			}
			verb := "paused"
			if active {
				verb = "resumed"
			}
			fmt.Println(cli.OK(verb + " " + b.Name))
			return nil
		})
	}
}
