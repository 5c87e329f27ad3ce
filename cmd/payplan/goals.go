package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/cli"
)

type goalFlags struct {
	name     string
	icon     string
	target   string
	balance  string
	perCheck string
}

var goalOpts goalFlags

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "List and manage savings goals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			fmt.Print(cli.RenderGoals(a.planner.Snapshot().Goals))
			return nil
		})
	},
}

var goalsAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a savings goal",
	Example: `  payplan goals add --name "Emergency Fund" --target 5000 --per-check 200`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			g := budget.Goal{IsActive: true}
			if err := goalOpts.apply(cmd, &g); err != nil {
				return err
			}
			saved, err := a.planner.SaveGoal(g)
			if err != nil {
				return err
			}
			fmt.Println(cli.OK("added " + saved.Name))
			return nil
		})
	},
}

var goalsEditCmd = &cobra.Command{
	Use:     "edit <goal>",
	Short:   "Change fields of a savings goal; unset flags keep their value",
	Example: `  payplan goals edit vacation --balance 1900`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			g, err := findGoal(a.planner.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := goalOpts.apply(cmd, &g); err != nil {
				return err
			}
			if _, err := a.planner.SaveGoal(g); err != nil {
				return err
			}
			fmt.Println(cli.OK("updated " + g.Name))
			return nil
		})
	},
}

var goalsDeleteCmd = &cobra.Command{
	Use:   "delete <goal>",
	Short: "Delete a savings goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			g, err := findGoal(a.planner.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := a.planner.DeleteGoal(g.ID); err != nil {
				return err
			}
			fmt.Println(cli.OK("deleted " + g.Name))
			return nil
		})
	},
}

func init() {
	goalOpts.register(goalsAddCmd)
	goalOpts.register(goalsEditCmd)
	goalsAddCmd.MarkFlagRequired("name")
	goalsAddCmd.MarkFlagRequired("target")
	goalsAddCmd.MarkFlagRequired("per-check")

	goalsCmd.AddCommand(goalsAddCmd, goalsEditCmd, goalsDeleteCmd)
	rootCmd.AddCommand(goalsCmd)
}

func (o *goalFlags) register(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&o.name, "name", "", "goal name")
	f.StringVar(&o.icon, "icon", "", "optional icon shown before the name")
	f.StringVar(&o.target, "target", "", "target amount")
	f.StringVar(&o.balance, "balance", "", "amount already saved")
	f.StringVar(&o.perCheck, "per-check", "", "amount set aside from every paycheck")
}

// apply copies the flags that were set on cmd into g.
func (o goalFlags) apply(cmd *cobra.Command, g *budget.Goal) error {
	f := cmd.Flags()
	if f.Changed("name") {
		g.Name = o.name
	}
	if f.Changed("icon") {
		g.Icon = o.icon
	}
	amounts := []struct {
		flag string
		raw  string
		dst  *decimal.Decimal
	}{
		{"target", o.target, &g.TargetAmount},
		{"balance", o.balance, &g.CurrentBalance},
		{"per-check", o.perCheck, &g.PerCheckAmount},
	}
	for _, a := range amounts {
		if !f.Changed(a.flag) {
			continue
		}
		v, err := requireAmount(a.raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", a.flag, err)
		}
		*a.dst = v
	}
	return nil
}
