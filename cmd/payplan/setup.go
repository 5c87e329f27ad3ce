package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupAnswers holds the form values as strings, the way huh binds them.
type setupAnswers struct {
	firstPayDate string
	netPay       string
	storageMode  string
	remoteKind   string
	remoteURL    string
	redisAddr    string
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg, _ := config.Load()

	settings := budget.DefaultSnapshot().Settings
	if err := withApp(cmd.Context(), func(a *app) error {
		settings = a.planner.Snapshot().Settings
		return nil
	}); err != nil {
		fmt.Println("  Could not read current settings, starting from defaults:", err)
	}

	ans := setupAnswers{
		firstPayDate: settings.FirstPayDate,
		netPay:       settings.DefaultNetPay.StringFixed(2),
		storageMode:  strings.ToLower(cfg.Storage.Mode),
		remoteKind:   cfg.Remote.Kind,
		remoteURL:    cfg.Remote.URL,
		redisAddr:    cfg.Remote.RedisAddr,
	}
	if ans.storageMode == "" {
		ans.storageMode = "plain"
	}
	if ans.remoteKind == "" {
		ans.remoteKind = config.RemoteNone
	}

	if err := setupForm(&ans).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing was saved.")
			return nil
		}
		return err
	}

	cfg.Storage.Mode = ans.storageMode
	cfg.Remote.Kind = ans.remoteKind
	cfg.Remote.URL = strings.TrimSpace(ans.remoteURL)
	cfg.Remote.RedisAddr = strings.TrimSpace(ans.redisAddr)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	netPay, _ := budget.ParseMoney(ans.netPay)
	settings.FirstPayDate = strings.TrimSpace(ans.firstPayDate)
	settings.DefaultNetPay = *netPay
	if err := withApp(cmd.Context(), func(a *app) error {
		return a.planner.UpdateSettings(settings)
	}); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	if cfg.Remote.Kind != config.RemoteNone {
		fmt.Println("  Run `payplan auth set` to store the remote token.")
	}
	fmt.Println("  Run `payplan setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func setupForm(ans *setupAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("First pay date").
				Description("Any payday, YYYY-MM-DD. Periods repeat every two weeks from it.").
				Value(&ans.firstPayDate).
				Validate(func(s string) error {
					_, err := budget.ParseDate(strings.TrimSpace(s))
					return err
				}),
			huh.NewInput().
				Title("Net pay per paycheck").
				Value(&ans.netPay).
				Validate(validateNetPay),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Local storage").
				Options(
					huh.NewOption("Plain SQLite", "plain"),
					huh.NewOption("Encrypted (SQLCipher, key in keyring)", "secure"),
				).
				Value(&ans.storageMode),
			huh.NewSelect[string]().
				Title("Share between devices").
				Options(
					huh.NewOption("No, this device only", config.RemoteNone),
					huh.NewOption("HTTP document API", config.RemoteHTTP),
					huh.NewOption("Redis", config.RemoteRedis),
				).
				Value(&ans.remoteKind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Document API URL").
				Placeholder("https://sync.example.com").
				Value(&ans.remoteURL).
				Validate(required("URL")),
		).WithHideFunc(func() bool { return ans.remoteKind != config.RemoteHTTP }),
		huh.NewGroup(
			huh.NewInput().
				Title("Redis address").
				Placeholder("localhost:6379").
				Value(&ans.redisAddr).
				Validate(required("address")),
		).WithHideFunc(func() bool { return ans.remoteKind != config.RemoteRedis }),
	)
}

func validateNetPay(s string) error {
	d, err := budget.ParseMoney(s)
	if err != nil {
		return err
	}
	if d == nil || !d.IsPositive() {
		return errors.New("net pay must be greater than 0")
	}
	return nil
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
