package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/config"
	"github.com/lachiem1/payplan/internal/storage"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Set one configuration key",
	Example: "  payplan config set remote.kind redis\n  payplan config set remote.redis_addr localhost:6379",
	Args:    cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("  %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Storage]")
	fmt.Printf("    Mode: %s\n", cfg.Storage.Mode)
	mode, _ := storage.ParseMode(cfg.Storage.Mode)
	if resolved, err := storage.ResolveConfig(storage.Config{Mode: mode, Path: cfg.Storage.Path}); err == nil {
		fmt.Printf("    Path: %s\n", resolved.Path)
	}
	fmt.Println()

	fmt.Println("  [Remote]")
	fmt.Printf("    Kind: %s\n", orNone(cfg.Remote.Kind))
	switch cfg.Remote.Kind {
	case config.RemoteHTTP:
		fmt.Printf("    URL:  %s\n", orNone(config.RemoteURL(cfg)))
	case config.RemoteRedis:
		fmt.Printf("    Addr: %s (db %d)\n", orNone(config.RedisAddr(cfg)), cfg.Remote.RedisDB)
		if cfg.Remote.KeyPrefix != "" {
			fmt.Printf("    Key prefix: %s\n", cfg.Remote.KeyPrefix)
		}
	}
	fmt.Println()

	fmt.Println("  [Sync]")
	fmt.Printf("    Debounce:     %s\n", cfg.Sync.Debounce())
	fmt.Printf("    Poll every:   %s\n", cfg.Sync.PollInterval())
	fmt.Printf("    Stale after:  %s\n", cfg.Sync.StaleTTL())
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:  %s\n", cfg.Log.Level)
	fmt.Printf("    Format: %s\n", cfg.Log.Format)
	fmt.Printf("    Output: %s\n", cfg.Log.Output)
	fmt.Println()

	fmt.Println("  Run `payplan setup` to reconfigure, or `payplan auth status` for credentials.")
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "not configured"
	}
	return s
}

