package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/config"
	"github.com/lachiem1/payplan/internal/storage"
)

var flagWipeYes bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete the local database; the remote copy is untouched",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		mode, err := storage.ParseMode(cfg.Storage.Mode)
		if err != nil {
			return err
		}
		scfg := storage.Config{Mode: mode, Path: cfg.Storage.Path}

		exists, err := storage.Exists(scfg)
		if err != nil {
			return err
		}
		if !exists {
			fmt.Println("  No local database to wipe.")
			return nil
		}

		if !flagWipeYes {
			confirmed := false
			err := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title("Delete the local payplan database?").
					Affirmative("Delete").
					Negative("Keep").
					Value(&confirmed),
			)).Run()
			if err != nil || !confirmed {
				fmt.Println("  Kept the local database.")
				return nil
			}
		}

		wiped, err := storage.Wipe(scfg)
		if err != nil {
			return err
		}
		fmt.Printf("  Removed %s\n", wiped.Path)
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVarP(&flagWipeYes, "yes", "y", false, "skip the confirmation")
	rootCmd.AddCommand(wipeCmd)
}
