package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pgInfra "github.com/fastygo/taskmarket/internal/infrastructure/postgres"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntP("steps", "n", 1, "Number of migrations to revert")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or revert postgres schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Driver != "postgres" {
			return fmt.Errorf("migrations only apply to the postgres store, driver is %q", cfg.Store.Driver)
		}
		cfg.Migrations.Enabled = true
		return pgInfra.RunMigrations(cfg, log)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Driver != "postgres" {
			return fmt.Errorf("migrations only apply to the postgres store, driver is %q", cfg.Store.Driver)
		}
		steps, _ := cmd.Flags().GetInt("steps")
		return pgInfra.RollbackMigrations(cfg, steps, log)
	},
}
