package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/internal/config"
	storeInfra "github.com/fastygo/taskmarket/internal/infrastructure/store"
	"github.com/fastygo/taskmarket/pkg/logger"
	"github.com/fastygo/taskmarket/repository"
)

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "campusctl",
	Short:         "Maintenance commands for the task marketplace",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
			cfg.Store.Driver = driver
		}
		log, err = logger.New(logger.Config{
			Level:    cfg.Logger.Level,
			Encoding: "console",
			Service:  "campusctl",
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("driver", "", "Store driver override (postgres or sqlite)")
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, fn func(repository.Store) error) error {
	store, err := storeInfra.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
