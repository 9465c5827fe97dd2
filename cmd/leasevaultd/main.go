package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/leasevault/internal/config"
	"github.com/systmms/leasevault/internal/crypto"
	"github.com/systmms/leasevault/internal/leases"
	"github.com/systmms/leasevault/internal/logging"
	"github.com/systmms/leasevault/internal/pruner"
	"github.com/systmms/leasevault/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "leasevaultd",
		Short: "Dynamic secret engine daemon - runs the pruning reconciler",
		Long: `leasevaultd runs the asynchronous side of the dynamic secret engine:
the reconciler that revokes outstanding leases of deleting configs and
hard-deletes them once no leases remain.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configFile != "" {
				loaded, err := config.Load(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			cfg.Debug = cfg.Debug || debug
			cfg.NoColor = cfg.NoColor || noColor

			logger := logging.New(cfg.Debug, cfg.NoColor)

			// Fail fast on unusable key material even though the reconciler
			// itself never decrypts anything.
			key, err := cfg.MasterKey()
			if err != nil {
				return err
			}
			if _, err := crypto.NewAESGCMCodec(key); err != nil {
				return err
			}
			memguard.WipeBytes(key)

			st := store.NewMemoryStore()
			index := leases.NewMemoryIndex()

			reconciler := pruner.NewReconciler(st, index, index, logger,
				pruner.WithSweepSchedule(cfg.SweepSchedule))
			if err := reconciler.Start(); err != nil {
				return err
			}
			defer reconciler.Stop()

			logger.Info("leasevaultd started (sweep %s)", cfg.SweepSchedule)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logger.Info("shutting down")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return rootCmd.Execute()
}
