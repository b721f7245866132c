package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sensord-project/sensord/config"
	"github.com/sensord-project/sensord/internal/engine"
	"github.com/sensord-project/sensord/internal/logging"
	"github.com/sensord-project/sensord/internal/xcmd"
)

var runCmdArgs struct {
	ConfigPath string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sensord engine",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runEngine(); err != nil {
			if errors.Is(err, xcmd.Interrupted{}) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().StringVarP(&runCmdArgs.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	runCmd.MarkFlagRequired("config")
}

func runEngine() error {
	cfg, err := config.Load(runCmdArgs.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, atomicLevel, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	rotator := logging.NewLevelRotator(atomicLevel, logging.Debug, log)
	rotator.Run()
	defer rotator.Stop()

	log.Infow("starting sensord engine", "adaptors", len(cfg.Adaptors), "channels", len(cfg.Channels))

	eng, err := engine.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	log.Infow("engine ready", "channels", len(cfg.Channels))

	// The RPC transport that routes session start/stop and property
	// requests into eng is out of scope here (spec.md §1); this command
	// keeps the engine constructed and its adaptors idle until a
	// transport layer is wired in front of it.
	_ = eng

	wg, ctx := errgroup.WithContext(context.Background())

	wg.Go(func() error {
		err := xcmd.WaitInterrupted(ctx)
		log.Infow("caught signal, shutting down", "error", err)
		return err
	})

	return wg.Wait()
}
