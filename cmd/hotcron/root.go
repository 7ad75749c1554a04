package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"hotcron/internal/app"
	"hotcron/internal/config"
	logx "hotcron/pkg/logx"
)

type rootFlags struct {
	crontab  string
	config   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "hotcron",
		Short: "Run a crontab that reloads itself when edited",
		Long: `hotcron runs the commands of a crontab file on their schedules.

Every edit of the file replaces the active schedule and kills every command
that is still running.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), cmd.ErrOrStderr(), f)
		},
	}

	root.PersistentFlags().StringVar(&f.crontab, "crontab", "", "crontab file (default $HOME/"+config.DefaultCrontab+")")
	root.PersistentFlags().StringVar(&f.config, "config", "", "YAML settings file (optional)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newRunCmd(f), newCheckCmd(f))
	return root
}

func newRunCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the crontab until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), cmd.ErrOrStderr(), f)
		},
	}
}

func newCheckCmd(f *rootFlags) *cobra.Command {
	var next int
	cmd := &cobra.Command{
		Use:   "check [crontab]",
		Short: "Validate a crontab and print upcoming fire times",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewManager(f.config).Load()
			if err != nil {
				return err
			}
			path := cfg.Crontab
			if f.crontab != "" {
				path = f.crontab
			}
			if len(args) == 1 {
				path = args[0]
			}
			return app.Check(cmd.OutOrStdout(), path, app.SchedulerConfig(cfg), next, time.Now())
		},
	}
	cmd.Flags().IntVarP(&next, "next", "n", 3, "number of upcoming fire times per entry")
	return cmd
}

func runDaemon(parent context.Context, stderr io.Writer, f *rootFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The configured logger only exists once settings are loaded.
	boot := logx.NewConsole(stderr, f.logLevel)
	boot.Debug("loading settings", logx.String("config", f.config), logx.String("crontab", f.crontab))

	a, err := app.New(app.Options{
		ConfigPath: f.config,
		Crontab:    f.crontab,
		LogLevel:   f.logLevel,
	})
	if err != nil {
		boot.Error("settings rejected", logx.String("config", f.config), logx.Err(err))
		return err
	}
	if err := a.Start(ctx); err != nil {
		boot.Error("startup failed", logx.Err(err))
		return fmt.Errorf("start: %w", err)
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
		if errors.Is(parent.Err(), context.Canceled) {
			reason = app.StopAppStop
		}
	case <-a.Done():
		reason = app.StopFatalError
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, reason); err != nil {
		return err
	}
	return a.Err()
}
