package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"millisched/internal/host"
	"millisched/internal/job"
	"millisched/internal/sched"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	logger zerolog.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "millisched",
		Short: "Cooperative millisecond task scheduler",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(flagLogLevel, flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yml", "Config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(newRunCmd(), newPlanCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		csvPath string
		watch   bool
		runFor  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch the configured tasks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sched.Load(flagConfig)
			if err != nil {
				return err
			}

			h := host.New(cfg, logger)
			if csvPath != "" {
				if err := h.Sink().EnableCSV(csvPath); err != nil {
					return fmt.Errorf("enable csv: %w", err)
				}
			}
			if err := h.Load(cfg); err != nil {
				logger.Warn().Err(err).Msg("some tasks were not registered")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runFor > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runFor)
				defer cancel()
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return h.Run(ctx) })
			if watch {
				g.Go(func() error { return host.Watch(ctx, flagConfig, h) })
			}
			err = g.Wait()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write every registry event to this CSV file")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the config file when it changes")
	cmd.Flags().DurationVar(&runFor, "for", 0, "Stop after this long (0 = until interrupted)")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var at int64
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the configured tasks and their first deadlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sched.Load(flagConfig)
			if err != nil {
				return err
			}
			h := host.New(cfg, zerolog.Nop())
			loadErr := h.Load(cfg)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tick=%dms priority=%v capacity=%d jobs=%s\n",
				cfg.TickMS, cfg.Priority, cfg.Capacity, strings.Join(job.Kinds(), ","))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "POS\tTASK\tINTERVAL\tDUE")
			for _, u := range h.Plan(at) {
				fmt.Fprintf(tw, "%d\t%s\t%dms\t%d\n", u.Position, u.Name, u.Interval, u.Due)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return loadErr
		},
	}
	cmd.Flags().Int64Var(&at, "at", 0, "Tick to plan from")
	return cmd
}

// newLogger builds a console or JSON zerolog logger.
func newLogger(level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = consoleTimeFormat
	zerolog.ErrorFieldName = "err"

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if strings.EqualFold(format, "json") {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat})
	}
	return l.Level(lvl).With().Timestamp().Logger()
}
