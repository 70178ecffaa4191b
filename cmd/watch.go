package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mspro-labs/stock-watch/internal/logx"
)

var schedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep running and check on a cron schedule",
	Long: `Runs "check" on the given cron schedule until interrupted. A tick is
skipped while the previous check is still running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().StringVar(&schedule, "schedule", "*/5 * * * *", "cron expression (minute hour dom month dow, or @every 2m)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Setup
	appCfg, watch, err := loadConfig()
	if err != nil {
		return err
	}
	runner, store, err := buildRunner(ctx, appCfg, watch)
	if err != nil {
		return err
	}
	defer store.Close()

	// 2. Run until interrupted
	logx.Info().Str("schedule", schedule).Str("country", watch.Country).Msg("watching")
	err = scheduleChecks(ctx, schedule, cronLogger{l: logx.With("scheduler")}, func(ctx context.Context) {
		res, err := runner.Run(ctx)
		if err != nil {
			logx.Error().Err(err).Str("run_id", res.RunID).Msg("scheduled check failed")
		}
	})
	if err != nil {
		return err
	}
	logx.Info().Msg("stopped")
	return nil
}

// scheduleChecks calls check on every tick of spec until ctx is done, then
// waits for a running check to return.
func scheduleChecks(ctx context.Context, spec string, logger cron.Logger, check func(context.Context)) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { check(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger routes the scheduler's key/value logging into zerolog. cron
// reports every wake-up through Info, so that goes out at debug level.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
