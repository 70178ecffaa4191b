package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mspro-labs/stock-watch/internal/config"
	"mspro-labs/stock-watch/internal/fetcher"
	"mspro-labs/stock-watch/internal/logx"
	"mspro-labs/stock-watch/internal/notifier"
	"mspro-labs/stock-watch/internal/pipeline"
	"mspro-labs/stock-watch/internal/state"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "stock-watch",
	Short: "Get told when an iPhone becomes available for in-store pickup",
	Long: `Polls the reservation availability feed for the stores and models listed
in config.yaml, compares it with the previous run and mails the recipients
when something that was unavailable can now be picked up.

Run "stock-watch check" from cron, or "stock-watch watch" to keep it running.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appCfg, err := config.GetAppConfig()
		if err != nil {
			return err
		}
		logx.Init(logx.Options{Environment: appCfg.LogEnv, Debug: debug})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// Execute runs the root command and exits non-zero on any failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and the watch definition.
func loadConfig() (config.AppConfig, config.Watch, error) {
	appCfg, err := config.GetAppConfig()
	if err != nil {
		return config.AppConfig{}, config.Watch{}, err
	}
	watch, err := config.LoadWatch(appCfg.ConfigPath, appCfg)
	if err != nil {
		return config.AppConfig{}, config.Watch{}, err
	}
	return appCfg, watch, nil
}

// buildRunner wires the pipeline. The caller closes the returned store.
func buildRunner(ctx context.Context, appCfg config.AppConfig, watch config.Watch) (*pipeline.Runner, state.Store, error) {
	store, err := state.Open(ctx, appCfg)
	if err != nil {
		return nil, nil, err
	}
	n, err := notifier.FromConfig(watch)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	f := fetcher.New(watch, fetcher.NewGetter(watch))
	return pipeline.New(f, store, n), store, nil
}
