package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mspro-labs/stock-watch/internal/logx"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one availability check",
	Long:  `Fetches current stock, diffs it against the previous run, sends a notification for newly available items and saves the new baseline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command) error {
	ctx := cmd.Context()

	// 1. Load Config
	appCfg, watch, err := loadConfig()
	if err != nil {
		return err
	}

	// 2. Wire components
	runner, store, err := buildRunner(ctx, appCfg, watch)
	if err != nil {
		return err
	}
	defer store.Close()

	// 3. Run
	res, err := runner.Run(ctx)
	if err != nil {
		logx.Error().Err(err).Str("run_id", res.RunID).Msg("check failed")
		return err
	}

	for _, item := range res.Delta.Items() {
		fmt.Fprintf(cmd.OutOrStdout(), "* %s\n", item)
	}
	return nil
}
