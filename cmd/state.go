package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mspro-labs/stock-watch/internal/config"
	"mspro-labs/stock-watch/internal/models"
	"mspro-labs/stock-watch/internal/state"
)

var (
	historyLimit int
	showFormat   string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the saved baseline",
	Long: `Examples:
  stock-watch state show
  stock-watch state show --output yaml
  stock-watch state reset
  stock-watch state history --limit 20   (sqlite backend only)`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the snapshot saved by the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s state.Store) error {
			return writeSnapshot(cmd.OutOrStdout(), s.LoadPrevious(cmd.Context()), showFormat)
		})
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the saved snapshot so the next run reports everything available",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s state.Store) error {
			if err := s.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🗑️ Snapshot cleared.")
			return nil
		})
	},
}

var stateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently delivered notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s state.Store) error {
			nl, ok := s.(state.NotificationLog)
			if !ok {
				return errors.New("notification history needs STATE_BACKEND=sqlite")
			}
			records, err := nl.Recent(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications sent yet.")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (run %s)\n", r.NotifiedAt.Format("2006-01-02 15:04"), models.Item{Store: r.Store, Product: r.Product}, r.RunID)
			}
			return nil
		})
	},
}

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the supported country codes",
	Run: func(cmd *cobra.Command, args []string) {
		for _, code := range models.CountryCodes() {
			m := models.Countries[code]
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", code, m.Code, m.Locale)
		}
	},
}

func init() {
	stateShowCmd.Flags().StringVarP(&showFormat, "output", "o", "json", "output format: json or yaml")
	stateHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of records to show")
	stateCmd.AddCommand(stateShowCmd, stateResetCmd, stateHistoryCmd)
	rootCmd.AddCommand(stateCmd, countriesCmd)
}

// writeSnapshot prints snap as indented JSON (the on-disk form) or YAML.
func writeSnapshot(w io.Writer, snap models.Snapshot, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

func withStore(cmd *cobra.Command, fn func(state.Store) error) error {
	appCfg, err := config.GetAppConfig()
	if err != nil {
		return err
	}
	s, err := state.Open(cmd.Context(), appCfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
