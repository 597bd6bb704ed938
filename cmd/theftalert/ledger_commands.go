package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"theftalert/internal/store"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and maintain idempotency keys",
	}

	ledgerCmd.AddCommand(newLedgerStatsCommand(ctx))
	ledgerCmd.AddCommand(newLedgerPruneCommand(ctx))

	return ledgerCmd
}

func newLedgerStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show idempotency key counts by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				stats, err := st.LedgerStats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"claimed": stats.Claimed,
						"expired": stats.Expired,
						"results": stats.Results,
						"total":   stats.Total,
					})
				}
				if stats.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
					return nil
				}
				rows := [][]string{
					{"claimed", strconv.Itoa(stats.Claimed)},
					{"claimed (lease expired)", strconv.Itoa(stats.Expired)},
				}
				results := make([]string, 0, len(stats.Results))
				for result := range stats.Results {
					results = append(results, result)
				}
				sort.Strings(results)
				for _, result := range results {
					rows = append(rows, []string{"completed: " + result, strconv.Itoa(stats.Results[result])})
				}
				rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newLedgerPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove completed keys past retention and expired claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			retention := olderThan
			if retention <= 0 {
				retention = cfg.Retention()
			}
			cutoff := time.Now().Add(-retention)
			return ctx.withStore(func(st *store.Store) error {
				removed, err := st.PruneKeys(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d keys older than %s\n", removed, retention)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Retention window (defaults to ledger.retention_days)")
	return cmd
}
