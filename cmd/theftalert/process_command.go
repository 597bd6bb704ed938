package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"theftalert/internal/domain"
	"theftalert/internal/ingest"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var usersFixture string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <report.json|->",
		Short: "Process one report-created event in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := readReport(cmd, args[0])
			if err != nil {
				return err
			}

			opts := appOptions{DryRun: dryRun, UsersFixture: usersFixture}
			return ctx.withApp(cmd.Context(), opts, func(a *app) error {
				summary, err := a.engine.OnReportCreated(cmd.Context(), report)
				if jsonOutput {
					if writeErr := writeJSON(cmd, newSummaryJSON(summary)); writeErr != nil {
						return writeErr
					}
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderSummary(summary, dryRun))
				if len(summary.Outcomes) > 0 {
					fmt.Fprintln(out, renderOutcomes(summary.Outcomes))
				}
				if len(summary.RegionFaults) > 0 {
					fmt.Fprintln(out, renderFaults(summary.RegionFaults))
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log messages instead of sending them and leave the ledger untouched")
	cmd.Flags().StringVar(&usersFixture, "users", "", "Read users from a YAML fixture instead of the configured directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func readReport(cmd *cobra.Command, path string) (domain.VehicleReport, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return domain.VehicleReport{}, fmt.Errorf("open report: %w", err)
		}
		defer f.Close()
		r = f
	}
	return ingest.DecodeReport(r)
}

type outcomeJSON struct {
	UserID  string `json:"userId"`
	Channel string `json:"channel"`
	Kind    string `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

type summaryJSON struct {
	domain.Summary
	Outcomes []outcomeJSON `json:"outcomes"`
}

func newSummaryJSON(summary domain.Summary) summaryJSON {
	outcomes := make([]outcomeJSON, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		outcomes = append(outcomes, outcomeJSON{
			UserID:  o.Key.UserID,
			Channel: string(o.Key.Channel),
			Kind:    string(o.Kind),
			Reason:  o.Reason,
			Error:   o.Error(),
		})
	}
	return summaryJSON{Summary: summary, Outcomes: outcomes}
}

func renderSummary(summary domain.Summary, dryRun bool) string {
	rows := [][]string{
		{"Report", summary.ReportID},
		{"State", string(summary.State)},
	}
	if summary.NoOpReason != "" {
		rows = append(rows, []string{"No-op reason", summary.NoOpReason})
	}
	rows = append(rows,
		[]string{"Users scanned", strconv.Itoa(summary.UsersScanned)},
		[]string{"Users matched", strconv.Itoa(summary.UsersMatched)},
	)
	if len(summary.MatchedBy) > 0 {
		reasons := make([]string, 0, len(summary.MatchedBy))
		for reason, n := range summary.MatchedBy {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		rows = append(rows, []string{"Matched by", strings.Join(reasons, ", ")})
	}
	rows = append(rows,
		[]string{"Sent", strconv.Itoa(summary.IntentsSent)},
		[]string{"Skipped", strconv.Itoa(summary.IntentsSkipped)},
		[]string{"Failed", strconv.Itoa(summary.IntentsFailed)},
		[]string{"Region faults", strconv.Itoa(len(summary.RegionFaults))},
		[]string{"Cancelled", yesNo(summary.Cancelled)},
		[]string{"Dry run", yesNo(dryRun)},
		[]string{"Duration", summary.Duration.Round(time.Millisecond).String()},
	)
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderOutcomes(outcomes []domain.DispatchOutcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.Key.UserID, string(o.Key.Channel), string(o.Kind), o.Reason, o.Error()})
	}
	return renderTable([]string{"User", "Channel", "Outcome", "Reason", "Error"}, rows, nil)
}

func renderFaults(faults []domain.RegionFault) string {
	rows := make([][]string, 0, len(faults))
	for _, f := range faults {
		rows = append(rows, []string{f.UserID, f.Region, f.Error})
	}
	return renderTable([]string{"User", "Region", "Fault"}, rows, nil)
}
