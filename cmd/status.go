/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/routr/metrics/influxdb"
	"github.com/rotblauer/routr/state"
	"github.com/spf13/cobra"
)

var optStatusLedger string
var optStatusJSON bool
var optStatusExport bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded routing outcomes",
	Long: `Prints the last recorded outcome of every deployment in a ledger,
as a table or, with --json, as NDJSON.

With --export, the outcomes are also written to the InfluxDB bucket
named by the --influx-* flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ledger, err := state.OpenLedger(optStatusLedger, true)
		if err != nil {
			slog.Error("Failed to open ledger", "error", err)
			os.Exit(1)
		}
		defer ledger.Close()

		outcomes, err := ledger.Outcomes()
		if err != nil {
			slog.Error("Failed to read outcomes", "error", err)
			os.Exit(1)
		}
		if err := printOutcomes(os.Stdout, outcomes, optStatusJSON); err != nil {
			slog.Error("Failed to print outcomes", "error", err)
			os.Exit(1)
		}
		if optStatusExport {
			if err := influxdb.ExportOutcomes(context.Background(), influxConfig(), outcomes); err != nil {
				slog.Error("Failed to export outcomes", "error", err)
				os.Exit(1)
			}
			slog.Info("Exported outcomes", "outcomes", len(outcomes))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	pFlags := statusCmd.PersistentFlags()
	pFlags.StringVar(&optStatusLedger, "ledger", state.DefaultLedgerPath(), "bbolt ledger to read")
	pFlags.BoolVar(&optStatusJSON, "json", false, "print NDJSON instead of a table")
	pFlags.BoolVar(&optStatusExport, "export", false, "export the outcomes to InfluxDB")
}

func printOutcomes(w io.Writer, outcomes []state.Outcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, o := range outcomes {
			if err := enc.Encode(o); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPLOYMENT\tSTATE\tREASON\tFIXES\tVIOLATIONS\tINSERTED\tDETOUR\tRUNS\tRECORDED")
	for _, o := range outcomes {
		reason := o.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
			o.DeploymentID, o.State, reason,
			humanize.Comma(int64(o.Fixes)), o.Violations, o.Inserted,
			humanize.SIWithDigits(o.DetourLength, 1, "m"), o.Runs,
			humanize.Time(o.RecordedAt))
	}
	return tw.Flush()
}
