package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/tracing"
	"github.com/spf13/cobra"
)

var inspectSteps int

var inspectCmd = &cobra.Command{
	Use:   "inspect RECORDING.sqlite3",
	Short: "Print the execution info and the last steps of a recording.",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if _, err := os.Stat(args[0]); err != nil {
			log.Fatalf("Error: %v", err)
		}

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		err := inspectRecording(context.Background(), reader, os.Stdout,
			inspectSteps)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVarP(&inspectSteps, "steps", "n", 10,
		"number of accounting rows to print, counted from the end")
}

func inspectRecording(
	ctx context.Context,
	reader datarecording.DataReader,
	w io.Writer,
	steps int,
) error {
	reader.MapTable(datarecording.ExecTableName, datarecording.ExecInfo{})
	reader.MapTable(tracing.AccountingTableName, tracing.AccountingEntry{})

	infos, _, err := reader.Query(ctx, datarecording.ExecTableName,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, i := range infos {
		info := i.(*datarecording.ExecInfo)
		fmt.Fprintf(tw, "%s\t%s\n", info.Property, info.Value)
	}

	rows, total, err := reader.Query(ctx, tracing.AccountingTableName,
		datarecording.QueryParams{OrderBy: "Step DESC", Limit: steps})
	if err != nil {
		return err
	}

	fmt.Fprintf(tw, "\nSTEP\tCOMMAND\tCLOCK\tTHRASHING\tHITS\tFAULTS\n")

	for i := len(rows) - 1; i >= 0; i-- {
		e := rows[i].(*tracing.AccountingEntry)
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\n",
			e.Step, e.Command, e.Clock, e.ThrashingTime, e.Hits, e.Faults)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%d of %d steps shown\n", len(rows), total)

	return nil
}
