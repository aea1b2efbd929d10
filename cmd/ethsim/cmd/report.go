package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ethsim/datarecording"
)

// macEvent mirrors the rows the switch core writes into the mac_events
// table.
type macEvent struct {
	Time float64
	Kind string
	Addr string
	Port int
	Slot int
}

var reportFlags = struct {
	output string
	kind   string
	limit  int
}{}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List the MAC table events of a recorded run.",
	Run: func(_ *cobra.Command, _ []string) {
		reader := datarecording.NewReader(reportFlags.output + ".sqlite3")
		defer reader.Close()

		err := writeReport(os.Stdout, reader,
			reportFlags.kind, reportFlags.limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.output, "output",
		envStr("ETHSIM_OUTPUT", ""), "database file name, without extension")
	reportCmd.Flags().StringVar(&reportFlags.kind, "kind",
		"", "only show events of one kind "+
			"(learn|refresh|port_change|evict|scrub)")
	reportCmd.Flags().IntVar(&reportFlags.limit, "limit",
		0, "maximum number of events to show, 0 for all")

	_ = reportCmd.MarkFlagRequired("output")
}

func writeReport(
	w io.Writer,
	reader datarecording.DataReader,
	kind string,
	limit int,
) error {
	reader.MapTable("mac_events", macEvent{})

	params := datarecording.QueryParams{
		OrderBy: "Time",
		Limit:   limit,
	}
	if kind != "" {
		params.Where = "Kind = ?"
		params.Args = []any{kind}
	}

	events, totalCount, err := reader.Query(
		context.Background(), "mac_events", params)
	if err != nil {
		return err
	}

	for _, e := range events {
		event := e.(*macEvent)
		fmt.Fprintf(w, "%.9f  %-11s %s  port %d  slot %d\n",
			event.Time, event.Kind, event.Addr, event.Port, event.Slot)
	}

	fmt.Fprintf(w, "%d of %d events shown\n", len(events), totalCount)

	return nil
}
