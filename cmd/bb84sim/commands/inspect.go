package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/internal/printer"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var records bool
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Re-derive the result of a run from its transcript",
		Long: `Read a transcript written by "bb84sim run --transcript", recompute the
sifted keys, QBER and verdict from the recorded trials, and print them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readTranscript(args[0])
			if err != nil {
				suggestions := []string{"Check the path and try again."}
				if errors.Is(err, bb84.ErrMalformedTranscript) {
					suggestions = []string{"The file was not written by bb84sim run --transcript, or it was truncated."}
				}
				return printer.Error("Failed to read transcript", err.Error(), suggestions)
			}
			out := cmd.OutOrStdout()
			printer.Result(out, r)
			if records {
				fmt.Fprintln(out)
				printRecords(out, r.Records)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&records, "records", false, "Also print every trial record.")
	return cmd
}

func readTranscript(path string) (*bb84.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bb84.ReadTranscript(f)
}

func printRecords(w io.Writer, records []bb84.TrialRecord) {
	fmt.Fprintf(w, "%6s  %-6s  %-6s  %-6s  %-6s\n", "trial", "sender", "eve", "recv", "sifted")
	for _, rec := range records {
		eve := "-"
		if rec.Intercepted {
			eve = fmt.Sprintf("%d/%s", rec.EveBit, rec.EveBasis)
		}
		sifted := ""
		if rec.SenderBasis == rec.ReceiverBasis {
			sifted = "yes"
		}
		fmt.Fprintf(w, "%6d  %-6s  %-6s  %-6s  %-6s\n",
			rec.Index,
			fmt.Sprintf("%d/%s", rec.SenderBit, rec.SenderBasis),
			eve,
			fmt.Sprintf("%d/%s", rec.ReceiverBit, rec.ReceiverBasis),
			sifted,
		)
	}
}
