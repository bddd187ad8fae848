package commands

import (
	"fmt"
	"time"

	"github.com/alan-christopher/bb84sim/internal/printer"
	"github.com/alan-christopher/bb84sim/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		redisAddr string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := store.NewClient(&redis.Options{Addr: redisAddr}, "")
			defer c.Close()

			runs, err := c.ListRuns(cmd.Context(), limit)
			if err != nil {
				return printer.Error(
					"Failed to list runs",
					fmt.Sprintf("Could not read run history from Redis at %s: %v", redisAddr, err),
					[]string{"Check that Redis is running and --redis points at it."},
				)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-20s  %8s  %-5s  %8s  %-7s  %s\n",
				"ID", "CREATED", "QUBITS", "EVE", "SIFTED", "QBER", "VERDICT")
			for _, r := range runs {
				fmt.Fprintf(out, "%-36s  %-20s  %8d  %-5t  %8d  %.4f   %s\n",
					r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Qubits, r.Eavesdropper,
					r.SiftedLen, r.QBER, printer.Verdict(r.Detection))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis", "localhost:6379", "The address of the Redis instance holding the run history.")
	cmd.Flags().IntVar(&limit, "limit", 10, "The maximum number of runs to list. 0 lists every run.")
	return cmd
}
