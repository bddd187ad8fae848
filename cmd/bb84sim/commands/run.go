package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/rng"
	"github.com/alan-christopher/bb84sim/internal/printer"
	"github.com/alan-christopher/bb84sim/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

type runOpts struct {
	qubits     int
	eve        bool
	seed       int64
	threshold  float64
	workers    int
	crypto     bool
	transcript string
	redisAddr  string
	verbose    bool
}

func (o *runOpts) bindFlags(fs *flag.FlagSet) {
	fs.IntVarP(&o.qubits, "qubits", "n", 100, "The number of qubits to exchange.")
	fs.BoolVar(&o.eve, "eve", false, "Route every qubit through an intercept-resend eavesdropper.")
	fs.Int64Var(&o.seed, "seed", 0, "Seed for the per-trial random streams. Defaults to the current time.")
	fs.Float64Var(&o.threshold, "threshold", bb84.DefaultThreshold, "The QBER above which eavesdropping is suspected.")
	fs.IntVar(&o.workers, "workers", runtime.NumCPU(), "The number of goroutines to spread trials across.")
	fs.BoolVar(&o.crypto, "crypto", false, "Draw from the system's secure generator instead of a seed. Runs sequentially.")
	fs.StringVar(&o.transcript, "transcript", "", "Write a transcript of every trial to this file.")
	fs.StringVar(&o.redisAddr, "redis", "", "Record the run summary in the Redis instance at this address.")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "Log run details.")
}

func newRunCmd() *cobra.Command {
	o := &runOpts{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single BB84 exchange",
		Long: `Run a single BB84 exchange and print the sifted keys, the observed QBER
and the detection verdict.

Runs are reproducible: the same --seed, --qubits and --eve always produce the
same keys, whatever the number of --workers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				o.seed = time.Now().UnixNano()
			}
			return o.run(cmd)
		},
	}
	o.bindFlags(cmd.Flags())
	return cmd
}

func (o *runOpts) run(cmd *cobra.Command) error {
	opts := bb84.Opts{
		Qubits:       o.qubits,
		Eavesdropper: o.eve,
		Seed:         o.seed,
		Workers:      o.workers,
	}
	opts = withThreshold(opts, &o.threshold)
	if o.crypto {
		opts.Rand = rng.Crypto{}
		if cmd.Flags().Changed("seed") {
			printer.Warning("--seed has no effect with --crypto\n")
		}
	}

	r, err := bb84.Run(opts)
	if err != nil {
		return runError(err)
	}
	if o.verbose {
		log.Printf("run %s: qubits=%d eve=%t sifted=%d errors=%d qber=%.4f",
			r.RunID, r.Qubits, r.Eavesdropper, r.Sifted.Len(), r.Sifted.Errors(), r.QBER)
	}
	printer.Result(cmd.OutOrStdout(), r)

	if o.transcript != "" {
		if err := writeTranscript(o.transcript, r); err != nil {
			return printer.Error(
				"Failed to write transcript",
				fmt.Sprintf("Could not write %s: %v", o.transcript, err),
				[]string{"Check that the directory exists and is writable."},
			)
		}
		if o.verbose {
			log.Printf("wrote transcript to %s", o.transcript)
		}
	}

	if o.redisAddr != "" {
		if err := saveRun(cmd.Context(), o.redisAddr, r); err != nil {
			return printer.Error(
				"Failed to record run",
				fmt.Sprintf("Could not save run %s to Redis at %s: %v", r.RunID, o.redisAddr, err),
				[]string{"Check that Redis is running, or drop --redis."},
			)
		}
		if o.verbose {
			log.Printf("recorded run %s in %s", r.RunID, o.redisAddr)
		}
	}
	return nil
}

// withThreshold makes opts classify against exactly *threshold, zero
// included. A nil threshold keeps bb84.DefaultThreshold.
func withThreshold(opts bb84.Opts, threshold *float64) bb84.Opts {
	if threshold != nil {
		opts.Threshold = *threshold
		opts.ExactThreshold = true
	}
	return opts
}

func runError(err error) error {
	if errors.Is(err, bb84.ErrInvalidParameter) {
		return printer.Error("Invalid parameters", err.Error(), []string{
			"--qubits must be at least 1.",
			"--threshold must lie in [0, 1].",
		})
	}
	return printer.Error("Simulation failed", err.Error(), nil)
}

func writeTranscript(path string, r *bb84.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return bb84.WriteTranscript(f, r)
}

func saveRun(ctx context.Context, addr string, r *bb84.Result) error {
	c := store.NewClient(&redis.Options{Addr: addr}, "")
	defer c.Close()
	s, err := c.SaveRun(ctx, r)
	if err != nil {
		return err
	}
	printer.Success("Recorded run %s at %s\n", s.ID, s.CreatedAt.Format(time.RFC3339))
	return nil
}
