package commands

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
	"text/template"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/internal/config"
	"github.com/alan-christopher/bb84sim/internal/printer"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var (
	inputs  = []string{"qubits", "eve"}
	columns = []string{"Qubits", "Eavesdropper", "Threshold", "Runs", "MeanQBER",
		"StdDevQBER", "QBERMargin", "MeanSiftedLen", "Detected", "DetectionRate"}
)

// An Experiment packages together the result of sweeping a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	Qubits       int
	Eavesdropper bool
	Threshold    float64

	bb84.Summary
}

type sweepOpts struct {
	configPath string
	cfg        config.SweepConfig
	threshold  float64
	verbose    bool
}

func (o *sweepOpts) bindFlags(fs *flag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "Read the sweep grid from this YAML file. Flags given explicitly override it.")
	fs.IntSliceVar(&o.cfg.Qubits, "qubits", config.DefaultQubits, "The qubit counts to sweep.")
	fs.BoolSliceVar(&o.cfg.Eavesdropper, "eve", config.DefaultEavesdropper, "Whether an eavesdropper is present.")
	fs.IntVar(&o.cfg.Repeats, "repeats", config.DefaultRepeats, "The number of runs per grid point.")
	fs.Int64Var(&o.cfg.Seed, "seed", 1, "The base seed; repeat r uses seed+r.")
	fs.IntVar(&o.cfg.Workers, "workers", runtime.NumCPU(), "The number of goroutines to spread each run across.")
	fs.Float64Var(&o.threshold, "threshold", bb84.DefaultThreshold, "The QBER above which eavesdropping is suspected.")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "Log each grid point as it completes.")
}

func newSweepCmd() *cobra.Command {
	o := &sweepOpts{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run repeated exchanges over a parameter grid and print CSV",
		Long: `Run repeated BB84 exchanges for each entry in the cartesian product of the
given qubit counts and eavesdropper settings, and output a CSV of QBER and
detection statistics for each combination.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.resolve(cmd.Flags()); err != nil {
				return printer.Error("Invalid sweep configuration", err.Error(), []string{
					"Fix the offending flag.",
					"Fix the config file passed with --config.",
				})
			}
			return o.sweep(cmd.OutOrStdout())
		},
	}
	o.bindFlags(cmd.Flags())
	return cmd
}

// resolve merges the config file, if any, with explicitly set flags and
// validates the result.
func (o *sweepOpts) resolve(fs *flag.FlagSet) error {
	o.cfg.Version = config.Version
	if fs.Changed("threshold") {
		o.cfg.Threshold = &o.threshold
	}
	if o.configPath == "" {
		return o.cfg.Validate()
	}
	fromFile, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if !fs.Changed("qubits") {
		o.cfg.Qubits = fromFile.Qubits
	}
	if !fs.Changed("eve") {
		o.cfg.Eavesdropper = fromFile.Eavesdropper
	}
	if !fs.Changed("repeats") {
		o.cfg.Repeats = fromFile.Repeats
	}
	if !fs.Changed("seed") {
		o.cfg.Seed = fromFile.Seed
	}
	if !fs.Changed("workers") && fromFile.Workers != 0 {
		o.cfg.Workers = fromFile.Workers
	}
	if !fs.Changed("threshold") {
		o.cfg.Threshold = fromFile.Threshold
	}
	return o.cfg.Validate()
}

func (o *sweepOpts) sweep(w io.Writer) error {
	fmt.Fprintln(w, header())
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	args := [][]interface{}{
		lookupInput(o.cfg.Qubits),
		lookupInput(o.cfg.Eavesdropper),
	}

	var sweepErr error
	applyCartesian(func(args []interface{}) {
		if sweepErr != nil {
			return
		}
		exp := &Experiment{
			Qubits:       args[inpIndex("qubits")].(int),
			Eavesdropper: args[inpIndex("eve")].(bool),
		}
		if err := o.experiment(exp); err != nil {
			sweepErr = fmt.Errorf("sweeping %+v: %w", *exp, err)
			return
		}
		if o.verbose {
			log.Printf("qubits=%d eve=%t: mean qber %.4f ± %.4f over %d runs",
				exp.Qubits, exp.Eavesdropper, exp.MeanQBER, exp.QBERMargin, exp.Runs)
		}
		if err := tmpl.Execute(w, exp); err != nil {
			log.Fatalf("BUG: could not fill in line template: %v", err)
		}
	}, args)

	if sweepErr != nil {
		return printer.Error("Sweep failed", sweepErr.Error(), nil)
	}
	return nil
}

func (o *sweepOpts) experiment(exp *Experiment) error {
	results := make([]*bb84.Result, 0, o.cfg.Repeats)
	for r := 0; r < o.cfg.Repeats; r++ {
		res, err := bb84.Run(withThreshold(bb84.Opts{
			Qubits:       exp.Qubits,
			Eavesdropper: exp.Eavesdropper,
			Seed:         o.cfg.Seed + int64(r),
			Workers:      o.cfg.Workers,
		}, o.cfg.Threshold))
		if err != nil {
			return err
		}
		results = append(results, res)
		exp.Threshold = res.Threshold
	}
	exp.Summary = bb84.Summarize(results)
	return nil
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput[T any](vals []T) []interface{} {
	var r []interface{}
	for _, v := range vals {
		r = append(r, v)
	}
	return r
}

// applyCartesian calls f once for every combination of one value from each
// entry of args, varying the later entries fastest.
func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
