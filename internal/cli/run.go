package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/logging"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization"
	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization/layout"
)

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
)

// runFlags holds the run command's flag values before they are merged into
// a Scenario.
type runFlags struct {
	scenario string
	format   string
	seed     int64
	Scenario
}

// report is the outcome of a run.
type report struct {
	Turbines   int                `json:"turbines"`
	Iterations int                `json:"iterations"`
	Converged  bool               `json:"converged"`
	BestPower  float64            `json:"best_power"`
	FinalPower float64            `json:"final_power"`
	MaxPower   float64            `json:"max_power"`
	Efficiency float64            `json:"efficiency"`
	Positions  []geometry.Vector2 `json:"positions"`
}

func newRunCmd() *cobra.Command {
	f := runFlags{format: formatText, Scenario: defaultScenario()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Optimize a turbine layout",
		Long: `Optimize a turbine layout offline.

The layout starts from a random placement (or the positions listed in the
scenario file) and takes gradient-ascent steps until --steps is reached or
the mean power changes by less than --tolerance for --patience consecutive
steps. The best layout seen is printed.

Flags set on the command line override values from --scenario.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := f.resolve(cmd.Flags().Changed)
			if err != nil {
				return err
			}
			if f.format != formatText && f.format != formatJSON {
				return fmt.Errorf("unknown format %q (want %s or %s)", f.format, formatText, formatJSON)
			}
			return runScenario(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), sc, f.format)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.scenario, "scenario", "s", "", "TOML scenario file")
	flags.StringVarP(&f.format, "format", "f", f.format, "output format: text, json")
	flags.IntVarP(&f.Turbines, "turbines", "n", f.Turbines, "number of turbines (clamped to 1..50)")
	flags.Float64Var(&f.Radius, "radius", f.Radius, "turbine footprint radius")
	flags.Float64Var(&f.WakeCoefficient, "k", f.WakeCoefficient, "wake coefficient in (0, 1)")
	flags.Float64Var(&f.Width, "width", f.Width, "site width")
	flags.Float64Var(&f.Height, "height", f.Height, "site height")
	flags.Float64Var(&f.Delta, "delta", f.Delta, "finite-difference step")
	flags.Float64Var(&f.LearningRate, "learning-rate", f.LearningRate, "gradient scale per step")
	flags.IntVar(&f.Steps, "steps", f.Steps, "maximum number of steps")
	flags.Float64Var(&f.Tolerance, "tolerance", f.Tolerance, "stop once power changes less than this (0 disables)")
	flags.IntVar(&f.Patience, "patience", f.Patience, "consecutive stalled steps before stopping")
	flags.Int64Var(&f.seed, "seed", 0, "random seed (default: time based)")

	return cmd
}

// resolve merges the scenario file, if any, with the flags the user set.
func (f runFlags) resolve(changed func(string) bool) (Scenario, error) {
	sc := f.Scenario
	if changed("seed") {
		seed := f.seed
		sc.Seed = &seed
	}
	if f.scenario == "" {
		return sc, sc.validate()
	}

	sc, err := loadScenario(f.scenario)
	if err != nil {
		return Scenario{}, err
	}

	overrides := []struct {
		flag  string
		apply func()
	}{
		{"turbines", func() { sc.Turbines = f.Turbines; sc.Positions = nil }},
		{"radius", func() { sc.Radius = f.Radius }},
		{"k", func() { sc.WakeCoefficient = f.WakeCoefficient }},
		{"width", func() { sc.Width = f.Width }},
		{"height", func() { sc.Height = f.Height }},
		{"delta", func() { sc.Delta = f.Delta }},
		{"learning-rate", func() { sc.LearningRate = f.LearningRate }},
		{"steps", func() { sc.Steps = f.Steps }},
		{"tolerance", func() { sc.Tolerance = f.Tolerance }},
		{"patience", func() { sc.Patience = f.Patience }},
		{"seed", func() { seed := f.seed; sc.Seed = &seed }},
	}
	for _, o := range overrides {
		if changed(o.flag) {
			o.apply()
		}
	}
	return sc, sc.validate()
}

// runScenario builds the optimizer for sc, runs it and writes a report to w.
// Optimizer debug logs go to errw.
func runScenario(ctx context.Context, w, errw io.Writer, sc Scenario, format string) error {
	logger := loggerFromContext(ctx)

	opts := []layout.Option{
		layout.WithDelta(sc.Delta),
		layout.WithLearningRate(sc.LearningRate),
		layout.WithLogger(coreLogger(logger, errw)),
	}
	if sc.Seed != nil {
		opts = append(opts, layout.WithSeed(*sc.Seed))
	}

	o, err := layout.New(sc.layoutConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create optimizer: %w", err)
	}
	if len(sc.Positions) > 0 {
		if err := o.SetPositions(sc.Positions); err != nil {
			return fmt.Errorf("initial positions: %w", err)
		}
	} else {
		o.Randomize()
	}

	logger.Info("Optimizing layout",
		"turbines", o.Turbines(),
		"steps", sc.Steps,
		"delta", o.Delta(),
		"learning_rate", o.LearningRate(),
	)

	cfg := sc.runConfig()
	cfg.OnStep = func(e optimization.Evaluation) {
		logger.Debug("Step", "iteration", e.Iteration, "power", e.Power)
	}

	p := newProgress(logger)
	result, err := optimization.Run(ctx, o, cfg)
	if err != nil {
		if result == nil || !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("Interrupted, reporting partial result", "iterations", result.Iterations)
	}
	p.done(fmt.Sprintf("Optimized %d turbines", o.Turbines()), "iterations", result.Iterations, "converged", result.Converged)

	rep := report{
		Turbines:   o.Turbines(),
		Iterations: result.Iterations,
		Converged:  result.Converged,
		BestPower:  result.BestSolution.Power,
		FinalPower: o.MeanPower(result.Final),
		MaxPower:   o.MaxPower(),
		Positions:  result.BestSolution.Positions,
	}
	if rep.MaxPower > 0 {
		rep.Efficiency = rep.BestPower / rep.MaxPower
	}

	if werr := writeReport(w, rep, format); werr != nil {
		return werr
	}
	return err
}

// coreLogger returns a zap logger writing the optimizer's own logs to w as
// text. It is a no-op unless l is at debug level.
func coreLogger(l *charmlog.Logger, w io.Writer) *zap.Logger {
	if l.GetLevel() > charmlog.DebugLevel {
		return zap.NewNop()
	}
	base := logging.New(logging.DebugLevel, w).WithFormat(logging.TextFormat)
	return logging.NewZapLogger(base)
}

func writeReport(w io.Writer, rep report, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "turbines\t%d\n", rep.Turbines)
	fmt.Fprintf(tw, "iterations\t%d\n", rep.Iterations)
	fmt.Fprintf(tw, "converged\t%t\n", rep.Converged)
	fmt.Fprintf(tw, "best power\t%.4f\n", rep.BestPower)
	fmt.Fprintf(tw, "final power\t%.4f\n", rep.FinalPower)
	fmt.Fprintf(tw, "max power\t%.4f\n", rep.MaxPower)
	fmt.Fprintf(tw, "efficiency\t%.2f%%\n", 100*rep.Efficiency)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "#\tx\ty")
	for i, p := range rep.Positions {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\n", i, p.X, p.Y)
	}
	return tw.Flush()
}
