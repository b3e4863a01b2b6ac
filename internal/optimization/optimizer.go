package optimization

import (
	"context"
	"math"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/geometry"
)

// Stepper is an iterative layout optimizer driven one step at a time.
type Stepper interface {
	// Step advances the layout by one iteration. CurrentPower afterwards
	// reports the objective measured on the layout as it was before the move.
	Step()

	// CurrentPower returns the objective value recorded by the last Step.
	CurrentPower() float64

	// Positions returns a copy of the current layout.
	Positions() []geometry.Vector2
}

// RunConfig controls a Run.
type RunConfig struct {
	// Maximum number of steps
	MaxIterations int

	// Absolute change in power below which a step counts as stalled.
	// Zero disables the convergence check.
	Tolerance float64

	// Number of consecutive stalled steps that ends the run
	Patience int

	// OnStep, if set, is called after every step.
	OnStep func(Evaluation)
}

// Solution is a layout together with the power measured on it.
type Solution struct {
	Positions []geometry.Vector2 `json:"positions"`
	Power     float64            `json:"power"`
}

// Evaluation records the power measured during one step.
type Evaluation struct {
	Iteration int     `json:"iteration"`
	Power     float64 `json:"power"`
}

// RunResult contains the result of a run.
type RunResult struct {
	BestSolution *Solution          `json:"best_solution"`
	History      []Evaluation       `json:"history"`
	Iterations   int                `json:"iterations"`
	Converged    bool               `json:"converged"`
	Final        []geometry.Vector2 `json:"final_positions"`
}

// Run steps s until MaxIterations is reached, the power stalls for Patience
// consecutive steps, or ctx is done. Cancellation returns ctx.Err(); the
// partial result is returned alongside it when at least one step ran.
func Run(ctx context.Context, s Stepper, cfg RunConfig) (*RunResult, error) {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 100 // Default value
	}
	if cfg.Patience < 1 {
		cfg.Patience = 5 // Default value
	}

	result := &RunResult{
		History: make([]Evaluation, 0, cfg.MaxIterations),
	}

	stalled := 0
	prev := math.NaN()
	for i := 0; i < cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			if i == 0 {
				return nil, ctx.Err()
			}
			result.Final = s.Positions()
			return result, ctx.Err()
		default:
		}

		// Power is measured on the layout before the move
		before := s.Positions()
		s.Step()
		power := s.CurrentPower()

		eval := Evaluation{Iteration: i, Power: power}
		result.History = append(result.History, eval)
		result.Iterations = i + 1
		if result.BestSolution == nil || power > result.BestSolution.Power {
			result.BestSolution = &Solution{Positions: before, Power: power}
		}
		if cfg.OnStep != nil {
			cfg.OnStep(eval)
		}

		if cfg.Tolerance > 0 && !math.IsNaN(prev) {
			if math.Abs(power-prev) < cfg.Tolerance {
				stalled++
			} else {
				stalled = 0
			}
			if stalled >= cfg.Patience {
				result.Converged = true
				break
			}
		}
		prev = power
	}

	result.Final = s.Positions()
	return result, nil
}
