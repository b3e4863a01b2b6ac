package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iForgotThePlusC/Wind-Turbines/internal/optimization/normal"
)

func newQuantileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quantile P...",
		Short: "Evaluate the standard normal quantile function",
		Long: `Evaluate the inverse standard normal CDF for each probability P.

Probabilities outside [0, 1] print NaN; 0 and 1 print -Inf and +Inf.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				p, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("parse probability %q: %w", arg, err)
				}
				fmt.Fprintf(out, "%g\t%.10g\n", p, normal.InverseCDF(p))
			}
			return nil
		},
	}
}
