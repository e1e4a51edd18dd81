package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sweepKs          string
	sweepNeighbors   int
	sweepCellSize    float64
	sweepConcurrency int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate a range of distance-decay exponents in parallel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ks, err := parseKs(sweepKs)
		if err != nil {
			return err
		}

		_, runner, err := loadRunner()
		if err != nil {
			return err
		}

		p := gridParams(cmd, 0, sweepNeighbors, sweepCellSize)

		results, err := runner.Sweep(cmd.Context(), ks, p.Neighbors, p.CellSize, sweepConcurrency, true)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}

		for _, sr := range results {
			zap.L().Info("sweep point",
				zap.Float64("k", sr.K),
				zap.Float64("r2", sr.Run.OLS.RSquared),
				zap.Float64("slope", sr.Run.OLS.Slope),
				zap.Float64("p_value", sr.Run.OLS.PValue),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

// parseKs parses a comma-separated list of positive exponents.
func parseKs(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	ks := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "parse k %q", part)
		}
		ks = append(ks, k)
	}
	if len(ks) == 0 {
		return nil, eris.New("no exponents given")
	}
	return ks, nil
}

func init() {
	sweepCmd.Flags().StringVar(&sweepKs, "ks", "1.0,1.5,2.0,2.5,3.0,4.0,5.0", "comma-separated decay exponents")
	sweepCmd.Flags().IntVar(&sweepNeighbors, "neighbors", 0, "nearest samples per cell (default from config)")
	sweepCmd.Flags().Float64Var(&sweepCellSize, "cell-size", 0, "grid cell size in meters (default from config)")
	sweepCmd.Flags().IntVar(&sweepConcurrency, "concurrency", 4, "parallel evaluations")
	rootCmd.AddCommand(sweepCmd)
}
