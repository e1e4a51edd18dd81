package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nitrate-atlas/internal/artifact"
	"github.com/sells-group/nitrate-atlas/internal/config"
	"github.com/sells-group/nitrate-atlas/internal/dataset"
	"github.com/sells-group/nitrate-atlas/internal/pipeline"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nitrate-atlas",
	Short: "Groundwater nitrate / cancer-rate spatial analysis",
	Long:  "Interpolates well nitrate samples onto a grid via inverse distance weighting, aggregates the surface over census tracts, and regresses tract cancer rates against the zonal means.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// loadRunner reads both shapefiles, builds the evaluation runner, and writes
// the display-frame bounds file the front end reads for map framing.
func loadRunner() (*dataset.Context, *pipeline.Runner, error) {
	data, err := dataset.Load(dataset.Options{
		PointsPath: filepath.Join(cfg.Data.Dir, cfg.Data.PointsFile),
		ZonesPath:  filepath.Join(cfg.Data.Dir, cfg.Data.ZonesFile),
		ValueField: cfg.Data.ValueField,
		IDFields:   cfg.Data.IDFields,
		RateField:  cfg.Data.RateField,
		CaseFields: cfg.Data.CaseFields,
		PopFields:  cfg.Data.PopFields,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, nil, eris.Wrapf(err, "create output dir %s", cfg.Output.Dir)
	}
	if err := artifact.WriteBounds(data.DisplayBounds(), filepath.Join(cfg.Output.Dir, "bounds.json")); err != nil {
		return nil, nil, err
	}

	return data, pipeline.NewRunner(data, cfg.Output.Dir), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
