package main

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/decisionforest/core/model"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
	"github.com/YuminosukeSato/decisionforest/pkg/render"
)

func drawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Render one tree of a trained forest",
		Long: `Render one tree of a forest written by train as an SVG, PNG, JPEG or
graphviz dot file. The format follows the output extension unless --format
is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraw(cmd)
		},
	}
	f := cmd.Flags()
	f.String("task", "classification", "classification, regression or density")
	f.String("split", "axis", "weak learner family: axis or linear")
	f.String("leaf", "constant", "regression leaf predictor: constant or linear")
	f.StringP("forest", "f", "forest.bin", "path to a forest written by train")
	f.Int("tree", 0, "index of the tree to draw")
	f.StringP("output", "o", "tree.svg", "path of the rendered tree")
	f.String("format", "", "svg, png, jpg or dot (defaults to the output extension)")
	return cmd
}

func runDraw(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()
	logger := log.GetLoggerWithName("sherwood")

	name := cfg.Format
	if name == "" {
		name = filepath.Ext(cfg.Output)
	}
	format, err := render.ParseFormat(name)
	if err != nil {
		return err
	}
	t, err := parseTask(cfg.Task)
	if err != nil {
		return err
	}
	opts, err := estimatorOptions(cfg, logger)
	if err != nil {
		return err
	}
	est := newEstimator(t, opts)
	if err := est.Load(cfg.Forest); err != nil {
		return err
	}

	if err := model.WriteFileAtomic(cfg.Output, func(w io.Writer) error {
		return est.DrawTree(cfg.Tree, format, w)
	}); err != nil {
		return errors.Wrapf(err, "draw tree %d", cfg.Tree)
	}
	logger.Info("Drew tree", log.PathKey, cfg.Output)
	return nil
}
