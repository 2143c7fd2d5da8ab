package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
	"github.com/YuminosukeSato/decisionforest/pkg/telemetry"
	"github.com/YuminosukeSato/decisionforest/sklearn/ensemble"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a forest from a set of data",
		Long: `Train a classification, regression or density forest.

Tab-delimited input carries the class label in the first column for
classification and the target in the last column for regression.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd)
		},
	}
	f := cmd.Flags()
	addDataFlags(cmd)
	f.StringP("output", "o", "forest.bin", "path the trained forest is written to")
	f.Int("trees", 10, "number of trees")
	f.Int("depth", 10, "maximum number of decision levels, in [0, 19]")
	f.Int("features", 10, "candidate weak learners per node")
	f.Int("thresholds", 10, "candidate thresholds per weak learner")
	f.Uint64("seed", 0, "random seed (0 draws a random seed)")
	f.Bool("parallel", false, "train each tree with a pool of workers")
	f.Int("workers", 0, "worker pool size (defaults to the number of CPUs)")
	f.String("metrics-file", "", "write Prometheus training metrics to this textfile")
	return cmd
}

// addDataFlags defines the flags shared by train and apply.
func addDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("task", "classification", "classification, regression or density")
	f.StringP("input", "i", "", "tab-delimited (.tsv) or .npy file with the points (defaults to STDIN, tab-delimited)")
	f.String("labels", "", ".npy file with the class labels or targets of .npy input")
	f.Int("dims", 0, "number of coordinates per point in tab-delimited input")
	f.String("split", "axis", "weak learner family: axis or linear")
	f.String("leaf", "constant", "regression leaf predictor: constant or linear (one input column)")
}

func estimatorOptions(cfg *config, logger log.Logger) ([]ensemble.Option, error) {
	split, err := ensemble.ParseSplitKind(cfg.Split)
	if err != nil {
		return nil, err
	}
	leaf, err := ensemble.ParseLeafModel(cfg.Leaf)
	if err != nil {
		return nil, err
	}
	opts := []ensemble.Option{
		ensemble.WithParams(cfg.Training),
		ensemble.WithSplit(split),
		ensemble.WithLeafModel(leaf),
		ensemble.WithLogger(logger),
	}
	if cfg.Seed != 0 {
		opts = append(opts, ensemble.WithRandomState(cfg.Seed))
	}
	if cfg.Parallel {
		opts = append(opts, ensemble.WithParallel(cfg.Workers))
	}
	return opts, nil
}

func runTrain(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Training.Verbose {
		cfg.LogLevel = "debug"
	}
	cleanup, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()
	logger := log.GetLoggerWithName("sherwood")

	t, err := parseTask(cfg.Task)
	if err != nil {
		return err
	}
	if err := cfg.Training.Validate(); err != nil {
		return err
	}
	data, err := loadInput(cmd.InOrStdin(), cfg, t, true)
	if err != nil {
		return err
	}
	opts, err := estimatorOptions(cfg, logger)
	if err != nil {
		return err
	}
	var recorder *telemetry.Recorder
	if cfg.MetricsFile != "" {
		recorder = telemetry.NewRecorder("sherwood")
		opts = append(opts, ensemble.WithRecorder(recorder))
	}

	start := time.Now()
	est := newEstimator(t, opts)
	if err := est.fit(data); err != nil {
		return errors.Wrapf(err, "train %s forest", t)
	}
	if err := est.Save(cfg.Output); err != nil {
		return err
	}
	if t == classificationTask && !isNpy(cfg.Input) {
		if err := writeLabelNames(labelsPath(cfg.Output), data); err != nil {
			return err
		}
	}
	logger.Info("Saved forest",
		log.PathKey, cfg.Output,
		log.TreesKey, cfg.Training.NumberOfTrees,
		log.SamplesKey, data.Count(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	score, err := est.score(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "trained %d %s trees on %d points, training %s %.4f, written to %s\n",
		cfg.Training.NumberOfTrees, t, data.Count(), scoreName(t), score, cfg.Output)
	return nil
}

func scoreName(t task) string {
	switch t {
	case regressionTask:
		return "R2"
	case densityTask:
		return "mean log density"
	default:
		return "accuracy"
	}
}
