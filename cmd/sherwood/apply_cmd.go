package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/decisionforest/pkg/log"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a trained forest to a set of points",
		Long: `Apply a forest written by train and print one line per point: the
predicted class and class probabilities, the predicted target, or the log
density. With --scored the input also carries labels or targets and the
score is reported on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd)
		},
	}
	addDataFlags(cmd)
	cmd.Flags().StringP("forest", "f", "forest.bin", "path to a forest written by train")
	cmd.Flags().Bool("scored", false, "input carries labels or targets; report the score")
	return cmd
}

func runApply(cmd *cobra.Command) error {
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
	data, err := loadInput(cmd.InOrStdin(), cfg, t, cfg.Scored)
	if err != nil {
		return err
	}
	if c, ok := est.(*classifier); ok {
		if c.names, err = readLabelNames(labelsPath(cfg.Forest)); err != nil {
			return err
		}
		if cfg.Scored && c.names != nil && !isNpy(cfg.Input) {
			if data, err = relabel(data, c.names); err != nil {
				return err
			}
		}
	}

	if err := est.write(cmd.OutOrStdout(), data); err != nil {
		return err
	}
	logger.Info("Applied forest", log.PathKey, cfg.Forest, log.SamplesKey, data.Count())

	if cfg.Scored {
		score, err := est.score(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %.4f\n", scoreName(t), score)
	}
	return nil
}
