package main

import (
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

type task string

const (
	classificationTask task = "classification"
	regressionTask     task = "regression"
	densityTask        task = "density"
)

func parseTask(s string) (task, error) {
	switch t := task(strings.ToLower(s)); t {
	case classificationTask, regressionTask, densityTask:
		return t, nil
	default:
		return "", errors.NewValidationError("task", "must be classification, regression or density", s)
	}
}

// descriptor returns the TSV column layout of a task's training data.
func (t task) descriptor() dataset.Descriptor {
	switch t {
	case classificationTask:
		return dataset.HasClassLabels
	case regressionTask:
		return dataset.HasTargetValues
	default:
		return dataset.Unadorned
	}
}

func isNpy(path string) bool { return strings.HasSuffix(path, ".npy") }

// loadInput reads the points named by cfg.Input. With responses set, the
// labels or targets of supervised tasks are read too: from the TSV columns,
// or from the cfg.Labels .npy file when the points come from a .npy file.
func loadInput(stdin io.Reader, cfg *config, t task, responses bool) (*dataset.Collection, error) {
	if isNpy(cfg.Input) {
		return loadNpyInput(cfg, t, responses)
	}

	if cfg.Dims <= 0 {
		return nil, errors.NewValidationError("dims", "must be positive for tab-delimited input", cfg.Dims)
	}
	descriptor := dataset.Unadorned
	if responses {
		descriptor = t.descriptor()
	}
	if cfg.Input == "" || cfg.Input == "-" {
		return dataset.Load(stdin, cfg.Dims, descriptor)
	}
	return dataset.LoadFile(cfg.Input, cfg.Dims, descriptor)
}

func loadNpyInput(cfg *config, t task, responses bool) (*dataset.Collection, error) {
	points, err := readNpy(cfg.Input, dataset.LoadNpy)
	if err != nil {
		return nil, err
	}
	if !responses || t == densityTask {
		return points, nil
	}
	if cfg.Labels == "" {
		return nil, errors.NewValidationError("labels", "a .npy file of labels or targets is required with .npy input", cfg.Labels)
	}
	if t == classificationTask {
		labels, err := readNpy(cfg.Labels, dataset.ReadNpyLabels)
		if err != nil {
			return nil, err
		}
		return points.WithLabels(labels)
	}
	targets, err := readNpy(cfg.Labels, dataset.ReadNpyVector)
	if err != nil {
		return nil, err
	}
	return points.WithTargets(targets)
}

func readNpy[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return zero, errors.Wrapf(err, "read %s", path)
	}
	return v, nil
}
