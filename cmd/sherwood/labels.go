package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/decisionforest/core/model"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// labelsPath is the sidecar file holding the class names of a forest
// trained on tab-delimited data, one per line in class order.
func labelsPath(forestPath string) string { return forestPath + ".labels" }

func writeLabelNames(path string, data *dataset.Collection) error {
	return model.WriteFileAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for k := 0; k < data.CountClasses(); k++ {
			if _, err := bw.WriteString(data.LabelName(k) + "\n"); err != nil {
				return errors.Wrap(err, "write label names")
			}
		}
		return bw.Flush()
	})
}

// readLabelNames returns nil when the forest has no sidecar file.
func readLabelNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return names, nil
}

// relabel maps the labels of data, read under its own first-appearance
// numbering, onto the class order used in training. Names unseen in
// training become dataset.UnknownLabel.
func relabel(data *dataset.Collection, names []string) (*dataset.Collection, error) {
	index := make(map[string]int, len(names))
	for k, name := range names {
		index[name] = k
	}
	labels := make([]int, data.Count())
	for i := range labels {
		labels[i] = dataset.UnknownLabel
		if l := data.Label(i); l != dataset.UnknownLabel {
			if k, ok := index[data.LabelName(l)]; ok {
				labels[i] = k
			}
		}
	}
	return data.WithLabels(labels)
}
