package main

import (
	"bufio"
	"io"
	"strconv"

	"github.com/goccy/go-graphviz"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/sklearn/ensemble"
)

// estimator adapts the three forest estimators to collections.
type estimator interface {
	fit(data *dataset.Collection) error
	score(data *dataset.Collection) (float64, error)
	write(w io.Writer, data *dataset.Collection) error
	Save(path string) error
	Load(path string) error
	DrawTree(i int, format graphviz.Format, w io.Writer) error
}

func newEstimator(t task, opts []ensemble.Option) estimator {
	switch t {
	case regressionTask:
		return regressor{ensemble.NewRandomForestRegressor(opts...)}
	case densityTask:
		return density{ensemble.NewDensityForest(opts...)}
	default:
		return &classifier{RandomForestClassifier: ensemble.NewRandomForestClassifier(opts...)}
	}
}

func labelsOf(data *dataset.Collection) []float64 {
	y := make([]float64, data.Count())
	for i := range y {
		y[i] = float64(data.Label(i))
	}
	return y
}

type classifier struct {
	*ensemble.RandomForestClassifier
	names []string
}

func (c *classifier) fit(data *dataset.Collection) error {
	X, err := data.Matrix()
	if err != nil {
		return err
	}
	return c.Fit(X, labelsOf(data))
}

func (c *classifier) score(data *dataset.Collection) (float64, error) {
	X, err := data.Matrix()
	if err != nil {
		return 0, err
	}
	return c.Score(X, labelsOf(data))
}

// write prints the predicted class, by name when the training labels were
// named, followed by the class probabilities.
func (c *classifier) write(w io.Writer, data *dataset.Collection) error {
	X, err := data.Matrix()
	if err != nil {
		return err
	}
	proba, err := c.PredictProba(X)
	if err != nil {
		return err
	}
	pred, err := c.Predict(X)
	if err != nil {
		return err
	}
	return writeRows(w, len(pred), func(i int, b []byte) []byte {
		if k := int(pred[i]); k < len(c.names) {
			b = append(b, c.names[k]...)
		} else {
			b = strconv.AppendInt(b, int64(k), 10)
		}
		for _, p := range proba.RawRowView(i) {
			b = append(b, '\t')
			b = strconv.AppendFloat(b, p, 'g', 6, 64)
		}
		return b
	})
}

type regressor struct {
	*ensemble.RandomForestRegressor
}

func (r regressor) fit(data *dataset.Collection) error {
	X, err := data.Matrix()
	if err != nil {
		return err
	}
	return r.Fit(X, data.Targets())
}

func (r regressor) score(data *dataset.Collection) (float64, error) {
	X, err := data.Matrix()
	if err != nil {
		return 0, err
	}
	return r.Score(X, data.Targets())
}

func (r regressor) write(w io.Writer, data *dataset.Collection) error {
	X, err := data.Matrix()
	if err != nil {
		return err
	}
	pred, err := r.Predict(X)
	if err != nil {
		return err
	}
	return writeColumn(w, pred)
}

type density struct{ *ensemble.DensityForest }

func (d density) fit(data *dataset.Collection) error {
	X, err := data.Matrix()
	if err != nil {
		return err
	}
	return d.Fit(X)
}

// score returns the mean log density of the points.
func (d density) score(data *dataset.Collection) (float64, error) {
	logp, err := d.logProbability(data)
	if err != nil {
		return 0, err
	}
	return stat.Mean(logp, nil), nil
}

func (d density) write(w io.Writer, data *dataset.Collection) error {
	logp, err := d.logProbability(data)
	if err != nil {
		return err
	}
	return writeColumn(w, logp)
}

func (d density) logProbability(data *dataset.Collection) ([]float64, error) {
	X, err := data.Matrix()
	if err != nil {
		return nil, err
	}
	return d.LogProbability(X)
}

func writeColumn(w io.Writer, values []float64) error {
	return writeRows(w, len(values), func(i int, b []byte) []byte {
		return strconv.AppendFloat(b, values[i], 'g', -1, 64)
	})
}

func writeRows(w io.Writer, n int, format func(i int, b []byte) []byte) error {
	bw := bufio.NewWriter(w)
	var line []byte
	for i := 0; i < n; i++ {
		line = append(format(i, line[:0]), '\n')
		if _, err := bw.Write(line); err != nil {
			return errors.Wrapf(err, "write prediction %d", i)
		}
	}
	return bw.Flush()
}
