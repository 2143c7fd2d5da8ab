package ensemble

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/features"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// learnerKind binds a weak learner type to its factory and decoder.
type learnerKind[F forest.WeakLearner] struct {
	factory func(dims int) LearnerFactory[F]
	decode  func(data []byte) (F, error)
}

var (
	axisKind = learnerKind[features.AxisAligned]{
		factory: func(dims int) LearnerFactory[features.AxisAligned] {
			return features.AxisAlignedFactory{Dimensions: dims}
		},
		decode: features.DecodeAxisAligned,
	}
	linearKind = learnerKind[features.Linear]{
		factory: func(dims int) LearnerFactory[features.Linear] {
			return features.LinearFactory{Dimensions: dims}
		},
		decode: features.DecodeLinear,
	}
)

// toCollection copies X into a collection after checking it is non-empty
// and finite.
func toCollection(op string, X mat.Matrix) (*dataset.Collection, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewValueError(op, fmt.Sprintf("X[%d][%d] is not finite", i, j))
			}
		}
	}
	return dataset.FromMatrix(X)
}

// classLabels converts y to class indices and returns the class count.
// dataset.UnknownLabel marks an unlabelled row.
func classLabels(op string, y []float64, rows int) ([]int, int, error) {
	if len(y) != rows {
		return nil, 0, errors.NewDimensionError(op, rows, len(y), 0)
	}
	labels := make([]int, len(y))
	classes := 0
	for i, v := range y {
		if v == dataset.UnknownLabel {
			labels[i] = dataset.UnknownLabel
			continue
		}
		if v < 0 || v != math.Trunc(v) {
			return nil, 0, errors.NewValueError(op, fmt.Sprintf("y[%d] = %v is not a non-negative class index", i, v))
		}
		labels[i] = int(v)
		classes = max(classes, labels[i]+1)
	}
	return labels, classes, nil
}

// checkColumns accepts exactly the training dimension, or at least the
// dimension read by the split nodes when the forest was loaded from disk.
func checkColumns(op string, cols, want int, loaded bool) error {
	if cols == want || (loaded && cols > want) {
		return nil
	}
	return errors.NewDimensionError(op, want, cols, 1)
}
