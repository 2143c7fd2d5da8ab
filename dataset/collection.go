// Package dataset holds training and test points for the forest trainers.
//
// A Collection stores dense d-dimensional points with optional integer class
// labels and optional real-valued targets. It satisfies forest.PointCollection.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// UnknownLabel marks a point whose class label is missing. Aggregators
// ignore such points when counting classes.
const UnknownLabel = -1

// Descriptor says which optional columns a data file carries.
type Descriptor uint8

const (
	// Unadorned files hold only point coordinates.
	Unadorned Descriptor = 0
	// HasClassLabels files carry a label in the first column.
	HasClassLabels Descriptor = 1
	// HasTargetValues files carry a target value in the last column.
	HasTargetValues Descriptor = 2
)

// Collection is a set of dense points with optional labels and targets.
type Collection struct {
	dims       int
	data       []float64
	labels     []int
	labelNames []string
	targets    []float64
}

// New wraps data, laid out row by row, as points of the given dimension.
// data is not copied.
func New(dims int, data []float64) (*Collection, error) {
	if dims < 1 {
		return nil, errors.NewValidationError("dims", "must be at least 1", dims)
	}
	if len(data)%dims != 0 {
		return nil, errors.NewValueError("dataset.New",
			fmt.Sprintf("%d values do not form whole %d-dimensional points", len(data), dims))
	}
	return &Collection{dims: dims, data: data}, nil
}

// FromMatrix copies the rows of m into a new collection.
func FromMatrix(m mat.Matrix) (*Collection, error) {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.ErrEmptyData
	}
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return New(cols, data)
}

// WithLabels attaches class labels, one per point. Labels must be
// non-negative or UnknownLabel.
func (c *Collection) WithLabels(labels []int) (*Collection, error) {
	if len(labels) != c.Count() {
		return nil, errors.NewDimensionError("dataset.WithLabels", c.Count(), len(labels), 0)
	}
	for i, l := range labels {
		if l < UnknownLabel {
			return nil, errors.NewValueError("dataset.WithLabels",
				fmt.Sprintf("label %d of point %d is negative", l, i))
		}
	}
	c.labels = labels
	return c, nil
}

// WithTargets attaches real-valued targets, one per point.
func (c *Collection) WithTargets(targets []float64) (*Collection, error) {
	if len(targets) != c.Count() {
		return nil, errors.NewDimensionError("dataset.WithTargets", c.Count(), len(targets), 0)
	}
	c.targets = targets
	return c, nil
}

// Count returns the number of points.
func (c *Collection) Count() int {
	if c == nil || c.dims == 0 {
		return 0
	}
	return len(c.data) / c.dims
}

// Dimensions returns the dimension of each point.
func (c *Collection) Dimensions() int { return c.dims }

// Point returns the coordinates of point i. The slice aliases the
// collection's storage.
func (c *Collection) Point(i int) []float64 {
	return c.data[i*c.dims : (i+1)*c.dims : (i+1)*c.dims]
}

// Value returns coordinate dim of point i.
func (c *Collection) Value(i, dim int) float64 {
	return c.data[i*c.dims+dim]
}

// Matrix returns the points as a Count x Dimensions matrix sharing storage
// with the collection.
func (c *Collection) Matrix() (*mat.Dense, error) {
	if c.Count() == 0 {
		return nil, errors.ErrEmptyData
	}
	return mat.NewDense(c.Count(), c.dims, c.data), nil
}

// HasLabels reports whether class labels are attached.
func (c *Collection) HasLabels() bool { return c.labels != nil }

// Label returns the class label of point i, or UnknownLabel.
func (c *Collection) Label(i int) int { return c.labels[i] }

// Labels returns all class labels.
func (c *Collection) Labels() []int { return c.labels }

// LabelName returns the name a label was read as, or its decimal form when
// the labels did not come from a file.
func (c *Collection) LabelName(label int) string {
	if label >= 0 && label < len(c.labelNames) {
		return c.labelNames[label]
	}
	return fmt.Sprint(label)
}

// CountClasses returns the number of distinct classes: the number of label
// names read from a file, or one more than the largest label.
func (c *Collection) CountClasses() int {
	if c.labelNames != nil {
		return len(c.labelNames)
	}
	n := 0
	for _, l := range c.labels {
		if l+1 > n {
			n = l + 1
		}
	}
	return n
}

// HasTargets reports whether target values are attached.
func (c *Collection) HasTargets() bool { return c.targets != nil }

// Target returns the target value of point i.
func (c *Collection) Target(i int) float64 { return c.targets[i] }

// Targets returns all target values.
func (c *Collection) Targets() []float64 { return c.targets }

// Range returns the minimum and maximum coordinate along dim.
func (c *Collection) Range(dim int) (lo, hi float64, err error) {
	if c.Count() == 0 {
		return 0, 0, errors.ErrEmptyData
	}
	if dim < 0 || dim >= c.dims {
		return 0, 0, errors.NewValueError("dataset.Range",
			fmt.Sprintf("dimension %d out of range [0, %d)", dim, c.dims))
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < c.Count(); i++ {
		v := c.Value(i, dim)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, nil
}

// TargetRange returns the minimum and maximum target value.
func (c *Collection) TargetRange() (lo, hi float64, err error) {
	if !c.HasTargets() {
		return 0, 0, errors.NewValueError("dataset.TargetRange", "collection has no target values")
	}
	if c.Count() == 0 {
		return 0, 0, errors.ErrEmptyData
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, t := range c.targets {
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	return lo, hi, nil
}
