// Package features provides weak learners over dataset.Collection points.
package features

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// AxisAligned responds with a single coordinate of a point.
type AxisAligned struct {
	Axis int
}

// Response implements forest.WeakLearner.
func (f AxisAligned) Response(data forest.PointCollection, index int) float64 {
	return data.(*dataset.Collection).Value(index, f.Axis)
}

// MarshalBinary implements forest.WeakLearner.
func (f AxisAligned) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint32(nil, uint32(f.Axis)), nil
}

// MinDimensions returns the smallest point dimension the learner can read.
func (f AxisAligned) MinDimensions() int { return f.Axis + 1 }

func (f AxisAligned) String() string { return fmt.Sprintf("x[%d]", f.Axis) }

// DecodeAxisAligned decodes the output of AxisAligned.MarshalBinary.
func DecodeAxisAligned(data []byte) (AxisAligned, error) {
	if len(data) != 4 {
		return AxisAligned{}, errors.NewValueError("features.DecodeAxisAligned",
			fmt.Sprintf("payload has %d bytes, want 4", len(data)))
	}
	return AxisAligned{Axis: int(binary.LittleEndian.Uint32(data))}, nil
}

// AxisAlignedFactory draws AxisAligned learners over a uniformly random axis.
type AxisAlignedFactory struct {
	Dimensions int
}

// Random returns a random AxisAligned learner.
func (f AxisAlignedFactory) Random(rng *rand.Rand) AxisAligned {
	return AxisAligned{Axis: rng.IntN(f.Dimensions)}
}

// Linear responds with the dot product of a unit direction and the point.
type Linear struct {
	Direction []float64
}

// Response implements forest.WeakLearner. Coordinates beyond
// len(Direction) are ignored.
func (f Linear) Response(data forest.PointCollection, index int) float64 {
	p := data.(*dataset.Collection).Point(index)
	return floats.Dot(f.Direction, p[:len(f.Direction)])
}

func (f Linear) String() string { return fmt.Sprintf("%.3g . x", f.Direction) }

// MarshalBinary implements forest.WeakLearner.
func (f Linear) MarshalBinary() ([]byte, error) {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(f.Direction)))
	for _, v := range f.Direction {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf, nil
}

// MinDimensions returns the smallest point dimension the learner can read.
func (f Linear) MinDimensions() int { return len(f.Direction) }

// DecodeLinear decodes the output of Linear.MarshalBinary.
func DecodeLinear(data []byte) (Linear, error) {
	if len(data) < 4 {
		return Linear{}, errors.NewValueError("features.DecodeLinear", "payload too short")
	}
	n := int(binary.LittleEndian.Uint32(data))
	if n == 0 {
		return Linear{}, errors.NewValueError("features.DecodeLinear", "direction has no coefficients")
	}
	if len(data) != 4+8*n {
		return Linear{}, errors.NewValueError("features.DecodeLinear",
			fmt.Sprintf("payload has %d bytes for %d coefficients", len(data), n))
	}
	dir := make([]float64, n)
	for i := range dir {
		dir[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[4+8*i:]))
	}
	return Linear{Direction: dir}, nil
}

// LinearFactory draws Linear learners whose coefficients are uniform in
// [-1, 1] before normalisation.
type LinearFactory struct {
	Dimensions int
}

// Random returns a random Linear learner with a unit-length direction.
func (f LinearFactory) Random(rng *rand.Rand) Linear {
	dir := make([]float64, f.Dimensions)
	for {
		for i := range dir {
			dir[i] = 2*rng.Float64() - 1
		}
		if norm := floats.Norm(dir, 2); norm > 1e-12 {
			floats.Scale(1/norm, dir)
			return Linear{Direction: dir}
		}
	}
}
