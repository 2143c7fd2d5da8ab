package dataset

import (
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Generate1dGrid returns steps points evenly spaced from lo, with spacing
// (hi-lo)/steps.
func Generate1dGrid(lo, hi float64, steps int) (*Collection, error) {
	if lo >= hi {
		return nil, errors.NewValidationError("range", "lower bound must be below upper bound", [2]float64{lo, hi})
	}
	if steps < 1 {
		return nil, errors.NewValidationError("steps", "must be at least 1", steps)
	}
	step := (hi - lo) / float64(steps)
	data := make([]float64, steps)
	for i := range data {
		data[i] = lo + float64(i)*step
	}
	return New(1, data)
}

// Generate2dGrid returns an xSteps by ySteps lattice of 2-D points, x
// varying fastest.
func Generate2dGrid(xLo, xHi float64, xSteps int, yLo, yHi float64, ySteps int) (*Collection, error) {
	if xLo >= xHi {
		return nil, errors.NewValidationError("x range", "lower bound must be below upper bound", [2]float64{xLo, xHi})
	}
	if yLo >= yHi {
		return nil, errors.NewValidationError("y range", "lower bound must be below upper bound", [2]float64{yLo, yHi})
	}
	if xSteps < 1 || ySteps < 1 {
		return nil, errors.NewValidationError("steps", "must be at least 1", [2]int{xSteps, ySteps})
	}

	xStep := (xHi - xLo) / float64(xSteps)
	yStep := (yHi - yLo) / float64(ySteps)
	data := make([]float64, 0, 2*xSteps*ySteps)
	for j := 0; j < ySteps; j++ {
		for i := 0; i < xSteps; i++ {
			data = append(data, xLo+float64(i)*xStep, yLo+float64(j)*yStep)
		}
	}
	return New(2, data)
}
