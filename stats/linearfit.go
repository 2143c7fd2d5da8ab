package stats

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/dataset"
)

// minSpread is the smallest sum of squared deviations of x for which a
// slope is fitted; below it the line is flat.
const minSpread = 1e-12

// LinearFit accumulates the least squares statistics of the target against
// the first coordinate of each point, so that a leaf predicts with a line
// instead of a constant.
type LinearFit struct {
	prior       Prior
	SampleCount int
	SumX        float64
	SumXX       float64
	SumY        float64
	SumXY       float64
	SumYY       float64
}

// NewLinearFit returns an empty aggregator using prior for the residual
// variance.
func NewLinearFit(prior Prior) *LinearFit {
	return &LinearFit{prior: prior.normalized()}
}

// Clear implements forest.Aggregator.
func (l *LinearFit) Clear() {
	l.SampleCount = 0
	l.SumX, l.SumXX, l.SumY, l.SumXY, l.SumYY = 0, 0, 0, 0, 0
}

// Aggregate implements forest.Aggregator.
func (l *LinearFit) Aggregate(data forest.PointCollection, index int) {
	c := data.(*dataset.Collection)
	x, y := c.Value(index, 0), c.Target(index)
	l.SampleCount++
	l.SumX += x
	l.SumXX += x * x
	l.SumY += y
	l.SumXY += x * y
	l.SumYY += y * y
}

// Merge implements forest.Aggregator.
func (l *LinearFit) Merge(other *LinearFit) {
	l.SampleCount += other.SampleCount
	l.SumX += other.SumX
	l.SumXX += other.SumXX
	l.SumY += other.SumY
	l.SumXY += other.SumXY
	l.SumYY += other.SumYY
}

// Clone implements forest.Aggregator.
func (l *LinearFit) Clone() *LinearFit {
	c := *l
	return &c
}

// Count returns the number of aggregated points.
func (l *LinearFit) Count() int { return l.SampleCount }

// spreads returns the centred sums Sxx, Sxy and Syy.
func (l *LinearFit) spreads() (sxx, sxy, syy float64) {
	n := float64(l.SampleCount)
	mx, my := l.SumX/n, l.SumY/n
	sxx = math.Max(0, l.SumXX-n*mx*mx)
	sxy = l.SumXY - n*mx*my
	syy = math.Max(0, l.SumYY-n*my*my)
	return sxx, sxy, syy
}

// Line returns the least squares intercept and slope. The slope is 0 when
// fewer than two distinct x values were seen; both are 0 when empty.
func (l *LinearFit) Line() (intercept, slope float64) {
	if l.SampleCount == 0 {
		return 0, 0
	}
	n := float64(l.SampleCount)
	sxx, sxy, _ := l.spreads()
	if sxx > minSpread {
		slope = sxy / sxx
	}
	return l.SumY/n - slope*l.SumX/n, slope
}

// ResidualVariance returns the maximum likelihood variance of the targets
// around the fitted line, or 0 when empty.
func (l *LinearFit) ResidualVariance() float64 {
	if l.SampleCount == 0 {
		return 0
	}
	sxx, sxy, syy := l.spreads()
	rss := syy
	if sxx > minSpread {
		rss -= sxy * sxy / sxx
	}
	return math.Max(0, rss/float64(l.SampleCount))
}

// PosteriorVariance adapts ResidualVariance with the prior.
func (l *LinearFit) PosteriorVariance() float64 {
	alpha := l.prior.alpha(l.SampleCount)
	return alpha*l.ResidualVariance() + (1-alpha)*l.prior.B
}

// Entropy returns the differential entropy, in nats, of the residual
// distribution around the line.
func (l *LinearFit) Entropy() float64 {
	return 0.5 * math.Log(2*math.Pi*math.E*l.PosteriorVariance())
}

// MeanAt returns the line evaluated at x.
func (l *LinearFit) MeanAt(x float64) float64 {
	a, b := l.Line()
	return a + b*x
}

// VarianceAt returns the predictive variance of the target at x: the
// residual variance inflated by the uncertainty of the fitted line.
func (l *LinearFit) VarianceAt(x float64) float64 {
	v := l.PosteriorVariance()
	if l.SampleCount == 0 {
		return v
	}
	n := float64(l.SampleCount)
	inflation := 1 + 1/n
	if sxx, _, _ := l.spreads(); sxx > minSpread {
		d := x - l.SumX/n
		inflation += d * d / sxx
	}
	return v * inflation
}

func (l *LinearFit) String() string {
	a, b := l.Line()
	return fmt.Sprintf("n=%d y=%.4g%+.4g*x var=%.4g", l.SampleCount, a, b, l.ResidualVariance())
}

// MarshalBinary implements forest.Aggregator.
func (l *LinearFit) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.float(l.prior.A)
	e.float(l.prior.B)
	e.uint64(l.SampleCount)
	e.floats([]float64{l.SumX, l.SumXX, l.SumY, l.SumXY, l.SumYY})
	return e.buf, nil
}

// DecodeLinearFit decodes the output of LinearFit.MarshalBinary.
func DecodeLinearFit(data []byte) (*LinearFit, error) {
	d := &decoder{op: "stats.DecodeLinearFit", data: data}
	l := NewLinearFit(Prior{A: d.float(), B: d.float()})
	l.SampleCount = d.uint64()
	if v := d.floats(5); v != nil {
		l.SumX, l.SumXX, l.SumY, l.SumXY, l.SumYY = v[0], v[1], v[2], v[3], v[4]
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return l, nil
}
