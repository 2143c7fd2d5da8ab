package stats

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Prior is a conjugate prior on a Gaussian's variance: A effective prior
// observations, each with variance B. A posterior variance is
// alpha*v + (1-alpha)*B with alpha = n/(n+A), so leaves with few samples
// stay non-degenerate.
type Prior struct {
	A float64
	B float64
}

// DefaultPrior matches the command line defaults.
var DefaultPrior = Prior{A: 10, B: 400}

// TargetPrior is the default prior on regression residuals. It only keeps
// pure leaves from reaching zero variance.
var TargetPrior = Prior{A: 1, B: 0.01}

// normalized clamps the prior away from zero so that covariances are
// never singular even when the caller disables it.
func (p Prior) normalized() Prior {
	if p.A < 0.001 {
		p.A = 0.001
	}
	if p.B < 1e-6 {
		p.B = 1e-6
	}
	return p
}

func (p Prior) alpha(n int) float64 {
	return float64(n) / (float64(n) + p.A)
}

// TargetGaussian accumulates the target values of a regression collection.
type TargetGaussian struct {
	prior       Prior
	SampleCount int
	Sum         float64
	SumSquares  float64
}

// NewTargetGaussian returns an empty aggregator using prior.
func NewTargetGaussian(prior Prior) *TargetGaussian {
	return &TargetGaussian{prior: prior.normalized()}
}

func (g *TargetGaussian) String() string {
	return fmt.Sprintf("n=%d mean=%.4g var=%.4g", g.SampleCount, g.Mean(), g.Variance())
}

// Clear implements forest.Aggregator.
func (g *TargetGaussian) Clear() {
	g.SampleCount, g.Sum, g.SumSquares = 0, 0, 0
}

// Aggregate implements forest.Aggregator.
func (g *TargetGaussian) Aggregate(data forest.PointCollection, index int) {
	t := data.(*dataset.Collection).Target(index)
	g.SampleCount++
	g.Sum += t
	g.SumSquares += t * t
}

// Merge implements forest.Aggregator.
func (g *TargetGaussian) Merge(other *TargetGaussian) {
	g.SampleCount += other.SampleCount
	g.Sum += other.Sum
	g.SumSquares += other.SumSquares
}

// Clone implements forest.Aggregator.
func (g *TargetGaussian) Clone() *TargetGaussian {
	c := *g
	return &c
}

// Count returns the number of aggregated targets.
func (g *TargetGaussian) Count() int { return g.SampleCount }

// Mean returns the sample mean, or 0 when empty.
func (g *TargetGaussian) Mean() float64 {
	if g.SampleCount == 0 {
		return 0
	}
	return g.Sum / float64(g.SampleCount)
}

// Variance returns the maximum likelihood variance, or 0 when empty.
func (g *TargetGaussian) Variance() float64 {
	if g.SampleCount == 0 {
		return 0
	}
	n := float64(g.SampleCount)
	mean := g.Sum / n
	return math.Max(0, g.SumSquares/n-mean*mean)
}

// PosteriorVariance adapts Variance with the prior.
func (g *TargetGaussian) PosteriorVariance() float64 {
	alpha := g.prior.alpha(g.SampleCount)
	return alpha*g.Variance() + (1-alpha)*g.prior.B
}

// Entropy returns the differential entropy, in nats, of the posterior
// Gaussian.
func (g *TargetGaussian) Entropy() float64 {
	return 0.5 * math.Log(2*math.Pi*math.E*g.PosteriorVariance())
}

// MarshalBinary implements forest.Aggregator.
func (g *TargetGaussian) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.float(g.prior.A)
	e.float(g.prior.B)
	e.uint64(g.SampleCount)
	e.float(g.Sum)
	e.float(g.SumSquares)
	return e.buf, nil
}

// DecodeTargetGaussian decodes the output of TargetGaussian.MarshalBinary.
func DecodeTargetGaussian(data []byte) (*TargetGaussian, error) {
	d := &decoder{op: "stats.DecodeTargetGaussian", data: data}
	g := NewTargetGaussian(Prior{A: d.float(), B: d.float()})
	g.SampleCount = d.uint64()
	g.Sum = d.float()
	g.SumSquares = d.float()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return g, nil
}

const maxGaussianDims = 1 << 12

// Gaussian accumulates the sufficient statistics of d-dimensional points:
// the count, the coordinate sums and the sums of coordinate products.
type Gaussian struct {
	prior       Prior
	dims        int
	SampleCount int
	Sum         []float64
	SumProducts []float64 // dims x dims, row major
}

// NewGaussian returns an empty aggregator for dims-dimensional points.
func NewGaussian(dims int, prior Prior) *Gaussian {
	return &Gaussian{
		prior:       prior.normalized(),
		dims:        dims,
		Sum:         make([]float64, dims),
		SumProducts: make([]float64, dims*dims),
	}
}

func (g *Gaussian) String() string {
	mean := make([]float64, g.dims)
	if g.SampleCount > 0 {
		for i, v := range g.Sum {
			mean[i] = v / float64(g.SampleCount)
		}
	}
	return fmt.Sprintf("n=%d mean=%.4g", g.SampleCount, mean)
}

// Dimensions returns the point dimension.
func (g *Gaussian) Dimensions() int { return g.dims }

// Clear implements forest.Aggregator.
func (g *Gaussian) Clear() {
	g.SampleCount = 0
	clear(g.Sum)
	clear(g.SumProducts)
}

// Aggregate implements forest.Aggregator.
func (g *Gaussian) Aggregate(data forest.PointCollection, index int) {
	x := data.(*dataset.Collection).Point(index)
	g.SampleCount++
	for i := 0; i < g.dims; i++ {
		g.Sum[i] += x[i]
		row := g.SumProducts[i*g.dims : (i+1)*g.dims]
		for j := 0; j < g.dims; j++ {
			row[j] += x[i] * x[j]
		}
	}
}

// Merge implements forest.Aggregator.
func (g *Gaussian) Merge(other *Gaussian) {
	g.SampleCount += other.SampleCount
	for i, v := range other.Sum {
		g.Sum[i] += v
	}
	for i, v := range other.SumProducts {
		g.SumProducts[i] += v
	}
}

// Clone implements forest.Aggregator.
func (g *Gaussian) Clone() *Gaussian {
	return &Gaussian{
		prior:       g.prior,
		dims:        g.dims,
		SampleCount: g.SampleCount,
		Sum:         append([]float64(nil), g.Sum...),
		SumProducts: append([]float64(nil), g.SumProducts...),
	}
}

// Pdf returns the mean and the prior-adapted covariance. An empty
// aggregator has zero mean and covariance B*I.
func (g *Gaussian) Pdf() ([]float64, *mat.SymDense) {
	mean := make([]float64, g.dims)
	cov := mat.NewSymDense(g.dims, nil)
	alpha := g.prior.alpha(g.SampleCount)

	if g.SampleCount > 0 {
		n := float64(g.SampleCount)
		for i := range mean {
			mean[i] = g.Sum[i] / n
		}
		for i := 0; i < g.dims; i++ {
			for j := i; j < g.dims; j++ {
				v := g.SumProducts[i*g.dims+j]/n - mean[i]*mean[j]
				cov.SetSym(i, j, alpha*v)
			}
		}
	}
	for i := 0; i < g.dims; i++ {
		cov.SetSym(i, i, cov.At(i, i)+(1-alpha)*g.prior.B)
	}
	return mean, cov
}

// Entropy returns 0.5*log((2*pi*e)^d * det(cov)) in nats, or +Inf when the
// covariance is not positive definite.
func (g *Gaussian) Entropy() float64 {
	_, cov := g.Pdf()
	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return math.Inf(1)
	}
	return 0.5 * (float64(g.dims)*math.Log(2*math.Pi*math.E) + chol.LogDet())
}

// Normal returns the posterior density as a gonum multivariate normal.
func (g *Gaussian) Normal() (*distmv.Normal, error) {
	mean, cov := g.Pdf()
	normal, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return nil, errors.NewNumericalInstabilityError("stats.Gaussian.Normal", mean, g.SampleCount)
	}
	return normal, nil
}

// massSamples is the Monte Carlo sample count used by Mass for cells
// bounded on more than one axis.
const massSamples = 1 << 13

// Mass returns the probability the posterior Gaussian assigns to the
// axis-aligned cell lower <= x < upper. Infinite bounds are allowed. Cells
// bounded on at most one axis are integrated exactly with the marginal
// normal; others are estimated from a fixed-seed sample, floored at
// 1/massSamples.
func (g *Gaussian) Mass(lower, upper []float64) (float64, error) {
	if len(lower) != g.dims || len(upper) != g.dims {
		return 0, errors.NewDimensionError("stats.Gaussian.Mass", g.dims, len(lower), 1)
	}
	var bounded []int
	for i := range lower {
		if !math.IsInf(lower[i], -1) || !math.IsInf(upper[i], 1) {
			bounded = append(bounded, i)
		}
	}
	mean, cov := g.Pdf()
	switch len(bounded) {
	case 0:
		return 1, nil
	case 1:
		i := bounded[0]
		marginal := distuv.Normal{Mu: mean[i], Sigma: math.Sqrt(cov.At(i, i))}
		return marginal.CDF(upper[i]) - marginal.CDF(lower[i]), nil
	}

	normal, ok := distmv.NewNormal(mean, cov, rand.NewPCG(1, uint64(g.dims)))
	if !ok {
		return 0, errors.NewNumericalInstabilityError("stats.Gaussian.Mass", mean, g.SampleCount)
	}
	x := make([]float64, g.dims)
	inside := 0
	for k := 0; k < massSamples; k++ {
		normal.Rand(x)
		in := true
		for _, i := range bounded {
			if x[i] < lower[i] || x[i] >= upper[i] {
				in = false
				break
			}
		}
		if in {
			inside++
		}
	}
	return float64(max(inside, 1)) / massSamples, nil
}

// LogProbability returns the log density of x under the posterior Gaussian.
func (g *Gaussian) LogProbability(x []float64) (float64, error) {
	if len(x) != g.dims {
		return 0, errors.NewDimensionError("stats.Gaussian.LogProbability", g.dims, len(x), 1)
	}
	normal, err := g.Normal()
	if err != nil {
		return 0, err
	}
	return normal.LogProb(x), nil
}

// MarshalBinary implements forest.Aggregator.
func (g *Gaussian) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.uint32(g.dims)
	e.float(g.prior.A)
	e.float(g.prior.B)
	e.uint64(g.SampleCount)
	e.floats(g.Sum)
	e.floats(g.SumProducts)
	return e.buf, nil
}

// DecodeGaussian decodes the output of Gaussian.MarshalBinary.
func DecodeGaussian(data []byte) (*Gaussian, error) {
	d := &decoder{op: "stats.DecodeGaussian", data: data}
	dims := d.uint32()
	if dims > maxGaussianDims {
		return nil, errors.NewValueError(d.op, fmt.Sprintf("%d dimensions exceeds limit %d", dims, maxGaussianDims))
	}
	if d.err == nil && 8*(2+1+dims+dims*dims) != len(d.data) {
		return nil, errors.NewValueError(d.op, fmt.Sprintf("payload size does not match %d dimensions", dims))
	}
	g := NewGaussian(dims, Prior{A: d.float(), B: d.float()})
	g.SampleCount = d.uint64()
	copy(g.Sum, d.floats(dims))
	copy(g.SumProducts, d.floats(dims*dims))
	if err := d.finish(); err != nil {
		return nil, err
	}
	return g, nil
}
