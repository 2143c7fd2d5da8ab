package forest

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// points is a labelled d-dimensional collection used by the tests.
type points struct {
	x       [][]float64
	labels  []int
	classes int
}

func (p *points) Count() int { return len(p.x) }

func newPoints(classes int, labels []int, x ...[]float64) *points {
	return &points{x: x, labels: labels, classes: classes}
}

// axis responds with one coordinate of a point.
type axis struct {
	Dim int
}

func (a axis) Response(data PointCollection, index int) float64 {
	return data.(*points).x[index][a.Dim]
}

func (a axis) MarshalBinary() ([]byte, error) {
	return binary.LittleEndian.AppendUint32(nil, uint32(a.Dim)), nil
}

func decodeAxis(data []byte) (axis, error) {
	if len(data) != 4 {
		return axis{}, errors.Newf("axis payload has %d bytes", len(data))
	}
	return axis{Dim: int(binary.LittleEndian.Uint32(data))}, nil
}

// hist counts class labels.
type hist struct {
	Bins  []int
	Total int
}

func newHist(classes int) *hist { return &hist{Bins: make([]int, classes)} }

func (h *hist) Clear() {
	for i := range h.Bins {
		h.Bins[i] = 0
	}
	h.Total = 0
}

func (h *hist) Aggregate(data PointCollection, index int) {
	h.Bins[data.(*points).labels[index]]++
	h.Total++
}

func (h *hist) Merge(other *hist) {
	for i, c := range other.Bins {
		h.Bins[i] += c
	}
	h.Total += other.Total
}

func (h *hist) Clone() *hist {
	return &hist{Bins: append([]int(nil), h.Bins...), Total: h.Total}
}

func (h *hist) MarshalBinary() ([]byte, error) {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(h.Bins)))
	for _, c := range h.Bins {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
	}
	return buf, nil
}

func decodeHist(data []byte) (*hist, error) {
	if len(data) < 4 {
		return nil, errors.New("short histogram payload")
	}
	n := int(binary.LittleEndian.Uint32(data))
	if len(data) != 4+4*n {
		return nil, errors.Newf("histogram payload has %d bytes for %d bins", len(data), n)
	}
	h := newHist(n)
	for i := range h.Bins {
		h.Bins[i] = int(binary.LittleEndian.Uint32(data[4+4*i:]))
		h.Total += h.Bins[i]
	}
	return h, nil
}

func (h *hist) entropy() float64 {
	if h.Total == 0 {
		return 0
	}
	e := 0.0
	for _, c := range h.Bins {
		if c > 0 {
			p := float64(c) / float64(h.Total)
			e -= p * math.Log2(p)
		}
	}
	return e
}

var testCodec = Codec[axis, *hist]{Learner: decodeAxis, Statistics: decodeHist}

// classification is an entropy-gain training context over axis learners.
type classification struct {
	dims      int
	classes   int
	stopBelow float64
}

func (c classification) RandomLearner(rng *rand.Rand) axis { return axis{Dim: rng.IntN(c.dims)} }

func (c classification) NewAggregator() *hist { return newHist(c.classes) }

func (c classification) InformationGain(parent, left, right *hist) float64 {
	if parent.Total <= 1 {
		return 0
	}
	after := (float64(left.Total)*left.entropy() + float64(right.Total)*right.entropy()) / float64(parent.Total)
	return parent.entropy() - after
}

func (c classification) ShouldTerminate(_, _, _ *hist, gain float64) bool {
	return gain < c.stopBelow
}

// nanContext reports NaN gains.
type nanContext struct{ classification }

func (nanContext) InformationGain(_, _, _ *hist) float64 { return math.NaN() }

// panicLearner panics when evaluated.
type panicLearner struct{ axis }

func (panicLearner) Response(PointCollection, int) float64 { panic("learner exploded") }

type panicContext struct{ classification }

func (p panicContext) RandomLearner(*rand.Rand) panicLearner { return panicLearner{} }

// countingRecorder records training observations.
type countingRecorder struct {
	nodes map[NodeKind]int
	trees int
}

func (r *countingRecorder) ObserveNode(kind NodeKind, _ int) {
	if r.nodes == nil {
		r.nodes = make(map[NodeKind]int)
	}
	r.nodes[kind]++
}

func (r *countingRecorder) ObserveTree(time.Duration) { r.trees++ }

// twoBlobs returns n points per class on either side of x = 5, with a
// noisy second coordinate.
func twoBlobs(n int, seed uint64) *points {
	rng := rand.New(rand.NewPCG(seed, seed))
	p := &points{classes: 2}
	for i := 0; i < 2*n; i++ {
		label := i % 2
		x := rng.Float64()*4 + float64(label)*6
		p.x = append(p.x, []float64{x, rng.Float64() * 10})
		p.labels = append(p.labels, label)
	}
	return p
}
