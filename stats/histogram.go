package stats

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Histogram counts class labels. Points labelled dataset.UnknownLabel are
// ignored.
type Histogram struct {
	Bins        []int
	SampleCount int
}

// NewHistogram returns an empty histogram over classes classes.
func NewHistogram(classes int) *Histogram {
	return &Histogram{Bins: make([]int, classes)}
}

// Clear implements forest.Aggregator.
func (h *Histogram) Clear() {
	clear(h.Bins)
	h.SampleCount = 0
}

// Aggregate implements forest.Aggregator.
func (h *Histogram) Aggregate(data forest.PointCollection, index int) {
	label := data.(*dataset.Collection).Label(index)
	if label == dataset.UnknownLabel {
		return
	}
	h.Bins[label]++
	h.SampleCount++
}

// Merge implements forest.Aggregator.
func (h *Histogram) Merge(other *Histogram) {
	for i, c := range other.Bins {
		h.Bins[i] += c
	}
	h.SampleCount += other.SampleCount
}

// Clone implements forest.Aggregator.
func (h *Histogram) Clone() *Histogram {
	return &Histogram{Bins: append([]int(nil), h.Bins...), SampleCount: h.SampleCount}
}

func (h *Histogram) String() string { return fmt.Sprintf("n=%d %v", h.SampleCount, h.Bins) }

// Probability returns the fraction of samples in class, or 0 for an empty
// histogram.
func (h *Histogram) Probability(class int) float64 {
	return errors.SafeDivide(float64(h.Bins[class]), float64(h.SampleCount))
}

// Entropy returns the Shannon entropy of the class distribution in bits.
func (h *Histogram) Entropy() float64 {
	if h.SampleCount == 0 {
		return 0
	}
	e := 0.0
	for _, c := range h.Bins {
		if c > 0 {
			p := float64(c) / float64(h.SampleCount)
			e -= p * math.Log2(p)
		}
	}
	return e
}

// TallestBin returns the most frequent class; the lowest class wins ties.
func (h *Histogram) TallestBin() int {
	best := 0
	for i, c := range h.Bins {
		if c > h.Bins[best] {
			best = i
		}
	}
	return best
}

// MarshalBinary implements forest.Aggregator.
func (h *Histogram) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.uint32(len(h.Bins))
	for _, c := range h.Bins {
		e.uint64(c)
	}
	return e.buf, nil
}

// DecodeHistogram decodes the output of Histogram.MarshalBinary.
func DecodeHistogram(data []byte) (*Histogram, error) {
	d := &decoder{op: "stats.DecodeHistogram", data: data}
	n := d.uint32()
	if d.err == nil && len(d.data) != 8*n {
		return nil, errors.NewValueError(d.op, fmt.Sprintf("payload has %d bin bytes for %d bins", len(d.data), n))
	}
	h := NewHistogram(n)
	for i := range h.Bins {
		h.Bins[i] = d.uint64()
		h.SampleCount += h.Bins[i]
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return h, nil
}
