package forest

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseCandidateThresholdsDegenerate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, responses := range [][]float64{
		{4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4},
		{4, 4, 4},
		{4},
		nil,
	} {
		got := ChooseCandidateThresholds(rng, responses, 5, nil)
		assert.Empty(t, got, "responses %v", responses)
	}
}

func TestChooseCandidateThresholdsUsesAllResponses(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	responses := []float64{7, -1, 3, 0.5}
	original := slices.Clone(responses)

	got := ChooseCandidateThresholds(rng, responses, 10, nil)
	require.Len(t, got, 3)
	assert.Equal(t, original, responses)

	sorted := slices.Sorted(slices.Values(responses))
	for k, thr := range got {
		assert.Greater(t, thr, sorted[k])
		assert.Less(t, thr, sorted[k+1])
	}
	assert.True(t, slices.IsSorted(got))
}

func TestChooseCandidateThresholdsSamples(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	responses := make([]float64, 200)
	for i := range responses {
		responses[i] = float64(i) * 0.5
	}

	dst := make([]float64, 0, 4)
	got := ChooseCandidateThresholds(rng, responses, 8, dst)
	require.Len(t, got, 8)
	assert.True(t, slices.IsSorted(got))
	for _, thr := range got {
		assert.GreaterOrEqual(t, thr, 0.0)
		assert.LessOrEqual(t, thr, 99.5)
	}

	// The buffer is reused when it is large enough.
	again := ChooseCandidateThresholds(rng, responses, 8, got)
	assert.True(t, &got[0] == &again[0])
}

func TestChooseCandidateThresholdsDeterministic(t *testing.T) {
	responses := []float64{5, 1, 9, 3, 3, 8, 2, 7, 6, 4}
	a := ChooseCandidateThresholds(rand.New(rand.NewPCG(9, 9)), responses, 4, nil)
	b := ChooseCandidateThresholds(rand.New(rand.NewPCG(9, 9)), responses, 4, nil)
	assert.Equal(t, a, b)
}

// zeroFirst yields a zero word before deferring to a PCG source.
type zeroFirst struct {
	zeros int
	src   *rand.PCG
}

func (z *zeroFirst) Uint64() uint64 {
	if z.zeros > 0 {
		z.zeros--
		return 0
	}
	return z.src.Uint64()
}

func TestChooseCandidateThresholdsNeverHitsSample(t *testing.T) {
	rng := rand.New(&zeroFirst{zeros: 3, src: rand.NewPCG(4, 4)})
	responses := []float64{0, 1, 2, 3}

	got := ChooseCandidateThresholds(rng, responses, 10, nil)
	require.Len(t, got, 3)
	for k, th := range got {
		assert.Greater(t, th, float64(k))
		assert.Less(t, th, float64(k+1))
	}
}
