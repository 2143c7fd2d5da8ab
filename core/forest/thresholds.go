package forest

import (
	"math/rand/v2"
	"slices"
)

// ChooseCandidateThresholds draws up to nWanted candidate split thresholds
// for responses and writes them into dst, which is grown as needed.
//
// When there are more responses than nWanted, nWanted+1 values are sampled
// with replacement as an approximate quantile sketch; otherwise all
// responses are used and len(responses)-1 thresholds are produced. Each
// threshold is drawn uniformly from the open interval between two adjacent
// sorted values. If all
// values are equal no threshold can separate them and an empty slice is
// returned. responses is not modified.
func ChooseCandidateThresholds(rng *rand.Rand, responses []float64, nWanted int, dst []float64) []float64 {
	n := len(responses)
	if n < 2 || nWanted < 1 {
		return dst[:0]
	}

	var nThresholds int
	if n > nWanted {
		nThresholds = nWanted
		dst = grow(dst, nThresholds+1)
		for k := range dst {
			dst[k] = responses[rng.IntN(n)]
		}
	} else {
		nThresholds = n - 1
		dst = grow(dst, n)
		copy(dst, responses)
	}
	slices.Sort(dst)

	if dst[0] == dst[nThresholds] {
		return dst[:0]
	}

	// dst[k+1] is read before it is overwritten, so the samples can be
	// replaced by thresholds in place.
	for k := 0; k < nThresholds; k++ {
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		dst[k] += u * (dst[k+1] - dst[k])
	}
	return dst[:nThresholds]
}

func grow(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
