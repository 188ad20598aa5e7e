package screening

import "math"

// Dynamic split tuning. The centroid gap below which the score
// distribution is considered degenerate, the threshold above which a
// degenerate distribution counts as all-high, and the iteration cap.
const (
	splitDegenerateGap = 0.05
	splitHighThreshold = 0.7
	splitMaxIterations = 5
	splitConvergence   = 0.001
)

// DynamicSplit partitions a descending-sorted score list into top and
// bottom tiers with 1-D 2-means clustering, returning the top-tier size.
// The result is always in [min(minTopCount, n), n].
func DynamicSplit(scores []float64, minTopCount int) int {
	n := len(scores)
	if n == 0 {
		return 0
	}
	if n < minTopCount {
		return n
	}

	cHi, cLo := scores[0], scores[n-1]
	if cHi-cLo < splitDegenerateGap {
		// All scores effectively identical: everyone is top tier when the
		// level is high, otherwise just the floor.
		if cHi > splitHighThreshold {
			return n
		}
		return minTopCount
	}

	split := n
	for iter := 0; iter < splitMaxIterations; iter++ {
		split = n
		for i, s := range scores {
			if math.Abs(s-cLo) < math.Abs(s-cHi) {
				split = i
				break
			}
		}

		newHi, newLo := mean(scores[:split]), mean(scores[split:])
		if math.Abs(newHi-cHi) < splitConvergence && math.Abs(newLo-cLo) < splitConvergence {
			cHi, cLo = newHi, newLo
			break
		}
		cHi, cLo = newHi, newLo
	}

	if split < minTopCount {
		return minTopCount
	}
	return split
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
