package triage

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// ConfidenceThreshold is the global review cutoff. A confidence strictly
// below it is flagged; exactly 0.70 is not.
const ConfidenceThreshold = 0.70

// Flag reports whether a prediction with the given confidence needs
// mandatory clinician review.
func Flag(confidence float64) bool {
	return confidence < ConfidenceThreshold
}

// Confidence returns the maximum probability in dist. The distribution must
// be non-empty with every value in [0,1].
func Confidence(dist []float64) (float64, error) {
	if len(dist) == 0 {
		return 0, fmt.Errorf("%w: empty distribution", ErrBadDistribution)
	}
	for i, p := range dist {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return 0, fmt.Errorf("%w: p[%d]=%v outside [0,1]", ErrBadDistribution, i, p)
		}
	}
	return lo.Max(dist), nil
}
