package tolerance

import "fmt"

// Tier is a quality verdict for a survey.
type Tier string

const (
	Excellent  Tier = "excellent"
	Good       Tier = "good"
	Acceptable Tier = "acceptable"
	Poor       Tier = "poor"
)

// Assessment is the quality verdict plus the numbers it was based on.
type Assessment struct {
	Tier            Tier     `json:"tier"`
	PassRate        float64  `json:"pass_rate"`
	Uncertainty     float64  `json:"uncertainty"`
	Recommendations []string `json:"recommendations"`
	Stats           Stats    `json:"stats"`
}

var recommendations = map[Tier][]string{
	Excellent: {
		"Surface is within tolerance across the grid.",
		"No further measurements are needed.",
	},
	Good: {
		"Surface is mostly within tolerance.",
		"Re-measure the flagged points to confirm before sign-off.",
	},
	Acceptable: {
		"Several points exceed tolerance.",
		"Consider localized grinding or patching at the flagged points.",
		"Increase grid density around the exceedances to locate high and low spots.",
	},
	Poor: {
		"Surface fails the tolerance check.",
		"Verify the laser level setup and ruler calibration, then re-measure.",
		"Plan leveling work before installation.",
	},
}

// AssessQuality grades a survey:
//
//	excellent   passRate >= 0.95 and uncertainty < 0.1*tol
//	good        passRate >= 0.90 and uncertainty < 0.2*tol
//	acceptable  passRate >= 0.80
//	poor        otherwise
//
// A warning is appended when the largest pairwise delta exceeds 10% of the
// average value.
func AssessQuality(samples []Sample, tol float64) Assessment {
	st := ComputeStats(samples, tol)
	u := Uncertainty(samples)

	var tier Tier
	switch {
	case st.PassRate >= 0.95 && u < 0.1*tol:
		tier = Excellent
	case st.PassRate >= 0.90 && u < 0.2*tol:
		tier = Good
	case st.PassRate >= 0.80:
		tier = Acceptable
	default:
		tier = Poor
	}

	recs := append([]string(nil), recommendations[tier]...)
	if st.MaxPairwiseDelta > 0.1*st.Average {
		recs = append(recs, fmt.Sprintf(
			"Largest difference between two points (%.3f) exceeds 10%% of the average reading (%.3f); check for a local high or low spot.",
			st.MaxPairwiseDelta, st.Average))
	}

	return Assessment{
		Tier:            tier,
		PassRate:        st.PassRate,
		Uncertainty:     u,
		Recommendations: recs,
		Stats:           st,
	}
}
