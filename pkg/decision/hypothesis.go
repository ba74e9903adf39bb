package decision

import "github.com/yasi-python/abtest/pkg/stats"

type Check string

const (
	CheckNormality  Check = "normality"
	CheckVariance   Check = "variance_homogeneity"
	CheckComparison Check = "comparison"
)

type Hypothesis struct {
	H0 string `json:"h0"`
	H1 string `json:"h1"`
}

func HypothesisFor(c Check, kind stats.TestKind) Hypothesis {
	switch c {
	case CheckNormality:
		return Hypothesis{H0: "the data follows a normal distribution", H1: "the data does not follow a normal distribution"}
	case CheckVariance:
		return Hypothesis{H0: "the variances of the groups are equal", H1: "the variances of the groups are not equal"}
	}
	if kind == stats.NonParametric {
		return Hypothesis{H0: "the two groups have the same distribution", H1: "one group tends to take larger values than the other"}
	}
	return Hypothesis{H0: "M1 == M2: the group means are equal", H1: "M1 != M2: the group means differ"}
}

// Verdict phrases d for check c in plain words.
func Verdict(c Check, d Decision) string {
	if d.FailToReject {
		switch c {
		case CheckNormality:
			return "H0 cannot be rejected: normality assumption holds"
		case CheckVariance:
			return "H0 cannot be rejected: variances are homogeneous"
		}
		return "H0 cannot be rejected: no statistically significant difference"
	}
	switch c {
	case CheckNormality:
		return "H0 rejected: data is not normally distributed"
	case CheckVariance:
		return "H0 rejected: variances differ"
	}
	return "H0 rejected: statistically significant difference"
}
