package decision

import (
	"github.com/yasi-python/abtest/pkg/stats"
)

// DefaultAlpha is the significance level used when none is configured.
const DefaultAlpha = 0.05

type Outcome string

const (
	OutcomeFailToReject Outcome = "fail_to_reject"
	OutcomeReject       Outcome = "reject"
)

type Decision struct {
	Outcome Outcome `json:"outcome"`
	// FailToReject is true when p >= alpha: the null hypothesis stands.
	FailToReject bool    `json:"fail_to_reject"`
	PValue       float64 `json:"p_value"`
	Alpha        float64 `json:"alpha"`
	Reason       string  `json:"reason"`
}

// Decide thresholds result's p-value at alpha. Only p < alpha rejects; p
// equal to alpha fails to reject.
func Decide(result stats.TestResult, alpha float64) Decision {
	if result.PValue < alpha {
		return Decision{Outcome: OutcomeReject, PValue: result.PValue, Alpha: alpha, Reason: "p_below_alpha"}
	}
	return Decision{Outcome: OutcomeFailToReject, FailToReject: true, PValue: result.PValue, Alpha: alpha, Reason: "p_at_or_above_alpha"}
}

type Assumptions struct {
	NormalControl bool `json:"normal_control"`
	NormalTest    bool `json:"normal_test"`
	EqualVariance bool `json:"equal_variance"`
}

type Selection struct {
	Kind   stats.TestKind `json:"kind"`
	Reason string         `json:"reason"`
}

// Select maps the assumption outcomes to a comparison test. Normality of both
// groups is required for a t-test; variance equality only picks between the
// pooled and the Welch variant.
func Select(normalControl, normalTest, equalVariance bool) stats.TestKind {
	return Evaluate(Assumptions{NormalControl: normalControl, NormalTest: normalTest, EqualVariance: equalVariance}).Kind
}

func Evaluate(in Assumptions) Selection {
	if !in.NormalControl || !in.NormalTest {
		return Selection{Kind: stats.NonParametric, Reason: "normality_rejected"}
	}
	if in.EqualVariance {
		return Selection{Kind: stats.ParametricEqualVar, Reason: "normal_equal_variance"}
	}
	return Selection{Kind: stats.ParametricUnequalVar, Reason: "normal_unequal_variance"}
}
