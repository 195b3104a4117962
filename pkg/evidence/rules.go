package evidence

import (
	"fmt"

	"pathmind/pkg/common"
)

// RuleInput is everything a tier rule may look at. Tier assignment is a pure
// function of these values; tiers are never hand-overridden.
type RuleInput struct {
	AssayCount      int
	MedianPotency   float64
	PriorConfidence int
	IQR             float64
	MinAssays       int
	Threshold       float64
}

// TierRule is one named predicate in the confidence ladder. Rules are
// evaluated in fixed order; the first rule whose predicate holds decides the
// tier, and its name is recorded verbatim for auditability.
type TierRule struct {
	Name    string
	Tier    common.ConfidenceTier
	Applies func(in RuleInput) bool
}

// TierRules returns the ordered confidence ladder. The final rule always
// applies, so evaluation is total.
func TierRules() []TierRule {
	return []TierRule{
		{
			Name: "below_min_assays",
			Tier: common.TierLow,
			Applies: func(in RuleInput) bool {
				return in.AssayCount < in.MinAssays
			},
		},
		{
			Name: "high_evidence",
			Tier: common.TierHigh,
			Applies: func(in RuleInput) bool {
				return in.AssayCount >= 2 && in.MedianPotency >= 6.0 && in.PriorConfidence >= 9
			},
		},
		{
			Name: "replicated_above_threshold",
			Tier: common.TierMedium,
			Applies: func(in RuleInput) bool {
				return in.AssayCount >= 2 && in.MedianPotency >= in.Threshold
			},
		},
		{
			Name: "sparse_evidence",
			Tier: common.TierLow,
			Applies: func(in RuleInput) bool {
				return true
			},
		},
	}
}

// EvaluateTier walks the ladder and returns the decided tier together with
// the ordered reason list: the fired rule's name followed by the factor
// predicates that held for this input.
func EvaluateTier(in RuleInput) (common.ConfidenceTier, []string) {
	for _, rule := range TierRules() {
		if !rule.Applies(in) {
			continue
		}
		reasons := append([]string{rule.Name}, factorReasons(in)...)
		return rule.Tier, reasons
	}
	// unreachable: sparse_evidence always applies
	return common.TierLow, []string{"sparse_evidence"}
}

// factorReasons records how each input factor sits against the rule
// thresholds, in a fixed order.
func factorReasons(in RuleInput) []string {
	reasons := make([]string, 0, 3)

	if in.AssayCount >= 2 {
		reasons = append(reasons, "assay_count>=2")
	} else {
		reasons = append(reasons, "assay_count<2")
	}

	switch {
	case in.MedianPotency >= 6.0:
		reasons = append(reasons, "median_potency>=6.0")
	case in.MedianPotency >= in.Threshold:
		reasons = append(reasons, fmt.Sprintf("median_potency>=%.1f", in.Threshold))
	default:
		reasons = append(reasons, fmt.Sprintf("median_potency<%.1f", in.Threshold))
	}

	if in.PriorConfidence >= 9 {
		reasons = append(reasons, "target_prior>=9")
	} else {
		reasons = append(reasons, "target_prior<9")
	}

	return reasons
}
