package evidence

import (
	"testing"

	"pathmind/pkg/common"
)

func baseInput() RuleInput {
	return RuleInput{
		AssayCount:      4,
		MedianPotency:   7.0,
		PriorConfidence: 9,
		MinAssays:       2,
		Threshold:       5.0,
	}
}

func TestEvaluateTier_High(t *testing.T) {
	tier, reasons := EvaluateTier(baseInput())
	if tier != common.TierHigh {
		t.Fatalf("expected high, got %s", tier)
	}
	if reasons[0] != "high_evidence" {
		t.Fatalf("expected fired rule first, got %v", reasons)
	}
}

func TestEvaluateTier_MediumWhenPriorTooLow(t *testing.T) {
	in := baseInput()
	in.PriorConfidence = 8
	tier, reasons := EvaluateTier(in)
	if tier != common.TierMedium {
		t.Fatalf("expected medium, got %s", tier)
	}
	if reasons[0] != "replicated_above_threshold" {
		t.Fatalf("unexpected reasons %v", reasons)
	}
}

func TestEvaluateTier_MediumTracksThreshold(t *testing.T) {
	in := baseInput()
	in.MedianPotency = 5.5
	in.PriorConfidence = 9
	tier, _ := EvaluateTier(in)
	if tier != common.TierMedium {
		t.Fatalf("expected medium at median 5.5, got %s", tier)
	}

	in.Threshold = 6.5
	tier, _ = EvaluateTier(in)
	if tier != common.TierLow {
		t.Fatalf("expected low below raised threshold, got %s", tier)
	}
}

func TestEvaluateTier_BelowMinAssaysForcesLow(t *testing.T) {
	in := baseInput()
	in.AssayCount = 1
	in.MedianPotency = 9.5
	tier, reasons := EvaluateTier(in)
	if tier != common.TierLow {
		t.Fatalf("expected low below min assays, got %s", tier)
	}
	if reasons[0] != "below_min_assays" {
		t.Fatalf("unexpected reasons %v", reasons)
	}
}

func tierRank(tier common.ConfidenceTier) int {
	switch tier {
	case common.TierHigh:
		return 2
	case common.TierMedium:
		return 1
	default:
		return 0
	}
}

// Increasing assay count or median potency, everything else fixed, must never
// decrease the tier.
func TestEvaluateTier_Monotonic(t *testing.T) {
	medians := []float64{3.0, 4.9, 5.0, 5.5, 6.0, 7.5, 9.0}
	priors := []int{7, 8, 9}

	for _, prior := range priors {
		for counts := 0; counts < 6; counts++ {
			prevRank := -1
			for _, median := range medians {
				in := baseInput()
				in.AssayCount = counts
				in.MedianPotency = median
				in.PriorConfidence = prior
				tier, _ := EvaluateTier(in)
				if rank := tierRank(tier); rank < prevRank {
					t.Fatalf("tier decreased with rising median: count=%d prior=%d median=%f", counts, prior, median)
				} else {
					prevRank = rank
				}
			}
		}
		for _, median := range medians {
			prevRank := -1
			for counts := 0; counts < 6; counts++ {
				in := baseInput()
				in.AssayCount = counts
				in.MedianPotency = median
				in.PriorConfidence = prior
				tier, _ := EvaluateTier(in)
				if rank := tierRank(tier); rank < prevRank {
					t.Fatalf("tier decreased with rising assay count: count=%d prior=%d median=%f", counts, prior, median)
				} else {
					prevRank = rank
				}
			}
		}
	}
}
