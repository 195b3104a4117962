package evidence

import (
	"sort"

	"pathmind/pkg/common"
)

const maxSourceAssayIDs = 50

// defaultPriorConfidence is assumed when the activity provider carries no
// prior for a target. 8 keeps such targets out of the high tier without
// discarding them.
const defaultPriorConfidence = 8

// MeetsAssayFilters reports whether a raw activity record may enter
// aggregation: exact-relation, unflagged, human-or-unstated organism, binding
// or functional assay, with a potency value present.
func MeetsAssayFilters(record common.ActivityRecord) bool {
	if record.Relation != "=" {
		return false
	}
	if record.Flagged {
		return false
	}
	if record.Potency == nil {
		return false
	}
	if record.Organism != "" && record.Organism != "Homo sapiens" {
		return false
	}
	// organism is often missing on activity records; the target-level
	// organism check happens against the annotation instead
	return record.AssayType == "" || record.AssayType == "B" || record.AssayType == "F"
}

// Aggregate reduces raw activity records into per-target potency and
// confidence summaries. Every target with at least one valid record is
// retained: targets below MinAssays are flagged low-confidence, never
// dropped. The result is sorted by descending median potency, ties broken by
// ascending target id, so identical inputs produce identical output.
func Aggregate(
	records []common.ActivityRecord,
	annotations map[string]common.TargetAnnotation,
	params common.AnalysisParams,
) []common.TargetSummary {
	type bucket struct {
		values   []float64
		assayIDs []string
	}
	buckets := map[string]*bucket{}

	for _, record := range records {
		if !MeetsAssayFilters(record) {
			continue
		}
		if record.TargetID == "" {
			continue
		}
		potency := *record.Potency
		if potency < params.PotencyThreshold {
			continue
		}
		annotation, ok := annotations[record.TargetID]
		if ok && annotation.Organism != "" && annotation.Organism != "Homo sapiens" {
			continue
		}

		b := buckets[record.TargetID]
		if b == nil {
			b = &bucket{}
			buckets[record.TargetID] = b
		}
		b.values = append(b.values, potency)
		if record.AssayID != "" && len(b.assayIDs) < maxSourceAssayIDs {
			b.assayIDs = append(b.assayIDs, record.AssayID)
		}
	}

	summaries := make([]common.TargetSummary, 0, len(buckets))
	for targetID, b := range buckets {
		annotation := annotations[targetID]
		prior := annotation.PriorConfidence
		if prior == 0 {
			prior = defaultPriorConfidence
		}

		spread := AssaySpread(b.values)
		tier, reasons := EvaluateTier(RuleInput{
			AssayCount:      len(b.values),
			MedianPotency:   spread.Median,
			PriorConfidence: prior,
			IQR:             spread.IQR,
			MinAssays:       params.MinAssays,
			Threshold:       params.PotencyThreshold,
		})

		name := annotation.TargetName
		if name == "" {
			name = targetID
		}
		mapping := common.MappingUnmapped
		if annotation.AccessionID != "" {
			mapping = common.MappingMapped
		}

		summaries = append(summaries, common.TargetSummary{
			TargetID:          targetID,
			TargetName:        name,
			GeneSymbol:        annotation.GeneSymbol,
			AccessionID:       annotation.AccessionID,
			ActionType:        "UNKNOWN",
			MedianPotency:     spread.Median,
			AssayCount:        len(b.values),
			PotencyMin:        spread.Min,
			PotencyMax:        spread.Max,
			PotencyIQR:        spread.IQR,
			PriorConfidence:   prior,
			ConfidenceTier:    tier,
			ConfidenceReasons: reasons,
			LowConfidence:     tier == common.TierLow,
			MappingStatus:     mapping,
			SourceAssayIDs:    b.assayIDs,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].MedianPotency != summaries[j].MedianPotency {
			return summaries[i].MedianPotency > summaries[j].MedianPotency
		}
		return summaries[i].TargetID < summaries[j].TargetID
	})
	return summaries
}

// Visible filters summaries down to what default views display: when
// IncludeLowConfidence is unset, low-confidence targets are held back (they
// remain in the full aggregate for auditing).
func Visible(summaries []common.TargetSummary, params common.AnalysisParams) []common.TargetSummary {
	if params.IncludeLowConfidence {
		return summaries
	}
	visible := make([]common.TargetSummary, 0, len(summaries))
	for _, summary := range summaries {
		if summary.LowConfidence {
			continue
		}
		visible = append(visible, summary)
	}
	return visible
}
