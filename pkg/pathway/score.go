package pathway

import (
	"sort"
	"strings"

	"pathmind/internal/util"
	"pathmind/pkg/common"
	"pathmind/pkg/evidence"
	"pathmind/pkg/logger"
)

// Result carries the scored pathway list together with counters the
// analysis pipeline folds into its quality flags.
type Result struct {
	Pathways       []common.PathwayScore
	SkippedInvalid int
	CandidateCount int
}

// Score aggregates per-target evidence into pathway impact scores.
//
// For every pathway the hit targets are collected across the mapping,
// score = (targets_hit / pathway_size) * median(hit target median potencies),
// rounded to 6 decimals. Pathways with an unknown or zero gene-set size are
// skipped and counted, never scored. Umbrella pathways (depth <= 1) and
// pathways outside the [MinDepth, MaxDepth] band are excluded from display.
// An ancestor whose hit-target set is identical to a surviving descendant is
// deduplicated away, keeping the deepest node.
func Score(targets []common.TargetSummary, pathwaysByTarget map[string][]common.PathwayRef, snapshot *Snapshot, params common.AnalysisParams) Result {
	medians := make(map[string]float64, len(targets))
	for _, target := range targets {
		medians[target.TargetID] = target.MedianPotency
	}

	type bucket struct {
		ref     common.PathwayRef
		targets map[string]struct{}
	}
	buckets := map[string]*bucket{}
	for _, target := range targets {
		for _, ref := range pathwaysByTarget[target.TargetID] {
			if snapshot != nil {
				if resolved, ok := snapshot.Ref(ref.PathwayID); ok {
					ref = resolved
				}
			}
			entry, ok := buckets[ref.PathwayID]
			if !ok {
				entry = &bucket{ref: ref, targets: map[string]struct{}{}}
				buckets[ref.PathwayID] = entry
			}
			entry.targets[target.TargetID] = struct{}{}
		}
	}

	result := Result{CandidateCount: len(buckets)}
	candidates := make([]common.PathwayScore, 0, len(buckets))
	hitSets := make(map[string]string, len(buckets))
	for pathwayID, entry := range buckets {
		if entry.ref.PathwaySize <= 0 {
			logger.Warn("[Pathway] Skipping pathway with unknown gene-set size", "pathway", pathwayID)
			result.SkippedInvalid++
			continue
		}
		if entry.ref.Depth <= 1 {
			continue
		}
		if entry.ref.Depth < params.MinDepth || entry.ref.Depth > params.MaxDepth {
			continue
		}

		targetIDs := make([]string, 0, len(entry.targets))
		values := make([]float64, 0, len(entry.targets))
		for targetID := range entry.targets {
			targetIDs = append(targetIDs, targetID)
			values = append(values, medians[targetID])
		}
		sort.Strings(targetIDs)

		median := evidence.Median(values)
		coverage := util.Round6(float64(len(targetIDs)) / float64(entry.ref.PathwaySize))
		candidates = append(candidates, common.PathwayScore{
			PathwayID:          pathwayID,
			PathwayName:        entry.ref.PathwayName,
			Depth:              entry.ref.Depth,
			PathwaySize:        entry.ref.PathwaySize,
			TargetsHit:         len(targetIDs),
			MedianPotency:      util.Round6(median),
			Score:              util.Round6(float64(len(targetIDs)) / float64(entry.ref.PathwaySize) * median),
			CoverageRatio:      coverage,
			TargetIDs:          targetIDs,
			AncestorPathwayIDs: append([]string(nil), entry.ref.AncestorPathwayIDs...),
			URL:                entry.ref.URL,
		})
		hitSets[pathwayID] = strings.Join(targetIDs, "\x1f")
	}

	// drop ancestors whose hit-target set matches a surviving descendant
	excluded := map[string]bool{}
	for _, candidate := range candidates {
		for _, ancestorID := range candidate.AncestorPathwayIDs {
			ancestorSet, survives := hitSets[ancestorID]
			if survives && ancestorSet == hitSets[candidate.PathwayID] {
				excluded[ancestorID] = true
			}
		}
	}

	kept := candidates[:0]
	for _, candidate := range candidates {
		if !excluded[candidate.PathwayID] {
			kept = append(kept, candidate)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if kept[i].CoverageRatio != kept[j].CoverageRatio {
			return kept[i].CoverageRatio > kept[j].CoverageRatio
		}
		return kept[i].PathwayID < kept[j].PathwayID
	})

	if params.TopPathways > 0 && len(kept) > params.TopPathways {
		kept = kept[:params.TopPathways]
	}
	result.Pathways = kept
	return result
}
