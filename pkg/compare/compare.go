// Package compare builds the side-by-side view of two completed analyses:
// a union table over both drugs' top pathways plus set and vector similarity
// metrics. Comparison never re-scores anything, it reads two frozen results.
package compare

import (
	"fmt"
	"math"
	"sort"

	"pathmind/internal/util"
	"pathmind/pkg/common"
)

// Compare joins two analysis results. Both analyses must have been produced
// with identical parameters, otherwise deltas would mix scoring regimes.
func Compare(analysisA, analysisB *common.AnalysisResult) (*common.CompareResult, error) {
	if analysisA == nil || analysisB == nil {
		return nil, fmt.Errorf("%w: comparison requires two analyses", common.ErrValidation)
	}
	if analysisA.Params != analysisB.Params {
		return nil, fmt.Errorf("%w: analyses %s and %s were run with different parameters", common.ErrConfiguration, analysisA.AnalysisID, analysisB.AnalysisID)
	}

	rows := buildRows(analysisA.Pathways, analysisB.Pathways)
	return &common.CompareResult{
		AnalysisA: analysisA,
		AnalysisB: analysisB,
		Rows:      rows,
		Metrics:   buildMetrics(analysisA, analysisB, rows),
	}, nil
}

func buildRows(pathwaysA, pathwaysB []common.PathwayScore) []common.CompareRow {
	type entry struct {
		name   string
		scoreA *float64
		scoreB *float64
	}
	union := map[string]*entry{}
	for _, pathway := range pathwaysA {
		score := pathway.Score
		union[pathway.PathwayID] = &entry{name: pathway.PathwayName, scoreA: &score}
	}
	for _, pathway := range pathwaysB {
		score := pathway.Score
		if existing, ok := union[pathway.PathwayID]; ok {
			existing.scoreB = &score
			continue
		}
		union[pathway.PathwayID] = &entry{name: pathway.PathwayName, scoreB: &score}
	}

	rows := make([]common.CompareRow, 0, len(union))
	for pathwayID, item := range union {
		row := common.CompareRow{
			PathwayID:   pathwayID,
			PathwayName: item.name,
			ScoreA:      item.scoreA,
			ScoreB:      item.scoreB,
			Shared:      item.scoreA != nil && item.scoreB != nil,
		}
		if row.Shared {
			delta := util.Round6(*item.scoreA - *item.scoreB)
			row.Delta = &delta
		}
		rows = append(rows, row)
	}

	// largest absolute difference first; pathways missing from one side
	// carry no delta and sort after all shared rows
	sort.Slice(rows, func(i, j int) bool {
		magI, magJ := deltaMagnitude(rows[i]), deltaMagnitude(rows[j])
		if (magI == nil) != (magJ == nil) {
			return magI != nil
		}
		if magI != nil && *magI != *magJ {
			return *magI > *magJ
		}
		return rows[i].PathwayID < rows[j].PathwayID
	})
	return rows
}

func deltaMagnitude(row common.CompareRow) *float64 {
	if row.Delta == nil {
		return nil
	}
	magnitude := math.Abs(*row.Delta)
	return &magnitude
}

func buildMetrics(analysisA, analysisB *common.AnalysisResult, rows []common.CompareRow) common.CompareMetrics {
	metrics := common.CompareMetrics{
		TargetJaccard: targetJaccard(analysisA.Targets, analysisB.Targets),
	}
	for _, row := range rows {
		switch {
		case row.Shared:
			metrics.SharedPathwayCount++
		case row.ScoreA != nil:
			metrics.UniquePathwayCountA++
		default:
			metrics.UniquePathwayCountB++
		}
	}
	metrics.PathwayCosineSimilarity = pathwayCosine(rows)
	return metrics
}

// targetJaccard is |A ∩ B| / |A ∪ B| over target ids; 0 when both sets are
// empty.
func targetJaccard(targetsA, targetsB []common.TargetSummary) float64 {
	setA := make(map[string]bool, len(targetsA))
	for _, target := range targetsA {
		setA[target.TargetID] = true
	}
	intersection := 0
	union := len(setA)
	seenB := make(map[string]bool, len(targetsB))
	for _, target := range targetsB {
		if seenB[target.TargetID] {
			continue
		}
		seenB[target.TargetID] = true
		if setA[target.TargetID] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return util.Round6(float64(intersection) / float64(union))
}

// pathwayCosine treats the union of top pathways as vector dimensions with
// absent scores as 0.
func pathwayCosine(rows []common.CompareRow) float64 {
	var dot, normA, normB float64
	for _, row := range rows {
		scoreA, scoreB := 0.0, 0.0
		if row.ScoreA != nil {
			scoreA = *row.ScoreA
		}
		if row.ScoreB != nil {
			scoreB = *row.ScoreB
		}
		dot += scoreA * scoreB
		normA += scoreA * scoreA
		normB += scoreB * scoreB
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return util.Round6(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
