package compare

import (
	"errors"
	"testing"

	"pathmind/pkg/common"
)

func analysisWith(id string, params common.AnalysisParams, targetIDs []string, pathways []common.PathwayScore) *common.AnalysisResult {
	targets := make([]common.TargetSummary, 0, len(targetIDs))
	for _, targetID := range targetIDs {
		targets = append(targets, common.TargetSummary{TargetID: targetID})
	}
	return &common.AnalysisResult{
		AnalysisID: id,
		Params:     params,
		Targets:    targets,
		Pathways:   pathways,
	}
}

func pathwayScore(id string, score float64) common.PathwayScore {
	return common.PathwayScore{PathwayID: id, PathwayName: "Pathway " + id, Score: score}
}

func TestCompareRejectsParamMismatch(t *testing.T) {
	paramsA := common.DefaultParams()
	paramsB := common.DefaultParams()
	paramsB.PotencyThreshold = 6.0

	_, err := Compare(
		analysisWith("a", paramsA, nil, nil),
		analysisWith("b", paramsB, nil, nil),
	)
	if !errors.Is(err, common.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCompareRejectsNil(t *testing.T) {
	if _, err := Compare(nil, analysisWith("b", common.DefaultParams(), nil, nil)); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompareTargetJaccard(t *testing.T) {
	params := common.DefaultParams()
	result, err := Compare(
		analysisWith("a", params, []string{"CHEMBL203", "CHEMBL204"}, nil),
		analysisWith("b", params, []string{"CHEMBL204", "CHEMBL205"}, nil),
	)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Metrics.TargetJaccard != 0.333333 {
		t.Fatalf("expected jaccard 0.333333, got %v", result.Metrics.TargetJaccard)
	}
}

func TestCompareRowsAndCounts(t *testing.T) {
	params := common.DefaultParams()
	result, err := Compare(
		analysisWith("a", params, nil, []common.PathwayScore{
			pathwayScore("R-HSA-1", 0.5),
			pathwayScore("R-HSA-2", 0.3),
			pathwayScore("R-HSA-3", 0.1),
		}),
		analysisWith("b", params, nil, []common.PathwayScore{
			pathwayScore("R-HSA-1", 0.45),
			pathwayScore("R-HSA-2", 0.1),
			pathwayScore("R-HSA-4", 0.2),
		}),
	)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if result.Metrics.SharedPathwayCount != 2 {
		t.Fatalf("expected 2 shared pathways, got %d", result.Metrics.SharedPathwayCount)
	}
	if result.Metrics.UniquePathwayCountA != 1 || result.Metrics.UniquePathwayCountB != 1 {
		t.Fatalf("unexpected unique counts: %+v", result.Metrics)
	}

	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}
	// shared rows sorted by |delta| descending, one-sided rows after
	if result.Rows[0].PathwayID != "R-HSA-2" || *result.Rows[0].Delta != 0.2 {
		t.Fatalf("unexpected first row: %+v", result.Rows[0])
	}
	if result.Rows[1].PathwayID != "R-HSA-1" || *result.Rows[1].Delta != 0.05 {
		t.Fatalf("unexpected second row: %+v", result.Rows[1])
	}
	if result.Rows[2].Delta != nil || result.Rows[3].Delta != nil {
		t.Fatalf("expected one-sided rows last")
	}
	if result.Rows[2].PathwayID != "R-HSA-3" || result.Rows[3].PathwayID != "R-HSA-4" {
		t.Fatalf("expected one-sided tie broken by pathway id, got %s, %s", result.Rows[2].PathwayID, result.Rows[3].PathwayID)
	}
	if result.Rows[2].Shared || result.Rows[3].Shared {
		t.Fatalf("expected one-sided rows to be marked unshared")
	}
}

func TestCompareCosineIdentical(t *testing.T) {
	params := common.DefaultParams()
	pathways := []common.PathwayScore{pathwayScore("R-HSA-1", 0.5), pathwayScore("R-HSA-2", 0.3)}
	result, err := Compare(
		analysisWith("a", params, []string{"CHEMBL203"}, pathways),
		analysisWith("b", params, []string{"CHEMBL203"}, pathways),
	)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Metrics.PathwayCosineSimilarity != 1 {
		t.Fatalf("expected cosine 1, got %v", result.Metrics.PathwayCosineSimilarity)
	}
	if result.Metrics.TargetJaccard != 1 {
		t.Fatalf("expected jaccard 1, got %v", result.Metrics.TargetJaccard)
	}
}

func TestCompareCosineDisjoint(t *testing.T) {
	params := common.DefaultParams()
	result, err := Compare(
		analysisWith("a", params, nil, []common.PathwayScore{pathwayScore("R-HSA-1", 0.5)}),
		analysisWith("b", params, nil, []common.PathwayScore{pathwayScore("R-HSA-2", 0.4)}),
	)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Metrics.PathwayCosineSimilarity != 0 {
		t.Fatalf("expected cosine 0, got %v", result.Metrics.PathwayCosineSimilarity)
	}
}

func TestCompareEmptyAnalyses(t *testing.T) {
	params := common.DefaultParams()
	result, err := Compare(
		analysisWith("a", params, nil, nil),
		analysisWith("b", params, nil, nil),
	)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(result.Rows))
	}
	if result.Metrics.TargetJaccard != 0 || result.Metrics.PathwayCosineSimilarity != 0 {
		t.Fatalf("expected zero metrics, got %+v", result.Metrics)
	}
}
