package analysis

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pathmind/pkg/common"
)

func exportFixture() *common.AnalysisResult {
	return &common.AnalysisResult{
		AnalysisID:  "an-testid",
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Query:       "aspirin",
		CanonicalID: "CHEMBL25",
		Params:      common.DefaultParams(),
		Pathways: []common.PathwayScore{
			{
				PathwayID:     "R-HSA-3",
				PathwayName:   "EGFR Signaling",
				Depth:         3,
				PathwaySize:   100,
				TargetsHit:    1,
				MedianPotency: 9.1,
				Score:         0.091,
				CoverageRatio: 0.01,
				TargetIDs:     []string{"CHEMBL203"},
			},
		},
		AnalysisFlags:   common.NewAnalysisFlags(),
		VersionSnapshot: map[string]string{"chembl": "CHEMBL_34", "reactome": "91"},
		Attribution:     Attribution,
	}
}

func TestExportCSVMetadataAndRows(t *testing.T) {
	payload, err := ExportCSV(exportFixture())
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	lines := strings.Split(string(payload), "\n")
	if lines[0] != "# export_version: 1" || !strings.HasPrefix(lines[1], "# analysis_id: an-testid") {
		t.Fatalf("expected metadata header, got %q / %q", lines[0], lines[1])
	}

	content := string(payload)
	for _, expected := range []string{
		"# created_at: 2026-08-01T12:00:00Z",
		"# flags: direction_unknown=unknown limited_data=unknown partial_mapping=unknown high_variability=unknown",
		"# source_release: chembl=CHEMBL_34",
		"# source_release: reactome=91",
		"# attribution: " + Attribution,
		"pathway_id,pathway_name,depth,pathway_size,targets_hit,median_potency,score,coverage_ratio,target_ids",
		"R-HSA-3,EGFR Signaling,3,100,1,9.1,0.091,0.01,CHEMBL203",
	} {
		if !strings.Contains(content, expected) {
			t.Fatalf("expected export to contain %q:\n%s", expected, content)
		}
	}
}

func TestExportCSVDeterministic(t *testing.T) {
	first, err := ExportCSV(exportFixture())
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	second, err := ExportCSV(exportFixture())
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected byte-identical exports")
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	payload, err := ExportJSON(exportFixture())
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var decoded common.AnalysisResult
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.AnalysisID != "an-testid" || len(decoded.Pathways) != 1 {
		t.Fatalf("unexpected decoded export: %+v", decoded)
	}
}
