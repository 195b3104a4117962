package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pathmind/internal/cache"
	"pathmind/pkg/clients"
	"pathmind/pkg/common"
	"pathmind/pkg/pathway"
	"pathmind/pkg/store/memory"
)

type fakeProvider struct {
	identities []common.CompoundIdentity
	err        error
}

func (p *fakeProvider) Search(ctx context.Context, query string, limit int) ([]common.CompoundIdentity, error) {
	return p.identities, p.err
}

type fakeEvidence struct {
	records       []common.ActivityRecord
	annotations   map[string]common.TargetAnnotation
	activityCalls int
	err           error
}

func (e *fakeEvidence) Activities(ctx context.Context, canonicalID string) ([]common.ActivityRecord, error) {
	e.activityCalls++
	return e.records, e.err
}

func (e *fakeEvidence) TargetAnnotations(ctx context.Context, targetIDs []string) (map[string]common.TargetAnnotation, error) {
	return e.annotations, nil
}

type fakePathways struct {
	refs  map[string][]common.PathwayRef
	calls []string
	err   error
}

func (p *fakePathways) PathwaysFor(ctx context.Context, accession string) ([]common.PathwayRef, error) {
	p.calls = append(p.calls, accession)
	if p.err != nil {
		return nil, p.err
	}
	return p.refs[accession], nil
}

type fakeMapping struct {
	accessions map[string]string
}

func (m *fakeMapping) AccessionForGene(ctx context.Context, geneSymbol string) (string, error) {
	return m.accessions[geneSymbol], nil
}

type fakePriors struct {
	priors     map[string]clients.TargetPrior
	compoundID string
	err        error
}

func (p *fakePriors) Priors(ctx context.Context, compoundID string, accessions []string) (map[string]clients.TargetPrior, error) {
	p.compoundID = compoundID
	if p.err != nil {
		return nil, p.err
	}
	return p.priors, nil
}

func potency(value float64) *float64 {
	return &value
}

func egfrRecords(count int, median float64) []common.ActivityRecord {
	records := make([]common.ActivityRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, common.ActivityRecord{
			TargetID:  "CHEMBL203",
			AssayID:   fmt.Sprintf("CHEMBL%d", 1000+i),
			AssayType: "B",
			Relation:  "=",
			Potency:   potency(median),
			Organism:  "Homo sapiens",
		})
	}
	return records
}

func testSnapshot(t *testing.T) *pathway.Snapshot {
	t.Helper()
	snapshot, err := pathway.BuildSnapshot("91", []pathway.NodeInput{
		{ID: "R-HSA-1", Name: "Signal Transduction", GeneSetSize: 2500},
		{ID: "R-HSA-2", Name: "RTK Signaling", ParentIDs: []string{"R-HSA-1"}, GeneSetSize: 500},
		{ID: "R-HSA-3", Name: "EGFR Signaling", ParentIDs: []string{"R-HSA-2"}, GeneSetSize: 100},
	})
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	return snapshot
}

func newTestService(t *testing.T, config Config) (*Service, *memory.Storage) {
	t.Helper()
	storage := memory.NewStorage()
	if config.Storage == nil {
		config.Storage = storage
	} else {
		storage = config.Storage.(*memory.Storage)
	}
	if config.Cache == nil {
		config.Cache = cache.NewMemoryCache()
	}
	if config.Index == nil {
		config.Index = &pathway.Index{}
		config.Index.Publish(testSnapshot(t))
	}
	if config.IdentityProvider == nil {
		config.IdentityProvider = &fakeProvider{identities: []common.CompoundIdentity{
			{CanonicalID: "CHEMBL25", DisplayName: "ASPIRIN"},
		}}
	}
	if config.Evidence == nil {
		config.Evidence = &fakeEvidence{
			records: egfrRecords(4, 9.1),
			annotations: map[string]common.TargetAnnotation{
				"CHEMBL203": {TargetID: "CHEMBL203", TargetName: "EGFR", GeneSymbol: "EGFR", AccessionID: "P00533", Organism: "Homo sapiens"},
			},
		}
	}
	if config.Pathways == nil {
		config.Pathways = &fakePathways{refs: map[string][]common.PathwayRef{
			"P00533": {{PathwayID: "R-HSA-3"}},
		}}
	}
	return NewService(config), storage
}

func TestRunHappyPath(t *testing.T) {
	priors := &fakePriors{priors: map[string]clients.TargetPrior{
		"P00533": {AccessionID: "P00533", PriorConfidence: 9, Mechanism: "INHIBITOR"},
	}}
	service, storage := newTestService(t, Config{Priors: priors})

	result, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.CanonicalID != "CHEMBL25" || !strings.HasPrefix(result.AnalysisID, "an-") {
		t.Fatalf("unexpected result identity: %+v", result)
	}
	if len(result.Targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(result.Targets))
	}

	target := result.Targets[0]
	if target.MedianPotency != 9.1 || target.ConfidenceTier != common.TierHigh {
		t.Fatalf("unexpected target summary: %+v", target)
	}
	if target.ActionType != "INHIBITOR" {
		t.Fatalf("expected mechanism from priors, got %s", target.ActionType)
	}
	if target.MappingStatus != common.MappingMapped {
		t.Fatalf("expected mapped target, got %s", target.MappingStatus)
	}

	if len(result.Pathways) != 1 {
		t.Fatalf("expected 1 pathway, got %d", len(result.Pathways))
	}
	pathwayScore := result.Pathways[0]
	if pathwayScore.PathwayID != "R-HSA-3" || pathwayScore.Score != 0.091 {
		t.Fatalf("unexpected pathway score: %+v", pathwayScore)
	}

	if len(result.Graph.Nodes) != 3 || len(result.Graph.Edges) != 2 {
		t.Fatalf("unexpected graph shape: %d nodes, %d edges", len(result.Graph.Nodes), len(result.Graph.Edges))
	}

	for _, source := range knownSources {
		if _, ok := result.VersionSnapshot[source]; !ok {
			t.Fatalf("expected version snapshot entry for %s", source)
		}
	}
	if result.VersionSnapshot["reactome"] != "91" {
		t.Fatalf("expected hierarchy release in snapshot, got %s", result.VersionSnapshot["reactome"])
	}
	if result.VersionSnapshot["chembl"] != "unknown" {
		t.Fatalf("expected explicit unknown release, got %s", result.VersionSnapshot["chembl"])
	}
	if result.Attribution != Attribution {
		t.Fatalf("expected attribution on result")
	}
	if priors.compoundID != "CHEMBL25" {
		t.Fatalf("expected priors fetched for the resolved compound, got %q", priors.compoundID)
	}

	if result.AnalysisFlags.DirectionUnknown != common.TriStateNegative {
		t.Fatalf("expected known direction, got %s", result.AnalysisFlags.DirectionUnknown)
	}
	if result.AnalysisFlags.LimitedData != common.TriStatePositive {
		t.Fatalf("expected limited data for a single target, got %s", result.AnalysisFlags.LimitedData)
	}
	if result.AnalysisFlags.PartialMapping != common.TriStateNegative {
		t.Fatalf("expected complete mapping, got %s", result.AnalysisFlags.PartialMapping)
	}
	if result.AnalysisFlags.HighVariability != common.TriStateNegative {
		t.Fatalf("expected low variability, got %s", result.AnalysisFlags.HighVariability)
	}

	stored, err := storage.GetAnalysis(context.Background(), result.AnalysisID)
	if err != nil {
		t.Fatalf("expected persisted analysis: %v", err)
	}
	if stored.CanonicalID != "CHEMBL25" {
		t.Fatalf("unexpected stored analysis: %+v", stored)
	}
}

func TestRunEnrichesCompoundFromPriors(t *testing.T) {
	phase := 4
	priors := &fakePriors{priors: map[string]clients.TargetPrior{
		"P00533": {AccessionID: "P00533", PriorConfidence: 9, Mechanism: "INHIBITOR", ClinicalPhase: &phase},
	}}
	service, _ := newTestService(t, Config{Priors: priors})

	result, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Identity.Mechanism != "INHIBITOR" {
		t.Fatalf("expected compound mechanism from priors, got %q", result.Identity.Mechanism)
	}
	if result.Identity.ClinicalPhase == nil || *result.Identity.ClinicalPhase != 4 {
		t.Fatalf("expected clinical phase 4 on the identity, got %v", result.Identity.ClinicalPhase)
	}
}

func TestRunServesRepeatFromCache(t *testing.T) {
	evidenceSource := &fakeEvidence{
		records: egfrRecords(4, 9.1),
		annotations: map[string]common.TargetAnnotation{
			"CHEMBL203": {TargetID: "CHEMBL203", TargetName: "EGFR", AccessionID: "P00533"},
		},
	}
	service, _ := newTestService(t, Config{Evidence: evidenceSource})

	first, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if evidenceSource.activityCalls != 1 {
		t.Fatalf("expected cached repeat, evidence was called %d times", evidenceSource.activityCalls)
	}
	if first.AnalysisID != second.AnalysisID {
		t.Fatalf("expected identical cached result")
	}
}

func TestRunAmbiguousQuery(t *testing.T) {
	provider := &fakeProvider{identities: []common.CompoundIdentity{
		{CanonicalID: "CHEMBL25", DisplayName: "ASPIRIN"},
		{CanonicalID: "CHEMBL2296002", DisplayName: "ASPIRIN LYSINE"},
	}}
	service, _ := newTestService(t, Config{IdentityProvider: provider})

	_, err := service.Run(context.Background(), "aspirin lysine", "", common.DefaultParams())
	var ambiguous *common.AmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
	if len(ambiguous.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ambiguous.Candidates))
	}
}

func TestRunNotFound(t *testing.T) {
	service, _ := newTestService(t, Config{IdentityProvider: &fakeProvider{}})

	_, err := service.Run(context.Background(), "nosuchdrug", "", common.DefaultParams())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunRejectsInvalidParams(t *testing.T) {
	service, _ := newTestService(t, Config{})

	params := common.DefaultParams()
	params.TopPathways = 0
	if _, err := service.Run(context.Background(), "aspirin", "", params); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	params = common.DefaultParams()
	params.MinDepth = 6
	params.MaxDepth = 4
	if _, err := service.Run(context.Background(), "aspirin", "", params); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for inverted depth band, got %v", err)
	}
}

func TestRunDegradesWithoutPriors(t *testing.T) {
	priors := &fakePriors{err: common.NewUpstreamError("opentargets", errors.New("timeout"))}
	service, _ := newTestService(t, Config{Priors: priors})

	result, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.AnalysisFlags.DirectionUnknown != common.TriStateUnknown {
		t.Fatalf("expected unknown direction flag, got %s", result.AnalysisFlags.DirectionUnknown)
	}
	found := false
	for _, message := range result.DegradedMessages {
		if strings.Contains(message, "opentargets") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected degraded message, got %v", result.DegradedMessages)
	}
}

func TestRunFailsWhenEvidenceDown(t *testing.T) {
	evidenceSource := &fakeEvidence{err: common.NewUpstreamError("chembl", errors.New("503"))}
	service, _ := newTestService(t, Config{Evidence: evidenceSource})

	_, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams())
	if !errors.Is(err, common.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestRunWritesBackLiveMappings(t *testing.T) {
	pathwaySource := &fakePathways{refs: map[string][]common.PathwayRef{
		"P00533": {{PathwayID: "R-HSA-3"}},
	}}
	service, storage := newTestService(t, Config{Pathways: pathwaySource})

	if _, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(pathwaySource.calls) != 1 || pathwaySource.calls[0] != "P00533" {
		t.Fatalf("expected one live lookup, got %v", pathwaySource.calls)
	}

	mappings, err := storage.GetTargetPathways(context.Background(), []string{"P00533"})
	if err != nil {
		t.Fatalf("GetTargetPathways failed: %v", err)
	}
	if len(mappings["P00533"]) != 1 {
		t.Fatalf("expected written-back mapping, got %+v", mappings)
	}
}

func TestRunUsesSecondaryMapping(t *testing.T) {
	evidenceSource := &fakeEvidence{
		records: egfrRecords(4, 9.1),
		annotations: map[string]common.TargetAnnotation{
			"CHEMBL203": {TargetID: "CHEMBL203", TargetName: "EGFR", GeneSymbol: "EGFR"},
		},
	}
	mapping := &fakeMapping{accessions: map[string]string{"EGFR": "P00533"}}
	service, _ := newTestService(t, Config{Evidence: evidenceSource, Mapping: mapping})

	result, err := service.Run(context.Background(), "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	target := result.Targets[0]
	if target.MappingStatus != common.MappingPartial {
		t.Fatalf("expected partial mapping via gene symbol, got %s", target.MappingStatus)
	}
	if target.AccessionID != "P00533" {
		t.Fatalf("expected secondary accession, got %s", target.AccessionID)
	}
	if result.AnalysisFlags.PartialMapping != common.TriStatePositive {
		t.Fatalf("expected partial mapping flag, got %s", result.AnalysisFlags.PartialMapping)
	}
	if len(result.Pathways) != 1 {
		t.Fatalf("expected pathways via secondary mapping, got %d", len(result.Pathways))
	}
}

func TestShareFreezesPayload(t *testing.T) {
	service, _ := newTestService(t, Config{})
	ctx := context.Background()

	result, err := service.Run(ctx, "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	share, err := service.CreateShare(ctx, result.AnalysisID)
	if err != nil {
		t.Fatalf("CreateShare failed: %v", err)
	}
	if !strings.HasPrefix(share.ShareID, "sh-") {
		t.Fatalf("expected opaque share id, got %s", share.ShareID)
	}

	shared, err := service.GetShare(ctx, share.ShareID)
	if err != nil {
		t.Fatalf("GetShare failed: %v", err)
	}
	if shared.AnalysisID != result.AnalysisID || shared.CanonicalID != result.CanonicalID {
		t.Fatalf("expected frozen analysis, got %+v", shared)
	}

	if _, err := service.GetShare(ctx, "sh-missing"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompareLoadsStoredAnalyses(t *testing.T) {
	service, _ := newTestService(t, Config{})
	ctx := context.Background()

	first, err := service.Run(ctx, "aspirin", "", common.DefaultParams())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	comparison, err := service.Compare(ctx, first.AnalysisID, first.AnalysisID)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if comparison.Metrics.TargetJaccard != 1 {
		t.Fatalf("expected identical analyses to overlap fully, got %+v", comparison.Metrics)
	}

	if _, err := service.Compare(ctx, first.AnalysisID, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSuggestDegradesToEmpty(t *testing.T) {
	service, _ := newTestService(t, Config{})
	if suggestions := service.Suggest(context.Background(), "asp", 10); len(suggestions) != 0 {
		t.Fatalf("expected empty suggestions without a source, got %v", suggestions)
	}
}

type fakeSuggest struct {
	suggestions []string
}

func (s *fakeSuggest) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.suggestions, nil
}

func TestSuggestRequiresTwoCharacters(t *testing.T) {
	service, _ := newTestService(t, Config{Suggest: &fakeSuggest{suggestions: []string{"aspirin"}}})
	if suggestions := service.Suggest(context.Background(), "a", 10); len(suggestions) != 0 {
		t.Fatalf("expected empty suggestions for a one-character prefix, got %v", suggestions)
	}
	if suggestions := service.Suggest(context.Background(), "as", 10); len(suggestions) != 1 {
		t.Fatalf("expected suggestions for a two-character prefix, got %v", suggestions)
	}
}
