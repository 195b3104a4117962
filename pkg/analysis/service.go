// Package analysis runs the full scoring pipeline: resolve the query,
// aggregate bioactivity evidence per target, map targets into the pathway
// hierarchy, score pathways, assemble the association graph and persist the
// result with its reproducibility snapshot.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"pathmind/internal/cache"
	"pathmind/pkg/assoc"
	"pathmind/pkg/clients"
	"pathmind/pkg/common"
	"pathmind/pkg/compare"
	"pathmind/pkg/evidence"
	"pathmind/pkg/identity"
	"pathmind/pkg/logger"
	"pathmind/pkg/pathway"
	"pathmind/pkg/store"
)

// Attribution is attached verbatim to every analysis result.
const Attribution = "Data from ChEMBL (CC BY-SA 3.0), Reactome (CC BY 4.0), UniProt (CC BY 4.0), PubChem and Open Targets (CC0)."

const (
	maxTargets       = 50
	analysisCacheTTL = 6 * time.Hour
	secondaryLookups = 4

	limitedDataMinTargets = 3
	limitedDataMinAssays  = 10
	highVariabilityIQR    = 1.0
	highVariabilityAssays = 3
)

// knownSources are the upstream sources recorded in every version snapshot.
// Sources without a stored release appear with the explicit value "unknown".
var knownSources = []string{"chembl", "reactome", "uniprot", "pubchem", "opentargets"}

// EvidenceSource supplies raw bioactivity records and target annotations.
type EvidenceSource interface {
	Activities(ctx context.Context, canonicalID string) ([]common.ActivityRecord, error)
	TargetAnnotations(ctx context.Context, targetIDs []string) (map[string]common.TargetAnnotation, error)
}

// PathwaySource supplies live pathway membership for an accession.
type PathwaySource interface {
	PathwaysFor(ctx context.Context, accession string) ([]common.PathwayRef, error)
}

// MappingSource resolves gene symbols to accessions for targets that come
// without one.
type MappingSource interface {
	AccessionForGene(ctx context.Context, geneSymbol string) (string, error)
}

// PriorSource enriches targets with prior confidence and the analyzed
// compound's known mechanism and clinical phase against each target.
type PriorSource interface {
	Priors(ctx context.Context, compoundID string, accessions []string) (map[string]clients.TargetPrior, error)
}

// SuggestSource supplies name autocomplete.
type SuggestSource interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Service orchestrates the pipeline. The evidence source is required, the
// enrichment sources are optional and analyses degrade without them.
type Service struct {
	resolver *identity.Resolver
	evidence EvidenceSource
	pathways PathwaySource
	mapping  MappingSource
	priors   PriorSource
	suggest  SuggestSource
	storage  store.Storage
	cache    cache.Cache
	index    *pathway.Index
	now      func() time.Time
}

// Config wires the service dependencies.
type Config struct {
	IdentityProvider identity.Provider
	Evidence         EvidenceSource
	Pathways         PathwaySource
	Mapping          MappingSource
	Priors           PriorSource
	Suggest          SuggestSource
	Storage          store.Storage
	Cache            cache.Cache
	Index            *pathway.Index
}

// NewService builds the analysis service. Storage doubles as the persistent
// resolution cache.
func NewService(config Config) *Service {
	return &Service{
		resolver: identity.NewResolver(config.IdentityProvider, &resolutionStore{storage: config.Storage}),
		evidence: config.Evidence,
		pathways: config.Pathways,
		mapping:  config.Mapping,
		priors:   config.Priors,
		suggest:  config.Suggest,
		storage:  config.Storage,
		cache:    config.Cache,
		index:    config.Index,
		now:      time.Now,
	}
}

// resolutionStore adapts the persistent store to the resolver cache.
type resolutionStore struct {
	storage store.Storage
}

func (s *resolutionStore) Get(ctx context.Context, normalizedQuery string) (*common.CompoundIdentity, error) {
	identity, err := s.storage.GetResolution(ctx, normalizedQuery)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return identity, err
}

func (s *resolutionStore) Put(ctx context.Context, normalizedQuery string, identity common.CompoundIdentity) error {
	return s.storage.PutResolution(ctx, normalizedQuery, identity)
}

// Resolve canonicalizes a drug query without running an analysis.
func (s *Service) Resolve(ctx context.Context, query, choice string) (common.Resolution, error) {
	return s.resolver.Resolve(ctx, query, choice)
}

// Suggest returns autocomplete candidates for a partial drug name. An
// unavailable suggest source yields an empty list, not an error.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) []string {
	if s.suggest == nil || len(strings.TrimSpace(prefix)) < 2 {
		return []string{}
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	suggestions, err := s.suggest.Suggest(ctx, prefix, limit)
	if err != nil {
		logger.Warn("[Analysis] Suggest source unavailable", "error", err)
		return []string{}
	}
	return suggestions
}

// ValidateParams rejects parameter combinations the scoring model cannot
// honor.
func ValidateParams(params common.AnalysisParams) error {
	if params.PotencyThreshold < 0 || params.PotencyThreshold > 14 {
		return fmt.Errorf("%w: potency_threshold must be within 0..14", common.ErrValidation)
	}
	if params.MinAssays < 1 {
		return fmt.Errorf("%w: min_assays must be at least 1", common.ErrValidation)
	}
	if params.TopPathways < 1 || params.TopPathways > 100 {
		return fmt.Errorf("%w: top_pathways must be within 1..100", common.ErrValidation)
	}
	if params.MinDepth < 2 || params.MaxDepth > 12 || params.MinDepth > params.MaxDepth {
		return fmt.Errorf("%w: depth band must satisfy 2 <= min_depth <= max_depth <= 12", common.ErrValidation)
	}
	return nil
}

// Run executes one analysis. Ambiguous queries surface the candidate list as
// an error, repeat runs with identical input are served from cache.
func (s *Service) Run(ctx context.Context, query, choice string, params common.AnalysisParams) (*common.AnalysisResult, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	resolution, err := s.resolver.Resolve(ctx, query, choice)
	if err != nil {
		return nil, err
	}
	switch resolution.Status {
	case common.ResolutionNotFound:
		return nil, fmt.Errorf("%w: no compound matches %q", common.ErrNotFound, query)
	case common.ResolutionAmbiguous:
		return nil, &common.AmbiguousError{Query: query, Candidates: resolution.Candidates}
	}
	resolved := *resolution.Identity

	cacheKey := cache.Key(resolved.CanonicalID, params)
	if payload, ok := s.cache.Get(ctx, cacheKey); ok {
		var cached common.AnalysisResult
		if err := json.Unmarshal(payload, &cached); err == nil {
			logger.Debug("[Analysis] Serving cached analysis", "compound", resolved.CanonicalID)
			return &cached, nil
		}
		logger.Warn("[Analysis] Discarding unreadable cache entry", "key", cacheKey)
	}

	result := &common.AnalysisResult{
		Query:            query,
		CanonicalID:      resolved.CanonicalID,
		Params:           params,
		Identity:         resolved,
		VersionSnapshot:  map[string]string{},
		AnalysisFlags:    common.NewAnalysisFlags(),
		DegradedMessages: []string{},
		Attribution:      Attribution,
	}

	records, err := s.evidence.Activities(ctx, resolved.CanonicalID)
	if err != nil {
		return nil, err
	}

	targetIDs := collectTargetIDs(records)
	annotations := map[string]common.TargetAnnotation{}
	if len(targetIDs) > 0 {
		annotations, err = s.evidence.TargetAnnotations(ctx, targetIDs)
		if err != nil {
			return nil, err
		}
	}

	priors, priorsAvailable := s.enrichPriors(ctx, annotations, result)

	summaries := evidence.Aggregate(records, annotations, params)
	if len(summaries) > maxTargets {
		summaries = summaries[:maxTargets]
		result.DegradedMessages = append(result.DegradedMessages,
			fmt.Sprintf("target list truncated to the %d strongest targets", maxTargets))
	}
	visible := evidence.Visible(summaries, params)
	for i := range visible {
		if prior, ok := priors[visible[i].AccessionID]; ok && prior.Mechanism != "" {
			visible[i].ActionType = prior.Mechanism
		}
	}

	pathwaysByTarget, mappingEvaluated := s.mapTargets(ctx, visible, result)
	result.Targets = visible

	snapshot := s.index.Current()
	scored := pathway.Score(visible, pathwaysByTarget, snapshot, params)
	if scored.SkippedInvalid > 0 {
		result.DegradedMessages = append(result.DegradedMessages,
			fmt.Sprintf("%d pathways skipped for unknown gene-set size", scored.SkippedInvalid))
	}
	result.Pathways = scored.Pathways

	result.Graph = assoc.Build(resolved, visible, scored.Pathways)
	if err := assoc.Validate(result.Graph); err != nil {
		return nil, err
	}

	s.applyFlags(result, records, priorsAvailable, mappingEvaluated)
	s.applyVersionSnapshot(ctx, result, snapshot)

	analysisID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating analysis id: %w", err)
	}
	result.AnalysisID = "an-" + analysisID
	result.CreatedAt = s.now().UTC()

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis result: %w", err)
	}
	if err := s.storage.SaveAnalysis(ctx, result, payload); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cacheKey, payload, analysisCacheTTL)

	logger.Info("[Analysis] Completed analysis",
		"analysis", result.AnalysisID,
		"compound", resolved.CanonicalID,
		"targets", len(visible),
		"pathways", len(scored.Pathways))
	return result, nil
}

func collectTargetIDs(records []common.ActivityRecord) []string {
	seen := map[string]bool{}
	targetIDs := make([]string, 0)
	for _, record := range records {
		if record.TargetID == "" || seen[record.TargetID] {
			continue
		}
		seen[record.TargetID] = true
		targetIDs = append(targetIDs, record.TargetID)
	}
	sort.Strings(targetIDs)
	return targetIDs
}

// enrichPriors folds prior confidence into the annotations and returns the
// per-accession priors for mechanism lookup later. The second return value
// reports whether the prior source answered.
func (s *Service) enrichPriors(ctx context.Context, annotations map[string]common.TargetAnnotation, result *common.AnalysisResult) (map[string]clients.TargetPrior, bool) {
	if s.priors == nil || len(annotations) == 0 {
		return map[string]clients.TargetPrior{}, s.priors != nil
	}

	accessions := make([]string, 0, len(annotations))
	for _, annotation := range annotations {
		if annotation.AccessionID != "" {
			accessions = append(accessions, annotation.AccessionID)
		}
	}
	sort.Strings(accessions)

	priors, err := s.priors.Priors(ctx, result.CanonicalID, accessions)
	if err != nil {
		logger.Warn("[Analysis] Prior source unavailable", "error", err)
		result.DegradedMessages = append(result.DegradedMessages,
			"opentargets unavailable, prior confidence defaults were used")
		return map[string]clients.TargetPrior{}, false
	}

	for targetID, annotation := range annotations {
		prior, ok := priors[annotation.AccessionID]
		if !ok {
			continue
		}
		if prior.PriorConfidence > 0 {
			annotation.PriorConfidence = prior.PriorConfidence
		}
		annotations[targetID] = annotation
	}

	// compound-level enrichment: first known mechanism and max phase across
	// the priors, walked in accession order so repeats are deterministic
	for _, accession := range accessions {
		prior, ok := priors[accession]
		if !ok {
			continue
		}
		if result.Identity.Mechanism == "" && prior.Mechanism != "" {
			result.Identity.Mechanism = prior.Mechanism
		}
		if prior.ClinicalPhase != nil &&
			(result.Identity.ClinicalPhase == nil || *prior.ClinicalPhase > *result.Identity.ClinicalPhase) {
			phase := *prior.ClinicalPhase
			result.Identity.ClinicalPhase = &phase
		}
	}
	return priors, true
}

// mapTargets places each visible target in the pathway hierarchy: stored
// mappings first, a live lookup with write-back for accessions the ETL has
// not covered yet, and a gene-symbol fallback for targets without an
// accession. Mutates the summaries' mapping status in place. The second
// return value reports whether mapping could be evaluated at all.
func (s *Service) mapTargets(
	ctx context.Context,
	visible []common.TargetSummary,
	result *common.AnalysisResult,
) (map[string][]common.PathwayRef, bool) {
	accessionByTarget := map[string]string{}
	secondary := map[string]bool{}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(secondaryLookups)
	type secondaryHit struct {
		targetID  string
		accession string
	}
	hits := make(chan secondaryHit, len(visible))

	mappingDegraded := false
	for i := range visible {
		if visible[i].AccessionID != "" {
			accessionByTarget[visible[i].TargetID] = visible[i].AccessionID
			continue
		}
		if s.mapping == nil || visible[i].GeneSymbol == "" {
			continue
		}
		targetID, geneSymbol := visible[i].TargetID, visible[i].GeneSymbol
		group.Go(func() error {
			accession, err := s.mapping.AccessionForGene(groupCtx, geneSymbol)
			if err != nil {
				logger.Warn("[Analysis] Secondary mapping lookup failed", "gene", geneSymbol, "error", err)
				return nil
			}
			if accession != "" {
				hits <- secondaryHit{targetID: targetID, accession: accession}
			}
			return nil
		})
	}
	_ = group.Wait()
	close(hits)
	for hit := range hits {
		accessionByTarget[hit.targetID] = hit.accession
		secondary[hit.targetID] = true
	}

	accessions := make([]string, 0, len(accessionByTarget))
	for _, accession := range accessionByTarget {
		accessions = append(accessions, accession)
	}
	sort.Strings(accessions)

	stored, err := s.storage.GetTargetPathways(ctx, accessions)
	if err != nil {
		logger.Warn("[Analysis] Loading stored mappings failed", "error", err)
		stored = map[string][]common.PathwayRef{}
	}

	for _, accession := range accessions {
		if _, ok := stored[accession]; ok {
			continue
		}
		refs, err := s.pathways.PathwaysFor(ctx, accession)
		if err != nil {
			logger.Warn("[Analysis] Live pathway lookup failed", "accession", accession, "error", err)
			mappingDegraded = true
			continue
		}
		stored[accession] = refs
		if err := s.storage.ReplaceTargetPathways(ctx, accession, refs); err != nil {
			logger.Warn("[Analysis] Mapping write-back failed", "accession", accession, "error", err)
		}
	}
	if mappingDegraded {
		result.DegradedMessages = append(result.DegradedMessages,
			"reactome unavailable, pathway mapping is incomplete")
	}

	pathwaysByTarget := map[string][]common.PathwayRef{}
	anyEvaluated := len(visible) == 0
	for i := range visible {
		accession, hasAccession := accessionByTarget[visible[i].TargetID]
		if !hasAccession {
			visible[i].MappingStatus = common.MappingUnmapped
			visible[i].MappingNotes = append(visible[i].MappingNotes, "no protein accession available")
			anyEvaluated = true
			continue
		}
		refs, looked := stored[accession]
		if !looked {
			// the live lookup failed, mapping state is unknowable for
			// this run
			visible[i].MappingStatus = common.MappingUnmapped
			visible[i].MappingNotes = append(visible[i].MappingNotes, "pathway membership could not be fetched")
			continue
		}
		anyEvaluated = true
		pathwaysByTarget[visible[i].TargetID] = refs
		switch {
		case secondary[visible[i].TargetID]:
			visible[i].AccessionID = accession
			visible[i].MappingStatus = common.MappingPartial
			visible[i].MappingNotes = append(visible[i].MappingNotes, "accession resolved via gene symbol")
		case len(refs) == 0:
			visible[i].MappingStatus = common.MappingPartial
			visible[i].MappingNotes = append(visible[i].MappingNotes, "no pathway membership found")
		default:
			visible[i].MappingStatus = common.MappingMapped
		}
	}
	return pathwaysByTarget, anyEvaluated && !mappingDegraded
}

// applyFlags computes the tri-state quality flags from what the pipeline
// actually observed.
func (s *Service) applyFlags(result *common.AnalysisResult, records []common.ActivityRecord, priorsAvailable, mappingEvaluated bool) {
	flags := common.NewAnalysisFlags()

	qualifyingAssays := 0
	for _, record := range records {
		if evidence.MeetsAssayFilters(record) {
			qualifyingAssays++
		}
	}
	if len(result.Targets) < limitedDataMinTargets || qualifyingAssays < limitedDataMinAssays {
		flags.LimitedData = common.TriStatePositive
	} else {
		flags.LimitedData = common.TriStateNegative
	}

	flags.HighVariability = common.TriStateNegative
	for _, target := range result.Targets {
		if target.PotencyIQR >= highVariabilityIQR && target.AssayCount >= highVariabilityAssays {
			flags.HighVariability = common.TriStatePositive
			break
		}
	}

	if mappingEvaluated {
		flags.PartialMapping = common.TriStateNegative
		for _, target := range result.Targets {
			if target.MappingStatus != common.MappingMapped {
				flags.PartialMapping = common.TriStatePositive
				break
			}
		}
	}

	if priorsAvailable {
		flags.DirectionUnknown = common.TriStateNegative
		for _, target := range result.Targets {
			if target.ActionType == "" || target.ActionType == "UNKNOWN" {
				flags.DirectionUnknown = common.TriStatePositive
				break
			}
		}
	}

	result.AnalysisFlags = flags
}

// applyVersionSnapshot records the source releases the analysis ran
// against. Every known source appears, sources without a stored release are
// written as "unknown" rather than omitted.
func (s *Service) applyVersionSnapshot(ctx context.Context, result *common.AnalysisResult, snapshot *pathway.Snapshot) {
	releases, err := s.storage.GetSourceReleases(ctx)
	if err != nil {
		logger.Warn("[Analysis] Loading source releases failed", "error", err)
		releases = map[string]string{}
	}
	for _, source := range knownSources {
		release, ok := releases[source]
		if !ok || release == "" {
			release = "unknown"
		}
		result.VersionSnapshot[source] = release
	}
	if snapshot != nil && result.VersionSnapshot["reactome"] == "unknown" {
		result.VersionSnapshot["reactome"] = snapshot.Release()
	}
}

// Get loads a stored analysis by id.
func (s *Service) Get(ctx context.Context, analysisID string) (*common.AnalysisResult, error) {
	return s.storage.GetAnalysis(ctx, analysisID)
}

// Compare loads two stored analyses and builds the comparison view.
func (s *Service) Compare(ctx context.Context, analysisIDA, analysisIDB string) (*common.CompareResult, error) {
	analysisA, err := s.storage.GetAnalysis(ctx, analysisIDA)
	if err != nil {
		return nil, err
	}
	analysisB, err := s.storage.GetAnalysis(ctx, analysisIDB)
	if err != nil {
		return nil, err
	}
	return compare.Compare(analysisA, analysisB)
}
