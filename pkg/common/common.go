package common

import "time"

// TriState classifies a piece of evidence as positive (evidence of effect),
// negative (evidence of absence), or unknown (not tested / unavailable).
// It is never collapsed to a boolean: absence of evidence stays explicit.
type TriState string

const (
	TriStatePositive TriState = "positive"
	TriStateNegative TriState = "negative"
	TriStateUnknown  TriState = "unknown"
)

// ConfidenceTier buckets a target summary by evidence strength.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// MappingStatus records whether a target could be placed in the pathway
// hierarchy. Unmapped targets are still shown, never silently dropped.
type MappingStatus string

const (
	MappingMapped   MappingStatus = "mapped"
	MappingPartial  MappingStatus = "partial"
	MappingUnmapped MappingStatus = "unmapped"
)

// ResolutionStatus is the outcome of resolving a free-text drug query.
type ResolutionStatus string

const (
	ResolutionResolved  ResolutionStatus = "resolved"
	ResolutionAmbiguous ResolutionStatus = "ambiguous"
	ResolutionNotFound  ResolutionStatus = "not_found"
)

// AnalysisParams are the tunable knobs of a single analysis run. Two runs are
// comparable only when their parameter sets are identical.
type AnalysisParams struct {
	PotencyThreshold     float64 `json:"potency_threshold"`
	MinAssays            int     `json:"min_assays"`
	IncludeLowConfidence bool    `json:"include_low_confidence"`
	TopPathways          int     `json:"top_pathways"`
	MinDepth             int     `json:"min_depth"`
	MaxDepth             int     `json:"max_depth"`
}

// DefaultParams returns the parameter set used when the caller supplies none.
func DefaultParams() AnalysisParams {
	return AnalysisParams{
		PotencyThreshold:     5.0,
		MinAssays:            2,
		IncludeLowConfidence: false,
		TopPathways:          20,
		MinDepth:             3,
		MaxDepth:             5,
	}
}

// CompoundIdentity is the canonical identity a free-text query resolves to.
// Immutable once resolved; repeated resolutions of the same input produce the
// same value.
type CompoundIdentity struct {
	CanonicalID   string   `json:"canonical_id"`
	DisplayName   string   `json:"display_name"`
	StructureKey  string   `json:"structure_key"`
	Synonyms      []string `json:"synonyms,omitempty"`
	ClinicalPhase *int     `json:"clinical_phase,omitempty"`
	Mechanism     string   `json:"mechanism,omitempty"`
}

// ResolutionCandidate is one entry of the ranked disambiguation list returned
// when a query matches more than one canonical parent.
type ResolutionCandidate struct {
	CanonicalID  string   `json:"canonical_id"`
	DisplayName  string   `json:"display_name"`
	StructureKey string   `json:"structure_key"`
	MatchReasons []string `json:"match_reasons,omitempty"`
}

// Resolution is the full outcome of the identity resolver: exactly one of
// Identity (status resolved) or Candidates (status ambiguous) is populated.
type Resolution struct {
	Query      string                `json:"query"`
	Status     ResolutionStatus      `json:"status"`
	Identity   *CompoundIdentity     `json:"identity,omitempty"`
	Candidates []ResolutionCandidate `json:"candidates,omitempty"`
}

// ActivityRecord is one raw bioactivity measurement from the activity
// provider. The engine never edits these, only aggregates over them.
type ActivityRecord struct {
	TargetID  string   `json:"target_id"`
	AssayID   string   `json:"assay_id"`
	AssayType string   `json:"assay_type"`
	Relation  string   `json:"relation"`
	Potency   *float64 `json:"potency"`
	Organism  string   `json:"organism,omitempty"`
	Flagged   bool     `json:"flagged,omitempty"`
}

// TargetAnnotation carries per-target metadata from the activity provider
// used during aggregation: display name, gene symbol, hierarchy accession and
// the provider's prior confidence in the target assignment.
type TargetAnnotation struct {
	TargetID        string `json:"target_id"`
	TargetName      string `json:"target_name"`
	GeneSymbol      string `json:"gene_symbol,omitempty"`
	AccessionID     string `json:"accession_id,omitempty"`
	PriorConfidence int    `json:"prior_confidence"`
	Organism        string `json:"organism,omitempty"`
}

// TargetSummary is the per-(compound, target) aggregate over all valid
// activity records. Created once per run and never mutated afterwards.
type TargetSummary struct {
	TargetID          string         `json:"target_id"`
	TargetName        string         `json:"target_name"`
	GeneSymbol        string         `json:"gene_symbol,omitempty"`
	AccessionID       string         `json:"accession_id,omitempty"`
	ActionType        string         `json:"action_type"`
	MedianPotency     float64        `json:"median_potency"`
	AssayCount        int            `json:"assay_count"`
	PotencyMin        float64        `json:"potency_min"`
	PotencyMax        float64        `json:"potency_max"`
	PotencyIQR        float64        `json:"potency_iqr"`
	PriorConfidence   int            `json:"prior_confidence"`
	ConfidenceTier    ConfidenceTier `json:"confidence_tier"`
	ConfidenceReasons []string       `json:"confidence_reasons"`
	LowConfidence     bool           `json:"low_confidence"`
	MappingStatus     MappingStatus  `json:"mapping_status"`
	MappingNotes      []string       `json:"mapping_notes,omitempty"`
	SourceAssayIDs    []string       `json:"source_assay_ids,omitempty"`
}

// PathwayRef is a hierarchy entry for one pathway a target participates in,
// as served by the hierarchy index.
type PathwayRef struct {
	PathwayID          string   `json:"pathway_id"`
	PathwayName        string   `json:"pathway_name"`
	Depth              int      `json:"depth"`
	PathwaySize        int      `json:"pathway_size"`
	AncestorPathwayIDs []string `json:"ancestor_pathway_ids,omitempty"`
	URL                string   `json:"url,omitempty"`
}

// PathwayScore is the per-(compound, pathway) impact score.
// Score = (TargetsHit / PathwaySize) * MedianPotency.
type PathwayScore struct {
	PathwayID          string   `json:"pathway_id"`
	PathwayName        string   `json:"pathway_name"`
	Depth              int      `json:"depth"`
	PathwaySize        int      `json:"pathway_size"`
	TargetsHit         int      `json:"targets_hit"`
	MedianPotency      float64  `json:"median_potency"`
	Score              float64  `json:"score"`
	CoverageRatio      float64  `json:"coverage_ratio"`
	TargetIDs          []string `json:"target_ids"`
	AncestorPathwayIDs []string `json:"ancestor_pathway_ids,omitempty"`
	URL                string   `json:"url,omitempty"`
}

// NodeKind enumerates association graph node types.
type NodeKind string

const (
	NodeDrug    NodeKind = "drug"
	NodeTarget  NodeKind = "target"
	NodePathway NodeKind = "pathway"
)

// EdgeKind enumerates association graph edge types.
type EdgeKind string

const (
	EdgeDrugTarget    EdgeKind = "drug_target"
	EdgeTargetPathway EdgeKind = "target_pathway"
)

// GraphNode is a node of the association graph. IDs are derived
// deterministically from the underlying entity ids.
type GraphNode struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Kind     NodeKind       `json:"kind"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GraphEdge is an edge of the association graph. Every endpoint is
// guaranteed to exist as a node.
type GraphEdge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
	Weight float64  `json:"weight"`
}

// AssociationGraph bundles the renderable drug/target/pathway graph.
type AssociationGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// AnalysisFlags are tri-state quality signals for a completed run.
type AnalysisFlags struct {
	DirectionUnknown TriState `json:"direction_unknown"`
	LimitedData      TriState `json:"limited_data"`
	PartialMapping   TriState `json:"partial_mapping"`
	HighVariability  TriState `json:"high_variability"`
}

// NewAnalysisFlags returns flags with every signal in the unknown state.
func NewAnalysisFlags() AnalysisFlags {
	return AnalysisFlags{
		DirectionUnknown: TriStateUnknown,
		LimitedData:      TriStateUnknown,
		PartialMapping:   TriStateUnknown,
		HighVariability:  TriStateUnknown,
	}
}

// AnalysisResult is the immutable bundle produced by one analysis run.
type AnalysisResult struct {
	AnalysisID       string            `json:"analysis_id"`
	CreatedAt        time.Time         `json:"created_at"`
	Query            string            `json:"query"`
	CanonicalID      string            `json:"canonical_id"`
	Params           AnalysisParams    `json:"params"`
	Identity         CompoundIdentity  `json:"identity"`
	Targets          []TargetSummary   `json:"targets"`
	Pathways         []PathwayScore    `json:"pathways"`
	Graph            AssociationGraph  `json:"graph"`
	VersionSnapshot  map[string]string `json:"version_snapshot"`
	AnalysisFlags    AnalysisFlags     `json:"analysis_flags"`
	DegradedMessages []string          `json:"degraded_messages"`
	Attribution      string            `json:"attribution"`
}

// CompareRow is one row of the pathway comparison table: one pathway from the
// union of both drugs' top pathways. Nil scores mean the pathway did not make
// that drug's top-N, which is a scoring outcome, not missing data.
type CompareRow struct {
	PathwayID   string   `json:"pathway_id"`
	PathwayName string   `json:"pathway_name"`
	ScoreA      *float64 `json:"score_a"`
	ScoreB      *float64 `json:"score_b"`
	Delta       *float64 `json:"delta"`
	Shared      bool     `json:"shared"`
}

// CompareMetrics are the set/vector similarity metrics between two analyses.
type CompareMetrics struct {
	TargetJaccard           float64 `json:"target_jaccard"`
	PathwayCosineSimilarity float64 `json:"pathway_cosine_similarity"`
	SharedPathwayCount      int     `json:"shared_pathway_count"`
	UniquePathwayCountA     int     `json:"unique_pathway_count_a"`
	UniquePathwayCountB     int     `json:"unique_pathway_count_b"`
}

// CompareResult is the full output of the comparison engine.
type CompareResult struct {
	AnalysisA *AnalysisResult `json:"analysis_a"`
	AnalysisB *AnalysisResult `json:"analysis_b"`
	Rows      []CompareRow    `json:"rows"`
	Metrics   CompareMetrics  `json:"metrics"`
}

// ShareSnapshot is a frozen, verbatim copy of a completed analysis, read by
// opaque id only. It is decoupled from later re-runs of the same drug.
type ShareSnapshot struct {
	ShareID    string    `json:"share_id"`
	AnalysisID string    `json:"analysis_id"`
	CreatedAt  time.Time `json:"created_at"`
	Payload    []byte    `json:"-"`
}

// JobStatus is the lifecycle state of an external batch job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
)

// EtlRun tracks one hierarchy-index rebuild, polled by id.
type EtlRun struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	Mode         string         `json:"mode"`
	Status       JobStatus      `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	RowsUpserted int            `json:"rows_upserted"`
	Details      map[string]any `json:"details,omitempty"`
}
