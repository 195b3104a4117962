package store

import (
	"context"
	"time"

	"pathmind/pkg/common"
	"pathmind/pkg/pathway"
)

// Storage defines the persistence interface for the scoring engine. It
// covers completed analyses with their frozen payloads, share links,
// persisted identity resolutions, the ETL-maintained pathway tables, ETL run
// bookkeeping and source release versions.
type Storage interface {
	SaveAnalysis(ctx context.Context, result *common.AnalysisResult, payload []byte) error
	GetAnalysis(ctx context.Context, analysisID string) (*common.AnalysisResult, error)
	GetAnalysisPayload(ctx context.Context, analysisID string) ([]byte, error)

	SaveShare(ctx context.Context, share common.ShareSnapshot) error
	GetShare(ctx context.Context, shareID string) (*common.ShareSnapshot, error)

	GetResolution(ctx context.Context, normalizedQuery string) (*common.CompoundIdentity, error)
	PutResolution(ctx context.Context, normalizedQuery string, identity common.CompoundIdentity) error

	ReplaceTargetPathways(ctx context.Context, accession string, refs []common.PathwayRef) error
	GetTargetPathways(ctx context.Context, accessions []string) (map[string][]common.PathwayRef, error)
	ListMappedAccessions(ctx context.Context, limit int) ([]string, error)

	ReplacePathwayNodes(ctx context.Context, release string, nodes []pathway.NodeInput) error
	LoadPathwayNodes(ctx context.Context) (string, []pathway.NodeInput, error)

	CreateEtlRun(ctx context.Context, run common.EtlRun) error
	UpdateEtlRun(ctx context.Context, run common.EtlRun) error
	GetEtlRun(ctx context.Context, runID string) (*common.EtlRun, error)
	LatestEtlRun(ctx context.Context, source string) (*common.EtlRun, error)

	SaveSourceRelease(ctx context.Context, source, release string, fetchedAt time.Time) error
	GetSourceReleases(ctx context.Context) (map[string]string, error)
}
