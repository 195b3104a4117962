// Package memory provides an in-memory storage implementation used in tests
// and when running without a database.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"pathmind/internal/util"
	"pathmind/pkg/common"
	"pathmind/pkg/pathway"
)

// Storage keeps everything in maps behind one mutex. Payloads are copied on
// the way in and out so callers can never mutate stored state.
type Storage struct {
	mu sync.Mutex

	payloads    map[string][]byte
	shares      map[string]common.ShareSnapshot
	resolutions map[string]common.CompoundIdentity
	mappings    map[string][]common.PathwayRef
	nodes       []pathway.NodeInput
	release     string
	etlRuns     map[string]common.EtlRun
	releases    map[string]string
}

// NewStorage creates an empty in-memory store.
func NewStorage() *Storage {
	return &Storage{
		payloads:    map[string][]byte{},
		shares:      map[string]common.ShareSnapshot{},
		resolutions: map[string]common.CompoundIdentity{},
		mappings:    map[string][]common.PathwayRef{},
		etlRuns:     map[string]common.EtlRun{},
		releases:    map[string]string{},
	}
}

func (s *Storage) SaveAnalysis(ctx context.Context, result *common.AnalysisResult, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payloads[result.AnalysisID]; exists {
		return nil
	}
	s.payloads[result.AnalysisID] = append([]byte(nil), payload...)
	return nil
}

func (s *Storage) GetAnalysis(ctx context.Context, analysisID string) (*common.AnalysisResult, error) {
	payload, err := s.GetAnalysisPayload(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	var result common.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: analysis %s payload is unreadable", common.ErrDataIntegrity, analysisID)
	}
	return &result, nil
}

func (s *Storage) GetAnalysisPayload(ctx context.Context, analysisID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.payloads[analysisID]
	if !ok {
		return nil, fmt.Errorf("%w: analysis %s", common.ErrNotFound, analysisID)
	}
	return append([]byte(nil), payload...), nil
}

func (s *Storage) SaveShare(ctx context.Context, share common.ShareSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	share.Payload = append([]byte(nil), share.Payload...)
	s.shares[share.ShareID] = share
	return nil
}

func (s *Storage) GetShare(ctx context.Context, shareID string) (*common.ShareSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	share, ok := s.shares[shareID]
	if !ok {
		return nil, fmt.Errorf("%w: share %s", common.ErrNotFound, shareID)
	}
	share.Payload = append([]byte(nil), share.Payload...)
	return &share, nil
}

func (s *Storage) GetResolution(ctx context.Context, normalizedQuery string) (*common.CompoundIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.resolutions[normalizedQuery]
	if !ok {
		return nil, fmt.Errorf("%w: resolution %q", common.ErrNotFound, normalizedQuery)
	}
	return &identity, nil
}

func (s *Storage) PutResolution(ctx context.Context, normalizedQuery string, identity common.CompoundIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutions[normalizedQuery] = identity
	return nil
}

func (s *Storage) ReplaceTargetPathways(ctx context.Context, accession string, refs []common.PathwayRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[accession] = append([]common.PathwayRef(nil), refs...)
	return nil
}

func (s *Storage) GetTargetPathways(ctx context.Context, accessions []string) (map[string][]common.PathwayRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mappings := make(map[string][]common.PathwayRef, len(accessions))
	for _, accession := range accessions {
		if refs, ok := s.mappings[accession]; ok {
			mappings[accession] = append([]common.PathwayRef(nil), refs...)
		}
	}
	return mappings, nil
}

func (s *Storage) ListMappedAccessions(ctx context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accessions := make([]string, 0, len(s.mappings))
	for accession := range s.mappings {
		accessions = append(accessions, accession)
	}
	sort.Strings(accessions)
	return accessions[:util.Min(limit, len(accessions))], nil
}

func (s *Storage) ReplacePathwayNodes(ctx context.Context, release string, nodes []pathway.NodeInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = release
	s.nodes = append([]pathway.NodeInput(nil), nodes...)
	return nil
}

func (s *Storage) LoadPathwayNodes(ctx context.Context) (string, []pathway.NodeInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release, append([]pathway.NodeInput(nil), s.nodes...), nil
}

func (s *Storage) CreateEtlRun(ctx context.Context, run common.EtlRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etlRuns[run.ID] = run
	return nil
}

func (s *Storage) UpdateEtlRun(ctx context.Context, run common.EtlRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.etlRuns[run.ID]; !ok {
		return fmt.Errorf("%w: etl run %s", common.ErrNotFound, run.ID)
	}
	s.etlRuns[run.ID] = run
	return nil
}

func (s *Storage) GetEtlRun(ctx context.Context, runID string) (*common.EtlRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.etlRuns[runID]
	if !ok {
		return nil, fmt.Errorf("%w: etl run %s", common.ErrNotFound, runID)
	}
	return &run, nil
}

func (s *Storage) LatestEtlRun(ctx context.Context, source string) (*common.EtlRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *common.EtlRun
	for id := range s.etlRuns {
		run := s.etlRuns[id]
		if run.Source != source {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = &run
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: etl run for %s", common.ErrNotFound, source)
	}
	return latest, nil
}

func (s *Storage) SaveSourceRelease(ctx context.Context, source, release string, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases[source] = release
	return nil
}

func (s *Storage) GetSourceReleases(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	releases := make(map[string]string, len(s.releases))
	for source, release := range s.releases {
		releases[source] = release
	}
	return releases, nil
}
