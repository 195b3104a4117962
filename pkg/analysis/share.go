package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"pathmind/pkg/common"
	"pathmind/pkg/logger"
)

// CreateShare freezes a completed analysis behind an opaque share id. The
// stored payload is the analysis result byte for byte as it was persisted,
// so the share keeps reproducing the original numbers even after the same
// drug is re-analyzed against newer source releases.
func (s *Service) CreateShare(ctx context.Context, analysisID string) (*common.ShareSnapshot, error) {
	payload, err := s.storage.GetAnalysisPayload(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	shareID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating share id: %w", err)
	}
	share := common.ShareSnapshot{
		ShareID:    "sh-" + shareID,
		AnalysisID: analysisID,
		CreatedAt:  s.now().UTC(),
		Payload:    payload,
	}
	if err := s.storage.SaveShare(ctx, share); err != nil {
		return nil, err
	}

	logger.Info("[Analysis] Created share", "share", share.ShareID, "analysis", analysisID)
	return &share, nil
}

// GetShare loads a shared analysis by its opaque id and decodes the frozen
// payload.
func (s *Service) GetShare(ctx context.Context, shareID string) (*common.AnalysisResult, error) {
	share, err := s.storage.GetShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	var result common.AnalysisResult
	if err := json.Unmarshal(share.Payload, &result); err != nil {
		return nil, fmt.Errorf("%w: share %s payload is unreadable", common.ErrDataIntegrity, shareID)
	}
	return &result, nil
}
