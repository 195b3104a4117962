package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pathmind/pkg/common"
	"pathmind/pkg/pathway"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// DBStorage implements the storage interface on PostgreSQL. Analyses and
// shares keep the full result as a frozen JSON payload next to the indexed
// columns, so reads reproduce exactly what was computed.
type DBStorage struct {
	conn pgxIConn
}

// NewDBStorageWithConnection creates a DBStorage on an existing connection
// or pool.
func NewDBStorageWithConnection(conn pgxIConn) *DBStorage {
	return &DBStorage{conn: conn}
}

func (s *DBStorage) SaveAnalysis(ctx context.Context, result *common.AnalysisResult, payload []byte) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning analysis save: %w", err)
	}
	defer tx.Rollback(ctx)

	params, err := json.Marshal(result.Params)
	if err != nil {
		return fmt.Errorf("encoding analysis params: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_runs (analysis_id, created_at, query, canonical_id, params)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (analysis_id) DO NOTHING`,
		result.AnalysisID, result.CreatedAt, result.Query, result.CanonicalID, params)
	if err != nil {
		return fmt.Errorf("saving analysis run: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_payloads (analysis_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (analysis_id) DO NOTHING`,
		result.AnalysisID, payload)
	if err != nil {
		return fmt.Errorf("saving analysis payload: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *DBStorage) GetAnalysis(ctx context.Context, analysisID string) (*common.AnalysisResult, error) {
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

func (s *DBStorage) GetAnalysisPayload(ctx context.Context, analysisID string) ([]byte, error) {
	var payload []byte
	err := s.conn.QueryRow(ctx,
		`SELECT payload FROM analysis_payloads WHERE analysis_id = $1`,
		analysisID).Scan(&payload)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: analysis %s", common.ErrNotFound, analysisID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading analysis payload: %w", err)
	}
	return payload, nil
}

func (s *DBStorage) SaveShare(ctx context.Context, share common.ShareSnapshot) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO share_links (share_id, analysis_id, created_at, payload)
		VALUES ($1, $2, $3, $4)`,
		share.ShareID, share.AnalysisID, share.CreatedAt, share.Payload)
	if err != nil {
		return fmt.Errorf("saving share link: %w", err)
	}
	return nil
}

func (s *DBStorage) GetShare(ctx context.Context, shareID string) (*common.ShareSnapshot, error) {
	share := common.ShareSnapshot{ShareID: shareID}
	err := s.conn.QueryRow(ctx,
		`SELECT analysis_id, created_at, payload FROM share_links WHERE share_id = $1`,
		shareID).Scan(&share.AnalysisID, &share.CreatedAt, &share.Payload)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: share %s", common.ErrNotFound, shareID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading share link: %w", err)
	}
	return &share, nil
}

func (s *DBStorage) GetResolution(ctx context.Context, normalizedQuery string) (*common.CompoundIdentity, error) {
	var payload []byte
	err := s.conn.QueryRow(ctx,
		`SELECT identity FROM resolution_cache WHERE normalized_query = $1`,
		normalizedQuery).Scan(&payload)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: resolution %q", common.ErrNotFound, normalizedQuery)
	}
	if err != nil {
		return nil, fmt.Errorf("loading resolution: %w", err)
	}
	var identity common.CompoundIdentity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return nil, fmt.Errorf("%w: resolution %q is unreadable", common.ErrDataIntegrity, normalizedQuery)
	}
	return &identity, nil
}

func (s *DBStorage) PutResolution(ctx context.Context, normalizedQuery string, identity common.CompoundIdentity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encoding resolution: %w", err)
	}
	// concurrent writers for the same query race benignly, last write wins
	_, err = s.conn.Exec(ctx, `
		INSERT INTO resolution_cache (normalized_query, identity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (normalized_query) DO UPDATE
		SET identity = EXCLUDED.identity, updated_at = now()`,
		normalizedQuery, payload)
	if err != nil {
		return fmt.Errorf("saving resolution: %w", err)
	}
	return nil
}

func (s *DBStorage) ReplaceTargetPathways(ctx context.Context, accession string, refs []common.PathwayRef) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning mapping replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM target_pathway_map WHERE accession = $1`, accession); err != nil {
		return fmt.Errorf("clearing target mapping: %w", err)
	}
	for _, ref := range refs {
		_, err := tx.Exec(ctx, `
			INSERT INTO target_pathway_map (accession, pathway_id, pathway_name, url)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (accession, pathway_id) DO NOTHING`,
			accession, ref.PathwayID, ref.PathwayName, ref.URL)
		if err != nil {
			return fmt.Errorf("saving target mapping: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *DBStorage) GetTargetPathways(ctx context.Context, accessions []string) (map[string][]common.PathwayRef, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT accession, pathway_id, pathway_name, url
		FROM target_pathway_map
		WHERE accession = ANY($1)
		ORDER BY accession, pathway_id`, accessions)
	if err != nil {
		return nil, fmt.Errorf("loading target mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string][]common.PathwayRef)
	for rows.Next() {
		var accession string
		var ref common.PathwayRef
		if err := rows.Scan(&accession, &ref.PathwayID, &ref.PathwayName, &ref.URL); err != nil {
			return nil, fmt.Errorf("scanning target mapping: %w", err)
		}
		mappings[accession] = append(mappings[accession], ref)
	}
	return mappings, rows.Err()
}

func (s *DBStorage) ListMappedAccessions(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT accession FROM target_pathway_map ORDER BY accession LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing mapped accessions: %w", err)
	}
	defer rows.Close()

	accessions := make([]string, 0)
	for rows.Next() {
		var accession string
		if err := rows.Scan(&accession); err != nil {
			return nil, fmt.Errorf("scanning accession: %w", err)
		}
		accessions = append(accessions, accession)
	}
	return accessions, rows.Err()
}

func (s *DBStorage) ReplacePathwayNodes(ctx context.Context, release string, nodes []pathway.NodeInput) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning hierarchy replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pathway_metadata`); err != nil {
		return fmt.Errorf("clearing pathway metadata: %w", err)
	}
	for _, node := range nodes {
		_, err := tx.Exec(ctx, `
			INSERT INTO pathway_metadata (pathway_id, name, parent_ids, gene_set_size, url, release)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			node.ID, node.Name, node.ParentIDs, node.GeneSetSize, node.URL, release)
		if err != nil {
			return fmt.Errorf("saving pathway %s: %w", node.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *DBStorage) LoadPathwayNodes(ctx context.Context) (string, []pathway.NodeInput, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT pathway_id, name, parent_ids, gene_set_size, url, release
		FROM pathway_metadata ORDER BY pathway_id`)
	if err != nil {
		return "", nil, fmt.Errorf("loading pathway metadata: %w", err)
	}
	defer rows.Close()

	release := ""
	nodes := make([]pathway.NodeInput, 0)
	for rows.Next() {
		var node pathway.NodeInput
		if err := rows.Scan(&node.ID, &node.Name, &node.ParentIDs, &node.GeneSetSize, &node.URL, &release); err != nil {
			return "", nil, fmt.Errorf("scanning pathway metadata: %w", err)
		}
		nodes = append(nodes, node)
	}
	return release, nodes, rows.Err()
}

func (s *DBStorage) CreateEtlRun(ctx context.Context, run common.EtlRun) error {
	details, err := json.Marshal(run.Details)
	if err != nil {
		return fmt.Errorf("encoding run details: %w", err)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO etl_runs (id, source, mode, status, started_at, rows_upserted, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, started_at = EXCLUDED.started_at, details = EXCLUDED.details`,
		run.ID, run.Source, run.Mode, run.Status, run.StartedAt, run.RowsUpserted, details)
	if err != nil {
		return fmt.Errorf("creating etl run: %w", err)
	}
	return nil
}

func (s *DBStorage) UpdateEtlRun(ctx context.Context, run common.EtlRun) error {
	details, err := json.Marshal(run.Details)
	if err != nil {
		return fmt.Errorf("encoding run details: %w", err)
	}
	tag, err := s.conn.Exec(ctx, `
		UPDATE etl_runs
		SET status = $2, completed_at = $3, rows_upserted = $4, details = $5
		WHERE id = $1`,
		run.ID, run.Status, run.CompletedAt, run.RowsUpserted, details)
	if err != nil {
		return fmt.Errorf("updating etl run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: etl run %s", common.ErrNotFound, run.ID)
	}
	return nil
}

func (s *DBStorage) GetEtlRun(ctx context.Context, runID string) (*common.EtlRun, error) {
	return s.scanEtlRun(s.conn.QueryRow(ctx, `
		SELECT id, source, mode, status, started_at, completed_at, rows_upserted, details
		FROM etl_runs WHERE id = $1`, runID), runID)
}

func (s *DBStorage) LatestEtlRun(ctx context.Context, source string) (*common.EtlRun, error) {
	return s.scanEtlRun(s.conn.QueryRow(ctx, `
		SELECT id, source, mode, status, started_at, completed_at, rows_upserted, details
		FROM etl_runs WHERE source = $1 ORDER BY started_at DESC LIMIT 1`, source), source)
}

func (s *DBStorage) scanEtlRun(row pgxv5.Row, key string) (*common.EtlRun, error) {
	var run common.EtlRun
	var details []byte
	err := row.Scan(&run.ID, &run.Source, &run.Mode, &run.Status, &run.StartedAt, &run.CompletedAt, &run.RowsUpserted, &details)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: etl run %s", common.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("loading etl run: %w", err)
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &run.Details); err != nil {
			return nil, fmt.Errorf("%w: etl run %s details are unreadable", common.ErrDataIntegrity, key)
		}
	}
	return &run, nil
}

func (s *DBStorage) SaveSourceRelease(ctx context.Context, source, release string, fetchedAt time.Time) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO source_release_versions (source, release, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (source) DO UPDATE
		SET release = EXCLUDED.release, fetched_at = EXCLUDED.fetched_at`,
		source, release, fetchedAt)
	if err != nil {
		return fmt.Errorf("saving source release: %w", err)
	}
	return nil
}

func (s *DBStorage) GetSourceReleases(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT source, release FROM source_release_versions`)
	if err != nil {
		return nil, fmt.Errorf("loading source releases: %w", err)
	}
	defer rows.Close()

	releases := make(map[string]string)
	for rows.Next() {
		var source, release string
		if err := rows.Scan(&source, &release); err != nil {
			return nil, fmt.Errorf("scanning source release: %w", err)
		}
		releases[source] = release
	}
	return releases, rows.Err()
}
