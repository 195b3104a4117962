// Package etl rebuilds the pathway hierarchy index and the target-to-pathway
// mapping tables from the upstream sources. A rebuild writes everything to
// storage first and only then publishes the new in-memory snapshot, so
// queries never observe a half-built hierarchy.
package etl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"pathmind/pkg/common"
	"pathmind/pkg/logger"
	"pathmind/pkg/pathway"
	"pathmind/pkg/store"
)

// Modes of a rebuild run.
const (
	ModeFull     = "full"
	ModeMappings = "mappings"
)

const mappingFetchers = 4

// HierarchySource supplies the raw hierarchy and per-accession memberships.
type HierarchySource interface {
	EventsHierarchy(ctx context.Context) ([]pathway.NodeInput, error)
	GeneSetSizes(ctx context.Context, pathwayIDs []string) (map[string]int, error)
	PathwaysFor(ctx context.Context, accession string) ([]common.PathwayRef, error)
	Release(ctx context.Context) (string, error)
}

// ReleaseFunc fetches the current release tag of one source.
type ReleaseFunc func(ctx context.Context) (string, error)

// Runner executes hierarchy rebuilds and records their lifecycle in storage.
type Runner struct {
	storage    store.Storage
	hierarchy  HierarchySource
	index      *pathway.Index
	releases   map[string]ReleaseFunc
	seeds      []string
	now        func() time.Time
	reloadedAt time.Time
}

// NewRunner builds a runner. seeds are accessions always kept mapped, on
// top of whatever previous analyses have written back.
func NewRunner(storage store.Storage, hierarchy HierarchySource, index *pathway.Index, releases map[string]ReleaseFunc, seeds []string) *Runner {
	return &Runner{
		storage:   storage,
		hierarchy: hierarchy,
		index:     index,
		releases:  releases,
		seeds:     seeds,
		now:       time.Now,
	}
}

// LoadIndex restores the published snapshot from storage, used at startup
// before any rebuild has run in this process.
func (r *Runner) LoadIndex(ctx context.Context) error {
	release, nodes, err := r.storage.LoadPathwayNodes(ctx)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		logger.Warn("[ETL] No stored hierarchy, index starts empty")
		return nil
	}
	snapshot, err := pathway.BuildSnapshot(release, nodes)
	if err != nil {
		return err
	}
	r.index.Publish(snapshot)
	logger.Info("[ETL] Restored hierarchy index", "release", release, "pathways", snapshot.Len())
	return nil
}

// WatchRebuilds keeps the published snapshot current in processes that do
// not run rebuilds themselves. It polls the run log until ctx is canceled
// and restores the index whenever a full rebuild completed elsewhere.
func (r *Runner) WatchRebuilds(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReloadOnNewRun(ctx); err != nil {
				logger.Warn("[ETL] Hierarchy reload failed", "error", err)
			}
		}
	}
}

// ReloadOnNewRun restores the snapshot from storage when a full rebuild
// succeeded after the last reload seen by this runner. It reports whether a
// reload happened.
func (r *Runner) ReloadOnNewRun(ctx context.Context) (bool, error) {
	run, err := r.storage.LatestEtlRun(ctx, "reactome")
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if run.Status != common.JobSucceeded || run.Mode != ModeFull || run.CompletedAt == nil {
		return false, nil
	}
	if !run.CompletedAt.After(r.reloadedAt) {
		return false, nil
	}
	if err := r.LoadIndex(ctx); err != nil {
		return false, err
	}
	r.reloadedAt = *run.CompletedAt
	return true, nil
}

// Run executes one rebuild under the given run id. The run row is created
// first and always completed, either succeeded or failed with the error in
// its details.
func (r *Runner) Run(ctx context.Context, runID, mode string) error {
	if mode != ModeFull && mode != ModeMappings {
		return fmt.Errorf("%w: unknown etl mode %q", common.ErrValidation, mode)
	}

	run := common.EtlRun{
		ID:        runID,
		Source:    "reactome",
		Mode:      mode,
		Status:    common.JobRunning,
		StartedAt: r.now().UTC(),
		Details:   map[string]any{},
	}
	if err := r.storage.CreateEtlRun(ctx, run); err != nil {
		return err
	}

	rows, failures, err := r.rebuild(ctx, mode)
	completed := r.now().UTC()
	run.CompletedAt = &completed
	run.RowsUpserted = rows
	if len(failures) > 0 {
		run.Details["failed_accessions"] = failures
	}
	if err != nil {
		run.Status = common.JobFailed
		run.Details["error"] = err.Error()
		if updateErr := r.storage.UpdateEtlRun(ctx, run); updateErr != nil {
			logger.Error("[ETL] Recording failed run failed", "run", runID, "error", updateErr)
		}
		return err
	}

	run.Status = common.JobSucceeded
	if err := r.storage.UpdateEtlRun(ctx, run); err != nil {
		return err
	}
	logger.Info("[ETL] Rebuild completed", "run", runID, "mode", mode, "rows", rows, "failures", len(failures))
	return nil
}

func (r *Runner) rebuild(ctx context.Context, mode string) (int, []string, error) {
	rows := 0

	if mode == ModeFull {
		nodeRows, err := r.rebuildHierarchy(ctx)
		if err != nil {
			return 0, nil, err
		}
		rows += nodeRows
	}

	mappingRows, failures, err := r.rebuildMappings(ctx)
	if err != nil {
		return rows, failures, err
	}
	rows += mappingRows

	r.refreshReleases(ctx)
	return rows, failures, nil
}

func (r *Runner) rebuildHierarchy(ctx context.Context) (int, error) {
	release, err := r.hierarchy.Release(ctx)
	if err != nil {
		return 0, err
	}

	nodes, err := r.hierarchy.EventsHierarchy(ctx)
	if err != nil {
		return 0, err
	}

	pathwayIDs := make([]string, 0, len(nodes))
	for _, node := range nodes {
		pathwayIDs = append(pathwayIDs, node.ID)
	}
	sort.Strings(pathwayIDs)

	sizes, err := r.hierarchy.GeneSetSizes(ctx, pathwayIDs)
	if err != nil {
		return 0, err
	}
	for i := range nodes {
		nodes[i].GeneSetSize = sizes[nodes[i].ID]
	}

	if err := r.storage.ReplacePathwayNodes(ctx, release, nodes); err != nil {
		return 0, err
	}

	snapshot, err := pathway.BuildSnapshot(release, nodes)
	if err != nil {
		return 0, err
	}
	r.index.Publish(snapshot)
	logger.Info("[ETL] Published hierarchy snapshot", "release", release, "pathways", snapshot.Len())
	return len(nodes), nil
}

// rebuildMappings refreshes pathway membership for the seed accessions plus
// every accession previous analyses have touched. Individual accession
// failures are collected, not fatal.
func (r *Runner) rebuildMappings(ctx context.Context) (int, []string, error) {
	mapped, err := r.storage.ListMappedAccessions(ctx, 10000)
	if err != nil {
		return 0, nil, err
	}

	seen := map[string]bool{}
	accessions := make([]string, 0, len(r.seeds)+len(mapped))
	for _, accession := range append(append([]string(nil), r.seeds...), mapped...) {
		if accession == "" || seen[accession] {
			continue
		}
		seen[accession] = true
		accessions = append(accessions, accession)
	}
	sort.Strings(accessions)

	type outcome struct {
		accession string
		rows      int
		failed    bool
	}
	outcomes := make(chan outcome, len(accessions))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(mappingFetchers)
	for _, accession := range accessions {
		accession := accession
		group.Go(func() error {
			refs, err := r.hierarchy.PathwaysFor(groupCtx, accession)
			if err != nil {
				logger.Warn("[ETL] Mapping fetch failed", "accession", accession, "error", err)
				outcomes <- outcome{accession: accession, failed: true}
				return nil
			}
			if err := r.storage.ReplaceTargetPathways(groupCtx, accession, refs); err != nil {
				logger.Warn("[ETL] Mapping write failed", "accession", accession, "error", err)
				outcomes <- outcome{accession: accession, failed: true}
				return nil
			}
			outcomes <- outcome{accession: accession, rows: len(refs)}
			return nil
		})
	}
	_ = group.Wait()
	close(outcomes)

	rows := 0
	failures := make([]string, 0)
	for result := range outcomes {
		if result.failed {
			failures = append(failures, result.accession)
			continue
		}
		rows += result.rows
	}
	sort.Strings(failures)
	return rows, failures, nil
}

// refreshReleases records the current release of every configured source.
// Failures leave the previous value in place.
func (r *Runner) refreshReleases(ctx context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	for source, fetch := range r.releases {
		source, fetch := source, fetch
		group.Go(func() error {
			release, err := fetch(groupCtx)
			if err != nil {
				logger.Warn("[ETL] Release fetch failed", "source", source, "error", err)
				return nil
			}
			if err := r.storage.SaveSourceRelease(groupCtx, source, release, r.now().UTC()); err != nil {
				logger.Warn("[ETL] Release save failed", "source", source, "error", err)
			}
			return nil
		})
	}
	_ = group.Wait()
}
