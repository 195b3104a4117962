package routes

import (
	"errors"
	"net/http"
	"time"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/clients"
	"pathmind/pkg/common"
	"pathmind/pkg/logger"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// etlStaleAfter is how old the last completed hierarchy rebuild may be
// before the service reports itself degraded.
const etlStaleAfter = 36 * time.Hour

// GetHealthHandler probes every upstream and reports overall status:
// "down" when the activity source is unreachable, "degraded" when any other
// source is unreachable or the pathway data is stale, "healthy" otherwise.
func GetHealthHandler(c echo.Context) error {
	type sourceStatus struct {
		Source    string `json:"source"`
		Reachable bool   `json:"reachable"`
		LatencyMs int64  `json:"latency_ms"`
		Error     string `json:"error,omitempty"`
	}

	type healthResponse struct {
		Status       string         `json:"status"`
		Sources      []sourceStatus `json:"sources"`
		CacheHits    uint64         `json:"cache_hits"`
		CacheMisses  uint64         `json:"cache_misses"`
		CacheHitRate float64        `json:"cache_hit_rate"`
		LastEtlRunAt *time.Time     `json:"last_etl_run_at,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	statuses := make([]clients.Status, len(app.Probes))
	group, probeCtx := errgroup.WithContext(ctx)
	for i, probe := range app.Probes {
		i, probe := i, probe
		group.Go(func() error {
			statuses[i] = probe.Prober.Ping(probeCtx)
			return nil
		})
	}
	_ = group.Wait()

	overall := "healthy"
	sources := make([]sourceStatus, 0, len(statuses))
	for i, status := range statuses {
		sources = append(sources, sourceStatus{
			Source:    app.Probes[i].Source,
			Reachable: status.Reachable,
			LatencyMs: status.Latency.Milliseconds(),
			Error:     status.Error,
		})
		if status.Reachable {
			continue
		}
		if app.Probes[i].Source == app.PrimarySource {
			overall = "down"
		} else if overall == "healthy" {
			overall = "degraded"
		}
	}

	var lastRunAt *time.Time
	run, err := app.Storage.LatestEtlRun(ctx, "reactome")
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		logger.Warn("Loading latest run for health check failed", "err", err)
	}
	stale := true
	if run != nil && run.Status == common.JobSucceeded && run.CompletedAt != nil {
		lastRunAt = run.CompletedAt
		stale = time.Since(*run.CompletedAt) > etlStaleAfter
	}
	if stale && overall == "healthy" {
		overall = "degraded"
	}

	stats := app.Cache.Stats()
	hitRate := 0.0
	if total := stats.Hits + stats.Misses; total > 0 {
		hitRate = float64(stats.Hits) / float64(total)
	}

	code := http.StatusOK
	if overall == "down" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, healthResponse{
		Status:       overall,
		Sources:      sources,
		CacheHits:    stats.Hits,
		CacheMisses:  stats.Misses,
		CacheHitRate: hitRate,
		LastEtlRunAt: lastRunAt,
	})
}
