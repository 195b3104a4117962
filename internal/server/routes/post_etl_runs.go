package routes

import (
	"net/http"
	"time"

	"pathmind/internal/queue"
	"pathmind/internal/server/middleware"
	"pathmind/pkg/common"
	"pathmind/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// PostEtlRunHandler records a queued ETL run and hands it to the worker. The
// run id is returned immediately so the caller can poll for completion.
func PostEtlRunHandler(c echo.Context) error {
	type etlRunBody struct {
		Mode string `json:"mode" validate:"omitempty,oneof=full mappings"`
	}

	type etlRunResponse struct {
		Message string `json:"message"`
		RunID   string `json:"run_id,omitempty"`
		Status  string `json:"status,omitempty"`
	}

	data := new(etlRunBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, etlRunResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, etlRunResponse{
			Message: "Invalid request body",
		})
	}
	if data.Mode == "" {
		data.Mode = "full"
	}

	runID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, etlRunResponse{
			Message: "Internal server error",
		})
	}
	runID = "run-" + runID

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	run := common.EtlRun{
		ID:        runID,
		Source:    "reactome",
		Mode:      data.Mode,
		Status:    common.JobQueued,
		StartedAt: time.Now().UTC(),
	}
	if err := app.Storage.CreateEtlRun(ctx, run); err != nil {
		logger.Error("Recording queued run failed", "run", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, etlRunResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.RequestEtlRun(app.Queue, runID, data.Mode); err != nil {
		logger.Error("Publishing etl run failed", "run", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, etlRunResponse{
			Message: "Enqueueing run failed",
		})
	}

	return c.JSON(http.StatusAccepted, etlRunResponse{
		Message: "Run queued",
		RunID:   runID,
		Status:  string(common.JobQueued),
	})
}
