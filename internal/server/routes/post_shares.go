package routes

import (
	"net/http"
	"time"

	"pathmind/internal/server/middleware"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// PostShareHandler freezes a stored analysis behind an opaque share id. The
// frozen payload never changes, re-running the same query later produces a
// new analysis and leaves existing shares intact.
func PostShareHandler(c echo.Context) error {
	type shareBody struct {
		AnalysisID string `json:"analysis_id" validate:"required"`
	}

	type shareResponse struct {
		Message    string    `json:"message"`
		ShareID    string    `json:"share_id,omitempty"`
		AnalysisID string    `json:"analysis_id,omitempty"`
		CreatedAt  time.Time `json:"created_at,omitempty"`
	}

	data := new(shareBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, shareResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, shareResponse{
			Message: "Invalid request body",
		})
	}

	service := c.(*middleware.AppContext).App.Analysis
	share, err := service.CreateShare(c.Request().Context(), data.AnalysisID)
	if err != nil {
		return c.JSON(statusForError(err), shareResponse{
			Message: "Creating share failed",
		})
	}

	return c.JSON(http.StatusCreated, shareResponse{
		Message:    "Share created",
		ShareID:    share.ShareID,
		AnalysisID: share.AnalysisID,
		CreatedAt:  share.CreatedAt,
	})
}
