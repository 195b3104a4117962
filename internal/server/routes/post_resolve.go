package routes

import (
	"net/http"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/common"
	"pathmind/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// PostResolveHandler canonicalizes a free-text drug query. Ambiguous and
// not-found outcomes are successful responses carrying the resolution status,
// not errors.
func PostResolveHandler(c echo.Context) error {
	type resolveBody struct {
		Query  string `json:"query" validate:"required"`
		Choice string `json:"choice"`
	}

	type resolveResponse struct {
		Message    string             `json:"message"`
		Resolution *common.Resolution `json:"resolution,omitempty"`
	}

	data := new(resolveBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, resolveResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, resolveResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	service := c.(*middleware.AppContext).App.Analysis

	resolution, err := service.Resolve(ctx, data.Query, data.Choice)
	if err != nil {
		logger.Warn("Resolving drug query failed", "query", data.Query, "err", err)
		return c.JSON(statusForError(err), resolveResponse{
			Message: "Resolving drug query failed",
		})
	}

	return c.JSON(http.StatusOK, resolveResponse{
		Message:    string(resolution.Status),
		Resolution: &resolution,
	})
}
