package routes

import (
	"fmt"
	"net/http"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/analysis"
	"pathmind/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetAnalysisExportHandler renders a stored analysis as a CSV or JSON
// download. Both formats carry the same version snapshot and attribution
// text as the interactive response.
func GetAnalysisExportHandler(c echo.Context) error {
	type exportParams struct {
		ID     string `param:"id" validate:"required"`
		Format string `query:"format" validate:"omitempty,oneof=csv json"`
	}

	params := new(exportParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if params.Format == "" {
		params.Format = "json"
	}

	service := c.(*middleware.AppContext).App.Analysis
	result, err := service.Get(c.Request().Context(), params.ID)
	if err != nil {
		return c.JSON(statusForError(err), map[string]string{"error": "Analysis not found"})
	}

	var payload []byte
	var contentType string
	switch params.Format {
	case "csv":
		payload, err = analysis.ExportCSV(result)
		contentType = "text/csv"
	default:
		payload, err = analysis.ExportJSON(result)
		contentType = echo.MIMEApplicationJSON
	}
	if err != nil {
		logger.Error("Rendering analysis export failed", "analysis", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Rendering export failed"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s.%s", result.AnalysisID, params.Format))
	return c.Blob(http.StatusOK, contentType, payload)
}
