package routes

import (
	"net/http"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/common"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// PostCompareHandler compares two stored analyses. Analyses run with
// different parameter sets are rejected with 409 rather than compared.
func PostCompareHandler(c echo.Context) error {
	type compareBody struct {
		AnalysisIDA string `json:"analysis_id_a" validate:"required"`
		AnalysisIDB string `json:"analysis_id_b" validate:"required"`
	}

	type compareResponse struct {
		Message    string                `json:"message"`
		Comparison *common.CompareResult `json:"comparison,omitempty"`
	}

	data := new(compareBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, compareResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, compareResponse{
			Message: "Invalid request body",
		})
	}

	service := c.(*middleware.AppContext).App.Analysis
	comparison, err := service.Compare(c.Request().Context(), data.AnalysisIDA, data.AnalysisIDB)
	if err != nil {
		return c.JSON(statusForError(err), compareResponse{
			Message: "Comparing analyses failed",
		})
	}

	return c.JSON(http.StatusOK, compareResponse{
		Message:    "Comparison completed",
		Comparison: comparison,
	})
}
