package routes

import (
	"errors"
	"net/http"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/common"
	"pathmind/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// PostAnalysisHandler runs a full analysis for a drug query. An ambiguous
// query returns 409 with the candidate list so the caller can retry with an
// explicit choice.
func PostAnalysisHandler(c echo.Context) error {
	type analysisBody struct {
		Query  string                 `json:"query" validate:"required"`
		Choice string                 `json:"choice"`
		Params *common.AnalysisParams `json:"params"`
	}

	type analysisResponse struct {
		Message    string                       `json:"message"`
		Analysis   *common.AnalysisResult       `json:"analysis,omitempty"`
		Candidates []common.ResolutionCandidate `json:"candidates,omitempty"`
	}

	data := new(analysisBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, analysisResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, analysisResponse{
			Message: "Invalid request body",
		})
	}

	params := common.DefaultParams()
	if data.Params != nil {
		params = *data.Params
	}

	ctx := c.Request().Context()
	service := c.(*middleware.AppContext).App.Analysis

	result, err := service.Run(ctx, data.Query, data.Choice, params)
	if err != nil {
		var ambiguous *common.AmbiguousError
		if errors.As(err, &ambiguous) {
			return c.JSON(http.StatusConflict, analysisResponse{
				Message:    "Query is ambiguous, pick a candidate and retry with choice",
				Candidates: ambiguous.Candidates,
			})
		}
		logger.Warn("Analysis run failed", "query", data.Query, "err", err)
		return c.JSON(statusForError(err), analysisResponse{
			Message: "Analysis run failed",
		})
	}

	return c.JSON(http.StatusCreated, analysisResponse{
		Message:  "Analysis completed",
		Analysis: result,
	})
}
