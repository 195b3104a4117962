package routes

import (
	"net/http"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/common"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetAnalysisHandler(c echo.Context) error {
	type getAnalysisParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getAnalysisResponse struct {
		Message  string                 `json:"message"`
		Analysis *common.AnalysisResult `json:"analysis,omitempty"`
	}

	params := new(getAnalysisParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getAnalysisResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getAnalysisResponse{
			Message: "Invalid request params",
		})
	}

	service := c.(*middleware.AppContext).App.Analysis
	result, err := service.Get(c.Request().Context(), params.ID)
	if err != nil {
		return c.JSON(statusForError(err), getAnalysisResponse{
			Message: "Analysis not found",
		})
	}

	return c.JSON(http.StatusOK, getAnalysisResponse{
		Message:  "Analysis found",
		Analysis: result,
	})
}
