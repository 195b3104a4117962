package routes

import (
	"net/http"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/common"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetShareHandler(c echo.Context) error {
	type getShareParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getShareResponse struct {
		Message  string                 `json:"message"`
		Analysis *common.AnalysisResult `json:"analysis,omitempty"`
	}

	params := new(getShareParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getShareResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getShareResponse{
			Message: "Invalid request params",
		})
	}

	service := c.(*middleware.AppContext).App.Analysis
	result, err := service.GetShare(c.Request().Context(), params.ID)
	if err != nil {
		return c.JSON(statusForError(err), getShareResponse{
			Message: "Share not found",
		})
	}

	return c.JSON(http.StatusOK, getShareResponse{
		Message:  "Share found",
		Analysis: result,
	})
}
