package routes

import (
	"net/http"

	"pathmind/internal/server/middleware"
	"pathmind/pkg/common"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetEtlRunHandler(c echo.Context) error {
	type getEtlRunParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getEtlRunResponse struct {
		Message string         `json:"message"`
		Run     *common.EtlRun `json:"run,omitempty"`
	}

	params := new(getEtlRunParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getEtlRunResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getEtlRunResponse{
			Message: "Invalid request params",
		})
	}

	storage := c.(*middleware.AppContext).App.Storage
	run, err := storage.GetEtlRun(c.Request().Context(), params.ID)
	if err != nil {
		return c.JSON(statusForError(err), getEtlRunResponse{
			Message: "Run not found",
		})
	}

	return c.JSON(http.StatusOK, getEtlRunResponse{
		Message: "Run found",
		Run:     run,
	})
}
