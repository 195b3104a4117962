package routes

import (
	"net/http"
	"strconv"

	"pathmind/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetSuggestHandler returns name completions for a query prefix. Prefixes
// shorter than two characters and upstream failures both yield an empty list.
func GetSuggestHandler(c echo.Context) error {
	type suggestResponse struct {
		Suggestions []string `json:"suggestions"`
	}

	prefix := c.QueryParam("q")
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 50 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = parsed
	}

	service := c.(*middleware.AppContext).App.Analysis
	suggestions := service.Suggest(c.Request().Context(), prefix, limit)
	if suggestions == nil {
		suggestions = []string{}
	}

	return c.JSON(http.StatusOK, suggestResponse{Suggestions: suggestions})
}
