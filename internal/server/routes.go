package server

import (
	"pathmind/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", routes.GetHealthHandler)

	apiRoutes := e.Group("/api")

	// Drug identity routes
	apiRoutes.POST("/drugs/resolve", routes.PostResolveHandler)
	apiRoutes.GET("/drugs/suggest", routes.GetSuggestHandler)

	// Analysis routes
	apiRoutes.POST("/analyses", routes.PostAnalysisHandler)
	apiRoutes.GET("/analyses/:id", routes.GetAnalysisHandler)
	apiRoutes.GET("/analyses/:id/export", routes.GetAnalysisExportHandler)
	apiRoutes.POST("/analyses/compare", routes.PostCompareHandler)

	// Share routes
	apiRoutes.POST("/shares", routes.PostShareHandler)
	apiRoutes.GET("/shares/:id", routes.GetShareHandler)

	// ETL routes
	apiRoutes.POST("/etl/runs", routes.PostEtlRunHandler)
	apiRoutes.GET("/etl/runs/:id", routes.GetEtlRunHandler)
}
