package middleware

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"pathmind/internal/cache"
	"pathmind/pkg/analysis"
	"pathmind/pkg/clients"
	"pathmind/pkg/store"
)

// Prober is one upstream health probe.
type Prober interface {
	Ping(ctx context.Context) clients.Status
}

type App struct {
	DBConn   *pgxpool.Pool
	Queue    *amqp091.Channel
	Analysis *analysis.Service
	Storage  store.Storage
	Cache    cache.Cache

	// Probes are the upstream sources checked by the health route, in
	// report order. The entry named by PrimarySource gates overall "down".
	Probes        []NamedProber
	PrimarySource string
}

type NamedProber struct {
	Source string
	Prober Prober
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
