package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pathmind/internal/cache"
	"pathmind/internal/queue"
	mid "pathmind/internal/server/middleware"
	"pathmind/internal/util"
	"pathmind/pkg/analysis"
	"pathmind/pkg/clients"
	"pathmind/pkg/etl"
	"pathmind/pkg/logger"
	"pathmind/pkg/pathway"
	pgstore "pathmind/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrations, err := migrate.New(
		"file://"+util.GetEnvString("MIGRATIONS_PATH", "migrations"),
		util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to load migrations", "err", err)
	}
	if err := migrations.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Fatal("Failed to apply migrations", "err", err)
	}

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	storage := pgstore.NewDBStorageWithConnection(conn)

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	if err := queue.SetupQueues(ch, []string{queue.EtlQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	chembl := clients.NewChEMBL(util.GetEnvString("CHEMBL_URL", "https://www.ebi.ac.uk/chembl/api/data"))
	reactome := clients.NewReactome(util.GetEnvString("REACTOME_URL", "https://reactome.org/ContentService"))
	uniprot := clients.NewUniProt(util.GetEnvString("UNIPROT_URL", "https://rest.uniprot.org"))
	pubchem := clients.NewPubChem(util.GetEnvString("PUBCHEM_URL", "https://pubchem.ncbi.nlm.nih.gov"))
	openTargets := clients.NewOpenTargets(util.GetEnvString("OPENTARGETS_URL", "https://api.platform.opentargets.org"))

	var analysisCache cache.Cache
	if addr := util.GetEnv("REDIS_ADDR"); addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, addr, util.GetEnv("REDIS_PASSWORD"), 0)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process cache", "err", err)
			analysisCache = cache.NewMemoryCache()
		} else {
			defer redisCache.Close()
			analysisCache = redisCache
		}
	} else {
		analysisCache = cache.NewMemoryCache()
	}

	index := &pathway.Index{}
	releases := map[string]etl.ReleaseFunc{
		"chembl":      chembl.Release,
		"reactome":    reactome.Release,
		"uniprot":     uniprot.Release,
		"pubchem":     pubchem.Release,
		"opentargets": openTargets.Release,
	}
	var seeds []string
	if raw := util.GetEnv("ETL_SEED_ACCESSIONS"); raw != "" {
		for _, accession := range strings.Split(raw, ",") {
			if accession = strings.TrimSpace(accession); accession != "" {
				seeds = append(seeds, accession)
			}
		}
	}
	runner := etl.NewRunner(storage, reactome, index, releases, seeds)
	if err := runner.LoadIndex(ctx); err != nil {
		logger.Warn("Loading pathway index from storage failed", "err", err)
	}
	reloadInterval := time.Duration(util.GetEnvNumeric("ETL_RELOAD_SECONDS", 30)) * time.Second
	go runner.WatchRebuilds(ctx, reloadInterval)

	service := analysis.NewService(analysis.Config{
		IdentityProvider: chembl,
		Evidence:         chembl,
		Pathways:         reactome,
		Mapping:          uniprot,
		Priors:           openTargets,
		Suggest:          pubchem,
		Storage:          storage,
		Cache:            analysisCache,
		Index:            index,
	})

	app := &mid.App{
		DBConn:   conn,
		Queue:    ch,
		Analysis: service,
		Storage:  storage,
		Cache:    analysisCache,
		Probes: []mid.NamedProber{
			{Source: "chembl", Prober: chembl},
			{Source: "reactome", Prober: reactome},
			{Source: "uniprot", Prober: uniprot},
			{Source: "pubchem", Prober: pubchem},
			{Source: "opentargets", Prober: openTargets},
		},
		PrimarySource: "chembl",
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
