package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pathmind/internal/util"
	"pathmind/pkg/clients"
	"pathmind/pkg/etl"
	"pathmind/pkg/logger"
	"pathmind/pkg/logger/console"
	"pathmind/pkg/pathway"
	pgstore "pathmind/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// One-shot rebuild for cron or manual invocation. The worker handles queued
// rebuilds, this binary runs one inline and exits nonzero on failure.
func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	mode := util.GetEnvString("ETL_MODE", etl.ModeFull)

	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	storage := pgstore.NewDBStorageWithConnection(pgConn)

	chembl := clients.NewChEMBL(util.GetEnvString("CHEMBL_URL", "https://www.ebi.ac.uk/chembl/api/data"))
	reactome := clients.NewReactome(util.GetEnvString("REACTOME_URL", "https://reactome.org/ContentService"))
	uniprot := clients.NewUniProt(util.GetEnvString("UNIPROT_URL", "https://rest.uniprot.org"))
	pubchem := clients.NewPubChem(util.GetEnvString("PUBCHEM_URL", "https://pubchem.ncbi.nlm.nih.gov"))
	openTargets := clients.NewOpenTargets(util.GetEnvString("OPENTARGETS_URL", "https://api.platform.opentargets.org"))

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
	runner := etl.NewRunner(storage, reactome, &pathway.Index{}, releases, seeds)

	runID, err := gonanoid.New()
	if err != nil {
		logger.Fatal("Failed to generate run id", "err", err)
	}
	runID = "run-" + runID

	logger.Info("Starting rebuild", "run", runID, "mode", mode)
	if err := runner.Run(ctx, runID, mode); err != nil {
		logger.Fatal("Rebuild failed", "run", runID, "err", err)
	}
	logger.Info("Rebuild finished", "run", runID)
}
