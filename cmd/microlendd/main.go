package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"microlend/config"
	"microlend/observability"
	"microlend/observability/logging"
	"microlend/platform"
	"microlend/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the platform configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("microlendd", "").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.Setup("microlendd", cfg.Environment)
	if cfg.LogFile != "" {
		log = logging.SetupRotating("microlendd", cfg.Environment, cfg.LogFile)
	}

	var db storage.Database
	if cfg.DataDir == "" {
		db = storage.NewMemDB()
		log.Warn("no data directory configured, using in-memory storage")
	} else {
		ldb, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
		if err != nil {
			log.Error("failed to open ledger database", "error", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	p, err := platform.New(cfg, db, log)
	if err != nil {
		log.Error("failed to bootstrap platform", "error", err)
		os.Exit(1)
	}

	log.Info("marketplace platform ready",
		"operator", p.Operator.String(),
		"ledgerAddress", p.LedgerAddress.String(),
		"feeRateBps", p.Fees.RateBps(),
		"scoreValiditySeconds", p.Oracle.ValidityPeriod(),
		"stablecoinUnits", len(cfg.StablecoinUnits),
	)

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				log.Error("metrics listener stopped", "error", err)
			}
		}()
		log.Info("metrics endpoint listening", "address", cfg.MetricsAddress)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
}
