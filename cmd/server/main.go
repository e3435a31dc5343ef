package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/api"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/artifacts"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/config"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/jobs"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Global().Error("failed to load config", err)
		os.Exit(1)
	}

	log := logging.Global()
	log.SetLevel(logging.ParseLevel(cfg.LogLevel))
	log.SetFormat(cfg.LogFormat)

	store, err := newJobStore(cfg)
	if err != nil {
		log.Error("failed to open job store", err, logging.String("backend", cfg.JobStore))
		os.Exit(1)
	}
	defer store.Close()

	artifactStore := artifacts.NewManager(cfg.ArtifactsDir, log)
	runner := pipeline.NewRunner(artifactStore, cfg.TrainWorkers, log)

	manager := jobs.NewManager(store, runner, artifactStore, cfg.MaxWorkers, cfg.JobRetention, log)
	manager.StartRetentionSweeper()
	defer manager.Shutdown()

	server := api.NewServer(cfg.ListenAddr, manager, cfg.MaxSampleRows, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server stopped", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("shutdown did not complete cleanly", logging.Err(err))
	}
}

func newJobStore(cfg *config.Config) (jobs.Store, error) {
	switch cfg.JobStore {
	case "sqlite":
		return jobs.NewSQLiteStore(cfg.SQLitePath)
	case "redis":
		return jobs.NewRedisStore(cfg.RedisURL, cfg.JobRetention)
	default:
		return jobs.NewMemoryStore(), nil
	}
}
