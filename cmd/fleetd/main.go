package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetscale/fleetd/api"
	"github.com/fleetscale/fleetd/internal/executor"
	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/internal/orchestrator"
	"github.com/fleetscale/fleetd/internal/telemetry"
	"github.com/fleetscale/fleetd/pkg/config"
	"github.com/fleetscale/fleetd/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	demo := flag.Bool("demo", false, "run a scripted load demo against a mock fleet")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled || *migrate {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	orch := orchestrator.New(cfg, db)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	source, mock, err := buildSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	if mock != nil {
		for _, fleetID := range cfg.Fleets {
			mock.SetInstanceCount(fleetID, cfg.Policy.MinInstances)
		}
	}

	exec := buildExecutor(cfg, mock, orch)
	defer exec.Close()

	for _, fleetID := range cfg.Fleets {
		if err := orch.StartFleet(fleetID, source, exec); err != nil {
			return fmt.Errorf("failed to start fleet %s: %w", fleetID, err)
		}
	}

	if *demo {
		if mock == nil {
			return fmt.Errorf("demo mode requires telemetry.type=mock")
		}
		go runDemo(cfg.Fleets[0], mock)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(cfg.API, cfg.WebSocket, db, orch)
		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("Stopped gracefully")
	return nil
}

func buildSource(cfg *config.Config) (telemetry.Source, *telemetry.MockSource, error) {
	var inner telemetry.Source
	var mock *telemetry.MockSource

	switch cfg.Telemetry.Type {
	case "http":
		inner = telemetry.NewHTTPSource(telemetry.HTTPSourceConfig{
			Endpoint: cfg.Telemetry.Endpoint,
			Timeout:  cfg.Telemetry.Timeout,
		})
	case "mock":
		mock = telemetry.NewMockSource(telemetry.MockSourceConfig{BaseLoad: 0.5})
		inner = mock
	default:
		return nil, nil, fmt.Errorf("unknown telemetry type %q", cfg.Telemetry.Type)
	}

	resilient := telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   cfg.Telemetry.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Telemetry.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Telemetry.RetryAttempts,
		RetryDelay:    cfg.Telemetry.RetryDelay,
	})

	return resilient, mock, nil
}

func buildExecutor(cfg *config.Config, mock *telemetry.MockSource, orch *orchestrator.Orchestrator) executor.Executor {
	var resizer executor.FleetResizer = mock
	if mock == nil {
		resizer = noopResizer{}
	}

	return executor.NewSimulatedExecutor(executor.SimulatedConfig{
		Resizer:       resizer,
		OnOutcome:     orch.ReportOutcome,
		ProvisionTime: cfg.Executor.ProvisionTime,
		DrainTime:     cfg.Executor.DrainTime,
		FailureRate:   cfg.Executor.FailureRate,
	})
}

// noopResizer backs the simulated executor when telemetry is external and
// there is no in-memory fleet to mutate.
type noopResizer struct{}

func (noopResizer) SetInstanceCount(fleetID string, count int) {}
func (noopResizer) InstanceCount(fleetID string) int           { return 1 }

// runDemo walks the mock fleet through balanced, hotspot and idle phases
// so the decision stream has something to react to.
func runDemo(fleetID string, mock *telemetry.MockSource) {
	logger.WithFleet(fleetID).Info("Demo: phase 1, balanced load")
	mock.SetBaseLoad(0.55)
	time.Sleep(2 * time.Minute)

	logger.WithFleet(fleetID).Info("Demo: phase 2, hotspot on one instance")
	mock.SetHotInstance(0, 0.95)
	time.Sleep(3 * time.Minute)

	logger.WithFleet(fleetID).Info("Demo: phase 3, fleet-wide surge")
	mock.SetHotInstance(-1, 0)
	mock.SetBaseLoad(0.9)
	time.Sleep(3 * time.Minute)

	logger.WithFleet(fleetID).Info("Demo: phase 4, idle")
	mock.SetBaseLoad(0.15)
	time.Sleep(5 * time.Minute)

	logger.WithFleet(fleetID).Info("Demo: holding at moderate load")
	mock.SetBaseLoad(0.5)
}
