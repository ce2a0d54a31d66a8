package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetscale/fleetd/internal/analyzer"
	"github.com/fleetscale/fleetd/internal/decision"
	"github.com/fleetscale/fleetd/internal/elasticity"
	"github.com/fleetscale/fleetd/internal/events"
	"github.com/fleetscale/fleetd/internal/executor"
	"github.com/fleetscale/fleetd/internal/forecast"
	"github.com/fleetscale/fleetd/internal/ingest"
	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/internal/telemetry"
	"github.com/fleetscale/fleetd/pkg/config"
	"github.com/fleetscale/fleetd/pkg/database"
	"github.com/fleetscale/fleetd/pkg/models"
)

// Orchestrator owns one FleetLoop per managed fleet plus the shared event
// plumbing. Loops are independent: a slow fleet never delays another.
type Orchestrator struct {
	config      *config.Config
	db          *database.DB
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	engine      *decision.Engine
	loops       map[string]*FleetLoop
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

func New(cfg *config.Config, db *database.DB) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	eventLogger := events.NewEventLogger(db, eventBus.SubscribeAll())

	return &Orchestrator{
		config:      cfg,
		db:          db,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		engine:      decision.NewEngine(),
		loops:       make(map[string]*FleetLoop),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()
	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.mu.Lock()
	for fleetID, loop := range o.loops {
		logger.Infof("Stopping loop for fleet %s", fleetID)
		loop.Stop()
	}
	o.mu.Unlock()

	o.cancel()
	o.eventLogger.Stop()
	o.eventBus.Close()

	logger.Info("Orchestrator stopped")
}

// StartFleet wires a fresh pipeline for the fleet and begins ticking.
// Every fleet gets its own ingest window, analyzer streaks, forecast
// history, elasticity scorer and cooldown state.
func (o *Orchestrator) StartFleet(fleetID string, source telemetry.Source, exec executor.Executor) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.loops[fleetID]; exists {
		return fmt.Errorf("loop already exists for fleet %s", fleetID)
	}

	cfg := o.config
	loop := NewFleetLoop(LoopConfig{
		FleetID:      fleetID,
		TickInterval: cfg.Policy.TickInterval,
		Policies:     o.policyProvider(),
		Source:       source,
		Executor:     exec,
		Publisher:    events.NewPublisher(o.eventBus),
		Ingest:       ingest.New(ingest.Config{WindowSize: cfg.Ingest.WindowSize}),
		Analyzer: analyzer.New(analyzer.Config{
			HotspotFactor:         cfg.Analyzer.HotspotFactor,
			HotspotDebounce:       cfg.Analyzer.HotspotDebounce,
			UnderutilizedDebounce: cfg.Analyzer.UnderutilizedDebounce,
			UtilizationWeight:     cfg.Analyzer.UtilizationWeight,
			DispersionFloor:       cfg.Analyzer.DispersionFloor,
		}),
		Forecaster: forecast.New(forecast.Config{
			TickInterval: cfg.Policy.TickInterval,
			TrendWindow:  cfg.Forecast.TrendWindow,
			ErrorWindow:  cfg.Forecast.ErrorWindow,
			MinHistory:   cfg.Forecast.MinHistory,
			MaxHistory:   cfg.Forecast.MaxHistory,
		}),
		Engine: o.engine,
		Scorer: elasticity.New(elasticity.Config{
			Retention: cfg.Elasticity.Retention,
			SpeedRef:  cfg.Elasticity.SpeedRef,
			MinTrust:  cfg.Elasticity.MinTrust,
		}),
	})

	if err := loop.Start(); err != nil {
		return fmt.Errorf("failed to start loop: %w", err)
	}

	o.loops[fleetID] = loop
	logger.WithFleet(fleetID).Info("Fleet loop registered")

	return nil
}

func (o *Orchestrator) policyProvider() PolicyProvider {
	return PolicyFunc(func(fleetID string) *models.ScalingPolicy {
		policy := o.config.Policy.ToScalingPolicy()
		return &policy
	})
}

func (o *Orchestrator) StopFleet(fleetID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	loop, exists := o.loops[fleetID]
	if !exists {
		return fmt.Errorf("no loop found for fleet %s", fleetID)
	}

	loop.Stop()
	delete(o.loops, fleetID)
	logger.WithFleet(fleetID).Info("Fleet loop removed")

	return nil
}

func (o *Orchestrator) loop(fleetID string) (*FleetLoop, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	loop, exists := o.loops[fleetID]
	if !exists {
		return nil, fmt.Errorf("no loop found for fleet %s", fleetID)
	}
	return loop, nil
}

// ReportOutcome routes an apply outcome to the owning fleet's inbox.
func (o *Orchestrator) ReportOutcome(report models.OutcomeReport) {
	loop, err := o.loop(report.FleetID)
	if err != nil {
		logger.Warnf("Outcome for unmanaged fleet %s, dropping", report.FleetID)
		return
	}
	loop.ReportOutcome(report)
}

func (o *Orchestrator) Elasticity(fleetID string) (models.ElasticityScore, error) {
	loop, err := o.loop(fleetID)
	if err != nil {
		return models.ElasticityScore{}, err
	}
	return loop.Elasticity(), nil
}

func (o *Orchestrator) Trust(fleetID string) (float64, error) {
	loop, err := o.loop(fleetID)
	if err != nil {
		return 0, err
	}
	return loop.Trust(), nil
}

func (o *Orchestrator) Balance(fleetID string) (*analyzer.Report, error) {
	loop, err := o.loop(fleetID)
	if err != nil {
		return nil, err
	}
	return loop.LastReport(), nil
}

func (o *Orchestrator) LastDecision(fleetID string) (*models.ScalingDecision, error) {
	loop, err := o.loop(fleetID)
	if err != nil {
		return nil, err
	}
	return loop.LastDecision(), nil
}

func (o *Orchestrator) Cooldowns(fleetID string) (models.CooldownSnapshot, error) {
	loop, err := o.loop(fleetID)
	if err != nil {
		return models.CooldownSnapshot{}, err
	}
	return loop.CooldownSnapshot(o.config.Policy.ToScalingPolicy()), nil
}

func (o *Orchestrator) ListRunningFleets() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	fleets := make([]string, 0, len(o.loops))
	for fleetID, loop := range o.loops {
		if loop.IsRunning() {
			fleets = append(fleets, fleetID)
		}
	}
	return fleets
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}
