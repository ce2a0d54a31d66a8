package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetscale/fleetd/internal/analyzer"
	"github.com/fleetscale/fleetd/internal/decision"
	"github.com/fleetscale/fleetd/internal/elasticity"
	"github.com/fleetscale/fleetd/internal/events"
	"github.com/fleetscale/fleetd/internal/executor"
	"github.com/fleetscale/fleetd/internal/forecast"
	"github.com/fleetscale/fleetd/internal/ingest"
	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/internal/telemetry"
	"github.com/fleetscale/fleetd/pkg/models"
)

var ErrPolicyUnavailable = errors.New("scaling policy unavailable")

// PolicyProvider resolves the scaling policy for a fleet at the start of
// each tick. Returning nil means no valid policy exists and the tick must
// not make a decision.
type PolicyProvider interface {
	PolicyFor(fleetID string) *models.ScalingPolicy
}

// PolicyFunc adapts a function to the PolicyProvider interface.
type PolicyFunc func(fleetID string) *models.ScalingPolicy

func (f PolicyFunc) PolicyFor(fleetID string) *models.ScalingPolicy {
	return f(fleetID)
}

type LoopConfig struct {
	FleetID      string
	TickInterval time.Duration
	Policies     PolicyProvider
	Source       telemetry.Source
	Executor     executor.Executor
	Publisher    *events.Publisher

	Ingest     *ingest.Ingest
	Analyzer   *analyzer.Analyzer
	Forecaster *forecast.Forecaster
	Engine     *decision.Engine
	Scorer     *elasticity.Scorer
}

type pendingApply struct {
	decision *models.ScalingDecision
	deadline time.Time
}

// FleetLoop runs the fixed-interval decision cycle for one fleet. Ticks
// never queue: if a cycle overruns its interval the next tick is skipped
// and reported as an event. Outcome reports land in a buffered inbox and
// are drained at the start of the next cycle, so a cycle always sees a
// consistent cooldown and elasticity state.
type FleetLoop struct {
	cfg       LoopConfig
	cooldowns *models.CooldownState
	outcomes  chan models.OutcomeReport
	pending   map[string]pendingApply

	busy    atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	lastReport   *analyzer.Report
	lastDecision *models.ScalingDecision
	reportMu     sync.RWMutex
}

func NewFleetLoop(cfg LoopConfig) *FleetLoop {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FleetLoop{
		cfg:       cfg,
		cooldowns: models.NewCooldownState(),
		outcomes:  make(chan models.OutcomeReport, 64),
		pending:   make(map[string]pendingApply),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *FleetLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}

	l.running = true
	l.wg.Add(1)
	go l.run()

	logger.WithFleet(l.cfg.FleetID).Info("Fleet loop started")
	return nil
}

func (l *FleetLoop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()

	logger.WithFleet(l.cfg.FleetID).Info("Fleet loop stopped")
}

func (l *FleetLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// ReportOutcome delivers an apply outcome to the loop's inbox. It never
// blocks the caller; a full inbox drops the report.
func (l *FleetLoop) ReportOutcome(report models.OutcomeReport) {
	select {
	case l.outcomes <- report:
	default:
		logger.WithFleet(l.cfg.FleetID).Warnf("Outcome inbox full, dropping report for decision %s", report.DecisionID)
	}
}

func (l *FleetLoop) Elasticity() models.ElasticityScore {
	return l.cfg.Scorer.Score(time.Now())
}

func (l *FleetLoop) Trust() float64 {
	return l.cfg.Scorer.Trust(time.Now())
}

func (l *FleetLoop) LastReport() *analyzer.Report {
	l.reportMu.RLock()
	defer l.reportMu.RUnlock()
	return l.lastReport
}

func (l *FleetLoop) LastDecision() *models.ScalingDecision {
	l.reportMu.RLock()
	defer l.reportMu.RUnlock()
	return l.lastDecision
}

func (l *FleetLoop) CooldownSnapshot(policy models.ScalingPolicy) models.CooldownSnapshot {
	return l.cooldowns.Snapshot(time.Now(), policy.ScaleUpCooldown, policy.ScaleDownCooldown)
}

func (l *FleetLoop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	l.tick()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *FleetLoop) tick() {
	if !l.busy.CompareAndSwap(false, true) {
		l.cfg.Publisher.TickSkipped(l.cfg.FleetID)
		return
	}
	defer l.busy.Store(false)

	now := time.Now()
	fleetID := l.cfg.FleetID

	l.drainOutcomes()
	l.expirePending(now)

	policy := l.cfg.Policies.PolicyFor(fleetID)
	if policy == nil {
		l.cfg.Publisher.Error(fleetID, "No scaling policy for fleet", ErrPolicyUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, l.cfg.TickInterval)
	defer cancel()

	snapshot, err := l.cfg.Source.Fetch(ctx, fleetID)
	if err != nil {
		logger.WithFleet(fleetID).Errorf("Telemetry fetch failed: %v", err)
		l.cfg.Publisher.Error(fleetID, "Telemetry fetch failed", err)
		return
	}

	l.ingestSamples(snapshot)

	active := snapshot.ActiveInstances()
	ids := make([]string, 0, len(active))
	for _, inst := range active {
		ids = append(ids, inst.ID)
	}
	loads := l.cfg.Ingest.Snapshot(ids)

	// Distribution analysis and forecasting read the same snapshot and
	// are independent, so they run concurrently.
	var (
		report *analyzer.Report
		fc     *forecast.Forecast
		stage  sync.WaitGroup
	)

	stage.Add(2)
	go func() {
		defer stage.Done()
		report = l.cfg.Analyzer.Analyze(fleetID, loads, now)
	}()
	go func() {
		defer stage.Done()
		l.cfg.Forecaster.Observe(forecast.AggregateSeries(loads, policy.Aggregation), now)
		f, ferr := l.cfg.Forecaster.Forecast(now, policy.ForecastHorizon)
		if ferr != nil {
			if !errors.Is(ferr, forecast.ErrInsufficientHistory) {
				logger.WithFleet(fleetID).Warnf("Forecast failed: %v", ferr)
			}
			return
		}
		fc = f
	}()
	stage.Wait()

	dec := l.cfg.Engine.Decide(decision.Input{
		FleetID:         fleetID,
		Now:             now,
		ActiveInstances: len(active),
		Policy:          *policy,
		Distribution:    report,
		Forecast:        fc,
		Observed:        observeFleet(loads),
		Trust:           l.cfg.Scorer.Trust(now),
		Cooldowns:       l.cooldowns,
	})
	dec.ID = models.NewUUID()

	l.reportMu.Lock()
	l.lastReport = report
	l.lastDecision = dec
	l.reportMu.Unlock()

	l.cfg.Publisher.DecisionMade(fleetID, dec)

	if !dec.ShouldDispatch() {
		return
	}

	if err := l.cfg.Executor.Apply(ctx, dec); err != nil {
		logger.WithFleet(fleetID).Errorf("Apply dispatch failed: %v", err)
		l.cfg.Publisher.DecisionBlocked(fleetID, dec, err.Error())
		return
	}

	deadline := policy.ApplyDeadline
	if deadline == 0 {
		deadline = 2 * policy.TickInterval
	}
	l.pending[dec.ID] = pendingApply{decision: dec, deadline: now.Add(deadline)}
}

func (l *FleetLoop) ingestSamples(snapshot *models.FleetSnapshot) {
	var wg sync.WaitGroup
	for _, raw := range snapshot.Samples {
		wg.Add(1)
		go func(raw models.RawSample) {
			defer wg.Done()
			if _, err := l.cfg.Ingest.Record(raw); err != nil {
				l.cfg.Publisher.SampleRejected(snapshot.FleetID, raw.InstanceID, err.Error())
			}
		}(raw)
	}
	wg.Wait()
}

func (l *FleetLoop) drainOutcomes() {
	for {
		select {
		case report := <-l.outcomes:
			l.handleOutcome(report)
		default:
			return
		}
	}
}

func (l *FleetLoop) handleOutcome(report models.OutcomeReport) {
	pending, exists := l.pending[report.DecisionID]
	if !exists {
		logger.WithFleet(l.cfg.FleetID).Warnf("Outcome for unknown decision %s, dropping", report.DecisionID)
		return
	}
	delete(l.pending, report.DecisionID)

	record := models.ElasticityRecord{
		DecisionID:   report.DecisionID,
		FleetID:      l.cfg.FleetID,
		Action:       pending.decision.Action,
		Applied:      report.Applied,
		TimeToApply:  report.TimeToApply,
		ErrorDelta:   report.PostApplyErrorDelta,
		LatencyDelta: report.PostApplyLatencyDelta,
		RecordedAt:   report.ReportedAt,
	}

	// Cooldowns transition only on applied outcomes; a failed apply never
	// started, so the direction stays immediately retryable.
	if report.Applied {
		l.cooldowns.RecordApplied(pending.decision.Action, report.ReportedAt)
	}

	l.cfg.Scorer.Record(record)
	l.cfg.Publisher.OutcomeReported(l.cfg.FleetID, &record)
}

// expirePending times out decisions whose outcome never arrived. A timed
// out apply may still land later, so the cooldown transitions as if it
// had been applied; the elasticity record counts it as a failure.
func (l *FleetLoop) expirePending(now time.Time) {
	for id, pending := range l.pending {
		if now.Before(pending.deadline) {
			continue
		}
		delete(l.pending, id)

		record := models.ElasticityRecord{
			DecisionID: id,
			FleetID:    l.cfg.FleetID,
			Action:     pending.decision.Action,
			Applied:    false,
			TimedOut:   true,
			RecordedAt: now,
		}

		l.cooldowns.RecordApplied(pending.decision.Action, now)
		l.cfg.Scorer.Record(record)
		l.cfg.Publisher.ApplyTimeout(l.cfg.FleetID, id)
		l.cfg.Publisher.OutcomeReported(l.cfg.FleetID, &record)
	}
}

// observeFleet reduces the latest sample of every instance into the
// fleet-level SLA observation for this tick.
func observeFleet(loads map[string][]models.LoadSample) models.FleetObservation {
	obs := models.FleetObservation{Availability: 1}

	var latency, errRate float64
	for _, window := range loads {
		if len(window) == 0 {
			continue
		}
		latest := window[len(window)-1]
		latency += latest.P95LatencyMS
		errRate += latest.ErrorRate
		obs.SampleCount++
	}

	if obs.SampleCount > 0 {
		n := float64(obs.SampleCount)
		obs.AvgP95LatencyMS = latency / n
		obs.AvgErrorRate = errRate / n
		obs.Availability = 1 - obs.AvgErrorRate
	}

	return obs
}
