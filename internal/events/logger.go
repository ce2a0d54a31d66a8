package events

import (
	"context"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/database"
	"github.com/fleetscale/fleetd/pkg/database/queries"
	"github.com/fleetscale/fleetd/pkg/models"
)

// EventLogger consumes the event stream, writes every event to the
// structured log and persists decisions and outcome records. A nil
// database disables persistence but keeps the logging.
type EventLogger struct {
	decisions  *queries.DecisionRepository
	elasticity *queries.ElasticityRepository
	eventChan  <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventLogger(db *database.DB, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	l := &EventLogger{
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
	if db != nil {
		l.decisions = queries.NewDecisionRepository(db.DB)
		l.elasticity = queries.NewElasticityRepository(db.DB)
	}
	return l
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
}

func (l *EventLogger) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"fleet_id":   event.FleetID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	switch event.Type {
	case models.EventTypeDecisionMade:
		l.persistDecision(event)
	case models.EventTypeOutcomeReported:
		l.persistOutcome(event)
	}
}

func (l *EventLogger) persistDecision(event *models.Event) {
	if l.decisions == nil {
		return
	}
	decision, ok := event.Data.(*models.ScalingDecision)
	if !ok || decision.ID == "" {
		return
	}

	if err := l.decisions.Insert(l.ctx, decision); err != nil {
		logger.Errorf("Failed to persist decision %s: %v", decision.ID, err)
	}
}

func (l *EventLogger) persistOutcome(event *models.Event) {
	if l.elasticity == nil {
		return
	}
	record, ok := event.Data.(*models.ElasticityRecord)
	if !ok {
		return
	}

	if err := l.elasticity.Insert(l.ctx, record); err != nil {
		logger.Errorf("Failed to persist elasticity record for decision %s: %v", record.DecisionID, err)
	}
}
