package events

import (
	"github.com/fleetscale/fleetd/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SampleRejected(fleetID, instanceID, reason string) {
	event := models.NewEvent(models.EventTypeSampleRejected, fleetID, "Sample rejected: "+reason).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"instance_id": instanceID,
			"reason":      reason,
		})
	p.publish(event)
}

func (p *Publisher) TickSkipped(fleetID string) {
	event := models.NewEvent(models.EventTypeTickSkipped, fleetID, "Tick skipped: previous cycle still running").
		WithSeverity(models.SeverityWarning)
	p.publish(event)
}

func (p *Publisher) DecisionMade(fleetID string, decision *models.ScalingDecision) {
	msg := "Scaling decision: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeDecisionMade, fleetID, msg).
		WithData(decision)

	if decision.Action == models.ActionScaleUp && decision.Confidence >= 0.9 {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) DecisionBlocked(fleetID string, decision *models.ScalingDecision, reason string) {
	event := models.NewEvent(models.EventTypeDecisionBlocked, fleetID, "Decision blocked: "+reason).
		WithSeverity(models.SeverityWarning).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) OutcomeReported(fleetID string, record *models.ElasticityRecord) {
	msg := "Outcome reported"
	if !record.Applied {
		msg = "Outcome reported: apply failed"
	}
	event := models.NewEvent(models.EventTypeOutcomeReported, fleetID, msg).
		WithData(record)

	if !record.Applied {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) ApplyTimeout(fleetID, decisionID string) {
	event := models.NewEvent(models.EventTypeApplyTimeout, fleetID, "Decision apply timed out").
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"decision_id": decisionID,
		})
	p.publish(event)
}

func (p *Publisher) Alert(fleetID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, fleetID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(fleetID string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, fleetID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
