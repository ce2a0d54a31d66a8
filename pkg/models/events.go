package models

import "time"

type EventType string

const (
	EventTypeSampleRejected  EventType = "sample_rejected"
	EventTypeTickSkipped     EventType = "tick_skipped"
	EventTypeDecisionMade    EventType = "decision_made"
	EventTypeDecisionBlocked EventType = "decision_blocked"
	EventTypeOutcomeReported EventType = "outcome_reported"
	EventTypeApplyTimeout    EventType = "apply_timeout"
	EventTypeAlert           EventType = "alert"
	EventTypeError           EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	FleetID   string        `json:"fleet_id,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
}

func NewEvent(eventType EventType, fleetID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		FleetID:   fleetID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}
