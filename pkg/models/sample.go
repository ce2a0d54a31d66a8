package models

import "time"

// RawSample is one unnormalized telemetry observation as delivered by the
// monitoring collaborator. The utilization fields are pointers so a missing
// metric can be told apart from a zero reading.
type RawSample struct {
	InstanceID     string    `json:"instance_id"`
	Timestamp      time.Time `json:"timestamp"`
	RequestRate    float64   `json:"request_rate"`
	P95LatencyMS   float64   `json:"p95_latency_ms"`
	ErrorRate      float64   `json:"error_rate"`
	CPUFraction    *float64  `json:"cpu_fraction,omitempty"`
	MemoryFraction *float64  `json:"memory_fraction,omitempty"`
}

// LoadSample is the canonical normalized observation. Error rate and both
// utilization fields are fractions in [0,1]; request rate is requests per
// second as reported.
type LoadSample struct {
	InstanceID   string    `json:"instance_id"`
	Timestamp    time.Time `json:"timestamp"`
	RequestRate  float64   `json:"request_rate"`
	P95LatencyMS float64   `json:"p95_latency_ms"`
	ErrorRate    float64   `json:"error_rate"`
	CPU          float64   `json:"cpu"`
	Memory       float64   `json:"memory"`
}

// Utilization returns the binding resource fraction for the instance.
func (s LoadSample) Utilization() float64 {
	if s.CPU > s.Memory {
		return s.CPU
	}
	return s.Memory
}
