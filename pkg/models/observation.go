package models

// FleetObservation summarizes the fleet's observed service quality for the
// current tick, derived from the latest sample of every active instance.
type FleetObservation struct {
	AvgP95LatencyMS float64 `json:"avg_p95_latency_ms"`
	AvgErrorRate    float64 `json:"avg_error_rate"`
	Availability    float64 `json:"availability"`
	SampleCount     int     `json:"sample_count"`
}

// SLAMargin is the normalized distance between observed performance and the
// policy thresholds, taken over the most binding dimension. Positive means
// headroom; negative means a threshold is already breached.
func (o FleetObservation) SLAMargin(p ScalingPolicy) float64 {
	margin := 1.0

	if p.SLAMaxLatencyMS > 0 {
		m := (p.SLAMaxLatencyMS - o.AvgP95LatencyMS) / p.SLAMaxLatencyMS
		if m < margin {
			margin = m
		}
	}
	if p.SLAMaxErrorRate > 0 {
		m := (p.SLAMaxErrorRate - o.AvgErrorRate) / p.SLAMaxErrorRate
		if m < margin {
			margin = m
		}
	}
	if p.SLAMinAvailability > 0 && p.SLAMinAvailability < 1 {
		m := (o.Availability - p.SLAMinAvailability) / (1 - p.SLAMinAvailability)
		if m < margin {
			margin = m
		}
	}

	return margin
}
