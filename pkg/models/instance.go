package models

import "time"

type InstanceStatus string

const (
	InstanceActive   InstanceStatus = "active"
	InstanceDraining InstanceStatus = "draining"
	InstanceOffline  InstanceStatus = "offline"
)

// Instance is a read-only snapshot of one fleet member, owned by the
// external fleet registry and handed to the engine once per tick.
type Instance struct {
	ID           string         `json:"id"`
	Status       InstanceStatus `json:"status"`
	Load         float64        `json:"load"`
	LastSampleAt time.Time      `json:"last_sample_at"`
}

// FleetSnapshot is what the telemetry source delivers per tick: the registry
// view of the fleet plus whatever raw samples arrived since the last pull.
type FleetSnapshot struct {
	FleetID   string      `json:"fleet_id"`
	Timestamp time.Time   `json:"timestamp"`
	Instances []Instance  `json:"instances"`
	Samples   []RawSample `json:"samples"`
}

// ActiveInstances filters the snapshot down to members eligible for
// distribution analysis and forecasting this tick.
func (fs *FleetSnapshot) ActiveInstances() []Instance {
	active := make([]Instance, 0, len(fs.Instances))
	for _, inst := range fs.Instances {
		if inst.Status == InstanceActive {
			active = append(active, inst)
		}
	}
	return active
}
