package config

import (
	"github.com/fleetscale/fleetd/pkg/database"
	"github.com/fleetscale/fleetd/pkg/models"
)

// ToScalingPolicy converts the config representation into the immutable
// policy snapshot a decision cycle works with.
func (p PolicyConfig) ToScalingPolicy() models.ScalingPolicy {
	return models.ScalingPolicy{
		MinInstances:         p.MinInstances,
		MaxInstances:         p.MaxInstances,
		ScaleUpCooldown:      p.ScaleUpCooldown,
		ScaleDownCooldown:    p.ScaleDownCooldown,
		TargetUtilization:    p.TargetUtilization,
		SLAMaxLatencyMS:      p.SLAMaxLatencyMS,
		SLAMinAvailability:   p.SLAMinAvailability,
		SLAMaxErrorRate:      p.SLAMaxErrorRate,
		CostWeight:           p.CostWeight,
		TickInterval:         p.TickInterval,
		UrgentMargin:         p.UrgentMargin,
		SafetyBuffer:         p.SafetyBuffer,
		Aggregation:          models.AggregationMode(p.Aggregation),
		ForecastHorizon:      p.ForecastHorizon,
		ApplyDeadline:        p.ApplyDeadline,
		SingleInstanceUrgent: p.SingleInstanceUrgent,
	}
}

func (d DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		Name:            d.Name,
		User:            d.User,
		Password:        d.Password,
		MaxConnections:  d.MaxConnections,
		SSLMode:         d.SSLMode,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
		PingTimeout:     d.PingTimeout,
	}
}
