package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleetscale/fleetd/pkg/models"
)

type ElasticityRepository struct {
	db *sql.DB
}

func NewElasticityRepository(db *sql.DB) *ElasticityRepository {
	return &ElasticityRepository{db: db}
}

func (r *ElasticityRepository) Insert(ctx context.Context, rec *models.ElasticityRecord) error {
	query := `
		INSERT INTO elasticity_records
			(decision_id, fleet_id, action, applied, timed_out, time_to_apply_ms, error_delta, latency_delta, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		rec.DecisionID,
		rec.FleetID,
		string(rec.Action),
		rec.Applied,
		rec.TimedOut,
		rec.TimeToApply.Milliseconds(),
		rec.ErrorDelta,
		rec.LatencyDelta,
		rec.RecordedAt,
	)
	return err
}

func (r *ElasticityRepository) GetByFleet(ctx context.Context, fleetID string, since time.Time, limit int) ([]models.ElasticityRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT decision_id, fleet_id, action, applied, timed_out, time_to_apply_ms, error_delta, latency_delta, recorded_at
		FROM elasticity_records
		WHERE fleet_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, fleetID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ElasticityRecord
	for rows.Next() {
		var rec models.ElasticityRecord
		var action string
		var applyMS int64

		err := rows.Scan(
			&rec.DecisionID, &rec.FleetID, &action, &rec.Applied,
			&rec.TimedOut, &applyMS, &rec.ErrorDelta, &rec.LatencyDelta, &rec.RecordedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.Action = models.ScalingAction(action)
		rec.TimeToApply = time.Duration(applyMS) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}

type ApplyStats struct {
	FleetID      string  `json:"fleet_id"`
	TotalRecords int     `json:"total_records"`
	AppliedCount int     `json:"applied_count"`
	TimeoutCount int     `json:"timeout_count"`
	AvgApplyMS   float64 `json:"avg_apply_ms"`
}

func (r *ElasticityRepository) GetStats(ctx context.Context, fleetID string, since time.Time) (*ApplyStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE applied) AS applied,
			COUNT(*) FILTER (WHERE timed_out) AS timeouts,
			COALESCE(AVG(time_to_apply_ms) FILTER (WHERE applied), 0) AS avg_apply
		FROM elasticity_records
		WHERE fleet_id = $1 AND recorded_at >= $2`

	stats := ApplyStats{FleetID: fleetID}
	err := r.db.QueryRowContext(ctx, query, fleetID, since).Scan(
		&stats.TotalRecords, &stats.AppliedCount, &stats.TimeoutCount, &stats.AvgApplyMS,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
