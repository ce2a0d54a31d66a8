package queries

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/fleetscale/fleetd/pkg/models"
)

type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Insert(ctx context.Context, d *models.ScalingDecision) error {
	reasoning, err := json.Marshal(d.Reasoning)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO decisions
			(id, fleet_id, action, magnitude, confidence, current_instances, reasoning, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		d.FleetID,
		string(d.Action),
		d.Magnitude,
		d.Confidence,
		d.CurrentInstances,
		reasoning,
		d.GeneratedAt,
	)
	return err
}

func (r *DecisionRepository) GetByFleet(ctx context.Context, fleetID string, limit int) ([]models.ScalingDecision, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, fleet_id, action, magnitude, confidence, current_instances, reasoning, generated_at
		FROM decisions
		WHERE fleet_id = $1
		ORDER BY generated_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, fleetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*models.ScalingDecision, error) {
	query := `
		SELECT id, fleet_id, action, magnitude, confidence, current_instances, reasoning, generated_at
		FROM decisions
		WHERE id = $1`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	decisions, err := scanDecisions(rows)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, sql.ErrNoRows
	}
	return &decisions[0], nil
}

func scanDecisions(rows *sql.Rows) ([]models.ScalingDecision, error) {
	var decisions []models.ScalingDecision
	for rows.Next() {
		var d models.ScalingDecision
		var action string
		var reasoning []byte

		err := rows.Scan(
			&d.ID, &d.FleetID, &action, &d.Magnitude,
			&d.Confidence, &d.CurrentInstances, &reasoning, &d.GeneratedAt,
		)
		if err != nil {
			return nil, err
		}

		d.Action = models.ScalingAction(action)
		if err := json.Unmarshal(reasoning, &d.Reasoning); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}
