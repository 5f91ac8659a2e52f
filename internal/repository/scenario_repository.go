package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/resilient-routing/internal/database"
	"github.com/jengzang/resilient-routing/internal/models"
)

// ScenarioRepository stores simulated scenarios and their draw logs
type ScenarioRepository struct {
	db *sql.DB
}

// NewScenarioRepository creates a new scenario repository
func NewScenarioRepository(db *sql.DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

// scenarioPayload is the stored form of the activation outcome
type scenarioPayload struct {
	ActiveEdges   []models.ActiveEdge    `json:"activeEdges"`
	ActiveNodes   []models.ActiveNode    `json:"activeNodes"`
	ActiveHazards []models.ActiveHazard  `json:"activeHazards"`
	Summary       models.ScenarioSummary `json:"summary"`
}

// Save inserts a scenario together with its audit log
func (r *ScenarioRepository) Save(ctx context.Context, sc *models.Scenario) error {
	if sc.RunID == "" {
		return errors.New("scenario has no run id")
	}
	payload, err := json.Marshal(scenarioPayload{
		ActiveEdges:   sc.ActiveEdges,
		ActiveNodes:   sc.ActiveNodes,
		ActiveHazards: sc.ActiveHazards,
		Summary:       sc.Summary,
	})
	if err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}

	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenarios (
				run_id, seed, created_at, active_edges, active_nodes,
				active_hazards, evaluated, payload
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			sc.RunID,
			sc.Seed,
			sc.Timestamp.UnixNano(),
			sc.Summary.Edges,
			sc.Summary.Nodes,
			sc.Summary.Hazards,
			sc.Summary.Evaluated,
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("failed to insert scenario: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO scenario_draws (
				run_id, seq, element_type, element_id, probability,
				threshold, drawn_value, occurred
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare draw insert: %w", err)
		}
		defer stmt.Close()

		for seq, d := range sc.Log {
			if _, err := stmt.ExecContext(ctx, sc.RunID, seq, string(d.Type), d.ID, d.Probability, d.Threshold, d.DrawnValue, d.Occurred); err != nil {
				return fmt.Errorf("failed to insert draw %d: %w", seq, err)
			}
		}
		return nil
	})
}

// Get retrieves a scenario by run id
func (r *ScenarioRepository) Get(ctx context.Context, runID string) (*models.Scenario, error) {
	return r.get(ctx, `SELECT run_id, seed, created_at, payload FROM scenarios WHERE run_id = ?`, runID)
}

// GetBySeed retrieves the most recent scenario simulated with seed
func (r *ScenarioRepository) GetBySeed(ctx context.Context, seed int64) (*models.Scenario, error) {
	return r.get(ctx, `
		SELECT run_id, seed, created_at, payload FROM scenarios
		WHERE seed = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, seed)
}

func (r *ScenarioRepository) get(ctx context.Context, query string, arg any) (*models.Scenario, error) {
	sc := &models.Scenario{}
	var createdAt int64
	var payload string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&sc.RunID, &sc.Seed, &createdAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scenario %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	sc.Timestamp = time.Unix(0, createdAt).UTC()

	var p scenarioPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode scenario %s: %w", sc.RunID, err)
	}
	sc.ActiveEdges = p.ActiveEdges
	sc.ActiveNodes = p.ActiveNodes
	sc.ActiveHazards = p.ActiveHazards
	sc.Summary = p.Summary

	if sc.Log, err = r.draws(ctx, sc.RunID); err != nil {
		return nil, err
	}
	return sc, nil
}

func (r *ScenarioRepository) draws(ctx context.Context, runID string) ([]models.Draw, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT element_type, element_id, probability, threshold, drawn_value, occurred
		FROM scenario_draws
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	draws := []models.Draw{}
	for rows.Next() {
		var d models.Draw
		var elementType string
		if err := rows.Scan(&elementType, &d.ID, &d.Probability, &d.Threshold, &d.DrawnValue, &d.Occurred); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		d.Type = models.ElementType(elementType)
		draws = append(draws, d)
	}
	return draws, rows.Err()
}
