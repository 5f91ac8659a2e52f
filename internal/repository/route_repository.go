package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/resilient-routing/internal/models"
)

// RouteRepository stores route comparisons
type RouteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{db: db, now: time.Now}
}

// SaveComparison inserts a comparison keyed by its run id
func (r *RouteRepository) SaveComparison(ctx context.Context, cmp *models.RouteComparison) error {
	if cmp.RunID == "" {
		return errors.New("comparison has no run id")
	}
	payload, err := json.Marshal(cmp)
	if err != nil {
		return fmt.Errorf("failed to encode comparison: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO route_comparisons (
			run_id, origin_node, destination_node, optimal_risk_pct,
			resilient_risk_pct, recommendation, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cmp.RunID,
		cmp.Origin.NodeID,
		cmp.Destination.NodeID,
		cmp.OptimalRoute.RiskReport.RiskPercentage,
		cmp.ResilientRoute.RiskReport.RiskPercentage,
		cmp.Comparison.Recommendation,
		string(payload),
		r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save route comparison: %w", err)
	}
	return nil
}

// Latest returns the most recently saved comparison
func (r *RouteRepository) Latest(ctx context.Context) (*models.RouteComparison, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM route_comparisons ORDER BY id DESC LIMIT 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("route comparison: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route comparison: %w", err)
	}

	cmp := &models.RouteComparison{}
	if err := json.Unmarshal([]byte(payload), cmp); err != nil {
		return nil, fmt.Errorf("failed to decode route comparison: %w", err)
	}
	return cmp, nil
}
