package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/resilient-routing/internal/database"
	"github.com/jengzang/resilient-routing/internal/models"
)

// RiskRepository stores the latest edge and node risk tables
type RiskRepository struct {
	db *sql.DB
}

// NewRiskRepository creates a new risk repository
func NewRiskRepository(db *sql.DB) *RiskRepository {
	return &RiskRepository{db: db}
}

// ReplaceTables swaps both tables for the output of one propagation run
func (r *RiskRepository) ReplaceTables(ctx context.Context, runID string, edges []models.EdgeRiskEntry, nodes []models.RiskEntry) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM edge_risk"); err != nil {
			return fmt.Errorf("failed to clear edge risk: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM node_risk"); err != nil {
			return fmt.Errorf("failed to clear node risk: %w", err)
		}

		edgeStmt, err := tx.PrepareContext(ctx, "INSERT INTO edge_risk (edge_id, u, v, probability, run_id) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare edge risk insert: %w", err)
		}
		defer edgeStmt.Close()
		for _, e := range edges {
			if _, err := edgeStmt.ExecContext(ctx, e.ID, e.U, e.V, e.Probability, runID); err != nil {
				return fmt.Errorf("failed to insert edge risk %d: %w", e.ID, err)
			}
		}

		nodeStmt, err := tx.PrepareContext(ctx, "INSERT INTO node_risk (node_id, probability, run_id) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare node risk insert: %w", err)
		}
		defer nodeStmt.Close()
		for _, n := range nodes {
			if _, err := nodeStmt.ExecContext(ctx, n.ID, n.Probability, runID); err != nil {
				return fmt.Errorf("failed to insert node risk %d: %w", n.ID, err)
			}
		}
		return nil
	})
}

// LoadTables returns the stored tables in ascending id order
func (r *RiskRepository) LoadTables(ctx context.Context) ([]models.EdgeRiskEntry, []models.RiskEntry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT edge_id, u, v, probability FROM edge_risk ORDER BY edge_id")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query edge risk: %w", err)
	}
	defer rows.Close()

	var edges []models.EdgeRiskEntry
	for rows.Next() {
		var e models.EdgeRiskEntry
		if err := rows.Scan(&e.ID, &e.U, &e.V, &e.Probability); err != nil {
			return nil, nil, fmt.Errorf("failed to scan edge risk: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	nodeRows, err := r.db.QueryContext(ctx, "SELECT node_id, probability FROM node_risk ORDER BY node_id")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query node risk: %w", err)
	}
	defer nodeRows.Close()

	var nodes []models.RiskEntry
	for nodeRows.Next() {
		var n models.RiskEntry
		if err := nodeRows.Scan(&n.ID, &n.Probability); err != nil {
			return nil, nil, fmt.Errorf("failed to scan node risk: %w", err)
		}
		nodes = append(nodes, n)
	}
	return edges, nodes, nodeRows.Err()
}

// RunID returns the propagation run the stored tables came from, empty when none
func (r *RiskRepository) RunID(ctx context.Context) (string, error) {
	var runID string
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id FROM edge_risk
		UNION ALL
		SELECT run_id FROM node_risk
		LIMIT 1
	`).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query risk run: %w", err)
	}
	return runID, nil
}
