package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/resilient-routing/internal/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// TaskRepository handles database operations for analysis tasks
type TaskRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTaskRepository creates a new analysis task repository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db, now: time.Now}
}

// Create inserts a pending task and fills its ID
func (r *TaskRepository) Create(ctx context.Context, task *models.AnalysisTask) error {
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	task.CreatedAt = r.now().Unix()

	query := `
		INSERT INTO analysis_tasks (
			run_id, stage, status, params_json, start_time, end_time,
			result_summary, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		task.RunID,
		task.Stage,
		task.Status,
		task.ParamsJSON,
		task.StartTime,
		task.EndTime,
		task.ResultSummary,
		task.ErrorMessage,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	return nil
}

// MarkRunning marks a task as running
func (r *TaskRepository) MarkRunning(ctx context.Context, id int64) error {
	return r.update(ctx, id, `UPDATE analysis_tasks SET status = ?, start_time = ? WHERE id = ?`,
		models.TaskRunning, r.now().Unix(), id)
}

// MarkCompleted marks a task as completed with a JSON result summary
func (r *TaskRepository) MarkCompleted(ctx context.Context, id int64, summary string) error {
	return r.update(ctx, id, `UPDATE analysis_tasks SET status = ?, result_summary = ?, end_time = ? WHERE id = ?`,
		models.TaskCompleted, summary, r.now().Unix(), id)
}

// MarkFailed marks a task as failed with an error message
func (r *TaskRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	return r.update(ctx, id, `UPDATE analysis_tasks SET status = ?, error_message = ?, end_time = ? WHERE id = ?`,
		models.TaskFailed, errorMsg, r.now().Unix(), id)
}

func (r *TaskRepository) update(ctx context.Context, id int64, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update analysis task: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("analysis task %d: %w", id, ErrNotFound)
	}
	return nil
}

const taskColumns = `id, run_id, stage, status, params_json, start_time, end_time,
	result_summary, error_message, created_at`

// GetByID retrieves an analysis task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*models.AnalysisTask, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM analysis_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis task: %w", err)
	}
	return task, nil
}

// ListByRun returns the tasks of one pipeline run in creation order
func (r *TaskRepository) ListByRun(ctx context.Context, runID string) ([]*models.AnalysisTask, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM analysis_tasks WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.AnalysisTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.AnalysisTask, error) {
	task := &models.AnalysisTask{}
	var params, summary, errMsg sql.NullString
	var start, end sql.NullInt64
	err := s.Scan(
		&task.ID,
		&task.RunID,
		&task.Stage,
		&task.Status,
		&params,
		&start,
		&end,
		&summary,
		&errMsg,
		&task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.ParamsJSON = params.String
	task.StartTime = start.Int64
	task.EndTime = end.Int64
	task.ResultSummary = summary.String
	task.ErrorMessage = errMsg.String
	return task, nil
}
