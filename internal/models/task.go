package models

// Task status values
const (
	TaskPending   = "pending"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// AnalysisTask tracks one pipeline stage execution
type AnalysisTask struct {
	ID int64 `json:"id" db:"id"`

	// Task identification
	RunID string `json:"run_id" db:"run_id"`
	Stage string `json:"stage" db:"stage"`

	Status     string `json:"status" db:"status"`
	ParamsJSON string `json:"params_json,omitempty" db:"params_json"`

	StartTime int64 `json:"start_time,omitempty" db:"start_time"` // Unix timestamp
	EndTime   int64 `json:"end_time,omitempty" db:"end_time"`     // Unix timestamp

	// Results
	ResultSummary string `json:"result_summary,omitempty" db:"result_summary"` // JSON object with summary statistics
	ErrorMessage  string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
}
