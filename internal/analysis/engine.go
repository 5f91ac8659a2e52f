package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jengzang/resilient-routing/internal/models"
	"go.uber.org/zap"
)

// ErrMissingInput is returned when a stage runs before the data it reads exists
var ErrMissingInput = errors.New("missing stage input")

// Analyzer is the interface that all pipeline stages must implement
type Analyzer interface {
	// Analyze reads its inputs from run and stores its outputs on it
	Analyze(ctx context.Context, run *Run) error

	// GetName returns the name of the analyzer
	GetName() string

	// Requires lists the stages whose outputs Analyze reads
	Requires() []string
}

// TaskRecorder persists the lifecycle of stage executions
type TaskRecorder interface {
	Create(ctx context.Context, task *models.AnalysisTask) error
	MarkRunning(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64, summary string) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// BaseAnalyzer provides common functionality for all analyzers. A nil Tasks
// recorder disables task tracking.
type BaseAnalyzer struct {
	Tasks TaskRecorder
	Name  string
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(tasks TaskRecorder, name string) *BaseAnalyzer {
	return &BaseAnalyzer{
		Tasks: tasks,
		Name:  name,
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// Requires returns no dependencies
func (a *BaseAnalyzer) Requires() []string {
	return nil
}

// StartTask creates a task for run and marks it as running
func (a *BaseAnalyzer) StartTask(ctx context.Context, run *Run) (int64, error) {
	if a.Tasks == nil {
		return 0, nil
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return 0, fmt.Errorf("failed to encode task params: %w", err)
	}
	task := &models.AnalysisTask{RunID: run.ID, Stage: a.Name, ParamsJSON: string(params)}
	if err := a.Tasks.Create(ctx, task); err != nil {
		return 0, err
	}
	if err := a.Tasks.MarkRunning(ctx, task.ID); err != nil {
		return 0, fmt.Errorf("failed to mark task as running: %w", err)
	}
	return task.ID, nil
}

// MarkTaskAsCompleted stores summary as the task's JSON result
func (a *BaseAnalyzer) MarkTaskAsCompleted(ctx context.Context, taskID int64, summary any) error {
	if a.Tasks == nil {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode task summary: %w", err)
	}
	if err := a.Tasks.MarkCompleted(ctx, taskID, string(data)); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}
	return nil
}

// MarkTaskAsFailed marks a task as failed with the error message
func (a *BaseAnalyzer) MarkTaskAsFailed(ctx context.Context, taskID int64, cause error) error {
	if a.Tasks == nil {
		return nil
	}
	return a.Tasks.MarkFailed(ctx, taskID, cause.Error())
}

// Track runs fn inside a recorded task. The summary fn returns becomes the
// task result; an error fails the task and is returned unchanged.
func (a *BaseAnalyzer) Track(ctx context.Context, run *Run, fn func() (any, error)) error {
	taskID, err := a.StartTask(ctx, run)
	if err != nil {
		return err
	}

	summary, err := fn()
	if err != nil {
		// keep the stage error even if the bookkeeping fails
		if mErr := a.MarkTaskAsFailed(context.WithoutCancel(ctx), taskID, err); mErr != nil {
			run.Log().Warn("Failed to mark task as failed", zap.String("stage", a.Name), zap.Error(mErr))
		}
		return err
	}
	return a.MarkTaskAsCompleted(ctx, taskID, summary)
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func(tasks TaskRecorder) Analyzer

var (
	registryMu       sync.RWMutex
	analyzerRegistry = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a stage name
func RegisterAnalyzer(name string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	analyzerRegistry[name] = factory
}

// GetAnalyzer retrieves an analyzer instance for a stage name, nil when unknown
func GetAnalyzer(name string, tasks TaskRecorder) Analyzer {
	registryMu.RLock()
	factory, ok := analyzerRegistry[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory(tasks)
}

// IsRegistered checks if a stage name has an analyzer
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := analyzerRegistry[name]
	return ok
}

// Names returns the registered stage names in sorted order
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(analyzerRegistry))
	for name := range analyzerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
