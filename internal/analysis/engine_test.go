package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jengzang/resilient-routing/internal/geodata"
	"github.com/jengzang/resilient-routing/internal/models"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecorder struct {
	mu    sync.Mutex
	tasks []*models.AnalysisTask
	fail  error
}

func (m *memoryRecorder) Create(_ context.Context, task *models.AnalysisTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	task.ID = int64(len(m.tasks) + 1)
	task.Status = models.TaskPending
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *memoryRecorder) set(id int64, fn func(*models.AnalysisTask)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.tasks[id-1])
	return nil
}

func (m *memoryRecorder) MarkRunning(_ context.Context, id int64) error {
	return m.set(id, func(t *models.AnalysisTask) { t.Status = models.TaskRunning })
}

func (m *memoryRecorder) MarkCompleted(_ context.Context, id int64, summary string) error {
	return m.set(id, func(t *models.AnalysisTask) {
		t.Status = models.TaskCompleted
		t.ResultSummary = summary
	})
}

func (m *memoryRecorder) MarkFailed(_ context.Context, id int64, msg string) error {
	return m.set(id, func(t *models.AnalysisTask) {
		t.Status = models.TaskFailed
		t.ErrorMessage = msg
	})
}

type echoAnalyzer struct {
	*BaseAnalyzer
}

func (a *echoAnalyzer) Analyze(ctx context.Context, run *Run) error {
	return a.Track(ctx, run, func() (any, error) {
		return map[string]int{"nodes": run.Graph.NodeCount()}, nil
	})
}

func testRun(t *testing.T) *Run {
	t.Helper()
	ds := &geodata.Dataset{
		Nodes: []models.Node{{ID: 1, Point: orb.Point{0, 0}}, {ID: 2, Point: orb.Point{0.001, 0}}},
		Edges: []models.Edge{{ID: 12, U: 1, V: 2, LengthMeters: 111}, {ID: 99, U: 1, V: 7}},
	}
	return NewRun(ds, DefaultParams(), nil, nil)
}

func TestNewRun(t *testing.T) {
	run := testRun(t)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Graph.NodeCount())
	assert.Equal(t, 1, run.Graph.EdgeCount())
	assert.Equal(t, 1, run.Build.SkippedEdges)
	assert.Equal(t, 5.0, run.Params.Penalty)
	assert.NotNil(t, run.Log())

	assert.False(t, run.Done("x"))
	run.MarkDone("x")
	assert.True(t, run.Done("x"))

	var zero Run
	zero.MarkDone("y")
	assert.True(t, zero.Done("y"))
	assert.NotNil(t, zero.Log())
}

func TestRegistry(t *testing.T) {
	RegisterAnalyzer("echo", func(tasks TaskRecorder) Analyzer {
		return &echoAnalyzer{NewBaseAnalyzer(tasks, "echo")}
	})

	assert.True(t, IsRegistered("echo"))
	assert.False(t, IsRegistered("missing"))
	assert.Nil(t, GetAnalyzer("missing", nil))
	assert.Contains(t, Names(), "echo")

	a := GetAnalyzer("echo", nil)
	require.NotNil(t, a)
	assert.Equal(t, "echo", a.GetName())
	assert.Empty(t, a.Requires())
}

func TestTrackRecordsCompletion(t *testing.T) {
	rec := &memoryRecorder{}
	run := testRun(t)
	a := &echoAnalyzer{NewBaseAnalyzer(rec, "echo")}

	require.NoError(t, a.Analyze(context.Background(), run))
	require.Len(t, rec.tasks, 1)
	task := rec.tasks[0]
	assert.Equal(t, run.ID, task.RunID)
	assert.Equal(t, "echo", task.Stage)
	assert.Equal(t, models.TaskCompleted, task.Status)
	assert.JSONEq(t, `{"nodes":2}`, task.ResultSummary)
	assert.Contains(t, task.ParamsJSON, `"penalty":5`)
}

func TestTrackRecordsFailure(t *testing.T) {
	rec := &memoryRecorder{}
	a := NewBaseAnalyzer(rec, "broken")
	boom := errors.New("boom")

	err := a.Track(context.Background(), testRun(t), func() (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.Len(t, rec.tasks, 1)
	assert.Equal(t, models.TaskFailed, rec.tasks[0].Status)
	assert.Equal(t, "boom", rec.tasks[0].ErrorMessage)
}

func TestTrackWithoutRecorder(t *testing.T) {
	a := NewBaseAnalyzer(nil, "plain")
	called := false
	err := a.Track(context.Background(), testRun(t), func() (any, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestTrackRecorderError(t *testing.T) {
	rec := &memoryRecorder{fail: errors.New("db down")}
	a := NewBaseAnalyzer(rec, "echo")
	called := false
	err := a.Track(context.Background(), testRun(t), func() (any, error) {
		called = true
		return nil, nil
	})
	assert.ErrorContains(t, err, "db down")
	assert.False(t, called)
}
