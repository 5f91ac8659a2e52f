package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	d := Summarize([]float64{0.1, 0.4, 0.2, 0.3})
	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 0.25, d.Mean, 1e-12)
	assert.InDelta(t, 0.1, d.Min, 1e-12)
	assert.InDelta(t, 0.4, d.Max, 1e-12)
	assert.InDelta(t, 0.25, d.Median, 1e-12)
	assert.InDelta(t, 0.385, d.P95, 1e-12)
	assert.Greater(t, d.StdDev, 0.0)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Distribution{}, Summarize(nil))
}

func TestQuantileClampsQ(t *testing.T) {
	values := []float64{3, 1, 2}
	assert.Equal(t, 1.0, Quantile(values, -1))
	assert.Equal(t, 3.0, Quantile(values, 2))
	assert.Equal(t, []float64{3, 1, 2}, values)
}
