package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PumpWatch/internal/domain/models"
)

func TestBacktestRun(t *testing.T) {
	cs := make([]float64, 30)
	for i := range cs {
		cs[i] = 10
	}
	cs[6] = 11  // +10% at 1d
	cs[8] = 7   // bottom -30%
	cs[10] = 9  // 5d
	cs[15] = 8  // 10d
	cs[25] = 12 // 20d, last bar of the window
	bars := closes("2024-01-01", cs...)

	fr, err := NewBacktester(DefaultBacktestConfig()).Run("ABC", bars, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, fr.Return1d.Float64, 1e-9)
	assert.InDelta(t, -0.10, fr.Return5d.Float64, 1e-9)
	assert.InDelta(t, -0.20, fr.Return10d.Float64, 1e-9)
	assert.InDelta(t, 0.20, fr.Return20d.Float64, 1e-9)
	assert.InDelta(t, -0.30, fr.MaxDrawdown.Float64, 1e-9)
	assert.Equal(t, models.Int(3), fr.DaysToBottom)
	assert.InDelta(t, 0.20, fr.MaxGain.Float64, 1e-9)
	assert.Equal(t, models.Int(20), fr.DaysToPeak)
}

func TestBacktestRunNearEnd(t *testing.T) {
	bars := closes("2024-01-01", 10, 10, 10, 11, 12)
	fr, err := NewBacktester(DefaultBacktestConfig()).Run("ABC", bars, 2)
	require.NoError(t, err)
	assert.True(t, fr.Return1d.Valid)
	assert.False(t, fr.Return5d.Valid)
	assert.False(t, fr.Return20d.Valid)
	assert.InDelta(t, 0, fr.MaxDrawdown.Float64, 1e-9)
	assert.False(t, fr.DaysToBottom.Valid)
	assert.Equal(t, models.Int(2), fr.DaysToPeak)
}

func TestBacktestRunBadIndex(t *testing.T) {
	_, err := NewBacktester(DefaultBacktestConfig()).Run("ABC", closes("2024-01-01", 1), 3)
	assert.ErrorIs(t, err, models.ErrSignalIndex)
}

func TestForwardFromBarsSkipsEarlierBars(t *testing.T) {
	bars := closes("2024-01-01", 50, 50, 10, 9, 9, 9, 9, 8.5)
	b := NewBacktester(DefaultBacktestConfig())
	fr := b.ForwardFromBars(day("2024-01-03"), 10, bars)

	assert.InDelta(t, -0.10, fr.Return1d.Float64, 1e-9)
	assert.InDelta(t, -0.15, fr.Return5d.Float64, 1e-9)
	assert.False(t, fr.Return10d.Valid)
	assert.InDelta(t, -0.15, fr.MaxDrawdown.Float64, 1e-9)
	assert.Equal(t, models.Int(5), fr.DaysToBottom)
	assert.InDelta(t, 0, fr.MaxGain.Float64, 1e-9)
}

func TestForwardFromBarsNoData(t *testing.T) {
	b := NewBacktester(DefaultBacktestConfig())
	fr := b.ForwardFromBars(day("2024-02-01"), 10, closes("2024-01-01", 10, 11))
	assert.Equal(t, models.ForwardReturns{}, fr)
	assert.Equal(t, models.ForwardReturns{}, b.ForwardFromBars(day("2024-01-01"), 0, closes("2024-01-01", 10)))
}
