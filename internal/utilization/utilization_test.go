package utilization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkBusyIdle_CoreCounts(t *testing.T) {
	m := New(4)
	assert.Equal(t, 4, m.TotalCores())
	assert.Equal(t, 0, m.BusyCores())
	assert.Equal(t, 4, m.AvailableCores())

	m.MarkBusy(0)
	m.MarkBusy(2)
	assert.Equal(t, 2, m.BusyCores())
	assert.Equal(t, 2, m.AvailableCores())

	m.MarkIdle(0)
	assert.Equal(t, 1, m.BusyCores())
	assert.Equal(t, 3, m.AvailableCores())
}

func TestMarkBusy_IdempotentWhileAlreadyBusy(t *testing.T) {
	m := New(1)
	m.MarkBusy(0)
	first := m.startedAt[0]
	m.MarkBusy(0)
	assert.Equal(t, first, m.startedAt[0])
}

func TestUtilizationPercent_AccumulatesBusyTime(t *testing.T) {
	m := New(1)
	m.MarkBusy(0)
	time.Sleep(20 * time.Millisecond)
	m.MarkIdle(0)

	pct := m.UtilizationPercent()
	assert.Greater(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 100.0)
}

func TestUtilizationPercent_ZeroWhenNeverBusy(t *testing.T) {
	m := New(2)
	assert.Equal(t, 0.0, m.UtilizationPercent())
}
