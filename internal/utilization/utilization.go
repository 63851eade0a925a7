// Package utilization tracks per-core busy/idle transitions and
// derives CPU utilization percentage, field-for-field grounded on
// original_source's CPUUtilization (is_busy/busy_times/start_times/t0),
// guarded by a single mutex in place of a bare std::mutex.
package utilization

import (
	"sync"
	"time"
)

// Monitor tracks busy/idle state for a fixed number of cores.
type Monitor struct {
	mu         sync.Mutex
	totalCores int
	isBusy     []bool
	busyTime   []time.Duration
	startedAt  []time.Time
	t0         time.Time
}

// New constructs a Monitor for the given number of cores, all idle.
func New(totalCores int) *Monitor {
	return &Monitor{
		totalCores: totalCores,
		isBusy:     make([]bool, totalCores),
		busyTime:   make([]time.Duration, totalCores),
		startedAt:  make([]time.Time, totalCores),
		t0:         time.Now(),
	}
}

// MarkBusy records core entering the busy state, if it wasn't already.
func (m *Monitor) MarkBusy(core int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isBusy[core] {
		m.startedAt[core] = time.Now()
		m.isBusy[core] = true
	}
}

// MarkIdle records core returning to idle, accumulating the elapsed
// busy duration if it was busy.
func (m *Monitor) MarkIdle(core int) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isBusy[core] {
		m.busyTime[core] += now.Sub(m.startedAt[core])
		m.isBusy[core] = false
	}
}

// BusyCores returns the number of cores currently marked busy.
func (m *Monitor) BusyCores() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.isBusy {
		if b {
			n++
		}
	}
	return n
}

// AvailableCores returns TotalCores minus BusyCores.
func (m *Monitor) AvailableCores() int { return m.TotalCores() - m.BusyCores() }

// TotalCores returns the fixed core count this Monitor was built with.
func (m *Monitor) TotalCores() int { return m.totalCores }

// UtilizationPercent is the fraction of total core-time spent busy
// since the Monitor was created, as a percentage.
func (m *Monitor) UtilizationPercent() float64 {
	now := time.Now()
	elapsed := now.Sub(m.t0).Seconds()
	if elapsed <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var busy time.Duration
	for i := 0; i < m.totalCores; i++ {
		busy += m.busyTime[i]
		if m.isBusy[i] {
			busy += now.Sub(m.startedAt[i])
		}
	}
	totalSec := elapsed * float64(m.totalCores)
	if totalSec <= 0 {
		return 0
	}
	return (busy.Seconds() / totalSec) * 100.0
}
