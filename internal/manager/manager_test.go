package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jasonkoogler/csopesy-sim/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		NumCPU:           1,
		Scheduler:        "fcfs",
		QuantumCycles:    2,
		BatchProcessFreq: 1,
		MinIns:           3,
		MaxIns:           3,
		DelaysPerExec:    0,
	}
}

func TestAddProcess_IsIdempotent(t *testing.T) {
	m := New(testConfig(), zap.NewNop(), t.TempDir(), 0)

	a, err := m.AddProcess("a")
	require.NoError(t, err)
	b, err := m.AddProcess("a")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestGetProcess_UnknownNameNotFound(t *testing.T) {
	m := New(testConfig(), zap.NewNop(), t.TempDir(), 0)
	_, ok := m.GetProcess("ghost")
	assert.False(t, ok)
}

func TestStartScheduler_RunsProcessToCompletion(t *testing.T) {
	m := New(testConfig(), zap.NewNop(), t.TempDir(), 0)
	p, err := m.AddProcess("a")
	require.NoError(t, err)

	m.StartScheduler()
	defer m.StopScheduler()

	require.Eventually(t, p.IsFinished, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshot_SplitsRunningAndFinished(t *testing.T) {
	m := New(testConfig(), zap.NewNop(), t.TempDir(), 0)
	_, err := m.AddProcess("a")
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, 1, len(snap.Running)+len(snap.Finished))
	assert.Equal(t, 1, snap.TotalCores)
}

func TestShutdown_StopsWorkersAndClosesLogs(t *testing.T) {
	m := New(testConfig(), zap.NewNop(), t.TempDir(), 0)
	_, err := m.AddProcess("a")
	require.NoError(t, err)

	m.StartScheduler()
	m.Shutdown()

	assert.False(t, m.running.Load())
}

func TestRunBatch_DoesNotReemitOnUnadvancedCycle(t *testing.T) {
	m := New(testConfig(), zap.NewNop(), t.TempDir(), 0)
	m.StartBatch()
	time.Sleep(120 * time.Millisecond)
	m.StopBatch()

	m.regMu.Lock()
	n := len(m.procs)
	m.regMu.Unlock()

	assert.Equal(t, 1, n, "expected exactly one process spawned while the virtual clock stayed at 0")
}

func TestStartScheduler_ForcesShutdownAtCyclesCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxIns = 100
	cfg.MinIns = 100
	m := New(cfg, zap.NewNop(), t.TempDir(), 2)
	_, err := m.AddProcess("a")
	require.NoError(t, err)

	m.StartScheduler()

	require.Eventually(t, func() bool { return !m.running.Load() }, 2*time.Second, 10*time.Millisecond)
}
