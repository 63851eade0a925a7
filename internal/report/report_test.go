package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonkoogler/csopesy-sim/internal/manager"
	"github.com/jasonkoogler/csopesy-sim/internal/process"
)

func sampleSnapshot() manager.Snapshot {
	return manager.Snapshot{
		Now:            time.Now(),
		UtilizationPct: 25.0,
		BusyCores:      1,
		TotalCores:     4,
		AvailableCores: 3,
		Running: []process.Snapshot{
			{Name: "a", CoreID: "core0", PC: 1, CodeSize: 5},
		},
		Finished: []process.Snapshot{
			{Name: "b", CodeSize: 3},
		},
	}
}

func TestWriteSystemStatus_ListsRunningThenFinished(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSystemStatus(&buf, sampleSnapshot()))

	out := buf.String()
	assert.Contains(t, out, "CPU utilization: 25.0%")
	assert.Contains(t, out, "Running processes:")
	assert.Contains(t, out, "Finished processes:")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")

	runningIdx := bytes.Index(buf.Bytes(), []byte("Running processes"))
	finishedIdx := bytes.Index(buf.Bytes(), []byte("Finished processes"))
	assert.Less(t, runningIdx, finishedIdx)
}

func TestWriteUtilizationReport_AppendsBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csopesy-log.txt")

	require.NoError(t, WriteUtilizationReport(path, sampleSnapshot()))
	require.NoError(t, WriteUtilizationReport(path, sampleSnapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("CPU utilization:")))
	assert.Equal(t, 2, bytes.Count(data, []byte("Current time:")))
	assert.Equal(t, 2, bytes.Count(data, []byte("Running processes:")))
	assert.Equal(t, 2, bytes.Count(data, []byte("Finished processes:")))
}
