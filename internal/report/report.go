// Package report renders system status and utilization reports from a
// manager.Snapshot, grounded on original_source's
// print_system_status/print_process_lists/generate_utilization_report.
// The utilization log is a shared file across processes and REPL
// sessions, so appends take an advisory file lock.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"

	"github.com/jasonkoogler/csopesy-sim/internal/manager"
)

const timeLayout = "01/02/2006 03:04:05PM"

// WriteSystemStatus renders snap to w: current time, utilization
// percent, cores used/available, then the Running and Finished
// process lists in registry insertion order.
func WriteSystemStatus(w io.Writer, snap manager.Snapshot) error {
	if _, err := fmt.Fprintf(w, "Current time: %s\n", snap.Now.Format(timeLayout)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "CPU utilization: %.1f%%\n", snap.UtilizationPct); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Cores used: %d/%d\n", snap.BusyCores, snap.TotalCores); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Cores available: %d\n\n", snap.AvailableCores); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "Running processes:"); err != nil {
		return err
	}
	for _, p := range snap.Running {
		if _, err := fmt.Fprintf(w, "%-15s %s  Core:%s  %d/%d\n",
			p.Name, p.CreatedTime.Format(timeLayout), p.CoreID, p.PC, p.CodeSize); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "\nFinished processes:"); err != nil {
		return err
	}
	for _, p := range snap.Finished {
		if _, err := fmt.Fprintf(w, "%-15s %s  FINISHED  %d/%d\n",
			p.Name, p.FinishedTime.Format(timeLayout), p.CodeSize, p.CodeSize); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "___________________________________________________________")
	return err
}

// WriteUtilizationReport appends one utilization block to path
// (csopesy-log.txt in normal operation), guarded by an advisory file
// lock so concurrent report-util invocations don't interleave writes.
func WriteUtilizationReport(path string, snap manager.Snapshot) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("report: acquire lock: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", path, err)
	}
	defer f.Close()

	return WriteSystemStatus(f, snap)
}
