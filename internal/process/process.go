// Package process implements the Process data model and lifecycle:
// a named unit owning a program, a variable map, a program counter, a
// sleep counter, a core binding, a bounded log ring plus append-only
// log file, and lifecycle timestamps. All mutable state is guarded by
// a single per-Process mutex (I2: at most one worker mutates a given
// Process at a time), matching the locking discipline of
// original_source's Process (one std::mutex per Process).
package process

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jasonkoogler/csopesy-sim/internal/errs"
	"github.com/jasonkoogler/csopesy-sim/internal/instruction"
)

// Unbound is the core_id value of a Process not currently bound to a
// worker.
const Unbound = "unbound"

// logRingCap bounds the in-memory recent-log ring, per the data model.
const logRingCap = 50

const timeLayout = "01/02/2006 03:04:05PM"

// Process is one synthetic unit of work.
type Process struct {
	mu sync.Mutex

	name string
	id   int
	code []instruction.Instruction
	log  *zap.Logger

	pc         int
	sleepTicks int
	vars       map[string]uint16
	coreID     string
	done       bool

	logs    []string
	logFile *bufio.Writer
	logFd   *os.File

	createdTime  time.Time
	startTime    time.Time
	hasStarted   bool
	finishedTime time.Time
}

// New constructs a Process bound to an append-only log file at
// logDir/<name>.txt, opened once and kept for the Process's lifetime.
// log receives Warn-level diagnostics for swallowed operand parse
// failures; a nil log is replaced with a no-op logger.
func New(name string, id int, code []instruction.Instruction, logDir string, log *zap.Logger) (*Process, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("process: create log dir: %w", err)
	}
	fd, err := os.OpenFile(filepath.Join(logDir, name+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("process: open log file: %w", err)
	}
	return &Process{
		name:        name,
		id:          id,
		code:        code,
		log:         log,
		vars:        make(map[string]uint16),
		coreID:      Unbound,
		logFd:       fd,
		logFile:     bufio.NewWriter(fd),
		createdTime: time.Now(),
	}, nil
}

// Close flushes and closes the per-process log file. Called once at
// system shutdown; never during normal execution.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.logFile.Flush(); err != nil {
		return err
	}
	return p.logFd.Close()
}

// tickContext adapts a locked Process to instruction.Mutator. Its
// methods assume the caller already holds p.mu — it exists only so
// RunOneTick can hand instructions a collaborator without a reentrant
// lock acquisition.
type tickContext struct{ p *Process }

func (t tickContext) SetVar(name string, val int64) { t.p.setVarLocked(name, val) }
func (t tickContext) VarOrZero(name string) uint16  { return t.p.vars[name] }
func (t tickContext) SetSleepTicks(ticks int)       { t.p.sleepTicks = ticks }
func (t tickContext) AppendLog(line string)         { t.p.appendLogLocked(line) }
func (t tickContext) CoreID() string                { return t.p.coreID }
func (t tickContext) Now() string                   { return time.Now().Format(timeLayout) }

func (t tickContext) WarnParseError(token string) {
	t.p.log.Warn("swallowed parse error",
		zap.String("process", t.p.name), zap.Error(errs.NewParseError(token)))
}

func (p *Process) setVarLocked(name string, val int64) {
	p.vars[name] = instruction.Clamp16(val)
}

func (p *Process) appendLogLocked(line string) {
	p.logs = append(p.logs, line)
	if len(p.logs) > logRingCap {
		p.logs = p.logs[len(p.logs)-logRingCap:]
	}
	if _, err := p.logFile.WriteString(line + "\n"); err == nil {
		_ = p.logFile.Flush()
	}
	// Write failures are IoErrors per the error design: swallowed,
	// execution continues — the in-memory ring is the source of truth
	// for recent_logs regardless of disk state.
}

// RunOneTick advances the Process by exactly one tick:
// a no-op once done; sets start_time on first call; decrements
// sleep_ticks without advancing pc while sleeping; otherwise executes
// the instruction at pc, advances pc, and latches done/finished_time
// once pc reaches the end of the program.
func (p *Process) RunOneTick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return
	}
	if !p.hasStarted {
		p.startTime = time.Now()
		p.hasStarted = true
	}
	if p.sleepTicks > 0 {
		p.sleepTicks--
		return
	}
	if p.pc >= len(p.code) {
		return
	}

	prevPC := p.pc
	instr := p.code[p.pc]
	p.pc++
	instr.Execute(tickContext{p}, prevPC)

	if p.pc >= len(p.code) {
		p.done = true
		p.finishedTime = time.Now()
		p.appendLogLocked(fmt.Sprintf("FINISHED at %s", p.finishedTime.Format(timeLayout)))
	}
}

// SetVar sets a variable to the clamped value. Exposed as a public
// operation in addition to instruction-driven mutation, e.g. for tests
// and tooling.
func (p *Process) SetVar(name string, val int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setVarLocked(name, val)
}

// GetVarOrValue resolves token per the operand rule: a decimal literal
// if it begins with a digit, otherwise a variable lookup (0 if unset).
func (p *Process) GetVarOrValue(token string) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return instruction.Resolve(token, tickContext{p})
}

// SetCoreID binds (or unbinds, with Unbound) the Process to a core.
func (p *Process) SetCoreID(core string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coreID = core
}

// CoreID returns the Process's current core binding.
func (p *Process) CoreID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coreID
}

// IsFinished reports whether the Process has reached Done.
func (p *Process) IsFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Name returns the Process's immutable name.
func (p *Process) Name() string { return p.name }

// ID returns the Process's monotonic numeric id.
func (p *Process) ID() int { return p.id }

// PC returns the current program counter.
func (p *Process) PC() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pc
}

// CodeSize returns the length of the Process's program.
func (p *Process) CodeSize() int { return len(p.code) }

// CreatedTime returns the Process's creation timestamp.
func (p *Process) CreatedTime() time.Time { return p.createdTime }

// StartTime returns the first-tick timestamp, zero if not yet started.
func (p *Process) StartTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startTime
}

// FinishedTime returns the done-transition timestamp, zero if not done.
func (p *Process) FinishedTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finishedTime
}

// RecentLogs returns a copy of up to n most recent log lines, oldest
// first among the returned slice.
func (p *Process) RecentLogs(n int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n <= 0 || len(p.logs) == 0 {
		return nil
	}
	if n > len(p.logs) {
		n = len(p.logs)
	}
	out := make([]string, n)
	copy(out, p.logs[len(p.logs)-n:])
	return out
}

// Snapshot is a consistent, lock-free-to-read copy of a Process's
// status, for report formatting — callers never hold multiple
// unrelated locks while formatting.
type Snapshot struct {
	Name         string
	ID           int
	PC           int
	CodeSize     int
	CoreID       string
	Done         bool
	CreatedTime  time.Time
	StartTime    time.Time
	FinishedTime time.Time
}

// Snapshot takes a point-in-time copy of the Process's status.
func (p *Process) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Name:         p.name,
		ID:           p.id,
		PC:           p.pc,
		CodeSize:     len(p.code),
		CoreID:       p.coreID,
		Done:         p.done,
		CreatedTime:  p.createdTime,
		StartTime:    p.startTime,
		FinishedTime: p.finishedTime,
	}
}

// FormatTime renders t the way log lines and reports do.
func FormatTime(t time.Time) string { return t.Format(timeLayout) }
