// Package manager is the process manager: the worker pool (one
// goroutine per core), the process registry (ordered list plus
// name→handle map), the batch generator, and lifecycle control. It is
// grounded on original_source's ProcessManager — the registry-lock and
// per-Process-lock split, and the worker/batch loop shapes — using an
// atomic.Bool/sync.WaitGroup/stopChan idiom for goroutine lifecycle in
// place of std::thread::join.
package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jasonkoogler/csopesy-sim/internal/config"
	"github.com/jasonkoogler/csopesy-sim/internal/errs"
	"github.com/jasonkoogler/csopesy-sim/internal/process"
	"github.com/jasonkoogler/csopesy-sim/internal/scheduler"
	"github.com/jasonkoogler/csopesy-sim/internal/utilization"
)

const (
	idleSleep = 10 * time.Millisecond
	tickSleep = 30 * time.Millisecond
	batchTick = 20 * time.Millisecond
)

// Snapshot is a point-in-time view of the registry and utilization
// monitor, for report formatting — the report package never touches
// manager or process internals directly.
type Snapshot struct {
	Now               time.Time
	UtilizationPct    float64
	BusyCores         int
	TotalCores        int
	AvailableCores    int
	Running, Finished []process.Snapshot
}

// Manager owns the scheduler, the utilization monitor, the process
// registry, and the worker/batch goroutines driven against them.
type Manager struct {
	cfg    *config.Config
	log    *zap.Logger
	logDir string

	regMu     sync.Mutex // registry lock: process list, name map, scheduler queue
	procs     []*process.Process
	byName    map[string]*process.Process
	sched     scheduler.Scheduler
	nextID    atomic.Uint64
	cycle     atomic.Uint64
	util      *utilization.Monitor
	running   atomic.Bool
	batch     atomic.Bool
	cyclesCap uint64 // 0 = unbounded; enforced by a watchdog started alongside the scheduler

	wg      sync.WaitGroup
	stopCh  chan struct{}
	batchCh chan struct{}
}

// New constructs a Manager for cfg, writing per-process logs under
// logDir. The scheduler is selected from cfg.Scheduler. cyclesCap caps
// the total number of virtual cycles the system runs before Shutdown is
// forced; 0 means unbounded.
func New(cfg *config.Config, log *zap.Logger, logDir string, cyclesCap uint64) *Manager {
	var sched scheduler.Scheduler
	if cfg.Scheduler == "rr" {
		sched = scheduler.NewRR(cfg.QuantumCycles)
	} else {
		sched = scheduler.NewFCFS()
	}

	m := &Manager{
		cfg:       cfg,
		log:       log,
		logDir:    logDir,
		byName:    make(map[string]*process.Process),
		sched:     sched,
		util:      utilization.New(cfg.NumCPU),
		cyclesCap: cyclesCap,
	}
	m.nextID.Store(1)
	return m
}

// Clock returns the current virtual-cycle count.
func (m *Manager) Clock() uint64 { return m.cycle.Load() }

// StartScheduler spawns one worker goroutine per core, plus a watchdog
// goroutine enforcing cyclesCap if one was configured.
func (m *Manager) StartScheduler() {
	m.running.Store(true)
	m.stopCh = make(chan struct{})

	for core := 0; core < m.cfg.NumCPU; core++ {
		m.wg.Add(1)
		go m.runWorker(core)
	}
	if m.cyclesCap > 0 {
		m.wg.Add(1)
		go m.runWatchdog()
	}
	m.log.Info("scheduler started", zap.Int("cores", m.cfg.NumCPU), zap.String("policy", m.cfg.Scheduler))
}

// runWatchdog polls the virtual clock and forces a shutdown once
// cyclesCap virtual cycles have elapsed.
func (m *Manager) runWatchdog() {
	defer m.wg.Done()
	for {
		if m.cycle.Load() >= m.cyclesCap {
			m.log.Info("cycles cap reached, forcing shutdown", zap.Uint64("cap", m.cyclesCap))
			go m.Shutdown()
			return
		}
		select {
		case <-time.After(idleSleep):
		case <-m.stopCh:
			return
		}
	}
}

// StopScheduler signals all workers to exit and waits for them.
func (m *Manager) StopScheduler() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.log.Info("scheduler stopped")
}

func (m *Manager) runWorker(core int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		name, ok := m.popReady()
		if !ok {
			m.util.MarkIdle(core)
			select {
			case <-time.After(idleSleep):
				continue
			case <-m.stopCh:
				return
			}
		}

		p, found := m.GetProcess(name)
		if !found {
			continue
		}

		m.util.MarkBusy(core)
		p.SetCoreID(coreName(core))

		slice := m.sched.SliceCycles()
		for i := uint64(0); i < slice && !p.IsFinished(); i++ {
			p.RunOneTick()
			m.cycle.Add(1)
			select {
			case <-time.After(tickSleep):
			case <-m.stopCh:
				p.SetCoreID(process.Unbound)
				m.util.MarkIdle(core)
				return
			}
		}

		p.SetCoreID(process.Unbound)
		m.util.MarkIdle(core)

		if !p.IsFinished() {
			m.enqueue(name)
		}
	}
}

func coreName(core int) string {
	return "core" + itoa(core)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (m *Manager) popReady() (string, bool) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	if !m.sched.HasProcesses() {
		return "", false
	}
	return m.sched.NextProcess()
}

func (m *Manager) enqueue(name string) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	m.sched.AddProcess(name)
}

// StartBatch spawns the batch generator goroutine, which synthesizes
// a new process every cfg.BatchProcessFreq virtual cycles.
func (m *Manager) StartBatch() {
	if !m.batch.CompareAndSwap(false, true) {
		return
	}
	m.batchCh = make(chan struct{})
	m.wg.Add(1)
	go m.runBatch()
	m.log.Info("batch generation started", zap.Uint64("freq", m.cfg.BatchProcessFreq))
}

// StopBatch signals the batch generator goroutine to exit and returns
// without waiting for it. The goroutine is counted in the WaitGroup
// that StopScheduler waits on, and may finish one in-flight spawn after
// StopBatch returns.
func (m *Manager) StopBatch() {
	if !m.batch.CompareAndSwap(true, false) {
		return
	}
	close(m.batchCh)
	m.log.Info("batch generation stopped")
}

// runBatch polls the virtual clock every batchTick and spawns a new
// process each time it observes a cycle count that is both divisible by
// BatchProcessFreq and distinct from the last cycle count that
// triggered a spawn — the poll interval is shorter than a worker tick,
// so without the last-emitted guard the same unchanged cycle count
// (most visibly 0, before any worker has ticked) would spawn a process
// on every poll instead of once per batch-process-freq cycles.
func (m *Manager) runBatch() {
	defer m.wg.Done()
	var lastEmitted int64 = -1
	for {
		cycle := int64(m.cycle.Load())
		if uint64(cycle)%m.cfg.BatchProcessFreq == 0 && cycle != lastEmitted {
			lastEmitted = cycle
			id := m.nextID.Load()
			name := "p" + itoa(int(id))
			if _, err := m.createProcess(name, int64(id)); err != nil {
				m.log.Warn("batch generation failed", zap.String("name", name), zap.Error(err))
			}
		}
		select {
		case <-time.After(batchTick):
		case <-m.batchCh:
			return
		}
	}
}

// AddProcess is an idempotent get-or-create: if name already exists,
// its handle is returned; otherwise a new Process is built from
// config, registered, and enqueued.
func (m *Manager) AddProcess(name string) (*process.Process, error) {
	if p, ok := m.GetProcess(name); ok {
		return p, nil
	}
	id := m.nextID.Load()
	return m.createProcess(name, int64(id))
}

func (m *Manager) createProcess(name string, seed int64) (*process.Process, error) {
	m.regMu.Lock()
	if _, exists := m.byName[name]; exists {
		p := m.byName[name]
		m.regMu.Unlock()
		return p, nil
	}
	m.regMu.Unlock()

	code := process.NewProgram(m.cfg.MinIns, m.cfg.MaxIns, m.cfg.DelaysPerExec, seed, name)
	p, err := process.New(name, int(seed), code, m.logDir, m.log)
	if err != nil {
		return nil, errs.NewIoError("create process "+name, err)
	}

	m.regMu.Lock()
	m.procs = append(m.procs, p)
	m.byName[name] = p
	m.sched.AddProcess(name)
	m.regMu.Unlock()

	m.nextID.Store(uint64(seed) + 1)
	return p, nil
}

// GetProcess looks up a registered process by name.
func (m *Manager) GetProcess(name string) (*process.Process, bool) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	p, ok := m.byName[name]
	return p, ok
}

// Snapshot takes a consistent, registry-insertion-ordered view for
// reporting.
func (m *Manager) Snapshot() Snapshot {
	m.regMu.Lock()
	procs := make([]*process.Process, len(m.procs))
	copy(procs, m.procs)
	m.regMu.Unlock()

	s := Snapshot{
		Now:            time.Now(),
		UtilizationPct: m.util.UtilizationPercent(),
		BusyCores:      m.util.BusyCores(),
		TotalCores:     m.util.TotalCores(),
		AvailableCores: m.util.AvailableCores(),
	}
	for _, p := range procs {
		snap := p.Snapshot()
		if snap.Done {
			s.Finished = append(s.Finished, snap)
		} else {
			s.Running = append(s.Running, snap)
		}
	}
	return s
}

// Shutdown stops batch generation, then the scheduler, then closes
// every process's log file.
func (m *Manager) Shutdown() {
	m.StopBatch()
	m.StopScheduler()

	m.regMu.Lock()
	procs := make([]*process.Process, len(m.procs))
	copy(procs, m.procs)
	m.regMu.Unlock()

	for _, p := range procs {
		if err := p.Close(); err != nil {
			m.log.Warn("closing process log", zap.String("name", p.Name()), zap.Error(err))
		}
	}
}
