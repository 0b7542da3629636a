package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Profiler tracks wall time and heap statistics across the phases of a load.
// Each call to Mark closes the current phase and logs its cost.
type Profiler struct {
	logger         *slog.Logger
	start          time.Time
	lastTime       time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	phases         []Phase
}

// Phase is the recorded cost of one named phase.
type Phase struct {
	Name       string
	Elapsed    time.Duration
	AllocBytes uint64
	GCCount    uint32
}

// NewProfiler creates a Profiler whose first phase starts now.
//
// Parameters:
//   - logger: receives one record per phase; nil uses slog.Default()
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Profiler{
		logger: logger,
		start:  time.Now(),
	}
	p.lastTime = p.start
	runtime.ReadMemStats(&p.memStats)
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return p
}

// Mark ends the current phase under name and starts the next one.
// TotalAlloc is cumulative, so the delta is the bytes allocated during the phase.
//
// Parameters:
//   - name: the phase name
//
// Returns:
//   - Phase: the recorded phase
func (p *Profiler) Mark(name string) Phase {
	now := time.Now()
	runtime.ReadMemStats(&p.memStats)

	phase := Phase{
		Name:       name,
		Elapsed:    now.Sub(p.lastTime),
		AllocBytes: p.memStats.TotalAlloc - p.lastTotalAlloc,
		GCCount:    p.memStats.NumGC - p.lastGCCount,
	}
	p.phases = append(p.phases, phase)

	p.logger.Info("phase complete",
		"phase", name,
		"elapsed", phase.Elapsed,
		"alloc_mb", float64(phase.AllocBytes)/1024/1024,
		"gc", phase.GCCount,
		"heap_mb", float64(p.memStats.Alloc)/1024/1024,
	)

	p.lastTime = now
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return phase
}

// Phases returns the phases recorded so far, in order.
func (p *Profiler) Phases() []Phase {
	return p.phases
}

// Total returns the wall time since the profiler was created.
func (p *Profiler) Total() time.Duration {
	return time.Since(p.start)
}
