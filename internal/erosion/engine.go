package erosion

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/erosim/internal/compute"
	"github.com/san-kum/erosim/internal/grid"
)

// uploadPoll is how often a finishing run rechecks a busy consumer.
const uploadPoll = time.Millisecond

// Stats describes the most recent run.
type Stats struct {
	Backend Backend
	Steps   int
	Elapsed time.Duration
	Failed  bool
}

// Engine owns the erosion buffers and runs the simulation on either
// backend. Only one run may be active at a time.
//
// Bind, Start, Stop and Release may be called from different goroutines.
// Params may be changed between or during CPU runs; a running pipeline
// picks new values up at the next step.
type Engine struct {
	mu       sync.Mutex
	terrain  Terrain
	grid     *grid.Grid
	device   compute.Device
	devWidth int
	consumer MeshConsumer
	done     chan struct{}
	lastErr  error
	stats    Stats

	paramsMu sync.RWMutex
	params   Params

	eroding    atomic.Bool
	step       atomic.Int64
	waterShown atomic.Bool
}

func NewEngine(p Params) *Engine {
	e := &Engine{params: p}
	e.waterShown.Store(true)
	return e
}

func (e *Engine) Params() Params {
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	return e.params
}

func (e *Engine) SetParams(p Params) {
	e.paramsMu.Lock()
	e.params = p
	e.paramsMu.Unlock()
}

// SetConsumer registers the mesh consumer notified as the terrain changes.
func (e *Engine) SetConsumer(c MeshConsumer) {
	e.mu.Lock()
	e.consumer = c
	e.mu.Unlock()
}

// SetWaterPreview controls whether per-step regenerate requests include
// the water surface.
func (e *Engine) SetWaterPreview(on bool) { e.waterShown.Store(on) }

// SetDevice attaches the device used by GPU runs. The engine takes
// ownership and releases it in Release. If the engine is already bound
// the device mirrors are allocated immediately.
func (e *Engine) SetDevice(d compute.Device) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.eroding.Load() {
		return ErrRunning
	}
	if e.device != nil && e.device != d {
		e.device.Release()
	}
	e.device, e.devWidth = d, 0
	if e.grid != nil && d != nil {
		return e.allocateDevice()
	}
	return nil
}

// Bind allocates buffers for t. It must be called once before any run;
// binding again requires Release first.
func (e *Engine) Bind(t Terrain) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.grid != nil {
		return ErrAlreadyBound
	}
	width := t.Width()
	if width < 3 {
		return fmt.Errorf("%w: width %d", ErrGridTooSmall, width)
	}
	size := width * width
	if len(t.Heights()) != size || len(t.Water()) != size {
		return fmt.Errorf("%w: width %d, heights %d, water %d",
			ErrSizeMismatch, width, len(t.Heights()), len(t.Water()))
	}

	e.terrain = t
	e.grid = grid.New(width, t.Heights(), t.Water())
	Logger().Debug("engine bound", "width", width, "cells", size)

	if e.device != nil {
		return e.allocateDevice()
	}
	return nil
}

func (e *Engine) allocateDevice() error {
	if err := e.device.Allocate(e.grid.Width); err != nil {
		return err
	}
	e.devWidth = e.grid.Width
	return nil
}

// Width returns the bound grid width, or 0 when unbound.
func (e *Engine) Width() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grid == nil {
		return 0
	}
	return e.grid.Width
}

func (e *Engine) Eroding() bool { return e.eroding.Load() }

func (e *Engine) Step() int { return int(e.step.Load()) }

// LastError returns the failure of the most recent run, if any.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Start begins a run. A CPU run proceeds on a background goroutine and
// Start returns at once; a GPU run executes on the calling goroutine and
// Start returns when it is over.
func (e *Engine) Start(b Backend) error {
	e.mu.Lock()
	if e.grid == nil {
		e.mu.Unlock()
		return ErrNotBound
	}
	if e.eroding.Load() {
		e.mu.Unlock()
		Logger().Warn("start rejected, run in progress", "backend", b, "step", e.Step())
		return ErrRunning
	}
	if b != CPU && b != GPU {
		e.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnknownBackend, b)
	}
	// a stopped or finished run may still be unwinding
	if done := e.done; done != nil {
		e.mu.Unlock()
		<-done
		e.mu.Lock()
		if e.done == done {
			e.done = nil
		}
		if e.grid == nil {
			e.mu.Unlock()
			return ErrNotBound
		}
		if e.eroding.Load() {
			e.mu.Unlock()
			return ErrRunning
		}
	}

	p := e.Params()
	if err := p.Validate(); err != nil {
		e.mu.Unlock()
		return err
	}
	maxHeight := e.terrain.MaxHeight()
	if maxHeight <= 0 {
		e.mu.Unlock()
		return ErrMaxHeight
	}

	g := e.grid
	g.Mirror()
	parallelRows(g.Width, func(z0, z1 int) { g.Seed(z0, z1, p.Rain, maxHeight) })

	e.step.Store(0)
	e.eroding.Store(true)
	e.lastErr = nil
	e.stats = Stats{Backend: b}
	consumer := e.consumer
	Logger().Info("erosion started", "backend", b, "steps", p.Steps, "width", g.Width)

	if b == CPU {
		done := make(chan struct{})
		e.done = done
		e.mu.Unlock()
		go e.runCPU(g, consumer, maxHeight, done)
		return nil
	}

	dev, devWidth := e.device, e.devWidth
	e.mu.Unlock()
	return e.runGPU(g, dev, devWidth, consumer, p, maxHeight)
}

// Stop asks the active run to end and, for a CPU run, waits until its
// goroutine has exited. Calling Stop with no active run does nothing.
func (e *Engine) Stop() {
	e.eroding.Store(false)
	e.Wait()
}

// Wait blocks until the background CPU run, if any, has exited.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Score computes the roughness of the current height field. During an
// active run it reads a torn snapshot and is only an approximation.
func (e *Engine) Score() (float64, error) {
	e.mu.Lock()
	g := e.grid
	e.mu.Unlock()
	if g == nil {
		return 0, ErrNotBound
	}
	return Roughness(g.HeightIn, g.Width)
}

// Release frees the buffers and the attached device. The engine can be
// bound again afterwards.
func (e *Engine) Release() error {
	if e.eroding.Load() {
		return ErrRunning
	}
	e.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grid != nil {
		e.grid.Release()
		e.grid = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device, e.devWidth = nil, 0
	}
	e.terrain = nil
	e.done = nil
	return nil
}

func (e *Engine) runCPU(g *grid.Grid, consumer MeshConsumer, maxHeight float32, done chan struct{}) {
	defer close(done)
	start := time.Now()

	for e.eroding.Load() {
		p := e.Params()
		step := e.Step()
		if step >= p.Steps {
			break
		}
		cpuStep(g, p, step, maxHeight)
		e.step.Add(1)

		if consumer != nil && !consumer.NeedsUpload() {
			consumer.Regenerate(e.waterShown.Load())
		}
	}

	// natural completion: publish the final state with water
	if e.eroding.Load() {
		e.finalSignal(consumer)
	}
	e.finish(time.Since(start), nil)
}

func (e *Engine) runGPU(g *grid.Grid, dev compute.Device, devWidth int, consumer MeshConsumer, p Params, maxHeight float32) error {
	start := time.Now()
	if err := e.gpuPipeline(g, dev, devWidth, p, maxHeight); err != nil {
		runErr := &RunError{Backend: GPU, Step: e.Step(), Err: err}
		Logger().Warn("gpu run failed", "step", runErr.Step, "err", err)
		e.finish(time.Since(start), runErr)
		return runErr
	}
	e.finalSignal(consumer)
	e.finish(time.Since(start), nil)
	return nil
}

// finalSignal waits for the consumer to drain its pending upload, then
// requests a regenerate that includes water. A Stop during the wait
// abandons it.
func (e *Engine) finalSignal(consumer MeshConsumer) {
	if consumer == nil {
		return
	}
	for consumer.NeedsUpload() {
		if !e.eroding.Load() {
			return
		}
		time.Sleep(uploadPoll)
	}
	consumer.Regenerate(true)
}

func (e *Engine) finish(elapsed time.Duration, err error) {
	e.mu.Lock()
	e.stats.Steps = e.Step()
	e.stats.Elapsed = elapsed
	e.stats.Failed = err != nil
	e.lastErr = err
	stats := e.stats
	e.mu.Unlock()
	e.eroding.Store(false)
	Logger().Info("erosion finished", "backend", stats.Backend, "steps", stats.Steps, "elapsed", elapsed)
}
