// effect.go — the host-facing effect instance.
//
// An Effect binds one shared compiled Script to one private Memory and
// Context, so many instances of the same script run concurrently without
// interference. Exactly one real-time thread drives ProcessSample /
// ProcessBlock per instance; SetParameter and SetBypassed may be called
// from a separate control thread (the parameter handoff is lock-free, see
// context.go).
//
// Runtime failure policy: an error raised while a section runs is recorded
// for host diagnostics and the instance passes input through for the
// remainder of the current block. It never unwinds across the real-time
// call boundary, and re-enabling happens automatically on the next block.
package sfx

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// cpuEMAAlpha weights the per-block CPU usage moving average.
const cpuEMAAlpha = 0.1

// automation is one parameter's block-stepped value ramp. The control
// thread installs it wholesale; afterwards only the audio thread touches
// next.
type automation struct {
	values []float64
	next   int
}

// Effect is one running instance of a compiled script.
type Effect struct {
	// ID distinguishes instances in host diagnostics.
	ID uuid.UUID

	script *Script
	mem    *Memory
	ctx    *Context
	in     interp

	maxBlock int

	bypassed atomic.Bool
	lastErr  atomic.Pointer[RuntimeError]
	autom    [NumParams]atomic.Pointer[automation]

	// audio-thread state
	errThisBlock bool
	cpuUsage     float64
}

// Instantiate creates a private instance of the script: fresh memory and
// context, slider defaults applied, then the init and slider sections run
// once. Init always precedes any processing call by construction.
func (s *Script) Instantiate(sampleRate float64, maxBlockSize int) *Effect {
	e := &Effect{
		ID:       uuid.New(),
		script:   s,
		mem:      NewMemory(),
		ctx:      NewContext(sampleRate),
		maxBlock: maxBlockSize,
	}
	e.in.mem = e.mem
	e.in.ctx = e.ctx
	for i, sl := range s.info.Sliders {
		e.ctx.seedParam(i, sl.Default)
	}
	e.runSection(s.initSec)
	e.runSection(s.sliderSec)
	return e
}

// Script returns the shared compiled script this instance runs.
func (e *Effect) Script() *Script { return e.script }

// Reset clears the instance's memory and reruns init and slider with the
// current parameter values. The recorded error, if any, is cleared.
func (e *Effect) Reset() {
	e.mem.Reset()
	e.lastErr.Store(nil)
	e.errThisBlock = false
	e.ctx.drainParams()
	e.runSection(e.script.initSec)
	e.runSection(e.script.sliderSec)
}

// ----- parameters -----

// SetParameter publishes a new value for parameter index. Out-of-range
// indices are a no-op, not an error. Safe to call from a control thread;
// the value is applied, and the slider section run, before the next
// per-sample or per-block call.
func (e *Effect) SetParameter(index int, value float64) {
	e.ctx.setParam(index, value)
}

// Parameter returns the most recently set value for index (or its default),
// 0 when out of range.
func (e *Effect) Parameter(index int) float64 {
	return e.ctx.param(index)
}

// SetParameterAutomation installs a value ramp for parameter index: one
// value is applied per processed block until the ramp is exhausted. A nil
// or empty ramp clears automation for that index.
func (e *Effect) SetParameterAutomation(index int, values []float64) {
	if index < 0 || index >= NumParams {
		return
	}
	if len(values) == 0 {
		e.autom[index].Store(nil)
		return
	}
	ramp := make([]float64, len(values))
	copy(ramp, values)
	e.autom[index].Store(&automation{values: ramp})
}

// ----- bypass & diagnostics -----

// SetBypassed toggles bypass. A bypassed instance skips all script
// execution while leaving its state untouched, so re-enabling resumes
// seamlessly.
func (e *Effect) SetBypassed(b bool) { e.bypassed.Store(b) }

// Bypassed reports whether the instance is bypassed.
func (e *Effect) Bypassed() bool { return e.bypassed.Load() }

// LastError returns the most recent runtime error recorded during
// processing, or nil. Reset clears it.
func (e *Effect) LastError() *RuntimeError { return e.lastErr.Load() }

// Context exposes the instance's execution context for host transport
// updates (tempo, play state). Audio thread only.
func (e *Effect) Context() *Context { return e.ctx }

// CPUUsage returns an exponential moving average of per-block processing
// time in milliseconds.
func (e *Effect) CPUUsage() float64 { return e.cpuUsage }

// ----- processing -----

// runSection executes one section and records a runtime error if it raises
// one. Returns false on error.
func (e *Effect) runSection(sec *Node) bool {
	if sec == nil {
		return true
	}
	if rerr := e.in.run(sec); rerr != nil {
		e.lastErr.Store(rerr)
		e.errThisBlock = true
		return false
	}
	return true
}

// applyPending drains parameter writes and runs the slider section when
// anything changed. Called on the audio thread before section execution.
func (e *Effect) applyPending() {
	if e.ctx.drainParams() {
		e.runSection(e.script.sliderSec)
	}
}

// ProcessSample processes one stereo frame. A bypassed instance, a script
// without a @sample section, and an instance that just recorded a runtime
// error all pass input through unchanged.
func (e *Effect) ProcessSample(in0, in1 float64) (out0, out1 float64) {
	if e.bypassed.Load() || e.script.sampleSec == nil {
		return in0, in1
	}
	e.errThisBlock = false
	e.applyPending()

	e.ctx.regs[RegSpl0] = in0
	e.ctx.regs[RegSpl1] = in1
	if !e.runSection(e.script.sampleSec) {
		return in0, in1
	}
	return e.ctx.regs[RegSpl0], e.ctx.regs[RegSpl1]
}

// ProcessBlock processes a whole buffer in place: parameter automation
// steps once, pending parameter changes apply, the block section runs, then
// the sample section runs per frame. On a runtime error the remaining
// frames keep their input values (the instance is bypassed for the rest of
// this block) and processing resumes with the next block.
func (e *Effect) ProcessBlock(b *Block) {
	if e.bypassed.Load() {
		return
	}
	start := time.Now()
	e.errThisBlock = false

	e.stepAutomation()
	e.applyPending()
	if !e.errThisBlock {
		e.runSection(e.script.blockSec)
	}

	if e.script.sampleSec != nil && !e.errThisBlock {
		for i := 0; i < b.Frames; i++ {
			in0 := b.sample(0, i)
			in1 := b.sample(1, i)
			e.ctx.regs[RegSpl0] = in0
			e.ctx.regs[RegSpl1] = in1
			if !e.runSection(e.script.sampleSec) {
				break
			}
			b.setSample(0, i, e.ctx.regs[RegSpl0])
			b.setSample(1, i, e.ctx.regs[RegSpl1])
		}
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	e.cpuUsage = cpuEMAAlpha*elapsed + (1-cpuEMAAlpha)*e.cpuUsage
}

// stepAutomation applies at most one ramp value per parameter per block.
func (e *Effect) stepAutomation() {
	for i := range e.autom {
		a := e.autom[i].Load()
		if a == nil || a.next >= len(a.values) {
			continue
		}
		e.ctx.setParam(i, a.values[a.next])
		a.next++
	}
}
