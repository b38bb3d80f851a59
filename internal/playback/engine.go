// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dmx-gateway/internal/apierr"
	"dmx-gateway/internal/expr"
	"dmx-gateway/internal/metrics"
	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
	"dmx-gateway/internal/universe"
)

// TickRateProvider returns the desired engine tick rate in Hz; the
// Engine clamps the value to its configured [min,max] bounds (spec.md
// §4.2: "Tick rate equals the slowest sender's fps, minimum 25 Hz,
// maximum 60 Hz").
type TickRateProvider func() int

// command is one engine operation, serialized through cmdCh so that
// "a command is processed to completion ... before the next command"
// (spec.md §5).
type command struct {
	op     string
	scene  string
	seq    string
	prog   string
	trans  float64
	ch     int
	value  uint8
	resp   chan error
}

// Engine owns PlaybackState and is the single writer of the Universe
// Buffer on behalf of playback (direct channel writes also flow through
// here so that they can preempt an active playback).
type Engine struct {
	buf      *universe.Buffer
	registry *show.Registry
	logger   *slog.Logger
	tickRate TickRateProvider

	minHz, maxHz int

	cmdCh chan command

	mu         sync.RWMutex
	st         state
	generation uint64

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds an Engine. tickRate is sampled when the loop starts and
// re-sampled once per second, so that fps changes (sender add/remove)
// are picked up promptly.
func New(buf *universe.Buffer, registry *show.Registry, tickRate TickRateProvider, minHz, maxHz int, logger *slog.Logger) *Engine {
	if minHz < 1 {
		minHz = 25
	}
	if maxHz < minHz {
		maxHz = 60
	}
	return &Engine{
		buf:      buf,
		registry: registry,
		logger:   logger,
		tickRate: tickRate,
		minHz:    minHz,
		maxHz:    maxHz,
		cmdCh:    make(chan command),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the engine's command/tick loop. Cancelling ctx stops it.
func (e *Engine) Start(ctx context.Context) {
	go e.loop(ctx)
}

// Shutdown halts the loop and waits for it to drain, for at most 200ms
// (spec.md §5: "each task drains pending sends for at most 200 ms").
func (e *Engine) Shutdown() {
	close(e.stopCh)
	select {
	case <-e.doneCh:
	case <-time.After(200 * time.Millisecond):
	}
}

func (e *Engine) clampHz(hz int) int {
	if hz < e.minHz {
		return e.minHz
	}
	if hz > e.maxHz {
		return e.maxHz
	}
	return hz
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.doneCh)

	hz := e.clampHz(e.tickRate())
	if hz <= 0 {
		hz = e.minHz
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	rehz := time.NewTicker(time.Second)
	defer rehz.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case cmd := <-e.cmdCh:
			err := e.handle(cmd)
			cmd.resp <- err
		case <-rehz.C:
			newHz := e.clampHz(e.tickRate())
			if newHz != hz && newHz > 0 {
				hz = newHz
				ticker.Reset(time.Second / time.Duration(hz))
			}
		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

// submit sends a command and blocks for its result. It is the only way
// external callers (the Dispatcher) reach the engine.
func (e *Engine) submit(cmd command) error {
	cmd.resp = make(chan error, 1)
	select {
	case e.cmdCh <- cmd:
	case <-e.stopCh:
		return apierr.New(apierr.Fatal, "engine stopped")
	}
	return <-cmd.resp
}

func (e *Engine) PlayScene(id string, transitionSeconds float64) error {
	return e.submit(command{op: "play_scene", scene: id, trans: transitionSeconds})
}

func (e *Engine) PlaySequence(id string) error {
	return e.submit(command{op: "play_sequence", seq: id})
}

func (e *Engine) PlayProgrammable(id string) error {
	return e.submit(command{op: "play_programmable", prog: id})
}

func (e *Engine) SetChannel(channel int, value uint8) error {
	return e.submit(command{op: "set_channel", ch: channel, value: value})
}

func (e *Engine) Stop() error {
	return e.submit(command{op: "stop"})
}

// Status returns a read-only snapshot for UIs.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Status{Kind: e.st.kind.String(), IsPlaying: e.st.kind != Idle}
	switch e.st.kind {
	case StaticScene:
		s.ID = e.st.sceneID
		if e.st.transition.active() {
			s.StepProgressPercent = e.st.transition.progressAt(time.Now()) * 100
		} else {
			s.StepProgressPercent = 100
		}
	case RunningSequence:
		s.ID = e.st.sequenceID
		s.StepIndex = e.st.stepIndex
		if e.st.transition.active() {
			s.StepProgressPercent = e.st.transition.progressAt(time.Now()) * 100
		}
	case RunningProgrammable:
		s.ID = e.st.programmableID
		if ps, ok := e.registry.Programmable(e.st.programmableID); ok && ps.DurationMs > 0 {
			elapsedMs := float64(time.Since(e.st.startTime).Milliseconds())
			pct := 100 * elapsedMs / float64(ps.DurationMs)
			if pct > 100 {
				pct = 100
			}
			s.StepProgressPercent = pct
		}
	}
	return s
}

func (e *Engine) setState(ns state) {
	e.mu.Lock()
	e.st = ns
	e.generation++
	e.mu.Unlock()
	metrics.SetPlaybackActive(ns.kind != Idle)
}

// Generation returns the current cancellation generation, primarily for
// tests asserting that a preempting command bumped it.
func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

func (e *Engine) handle(cmd command) error {
	switch cmd.op {
	case "play_scene":
		return e.handlePlayScene(cmd.scene, cmd.trans)
	case "play_sequence":
		return e.handlePlaySequence(cmd.seq)
	case "play_programmable":
		return e.handlePlayProgrammable(cmd.prog)
	case "set_channel":
		if cmd.ch < 1 || cmd.ch > universe.Channels {
			return apierr.New(apierr.InvalidInput, "channel out of range")
		}
		e.setState(state{kind: Idle})
		e.buf.Write(cmd.ch, cmd.value)
		return nil
	case "stop":
		e.setState(state{kind: Idle})
		return nil
	default:
		return apierr.New(apierr.InvalidInput, "unknown engine operation")
	}
}

// sceneTarget resolves a scene's non-null values into a channel->value
// map, ready to use either as an immediate WriteMany or a transition
// target.
func sceneTarget(values map[int]uint8) map[int]uint8 {
	target := make(map[int]uint8, len(values))
	for ch, v := range values {
		target[ch] = v
	}
	return target
}

func (e *Engine) sampleCurrent(target map[int]uint8) map[int]uint8 {
	start := make(map[int]uint8, len(target))
	snap := e.buf.Snapshot()
	for ch := range target {
		if ch >= 1 && ch <= universe.Channels {
			start[ch] = snap[ch-1]
		}
	}
	return start
}

func (e *Engine) handlePlayScene(id string, transitionSeconds float64) error {
	sc, ok := e.registry.Scene(id)
	if !ok {
		return apierr.New(apierr.NotFound, "scene not found: "+id)
	}
	target := sceneTarget(sc.Values)
	var tr *transition
	if transitionSeconds > 0 {
		tr = &transition{
			start:    e.sampleCurrent(target),
			target:   target,
			startAt:  time.Now(),
			duration: time.Duration(transitionSeconds * float64(time.Second)),
		}
	} else {
		e.buf.WriteMany(target)
	}
	e.setState(state{kind: StaticScene, sceneID: id, transition: tr})
	return nil
}

func (e *Engine) handlePlaySequence(id string) error {
	sq, ok := e.registry.Sequence(id)
	if !ok {
		return apierr.New(apierr.NotFound, "sequence not found: "+id)
	}
	if len(sq.Steps) == 0 {
		return apierr.New(apierr.InvalidInput, "sequence has no steps: "+id)
	}
	ns := state{kind: RunningSequence, sequenceID: id, stepIndex: 0, stepStart: time.Now()}
	ns.transition = e.applyStep(sq.Steps[0])
	e.setState(ns)
	return nil
}

// applyStep resolves a Step's values (scene reference or inline) and
// either applies them immediately or returns an active transition, per
// the step's FadeMs.
func (e *Engine) applyStep(step showtypes.Step) *transition {
	var values map[int]uint8
	if step.SceneID != "" {
		if sc, ok := e.registry.Scene(step.SceneID); ok {
			values = sc.Values
		}
	} else {
		values = step.Inline
	}
	target := sceneTarget(values)
	if step.FadeMs > 0 {
		return &transition{
			start:    e.sampleCurrent(target),
			target:   target,
			startAt:  time.Now(),
			duration: time.Duration(step.FadeMs) * time.Millisecond,
		}
	}
	e.buf.WriteMany(target)
	return nil
}

func (e *Engine) handlePlayProgrammable(id string) error {
	ps, ok := e.registry.Programmable(id)
	if !ok {
		return apierr.New(apierr.NotFound, "programmable scene not found: "+id)
	}
	if len(ps.Compiled()) == 0 && len(ps.Expressions) > 0 {
		e.logger.Warn("programmable scene has no compiled expressions", "id", id)
	}
	e.setState(state{kind: RunningProgrammable, programmableID: id, startTime: time.Now()})
	return nil
}

// tick advances whatever is currently playing. It is the only place
// besides handle() that mutates universe values or state, and it runs
// on the same single goroutine as handle(), so no locking is needed for
// state transitions beyond the publish done in setState.
func (e *Engine) tick(now time.Time) {
	e.mu.RLock()
	cur := e.st
	e.mu.RUnlock()

	switch cur.kind {
	case StaticScene:
		e.tickTransition(cur.transition, now)
	case RunningSequence:
		e.tickSequence(cur, now)
	case RunningProgrammable:
		e.tickProgrammable(cur, now)
	}
}

func (e *Engine) tickTransition(tr *transition, now time.Time) {
	if !tr.active() {
		return
	}
	p := tr.progressAt(now)
	out := make(map[int]uint8, len(tr.target))
	for ch, t := range tr.target {
		s := tr.start[ch]
		out[ch] = expr.ClampToDMX(float64(s) + (float64(t)-float64(s))*p)
	}
	e.buf.WriteMany(out)
	if p >= 1 {
		// Settle: drop the transition, state stays StaticScene/step-in-place.
		e.mu.Lock()
		if e.st.transition == tr {
			e.st.transition = nil
		}
		e.mu.Unlock()
	}
}

func (e *Engine) tickSequence(cur state, now time.Time) {
	if cur.transition.active() {
		e.tickTransition(cur.transition, now)
		return
	}

	sq, ok := e.registry.Sequence(cur.sequenceID)
	if !ok {
		e.setState(state{kind: Idle})
		return
	}
	step := sq.Steps[cur.stepIndex]
	if now.Sub(cur.stepStart) < time.Duration(step.Duration)*time.Millisecond {
		return
	}

	next := cur.stepIndex + 1
	if next >= len(sq.Steps) {
		if !sq.Loop {
			e.setState(state{kind: Idle})
			return
		}
		next = 0
	}
	ns := state{kind: RunningSequence, sequenceID: cur.sequenceID, stepIndex: next, stepStart: now}
	ns.transition = e.applyStep(sq.Steps[next])
	e.setState(ns)
}

func (e *Engine) tickProgrammable(cur state, now time.Time) {
	ps, ok := e.registry.Programmable(cur.programmableID)
	if !ok {
		e.setState(state{kind: Idle})
		return
	}
	elapsed := now.Sub(cur.startTime)
	elapsedMs := float64(elapsed.Milliseconds())
	if ps.DurationMs > 0 && elapsedMs >= float64(ps.DurationMs) {
		if ps.Loop {
			e.setState(state{kind: RunningProgrammable, programmableID: cur.programmableID, startTime: now})
			return
		}
		e.setState(state{kind: Idle})
		return
	}

	p := 0.0
	if ps.DurationMs > 0 {
		p = 100 * elapsedMs / float64(ps.DurationMs)
		if p > 100 {
			p = 100
		}
	}
	vars := expr.Vars{T: elapsed.Seconds(), P: p}

	out := make(map[int]uint8, len(ps.Expressions))
	for ch, compiled := range ps.Compiled() {
		out[ch] = expr.ClampToDMX(expr.Eval(compiled, vars))
	}
	// Channels whose expression failed to compile emit 0.
	for ch := range ps.Expressions {
		if _, ok := out[ch]; !ok {
			out[ch] = 0
		}
	}
	e.buf.WriteMany(out)
}
