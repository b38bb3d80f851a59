// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package fallback implements the Fallback Controller (spec.md §4.6):
// an inactivity watchdog that applies a configured scene or sequence
// after a period without any state-changing command, going through the
// same play path as a user command so preemption rules stay uniform.
package fallback

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
)

// Player is the subset of the Playback Engine the controller drives.
type Player interface {
	PlayScene(id string, transitionSeconds float64) error
	PlaySequence(id string) error
}

// Controller watches for command inactivity and applies the configured
// fallback target, grounded on the teacher's scheduler ticker-loop shape
// (a single goroutine woken by time.Ticker, guarded start/stop).
type Controller struct {
	player   Player
	registry *show.Registry
	logger   *slog.Logger

	lastActivity atomic.Int64 // unix nanos

	mu        sync.Mutex
	triggered bool // true once the currently-armed deadline has fired
	stopCh    chan struct{}
}

func New(player Player, registry *show.Registry, logger *slog.Logger) *Controller {
	c := &Controller{player: player, registry: registry, logger: logger}
	c.lastActivity.Store(time.Now().UnixNano())
	return c
}

// Touch records activity, re-arming any previously fired fallback.
func (c *Controller) Touch() {
	c.lastActivity.Store(time.Now().UnixNano())
	c.mu.Lock()
	c.triggered = false
	c.mu.Unlock()
}

// Start launches the watchdog goroutine. pollInterval should be well
// under the shortest configured delay so firing is timely (spec.md §8:
// "fallback target is applied between delay and delay + one_engine_tick").
func (c *Controller) Start(pollInterval time.Duration) {
	c.mu.Lock()
	if c.stopCh != nil {
		c.mu.Unlock()
		return
	}
	c.stopCh = make(chan struct{})
	stop := c.stopCh
	c.mu.Unlock()

	go c.run(stop, pollInterval)
}

func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

func (c *Controller) run(stop chan struct{}, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.check()
		case <-stop:
			return
		}
	}
}

func (c *Controller) check() {
	c.mu.Lock()
	if c.triggered {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	fb := c.registry.Fallback()
	idle := time.Since(time.Unix(0, c.lastActivity.Load()))

	sceneDue := fb.Scene.Enabled && idle >= time.Duration(fb.Scene.DelaySeconds*float64(time.Second))
	seqDue := fb.Sequence.Enabled && idle >= time.Duration(fb.Sequence.DelaySeconds*float64(time.Second))

	switch {
	case sceneDue:
		c.fire(fb.Scene, false)
	case seqDue:
		c.fire(fb.Sequence, true)
	}
}

func (c *Controller) fire(slot showtypes.FallbackSlot, isSequence bool) {
	c.mu.Lock()
	c.triggered = true
	c.mu.Unlock()

	var err error
	if isSequence {
		err = c.player.PlaySequence(slot.TargetID)
	} else {
		err = c.player.PlayScene(slot.TargetID, 0)
	}
	if err != nil {
		c.logger.Error("fallback trigger failed", "target", slot.TargetID, "sequence", isSequence, "error", err)
	} else {
		c.logger.Info("fallback triggered", "target", slot.TargetID, "sequence", isSequence)
	}
}
