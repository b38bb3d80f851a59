// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package retransmit implements the Retransmit Loop (spec.md §4.5): when
// enabled, forces every sender to emit one extra frame on a fixed
// interval regardless of its own fps, to keep late-joining devices in
// sync and compensate for UDP loss.
package retransmit

import (
	"log/slog"
	"sync"
	"time"
)

// SenderLister is the subset of *sender.Manager the loop needs.
type SenderLister interface {
	Names() []string
	ForceFrame(name string)
}

// Loop drives periodic forced re-emission, grounded on the teacher's
// StartRefresh/StopRefresh ticker-goroutine pattern for periodic resync.
type Loop struct {
	mu       sync.Mutex
	senders  SenderLister
	logger   *slog.Logger
	interval time.Duration
	enabled  bool
	stopCh   chan struct{}
}

func New(senders SenderLister, logger *slog.Logger) *Loop {
	return &Loop{senders: senders, logger: logger, interval: 5 * time.Second}
}

// Configure sets enabled state and interval; starting/stopping the
// underlying ticker goroutine as needed. Calling Configure again with a
// new interval while enabled restarts the ticker.
func (l *Loop) Configure(enabled bool, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if interval <= 0 {
		interval = 5 * time.Second
	}
	l.interval = interval

	if l.stopCh != nil {
		close(l.stopCh)
		l.stopCh = nil
	}
	l.enabled = enabled
	if !enabled {
		return
	}

	l.stopCh = make(chan struct{})
	go l.run(l.stopCh, interval)
}

func (l *Loop) run(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("retransmit loop started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			for _, name := range l.senders.Names() {
				l.senders.ForceFrame(name)
			}
		case <-stop:
			l.logger.Info("retransmit loop stopped")
			return
		}
	}
}

func (l *Loop) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *Loop) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

func (l *Loop) Stop() {
	l.Configure(false, l.Interval())
}
