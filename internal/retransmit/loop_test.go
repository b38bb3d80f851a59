// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package retransmit

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeSenders struct {
	mu    sync.Mutex
	names []string
	forced map[string]int
}

func newFakeSenders(names ...string) *fakeSenders {
	return &fakeSenders{names: names, forced: make(map[string]int)}
}

func (f *fakeSenders) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func (f *fakeSenders) ForceFrame(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced[name]++
}

func (f *fakeSenders) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forced[name]
}

func TestRetransmitForcesFramesOnInterval(t *testing.T) {
	senders := newFakeSenders("a", "b")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := New(senders, logger)

	loop.Configure(true, 30*time.Millisecond)
	defer loop.Stop()

	time.Sleep(120 * time.Millisecond)
	if senders.count("a") == 0 || senders.count("b") == 0 {
		t.Errorf("expected both senders to receive forced frames, got a=%d b=%d", senders.count("a"), senders.count("b"))
	}
}

func TestRetransmitDisabledStopsTicker(t *testing.T) {
	senders := newFakeSenders("a")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := New(senders, logger)

	loop.Configure(true, 20*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	loop.Configure(false, 20*time.Millisecond)
	countAtStop := senders.count("a")
	time.Sleep(60 * time.Millisecond)
	if senders.count("a") != countAtStop {
		t.Errorf("expected no further forced frames after disabling, got %d -> %d", countAtStop, senders.count("a"))
	}
	if loop.Enabled() {
		t.Error("expected Enabled() to be false after Configure(false, ...)")
	}
}
