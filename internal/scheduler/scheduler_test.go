// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"dmx-gateway/internal/config"
	"dmx-gateway/internal/dispatch"
	"dmx-gateway/internal/playback"
	"dmx-gateway/internal/sender"
	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
	"dmx-gateway/internal/universe"
)

type noopToucher struct{}

func (noopToucher) Touch() {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	logger := testLogger()
	buf := universe.New(nil, logger)
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{1: 255}},
	}, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng := playback.New(buf, reg, func() int { return 60 }, 25, 60, logger)
	senders := sender.NewManager(buf, logger)

	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)
	t.Cleanup(func() {
		cancel()
		eng.Shutdown()
	})

	return dispatch.New(eng, buf, senders, reg, noopToucher{})
}

func TestParseTimeWithSeconds(t *testing.T) {
	e, err := parseTime("08:30:15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Hour != 8 || e.Minute != 30 || e.Second != 15 {
		t.Errorf("expected 8:30:15, got %d:%d:%d", e.Hour, e.Minute, e.Second)
	}
}

func TestParseTimeWithoutSeconds(t *testing.T) {
	e, err := parseTime("08:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Hour != 8 || e.Minute != 30 || e.Second != 0 {
		t.Errorf("expected 8:30:00, got %d:%d:%d", e.Hour, e.Minute, e.Second)
	}
}

func TestEventsSortedByTime(t *testing.T) {
	cfg := &config.ScheduleConfig{
		Events: []config.ScheduleEvent{
			{Time: "23:00:00", PlayScene: "late"},
			{Time: "01:00:00", PlayScene: "early"},
			{Time: "12:00:00", PlayScene: "noon"},
		},
	}
	s, err := New(cfg, newTestDispatcher(t), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := s.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Target != "scene:early" || events[1].Target != "scene:noon" || events[2].Target != "scene:late" {
		t.Errorf("expected early,noon,late order, got %v", events)
	}
}

func TestExecutePlaysScene(t *testing.T) {
	d := newTestDispatcher(t)
	s := &Scheduler{dispatcher: d, logger: testLogger(), location: time.Local}
	s.execute(Event{PlayScene: "red"})

	resp := d.Handle(dispatch.Request{Cmd: "playback_status"})
	status, ok := resp.Data.(playback.Status)
	if !ok || !status.IsPlaying {
		t.Fatalf("expected scene to be playing, got %+v", resp.Data)
	}
}

func TestInvalidTimeSkipped(t *testing.T) {
	cfg := &config.ScheduleConfig{
		Events: []config.ScheduleEvent{
			{Time: "not-a-time", PlayScene: "red"},
			{Time: "10:00:00", PlayScene: "red"},
		},
	}
	s, err := New(cfg, newTestDispatcher(t), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Events()) != 1 {
		t.Errorf("expected invalid time entry to be skipped, got %d events", len(s.Events()))
	}
}
