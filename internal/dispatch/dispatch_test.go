// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"dmx-gateway/internal/playback"
	"dmx-gateway/internal/sender"
	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
	"dmx-gateway/internal/universe"
)

type fakeToucher struct {
	touched atomic.Int32
}

func (f *fakeToucher) Touch() { f.touched.Add(1) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *universe.Buffer, *fakeToucher) {
	t.Helper()
	buf := universe.New(nil, testLogger())
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{1: 255}},
	}, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng := playback.New(buf, reg, func() int { return 60 }, 25, 60, testLogger())
	senders := sender.NewManager(buf, testLogger())
	touch := &fakeToucher{}

	// Engine needs a running loop; use a background context via Start.
	eng.Start(context.Background())
	t.Cleanup(eng.Shutdown)

	d := New(eng, buf, senders, reg, touch)
	return d, buf, touch
}

func TestDispatchSetChannel(t *testing.T) {
	d, buf, touch := newTestDispatcher(t)

	resp := d.Handle(Request{Cmd: "set_channel", Channel: 10, Value: 200})
	if resp.Type != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
	if buf.Get(10) != 200 {
		t.Errorf("expected channel 10 = 200, got %d", buf.Get(10))
	}
	if touch.touched.Load() != 1 {
		t.Errorf("expected fallback Touch to be called once, got %d", touch.touched.Load())
	}
}

func TestDispatchSetChannelOutOfRange(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	resp := d.Handle(Request{Cmd: "set_channel", Channel: 999, Value: 1})
	if resp.Type != "error" {
		t.Fatalf("expected error response, got %+v", resp)
	}
}

func TestDispatchPlayScene(t *testing.T) {
	d, buf, _ := newTestDispatcher(t)

	resp := d.Handle(Request{Cmd: "play_scene", ID: "red"})
	if resp.Type != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
	if buf.Get(1) != 255 {
		t.Errorf("expected channel 1 = 255, got %d", buf.Get(1))
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	resp := d.Handle(Request{Cmd: "nonsense"})
	if resp.Type != "error" {
		t.Fatalf("expected error for unknown command, got %+v", resp)
	}
}

func TestDispatchSenderList(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	resp := d.Handle(Request{Cmd: "sender_list"})
	if resp.Type != "data" {
		t.Fatalf("expected data response, got %+v", resp)
	}
}
