// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package playback

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
	"dmx-gateway/internal/universe"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, registry *show.Registry) (*Engine, *universe.Buffer) {
	t.Helper()
	buf := universe.New(nil, testLogger())
	eng := New(buf, registry, func() int { return 60 }, 25, 60, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)
	t.Cleanup(func() {
		cancel()
		eng.Shutdown()
	})
	return eng, buf
}

func TestPlaySceneNoTransition(t *testing.T) {
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{6: 255, 7: 255}},
	}, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng, buf := newTestEngine(t, reg)

	if err := eng.PlayScene("red", 0); err != nil {
		t.Fatalf("PlayScene failed: %v", err)
	}
	snap := buf.Snapshot()
	if snap[5] != 255 || snap[6] != 255 {
		t.Errorf("expected channels 6,7 = 255, got %d, %d", snap[5], snap[6])
	}
	if snap[0] != 0 {
		t.Errorf("expected untouched channel 1 to remain 0, got %d", snap[0])
	}

	st := eng.Status()
	if st.Kind != "static_scene" || st.ID != "red" {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestPlaySceneUnknownID(t *testing.T) {
	reg := show.New(nil, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng, _ := newTestEngine(t, reg)

	if err := eng.PlayScene("missing", 0); err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestTransitionInterpolates(t *testing.T) {
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{6: 255, 7: 255}},
	}, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng, buf := newTestEngine(t, reg)

	if err := eng.PlayScene("red", 1.0); err != nil {
		t.Fatalf("PlayScene failed: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	mid := buf.Snapshot()
	if mid[5] == 0 || mid[5] == 255 {
		t.Errorf("expected channel 6 between 0 and 255 mid-transition, got %d", mid[5])
	}
	time.Sleep(700 * time.Millisecond)
	snap := buf.Snapshot()
	if snap[5] != 255 || snap[6] != 255 {
		t.Errorf("expected transition complete at 255, got %d, %d", snap[5], snap[6])
	}
}

func TestSetChannelPreemptsPlayback(t *testing.T) {
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{6: 255}},
	}, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng, buf := newTestEngine(t, reg)

	if err := eng.PlayScene("red", 5.0); err != nil {
		t.Fatalf("PlayScene failed: %v", err)
	}
	if err := eng.SetChannel(6, 0); err != nil {
		t.Fatalf("SetChannel failed: %v", err)
	}
	if buf.Get(6) != 0 {
		t.Errorf("expected channel 6 = 0 after preemption, got %d", buf.Get(6))
	}
	st := eng.Status()
	if st.Kind != "idle" {
		t.Errorf("expected idle state after manual write, got %s", st.Kind)
	}
}

func TestSequenceSteppingAndLoop(t *testing.T) {
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{1: 255}},
		{ID: "green", Name: "Green", Values: map[int]uint8{2: 255}},
	}, []showtypes.Sequence{
		{ID: "seq1", Name: "Seq1", Loop: true, Steps: []showtypes.Step{
			{SceneID: "red", Duration: 100},
			{SceneID: "green", Duration: 100},
		}},
	}, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng, buf := newTestEngine(t, reg)

	if err := eng.PlaySequence("seq1"); err != nil {
		t.Fatalf("PlaySequence failed: %v", err)
	}
	if buf.Get(1) != 255 {
		t.Errorf("expected step 0 applied immediately, channel 1 = %d", buf.Get(1))
	}

	time.Sleep(150 * time.Millisecond)
	if buf.Get(2) != 255 {
		t.Errorf("expected step 1 (green) applied after advance, channel 2 = %d", buf.Get(2))
	}

	time.Sleep(150 * time.Millisecond)
	if buf.Get(1) != 255 {
		t.Errorf("expected loop back to step 0 (red), channel 1 = %d", buf.Get(1))
	}
	// Without looping the sequence would have gone idle after its last step.
	if st := eng.Status(); st.Kind != "running_sequence" {
		t.Errorf("expected looping sequence still running, got %s", st.Kind)
	}
}

func TestProgrammableSceneEvaluatesExpression(t *testing.T) {
	reg := show.New(nil, nil, []showtypes.ProgrammableScene{
		{ID: "fade", Name: "Fade", DurationMs: 10000, Expressions: map[int]string{1: "clamp_dmx(p*2.55)"}},
	}, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng, buf := newTestEngine(t, reg)

	if err := eng.PlayProgrammable("fade"); err != nil {
		t.Fatalf("PlayProgrammable failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if buf.Get(1) == 0 {
		t.Errorf("expected channel 1 to have advanced above 0, got %d", buf.Get(1))
	}
}

func TestStopClearsState(t *testing.T) {
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{1: 255}},
	}, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng, _ := newTestEngine(t, reg)

	_ = eng.PlayScene("red", 0)
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if eng.Status().Kind != "idle" {
		t.Errorf("expected idle after Stop, got %s", eng.Status().Kind)
	}
}
