// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package fallback

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
)

type fakePlayer struct {
	mu          sync.Mutex
	scenesPlayed []string
	seqsPlayed   []string
}

func (f *fakePlayer) PlayScene(id string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenesPlayed = append(f.scenesPlayed, id)
	return nil
}

func (f *fakePlayer) PlaySequence(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seqsPlayed = append(f.seqsPlayed, id)
	return nil
}

func (f *fakePlayer) scenes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scenesPlayed...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallbackFiresAfterDelay(t *testing.T) {
	reg := show.New([]showtypes.Scene{{ID: "blackout", Name: "Blackout"}}, nil, nil,
		showtypes.FallbackConfig{Scene: showtypes.FallbackSlot{Enabled: true, TargetID: "blackout", DelaySeconds: 0.05}},
		showtypes.AutostartConfig{})

	player := &fakePlayer{}
	ctrl := New(player, reg, testLogger())
	ctrl.Start(10 * time.Millisecond)
	defer ctrl.Stop()

	time.Sleep(150 * time.Millisecond)
	scenes := player.scenes()
	if len(scenes) == 0 || scenes[0] != "blackout" {
		t.Fatalf("expected fallback to fire blackout scene, got %v", scenes)
	}
}

func TestFallbackTouchReArms(t *testing.T) {
	reg := show.New([]showtypes.Scene{{ID: "blackout", Name: "Blackout"}}, nil, nil,
		showtypes.FallbackConfig{Scene: showtypes.FallbackSlot{Enabled: true, TargetID: "blackout", DelaySeconds: 0.05}},
		showtypes.AutostartConfig{})

	player := &fakePlayer{}
	ctrl := New(player, reg, testLogger())
	ctrl.Start(10 * time.Millisecond)
	defer ctrl.Stop()

	// Keep touching to prevent firing.
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		ctrl.Touch()
	}
	if len(player.scenes()) != 0 {
		t.Errorf("expected no fallback fire while activity continues, got %v", player.scenes())
	}
}

func TestFallbackSceneWinsTie(t *testing.T) {
	reg := show.New(
		[]showtypes.Scene{{ID: "blackout", Name: "Blackout"}},
		[]showtypes.Sequence{{ID: "seq1", Name: "Seq1", Steps: []showtypes.Step{{Inline: map[int]uint8{1: 1}, Duration: 1000}}}},
		nil,
		showtypes.FallbackConfig{
			Scene:    showtypes.FallbackSlot{Enabled: true, TargetID: "blackout", DelaySeconds: 0.03},
			Sequence: showtypes.FallbackSlot{Enabled: true, TargetID: "seq1", DelaySeconds: 0.03},
		},
		showtypes.AutostartConfig{})

	player := &fakePlayer{}
	ctrl := New(player, reg, testLogger())
	ctrl.Start(5 * time.Millisecond)
	defer ctrl.Stop()

	time.Sleep(100 * time.Millisecond)
	if len(player.scenes()) == 0 {
		t.Fatal("expected scene-fallback to win the simultaneous deadline")
	}
	player.mu.Lock()
	seqCount := len(player.seqsPlayed)
	player.mu.Unlock()
	if seqCount != 0 {
		t.Errorf("expected sequence-fallback not to fire when scene-fallback wins, got %d sequence plays", seqCount)
	}
}
