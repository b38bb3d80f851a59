// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package universe

import "testing"

func TestWriteAndSnapshot(t *testing.T) {
	b := New(nil, nil)
	b.Write(6, 255)
	b.Write(7, 128)

	snap := b.Snapshot()
	if snap[5] != 255 {
		t.Errorf("expected channel 6 = 255, got %d", snap[5])
	}
	if snap[6] != 128 {
		t.Errorf("expected channel 7 = 128, got %d", snap[6])
	}
	if snap[0] != 0 {
		t.Errorf("expected channel 1 = 0, got %d", snap[0])
	}
}

func TestWriteOutOfRangeIgnored(t *testing.T) {
	b := New(nil, nil)
	b.Write(0, 10)
	b.Write(513, 10)
	snap := b.Snapshot()
	for _, v := range snap {
		if v != 0 {
			t.Fatalf("expected no channel set, got %v", snap)
		}
	}
}

func TestFollowerMirroring(t *testing.T) {
	fm := NewFollowerMap(true, map[int][]int{1: {2, 3}})
	b := New(fm, nil)

	b.Write(1, 200)
	snap := b.Snapshot()
	if snap[0] != 200 || snap[1] != 200 || snap[2] != 200 {
		t.Fatalf("expected channels 1-3 all 200, got %v", snap[:3])
	}
}

func TestFollowerSelfReferenceFiltered(t *testing.T) {
	fm := NewFollowerMap(true, map[int][]int{5: {5, 6}})
	if len(fm.Leaders[5]) != 1 || fm.Leaders[5][0] != 6 {
		t.Fatalf("expected self-reference filtered, got %v", fm.Leaders[5])
	}
}

func TestFollowerDisabledNoMirror(t *testing.T) {
	fm := NewFollowerMap(false, map[int][]int{1: {2}})
	b := New(fm, nil)
	b.Write(1, 50)
	snap := b.Snapshot()
	if snap[1] != 0 {
		t.Errorf("expected channel 2 unaffected when followers disabled, got %d", snap[1])
	}
}

func TestWriteManyAtomicBatch(t *testing.T) {
	b := New(nil, nil)
	b.WriteMany(map[int]uint8{1: 10, 2: 20, 3: 30})
	snap := b.Snapshot()
	if snap[0] != 10 || snap[1] != 20 || snap[2] != 30 {
		t.Fatalf("batch write mismatch: %v", snap[:3])
	}
}

func TestBlackoutIdempotent(t *testing.T) {
	b := New(nil, nil)
	b.Write(1, 255)
	b.Blackout()
	first := b.Snapshot()
	b.Blackout()
	second := b.Snapshot()
	if first != second {
		t.Fatalf("blackout not idempotent")
	}
	for _, v := range second {
		if v != 0 {
			t.Fatalf("expected all zero after blackout, got %v", second)
		}
	}
}
