// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package universe holds the single authoritative DMX512 channel buffer
// and the follower-channel mirror that rides on every write.
package universe

import (
	"log/slog"
	"sync"

	"dmx-gateway/internal/metrics"
)

// Channels is the fixed size of a DMX512 universe.
const Channels = 512

// FollowerMap maps a leader channel (1-based) to the set of channels
// that mirror its value. The relation is one level deep: followers are
// never themselves mirrored, which guarantees termination.
type FollowerMap struct {
	Enabled  bool
	Leaders  map[int][]int // leader channel -> follower channels
}

// NewFollowerMap builds a FollowerMap from a raw leader->followers map,
// filtering out self-references at construction time per spec.
func NewFollowerMap(enabled bool, raw map[int][]int) *FollowerMap {
	fm := &FollowerMap{Enabled: enabled, Leaders: make(map[int][]int, len(raw))}
	for leader, followers := range raw {
		filtered := make([]int, 0, len(followers))
		for _, f := range followers {
			if f != leader {
				filtered = append(filtered, f)
			}
		}
		if len(filtered) > 0 {
			fm.Leaders[leader] = filtered
		}
	}
	return fm
}

// Buffer is the single authoritative universe. All writes are mutually
// exclusive; Snapshot returns a value copy taken under a read lock, so
// it waits for an in-progress write to finish and is not wait-free.
type Buffer struct {
	mu       sync.RWMutex
	channels [Channels]uint8
	followers *FollowerMap
	logger   *slog.Logger
}

// New creates a Buffer with the given follower map (nil means no mirroring).
func New(followers *FollowerMap, logger *slog.Logger) *Buffer {
	if followers == nil {
		followers = &FollowerMap{Leaders: map[int][]int{}}
	}
	return &Buffer{followers: followers, logger: logger}
}

// SetFollowers swaps the follower map at runtime (e.g. on config reload).
func (b *Buffer) SetFollowers(followers *FollowerMap) {
	if followers == nil {
		followers = &FollowerMap{Leaders: map[int][]int{}}
	}
	b.mu.Lock()
	b.followers = followers
	b.mu.Unlock()
}

// Write sets one channel (1-512) and mirrors it to any followers.
func (b *Buffer) Write(channel int, value uint8) {
	if channel < 1 || channel > Channels {
		return
	}
	b.mu.Lock()
	b.channels[channel-1] = value
	b.mirrorLocked(channel, value)
	b.mu.Unlock()
	metrics.SetChannelValue(channel, value)
}

// WriteMany applies a batch atomically: every channel in the map becomes
// visible together, including follower mirroring, before any reader can
// observe a partial result.
func (b *Buffer) WriteMany(values map[int]uint8) {
	b.mu.Lock()
	for channel, value := range values {
		if channel < 1 || channel > Channels {
			continue
		}
		b.channels[channel-1] = value
		b.mirrorLocked(channel, value)
	}
	b.mu.Unlock()
	for channel, value := range values {
		if channel >= 1 && channel <= Channels {
			metrics.SetChannelValue(channel, value)
		}
	}
}

// mirrorLocked applies follower mirroring for a single write. Caller
// must hold mu.
func (b *Buffer) mirrorLocked(channel int, value uint8) {
	if b.followers == nil || !b.followers.Enabled {
		return
	}
	for _, f := range b.followers.Leaders[channel] {
		if f >= 1 && f <= Channels {
			b.channels[f-1] = value
		}
	}
}

// Snapshot returns a value copy of the current universe. Safe to call
// concurrently with writers; never observes a half-applied batch.
func (b *Buffer) Snapshot() [Channels]uint8 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.channels
}

// Get returns a single channel's current value.
func (b *Buffer) Get(channel int) uint8 {
	if channel < 1 || channel > Channels {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.channels[channel-1]
}

// Blackout zeros all 512 channels. Two consecutive calls are idempotent.
func (b *Buffer) Blackout() {
	b.mu.Lock()
	b.channels = [Channels]uint8{}
	b.mu.Unlock()
	for ch := 1; ch <= Channels; ch++ {
		metrics.SetChannelValue(ch, 0)
	}
}
