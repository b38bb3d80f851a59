// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package showtypes holds the show data model named in spec.md §3:
// Scene, Sequence, ProgrammableScene, FollowerMap config, Autostart and
// Fallback configuration. These are plain, YAML/JSON-tagged value
// types; behaviour (playback, evaluation) lives in internal/playback
// and internal/expr.
package showtypes

import "dmx-gateway/internal/expr"

// Scene is a named, immutable-by-value channel vector. A channel absent
// from Values means "do not change" (carry forward) per spec.md §3.
type Scene struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Values      map[int]uint8  `yaml:"values" json:"values"` // channel -> value, absent = carry forward
	FadeMs      int            `yaml:"fade_ms,omitempty" json:"fade_ms,omitempty"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
}

// Step is one element of a Sequence: either a scene reference or an
// inline channel map, with its own duration and optional fade.
type Step struct {
	SceneID  string        `yaml:"scene_id,omitempty" json:"scene_id,omitempty"`
	Inline   map[int]uint8 `yaml:"inline,omitempty" json:"inline,omitempty"`
	Duration int           `yaml:"duration_ms" json:"duration_ms"`
	FadeMs   int           `yaml:"fade_ms,omitempty" json:"fade_ms,omitempty"`
}

// Sequence is a named ordered list of Steps.
type Sequence struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
	Loop  bool   `yaml:"loop" json:"loop"`
}

// ProgrammableScene is a named scene whose channel values are produced
// by per-channel arithmetic expressions over t (seconds) and p (percent).
type ProgrammableScene struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	DurationMs  int               `yaml:"duration_ms" json:"duration_ms"`
	Loop        bool              `yaml:"loop" json:"loop"`
	Expressions map[int]string    `yaml:"expressions" json:"expressions"` // channel -> expression text

	// compiled is populated by Compile(); nil until then.
	compiled map[int]expr.Expr
}

// Compile parses every channel expression once and caches the result.
// Returns the channels whose expressions failed to parse, once per
// compile (at registry load or PutProgrammable), not on each scene
// start; those channels evaluate to 0 every tick.
func (ps *ProgrammableScene) Compile() (failed []int) {
	ps.compiled = make(map[int]expr.Expr, len(ps.Expressions))
	for ch, text := range ps.Expressions {
		e, err := expr.Compile(text)
		if err != nil {
			failed = append(failed, ch)
			continue
		}
		ps.compiled[ch] = e
	}
	return failed
}

// Compiled returns the channel->Expr map built by Compile. Channels
// whose expression failed to parse are simply absent; callers should
// treat an absent channel as "emit 0".
func (ps *ProgrammableScene) Compiled() map[int]expr.Expr {
	return ps.compiled
}

// AutostartConfig names at most one show item to launch at boot.
type AutostartConfig struct {
	Scene         string `yaml:"scene,omitempty" json:"scene,omitempty"`
	Sequence      string `yaml:"sequence,omitempty" json:"sequence,omitempty"`
	Programmable  string `yaml:"programmable,omitempty" json:"programmable,omitempty"`
}

// FallbackSlot is one of the two independent fallback slots.
type FallbackSlot struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	TargetID    string `yaml:"target_id" json:"target_id"`
	DelaySeconds float64 `yaml:"delay_seconds" json:"delay_seconds"`
}

// FallbackConfig holds the scene- and sequence-fallback slots.
type FallbackConfig struct {
	Scene    FallbackSlot `yaml:"scene" json:"scene"`
	Sequence FallbackSlot `yaml:"sequence" json:"sequence"`
}
