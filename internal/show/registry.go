// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package show holds the mutable, runtime-editable show content: scenes,
// sequences, programmable scenes, fallback and autostart configuration.
// It is the CRUD-able counterpart to the read-only show section loaded
// from YAML at startup (internal/config.ShowConfig); HTTP editor routes
// mutate a Registry. There is no export back to a config.ShowConfig, so
// edits made here are held in memory only.
package show

import (
	"sync"

	"dmx-gateway/internal/apierr"
	"dmx-gateway/internal/showtypes"
)

// Registry is the live, lockable store of show content.
type Registry struct {
	mu sync.RWMutex

	scenes       map[string]showtypes.Scene
	sequences    map[string]showtypes.Sequence
	programmable map[string]*showtypes.ProgrammableScene

	fallback  showtypes.FallbackConfig
	autostart showtypes.AutostartConfig
}

// New builds a Registry from a loaded ShowConfig, compiling every
// programmable scene's expressions up front (spec.md §3: "expressions
// are parsed once and cached as a compiled form").
func New(scenes []showtypes.Scene, sequences []showtypes.Sequence, programmable []showtypes.ProgrammableScene, fallback showtypes.FallbackConfig, autostart showtypes.AutostartConfig) *Registry {
	r := &Registry{
		scenes:       make(map[string]showtypes.Scene, len(scenes)),
		sequences:    make(map[string]showtypes.Sequence, len(sequences)),
		programmable: make(map[string]*showtypes.ProgrammableScene, len(programmable)),
		fallback:     fallback,
		autostart:    autostart,
	}
	for _, s := range scenes {
		r.scenes[s.ID] = s
	}
	for _, sq := range sequences {
		r.sequences[sq.ID] = sq
	}
	for i := range programmable {
		ps := programmable[i]
		ps.Compile()
		r.programmable[ps.ID] = &ps
	}
	return r
}

func (r *Registry) Scene(id string) (showtypes.Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.scenes[id]
	return sc, ok
}

func (r *Registry) Sequence(id string) (showtypes.Sequence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sq, ok := r.sequences[id]
	return sq, ok
}

// Programmable returns the compiled programmable scene. The returned
// pointer's Compiled() map must not be mutated by the caller.
func (r *Registry) Programmable(id string) (*showtypes.ProgrammableScene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ps, ok := r.programmable[id]
	return ps, ok
}

func (r *Registry) Scenes() []showtypes.Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]showtypes.Scene, 0, len(r.scenes))
	for _, s := range r.scenes {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Sequences() []showtypes.Sequence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]showtypes.Sequence, 0, len(r.sequences))
	for _, s := range r.sequences {
		out = append(out, s)
	}
	return out
}

func (r *Registry) ProgrammableScenes() []showtypes.ProgrammableScene {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]showtypes.ProgrammableScene, 0, len(r.programmable))
	for _, s := range r.programmable {
		out = append(out, *s)
	}
	return out
}

// PutScene creates or replaces a scene by id.
func (r *Registry) PutScene(s showtypes.Scene) error {
	if s.ID == "" {
		return apierr.New(apierr.InvalidInput, "scene id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[s.ID] = s
	return nil
}

// DeleteScene removes a scene, rejecting the deletion if a sequence or
// the fallback configuration still references it.
func (r *Registry) DeleteScene(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenes[id]; !ok {
		return apierr.New(apierr.NotFound, "scene not found: "+id)
	}
	for _, sq := range r.sequences {
		for _, step := range sq.Steps {
			if step.SceneID == id {
				return apierr.New(apierr.Conflict, "scene "+id+" is referenced by sequence "+sq.ID)
			}
		}
	}
	if r.fallback.Scene.TargetID == id {
		return apierr.New(apierr.Conflict, "scene "+id+" is referenced by scene-fallback")
	}
	delete(r.scenes, id)
	return nil
}

// PutSequence creates or replaces a sequence, validating that every
// step's scene reference exists.
func (r *Registry) PutSequence(sq showtypes.Sequence) error {
	if sq.ID == "" {
		return apierr.New(apierr.InvalidInput, "sequence id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, step := range sq.Steps {
		if step.SceneID != "" {
			if _, ok := r.scenes[step.SceneID]; !ok {
				return apierr.New(apierr.InvalidInput, "sequence references unknown scene "+step.SceneID)
			}
		}
	}
	r.sequences[sq.ID] = sq
	return nil
}

func (r *Registry) DeleteSequence(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sequences[id]; !ok {
		return apierr.New(apierr.NotFound, "sequence not found: "+id)
	}
	if r.fallback.Sequence.TargetID == id {
		return apierr.New(apierr.Conflict, "sequence "+id+" is referenced by sequence-fallback")
	}
	delete(r.sequences, id)
	return nil
}

// PutProgrammable creates or replaces a programmable scene, compiling
// its expressions. Channels whose expression fails to compile are
// reported but do not block the write (spec.md §4.2: invalid expression
// evaluates to 0, it does not reject the scene).
func (r *Registry) PutProgrammable(ps showtypes.ProgrammableScene) (failed []int, err error) {
	if ps.ID == "" {
		return nil, apierr.New(apierr.InvalidInput, "programmable scene id required")
	}
	failed = ps.Compile()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programmable[ps.ID] = &ps
	return failed, nil
}

func (r *Registry) DeleteProgrammable(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programmable[id]; !ok {
		return apierr.New(apierr.NotFound, "programmable scene not found: "+id)
	}
	delete(r.programmable, id)
	return nil
}

func (r *Registry) Fallback() showtypes.FallbackConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

func (r *Registry) SetFallback(fb showtypes.FallbackConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fb.Scene.Enabled {
		if _, ok := r.scenes[fb.Scene.TargetID]; !ok {
			return apierr.New(apierr.InvalidInput, "fallback: unknown scene "+fb.Scene.TargetID)
		}
	}
	if fb.Sequence.Enabled {
		if _, ok := r.sequences[fb.Sequence.TargetID]; !ok {
			return apierr.New(apierr.InvalidInput, "fallback: unknown sequence "+fb.Sequence.TargetID)
		}
	}
	r.fallback = fb
	return nil
}

func (r *Registry) Autostart() showtypes.AutostartConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.autostart
}

func (r *Registry) SetAutostart(a showtypes.AutostartConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autostart = a
	return nil
}
