// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package dispatch implements the Command Dispatcher (spec.md §4.7): a
// single typed Request/Response surface that MQTT topic handlers and
// HTTP route handlers both translate into, so every command source
// shares one path into the Playback Engine, the Universe Buffer and the
// Sender Manager, and one place that updates the Fallback Controller's
// activity timestamp. Modeled directly on the teacher's internal/api
// Handler (a Request{Cmd,...} -> Response{Type,...} switch backed by
// metrics counters), generalized from the light/group command set to
// the scene/sequence/programmable/sender/config command set.
package dispatch

import (
	"dmx-gateway/internal/apierr"
	"dmx-gateway/internal/metrics"
	"dmx-gateway/internal/playback"
	"dmx-gateway/internal/sender"
	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
	"dmx-gateway/internal/universe"
)

// Request is the unified command format every boundary (MQTT, HTTP)
// parses its input into.
type Request struct {
	Cmd               string
	Channel           int
	Value             uint8
	Channels          map[int]uint8
	ID                string
	TransitionSeconds float64
	SenderName        string
}

// Response is the unified result format.
type Response struct {
	Type  string // "ok" | "data" | "error"
	Data  interface{}
	Error string
	Kind  apierr.Kind // valid only when Type == "error"
}

// Toucher is notified of any command that changes universe state, so
// the Fallback Controller's inactivity window resets.
type Toucher interface {
	Touch()
}

// Dispatcher is the single engine-operation entry point.
type Dispatcher struct {
	engine   *playback.Engine
	buf      *universe.Buffer
	senders  *sender.Manager
	registry *show.Registry
	fallback Toucher
}

func New(engine *playback.Engine, buf *universe.Buffer, senders *sender.Manager, registry *show.Registry, fallback Toucher) *Dispatcher {
	return &Dispatcher{engine: engine, buf: buf, senders: senders, registry: registry, fallback: fallback}
}

// Handle routes req to exactly one engine/sender/registry operation and
// returns a typed Response. It never panics on malformed input; malformed
// commands become an InvalidInput error response.
func (d *Dispatcher) Handle(req Request) Response {
	metrics.CommandsTotal.WithLabelValues(req.Cmd).Inc()

	resp := d.dispatch(req)
	if resp.Error != "" {
		metrics.ErrorsTotal.WithLabelValues(errKindLabel(resp)).Inc()
	}
	return resp
}

func errKindLabel(resp Response) string {
	switch resp.Kind {
	case apierr.InvalidInput:
		return "invalid_input"
	case apierr.NotFound:
		return "not_found"
	case apierr.Conflict:
		return "conflict"
	case apierr.Transient:
		return "transient"
	case apierr.Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func (d *Dispatcher) dispatch(req Request) Response {
	switch req.Cmd {
	case "set_channel":
		if req.Channel < 1 || req.Channel > universe.Channels {
			return errResp(apierr.New(apierr.InvalidInput, "channel out of range 1-512"))
		}
		if err := d.engine.SetChannel(req.Channel, req.Value); err != nil {
			return errResp(err)
		}
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "set_channels":
		for ch := range req.Channels {
			if ch < 1 || ch > universe.Channels {
				return errResp(apierr.New(apierr.InvalidInput, "channel out of range 1-512"))
			}
		}
		if err := d.engine.Stop(); err != nil {
			return errResp(err)
		}
		d.buf.WriteMany(req.Channels)
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "play_scene":
		if err := d.engine.PlayScene(req.ID, req.TransitionSeconds); err != nil {
			return errResp(err)
		}
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "play_sequence":
		if err := d.engine.PlaySequence(req.ID); err != nil {
			return errResp(err)
		}
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "play_programmable":
		if err := d.engine.PlayProgrammable(req.ID); err != nil {
			return errResp(err)
		}
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "stop":
		if err := d.engine.Stop(); err != nil {
			return errResp(err)
		}
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "blackout":
		if err := d.senders.Blackout(""); err != nil {
			return errResp(err)
		}
		_ = d.engine.Stop()
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "playback_status":
		return Response{Type: "data", Data: d.engine.Status()}

	case "sender_status":
		return Response{Type: "data", Data: d.senders.Status()}

	case "sender_list":
		return Response{Type: "data", Data: d.senders.Names()}

	case "sender_blackout":
		if err := d.senders.Blackout(req.SenderName); err != nil {
			return errResp(err)
		}
		d.fallback.Touch()
		return Response{Type: "ok"}

	case "sender_remove":
		if err := d.senders.Remove(req.SenderName); err != nil {
			return errResp(err)
		}
		return Response{Type: "ok"}

	case "scenes_list":
		return Response{Type: "data", Data: d.registry.Scenes()}

	case "sequences_list":
		return Response{Type: "data", Data: d.registry.Sequences()}

	case "programmable_list":
		return Response{Type: "data", Data: d.registry.ProgrammableScenes()}

	case "fallback_get":
		return Response{Type: "data", Data: d.registry.Fallback()}

	case "autostart_get":
		return Response{Type: "data", Data: d.registry.Autostart()}

	default:
		return errResp(apierr.New(apierr.InvalidInput, "unknown command: "+req.Cmd))
	}
}

// PutScene, PutSequence, PutProgrammable, DeleteScene, etc. are exposed
// directly for HTTP CRUD handlers (they operate on the Registry, not the
// Engine, and do not touch the Fallback Controller since they edit show
// content rather than play it).

func (d *Dispatcher) PutScene(s showtypes.Scene) error           { return d.registry.PutScene(s) }
func (d *Dispatcher) DeleteScene(id string) error                { return d.registry.DeleteScene(id) }
func (d *Dispatcher) PutSequence(s showtypes.Sequence) error     { return d.registry.PutSequence(s) }
func (d *Dispatcher) DeleteSequence(id string) error             { return d.registry.DeleteSequence(id) }
func (d *Dispatcher) PutProgrammable(p showtypes.ProgrammableScene) ([]int, error) {
	return d.registry.PutProgrammable(p)
}
func (d *Dispatcher) DeleteProgrammable(id string) error { return d.registry.DeleteProgrammable(id) }
func (d *Dispatcher) SetFallback(fb showtypes.FallbackConfig) error {
	return d.registry.SetFallback(fb)
}
func (d *Dispatcher) SetAutostart(a showtypes.AutostartConfig) error {
	return d.registry.SetAutostart(a)
}

func errResp(err error) Response {
	return Response{Type: "error", Error: err.Error(), Kind: apierr.KindOf(err)}
}
