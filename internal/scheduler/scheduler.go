// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package scheduler fires time-of-day playback events (a supplemental
// feature beyond spec.md's core scope, see SPEC_FULL.md §7) through the
// same Command Dispatcher every other command source uses. Kept close
// to the teacher's parseTime/sort-by-time/one-second-ticker shape;
// execute() now calls dispatch.Dispatcher instead of setting lights
// directly.
package scheduler

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"dmx-gateway/internal/config"
	"dmx-gateway/internal/dispatch"
)

// Event is a parsed schedule event with time components.
type Event struct {
	Hour             int
	Minute           int
	Second           int
	PlayScene        string
	PlaySequence     string
	PlayProgrammable string
	Blackout         bool
}

// Scheduler runs scheduled playback events.
type Scheduler struct {
	events     []Event
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	location   *time.Location

	mu       sync.RWMutex
	lastRun  string // "HH:MM:SS" of last executed event
	stopChan chan struct{}
	running  bool
}

// New creates a new scheduler from the configured events.
func New(cfg *config.ScheduleConfig, dispatcher *dispatch.Dispatcher, logger *slog.Logger) (*Scheduler, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, err
		}
	}

	events := make([]Event, 0, len(cfg.Events))
	for _, e := range cfg.Events {
		parsed, err := parseTime(e.Time)
		if err != nil {
			logger.Warn("invalid schedule time", "time", e.Time, "error", err)
			continue
		}
		parsed.PlayScene = e.PlayScene
		parsed.PlaySequence = e.PlaySequence
		parsed.PlayProgrammable = e.PlayProgrammable
		parsed.Blackout = e.Blackout
		events = append(events, parsed)
	}

	sort.Slice(events, func(i, j int) bool {
		return timeToSeconds(events[i]) < timeToSeconds(events[j])
	})

	return &Scheduler{
		events:     events,
		dispatcher: dispatcher,
		logger:     logger,
		location:   loc,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start begins the scheduler loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.loop()
	s.logger.Info("scheduler started", "events", len(s.events), "timezone", s.location.String())
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.check()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) check() {
	now := time.Now().In(s.location)
	nowStr := now.Format("15:04:05")

	s.mu.Lock()
	if s.lastRun == nowStr {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	h, m, sec := now.Hour(), now.Minute(), now.Second()

	for _, e := range s.events {
		if e.Hour == h && e.Minute == m && e.Second == sec {
			s.execute(e)
			s.mu.Lock()
			s.lastRun = nowStr
			s.mu.Unlock()
			return
		}
	}
}

func (s *Scheduler) execute(e Event) {
	s.logger.Info("executing scheduled event", "time", formatTime(e))

	var resp dispatch.Response
	switch {
	case e.Blackout:
		resp = s.dispatcher.Handle(dispatch.Request{Cmd: "blackout"})
	case e.PlayScene != "":
		resp = s.dispatcher.Handle(dispatch.Request{Cmd: "play_scene", ID: e.PlayScene})
	case e.PlaySequence != "":
		resp = s.dispatcher.Handle(dispatch.Request{Cmd: "play_sequence", ID: e.PlaySequence})
	case e.PlayProgrammable != "":
		resp = s.dispatcher.Handle(dispatch.Request{Cmd: "play_programmable", ID: e.PlayProgrammable})
	default:
		return
	}

	if resp.Type == "error" {
		s.logger.Error("scheduled event failed", "time", formatTime(e), "error", resp.Error)
	}
}

// NextEvent returns the next scheduled event.
func (s *Scheduler) NextEvent() *NextEventInfo {
	if len(s.events) == 0 {
		return nil
	}

	now := time.Now().In(s.location)
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()

	for _, e := range s.events {
		eSec := timeToSeconds(e)
		if eSec > nowSec {
			return &NextEventInfo{
				Time:     formatTime(e),
				In:       time.Duration(eSec-nowSec) * time.Second,
				Blackout: e.Blackout,
				Target:   targetOf(e),
			}
		}
	}

	e := s.events[0]
	eSec := timeToSeconds(e)
	secsUntil := (24*3600 - nowSec) + eSec
	return &NextEventInfo{
		Time:     formatTime(e),
		In:       time.Duration(secsUntil) * time.Second,
		Blackout: e.Blackout,
		Target:   targetOf(e),
	}
}

// Events returns all scheduled events.
func (s *Scheduler) Events() []EventInfo {
	result := make([]EventInfo, len(s.events))
	for i, e := range s.events {
		result[i] = EventInfo{
			Time:     formatTime(e),
			Blackout: e.Blackout,
			Target:   targetOf(e),
		}
	}
	return result
}

// NextEventInfo describes the next scheduled event.
type NextEventInfo struct {
	Time     string        `json:"time"`
	In       time.Duration `json:"in"`
	InStr    string        `json:"in_str"`
	Blackout bool          `json:"blackout"`
	Target   string        `json:"target,omitempty"`
}

// EventInfo describes a scheduled event.
type EventInfo struct {
	Time     string `json:"time"`
	Blackout bool   `json:"blackout"`
	Target   string `json:"target,omitempty"`
}

func targetOf(e Event) string {
	switch {
	case e.PlayScene != "":
		return "scene:" + e.PlayScene
	case e.PlaySequence != "":
		return "sequence:" + e.PlaySequence
	case e.PlayProgrammable != "":
		return "programmable:" + e.PlayProgrammable
	default:
		return ""
	}
}

func parseTime(s string) (Event, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return Event{}, err
		}
	}
	return Event{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}, nil
}

func formatTime(e Event) string {
	return time.Date(0, 1, 1, e.Hour, e.Minute, e.Second, 0, time.UTC).Format("15:04:05")
}

func timeToSeconds(e Event) int {
	return e.Hour*3600 + e.Minute*60 + e.Second
}
