// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dmx-gateway/internal/universe"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg back to path, used by the "/api/config" persist path
// (spec.md §6). The MQTT "dmx/config/save" handler only logs the request
// and does not call Save.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// applyDefaults sets default values for missing config
func (c *Config) applyDefaults() {
	if c.Server.HTTP == "" {
		c.Server.HTTP = ":8080"
	}
	if c.Engine.TickMinHz == 0 {
		c.Engine.TickMinHz = 25
	}
	if c.Engine.TickMaxHz == 0 {
		c.Engine.TickMaxHz = 60
	}
	if c.Retransmit.IntervalSeconds == 0 {
		c.Retransmit.IntervalSeconds = 5
	}
	if c.MQTT != nil && c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "dmx"
	}
	for i := range c.Senders {
		if c.Senders[i].FPS == 0 {
			c.Senders[i].FPS = 40
		}
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Engine.TickMinHz < 1 {
		return fmt.Errorf("engine.tick_min_hz must be >= 1")
	}
	if c.Engine.TickMaxHz < c.Engine.TickMinHz {
		return fmt.Errorf("engine.tick_max_hz must be >= tick_min_hz")
	}
	if c.Engine.TickMaxHz > 60 {
		return fmt.Errorf("engine.tick_max_hz must be <= 60")
	}

	if len(c.Senders) == 0 {
		return fmt.Errorf("no senders defined")
	}
	seenNames := make(map[string]bool, len(c.Senders))
	for _, s := range c.Senders {
		if s.Name == "" {
			return fmt.Errorf("sender missing name")
		}
		if seenNames[s.Name] {
			return fmt.Errorf("duplicate sender name %q", s.Name)
		}
		seenNames[s.Name] = true

		switch s.Protocol {
		case "artnet", "e131":
		default:
			return fmt.Errorf("sender %q: unknown protocol %q (want artnet or e131)", s.Name, s.Protocol)
		}
		if s.Target == "" {
			return fmt.Errorf("sender %q: target required", s.Name)
		}
		if s.Universe < 0 {
			return fmt.Errorf("sender %q: universe must be >= 0", s.Name)
		}
		if s.FPS < 1 || s.FPS > 60 {
			return fmt.Errorf("sender %q: fps %d out of range (1-60)", s.Name, s.FPS)
		}
	}

	if c.Follower.Enabled {
		for leader, followers := range c.Follower.Map {
			if leader < 1 || leader > universe.Channels {
				return fmt.Errorf("follower map: leader channel %d out of range (1-%d)", leader, universe.Channels)
			}
			for _, f := range followers {
				if f < 1 || f > universe.Channels {
					return fmt.Errorf("follower map: follower channel %d out of range (1-%d)", f, universe.Channels)
				}
			}
		}
	}

	if c.Retransmit.IntervalSeconds <= 0 {
		return fmt.Errorf("retransmit.interval_seconds must be > 0")
	}

	if c.Schedule != nil {
		for _, ev := range c.Schedule.Events {
			if ev.Time == "" {
				return fmt.Errorf("schedule event missing time")
			}
		}
	}

	sceneIDs := make(map[string]bool, len(c.Show.Scenes))
	for _, sc := range c.Show.Scenes {
		if sc.ID == "" {
			return fmt.Errorf("scene missing id")
		}
		if sceneIDs[sc.ID] {
			return fmt.Errorf("duplicate scene id %q", sc.ID)
		}
		sceneIDs[sc.ID] = true
		for ch := range sc.Values {
			if ch < 1 || ch > universe.Channels {
				return fmt.Errorf("scene %q: channel %d out of range (1-%d)", sc.ID, ch, universe.Channels)
			}
		}
	}

	sequenceIDs := make(map[string]bool, len(c.Show.Sequences))
	for _, sq := range c.Show.Sequences {
		if sq.ID == "" {
			return fmt.Errorf("sequence missing id")
		}
		if sequenceIDs[sq.ID] {
			return fmt.Errorf("duplicate sequence id %q", sq.ID)
		}
		sequenceIDs[sq.ID] = true
		for _, step := range sq.Steps {
			if step.SceneID != "" && !sceneIDs[step.SceneID] {
				return fmt.Errorf("sequence %q: references unknown scene %q", sq.ID, step.SceneID)
			}
		}
	}

	programmableIDs := make(map[string]bool, len(c.Show.Programmable))
	for _, ps := range c.Show.Programmable {
		if ps.ID == "" {
			return fmt.Errorf("programmable scene missing id")
		}
		if programmableIDs[ps.ID] {
			return fmt.Errorf("duplicate programmable scene id %q", ps.ID)
		}
		programmableIDs[ps.ID] = true
		for ch := range ps.Expressions {
			if ch < 1 || ch > universe.Channels {
				return fmt.Errorf("programmable scene %q: channel %d out of range (1-%d)", ps.ID, ch, universe.Channels)
			}
		}
	}

	if a := c.Show.Autostart; a.Scene != "" && a.Sequence != "" || a.Scene != "" && a.Programmable != "" || a.Sequence != "" && a.Programmable != "" {
		return fmt.Errorf("autostart: only one of scene/sequence/programmable may be set")
	}
	if c.Show.Autostart.Scene != "" && !sceneIDs[c.Show.Autostart.Scene] {
		return fmt.Errorf("autostart: unknown scene %q", c.Show.Autostart.Scene)
	}
	if c.Show.Autostart.Sequence != "" && !sequenceIDs[c.Show.Autostart.Sequence] {
		return fmt.Errorf("autostart: unknown sequence %q", c.Show.Autostart.Sequence)
	}
	if c.Show.Autostart.Programmable != "" && !programmableIDs[c.Show.Autostart.Programmable] {
		return fmt.Errorf("autostart: unknown programmable scene %q", c.Show.Autostart.Programmable)
	}

	if fb := c.Show.Fallback.Scene; fb.Enabled && !sceneIDs[fb.TargetID] {
		return fmt.Errorf("fallback: unknown scene %q", fb.TargetID)
	}
	if fb := c.Show.Fallback.Sequence; fb.Enabled && !sequenceIDs[fb.TargetID] {
		return fmt.Errorf("fallback: unknown sequence %q", fb.TargetID)
	}

	return nil
}

// SenderByName looks up a sender's declared config by name.
func (c *Config) SenderByName(name string) (SenderConfig, bool) {
	for _, s := range c.Senders {
		if s.Name == name {
			return s, true
		}
	}
	return SenderConfig{}, false
}
