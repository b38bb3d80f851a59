// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package config

import "dmx-gateway/internal/showtypes"

// Config is the root configuration structure: settings (server, engine,
// senders, mqtt, modbus, schedule, follower map, retransmit) plus the
// show (scenes, sequences, programmable scenes, fallback, autostart).
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Engine     EngineConfig    `yaml:"engine"`
	Senders    []SenderConfig  `yaml:"senders"`
	Modbus     *ModbusConfig   `yaml:"modbus,omitempty"`
	MQTT       *MQTTConfig     `yaml:"mqtt,omitempty"`
	Schedule   *ScheduleConfig `yaml:"schedule,omitempty"`
	Follower   FollowerConfig  `yaml:"followers"`
	Retransmit RetransmitConfig `yaml:"retransmit"`
	Show       ShowConfig      `yaml:"show"`
}

// ServerConfig defines the HTTP listen address.
type ServerConfig struct {
	HTTP string `yaml:"http"`
}

// EngineConfig bounds the Playback Engine's tick rate (spec.md §4.2:
// "minimum 25 Hz, maximum 60 Hz (configurable)").
type EngineConfig struct {
	TickMinHz int `yaml:"tick_min_hz"`
	TickMaxHz int `yaml:"tick_max_hz"`
}

// SenderConfig describes one DMX sender (spec.md §3 SenderDescriptor).
type SenderConfig struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"` // "artnet" | "e131"
	Target   string `yaml:"target"`   // IPv4 unicast/broadcast, or multicast group
	Universe int    `yaml:"universe"`
	FPS      int    `yaml:"fps"`
	Port     int    `yaml:"port,omitempty"` // 0 = protocol default
}

// ModbusConfig defines the Modbus TCP admin surface. Presence enables it.
type ModbusConfig struct {
	Port string `yaml:"port"` // ":502" or ":5020"
}

// MQTTConfig defines MQTT client settings. Presence enables the client.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`       // tcp://host:1883
	ClientID    string `yaml:"client_id"`    // optional
	Username    string `yaml:"username"`     // optional
	Password    string `yaml:"password"`     // optional
	TopicPrefix string `yaml:"topic_prefix"` // defaults to "dmx"
}

// ScheduleConfig defines time-of-day events (supplemental feature, see
// SPEC_FULL.md §7). Events route through the same Dispatcher path as
// every other command source.
type ScheduleConfig struct {
	Timezone string          `yaml:"timezone"` // e.g. "Europe/Paris", defaults to local
	Events   []ScheduleEvent `yaml:"events"`
}

// ScheduleEvent fires one of a scene/sequence/programmable play, or a
// blackout, at a fixed time of day.
type ScheduleEvent struct {
	Time             string `yaml:"time"` // "HH:MM:SS"
	PlayScene        string `yaml:"play_scene,omitempty"`
	PlaySequence     string `yaml:"play_sequence,omitempty"`
	PlayProgrammable string `yaml:"play_programmable,omitempty"`
	Blackout         bool   `yaml:"blackout,omitempty"`
}

// FollowerConfig is the YAML shape of the follower map (spec.md §3).
type FollowerConfig struct {
	Enabled bool          `yaml:"enabled"`
	Map     map[int][]int `yaml:"map"` // leader channel -> follower channels
}

// RetransmitConfig controls the Retransmit Loop (spec.md §4.5).
type RetransmitConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSeconds float64 `yaml:"interval_seconds"`
}

// ShowConfig holds the persisted show content (spec.md §6 "config" file).
type ShowConfig struct {
	Scenes       []showtypes.Scene             `yaml:"scenes"`
	Sequences    []showtypes.Sequence          `yaml:"sequences"`
	Programmable []showtypes.ProgrammableScene `yaml:"programmable_scenes"`
	Fallback     showtypes.FallbackConfig      `yaml:"fallback"`
	Autostart    showtypes.AutostartConfig     `yaml:"autostart"`
}
