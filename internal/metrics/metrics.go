// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChannelValue is a gauge for DMX channel values (0-255)
	ChannelValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dmx_channel_value",
			Help: "Current DMX channel value (0-255)",
		},
		[]string{"channel"},
	)

	// PlaybackActive indicates whether the Playback Engine holds a
	// non-idle PlaybackState (1) or is Idle (0).
	PlaybackActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmx_playback_active",
			Help: "Playback Engine is running a scene/sequence/programmable (1) or idle (0)",
		},
	)

	// SenderPacketsTotal counts frames emitted per sender.
	SenderPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmx_sender_packets_total",
			Help: "Total frames sent by a sender",
		},
		[]string{"sender", "protocol"},
	)

	// SenderErrorsTotal counts send failures per sender.
	SenderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmx_sender_errors_total",
			Help: "Total send failures by a sender",
		},
		[]string{"sender", "protocol"},
	)

	// CommandsTotal counts dispatcher commands by type
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmx_commands_total",
			Help: "Total commands handled by the dispatcher, by type",
		},
		[]string{"command"},
	)

	// ErrorsTotal counts errors by kind (apierr.Kind name)
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmx_errors_total",
			Help: "Total errors by kind",
		},
		[]string{"kind"},
	)
)

// SetChannelValue updates a single-channel value gauge.
func SetChannelValue(channel int, value uint8) {
	ChannelValue.WithLabelValues(strconv.Itoa(channel)).Set(float64(value))
}

// SetPlaybackActive updates the playback activity gauge.
func SetPlaybackActive(active bool) {
	if active {
		PlaybackActive.Set(1)
	} else {
		PlaybackActive.Set(0)
	}
}

// RecordSenderFrame increments the per-sender packet counter.
func RecordSenderFrame(sender, protocol string) {
	SenderPacketsTotal.WithLabelValues(sender, protocol).Inc()
}

// RecordSenderError increments the per-sender error counter.
func RecordSenderError(sender, protocol string) {
	SenderErrorsTotal.WithLabelValues(sender, protocol).Inc()
}
