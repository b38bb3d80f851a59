// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sender

import (
	"encoding/binary"
	"testing"

	"dmx-gateway/internal/universe"
)

func TestBuildArtNetDMXHeader(t *testing.T) {
	var data [universe.Channels]uint8
	data[5] = 255

	pkt := buildArtNetDMX(3, 1, data)

	if string(pkt[0:7]) != "Art-Net" {
		t.Fatalf("expected Art-Net header, got %q", pkt[0:7])
	}
	if pkt[7] != 0 {
		t.Errorf("expected null terminator at offset 7")
	}
	op := binary.LittleEndian.Uint16(pkt[8:10])
	if op != artNetOpDMX {
		t.Errorf("expected opcode 0x5000, got 0x%x", op)
	}
	if pkt[11] != artNetProtoVersion {
		t.Errorf("expected protocol version 14, got %d", pkt[11])
	}
	if pkt[12] != 1 {
		t.Errorf("expected sequence 1, got %d", pkt[12])
	}
	length := binary.BigEndian.Uint16(pkt[16:18])
	if int(length) != universe.Channels {
		t.Errorf("expected length 512, got %d", length)
	}
	if pkt[18+5] != 255 {
		t.Errorf("expected channel 6 = 255 in payload, got %d", pkt[18+5])
	}
}

func TestNextSequenceWrapsSkippingZero(t *testing.T) {
	seq := byte(254)
	seq = nextSequence(seq)
	if seq != 255 {
		t.Fatalf("expected 255, got %d", seq)
	}
	seq = nextSequence(seq)
	if seq != 1 {
		t.Fatalf("expected wrap to 1 (never 0), got %d", seq)
	}
}
