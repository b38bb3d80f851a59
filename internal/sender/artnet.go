// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sender

import (
	"encoding/binary"

	"dmx-gateway/internal/universe"
)

// artNetHeader is the fixed 8-byte Art-Net packet ID, always zero-terminated.
var artNetHeader = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

const (
	artNetOpDMX        = 0x5000
	artNetProtoVersion = 14
	artNetDefaultPort  = 6454
)

// buildArtNetDMX frames one ArtDMX packet (Art-Net 3) per spec.md §4.4:
// header, OpCode 0x5000, protocol version 14, sequence, physical port 0,
// sub-net/universe/net split across two little-endian bytes, big-endian
// length, then the 512 channel octets. This is the send-side mirror of
// the byte layout an Art-Net receiver parses (offsets verified against
// a reference receive-side parser in the example pack).
func buildArtNetDMX(universeNum int, sequence byte, data [universe.Channels]uint8) []byte {
	pkt := make([]byte, 18+universe.Channels)
	copy(pkt[0:8], artNetHeader[:])
	binary.LittleEndian.PutUint16(pkt[8:10], artNetOpDMX)
	pkt[10] = 0 // protocol version high byte
	pkt[11] = artNetProtoVersion
	pkt[12] = sequence
	pkt[13] = 0 // physical port
	// universe is 15 bits: low byte = sub-net(4)|universe(4), high byte = net(7)
	binary.LittleEndian.PutUint16(pkt[14:16], uint16(universeNum&0x7fff))
	binary.BigEndian.PutUint16(pkt[16:18], uint16(universe.Channels))
	copy(pkt[18:], data[:])
	return pkt
}

// nextSequence wraps 1..255, never emitting 0 ("0 means disabled" for
// Art-Net). E1.31 senders do not use it: their counter wraps through
// all 256 values.
func nextSequence(seq byte) byte {
	seq++
	if seq == 0 {
		seq = 1
	}
	return seq
}
