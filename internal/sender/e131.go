// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sender

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"dmx-gateway/internal/universe"
)

const (
	e131RootVectorData  = 0x00000004
	e131FramingVector    = 0x00000002
	e131DMPVector        = 0x02
	e131DefaultPriority  = 100
	e131DefaultPort      = 5568
	e131PropertyValueCount = universe.Channels + 1 // start code + 512 channels
)

// buildE131 frames one sACN/E1.31 DMX packet: ACN root layer, framing
// layer, DMP layer, per spec.md §4.4. cid is the sender's stable
// per-instance UUIDv4, sourceName identifies the sender in the framing
// layer (truncated to 63 bytes), sequence is the 8-bit wrapping frame
// counter.
func buildE131(cid uuid.UUID, sourceName string, universeNum int, sequence byte, data [universe.Channels]uint8) []byte {
	const (
		rootLen    = 38
		framingLen = 77
		dmpLen     = 10 + e131PropertyValueCount
	)
	total := rootLen + framingLen + dmpLen
	pkt := make([]byte, total)

	// Root layer: preamble size, post-amble size, ACN packet identifier,
	// flags & length, root vector, CID.
	binary.BigEndian.PutUint16(pkt[0:2], 0x0010)
	binary.BigEndian.PutUint16(pkt[2:4], 0x0000)
	copy(pkt[4:16], []byte("ASC-E1.17\x00\x00\x00"))
	binary.BigEndian.PutUint16(pkt[16:18], uint16(0x7000|(total&0x0fff)))
	binary.BigEndian.PutUint32(pkt[18:22], e131RootVectorData)
	copy(pkt[22:38], cid[:])

	// Framing layer.
	off := 38
	binary.BigEndian.PutUint16(pkt[off:off+2], uint16(0x7000|((total-38)&0x0fff)))
	binary.BigEndian.PutUint32(pkt[off+2:off+6], e131FramingVector)
	name := sourceName
	if len(name) > 63 {
		name = name[:63]
	}
	copy(pkt[off+6:off+6+64], []byte(name))
	pkt[off+70] = e131DefaultPriority
	binary.BigEndian.PutUint16(pkt[off+71:off+73], 0) // synchronization address
	pkt[off+73] = sequence
	pkt[off+74] = 0 // options
	binary.BigEndian.PutUint16(pkt[off+75:off+77], uint16(universeNum))

	// DMP layer.
	off = 38 + 77
	binary.BigEndian.PutUint16(pkt[off:off+2], uint16(0x7000|((total-off)&0x0fff)))
	pkt[off+2] = e131DMPVector
	pkt[off+3] = 0xa1 // address type & data type
	binary.BigEndian.PutUint16(pkt[off+4:off+6], 0x0000) // first property address
	binary.BigEndian.PutUint16(pkt[off+6:off+8], 0x0001) // address increment
	binary.BigEndian.PutUint16(pkt[off+8:off+10], uint16(e131PropertyValueCount))
	pkt[off+10] = 0x00 // DMX start code
	copy(pkt[off+11:], data[:])

	return pkt
}

// e131Multicast returns the standard sACN multicast group for a universe:
// 239.255.<high byte>.<low byte>.
func e131Multicast(universeNum int) string {
	return fmt.Sprintf("239.255.%d.%d", (universeNum>>8)&0xff, universeNum&0xff)
}
