// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package modbus exposes a minimal Modbus TCP admin surface over the
// Universe Buffer (SPEC_FULL.md §7): holding registers mirror the raw
// DMX universe and two coils trigger blackout / toggle the Retransmit
// Loop. Kept close to the teacher's FC01/03/05/06/16 handler set.
package modbus

import (
	"encoding/binary"
	"log/slog"

	"github.com/tbrandon/mbserver"

	"dmx-gateway/internal/dispatch"
	"dmx-gateway/internal/retransmit"
	"dmx-gateway/internal/universe"
)

// Config for the Modbus TCP server.
type Config struct {
	Port string `yaml:"port"` // ":502" or ":5020"
}

// Server is the Modbus TCP admin surface for the gateway.
//
// Register mapping:
//   - Holding registers 0-511 = universe channels 1-512 (value 0-255)
//   - Coil 0 = blackout (write-only, triggers on write 1)
//   - Coil 1 = retransmit loop enable/disable
type Server struct {
	cfg        *Config
	buf        *universe.Buffer
	dispatcher *dispatch.Dispatcher
	retransmit *retransmit.Loop
	logger     *slog.Logger
	mb         *mbserver.Server
}

func NewServer(cfg *Config, buf *universe.Buffer, dispatcher *dispatch.Dispatcher, rt *retransmit.Loop, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, buf: buf, dispatcher: dispatcher, retransmit: rt, logger: logger}
}

func (s *Server) Start() error {
	s.mb = mbserver.NewServer()

	s.mb.RegisterFunctionHandler(3, s.handleReadHoldingRegisters)
	s.mb.RegisterFunctionHandler(6, s.handleWriteSingleRegister)
	s.mb.RegisterFunctionHandler(16, s.handleWriteMultipleRegisters)
	s.mb.RegisterFunctionHandler(1, s.handleReadCoils)
	s.mb.RegisterFunctionHandler(5, s.handleWriteSingleCoil)

	addr := s.cfg.Port
	if addr == "" {
		addr = ":502"
	}

	s.logger.Info("Modbus TCP server starting", "addr", addr)
	go func() {
		if err := s.mb.ListenTCP(addr); err != nil {
			s.logger.Error("Modbus TCP server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop() {
	if s.mb != nil {
		s.mb.Close()
		s.logger.Info("Modbus TCP server stopped")
	}
}

// FC03: Read Holding Registers (universe channels).
func (s *Server) handleReadHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	startAddr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])

	if int(startAddr)+int(quantity) > universe.Channels {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	snap := s.buf.Snapshot()

	resp := make([]byte, 1+quantity*2)
	resp[0] = byte(quantity * 2)
	for i := uint16(0); i < quantity; i++ {
		ch := startAddr + i
		binary.BigEndian.PutUint16(resp[1+i*2:], uint16(snap[ch]))
	}
	return resp, &mbserver.Success
}

// FC06: Write Single Register (single universe channel).
func (s *Server) handleWriteSingleRegister(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	if int(addr) >= universe.Channels {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	if value > 255 {
		value = 255
	}

	channel := int(addr) + 1 // registers are 0-based, channels are 1-based
	resp := s.dispatcher.Handle(dispatch.Request{Cmd: "set_channel", Channel: channel, Value: uint8(value)})
	if resp.Type == "error" {
		s.logger.Warn("Modbus write failed", "ch", channel, "error", resp.Error)
		return []byte{}, &mbserver.SlaveDeviceFailure
	}

	return data[:4], &mbserver.Success
}

// FC16: Write Multiple Registers (multiple universe channels).
func (s *Server) handleWriteMultipleRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	startAddr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]

	if int(startAddr)+int(quantity) > universe.Channels {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	if int(byteCount) != int(quantity)*2 || len(data) < 5+int(byteCount) {
		return []byte{}, &mbserver.IllegalDataValue
	}

	values := make(map[int]uint8, quantity)
	for i := uint16(0); i < quantity; i++ {
		value := binary.BigEndian.Uint16(data[5+i*2:])
		if value > 255 {
			value = 255
		}
		values[int(startAddr+i)+1] = uint8(value)
	}

	resp := s.dispatcher.Handle(dispatch.Request{Cmd: "set_channels", Channels: values})
	if resp.Type == "error" {
		s.logger.Warn("Modbus write multiple failed", "start", startAddr+1, "count", quantity, "error", resp.Error)
		return []byte{}, &mbserver.SlaveDeviceFailure
	}

	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], startAddr)
	binary.BigEndian.PutUint16(out[2:4], quantity)
	return out, &mbserver.Success
}

// FC01: Read Coils (blackout is write-only, retransmit reflects current state).
func (s *Server) handleReadCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	startAddr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	if int(startAddr)+int(quantity) > 2 {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	var coils byte
	if s.retransmit.Enabled() {
		coils |= 0x02
	}
	return []byte{1, coils}, &mbserver.Success
}

// FC05: Write Single Coil (coil 0 = blackout trigger, coil 1 = retransmit toggle).
func (s *Server) handleWriteSingleCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])
	on := value == 0xFF00

	switch addr {
	case 0: // blackout
		if on {
			resp := s.dispatcher.Handle(dispatch.Request{Cmd: "blackout"})
			if resp.Type == "error" {
				return []byte{}, &mbserver.SlaveDeviceFailure
			}
			s.logger.Info("Modbus: blackout triggered")
		}
	case 1: // retransmit toggle
		s.retransmit.Configure(on, s.retransmit.Interval())
		s.logger.Info("Modbus: retransmit toggled", "enabled", on)
	default:
		return []byte{}, &mbserver.IllegalDataAddress
	}

	return data[:4], &mbserver.Success
}
