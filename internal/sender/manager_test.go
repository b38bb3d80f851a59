// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sender

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"dmx-gateway/internal/config"
	"dmx-gateway/internal/universe"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listenUDP(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func TestManagerAddSendsFrames(t *testing.T) {
	rx, port := listenUDP(t)

	buf := universe.New(nil, testLogger())
	buf.Write(1, 200)
	m := NewManager(buf, testLogger())

	err := m.Add(config.SenderConfig{Name: "test", Protocol: "artnet", Target: "127.0.0.1", Universe: 0, FPS: 40, Port: port})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	defer m.Shutdown()

	rxBuf := make([]byte, 1024)
	_ = rx.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	n, err := rx.Read(rxBuf)
	if err != nil {
		t.Fatalf("expected to receive a frame: %v", err)
	}
	if string(rxBuf[0:7]) != "Art-Net" {
		t.Errorf("expected Art-Net frame, got %q", rxBuf[0:7])
	}
	if rxBuf[18] != 200 {
		t.Errorf("expected channel 1 = 200, got %d", rxBuf[18])
	}
}

func TestManagerDuplicateNameRejected(t *testing.T) {
	buf := universe.New(nil, testLogger())
	m := NewManager(buf, testLogger())

	cfg := config.SenderConfig{Name: "dup", Protocol: "artnet", Target: "127.0.0.1", FPS: 40, Port: 16454}
	if err := m.Add(cfg); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	defer m.Shutdown()

	if err := m.Add(cfg); err == nil {
		t.Fatal("expected Conflict error for duplicate sender name")
	}
}

func TestManagerRemoveUnknownSender(t *testing.T) {
	buf := universe.New(nil, testLogger())
	m := NewManager(buf, testLogger())

	if err := m.Remove("nonexistent"); err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestManagerStatusReportsPacketsSent(t *testing.T) {
	_, port := listenUDP(t)

	buf := universe.New(nil, testLogger())
	m := NewManager(buf, testLogger())
	_ = m.Add(config.SenderConfig{Name: "test", Protocol: "artnet", Target: "127.0.0.1", FPS: 40, Port: port})
	defer m.Shutdown()

	time.Sleep(100 * time.Millisecond)
	statuses := m.Status()
	if len(statuses) != 1 {
		t.Fatalf("expected 1 sender status, got %d", len(statuses))
	}
	if statuses[0].PacketsSent == 0 {
		t.Errorf("expected at least one packet sent")
	}
}
