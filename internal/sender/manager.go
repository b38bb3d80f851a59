// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package sender implements the Sender Fan-out (spec.md §4.4): one
// independent task per configured sender, each snapshotting the
// Universe Buffer at its own fps and transmitting an Art-Net or
// E1.31/sACN frame over UDP. A slow or failing sender never blocks the
// others.
package sender

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dmx-gateway/internal/apierr"
	"dmx-gateway/internal/config"
	"dmx-gateway/internal/metrics"
	"dmx-gateway/internal/universe"
)

const maxBackoff = 30 * time.Second

// Status is the read-only per-sender report from spec.md §4.4 "status()".
type Status struct {
	Name        string
	Protocol    string
	Target      string
	Universe    int
	FPS         int
	PacketsSent uint64
	LastError   string
}

type instance struct {
	cfg    config.SenderConfig
	cid    uuid.UUID
	logger *slog.Logger
	buf    *universe.Buffer

	conn   *net.UDPConn
	seq    byte
	sentC  atomic.Uint64
	lastErr atomic.Value // string

	forceCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Manager owns the set of active senders.
type Manager struct {
	mu      sync.RWMutex
	buf     *universe.Buffer
	senders map[string]*instance
	logger  *slog.Logger
}

func NewManager(buf *universe.Buffer, logger *slog.Logger) *Manager {
	return &Manager{buf: buf, senders: make(map[string]*instance), logger: logger}
}

// Add starts a new sender. Fails with Conflict if the name is already in use.
func (m *Manager) Add(cfg config.SenderConfig) error {
	if cfg.FPS < 1 || cfg.FPS > 60 {
		cfg.FPS = 40
	}
	m.mu.Lock()
	if _, exists := m.senders[cfg.Name]; exists {
		m.mu.Unlock()
		return apierr.New(apierr.Conflict, "sender already exists: "+cfg.Name)
	}
	inst := &instance{
		cfg:     cfg,
		cid:     uuid.New(),
		logger:  m.logger.With("sender", cfg.Name),
		buf:     m.buf,
		forceCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	inst.lastErr.Store("")
	m.senders[cfg.Name] = inst
	m.mu.Unlock()

	go inst.run()
	return nil
}

// Remove stops and deletes a sender.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	inst, ok := m.senders[name]
	if !ok {
		m.mu.Unlock()
		return apierr.New(apierr.NotFound, "sender not found: "+name)
	}
	delete(m.senders, name)
	m.mu.Unlock()

	close(inst.stopCh)
	select {
	case <-inst.doneCh:
	case <-time.After(200 * time.Millisecond):
	}
	return nil
}

// Blackout zeros the universe (via the shared buffer) and forces one
// immediate frame on the named sender, or every sender if name == "".
func (m *Manager) Blackout(name string) error {
	m.buf.Blackout()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if name == "" {
		for _, inst := range m.senders {
			inst.forceFrame()
		}
		return nil
	}
	inst, ok := m.senders[name]
	if !ok {
		return apierr.New(apierr.NotFound, "sender not found: "+name)
	}
	inst.forceFrame()
	return nil
}

// ForceFrame triggers one out-of-cadence frame on the named sender, used
// by the Retransmit Loop.
func (m *Manager) ForceFrame(name string) {
	m.mu.RLock()
	inst, ok := m.senders[name]
	m.mu.RUnlock()
	if ok {
		inst.forceFrame()
	}
}

func (inst *instance) forceFrame() {
	select {
	case inst.forceCh <- struct{}{}:
	default:
	}
}

// Names returns the current sender names, for the Retransmit Loop and
// "dmx/sender/list".
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.senders))
	for name := range m.senders {
		names = append(names, name)
	}
	return names
}

func (m *Manager) Status() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Status, 0, len(m.senders))
	for _, inst := range m.senders {
		out = append(out, Status{
			Name:        inst.cfg.Name,
			Protocol:    inst.cfg.Protocol,
			Target:      inst.cfg.Target,
			Universe:    inst.cfg.Universe,
			FPS:         inst.cfg.FPS,
			PacketsSent: inst.sentC.Load(),
			LastError:   inst.lastErr.Load().(string),
		})
	}
	return out
}

// Shutdown stops every sender.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	insts := make([]*instance, 0, len(m.senders))
	for _, inst := range m.senders {
		insts = append(insts, inst)
	}
	m.senders = make(map[string]*instance)
	m.mu.Unlock()

	for _, inst := range insts {
		close(inst.stopCh)
	}
	for _, inst := range insts {
		select {
		case <-inst.doneCh:
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (inst *instance) run() {
	defer close(inst.doneCh)

	backoff := time.Second
	for {
		conn, err := inst.dial()
		if err != nil {
			inst.recordError(err)
			inst.logger.Error("sender dial failed, backing off", "error", err, "backoff", backoff)
			select {
			case <-inst.stopCh:
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
			continue
		}
		inst.conn = conn
		backoff = time.Second

		if inst.serve() {
			_ = conn.Close()
			return
		}
		_ = conn.Close()
	}
}

func (inst *instance) dial() (*net.UDPConn, error) {
	port := inst.cfg.Port
	target := inst.cfg.Target
	if inst.cfg.Protocol == "e131" {
		if port == 0 {
			port = e131DefaultPort
		}
		if target == "auto" {
			target = e131Multicast(inst.cfg.Universe)
		}
	} else {
		if port == 0 {
			port = artNetDefaultPort
		}
	}
	addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", target, port))
	if err != nil {
		return nil, apierr.Wrap(apierr.Fatal, "resolve sender target", err)
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, apierr.Wrap(apierr.Fatal, "dial sender socket", err)
	}
	return conn, nil
}

// serve runs the per-tick send loop until a stop request (returns true,
// terminating the sender entirely) or a write error (returns false, so
// run closes the socket and dials it again, backing off only if that
// dial fails). Every net.UDPConn write error is handled this way; the
// ticker does not continue on the old socket after a failed send.
func (inst *instance) serve() bool {
	interval := time.Second / time.Duration(inst.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-inst.stopCh:
			return true
		case <-inst.forceCh:
			if err := inst.sendFrame(); err != nil {
				inst.recordError(err)
				return false
			}
		case <-ticker.C:
			if err := inst.sendFrame(); err != nil {
				inst.recordError(err)
				return false
			}
		}
	}
}

func (inst *instance) sendFrame() error {
	snap := inst.buf.Snapshot()

	var pkt []byte
	if inst.cfg.Protocol == "e131" {
		inst.seq++ // plain 8-bit wrap, 0 included
		pkt = buildE131(inst.cid, inst.cfg.Name, inst.cfg.Universe, inst.seq, snap)
	} else {
		inst.seq = nextSequence(inst.seq)
		pkt = buildArtNetDMX(inst.cfg.Universe, inst.seq, snap)
	}

	_, err := inst.conn.Write(pkt)
	if err != nil {
		return apierr.Wrap(apierr.Transient, "sender write", err)
	}
	inst.sentC.Add(1)
	inst.lastErr.Store("")
	metrics.RecordSenderFrame(inst.cfg.Name, inst.cfg.Protocol)
	return nil
}

func (inst *instance) recordError(err error) {
	inst.lastErr.Store(err.Error())
	metrics.RecordSenderError(inst.cfg.Name, inst.cfg.Protocol)
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
