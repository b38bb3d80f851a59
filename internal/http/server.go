// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package http implements the REST/WebSocket boundary from spec.md §6.
// Kept close to the teacher's shape: a single http.ServeMux, a
// WebSocket endpoint pushing live status, Prometheus metrics mounted at
// /metrics, and an embedded static/ directory for the UI. Every command
// route translates into one dispatch.Request and lets the Dispatcher do
// the work, the same way the teacher's handlers all funneled through
// api.Handler.
package http

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dmx-gateway/internal/apierr"
	"dmx-gateway/internal/config"
	"dmx-gateway/internal/dispatch"
	"dmx-gateway/internal/mqtt"
	"dmx-gateway/internal/playback"
	"dmx-gateway/internal/scheduler"
	"dmx-gateway/internal/showtypes"
	"dmx-gateway/internal/universe"
)

var startTime = time.Now()

//go:embed static/*
var staticFiles embed.FS

// HealthResponse reports process and runtime health.
type HealthResponse struct {
	UptimeSec  int     `json:"uptime_sec"`
	UptimeStr  string  `json:"uptime_str"`
	Goroutines int     `json:"goroutines"`
	CPULoad1m  float64 `json:"cpu_load_1m"`
	CPULoad5m  float64 `json:"cpu_load_5m"`
	CPULoad15m float64 `json:"cpu_load_15m"`
	MemAllocMB float64 `json:"mem_alloc_mb"`
	MemSysMB   float64 `json:"mem_sys_mb"`
	MemHeapMB  float64 `json:"mem_heap_mb"`
	GCRuns     uint32  `json:"gc_runs"`
	GoVersion  string  `json:"go_version"`
	NumCPU     int     `json:"num_cpu"`
}

// Server is the HTTP/WebSocket boundary.
type Server struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	buf        *universe.Buffer
	engine     *playback.Engine
	scheduler  *scheduler.Scheduler
	mqttClient *mqtt.Client
	logger     *slog.Logger
	server     *http.Server
	upgrader   websocket.Upgrader

	wsMu   sync.Mutex
	wsConn map[*websocket.Conn]struct{}
}

// NewServer builds the HTTP server. POST /api/config persists the
// in-memory configuration to the path set with SetConfigPath.
func NewServer(cfg *config.Config, dispatcher *dispatch.Dispatcher, buf *universe.Buffer, engine *playback.Engine, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		buf:        buf,
		engine:     engine,
		logger:     logger,
		wsConn:     make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/config", s.handleConfig)

	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scenes/", s.handleSceneByID)
	mux.HandleFunc("/api/sequences", s.handleSequences)
	mux.HandleFunc("/api/sequences/", s.handleSequenceByID)
	mux.HandleFunc("/api/programmable", s.handleProgrammables)
	mux.HandleFunc("/api/programmable/", s.handleProgrammableByID)

	mux.HandleFunc("/api/dmx/channel/", s.handleDMXChannel)
	mux.HandleFunc("/api/dmx/all", s.handleDMXAll)
	mux.HandleFunc("/api/dmx/blackout", s.handleDMXBlackout)
	mux.HandleFunc("/api/dmx/channel-update", s.handleDMXChannelUpdate)

	mux.HandleFunc("/api/playback/stop", s.handlePlaybackStop)
	mux.HandleFunc("/api/playback/status", s.handlePlaybackStatus)

	mux.HandleFunc("/api/autostart", s.handleAutostart)
	mux.HandleFunc("/api/fallback", s.handleFallback)

	mux.HandleFunc("/api/settings/dmx-retransmission", s.handleSettingsRetransmission)
	mux.HandleFunc("/api/settings/dmx-followers", s.handleSettingsFollowers)
	mux.HandleFunc("/api/settings/fallback-delay", s.handleSettingsFallbackDelay)

	mux.Handle("/metrics", promhttp.Handler())

	staticFS, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	s.server = &http.Server{
		Addr:    cfg.Server.HTTP,
		Handler: mux,
	}

	return s
}

func (s *Server) SetScheduler(sched *scheduler.Scheduler) {
	s.scheduler = sched
}

// SetMQTTClient wires the MQTT client so /api/dmx/channel-update can
// mirror the most recent MQTT-originated channel write.
func (s *Server) SetMQTTClient(c *mqtt.Client) {
	s.mqttClient = c
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.cfg.Server.HTTP)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	go s.broadcastLoop()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Helper for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

func (s *Server) Addr() string {
	return s.cfg.Server.HTTP
}

// --- WebSocket: pushes engine status + universe snapshot periodically ---

type wsPayload struct {
	Status   playback.Status `json:"status"`
	Universe [universe.Channels]uint8 `json:"universe"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	s.wsMu.Lock()
	s.wsConn[conn] = struct{}{}
	s.wsMu.Unlock()

	s.logger.Debug("WebSocket client connected", "remote", r.RemoteAddr)

	s.sendSnapshot(conn)

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConn, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
	}
}

func (s *Server) sendSnapshot(conn *websocket.Conn) {
	payload := wsPayload{Status: s.engine.Status(), Universe: s.buf.Snapshot()}
	data, _ := json.Marshal(payload)
	conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		payload := wsPayload{Status: s.engine.Status(), Universe: s.buf.Snapshot()}
		data, _ := json.Marshal(payload)

		s.wsMu.Lock()
		for conn := range s.wsConn {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				delete(s.wsConn, conn)
				conn.Close()
			}
		}
		s.wsMu.Unlock()
	}
}

// --- Health / config ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var load1, load5, load15 float64
	if data, err := os.ReadFile("/proc/loadavg"); err == nil {
		fmt.Sscanf(string(data), "%f %f %f", &load1, &load5, &load15)
	}

	health := HealthResponse{
		UptimeSec:  int(time.Since(startTime).Seconds()),
		UptimeStr:  time.Since(startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		CPULoad1m:  load1,
		CPULoad5m:  load5,
		CPULoad15m: load15,
		MemAllocMB: float64(m.Alloc) / 1024 / 1024,
		MemSysMB:   float64(m.Sys) / 1024 / 1024,
		MemHeapMB:  float64(m.HeapAlloc) / 1024 / 1024,
		GCRuns:     m.NumGC,
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
	}
	s.jsonResponse(w, http.StatusOK, health)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.jsonResponse(w, http.StatusOK, s.cfg)
	case http.MethodPost:
		if err := config.Save(configPathOf(s.cfg), s.cfg); err != nil {
			s.errorResponse(w, apierr.Wrap(apierr.Fatal, "save config", err))
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "saved"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// configPath holds a placeholder default; main.go overwrites it via
// SetConfigPath once the loaded file path is known, since config.Config
// carries no path field of its own. configPathOf reads it.
var configPath = "config.yaml"

func SetConfigPath(path string) { configPath = path }
func configPathOf(_ *config.Config) string { return configPath }

// --- Scenes / Sequences / Programmable CRUD ---

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "scenes_list"})
		s.jsonResponse(w, http.StatusOK, resp.Data)
	case http.MethodPost:
		var scene showtypes.Scene
		if err := json.NewDecoder(r.Body).Decode(&scene); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		if err := s.dispatcher.PutScene(scene); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, scene)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSceneByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/scenes/")
	if id == "" {
		http.Error(w, "missing scene id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodDelete:
		if err := s.dispatcher.DeleteScene(id); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
	case http.MethodPut:
		var scene showtypes.Scene
		if err := json.NewDecoder(r.Body).Decode(&scene); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		scene.ID = id
		if err := s.dispatcher.PutScene(scene); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, scene)
	case http.MethodPost:
		seconds := parseFloatQuery(r, "transition_seconds", 0)
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "play_scene", ID: id, TransitionSeconds: seconds})
		s.writeDispatchResponse(w, resp)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSequences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "sequences_list"})
		s.jsonResponse(w, http.StatusOK, resp.Data)
	case http.MethodPost:
		var seq showtypes.Sequence
		if err := json.NewDecoder(r.Body).Decode(&seq); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		if err := s.dispatcher.PutSequence(seq); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, seq)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSequenceByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sequences/")
	if id == "" {
		http.Error(w, "missing sequence id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodDelete:
		if err := s.dispatcher.DeleteSequence(id); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
	case http.MethodPut:
		var seq showtypes.Sequence
		if err := json.NewDecoder(r.Body).Decode(&seq); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		seq.ID = id
		if err := s.dispatcher.PutSequence(seq); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, seq)
	case http.MethodPost:
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "play_sequence", ID: id})
		s.writeDispatchResponse(w, resp)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProgrammables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "programmable_list"})
		s.jsonResponse(w, http.StatusOK, resp.Data)
	case http.MethodPost:
		var ps showtypes.ProgrammableScene
		if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		failed, err := s.dispatcher.PutProgrammable(ps)
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]interface{}{"scene": ps, "failed_channels": failed})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProgrammableByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/programmable/")
	if id == "" {
		http.Error(w, "missing programmable scene id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodDelete:
		if err := s.dispatcher.DeleteProgrammable(id); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
	case http.MethodPut:
		var ps showtypes.ProgrammableScene
		if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		ps.ID = id
		failed, err := s.dispatcher.PutProgrammable(ps)
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]interface{}{"scene": ps, "failed_channels": failed})
	case http.MethodPost:
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "play_programmable", ID: id})
		s.writeDispatchResponse(w, resp)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Raw DMX ---

func (s *Server) handleDMXChannel(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/dmx/channel/")
	ch, err := strconv.Atoi(idStr)
	if err != nil {
		s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid channel number"))
		return
	}

	if r.Method == http.MethodGet {
		s.jsonResponse(w, http.StatusOK, map[string]interface{}{"channel": ch, "value": s.buf.Get(ch)})
		return
	}
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Value uint8 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
		return
	}
	resp := s.dispatcher.Handle(dispatch.Request{Cmd: "set_channel", Channel: ch, Value: body.Value})
	s.writeDispatchResponse(w, resp)
}

func (s *Server) handleDMXAll(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.jsonResponse(w, http.StatusOK, s.buf.Snapshot())
	case http.MethodPost:
		var body struct {
			Channels [universe.Channels]uint8 `json:"channels"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		values := make(map[int]uint8, universe.Channels)
		for i, v := range body.Channels {
			values[i+1] = v
		}
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "set_channels", Channels: values})
		s.writeDispatchResponse(w, resp)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDMXBlackout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := s.dispatcher.Handle(dispatch.Request{Cmd: "blackout"})
	s.writeDispatchResponse(w, resp)
}

// handleDMXChannelUpdate returns the most recent MQTT-originated
// channel write, so a UI can mirror changes made outside the HTTP
// boundary (spec.md §6).
func (s *Server) handleDMXChannelUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.mqttClient == nil {
		s.jsonResponse(w, http.StatusOK, nil)
		return
	}
	update, ok := s.mqttClient.LastUpdate()
	if !ok {
		s.jsonResponse(w, http.StatusOK, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, update)
}

// --- Playback ---

func (s *Server) handlePlaybackStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := s.dispatcher.Handle(dispatch.Request{Cmd: "stop"})
	s.writeDispatchResponse(w, resp)
}

func (s *Server) handlePlaybackStatus(w http.ResponseWriter, r *http.Request) {
	resp := s.dispatcher.Handle(dispatch.Request{Cmd: "playback_status"})
	s.jsonResponse(w, http.StatusOK, resp.Data)
}

// --- Autostart / Fallback ---

func (s *Server) handleAutostart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "autostart_get"})
		s.jsonResponse(w, http.StatusOK, resp.Data)
	case http.MethodPost:
		var a showtypes.AutostartConfig
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		if err := s.dispatcher.SetAutostart(a); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, a)
	case http.MethodDelete:
		if err := s.dispatcher.SetAutostart(showtypes.AutostartConfig{}); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "fallback_get"})
		s.jsonResponse(w, http.StatusOK, resp.Data)
	case http.MethodPost:
		var fb showtypes.FallbackConfig
		if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
			s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
			return
		}
		if err := s.dispatcher.SetFallback(fb); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, fb)
	case http.MethodDelete:
		if err := s.dispatcher.SetFallback(showtypes.FallbackConfig{}); err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Settings ---

func (s *Server) handleSettingsRetransmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonResponse(w, http.StatusOK, s.cfg.Retransmit)
		return
	}
	var body config.RetransmitConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
		return
	}
	s.cfg.Retransmit = body
	s.jsonResponse(w, http.StatusOK, body)
}

func (s *Server) handleSettingsFollowers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonResponse(w, http.StatusOK, s.cfg.Follower)
		return
	}
	var body config.FollowerConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
		return
	}
	s.cfg.Follower = body
	s.buf.SetFollowers(universe.NewFollowerMap(body.Enabled, body.Map))
	s.jsonResponse(w, http.StatusOK, body)
}

func (s *Server) handleSettingsFallbackDelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		resp := s.dispatcher.Handle(dispatch.Request{Cmd: "fallback_get"})
		s.jsonResponse(w, http.StatusOK, resp.Data)
		return
	}
	var fb showtypes.FallbackConfig
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		s.errorResponse(w, apierr.New(apierr.InvalidInput, "invalid JSON body"))
		return
	}
	if err := s.dispatcher.SetFallback(fb); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, fb)
}

// --- helpers ---

func (s *Server) jsonResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	s.jsonResponse(w, apierr.KindOf(err).HTTPStatus(), map[string]string{"error": err.Error()})
}

func (s *Server) writeDispatchResponse(w http.ResponseWriter, resp dispatch.Response) {
	if resp.Type == "error" {
		s.jsonResponse(w, resp.Kind.HTTPStatus(), map[string]string{"error": resp.Error})
		return
	}
	if resp.Data != nil {
		s.jsonResponse(w, http.StatusOK, resp.Data)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseFloatQuery(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
