// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dmx-gateway/internal/config"
	"dmx-gateway/internal/dispatch"
	"dmx-gateway/internal/playback"
	"dmx-gateway/internal/sender"
	"dmx-gateway/internal/show"
	"dmx-gateway/internal/showtypes"
	"dmx-gateway/internal/universe"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopToucher struct{}

func (noopToucher) Touch() {}

func setupServer(t *testing.T) *Server {
	t.Helper()
	logger := testLogger()
	buf := universe.New(nil, logger)
	reg := show.New([]showtypes.Scene{
		{ID: "red", Name: "Red", Values: map[int]uint8{1: 255}},
	}, nil, nil, showtypes.FallbackConfig{}, showtypes.AutostartConfig{})
	eng := playback.New(buf, reg, func() int { return 60 }, 25, 60, logger)
	senders := sender.NewManager(buf, logger)
	d := dispatch.New(eng, buf, senders, reg, noopToucher{})

	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)
	t.Cleanup(func() {
		cancel()
		eng.Shutdown()
	})

	cfg := &config.Config{Server: config.ServerConfig{HTTP: ":8080"}}
	return NewServer(cfg, d, buf, eng, logger)
}

func TestHandleHealth(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var result HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result.NumCPU == 0 {
		t.Error("expected non-zero NumCPU")
	}
}

func TestHandleScenesList(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("GET", "/api/scenes", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var result []showtypes.Scene
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(result) != 1 || result[0].ID != "red" {
		t.Errorf("expected [red], got %+v", result)
	}
}

func TestHandleScenePlay(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("POST", "/api/scenes/red", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestHandleScenePlayUnknown(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("POST", "/api/scenes/nonexistent", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Errorf("expected non-200 status for unknown scene, got %d", w.Code)
	}
}

func TestHandleDMXChannelGetSet(t *testing.T) {
	server := setupServer(t)

	body := `{"value": 42}`
	req := httptest.NewRequest("PUT", "/api/dmx/channel/10", strings.NewReader(body))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/dmx/channel/10", nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result["value"].(float64) != 42 {
		t.Errorf("expected value 42, got %v", result["value"])
	}
}

func TestHandleDMXChannelInvalid(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("GET", "/api/dmx/channel/notanumber", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleDMXBlackout(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("POST", "/api/dmx/blackout", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestHandlePlaybackStatus(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("GET", "/api/playback/status", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestHandleFallbackGetSet(t *testing.T) {
	server := setupServer(t)

	body := `{"scene":{"enabled":true,"target_id":"red","delay_seconds":30}}`
	req := httptest.NewRequest("POST", "/api/fallback", strings.NewReader(body))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/fallback", nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var fb showtypes.FallbackConfig
	if err := json.Unmarshal(w.Body.Bytes(), &fb); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !fb.Scene.Enabled || fb.Scene.TargetID != "red" {
		t.Errorf("expected scene fallback set to red, got %+v", fb)
	}
}

func TestStaticFiles(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "DMX Gateway") {
		t.Error("index.html should contain 'DMX Gateway'")
	}
}
