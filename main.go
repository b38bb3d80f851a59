// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"dmx-gateway/internal/config"
	"dmx-gateway/internal/dispatch"
	"dmx-gateway/internal/fallback"
	"dmx-gateway/internal/http"
	"dmx-gateway/internal/modbus"
	"dmx-gateway/internal/mqtt"
	"dmx-gateway/internal/playback"
	"dmx-gateway/internal/retransmit"
	"dmx-gateway/internal/scheduler"
	"dmx-gateway/internal/sender"
	"dmx-gateway/internal/show"
	"dmx-gateway/internal/universe"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		logLevel   = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
		dryRun     = flag.Bool("dry-run", false, "Validate config and exit")
	)
	flag.Parse()

	level := parseLogLevel(*logLevel)
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("DMX gateway starting", "version", "1.0.0")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}
	http.SetConfigPath(*configPath)

	logger.Info("configuration loaded",
		"senders", len(cfg.Senders),
		"scenes", len(cfg.Show.Scenes),
		"sequences", len(cfg.Show.Sequences),
		"programmable", len(cfg.Show.Programmable),
		"http", cfg.Server.HTTP)

	if *dryRun {
		logger.Info("dry run mode - configuration is valid")
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	// Universe buffer and follower mirror.
	followers := universe.NewFollowerMap(cfg.Follower.Enabled, cfg.Follower.Map)
	buf := universe.New(followers, logger)

	// Show registry (scenes, sequences, programmable scenes, fallback, autostart).
	registry := show.New(cfg.Show.Scenes, cfg.Show.Sequences, cfg.Show.Programmable, cfg.Show.Fallback, cfg.Show.Autostart)

	// Sender manager (Art-Net / E1.31 fan-out).
	senders := sender.NewManager(buf, logger)
	for _, sc := range cfg.Senders {
		if err := senders.Add(sc); err != nil {
			logger.Error("failed to add sender", "name", sc.Name, "error", err)
			os.Exit(1)
		}
	}

	tickRate := func() int {
		min := cfg.Engine.TickMaxHz
		for _, sc := range cfg.Senders {
			if sc.FPS > 0 && sc.FPS < min {
				min = sc.FPS
			}
		}
		return min
	}

	engine := playback.New(buf, registry, tickRate, cfg.Engine.TickMinHz, cfg.Engine.TickMaxHz, logger)
	engine.Start(ctx)

	// Fallback controller (inactivity watchdog).
	fallbackCtrl := fallback.New(engine, registry, logger)
	fallbackCtrl.Start(1 * time.Second)

	// Retransmit loop (periodic forced re-emission).
	retransmitLoop := retransmit.New(senders, logger)
	retransmitLoop.Configure(cfg.Retransmit.Enabled, time.Duration(cfg.Retransmit.IntervalSeconds*float64(time.Second)))

	// Command dispatcher: the single entry point every boundary uses.
	dispatcher := dispatch.New(engine, buf, senders, registry, fallbackCtrl)

	// Autostart.
	if a := registry.Autostart(); a.Scene != "" {
		if err := engine.PlayScene(a.Scene, 0); err != nil {
			logger.Warn("autostart scene failed", "scene", a.Scene, "error", err)
		}
	} else if a.Sequence != "" {
		if err := engine.PlaySequence(a.Sequence); err != nil {
			logger.Warn("autostart sequence failed", "sequence", a.Sequence, "error", err)
		}
	} else if a.Programmable != "" {
		if err := engine.PlayProgrammable(a.Programmable); err != nil {
			logger.Warn("autostart programmable scene failed", "programmable", a.Programmable, "error", err)
		}
	}

	// HTTP/WebSocket server.
	httpServer := http.NewServer(cfg, dispatcher, buf, engine, logger)
	if err := httpServer.Start(); err != nil {
		logger.Error("failed to start HTTP server", "error", err)
		os.Exit(1)
	}

	// Modbus TCP admin surface, if configured.
	var modbusServer *modbus.Server
	if cfg.Modbus != nil {
		modbusServer = modbus.NewServer(&modbus.Config{Port: cfg.Modbus.Port}, buf, dispatcher, retransmitLoop, logger)
		if err := modbusServer.Start(); err != nil {
			logger.Error("failed to start Modbus server", "error", err)
			os.Exit(1)
		}
	}

	// MQTT client, if configured.
	var mqttClient *mqtt.Client
	if cfg.MQTT != nil {
		sequenceNames := func() []string {
			names := make([]string, 0, len(registry.Sequences()))
			for _, sq := range registry.Sequences() {
				names = append(names, sq.ID)
			}
			return names
		}
		mqttClient = mqtt.NewClient(cfg.MQTT, dispatcher, sequenceNames, logger)
		if err := mqttClient.Start(); err != nil {
			logger.Error("failed to start MQTT client", "error", err)
			os.Exit(1)
		}
		httpServer.SetMQTTClient(mqttClient)
	}

	// Time-of-day scheduler, if configured.
	var sched *scheduler.Scheduler
	if cfg.Schedule != nil && len(cfg.Schedule.Events) > 0 {
		sched, err = scheduler.New(cfg.Schedule, dispatcher, logger)
		if err != nil {
			logger.Error("failed to create scheduler", "error", err)
			os.Exit(1)
		}
		sched.Start()
		httpServer.SetScheduler(sched)
	}

	logger.Info("DMX gateway ready",
		"http", cfg.Server.HTTP,
		"senders", len(cfg.Senders),
		"modbus", cfg.Modbus != nil,
		"mqtt", cfg.MQTT != nil,
		"schedule", cfg.Schedule != nil)

	<-ctx.Done()

	logger.Info("initiating graceful shutdown...")

	var group errgroup.Group
	group.Go(func() error {
		if sched != nil {
			sched.Stop()
		}
		return nil
	})
	group.Go(func() error {
		retransmitLoop.Stop()
		return nil
	})
	group.Go(func() error {
		fallbackCtrl.Stop()
		return nil
	})
	group.Go(func() error {
		if mqttClient != nil {
			mqttClient.Stop()
		}
		return nil
	})
	group.Go(func() error {
		if modbusServer != nil {
			modbusServer.Stop()
		}
		return nil
	})
	_ = group.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	engine.Shutdown()
	senders.Shutdown()

	logger.Info("DMX gateway stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
