// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package mqtt subscribes to the MQTT topic grammar from spec.md §6 and
// translates command messages into a dispatch.Request; the config
// reload and save topics are handled locally (reload re-subscribes,
// save only logs). Kept close to the teacher's connect/reconnect/publish
// shape (paho client options, auto-reconnect); replies are published
// without the retained flag. Only the topic table and payload parsing
// changed, from one `{prefix}/cmd` JSON envelope to a table-driven set
// of typed topics.
package mqtt

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"dmx-gateway/internal/config"
	"dmx-gateway/internal/dispatch"
)

// ChannelUpdate records the most recent channel write that arrived over
// MQTT, so the HTTP boundary can mirror it to a UI (spec.md §6,
// "/api/dmx/channel-update").
type ChannelUpdate struct {
	Channel int       `json:"channel"`
	Value   uint8     `json:"value"`
	At      time.Time `json:"at"`
}

// Client is the MQTT command-ingest adapter.
type Client struct {
	cfg        *config.MQTTConfig
	dispatcher *dispatch.Dispatcher
	sequences  func() []string // sequence names, for data-defined topics
	logger     *slog.Logger
	client     mqtt.Client
	stopChan   chan struct{}

	lastUpdate atomic.Value // ChannelUpdate
}

// LastUpdate returns the most recent MQTT-originated channel write, if
// any has happened since startup.
func (c *Client) LastUpdate() (ChannelUpdate, bool) {
	v := c.lastUpdate.Load()
	if v == nil {
		return ChannelUpdate{}, false
	}
	return v.(ChannelUpdate), true
}

// NewClient builds an MQTT client. sequences returns the current list of
// sequence ids so their play topics can be (re-)subscribed on connect and
// on "dmx/config/reload".
func NewClient(cfg *config.MQTTConfig, dispatcher *dispatch.Dispatcher, sequences func() []string, logger *slog.Logger) *Client {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "dmx"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dmx-gateway"
	}
	return &Client{cfg: cfg, dispatcher: dispatcher, sequences: sequences, logger: logger, stopChan: make(chan struct{})}
}

func (c *Client) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}

	c.logger.Info("MQTT client started", "broker", c.cfg.Broker, "prefix", c.cfg.TopicPrefix)
	return nil
}

func (c *Client) Stop() {
	close(c.stopChan)
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(1000)
	}
	c.logger.Info("MQTT client stopped")
}

func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("MQTT connected")
	c.subscribeAll(client)
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Warn("MQTT connection lost", "error", err)
}

// Resubscribe re-registers the data-defined sequence topics, used by the
// "dmx/config/reload" handler when sequences may have changed.
func (c *Client) Resubscribe() {
	if c.client != nil && c.client.IsConnected() {
		c.subscribeAll(c.client)
	}
}

func (c *Client) subscribeAll(client mqtt.Client) {
	prefix := c.cfg.TopicPrefix

	client.Subscribe(prefix+"/set/channel/+", 1, c.handleSetChannel)
	client.Subscribe(prefix+"/scene/+", 1, c.handlePlayScene)
	client.Subscribe(prefix+"/sender/status", 1, c.handleSenderStatus)
	client.Subscribe(prefix+"/sender/list", 1, c.handleSenderList)
	client.Subscribe(prefix+"/sender/blackout", 1, c.handleSenderBlackout)
	client.Subscribe(prefix+"/sender/blackout/+", 1, c.handleSenderBlackout)
	client.Subscribe(prefix+"/sender/remove/+", 1, c.handleSenderRemove)
	client.Subscribe(prefix+"/config/show", 1, c.handleConfigShow)
	client.Subscribe(prefix+"/config/reload", 1, c.handleConfigReload)
	client.Subscribe(prefix+"/config/save", 1, c.handleConfigSave)

	for _, name := range c.sequences() {
		client.Subscribe(name, 1, c.handlePlaySequence)
	}
}

func (c *Client) publish(topic string, payload []byte) {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	c.client.Publish(topic, 0, false, payload)
}

func (c *Client) handleSetChannel(client mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		c.logger.Warn("invalid channel in topic", "topic", msg.Topic())
		return
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(msg.Payload())))
	if err != nil || v < 0 || v > 255 {
		c.logger.Warn("invalid channel value payload", "topic", msg.Topic(), "payload", string(msg.Payload()))
		return
	}
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "set_channel", Channel: n, Value: uint8(v)})
	if resp.Type != "error" {
		c.lastUpdate.Store(ChannelUpdate{Channel: n, Value: uint8(v), At: time.Now()})
	}
	c.logResponse(msg.Topic(), resp)
}

func (c *Client) handlePlayScene(client mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	name := parts[len(parts)-1]
	transition := 0.0
	if payload := strings.TrimSpace(string(msg.Payload())); payload != "" {
		if v, err := strconv.ParseFloat(payload, 64); err == nil {
			transition = v
		}
	}
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "play_scene", ID: name, TransitionSeconds: transition})
	c.logResponse(msg.Topic(), resp)
}

func (c *Client) handlePlaySequence(client mqtt.Client, msg mqtt.Message) {
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "play_sequence", ID: msg.Topic()})
	c.logResponse(msg.Topic(), resp)
}

func (c *Client) handleSenderStatus(client mqtt.Client, msg mqtt.Message) {
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "sender_status"})
	data, _ := json.Marshal(resp)
	c.publish(c.cfg.TopicPrefix+"/sender/status/reply", data)
}

func (c *Client) handleSenderList(client mqtt.Client, msg mqtt.Message) {
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "sender_list"})
	data, _ := json.Marshal(resp)
	c.publish(c.cfg.TopicPrefix+"/sender/list/reply", data)
}

func (c *Client) handleSenderBlackout(client mqtt.Client, msg mqtt.Message) {
	name := topicSuffixAfter(msg.Topic(), c.cfg.TopicPrefix+"/sender/blackout")
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "sender_blackout", SenderName: name})
	c.logResponse(msg.Topic(), resp)
}

func (c *Client) handleSenderRemove(client mqtt.Client, msg mqtt.Message) {
	name := topicSuffixAfter(msg.Topic(), c.cfg.TopicPrefix+"/sender/remove")
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "sender_remove", SenderName: name})
	c.logResponse(msg.Topic(), resp)
}

func (c *Client) handleConfigShow(client mqtt.Client, msg mqtt.Message) {
	resp := c.dispatcher.Handle(dispatch.Request{Cmd: "scenes_list"})
	data, _ := json.Marshal(resp)
	c.publish(c.cfg.TopicPrefix+"/config/show/reply", data)
}

func (c *Client) handleConfigReload(client mqtt.Client, msg mqtt.Message) {
	c.logger.Info("config reload requested via MQTT")
	c.Resubscribe()
}

func (c *Client) handleConfigSave(client mqtt.Client, msg mqtt.Message) {
	c.logger.Info("config save requested via MQTT")
}

func (c *Client) logResponse(topic string, resp dispatch.Response) {
	if resp.Type == "error" {
		c.logger.Warn("MQTT command failed", "topic", topic, "error", resp.Error)
	}
}

func topicSuffixAfter(topic, prefix string) string {
	suffix := strings.TrimPrefix(topic, prefix)
	return strings.TrimPrefix(suffix, "/")
}
