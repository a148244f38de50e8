/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry posts opt-in command events and crash reports. Everything
// is disabled by default; with no endpoint configured every call is a no-op,
// and a full queue or failed request drops the event rather than blocking the
// command.
package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "roibridge/internal/log"
	"roibridge/internal/version"
)

// Config is read from the environment:
//
//	ROIB_TELEMETRY_OPT_IN      "1", "true", "yes" or "on" enables events
//	ROIB_TELEMETRY_URL         endpoint for JSON command events
//	ROIB_CRASH_UPLOAD_URL      endpoint for plain-text crash reports
//	ROIB_TELEMETRY_TIMEOUT_MS  request timeout, default 1500
//	ROIB_TELEMETRY_DEBUG       log each send attempt when set
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
	Debug     bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv("ROIB_TELEMETRY_OPT_IN")),
		EventsURL: strings.TrimSpace(os.Getenv("ROIB_TELEMETRY_URL")),
		CrashURL:  strings.TrimSpace(os.Getenv("ROIB_CRASH_UPLOAD_URL")),
		Timeout:   1500 * time.Millisecond,
		Debug:     os.Getenv("ROIB_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("ROIB_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// event is the wire form of one command event.
type event struct {
	Name    string         `json:"name"`
	Time    string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client sends events from a bounded queue on a background goroutine.
type Client struct {
	cfg      Config
	log      *slog.Logger
	http     *http.Client
	queue    chan event
	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:   cfg,
		log:   applog.WithComponent("telemetry"),
		http:  &http.Client{Timeout: cfg.Timeout},
		queue: make(chan event, 64),
		stop:  make(chan struct{}),
	}
	go c.run()
	return c
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault builds the package-level client from the environment on first
// use; later calls are no-ops.
func InitDefault() {
	defaultOnce.Do(func() { defaultClient = New(FromEnv()) })
}

// Enabled reports whether command events would actually be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a command event. Props must not carry user data; the queue
// drops the event when full.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := event{
		Name:    name,
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   props,
	}
	select {
	case c.queue <- ev:
	default:
	}
}

// Event queues a command event on the default client.
func Event(name string, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// Close stops the sender goroutine. Queued events are dropped.
func (c *Client) Close() { c.stopOnce.Do(func() { close(c.stop) }) }

func (c *Client) run() {
	for {
		select {
		case <-c.stop:
			return
		case ev := <-c.queue:
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			c.post(c.cfg.EventsURL, "application/json", body, "event")
		}
	}
}

// UploadCrash posts a serialized crash report when crash uploads are opted
// in. It returns immediately; the upload runs on its own goroutine because
// the process is usually about to exit.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	body := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", body, "crash report")
}

// UploadCrash posts a crash report via the default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		if c.cfg.Debug {
			c.log.Debug("telemetry post failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.Debug {
		c.log.Debug("telemetry posted", slog.String("what", what))
	}
}
