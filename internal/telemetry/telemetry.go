/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a tiny, privacy‑respecting, opt‑in event sender
// for anonymous usage metrics and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/version"
)

// Event names emitted by the session.
const (
	EventGenerate       = "deck_generated"
	EventGenerateFailed = "deck_generate_failed"
	EventExportSlide    = "slide_exported"
	EventExportDocument = "document_exported"
	EventExportFailed   = "export_failed"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt‑in and disabled by default.
//
// Environment variables (read by FromEnv):
// - CAROUSEL_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - CAROUSEL_TELEMETRY_URL: URL to POST JSON events to
// - CAROUSEL_CRASH_UPLOAD_URL: URL to POST crash reports to
// - CAROUSEL_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - CAROUSEL_TELEMETRY_DEBUG: if set, logs event send attempts
//
// If no URLs are set, events are dropped, even if opt‑in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("CAROUSEL_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("CAROUSEL_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("CAROUSEL_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("CAROUSEL_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("CAROUSEL_TELEMETRY_TIMEOUT_MS")); ms != "" {
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

// Recorder is what the session reports to. *Client implements it.
type Recorder interface {
	Event(name string, props map[string]any)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Event(string, map[string]any) {}

type payload struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Run     string         `json:"run"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client is a minimal async sender; it drops events silently on errors
// and never blocks the caller.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	run    string // random per process, not tied to the user
	q      chan payload
	once   sync.Once
	closed chan struct{}
	done   chan struct{}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
	defaultMu     sync.Mutex
)

// Default returns the package client, configured from env on first use.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		if defaultClient == nil {
			defaultClient = New(FromEnv())
		}
		defaultMu.Unlock()
	})
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// SetDefault replaces the package client.
func SetDefault(c *Client) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		run:    uuid.NewString(),
		q:      make(chan payload, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether telemetry is opted in and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a small JSON event if enabled. Props must not carry PII:
// counts, ratios and durations only.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	p := payload{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Run:     c.run,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		p.Props = make(map[string]any, len(props))
		for k, v := range props {
			p.Props[k] = v
		}
	}
	select {
	case c.q <- p:
	default:
		// queue full
	}
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background goroutine.
func (c *Client) Close() {
	c.once.Do(func() { close(c.closed) })
	<-c.done
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return
		case p := <-c.q:
			c.send(p)
		}
	}
}

func (c *Client) send(p payload) {
	buf, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.post(c.cfg.EventsURL, "application/json", buf, "event")
}

func (c *Client) post(url, ctype string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", ctype)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("kind", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("kind", what), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already serialized crash report if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b, "crash")
}
