/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestClient_EventAndUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var events [][]byte
	var crashes [][]byte

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		events = append(events, b)
		mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		crashes = append(crashes, b)
		mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}
	c.Event(EventGenerate, map[string]any{"slides": 5})
	c.Flush(context.Background())
	c.UploadCrash([]byte("STACKTRACE"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		ne, nc := len(events), len(crashes)
		mu.Unlock()
		if ne > 0 && nc > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("events=%d crashes=%d", ne, nc)
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Close()

	var m struct {
		Name  string         `json:"name"`
		TS    string         `json:"ts"`
		Run   string         `json:"run"`
		Props map[string]any `json:"props"`
	}
	mu.Lock()
	defer mu.Unlock()
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m.Name != EventGenerate || m.TS == "" || m.Run == "" {
		t.Fatalf("event = %+v", m)
	}
	if m.Props["slides"] != float64(5) {
		t.Fatalf("props = %v", m.Props)
	}
	if string(crashes[0]) != "STACKTRACE" {
		t.Fatalf("crash body = %q", crashes[0])
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))
	c.Close()

	c2 := New(Config{OptIn: true, EventsURL: srv.URL})
	c2.Event("", nil)
	c2.Flush(nil)
	c2.Close()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

func TestClient_SendErrorsAreDropped(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	c.Close()
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("CAROUSEL_TELEMETRY_OPT_IN", "yes")
	t.Setenv("CAROUSEL_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("CAROUSEL_CRASH_UPLOAD_URL", "")
	t.Setenv("CAROUSEL_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv = %+v", cfg)
	}
	c := New(cfg)
	defer c.Close()
	SetDefault(c)
	if !Default().Enabled() {
		t.Fatalf("default client should be enabled")
	}
	var r Recorder = Nop{}
	r.Event("x", nil)
}
