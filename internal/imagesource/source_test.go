/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagesource

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"carouselstudio/internal/deck"
	"carouselstudio/internal/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPromptURL(t *testing.T) {
	s := New(Options{BaseURL: "https://image.pollinations.ai/"})
	got := s.PromptURL("AI robot & coffee", SizeClassic, 2)
	want := "https://image.pollinations.ai/prompt/AI%20robot%20%26%20coffee?width=600&height=600&nologo=true&seed=2"
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestEscapeComponentMatchesBrowser(t *testing.T) {
	cases := map[string]string{
		"Don't (ever) stop! *now* ~ok": "Don't%20(ever)%20stop!%20*now*%20~ok",
		"café/ä?x=1#y":                 "caf%C3%A9%2F%C3%A4%3Fx%3D1%23y",
		"a+b 100%":                     "a%2Bb%20100%25",
		"🚀":                            "%F0%9F%9A%80",
	}
	for in, want := range cases {
		if got := escapeComponent(in); got != want {
			t.Errorf("escapeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlideImageRef(t *testing.T) {
	s := New(Options{BaseURL: "http://img"})
	sl := deck.Slide{ImagePrompt: "city", Variant: deck.Visual{}}
	ref, ok := s.SlideImageRef(sl, 0)
	if !ok || ref != "http://img/prompt/city?width=600&height=800&nologo=true&seed=0" {
		t.Fatalf("visual ref = %q %v", ref, ok)
	}
	sl = sl.WithLayout(deck.LayoutSplit)
	if ref, _ := s.SlideImageRef(sl, 4); ref != "http://img/prompt/city?width=600&height=400&nologo=true&seed=4" {
		t.Fatalf("split ref = %q", ref)
	}
	sl.CustomImageURL = "https://example.com/own.png"
	if ref, _ := s.SlideImageRef(sl, 4); ref != "https://example.com/own.png" {
		t.Fatalf("override ref = %q", ref)
	}
	if _, ok := s.SlideImageRef(deck.Slide{}, 0); ok {
		t.Fatal("slide without prompt should have no image")
	}
}

func TestFetchCachesInMemory(t *testing.T) {
	body := pngBytes(t, 4, 4)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()
	s := New(Options{BaseURL: srv.URL, MemoryMB: 1})
	ref := s.PromptURL("x", SizeClassic, 0)
	for i := 0; i < 3; i++ {
		img, err := s.Fetch(context.Background(), ref)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if img.Bounds().Dx() != 4 {
			t.Fatalf("bounds = %v", img.Bounds())
		}
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("server hits = %d, want 1", n)
	}
}

func TestFetchUsesDiskCacheWhenOffline(t *testing.T) {
	body := pngBytes(t, 2, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	disk, err := storage.OpenImageCache(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer disk.Close()

	online := New(Options{BaseURL: srv.URL, Disk: disk})
	ref := online.PromptURL("cached", SizeSplit, 1)
	if _, err := online.Fetch(context.Background(), ref); err != nil {
		t.Fatalf("online fetch: %v", err)
	}
	srv.Close()

	offline := New(Options{BaseURL: srv.URL, Disk: disk, Offline: true})
	img, err := offline.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("offline fetch: %v", err)
	}
	if img.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if _, err := offline.Fetch(context.Background(), offline.PromptURL("never", SizeSplit, 1)); !errors.Is(err, ErrOffline) {
		t.Fatalf("err = %v, want ErrOffline", err)
	}
}

func TestFetchStatusAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("seed") == "1" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	s := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if _, err := s.Fetch(context.Background(), s.PromptURL("a", SizeClassic, 0)); err == nil {
		t.Fatal("expected status error")
	}
	if _, err := s.Fetch(context.Background(), s.PromptURL("a", SizeClassic, 1)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestFetchDataURIAndLocalFile(t *testing.T) {
	body := pngBytes(t, 5, 5)
	s := New(Options{})
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(body)
	if img, err := s.Fetch(context.Background(), uri); err != nil || img.Bounds().Dx() != 5 {
		t.Fatalf("data uri: %v", err)
	}
	p := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(p, body, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Fetch(context.Background(), p); err != nil {
		t.Fatalf("local path: %v", err)
	}
	if _, err := s.Fetch(context.Background(), "file://"+filepath.ToSlash(p)); err != nil {
		t.Fatalf("file url: %v", err)
	}
	if _, err := s.Fetch(context.Background(), "data:image/png;base64"); err == nil {
		t.Fatal("expected malformed data uri error")
	}
	if _, err := s.Fetch(context.Background(), ""); err == nil {
		t.Fatal("expected empty ref error")
	}
}
