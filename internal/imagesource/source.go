/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagesource resolves slide and logo image references to decoded
// images. Prompt images come from a prompt-to-image HTTP service; fetched bytes
// are cached in memory (freecache) and on disk (storage.ImageCache).
package imagesource

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	// decoders for image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/coocood/freecache"
	_ "golang.org/x/image/webp"

	"carouselstudio/internal/deck"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/storage"
)

// ErrOffline is returned for remote references when the source runs offline
// and the image is not cached.
var ErrOffline = errors.New("image source offline")

// Size is a requested image size in pixels.
type Size struct{ W, H int }

// Requested sizes per layout.
var (
	SizeVisual      = Size{W: 600, H: 800}
	SizeSplit       = Size{W: 600, H: 400}
	SizeClassic     = Size{W: 600, H: 600}
	SizeInfographic = Size{W: 400, H: 400}
)

// SizeFor returns the prompt image size used by layout l.
func SizeFor(l deck.Layout) Size {
	switch l {
	case deck.LayoutVisual:
		return SizeVisual
	case deck.LayoutSplit:
		return SizeSplit
	case deck.LayoutInfographic:
		return SizeInfographic
	default:
		return SizeClassic
	}
}

const maxImageBytes = 20 << 20

// memTTL is the freecache expiry in seconds.
const memTTL = 3600

// Options configures a Source.
type Options struct {
	BaseURL    string        // prompt service, e.g. https://image.pollinations.ai
	Timeout    time.Duration // per fetch
	MemoryMB   int           // 0 disables the memory tier
	Disk       *storage.ImageCache
	Offline    bool
	HTTPClient *http.Client
}

// Source fetches and decodes images. It is safe for concurrent use.
type Source struct {
	base    string
	timeout time.Duration
	client  *http.Client
	mem     *freecache.Cache
	disk    *storage.ImageCache
	offline bool
	log     *slog.Logger
}

// New builds a Source from opts.
func New(opts Options) *Source {
	s := &Source{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		client:  opts.HTTPClient,
		disk:    opts.Disk,
		offline: opts.Offline,
		log:     applog.WithComponent("imagesource"),
	}
	if s.base == "" {
		s.base = "https://image.pollinations.ai"
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if opts.MemoryMB > 0 {
		s.mem = freecache.NewCache(opts.MemoryMB * 1024 * 1024)
	}
	return s
}

// PromptURL builds the generated-image URL for prompt. The slide index is
// used as seed so the same slide renders the same picture.
func (s *Source) PromptURL(prompt string, size Size, seed int) string {
	return fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&seed=%d", s.base, escapeComponent(prompt), size.W, size.H, seed)
}

// escapeComponent percent-encodes every UTF-8 byte except A-Z a-z 0-9 and
// -_.!~*'(), the set browsers leave alone in a URI component.
func escapeComponent(v string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(v) * 3)
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			strings.IndexByte("-_.!~*'()", c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&15])
		}
	}
	return b.String()
}

// SlideImageRef returns the image reference slide index i should display:
// the custom override when set, otherwise a prompt URL sized for its layout.
// ok is false when the slide has neither.
func (s *Source) SlideImageRef(sl deck.Slide, i int) (ref string, ok bool) {
	if u, has := sl.ImageOverride(); has {
		return u, true
	}
	if strings.TrimSpace(sl.ImagePrompt) == "" {
		return "", false
	}
	return s.PromptURL(sl.ImagePrompt, SizeFor(sl.Layout()), i), true
}

// Fetch resolves ref to an image. ref may be an http(s) URL, a data: URI, a
// file:// URL or a local path.
func (s *Source) Fetch(ctx context.Context, ref string) (image.Image, error) {
	data, err := s.Bytes(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Bytes returns the raw encoded bytes behind ref.
func (s *Source) Bytes(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, errors.New("empty image reference")
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return s.remote(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("parse file url: %w", err)
		}
		return readLocal(u.Path)
	default:
		return readLocal(ref)
	}
}

func (s *Source) remote(ctx context.Context, ref string) ([]byte, error) {
	key := []byte(ref)
	if s.mem != nil {
		if b, err := s.mem.Get(key); err == nil {
			return b, nil
		}
	}
	if s.disk != nil {
		b, _, err := s.disk.Get(ctx, ref)
		if err != nil {
			s.log.Warn("disk cache read failed", slog.Any("err", err))
		} else if b != nil {
			s.remember(key, b)
			return b, nil
		}
	}
	if s.offline {
		return nil, ErrOffline
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image service error (status %d)", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("image read body: %w", err)
	}
	if len(b) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	s.log.Debug("image fetched", slog.Int("bytes", len(b)), slog.Duration("took", time.Since(start)))
	s.remember(key, b)
	if s.disk != nil {
		if err := s.disk.Put(ctx, ref, resp.Header.Get("Content-Type"), b); err != nil {
			s.log.Warn("disk cache write failed", slog.Any("err", err))
		}
	}
	return b, nil
}

func (s *Source) remember(key, b []byte) {
	if s.mem == nil {
		return
	}
	// entries larger than 1/1024 of the cache are rejected by freecache
	_ = s.mem.Set(key, b, memTTL)
}

func readLocal(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return b, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data uri base64: %w", err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data uri: %w", err)
	}
	return []byte(s), nil
}
