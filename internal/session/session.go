/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package session wires the deck, theme, render registry, export pipeline and
// generation client into one editing session. All collaborators are injected;
// there is no package-level state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"carouselstudio/internal/config"
	"carouselstudio/internal/deck"
	"carouselstudio/internal/export"
	"carouselstudio/internal/generate"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/render"
	"carouselstudio/internal/telemetry"
	"carouselstudio/internal/textlayout"
	"carouselstudio/internal/theme"
	"carouselstudio/internal/undo"
)

// DefaultDays is the carousel length used when the caller passes 0.
const DefaultDays = 5

// Generator is the slide generation backend; *generate.Client implements it.
type Generator interface {
	Generate(ctx context.Context, topic string, days int, apiKey string) ([]deck.Slide, error)
	GenerateIdeas(ctx context.Context, topic, apiKey string) ([]string, error)
}

// Options carries the injected collaborators. Generator and Sink are required.
type Options struct {
	Generator Generator
	Sink      export.Sink
	Keys      config.KeyStore     // nil keeps the key in memory only
	Images    render.ImageSource  // nil renders without pictures
	Fonts     textlayout.Provider // nil uses the bundled fonts
	Telemetry telemetry.Recorder  // nil drops events
	Export    export.Options
	// AutoBind mounts a surface for every slide whenever a deck is installed.
	AutoBind bool
}

// Session is safe for concurrent use.
type Session struct {
	deck     *deck.Deck
	registry *render.Registry
	theme    *theme.Store
	pipeline *export.Pipeline
	gen      Generator
	keys     config.KeyStore
	images   render.ImageSource
	fonts    textlayout.Provider
	events   telemetry.Recorder
	history  *undo.History
	autoBind bool
	log      *slog.Logger

	mu        sync.Mutex
	topic     string
	apiKey    string
	ratio     export.AspectRatio
	logoStyle render.LogoStyle
	logoSize  int
	genSeq    uint64
	genCancel context.CancelCauseFunc

	editMu sync.Mutex // serializes edits with their history entries
}

// New builds a session and loads the stored API key. A key store failure is
// logged and leaves the key empty.
func New(opts Options) (*Session, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("session: generator is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("session: export sink is required")
	}
	reg := render.NewRegistry()
	s := &Session{
		deck:      deck.New(reg),
		registry:  reg,
		theme:     theme.NewStore(),
		pipeline:  export.NewPipeline(reg, opts.Sink, opts.Export),
		gen:       opts.Generator,
		keys:      opts.Keys,
		images:    opts.Images,
		fonts:     opts.Fonts,
		events:    opts.Telemetry,
		history:   undo.NewHistory(undo.Config{MaxPerSlide: 100, Coalesce: 750 * time.Millisecond}),
		autoBind:  opts.AutoBind,
		log:       applog.WithComponent("session"),
		ratio:     export.Ratio4x5,
		logoStyle: render.LogoOriginal,
		logoSize:  render.DefaultLogoSize,
	}
	if s.keys == nil {
		s.keys = &config.MemoryKeyStore{}
	}
	if s.events == nil {
		s.events = telemetry.Nop{}
	}
	if k, err := s.keys.Get(); err != nil {
		s.log.Warn("api key not loaded", slog.Any("err", err))
	} else {
		s.apiKey = k
	}
	return s, nil
}

func (s *Session) Deck() *deck.Deck { return s.deck }
func (s *Session) Theme() *theme.Store { return s.theme }
func (s *Session) Registry() *render.Registry { return s.registry }
func (s *Session) Pipeline() *export.Pipeline { return s.pipeline }

func (s *Session) SetTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic = topic
}

func (s *Session) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// SetAPIKey updates the key and persists it; the in-memory value is kept even
// when persisting fails.
func (s *Session) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()
	if err := s.keys.Set(key); err != nil {
		s.log.Warn("api key not persisted", slog.Any("err", err))
		return fmt.Errorf("persist api key: %w", err)
	}
	return nil
}

func (s *Session) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// HasAPIKey reports whether a key is set, without exposing it.
func (s *Session) HasAPIKey() bool { return s.APIKey() != "" }

// Generate replaces the deck with a freshly generated one for the current
// topic. An empty topic is a no-op. A newer call cancels an older one still in
// flight; the older call then fails with generate.ErrSuperseded and never
// installs its result. On any failure the deck is left as it was.
func (s *Session) Generate(ctx context.Context, days int) error {
	if days <= 0 {
		days = DefaultDays
	}
	s.mu.Lock()
	topic := strings.TrimSpace(s.topic)
	if topic == "" {
		s.mu.Unlock()
		s.log.Debug("generate ignored: empty topic")
		return nil
	}
	if s.genCancel != nil {
		s.genCancel(generate.ErrSuperseded)
	}
	gctx, cancel := context.WithCancelCause(ctx)
	s.genSeq++
	seq := s.genSeq
	s.genCancel = cancel
	key := s.apiKey
	s.mu.Unlock()
	defer cancel(nil)

	l := applog.WithOperation(s.log, "generate").With(slog.Int("days", days), slog.Uint64("seq", seq))
	start := time.Now()
	slides, err := s.gen.Generate(gctx, topic, days, key)

	s.mu.Lock()
	current := seq == s.genSeq
	if current {
		s.genCancel = nil
	}
	if err == nil && !current {
		err = &generate.Error{Kind: generate.KindSuperseded, Err: generate.ErrSuperseded}
	}
	if err == nil {
		// installed under s.mu so a newer call cannot interleave
		s.deck.SetDeck(slides)
		s.history.Clear()
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, generate.ErrSuperseded) {
			l.Info("generation superseded")
		} else {
			l.Error("generation failed", slog.Any("err", err))
			s.events.Event(telemetry.EventGenerateFailed, map[string]any{"kind": kindOf(err)})
		}
		return err
	}
	l.Info("deck installed", slog.Int("slides", len(slides)), slog.Duration("took", time.Since(start)))
	s.events.Event(telemetry.EventGenerate, map[string]any{
		"days":   days,
		"slides": len(slides),
		"ms":     time.Since(start).Milliseconds(),
	})
	if s.autoBind {
		s.BindSurfaces()
	}
	return nil
}

func kindOf(err error) string {
	for _, k := range []generate.Kind{generate.KindNetwork, generate.KindStatus, generate.KindMalformed, generate.KindTimeout} {
		if generate.IsKind(err, k) {
			return k.String()
		}
	}
	return "unknown"
}

// Ideas asks the backend for topic suggestions based on the current topic.
func (s *Session) Ideas(ctx context.Context) ([]string, error) {
	return s.gen.GenerateIdeas(ctx, strings.TrimSpace(s.Topic()), s.APIKey())
}

// LoadDeck installs slides directly, e.g. from a saved JSON file.
func (s *Session) LoadDeck(slides []deck.Slide) {
	s.deck.SetDeck(slides)
	s.history.Clear()
	if s.autoBind {
		s.BindSurfaces()
	}
}

// Edit sets one field of slide i. Only an edit the deck applied becomes an
// undo step.
func (s *Session) Edit(i int, field deck.Field, value string) {
	group := ""
	if field == deck.FieldContent || field == deck.FieldImagePrompt {
		group = string(field) // typing coalesces
	}
	s.edit(i, group, func() bool { return s.deck.UpdateField(i, field, value) })
}

func (s *Session) CycleLayout(i int) {
	s.edit(i, "", func() bool { return s.deck.CycleLayout(i) })
}

func (s *Session) SetCustomImage(i int, url string) {
	s.edit(i, "", func() bool { return s.deck.SetCustomImage(i, url) })
}

func (s *Session) ToggleLogoVisibility(i int) {
	s.edit(i, "", func() bool { return s.deck.ToggleLogoVisibility(i) })
}

// Undo reverts the last edit of slide i; false when there is nothing to undo.
func (s *Session) Undo(i int) bool { return s.step(i, s.history.Undo) }

// Redo reapplies the last undone edit of slide i.
func (s *Session) Redo(i int) bool { return s.step(i, s.history.Redo) }

// edit applies fn and records the state slide i had before it, if fn applied.
func (s *Session) edit(i int, group string, fn func() bool) {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	before, ok := s.deck.Slide(i)
	if !ok {
		fn() // logged by the deck
		return
	}
	if !fn() {
		return
	}
	b, err := json.Marshal(before)
	if err != nil {
		s.log.Debug("edit history skipped", slog.Int("slide.index", i), slog.Any("err", err))
		return
	}
	s.history.Record(undo.Entry{Slide: i, State: b, TS: time.Now(), Group: group})
}

func (s *Session) step(i int, op func(int, []byte) ([]byte, bool)) bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	cur, ok := s.deck.Slide(i)
	if !ok {
		return false
	}
	b, err := json.Marshal(cur)
	if err != nil {
		return false
	}
	prev, ok := op(i, b)
	if !ok {
		return false
	}
	var sl deck.Slide
	if err := json.Unmarshal(prev, &sl); err != nil {
		s.log.Warn("history state unreadable", slog.Int("slide.index", i), slog.Any("err", err))
		return false
	}
	return s.deck.ReplaceSlide(i, sl)
}

// BindSurfaces mounts a live surface for every slide.
func (s *Session) BindSurfaces() {
	n := s.deck.Len()
	for i := 0; i < n; i++ {
		s.BindSurface(i)
	}
}

// BindSurface mounts slide i; a virtualized view binds only what it shows.
func (s *Session) BindSurface(i int) {
	s.registry.Bind(i, render.NewSlideSurface(i, s.deck, s.theme, s, s.images, s.fonts))
}

// UnbindSurface releases slide i.
func (s *Session) UnbindSurface(i int) { s.registry.Bind(i, nil) }

// SetAspectRatio accepts "4:5", "1:1" or "16:9"; anything else is rejected.
func (s *Session) SetAspectRatio(v string) error {
	r, err := export.ParseAspectRatio(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratio = r
	return nil
}

func (s *Session) AspectRatio() export.AspectRatio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratio
}

func (s *Session) SetLogoStyle(v string) error {
	st, err := render.ParseLogoStyle(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoStyle = st
	return nil
}

// SetLogoSize clamps px into the supported range.
func (s *Session) SetLogoSize(px int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoSize = render.ClampLogoSize(px)
}

// Look implements render.LookReader.
func (s *Session) Look() render.Look {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, h := s.ratio.Dims()
	return render.Look{Width: w, Height: h, LogoStyle: s.logoStyle, LogoSize: s.logoSize}
}

// ExportSlide writes slide i as a PNG.
func (s *Session) ExportSlide(ctx context.Context, i int) (*export.Artifact, error) {
	art, err := s.pipeline.ExportSlideImage(ctx, s.Topic(), i)
	if err != nil {
		s.events.Event(telemetry.EventExportFailed, map[string]any{"target": "slide"})
		return nil, err
	}
	s.events.Event(telemetry.EventExportSlide, map[string]any{"bytes": art.Size})
	return art, nil
}

// ExportDocument writes the whole deck as a PDF at the current aspect ratio.
// An empty deck yields (nil, nil).
func (s *Session) ExportDocument(ctx context.Context) (*export.Document, error) {
	ratio := s.AspectRatio()
	doc, err := s.pipeline.ExportDeckDocument(ctx, s.Topic(), ratio)
	if err != nil {
		s.events.Event(telemetry.EventExportFailed, map[string]any{"target": "document"})
		return nil, err
	}
	if doc != nil {
		s.events.Event(telemetry.EventExportDocument, map[string]any{
			"ratio":   string(ratio),
			"pages":   doc.Pages,
			"skipped": len(doc.Skipped),
		})
	}
	return doc, nil
}

// CrashSnapshot implements crash.Snapshotter.
func (s *Session) CrashSnapshot() ([]byte, error) {
	return json.MarshalIndent(s.deck.Slides(), "", "  ")
}

// CrashInfo implements crash.Snapshotter. The topic and key are left out.
func (s *Session) CrashInfo() map[string]string {
	th := s.theme.Snapshot()
	return map[string]string{
		"Slides":      strconv.Itoa(s.deck.Len()),
		"Bound":       strconv.Itoa(s.registry.Bound()),
		"AspectRatio": string(s.AspectRatio()),
		"Preset":      string(th.Preset),
	}
}
