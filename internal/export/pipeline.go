/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns bound render surfaces into PNG slides and a PDF deck.
// Exports are single-flight: a second call while one runs is rejected.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/render"
)

var (
	// ErrTargetNotReady means the slide has no bound render surface.
	ErrTargetNotReady = errors.New("render target not ready")
	// ErrAlreadyInProgress means another export is running.
	ErrAlreadyInProgress = errors.New("export already in progress")
)

// State of the most recent export.
type State int

const (
	Idle State = iota
	InProgress
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Targets is the read side of the render registry; its length mirrors the deck.
type Targets interface {
	Len() int
	Get(i int) (render.Surface, bool)
}

// Artifact describes a saved slide image.
type Artifact struct {
	Index    int
	Name     string
	Location string
	Width    int // pixels
	Height   int
	Size     int // bytes
}

// Document describes a saved deck PDF.
type Document struct {
	Name     string
	Location string
	Ratio    AspectRatio
	Pages    int
	Skipped  []int // slide indices without a bound surface
	Size     int
}

// Options tunes a Pipeline.
type Options struct {
	// Scale overrides Oversampling when > 0.
	Scale int
	// StrictDocument makes ExportDeckDocument fail with ErrTargetNotReady on
	// the first unbound slide instead of skipping it.
	StrictDocument bool
}

// Pipeline exports from a Targets registry into a Sink. It never mutates
// deck or theme state.
type Pipeline struct {
	targets Targets
	sink    Sink
	opts    Options
	sem     *semaphore.Weighted
	log     *slog.Logger

	mu      sync.Mutex
	state   State
	lastErr error
}

func NewPipeline(targets Targets, sink Sink, opts Options) *Pipeline {
	if opts.Scale <= 0 {
		opts.Scale = Oversampling
	}
	return &Pipeline{
		targets: targets,
		sink:    sink,
		opts:    opts,
		sem:     semaphore.NewWeighted(1),
		log:     applog.WithComponent("export"),
	}
}

// State returns the state of the latest export and its error, if it failed.
func (p *Pipeline) State() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.lastErr
}

// SetStrictDocument switches the unbound-slide policy of document export.
func (p *Pipeline) SetStrictDocument(strict bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.StrictDocument = strict
}

func (p *Pipeline) begin() bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	p.running()
	return true
}

func (p *Pipeline) running() {
	p.mu.Lock()
	p.state, p.lastErr = InProgress, nil
	p.mu.Unlock()
}

func (p *Pipeline) finish(err error) {
	p.mu.Lock()
	if err != nil {
		p.state, p.lastErr = Failed, err
	} else {
		p.state = Completed
	}
	p.mu.Unlock()
	p.sem.Release(1)
}

// ExportSlideImage rasterizes slide i at the oversampling factor and saves it
// as <topic>_slide_<i+1>.png. An unbound slide fails with ErrTargetNotReady
// and nothing is saved.
func (p *Pipeline) ExportSlideImage(ctx context.Context, topic string, i int) (art *Artifact, err error) {
	if !p.begin() {
		return nil, ErrAlreadyInProgress
	}
	defer func() { p.finish(err) }()

	l := applog.WithOperation(p.log, "export_slide").With(slog.Int("slide.index", i))
	surf, ok := p.targets.Get(i)
	if !ok {
		l.Warn("slide has no render target")
		return nil, fmt.Errorf("slide %d: %w", i+1, ErrTargetNotReady)
	}
	start := time.Now()
	img, err := surf.Rasterize(ctx, p.opts.Scale)
	if err != nil {
		l.Error("rasterize failed", slog.Any("err", err))
		return nil, fmt.Errorf("rasterize slide %d: %w", i+1, err)
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	name := SlideFileName(topic, i)
	loc, err := p.sink.Save(ctx, name, data)
	if err != nil {
		l.Error("save failed", slog.Any("err", err))
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	b := img.Bounds()
	l.Info("slide exported", slog.String("file", loc), slog.Duration("took", time.Since(start)))
	return &Artifact{Index: i, Name: name, Location: loc, Width: b.Dx(), Height: b.Dy(), Size: len(data)}, nil
}

// ExportDeckDocument renders every bound slide, in index order, into one PDF
// page each and saves <topic>_carousel.pdf. An empty deck is a no-op that
// returns (nil, nil). Unbound slides are skipped unless StrictDocument is set.
func (p *Pipeline) ExportDeckDocument(ctx context.Context, topic string, ratio AspectRatio) (doc *Document, err error) {
	if !p.sem.TryAcquire(1) {
		return nil, ErrAlreadyInProgress
	}
	n := p.targets.Len()
	if n == 0 {
		// guard, not an export: state stays as it was
		p.sem.Release(1)
		return nil, nil
	}
	p.running()
	defer func() { p.finish(err) }()

	p.mu.Lock()
	strict := p.opts.StrictDocument
	p.mu.Unlock()

	l := applog.WithOperation(p.log, "export_document").With(slog.String("ratio", string(ratio)), slog.Int("slides", n))
	start := time.Now()
	pdf := newPDFDoc(ratio, topic)
	var skipped []int
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		surf, ok := p.targets.Get(i)
		if !ok {
			if strict {
				l.Warn("unbound slide in strict mode", slog.Int("slide.index", i))
				return nil, fmt.Errorf("slide %d: %w", i+1, ErrTargetNotReady)
			}
			l.Debug("skipping unbound slide", slog.Int("slide.index", i))
			skipped = append(skipped, i)
			continue
		}
		img, err := surf.Rasterize(ctx, p.opts.Scale)
		if err != nil {
			l.Error("rasterize failed", slog.Int("slide.index", i), slog.Any("err", err))
			return nil, fmt.Errorf("rasterize slide %d: %w", i+1, err)
		}
		if err := p.appendPage(pdf, img); err != nil {
			return nil, err
		}
	}
	name := DocumentFileName(topic)
	if pdf.pages == 0 {
		// nothing bound: no pages means no file
		l.Warn("no bound slides, document not written", slog.Int("skipped", len(skipped)))
		return &Document{Name: name, Ratio: ratio, Skipped: skipped}, nil
	}
	data, err := pdf.bytes()
	if err != nil {
		return nil, err
	}
	loc, err := p.sink.Save(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	l.Info("document exported", slog.String("file", loc), slog.Int("pages", pdf.pages), slog.Int("skipped", len(skipped)), slog.Duration("took", time.Since(start)))
	return &Document{Name: name, Location: loc, Ratio: ratio, Pages: pdf.pages, Skipped: skipped, Size: len(data)}, nil
}

func (p *Pipeline) appendPage(pdf *pdfDoc, img image.Image) error {
	data, err := encodePNG(img)
	if err != nil {
		return err
	}
	return pdf.addPage(data)
}
