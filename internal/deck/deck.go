/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package deck holds the ordered slides of one editing session.
//
// Mutators never fail: an index that no longer exists or a value that does not
// parse leaves the deck untouched and the mutator reports false. Stale UI references are expected while a new
// deck is being installed, so these cases are logged at debug level only.
package deck

import (
	"log/slog"
	"strconv"
	"sync"

	applog "carouselstudio/internal/log"
)

// Field names a slide attribute editable through UpdateField.
type Field string

const (
	FieldContent     Field = "content"
	FieldImagePrompt Field = "image_prompt"
	FieldLayout      Field = "layout"
	FieldCustomImage Field = "custom_image_url"
	FieldHideLogo    Field = "hide_logo"
)

// Resizer is the render target registry as seen by the deck.
type Resizer interface {
	Reset(n int)
}

// Deck is safe for concurrent use.
type Deck struct {
	mu      sync.RWMutex
	slides  []Slide
	targets Resizer
	log     *slog.Logger
}

// New returns an empty deck that keeps targets sized to its length.
// targets may be nil.
func New(targets Resizer) *Deck {
	return &Deck{targets: targets, log: applog.WithComponent("deck")}
}

// SetDeck replaces every slide and resets the render targets to len(slides) unbound entries.
func (d *Deck) SetDeck(slides []Slide) {
	cp := make([]Slide, len(slides))
	for i, s := range slides {
		cp[i] = s.clone()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slides = cp
	if d.targets != nil {
		d.targets.Reset(len(cp))
	}
	d.log.Debug("deck replaced", slog.Int("slides", len(cp)))
}

// Len returns the number of slides.
func (d *Deck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.slides)
}

// Slide returns a copy of slide i.
func (d *Deck) Slide(i int) (Slide, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.slides) {
		return Slide{}, false
	}
	return d.slides[i].clone(), true
}

// Slides returns a copy of the whole deck.
func (d *Deck) Slides() []Slide {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Slide, len(d.slides))
	for i, s := range d.slides {
		out[i] = s.clone()
	}
	return out
}

// UpdateField sets one attribute of slide i from its textual value. It reports
// whether the edit was applied.
func (d *Deck) UpdateField(i int, field Field, value string) bool {
	return d.mutate(i, string(field), func(s *Slide) bool {
		switch field {
		case FieldContent:
			s.Content = value
		case FieldImagePrompt:
			s.ImagePrompt = value
		case FieldCustomImage:
			s.CustomImageURL = value
		case FieldLayout:
			l, err := ParseLayout(value)
			if err != nil {
				return false
			}
			*s = s.WithLayout(l)
		case FieldHideLogo:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return false
			}
			s.HideLogo = b
		default:
			return false
		}
		return true
	})
}

// CycleLayout advances slide i to the next layout in Layouts.
func (d *Deck) CycleLayout(i int) bool {
	return d.mutate(i, "cycle_layout", func(s *Slide) bool {
		*s = s.WithLayout(s.Layout().Next())
		return true
	})
}

// SetCustomImage overrides the generated image of slide i; "" restores it.
func (d *Deck) SetCustomImage(i int, url string) bool {
	return d.UpdateField(i, FieldCustomImage, url)
}

// ToggleLogoVisibility flips the per-slide logo suppression.
func (d *Deck) ToggleLogoVisibility(i int) bool {
	return d.mutate(i, "toggle_logo", func(s *Slide) bool {
		s.HideLogo = !s.HideLogo
		return true
	})
}

// ReplaceSlide swaps slide i for s; used to restore history states.
func (d *Deck) ReplaceSlide(i int, s Slide) bool {
	cp := s.clone()
	return d.mutate(i, "replace", func(cur *Slide) bool {
		*cur = cp
		return true
	})
}

func (d *Deck) mutate(i int, op string, fn func(*Slide) bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.slides) {
		d.log.Debug("edit ignored: index out of range", slog.String("op", op), slog.Int("index", i), slog.Int("len", len(d.slides)))
		return false
	}
	s := d.slides[i]
	if !fn(&s) {
		d.log.Debug("edit ignored: invalid value", slog.String("op", op), slog.Int("index", i))
		return false
	}
	d.slides[i] = s
	return true
}
