/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package undo keeps per-slide edit history for the session. Entries are
// opaque encoded slide states captured before each edit.
package undo

import (
	"sync"
	"time"
)

// Entry is one reversible state of a slide.
type Entry struct {
	Slide int
	State []byte
	TS    time.Time
	// Group lets consecutive entries with the same non-empty value coalesce.
	Group string
}

// Config bounds memory and depth, and sets the coalescing window.
type Config struct {
	// MaxBytes is a soft cap across all slides; oldest entries go first.
	MaxBytes int
	// MaxPerSlide limits undo depth per slide (0 means unlimited).
	MaxPerSlide int
	// Coalesce merges edits of the same slide closer together than this,
	// so typing a sentence is one undo step.
	Coalesce time.Duration
}

// History is safe for concurrent use.
type History struct {
	cfg  Config
	mu   sync.Mutex
	undo map[int][]Entry
	redo map[int][]Entry
	size int
}

func NewHistory(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 << 20
	}
	if cfg.Coalesce < 0 {
		cfg.Coalesce = 0
	}
	return &History{cfg: cfg, undo: make(map[int][]Entry), redo: make(map[int][]Entry)}
}

// Record stores the state a slide had before an edit and drops its redo
// entries. Inside the coalescing window the older state is kept.
func (h *History) Record(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropRedoLocked(e.Slide)
	stack := h.undo[e.Slide]
	if n := len(stack); n > 0 && h.coalesces(stack[n-1], e) {
		// keep the older state, extend the window
		stack[n-1].TS = e.TS
		return
	}
	h.undo[e.Slide] = append(stack, e)
	h.size += len(e.State)
	h.enforceLocked(e.Slide)
}

func (h *History) coalesces(last, e Entry) bool {
	return h.cfg.Coalesce > 0 && e.Group != "" && e.Group == last.Group && e.TS.Sub(last.TS) < h.cfg.Coalesce
}

// Undo swaps current for the last recorded state of slide i. current is
// what the slide holds now; it becomes the redo entry.
func (h *History) Undo(i int, current []byte) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.undo[i]
	if len(stack) == 0 {
		return nil, false
	}
	prev := stack[len(stack)-1]
	h.undo[i] = stack[:len(stack)-1]
	h.size -= len(prev.State)
	h.redo[i] = append(h.redo[i], Entry{Slide: i, State: current, TS: time.Now()})
	h.size += len(current)
	return prev.State, true
}

// Redo reverses the last Undo of slide i.
func (h *History) Redo(i int, current []byte) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.redo[i]
	if len(r) == 0 {
		return nil, false
	}
	next := r[len(r)-1]
	h.redo[i] = r[:len(r)-1]
	h.size -= len(next.State)
	// zero TS so a following Record never coalesces into it
	h.undo[i] = append(h.undo[i], Entry{Slide: i, State: current})
	h.size += len(current)
	h.enforceLocked(i)
	return next.State, true
}

func (h *History) CanUndo(i int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo[i]) > 0
}

func (h *History) CanRedo(i int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo[i]) > 0
}

// Clear forgets everything; used when a new deck is installed.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = make(map[int][]Entry)
	h.redo = make(map[int][]Entry)
	h.size = 0
}

// Stats reports memory use and depth for diagnostics.
func (h *History) Stats() (bytes, slides, entries int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.undo {
		if len(v) > 0 {
			slides++
		}
		entries += len(v)
	}
	return h.size, slides, entries
}

func (h *History) dropRedoLocked(i int) {
	for _, e := range h.redo[i] {
		h.size -= len(e.State)
	}
	delete(h.redo, i)
}

func (h *History) enforceLocked(i int) {
	if h.cfg.MaxPerSlide > 0 {
		stack := h.undo[i]
		if extra := len(stack) - h.cfg.MaxPerSlide; extra > 0 {
			for _, e := range stack[:extra] {
				h.size -= len(e.State)
			}
			h.undo[i] = append([]Entry(nil), stack[extra:]...)
		}
	}
	// global cap: drop the oldest bottom entry across slides
	for h.size > h.cfg.MaxBytes {
		victim := -1
		var oldest time.Time
		for s, stack := range h.undo {
			if len(stack) == 0 {
				continue
			}
			if victim == -1 || stack[0].TS.Before(oldest) {
				victim, oldest = s, stack[0].TS
			}
		}
		if victim == -1 {
			break
		}
		stack := h.undo[victim]
		h.size -= len(stack[0].State)
		if len(stack) == 1 {
			delete(h.undo, victim)
		} else {
			h.undo[victim] = stack[1:]
		}
	}
}
