/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render owns the per-slide render targets: the Surface abstraction,
// the index-aligned Registry of bound surfaces, and the SlideSurface
// compositor that paints a slide with the current theme.
package render

import (
	"context"
	"image"
	"sync"
)

// Surface is a live, rasterizable view of one slide. Size is in logical
// pixels; Rasterize returns an image of Size()*scale.
type Surface interface {
	Size() (w, h int)
	Rasterize(ctx context.Context, scale int) (image.Image, error)
}

// Registry maps slide indices to bound surfaces. Its length always equals
// the deck length after Reset; entries start unbound. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	targets []Surface
}

func NewRegistry() *Registry { return &Registry{} }

// Reset discards every handle and resizes to n unbound entries.
func (r *Registry) Reset(n int) {
	if n < 0 {
		n = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = make([]Surface, n)
}

// Bind attaches s to index i; out-of-range indices are ignored. A nil s unbinds.
func (r *Registry) Bind(i int, s Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.targets) {
		return
	}
	r.targets[i] = s
}

// Get returns the surface bound at i.
func (r *Registry) Get(i int) (Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.targets) || r.targets[i] == nil {
		return nil, false
	}
	return r.targets[i], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// Bound counts bound entries.
func (r *Registry) Bound() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.targets {
		if s != nil {
			n++
		}
	}
	return n
}
