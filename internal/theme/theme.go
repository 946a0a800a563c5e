/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package theme holds the session's visual preset: background, accent colour,
// font family, logo and brand line. Presets never touch the logo.
package theme

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	applog "carouselstudio/internal/log"
)

// PresetName identifies a built-in look.
type PresetName string

const (
	PresetModern     PresetName = "modern"
	PresetBold       PresetName = "bold"
	PresetMinimal    PresetName = "minimal"
	PresetGlassLight PresetName = "glass-light"
	PresetGlassDark  PresetName = "glass-dark"
	PresetNeon       PresetName = "neon"
	PresetLuxury     PresetName = "luxury"
	PresetSunset     PresetName = "sunset"
)

// Font is one of the supported slide font families.
type Font string

const (
	FontInter           Font = "Inter"
	FontRoboto          Font = "Roboto"
	FontPlayfairDisplay Font = "Playfair Display"
	FontOutfit          Font = "Outfit"
	FontSpaceGrotesk    Font = "Space Grotesk"
)

// Fonts lists the supported families.
var Fonts = []Font{FontInter, FontRoboto, FontPlayfairDisplay, FontOutfit, FontSpaceGrotesk}

// ParseFont matches a family name case-insensitively.
func ParseFont(s string) (Font, bool) {
	for _, f := range Fonts {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, true
		}
	}
	return "", false
}

// Preset is the fixed triple applied by ApplyPreset.
type Preset struct {
	Background string
	Primary    string
	Font       Font
}

var presets = map[PresetName]Preset{
	PresetModern:  {Background: "#FFFFFF", Primary: "#2563EB", Font: FontInter},
	PresetBold:    {Background: "#0F172A", Primary: "#F43F5E", Font: FontInter},
	PresetMinimal: {Background: "#F8FAFC", Primary: "#1E293B", Font: FontRoboto},
	PresetGlassLight: {
		Background: "linear-gradient(135deg, #e0c3fc 0%, #8ec5fc 100%)",
		Primary:    "#FFFFFF",
		Font:       FontOutfit,
	},
	PresetGlassDark: {
		Background: "radial-gradient(circle at 50% -20%, #2b0042 0%, #000000 100%)",
		Primary:    "#9D4EDD",
		Font:       FontSpaceGrotesk,
	},
	PresetNeon: {
		Background: "linear-gradient(to right, #000000, #130f40)",
		Primary:    "#00d2ff",
		Font:       FontSpaceGrotesk,
	},
	PresetLuxury: {
		Background: "linear-gradient(to top, #09203f 0%, #537895 100%)",
		Primary:    "#D4AF37",
		Font:       FontPlayfairDisplay,
	},
	PresetSunset: {
		Background: "linear-gradient(135deg, #431407 0%, #7c2d12 50%, #ea580c 100%)",
		Primary:    "#FACC15",
		Font:       FontOutfit,
	},
}

// LookupPreset returns the fixed values of name.
func LookupPreset(name PresetName) (Preset, bool) {
	p, ok := presets[PresetName(strings.ToLower(string(name)))]
	return p, ok
}

// PresetNames returns all preset names sorted.
func PresetNames() []PresetName {
	out := make([]PresetName, 0, len(presets))
	for n := range presets {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Theme is a snapshot of the store. Preset names the last preset applied; the
// individual setters do not reset it.
type Theme struct {
	Preset      PresetName
	Background  string
	Primary     string
	Font        Font
	LogoURL     string
	BrandName   string
	BrandHandle string
}

// HasBranding reports whether the footer should be drawn at all.
func (t Theme) HasBranding() bool {
	return t.BrandName != "" || t.BrandHandle != "" || t.LogoURL != ""
}

// Default matches the editor's start-up look: the glass-dark preset.
func Default() Theme {
	p := presets[PresetGlassDark]
	return Theme{Preset: PresetGlassDark, Background: p.Background, Primary: p.Primary, Font: p.Font}
}

// Store is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	cur Theme
	log *slog.Logger
}

// NewStore returns a store initialised to Default().
func NewStore() *Store {
	return &Store{cur: Default(), log: applog.WithComponent("theme")}
}

// Snapshot returns the current values.
func (s *Store) Snapshot() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// ApplyPreset sets background, primary and font from the named preset in one step.
// Unknown names are ignored.
func (s *Store) ApplyPreset(name PresetName) {
	p, ok := LookupPreset(name)
	if !ok {
		s.log.Debug("unknown preset ignored", slog.String("preset", string(name)))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Preset = PresetName(strings.ToLower(string(name)))
	s.cur.Background = p.Background
	s.cur.Primary = p.Primary
	s.cur.Font = p.Font
}

func (s *Store) SetPrimaryColor(c string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Primary = c
}

func (s *Store) SetBackgroundStyle(css string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Background = css
}

func (s *Store) SetFont(f Font) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Font = f
}

// SetLogoURL sets the logo overlay; it is independent of the preset.
func (s *Store) SetLogoURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.LogoURL = strings.TrimSpace(u)
}

// SetBrand sets the footer name and handle.
func (s *Store) SetBrand(name, handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.BrandName = strings.TrimSpace(name)
	s.cur.BrandHandle = strings.TrimSpace(handle)
}
