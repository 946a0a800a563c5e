/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package theme

import (
	"image/color"
	"sync"
	"testing"
)

func TestDefaultIsGlassDark(t *testing.T) {
	s := NewStore()
	got := s.Snapshot()
	p, _ := LookupPreset(PresetGlassDark)
	if got.Background != p.Background || got.Primary != p.Primary || got.Font != p.Font {
		t.Fatalf("default theme = %+v, want glass-dark values", got)
	}
}

func TestApplyPresetSetsTripleAndKeepsLogo(t *testing.T) {
	s := NewStore()
	s.SetLogoURL("https://example.com/logo.png")
	s.SetBrand("Acme", "@acme")
	s.ApplyPreset(PresetNeon)
	got := s.Snapshot()
	if got.Background != "linear-gradient(to right, #000000, #130f40)" {
		t.Fatalf("background = %q", got.Background)
	}
	if got.Primary != "#00d2ff" || got.Font != FontSpaceGrotesk {
		t.Fatalf("primary/font = %q/%q", got.Primary, got.Font)
	}
	if got.LogoURL != "https://example.com/logo.png" {
		t.Fatalf("logo changed by preset: %q", got.LogoURL)
	}
	if got.BrandName != "Acme" || got.BrandHandle != "@acme" {
		t.Fatalf("brand changed by preset: %+v", got)
	}
	if got.Preset != PresetNeon {
		t.Fatalf("preset = %q", got.Preset)
	}
}

func TestApplyUnknownPresetIsNoop(t *testing.T) {
	s := NewStore()
	s.ApplyPreset(PresetLuxury)
	before := s.Snapshot()
	s.ApplyPreset("vaporwave")
	if after := s.Snapshot(); after != before {
		t.Fatalf("unknown preset changed theme: %+v -> %+v", before, after)
	}
}

func TestApplyPresetCaseInsensitive(t *testing.T) {
	s := NewStore()
	s.ApplyPreset("MODERN")
	if got := s.Snapshot(); got.Primary != "#2563EB" || got.Preset != PresetModern {
		t.Fatalf("got %+v", got)
	}
}

func TestIndividualSettersLeavePresetName(t *testing.T) {
	s := NewStore()
	s.ApplyPreset(PresetBold)
	s.SetPrimaryColor("#00ff00")
	s.SetBackgroundStyle("#111111")
	s.SetFont(FontRoboto)
	got := s.Snapshot()
	if got.Preset != PresetBold {
		t.Fatalf("preset = %q", got.Preset)
	}
	if got.Primary != "#00ff00" || got.Background != "#111111" || got.Font != FontRoboto {
		t.Fatalf("setters not applied: %+v", got)
	}
}

func TestPresetNamesSorted(t *testing.T) {
	names := PresetNames()
	if len(names) != 8 {
		t.Fatalf("len = %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("not sorted: %v", names)
		}
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.ApplyPreset(PresetSunset) }()
		go func() { defer wg.Done(); _ = s.Snapshot() }()
	}
	wg.Wait()
}

func TestParseFont(t *testing.T) {
	if f, ok := ParseFont("playfair display"); !ok || f != FontPlayfairDisplay {
		t.Fatalf("got %q %v", f, ok)
	}
	if _, ok := ParseFont("Comic Sans"); ok {
		t.Fatal("unexpected match")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
	}{
		{"#fff", color.RGBA{255, 255, 255, 255}},
		{"#2563EB", color.RGBA{0x25, 0x63, 0xeb, 0xff}},
		{"#00000080", color.RGBA{0, 0, 0, 0x80}},
		{"black", color.RGBA{0, 0, 0, 255}},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %v want %v", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"", "#12", "rgb(1,2,3)", "#zzzzzz"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestParseBackgroundPresets(t *testing.T) {
	for _, name := range PresetNames() {
		p, _ := LookupPreset(name)
		if _, err := ParseBackground(p.Background); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestLinearGradientEndpoints(t *testing.T) {
	bg, err := ParseBackground("linear-gradient(to top, #000000 0%, #ffffff 100%)")
	if err != nil {
		t.Fatal(err)
	}
	if bg.Kind != Linear || bg.Angle != 0 {
		t.Fatalf("got %+v", bg)
	}
	// "to top": bottom edge is the first stop.
	if c := bg.ColorAt(50, 100, 100, 100); c.R != 0 {
		t.Fatalf("bottom = %v", c)
	}
	if c := bg.ColorAt(50, 0, 100, 100); c.R != 255 {
		t.Fatalf("top = %v", c)
	}
	mid := bg.ColorAt(50, 50, 100, 100)
	if mid.R < 120 || mid.R > 135 {
		t.Fatalf("middle = %v", mid)
	}
}

func TestStopsDistributedEvenly(t *testing.T) {
	bg, err := ParseBackground("linear-gradient(to right, #000, #888, #fff)")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, 1}
	for i, s := range bg.Stops {
		if s.Pos != want[i] {
			t.Fatalf("stop %d pos = %v", i, s.Pos)
		}
	}
	if bg.Angle != 90 {
		t.Fatalf("angle = %v", bg.Angle)
	}
}

func TestRadialCentre(t *testing.T) {
	bg, err := ParseBackground("radial-gradient(circle at 50% -20%, #2b0042 0%, #000000 100%)")
	if err != nil {
		t.Fatal(err)
	}
	if bg.Kind != Radial || bg.CX != 0.5 || bg.CY != -0.2 {
		t.Fatalf("got %+v", bg)
	}
	top := bg.ColorAt(50, 0, 100, 100)
	bottom := bg.ColorAt(0, 100, 100, 100)
	if Luminance(top) <= Luminance(bottom) {
		t.Fatalf("expected glow near the top: top=%v bottom=%v", top, bottom)
	}
	if !bg.IsDark() {
		t.Fatal("glass-dark background should be dark")
	}
}

func TestSolidBackground(t *testing.T) {
	bg, err := ParseBackground("#F8FAFC")
	if err != nil {
		t.Fatal(err)
	}
	if bg.Kind != Solid || bg.IsDark() {
		t.Fatalf("got %+v", bg)
	}
	if _, err := ParseBackground("url(x.png)"); err == nil {
		t.Fatal("expected error for unsupported background")
	}
}
