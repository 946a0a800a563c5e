/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deck

import (
	"reflect"
	"testing"
)

type countingResizer struct {
	sizes []int
}

func (c *countingResizer) Reset(n int) { c.sizes = append(c.sizes, n) }

func sampleSlides() []Slide {
	return []Slide{
		{DayOffset: 1, Content: "Hook", ImagePrompt: "a rocket"},
		{DayOffset: 2, Content: "Body", ImagePrompt: "a chart", Variant: Split{}},
		{DayOffset: 3, Content: "Stats", Variant: Infographic{DataPoints: []DataPoint{{"A", 1}, {"B", 2}}}},
	}
}

func TestSetDeckResetsTargets(t *testing.T) {
	r := &countingResizer{}
	d := New(r)
	d.SetDeck(sampleSlides())
	d.SetDeck(nil)
	d.SetDeck(sampleSlides()[:2])
	if want := []int{3, 0, 2}; !reflect.DeepEqual(r.sizes, want) {
		t.Fatalf("registry sizes = %v, want %v", r.sizes, want)
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d", d.Len())
	}
}

func TestSetDeckCopiesInput(t *testing.T) {
	d := New(nil)
	in := sampleSlides()
	d.SetDeck(in)
	in[0].Content = "mutated"
	in[2].Variant.(Infographic).DataPoints[0].Label = "Z"
	s, _ := d.Slide(0)
	if s.Content != "Hook" {
		t.Fatalf("deck aliased caller slice")
	}
	s2, _ := d.Slide(2)
	if s2.DataPoints()[0].Label != "A" {
		t.Fatalf("deck aliased data points")
	}
}

func TestUpdateField(t *testing.T) {
	d := New(nil)
	d.SetDeck(sampleSlides())

	d.UpdateField(0, FieldContent, "New hook")
	d.UpdateField(0, FieldImagePrompt, "a moon")
	d.UpdateField(0, FieldLayout, "visual")
	d.UpdateField(0, FieldHideLogo, "true")
	d.UpdateField(0, FieldCustomImage, "https://img.test/x.png")

	s, _ := d.Slide(0)
	if s.Content != "New hook" || s.ImagePrompt != "a moon" || s.Layout() != LayoutVisual || !s.HideLogo {
		t.Fatalf("fields not applied: %+v", s)
	}
	if u, ok := s.ImageOverride(); !ok || u != "https://img.test/x.png" {
		t.Fatalf("override = %q, %v", u, ok)
	}
}

func TestInvalidEditsAreNoOps(t *testing.T) {
	d := New(nil)
	d.SetDeck(sampleSlides())
	before := d.Slides()

	d.UpdateField(-1, FieldContent, "x")
	d.UpdateField(3, FieldContent, "x")
	d.UpdateField(0, FieldLayout, "carousel")
	d.UpdateField(0, FieldHideLogo, "maybe")
	d.UpdateField(0, Field("day_offset"), "9")
	d.CycleLayout(42)
	d.ToggleLogoVisibility(-5)
	d.SetCustomImage(99, "x")

	if !reflect.DeepEqual(before, d.Slides()) {
		t.Fatalf("deck changed by invalid edits")
	}
}

func TestCycleLayoutIsClosedWithPeriodFour(t *testing.T) {
	for _, start := range []Variant{nil, Classic{}, Visual{}, Split{}, Infographic{}} {
		d := New(nil)
		d.SetDeck([]Slide{{Content: "x", Variant: start}})
		s0, _ := d.Slide(0)
		seen := map[Layout]bool{}
		for i := 0; i < 4; i++ {
			d.CycleLayout(0)
			s, _ := d.Slide(0)
			seen[s.Layout()] = true
		}
		s4, _ := d.Slide(0)
		if s4.Layout() != s0.Layout() {
			t.Fatalf("start %v: after 4 cycles got %v", s0.Layout(), s4.Layout())
		}
		if len(seen) != 4 {
			t.Fatalf("start %v: visited %v", s0.Layout(), seen)
		}
	}
}

func TestCycleOrderFromAbsentLayout(t *testing.T) {
	d := New(nil)
	d.SetDeck([]Slide{{Content: "x"}})
	want := []Layout{LayoutVisual, LayoutSplit, LayoutInfographic, LayoutClassic}
	for i, w := range want {
		d.CycleLayout(0)
		s, _ := d.Slide(0)
		if s.Layout() != w {
			t.Fatalf("step %d: got %v, want %v", i, s.Layout(), w)
		}
	}
}

func TestCyclingKeepsDataPoints(t *testing.T) {
	d := New(nil)
	d.SetDeck(sampleSlides())
	for i := 0; i < 3; i++ {
		d.CycleLayout(2)
		s, _ := d.Slide(2)
		if s.DataPoints() != nil {
			t.Fatalf("%v slide exposes data points", s.Layout())
		}
	}
	d.CycleLayout(2)
	s, _ := d.Slide(2)
	if got := s.DataPoints(); len(got) != 2 || got[1].Value != 2 {
		t.Fatalf("data points lost across cycle: %v", got)
	}
}

func TestToggleLogoVisibility(t *testing.T) {
	d := New(nil)
	d.SetDeck(sampleSlides())
	d.ToggleLogoVisibility(1)
	if s, _ := d.Slide(1); !s.HideLogo {
		t.Fatalf("logo not hidden")
	}
	d.ToggleLogoVisibility(1)
	if s, _ := d.Slide(1); s.HideLogo {
		t.Fatalf("logo not restored")
	}
}

func TestReplaceSlide(t *testing.T) {
	d := New(nil)
	d.SetDeck(sampleSlides())
	d.ReplaceSlide(0, Slide{Content: "new", Variant: Visual{}})
	d.ReplaceSlide(9, Slide{Content: "ignored"})
	s, _ := d.Slide(0)
	if s.Content != "new" || s.Layout() != LayoutVisual || d.Len() != 3 {
		t.Fatalf("slide 0 = %+v", s)
	}
}

func TestMutatorsReportApplied(t *testing.T) {
	d := New(nil)
	d.SetDeck(sampleSlides())
	cases := []struct {
		name string
		got  bool
		want bool
	}{
		{"content", d.UpdateField(0, FieldContent, "x"), true},
		{"bad layout", d.UpdateField(0, FieldLayout, "bogus"), false},
		{"bad bool", d.UpdateField(0, FieldHideLogo, "maybe"), false},
		{"unknown field", d.UpdateField(0, Field("color"), "red"), false},
		{"out of range", d.CycleLayout(7), false},
		{"cycle", d.CycleLayout(0), true},
		{"toggle", d.ToggleLogoVisibility(1), true},
		{"image", d.SetCustomImage(-1, "u"), false},
		{"replace", d.ReplaceSlide(9, Slide{}), false},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: applied = %v, want %v", c.name, c.got, c.want)
		}
	}
}
