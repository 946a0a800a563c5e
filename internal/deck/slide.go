/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deck

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Layout selects the composition rules of a slide.
type Layout string

const (
	LayoutClassic     Layout = "classic"
	LayoutVisual      Layout = "visual"
	LayoutSplit       Layout = "split"
	LayoutInfographic Layout = "infographic"
)

// Layouts is the cycle order used by CycleLayout.
var Layouts = []Layout{LayoutClassic, LayoutVisual, LayoutSplit, LayoutInfographic}

// ParseLayout accepts a layout name; "" maps to classic.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutClassic, nil
	case LayoutClassic, LayoutVisual, LayoutSplit, LayoutInfographic:
		return l, nil
	default:
		return "", fmt.Errorf("unknown layout %q", s)
	}
}

// Next returns the layout after l, wrapping around.
func (l Layout) Next() Layout {
	for i, c := range Layouts {
		if c == l {
			return Layouts[(i+1)%len(Layouts)]
		}
	}
	return LayoutVisual // unknown is treated as classic
}

// DataPoint is one bar of an infographic slide.
type DataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Variant carries the layout-specific part of a slide.
type Variant interface {
	Layout() Layout
	isVariant()
}

type Classic struct{}

type Visual struct{}

type Split struct{}

// Infographic is the only variant that renders data points.
type Infographic struct {
	DataPoints []DataPoint
}

func (Classic) Layout() Layout     { return LayoutClassic }
func (Visual) Layout() Layout      { return LayoutVisual }
func (Split) Layout() Layout       { return LayoutSplit }
func (Infographic) Layout() Layout { return LayoutInfographic }

func (Classic) isVariant()     {}
func (Visual) isVariant()      {}
func (Split) isVariant()       {}
func (Infographic) isVariant() {}

// Slide is one deck entry.
type Slide struct {
	DayOffset      int
	Content        string
	ImagePrompt    string
	Variant        Variant
	CustomImageURL string
	HideLogo       bool

	// parked keeps data points while the slide shows a non-infographic layout.
	parked []DataPoint
}

// Layout returns the slide's layout, classic when no variant is set.
func (s Slide) Layout() Layout {
	if s.Variant == nil {
		return LayoutClassic
	}
	return s.Variant.Layout()
}

// DataPoints returns the points rendered by an infographic slide, nil otherwise.
func (s Slide) DataPoints() []DataPoint {
	if ig, ok := s.Variant.(Infographic); ok {
		return ig.DataPoints
	}
	return nil
}

// WithLayout switches the variant to l, carrying data points across.
func (s Slide) WithLayout(l Layout) Slide {
	points := s.parked
	if ig, ok := s.Variant.(Infographic); ok {
		points = ig.DataPoints
	}
	s.parked = nil
	switch l {
	case LayoutVisual:
		s.Variant = Visual{}
	case LayoutSplit:
		s.Variant = Split{}
	case LayoutInfographic:
		s.Variant = Infographic{DataPoints: points}
		return s
	default:
		s.Variant = Classic{}
	}
	s.parked = points
	return s
}

// ImageOverride returns the user supplied image URL when set.
func (s Slide) ImageOverride() (string, bool) {
	u := strings.TrimSpace(s.CustomImageURL)
	return u, u != ""
}

func (s Slide) clone() Slide {
	cp := s
	if ig, ok := s.Variant.(Infographic); ok {
		cp.Variant = Infographic{DataPoints: append([]DataPoint(nil), ig.DataPoints...)}
	}
	cp.parked = append([]DataPoint(nil), s.parked...)
	if len(cp.parked) == 0 {
		cp.parked = nil
	}
	return cp
}

// wireSlide is the JSON shape exchanged with the generation service.
type wireSlide struct {
	DayOffset      int         `json:"day_offset"`
	Content        string      `json:"content"`
	ImagePrompt    string      `json:"image_prompt"`
	Layout         string      `json:"layout,omitempty"`
	DataPoints     []DataPoint `json:"data_points,omitempty"`
	CustomImageURL string      `json:"custom_image_url,omitempty"`
	HideLogo       bool        `json:"hide_logo,omitempty"`
}

func (s Slide) MarshalJSON() ([]byte, error) {
	w := wireSlide{
		DayOffset:      s.DayOffset,
		Content:        s.Content,
		ImagePrompt:    s.ImagePrompt,
		CustomImageURL: s.CustomImageURL,
		HideLogo:       s.HideLogo,
	}
	if s.Variant != nil {
		w.Layout = string(s.Variant.Layout())
	}
	w.DataPoints = s.DataPoints()
	if w.DataPoints == nil {
		w.DataPoints = s.parked
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the wire form; an unknown layout falls back to classic.
func (s *Slide) UnmarshalJSON(b []byte) error {
	var w wireSlide
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	l, err := ParseLayout(w.Layout)
	if err != nil {
		l = LayoutClassic
	}
	*s = Slide{
		DayOffset:      w.DayOffset,
		Content:        w.Content,
		ImagePrompt:    w.ImagePrompt,
		CustomImageURL: w.CustomImageURL,
		HideLogo:       w.HideLogo,
		parked:         w.DataPoints,
	}
	if w.Layout != "" {
		*s = s.WithLayout(l)
	}
	return nil
}
