/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package theme

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// BackgroundKind discriminates Background.
type BackgroundKind int

const (
	Solid BackgroundKind = iota
	Linear
	Radial
)

// Stop is a gradient colour stop; Pos is in [0,1].
type Stop struct {
	Color color.RGBA
	Pos   float64
}

// Background is the parsed form of a CSS background descriptor.
// Only the subset used by the presets and the colour pickers is understood:
// hex colours, linear-gradient(<angle>|to <side>, stops...) and
// radial-gradient(circle at X% Y%, stops...).
type Background struct {
	Kind  BackgroundKind
	Color color.RGBA // Solid
	Angle float64    // Linear, CSS degrees (0 = to top, clockwise)
	CX    float64    // Radial centre as a fraction of width
	CY    float64    // Radial centre as a fraction of height
	Stops []Stop
}

var sideAngles = map[string]float64{
	"top": 0, "right": 90, "bottom": 180, "left": 270,
	"top right": 45, "right top": 45, "bottom right": 135, "right bottom": 135,
	"bottom left": 225, "left bottom": 225, "top left": 315, "left top": 315,
}

// ParseBackground parses css into a Background.
func ParseBackground(css string) (Background, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(css), ";"))
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "linear-gradient(") && strings.HasSuffix(lower, ")"):
		args := splitArgs(s[len("linear-gradient(") : len(s)-1])
		bg := Background{Kind: Linear, Angle: 180}
		if len(args) > 0 {
			a := strings.ToLower(args[0])
			if strings.HasSuffix(a, "deg") {
				v, err := strconv.ParseFloat(strings.TrimSuffix(a, "deg"), 64)
				if err != nil {
					return Background{}, fmt.Errorf("gradient angle %q: %w", args[0], err)
				}
				bg.Angle = v
				args = args[1:]
			} else if strings.HasPrefix(a, "to ") {
				v, ok := sideAngles[strings.Join(strings.Fields(a[3:]), " ")]
				if !ok {
					return Background{}, fmt.Errorf("gradient direction %q", args[0])
				}
				bg.Angle = v
				args = args[1:]
			}
		}
		stops, err := parseStops(args)
		if err != nil {
			return Background{}, err
		}
		bg.Stops = stops
		return bg, nil
	case strings.HasPrefix(lower, "radial-gradient(") && strings.HasSuffix(lower, ")"):
		args := splitArgs(s[len("radial-gradient(") : len(s)-1])
		bg := Background{Kind: Radial, CX: 0.5, CY: 0.5}
		if len(args) > 0 {
			a := strings.ToLower(args[0])
			if strings.HasPrefix(a, "circle") || strings.HasPrefix(a, "ellipse") || strings.HasPrefix(a, "at ") {
				if i := strings.Index(a, "at "); i >= 0 {
					f := strings.Fields(a[i+3:])
					if len(f) >= 1 {
						bg.CX = parsePercent(f[0], 0.5)
					}
					if len(f) >= 2 {
						bg.CY = parsePercent(f[1], 0.5)
					}
				}
				args = args[1:]
			}
		}
		stops, err := parseStops(args)
		if err != nil {
			return Background{}, err
		}
		bg.Stops = stops
		return bg, nil
	default:
		c, err := ParseColor(s)
		if err != nil {
			return Background{}, err
		}
		return Background{Kind: Solid, Color: c}, nil
	}
}

// ColorAt returns the background colour at pixel (x, y) of a w×h surface.
func (b Background) ColorAt(x, y, w, h float64) color.RGBA {
	switch b.Kind {
	case Linear:
		rad := b.Angle * math.Pi / 180
		dx, dy := math.Sin(rad), -math.Cos(rad)
		length := math.Abs(w*dx) + math.Abs(h*dy)
		if length == 0 {
			return b.at(0)
		}
		t := ((x-w/2)*dx+(y-h/2)*dy)/length + 0.5
		return b.at(t)
	case Radial:
		cx, cy := b.CX*w, b.CY*h
		r := 0.0
		for _, c := range [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
			r = math.Max(r, math.Hypot(c[0]-cx, c[1]-cy))
		}
		if r == 0 {
			return b.at(0)
		}
		return b.at(math.Hypot(x-cx, y-cy) / r)
	default:
		return b.Color
	}
}

func (b Background) at(t float64) color.RGBA {
	if len(b.Stops) == 0 {
		return b.Color
	}
	if t <= b.Stops[0].Pos {
		return b.Stops[0].Color
	}
	for i := 1; i < len(b.Stops); i++ {
		lo, hi := b.Stops[i-1], b.Stops[i]
		if t <= hi.Pos {
			span := hi.Pos - lo.Pos
			if span <= 0 {
				return hi.Color
			}
			return Mix(lo.Color, hi.Color, (t-lo.Pos)/span)
		}
	}
	return b.Stops[len(b.Stops)-1].Color
}

// IsDark reports whether text on this background should be light.
func (b Background) IsDark() bool {
	c := b.Color
	if len(b.Stops) > 0 {
		c = Mix(b.Stops[0].Color, b.Stops[len(b.Stops)-1].Color, 0.5)
	}
	return Luminance(c) < 0.5
}

// Mix linearly interpolates a→b by t in [0,1].
func Mix(a, b color.RGBA, t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	lerp := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}

// Luminance is the relative luminance of c in [0,1], ignoring alpha.
func Luminance(c color.RGBA) float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

var named = map[string]color.RGBA{
	"white":       {255, 255, 255, 255},
	"black":       {0, 0, 0, 255},
	"transparent": {0, 0, 0, 0},
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa and a few keywords.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("unsupported colour %q", s)
	}
	h := s[1:]
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("bad hex colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad hex colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseStops(args []string) ([]Stop, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("gradient without colour stops")
	}
	stops := make([]Stop, len(args))
	known := make([]bool, len(args))
	for i, a := range args {
		f := strings.Fields(a)
		if len(f) == 0 {
			return nil, fmt.Errorf("empty colour stop")
		}
		c, err := ParseColor(f[0])
		if err != nil {
			return nil, err
		}
		stops[i].Color = c
		if len(f) > 1 {
			stops[i].Pos = parsePercent(f[1], 0)
			known[i] = true
		}
	}
	// CSS rules: first/last default to 0/1, gaps are spread evenly.
	if !known[0] {
		stops[0].Pos, known[0] = 0, true
	}
	if n := len(stops) - 1; !known[n] {
		stops[n].Pos, known[n] = 1, true
	}
	for i := 1; i < len(stops); i++ {
		if known[i] {
			continue
		}
		j := i
		for !known[j] {
			j++
		}
		lo, hi := stops[i-1].Pos, stops[j].Pos
		for k := i; k < j; k++ {
			stops[k].Pos = lo + (hi-lo)*float64(k-i+1)/float64(j-i+1)
			known[k] = true
		}
	}
	return stops, nil
}

func parsePercent(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return def
	}
	return v / 100
}

// splitArgs splits on commas that are not nested in parentheses.
func splitArgs(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
