/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and line breaking for slide composition. Everything goes
// through a Provider so tests can use the fixed-width basicfont face.

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FontSpec describes a requested face.
type FontSpec struct {
	Family string  // logical family name, e.g. "Space Grotesk"
	SizePx float64 // pixel size at the target scale
	Weight int     // 100..900; >= 600 selects a bold face
	Italic bool
}

// Provider maps a FontSpec to a concrete face.
type Provider interface {
	Face(FontSpec) font.Face
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Face(FontSpec) font.Face { return basicfont.Face7x13 }

// Align is the horizontal alignment of a wrapped block.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Line is one laid out line.
type Line struct {
	Text  string
	Width float64
}

// Block is text wrapped into a column.
type Block struct {
	Lines      []Line
	Width      float64 // widest line
	Height     float64
	LineHeight float64
	Ascent     float64
}

// Wrap breaks text on spaces and newlines so that no line exceeds maxWidth.
// A single word wider than maxWidth is split between runes. maxWidth <= 0
// disables wrapping. spacing multiplies the face's natural line height.
func Wrap(face font.Face, text string, maxWidth, spacing float64) Block {
	m := face.Metrics()
	if spacing <= 0 {
		spacing = 1
	}
	b := Block{
		LineHeight: fix(m.Height) * spacing,
		Ascent:     fix(m.Ascent),
	}
	d := &font.Drawer{Face: face}
	space := fix(d.MeasureString(" "))
	push := func(s string, w float64) {
		b.Lines = append(b.Lines, Line{Text: s, Width: w})
		if w > b.Width {
			b.Width = w
		}
	}
	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		curW := 0.0
		for _, word := range strings.Fields(para) {
			w := fix(d.MeasureString(word))
			if cur.Len() > 0 && maxWidth > 0 && curW+space+w > maxWidth {
				push(cur.String(), curW)
				cur.Reset()
				curW = 0
			}
			for maxWidth > 0 && w > maxWidth && cur.Len() == 0 {
				head, rest := splitToWidth(d, word, maxWidth)
				push(head, fix(d.MeasureString(head)))
				word = rest
				w = fix(d.MeasureString(word))
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(word)
			curW += w
		}
		push(cur.String(), curW)
	}
	b.Height = b.LineHeight * float64(len(b.Lines))
	return b
}

// splitToWidth returns the longest rune prefix of s that fits maxWidth
// (at least one rune) and the remainder.
func splitToWidth(d *font.Drawer, s string, maxWidth float64) (string, string) {
	end := 0
	for i, r := range s {
		next := i + utf8.RuneLen(r)
		if end > 0 && fix(d.MeasureString(s[:next])) > maxWidth {
			break
		}
		end = next
	}
	return s[:end], s[end:]
}

// Measure returns the advance width of s without wrapping.
func Measure(face font.Face, s string) float64 {
	return fix((&font.Drawer{Face: face}).MeasureString(s))
}

// Draw paints b into dst with its top-left corner at (x, y). For AlignCenter
// each line is centred within width.
func Draw(dst draw.Image, face font.Face, b Block, x, y, width float64, align Align, col color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	for i, ln := range b.Lines {
		lx := x
		if align == AlignCenter {
			lx = x + (width-ln.Width)/2
		}
		baseline := y + b.Ascent + float64(i)*b.LineHeight
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(lx * 64), Y: fixed.Int26_6(baseline * 64)}
		d.DrawString(ln.Text)
	}
}

func fix(v fixed.Int26_6) float64 { return float64(v) / 64 }
