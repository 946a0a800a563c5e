/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"

	"carouselstudio/internal/textlayout"
	"carouselstudio/internal/theme"
)

// canvas paints in logical pixels onto a device image of size*k.
type canvas struct {
	img  *image.RGBA
	k    float64
	w, h float64 // logical size
}

func newCanvas(w, h, scale int) *canvas {
	return &canvas{
		img: image.NewRGBA(image.Rect(0, 0, w*scale, h*scale)),
		k:   float64(scale),
		w:   float64(w),
		h:   float64(h),
	}
}

type rect struct{ x, y, w, h float64 }

func (r rect) right() float64  { return r.x + r.w }
func (r rect) bottom() float64 { return r.y + r.h }

func (r rect) inset(d float64) rect {
	return rect{x: r.x + d, y: r.y + d, w: math.Max(0, r.w-2*d), h: math.Max(0, r.h-2*d)}
}

func (c *canvas) dev(r rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.x*c.k)), int(math.Round(r.y*c.k)),
		int(math.Round(r.right()*c.k)), int(math.Round(r.bottom()*c.k)),
	).Intersect(c.img.Bounds())
}

func (c *canvas) background(bg theme.Background) {
	b := c.img.Bounds()
	if bg.Kind == theme.Solid {
		draw.Draw(c.img, b, image.NewUniform(bg.Color), image.Point{}, draw.Src)
		return
	}
	W, H := float64(b.Dx()), float64(b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c.img.SetRGBA(x, y, bg.ColorAt(float64(x)+0.5, float64(y)+0.5, W, H))
		}
	}
}

// shade draws col through a rounded-rect mask whose alpha per row is
// alphaAt(t), t running 0 at the top edge to 1 at the bottom.
func (c *canvas) shade(r rect, radius float64, col color.RGBA, alphaAt func(t float64) float64) {
	dr := c.dev(r)
	if dr.Empty() {
		return
	}
	mask := roundedMask(dr.Dx(), dr.Dy(), radius*c.k, alphaAt)
	draw.DrawMask(c.img, dr, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
}

func constAlpha(a float64) func(float64) float64 { return func(float64) float64 { return a } }

// picture draws img cover-fitted into r, clipped to rounded corners, at opacity.
func (c *canvas) picture(r rect, radius float64, img image.Image, opacity float64) {
	dr := c.dev(r)
	if dr.Empty() {
		return
	}
	tmp := image.NewRGBA(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	coverInto(tmp, tmp.Bounds(), img)
	mask := roundedMask(dr.Dx(), dr.Dy(), radius*c.k, constAlpha(opacity))
	draw.DrawMask(c.img, dr, tmp, image.Point{}, mask, image.Point{}, draw.Over)
}

// stamp draws a pre-rendered device image at logical (x, y).
func (c *canvas) stamp(x, y float64, img image.Image) {
	p := image.Pt(int(math.Round(x*c.k)), int(math.Round(y*c.k)))
	draw.Draw(c.img, img.Bounds().Sub(img.Bounds().Min).Add(p), img, img.Bounds().Min, draw.Over)
}

func (c *canvas) disc(cx, cy, d float64, col color.RGBA) {
	c.shade(rect{x: cx - d/2, y: cy - d/2, w: d, h: d}, d/2, col, constAlpha(1))
}

// text wraps s into width and draws it at (x, y); it returns the block
// height in logical pixels.
func (c *canvas) text(fonts textlayout.Provider, spec textlayout.FontSpec, s string, x, y, width, spacing float64, align textlayout.Align, col color.Color) float64 {
	spec.SizePx *= c.k
	face := fonts.Face(spec)
	b := textlayout.Wrap(face, s, width*c.k, spacing)
	textlayout.Draw(c.img, face, b, x*c.k, y*c.k, width*c.k, align, col)
	return b.Height / c.k
}

// measure wraps without drawing and returns the logical height.
func (c *canvas) measure(fonts textlayout.Provider, spec textlayout.FontSpec, s string, width, spacing float64) float64 {
	spec.SizePx *= c.k
	return textlayout.Wrap(fonts.Face(spec), s, width*c.k, spacing).Height / c.k
}

// line draws s on one line, truncated with an ellipsis to fit width.
func (c *canvas) line(fonts textlayout.Provider, spec textlayout.FontSpec, s string, x, y, width float64, col color.Color) {
	spec.SizePx *= c.k
	face := fonts.Face(spec)
	s = ellipsize(face, s, width*c.k)
	b := textlayout.Wrap(face, s, 0, 1)
	textlayout.Draw(c.img, face, b, x*c.k, y*c.k, width*c.k, textlayout.AlignLeft, col)
}

func roundedMask(w, h int, radius float64, alphaAt func(t float64) float64) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	radius = math.Min(radius, math.Min(float64(w), float64(h))/2)
	for y := 0; y < h; y++ {
		a := math.Max(0, math.Min(1, alphaAt((float64(y)+0.5)/float64(h))))
		if a == 0 {
			continue
		}
		for x := 0; x < w; x++ {
			cov := 1.0
			if radius > 0 {
				px, py := float64(x)+0.5, float64(y)+0.5
				qx := math.Max(radius-px, px-(float64(w)-radius))
				qy := math.Max(radius-py, py-(float64(h)-radius))
				if qx > 0 && qy > 0 {
					cov = coverage(radius, qx*qx+qy*qy)
				}
			}
			m.Pix[y*m.Stride+x] = uint8(math.Round(255 * a * cov))
		}
	}
	return m
}

func ellipsize(face font.Face, s string, maxW float64) string {
	if maxW <= 0 || textlayout.Measure(face, s) <= maxW {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if t := string(r) + "…"; textlayout.Measure(face, t) <= maxW {
			return t
		}
	}
	return ""
}
