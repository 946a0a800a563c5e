/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// LogoStyle recolours the brand logo on export.
type LogoStyle string

const (
	LogoOriginal  LogoStyle = "original"
	LogoGrayscale LogoStyle = "grayscale"
	LogoWhite     LogoStyle = "white"
	LogoBlack     LogoStyle = "black"
)

// Logo size bounds in logical pixels.
const (
	MinLogoSize     = 20
	MaxLogoSize     = 80
	DefaultLogoSize = 32
)

// ParseLogoStyle accepts the style names case-insensitively; "" is original.
func ParseLogoStyle(s string) (LogoStyle, error) {
	switch v := LogoStyle(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return LogoOriginal, nil
	case LogoOriginal, LogoGrayscale, LogoWhite, LogoBlack:
		return v, nil
	default:
		return "", fmt.Errorf("unknown logo style %q", s)
	}
}

// ClampLogoSize bounds n to [MinLogoSize, MaxLogoSize].
func ClampLogoSize(n int) int {
	return min(max(n, MinLogoSize), MaxLogoSize)
}

// styleLogo returns src scaled to a size×size square (cover fit), recoloured
// per style and clipped to a circle.
func styleLogo(src image.Image, size int, style LogoStyle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	coverInto(dst, dst.Bounds(), src)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := dst.PixOffset(x, y)
			r, g, b, a := dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3]
			switch style {
			case LogoGrayscale:
				l := uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
				r, g, b = l, l, l
			case LogoWhite:
				// premultiplied: opaque white scaled by alpha
				r, g, b = a, a, a
			case LogoBlack:
				r, g, b = 0, 0, 0
			}
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = r, g, b
		}
	}
	clipCircle(dst)
	return dst
}

// coverInto scales src to cover rect r of dst, cropping the overflow centrally.
func coverInto(dst draw.Image, r image.Rectangle, src image.Image) {
	sb := src.Bounds()
	if sb.Empty() || r.Empty() {
		return
	}
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	rw, rh := float64(r.Dx()), float64(r.Dy())
	crop := sb
	if sw/sh > rw/rh {
		w := int(sh * rw / rh)
		x0 := sb.Min.X + (sb.Dx()-w)/2
		crop = image.Rect(x0, sb.Min.Y, x0+w, sb.Max.Y)
	} else {
		h := int(sw * rh / rw)
		y0 := sb.Min.Y + (sb.Dy()-h)/2
		crop = image.Rect(sb.Min.X, y0, sb.Max.X, y0+h)
	}
	xdraw.CatmullRom.Scale(dst, r, src, crop, xdraw.Over, nil)
}

// clipCircle zeroes pixels outside the inscribed circle, with a one pixel
// soft edge.
func clipCircle(img *image.RGBA) {
	b := img.Bounds()
	cx, cy := float64(b.Min.X+b.Max.X)/2, float64(b.Min.Y+b.Max.Y)/2
	rad := float64(min(b.Dx(), b.Dy())) / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			cov := coverage(rad, dx*dx+dy*dy)
			if cov >= 1 {
				continue
			}
			i := img.PixOffset(x, y)
			for k := 0; k < 4; k++ {
				img.Pix[i+k] = uint8(float64(img.Pix[i+k]) * cov)
			}
		}
	}
}

func coverage(rad, d2 float64) float64 {
	inner := (rad - 0.5) * (rad - 0.5)
	outer := (rad + 0.5) * (rad + 0.5)
	switch {
	case d2 <= inner:
		return 1
	case d2 >= outer:
		return 0
	default:
		return (outer - d2) / (outer - inner)
	}
}

// placeholderLogo is the neutral disc shown when branding is set without a logo.
func placeholderLogo(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		t := float64(y) / float64(max(size-1, 1))
		a := uint8(51 - 38*t) // white/20 to white/5
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{R: a, G: a, B: a, A: a})
		}
	}
	clipCircle(img)
	return img
}
