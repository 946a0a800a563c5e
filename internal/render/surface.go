/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"strings"

	"carouselstudio/internal/deck"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/textlayout"
	"carouselstudio/internal/theme"
)

// ErrDetached is returned when a surface's slide index no longer exists.
var ErrDetached = errors.New("slide no longer in deck")

// SlideReader is the read side of the deck.
type SlideReader interface {
	Slide(i int) (deck.Slide, bool)
}

// ThemeReader is the read side of the theme store.
type ThemeReader interface {
	Snapshot() theme.Theme
}

// LookReader supplies the export look at rasterization time.
type LookReader interface {
	Look() Look
}

// ImageSource resolves slide images; *imagesource.Source implements it.
type ImageSource interface {
	SlideImageRef(s deck.Slide, i int) (string, bool)
	Fetch(ctx context.Context, ref string) (image.Image, error)
}

// Look is the session-wide export look.
type Look struct {
	Width, Height int // logical page size
	LogoStyle     LogoStyle
	LogoSize      int
}

// StaticLook is a fixed LookReader.
type StaticLook Look

func (l StaticLook) Look() Look { return Look(l) }

// SlideSurface renders slide Index from live deck and theme state, so a bound
// surface always reflects the latest edits.
type SlideSurface struct {
	Index  int
	Slides SlideReader
	Theme  ThemeReader
	Look   LookReader
	Images ImageSource         // nil renders no pictures
	Fonts  textlayout.Provider // nil uses the bundled Go fonts
	log    *slog.Logger
}

func NewSlideSurface(i int, slides SlideReader, th ThemeReader, look LookReader, images ImageSource, fonts textlayout.Provider) *SlideSurface {
	return &SlideSurface{
		Index:  i,
		Slides: slides,
		Theme:  th,
		Look:   look,
		Images: images,
		Fonts:  fonts,
		log:    applog.WithComponent("render").With(slog.Int("slide.index", i)),
	}
}

var defaultFonts = textlayout.NewFontLibrary()

func (s *SlideSurface) Size() (int, int) {
	l := s.Look.Look()
	return l.Width, l.Height
}

var (
	slate900     = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
	white        = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black        = color.RGBA{A: 0xff}
	fallbackBG   = theme.Background{Kind: theme.Solid, Color: slate900}
	fallbackTint = color.RGBA{R: 0x9d, G: 0x4e, B: 0xdd, A: 0xff}
)

// Layout metrics in logical pixels.
const (
	cardInset   = 16.0
	cardRadius  = 12.0
	padX        = 24.0
	padTop      = 24.0
	labelSize   = 10.0
	bodySize    = 20.0
	visualSize  = 24.0
	splitBandH  = 128.0
	pictureR    = 8.0
	footerPad   = 16.0
	nameSize    = 12.0
	handleSize  = 9.0
	chartLabel  = 11.0
	chartBarH   = 8.0
	chartRowGap = 10.0
	lineSpacing = 1.25
	minPictureH = 24.0
)

// Rasterize paints the slide at scale× its logical size.
func (s *SlideSurface) Rasterize(ctx context.Context, scale int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale < 1 {
		scale = 1
	}
	sl, ok := s.Slides.Slide(s.Index)
	if !ok {
		return nil, ErrDetached
	}
	th := s.Theme.Snapshot()
	lk := s.Look.Look()
	if lk.Width <= 0 || lk.Height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", lk.Width, lk.Height)
	}
	p := &painter{
		s:     s,
		ctx:   ctx,
		c:     newCanvas(lk.Width, lk.Height, scale),
		slide: sl,
		th:    th,
		look:  lk,
		fonts: s.Fonts,
		log:   s.logger(),
	}
	if p.fonts == nil {
		p.fonts = defaultFonts
	}
	p.paint()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.c.img, nil
}

func (s *SlideSurface) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return applog.WithComponent("render").With(slog.Int("slide.index", s.Index))
}

type painter struct {
	s     *SlideSurface
	ctx   context.Context
	c     *canvas
	slide deck.Slide
	th    theme.Theme
	look  Look
	fonts textlayout.Provider
	log   *slog.Logger

	ink     color.RGBA // body text colour
	accent  color.RGBA
	dark    bool
	picture image.Image
	hasPic  bool
}

func (p *painter) font(size float64, weight int) textlayout.FontSpec {
	return textlayout.FontSpec{Family: string(p.th.Font), SizePx: size, Weight: weight}
}

func (p *painter) paint() {
	bg, err := theme.ParseBackground(p.th.Background)
	if err != nil {
		p.log.Debug("background not understood, using fallback", slog.String("background", p.th.Background), slog.Any("err", err))
		bg = fallbackBG
	}
	p.dark = bg.IsDark()
	p.ink = slate900
	if p.dark {
		p.ink = white
	}
	if p.accent, err = theme.ParseColor(p.th.Primary); err != nil {
		p.accent = fallbackTint
	}
	p.c.background(bg)

	card := rect{w: p.c.w, h: p.c.h}.inset(cardInset)
	cardTint := color.RGBA{A: 26} // black/10
	if !p.dark {
		cardTint = color.RGBA{R: 38, G: 38, B: 38, A: 38} // white/15
	}
	p.c.shade(card, cardRadius, cardTint, constAlpha(1))

	layout := p.slide.Layout()
	p.loadPicture()

	if layout == deck.LayoutVisual && p.hasPic {
		p.c.picture(card, cardRadius, p.picture, 0.6)
		// from-black via-black/50 to-transparent, bottom to top
		p.c.shade(card, cardRadius, black, func(t float64) float64 { return t })
	}

	contentBottom := card.bottom()
	if p.showFooter() {
		contentBottom = p.footer(card)
	}

	y := p.topBar(card, layout == deck.LayoutVisual)
	content := rect{x: card.x + padX, y: y + 8, w: card.w - 2*padX, h: contentBottom - 8 - (y + 8)}

	switch layout {
	case deck.LayoutVisual:
		h := p.c.measure(p.fonts, p.font(visualSize, 700), p.slide.Content, content.w, lineSpacing)
		p.c.text(p.fonts, p.font(visualSize, 700), p.slide.Content, content.x, content.bottom()-32-h, content.w, lineSpacing, textlayout.AlignLeft, white)
	case deck.LayoutSplit:
		if p.hasPic {
			p.c.picture(rect{x: content.x, y: content.y, w: content.w, h: splitBandH}, pictureR, p.picture, 1)
			content.y += splitBandH + 16
		}
		p.body(content)
	case deck.LayoutInfographic:
		y := content.y + p.body(content) + 16
		p.chart(rect{x: content.x, y: y, w: content.w, h: content.bottom() - y})
	default:
		y := content.y + p.body(content) + 16
		pic := rect{x: content.x, y: y, w: content.w, h: content.bottom() - y}
		if p.hasPic && pic.h >= minPictureH {
			p.c.picture(pic, pictureR, p.picture, 0.9)
			bottomHalf := rect{x: pic.x, y: pic.y + pic.h/2, w: pic.w, h: pic.h / 2}
			// to-transparent from black/80
			p.c.shade(bottomHalf, pictureR, black, func(t float64) float64 { return 0.8 * t })
		}
	}
}

// body draws the slide text and returns its height.
func (p *painter) body(r rect) float64 {
	return p.c.text(p.fonts, p.font(bodySize, 700), p.slide.Content, r.x, r.y, r.w, lineSpacing, textlayout.AlignLeft, p.ink)
}

// topBar draws "STEP n" and the accent dot; it returns the bar's bottom edge.
func (p *painter) topBar(card rect, onPicture bool) float64 {
	y := card.y + padTop
	label := fmt.Sprintf("STEP %d", p.s.Index+1)
	col := color.NRGBA{R: p.accent.R, G: p.accent.G, B: p.accent.B, A: 204} // opacity-80
	if onPicture {
		// text shadow
		p.c.line(p.fonts, p.font(labelSize, 900), label, card.x+padX+0.5, y+1.5, card.w-2*padX, color.NRGBA{A: 160})
	}
	p.c.line(p.fonts, p.font(labelSize, 900), label, card.x+padX, y, card.w-2*padX, col)
	lh := labelSize * 1.5
	p.c.disc(card.right()-padX-3, y+lh/2, 6, p.accent)
	return y + lh + 8
}

func (p *painter) showFooter() bool {
	return p.th.HasBranding() && !p.slide.HideLogo
}

// footer draws the branding strip and returns its top edge.
func (p *painter) footer(card rect) float64 {
	size := float64(p.logoSize())
	h := size + 2*footerPad
	r := rect{x: card.x, y: card.bottom() - h, w: card.w, h: h}
	// black/20 strip with a white/5 top border
	p.c.shade(r, 0, color.RGBA{A: 51}, constAlpha(1))
	border := color.RGBA{R: 13, G: 13, B: 13, A: 13}
	p.c.shade(rect{x: r.x, y: r.y, w: r.w, h: 1}, 0, border, constAlpha(1))

	dev := int(math.Round(size * p.c.k))
	logo := p.logo(dev)
	p.c.stamp(r.x+footerPad, r.y+footerPad, logo)

	tx := r.x + footerPad + size + 12
	tw := r.right() - footerPad - tx
	mid := r.y + h/2
	p.c.line(p.fonts, p.font(nameSize, 700), p.th.BrandName, tx, mid-nameSize-1, tw, p.ink)
	handle := color.NRGBA{R: p.ink.R, G: p.ink.G, B: p.ink.B, A: 153} // opacity-60
	p.c.line(p.fonts, p.font(handleSize, 400), p.th.BrandHandle, tx, mid+2, tw, handle)
	return r.y
}

func (p *painter) logoSize() int {
	if p.look.LogoSize == 0 {
		return DefaultLogoSize
	}
	return ClampLogoSize(p.look.LogoSize)
}

func (p *painter) logo(dev int) image.Image {
	ref := strings.TrimSpace(p.th.LogoURL)
	if ref == "" || p.s.Images == nil {
		return placeholderLogo(dev)
	}
	img, err := p.s.Images.Fetch(p.ctx, ref)
	if err != nil {
		p.log.Warn("logo unavailable", slog.Any("err", err))
		return placeholderLogo(dev)
	}
	style := p.look.LogoStyle
	if style == "" {
		style = LogoOriginal
	}
	return styleLogo(img, dev, style)
}

// loadPicture resolves the slide image. Failures leave a tinted placeholder.
func (p *painter) loadPicture() {
	if p.s.Images == nil {
		return
	}
	ref, ok := p.s.Images.SlideImageRef(p.slide, p.s.Index)
	if !ok {
		return
	}
	p.hasPic = true
	img, err := p.s.Images.Fetch(p.ctx, ref)
	if err != nil {
		p.log.Warn("slide image unavailable, using placeholder", slog.Any("err", err))
		p.picture = tile(color.NRGBA{R: p.accent.R, G: p.accent.G, B: p.accent.B, A: 51})
		return
	}
	p.picture = img
}

// tile is a small finite swatch that can be cover-scaled like a picture.
func tile(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// chart draws one labelled horizontal bar per data point, scaled to the
// largest value. Rows that do not fit are dropped.
func (p *painter) chart(r rect) {
	pts := p.slide.DataPoints()
	if len(pts) == 0 {
		if p.hasPic && r.h >= minPictureH {
			side := math.Min(r.w, r.h)
			p.c.picture(rect{x: r.x + (r.w-side)/2, y: r.y, w: side, h: side}, pictureR, p.picture, 1)
		}
		return
	}
	maxV := 0.0
	for _, dp := range pts {
		maxV = math.Max(maxV, math.Abs(dp.Value))
	}
	rowH := chartLabel*1.4 + 4 + chartBarH + chartRowGap
	labelCol := color.NRGBA{R: p.ink.R, G: p.ink.G, B: p.ink.B, A: 204}
	track := color.RGBA{R: p.ink.R / 10, G: p.ink.G / 10, B: p.ink.B / 10, A: 25}
	y := r.y
	for _, dp := range pts {
		if y+rowH-chartRowGap > r.bottom() {
			break
		}
		val := formatValue(dp.Value)
		vw := textlayout.Measure(p.fonts.Face(textlayout.FontSpec{Family: string(p.th.Font), SizePx: chartLabel * p.c.k, Weight: 700}), val) / p.c.k
		p.c.line(p.fonts, p.font(chartLabel, 400), dp.Label, r.x, y, r.w-vw-8, labelCol)
		p.c.line(p.fonts, p.font(chartLabel, 700), val, r.right()-vw, y, vw+1, p.ink)
		by := y + chartLabel*1.4 + 4
		p.c.shade(rect{x: r.x, y: by, w: r.w, h: chartBarH}, chartBarH/2, track, constAlpha(1))
		if maxV > 0 {
			fw := r.w * math.Abs(dp.Value) / maxV
			p.c.shade(rect{x: r.x, y: by, w: fw, h: chartBarH}, chartBarH/2, p.accent, constAlpha(1))
		}
		y += rowH
	}
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
