/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores loaded OpenType fonts mapped by family/weight/italic and
// caches sized faces. Families that were never loaded resolve to the bundled
// Go fonts, so slides always render.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[fontKey]*opentype.Font
	faces map[faceKey]font.Face
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

type faceKey struct {
	fontKey
	size float64
}

var (
	goOnce    sync.Once
	goRegular *opentype.Font
	goBold    *opentype.Font
)

func goFonts() (*opentype.Font, *opentype.Font) {
	goOnce.Do(func() {
		goRegular, _ = opentype.Parse(goregular.TTF)
		goBold, _ = opentype.Parse(gobold.TTF)
	})
	return goRegular, goBold
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[fontKey]*opentype.Font), faces: make(map[faceKey]font.Face)}
}

func normFamily(family string) string {
	return strings.ToLower(strings.ReplaceAll(family, " ", ""))
}

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadBytes(family, weight, italic, data)
}

// LoadBytes parses data as an OpenType/TrueType font.
func (fl *FontLibrary) LoadBytes(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[fontKey{family: normFamily(family), bold: weight >= 600, italic: italic}] = f
	for k := range fl.faces {
		if k.family == normFamily(family) {
			delete(fl.faces, k)
		}
	}
	return nil
}

// LoadDir loads every .ttf/.otf in dir. File names follow the usual
// "<Family>-<Style>.ttf" convention (e.g. SpaceGrotesk-Bold.ttf); the style
// part decides bold and italic. It returns the number of faces loaded.
func (fl *FontLibrary) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read font dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		family, style, _ := strings.Cut(base, "-")
		style = strings.ToLower(style)
		weight := 400
		if strings.Contains(style, "bold") || strings.Contains(style, "black") {
			weight = 700
		}
		italic := strings.Contains(style, "italic")
		if err := fl.LoadTTF(family, weight, italic, filepath.Join(dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (fl *FontLibrary) find(k fontKey) *opentype.Font {
	if f, ok := fl.fonts[k]; ok {
		return f
	}
	// same family, any style
	for fk, f := range fl.fonts {
		if fk.family == k.family && fk.bold == k.bold {
			return f
		}
	}
	for fk, f := range fl.fonts {
		if fk.family == k.family {
			return f
		}
	}
	reg, bold := goFonts()
	if k.bold {
		return bold
	}
	return reg
}

// Face resolves spec to a sized face; faces are cached per size.
func (fl *FontLibrary) Face(spec FontSpec) font.Face {
	if spec.SizePx <= 0 {
		spec.SizePx = 12
	}
	k := fontKey{family: normFamily(spec.Family), bold: spec.Weight >= 600, italic: spec.Italic}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.faces == nil {
		fl.faces = make(map[faceKey]font.Face)
	}
	fk := faceKey{fontKey: k, size: spec.SizePx}
	if f, ok := fl.faces[fk]; ok {
		return f
	}
	otf := fl.find(k)
	if otf == nil {
		return BasicProvider{}.Face(spec)
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: spec.SizePx, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return BasicProvider{}.Face(spec)
	}
	fl.faces[fk] = face
	return face
}
