/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"carouselstudio/internal/version"
)

// pdfDoc assembles raster pages into one PDF. Page units are points with
// the page sized exactly to the logical slide dimensions; the rasters carry
// the oversampled density.
type pdfDoc struct {
	pdf   *gofpdf.Fpdf
	w, h  float64
	orien string
	size  gofpdf.SizeType
	pages int
}

func newPDFDoc(ratio AspectRatio, title string) *pdfDoc {
	w, h := ratio.Dims()
	orien := "P"
	// gofpdf swaps width and height for landscape pages, so the size is
	// given in portrait form.
	size := gofpdf.SizeType{Wd: float64(w), Ht: float64(h)}
	if ratio.Landscape() {
		orien = "L"
		size = gofpdf.SizeType{Wd: float64(h), Ht: float64(w)}
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           size,
		OrientationStr: orien,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.SetCreator("carousel "+version.String(), true)
	pdf.SetCreationDate(time.Now())
	return &pdfDoc{pdf: pdf, w: float64(w), h: float64(h), orien: orien, size: size}
}

// addPage appends one page holding the PNG raster stretched to the page.
func (d *pdfDoc) addPage(pngBytes []byte) error {
	d.pdf.AddPageFormat(d.orien, d.size)
	name := fmt.Sprintf("page-%d", d.pages+1)
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(pngBytes))
	d.pdf.ImageOptions(name, 0, 0, d.w, d.h, false, opt, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("pdf page %d: %w", d.pages+1, err)
	}
	d.pages++
	return nil
}

func (d *pdfDoc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
