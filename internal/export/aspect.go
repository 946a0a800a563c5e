/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"math"
	"strings"
)

// AspectRatio is one of the fixed page ratios.
type AspectRatio string

const (
	Ratio4x5  AspectRatio = "4:5"
	Ratio1x1  AspectRatio = "1:1"
	Ratio16x9 AspectRatio = "16:9"
)

// BaseWidth is the logical page width every ratio is derived from.
const BaseWidth = 340

// Oversampling is the raster density applied to every export.
const Oversampling = 3

var ratioParts = map[AspectRatio][2]int{
	Ratio4x5:  {4, 5},
	Ratio1x1:  {1, 1},
	Ratio16x9: {16, 9},
}

// ParseAspectRatio accepts "4:5", "4/5" and friends; "" is 4:5.
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", ":")
	if s == "" {
		return Ratio4x5, nil
	}
	r := AspectRatio(s)
	if _, ok := ratioParts[r]; !ok {
		return "", fmt.Errorf("unsupported aspect ratio %q", s)
	}
	return r, nil
}

// Dims returns the logical page size: BaseWidth wide, height by exact ratio
// arithmetic rounded to the nearest integer. Unknown ratios size as 4:5.
func (r AspectRatio) Dims() (w, h int) {
	p, ok := ratioParts[r]
	if !ok {
		p = ratioParts[Ratio4x5]
	}
	return BaseWidth, int(math.Round(float64(BaseWidth*p[1]) / float64(p[0])))
}

// Landscape reports whether document pages use landscape orientation.
func (r AspectRatio) Landscape() bool { return r == Ratio16x9 }
