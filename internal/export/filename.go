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
	"strings"
)

const (
	slideTopicMax    = 20
	documentTopicMax = 30
	fallbackTopic    = "carousel"
)

// SanitizeTopic replaces every character outside [A-Za-z0-9] with '_' and
// keeps the first limit characters. Characters are counted as UTF-16 code
// units, so a rune outside the BMP becomes two underscores. An empty result
// becomes "carousel".
func SanitizeTopic(topic string, limit int) string {
	var b strings.Builder
	for _, r := range topic {
		if b.Len() >= limit {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r > 0xFFFF && b.Len()+2 <= limit:
			b.WriteString("__")
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return fallbackTopic
	}
	return b.String()
}

// SlideFileName names the PNG for zero-based slide i.
func SlideFileName(topic string, i int) string {
	return fmt.Sprintf("%s_slide_%d.png", SanitizeTopic(topic, slideTopicMax), i+1)
}

// DocumentFileName names the deck PDF.
func DocumentFileName(topic string) string {
	return SanitizeTopic(topic, documentTopicMax) + "_carousel.pdf"
}
