/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deck

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestSlideJSONFromService(t *testing.T) {
	raw := `[
	  {"day_offset": 1, "content": "Intro", "image_prompt": "sunrise"},
	  {"day_offset": 2, "content": "Numbers", "image_prompt": "graph", "layout": "infographic",
	   "data_points": [{"label": "Q1", "value": 12.5}, {"label": "Q2", "value": 20}]},
	  {"day_offset": 2, "content": "Odd", "image_prompt": "", "layout": "hologram"}
	]`
	var slides []Slide
	if err := json.Unmarshal([]byte(raw), &slides); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("got %d slides", len(slides))
	}
	if slides[0].Variant != nil || slides[0].Layout() != LayoutClassic {
		t.Fatalf("absent layout should stay unset and read as classic")
	}
	if dp := slides[1].DataPoints(); len(dp) != 2 || dp[0].Label != "Q1" || dp[0].Value != 12.5 {
		t.Fatalf("data points = %v", dp)
	}
	if slides[2].Layout() != LayoutClassic {
		t.Fatalf("unknown layout should fall back to classic, got %v", slides[2].Layout())
	}
}

func TestSlideJSONKeepsParkedPoints(t *testing.T) {
	s := Slide{Content: "x", Variant: Infographic{DataPoints: []DataPoint{{"A", 1}}}}.WithLayout(LayoutSplit)
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"layout":"split"`) || !strings.Contains(out, `"label":"A"`) {
		t.Fatalf("unexpected wire form: %s", out)
	}
	if strings.Contains(out, "hide_logo") || strings.Contains(out, "custom_image_url") {
		t.Fatalf("zero optional fields should be omitted: %s", out)
	}
}

func TestParseLayout(t *testing.T) {
	for in, want := range map[string]Layout{"": LayoutClassic, "Visual": LayoutVisual, " split ": LayoutSplit} {
		got, err := ParseLayout(in)
		if err != nil || got != want {
			t.Fatalf("ParseLayout(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLayout("grid"); err == nil {
		t.Fatalf("expected error for unknown layout")
	}
}
