/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points the loader at a config file inside a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, p)
	return p
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Fatalf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Export.AspectRatio != "4:5" || cfg.Theme.Preset != "glass-dark" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMergesFile(t *testing.T) {
	p := isolate(t)
	yml := "backend:\n  base_url: https://gen.example.test\nexport:\n  aspect_ratio: \"16:9\"\n  logo_style: GRAYSCALE\ntheme:\n  preset: Neon\n"
	if err := os.WriteFile(p, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://gen.example.test" {
		t.Fatalf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutMs != 60000 {
		t.Fatalf("unset timeout should keep default, got %d", cfg.Backend.TimeoutMs)
	}
	if cfg.Export.AspectRatio != "16:9" || cfg.Export.LogoStyle != "grayscale" || cfg.Theme.Preset != "neon" {
		t.Fatalf("merge mismatch: %+v / %+v", cfg.Export, cfg.Theme)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("backend: [nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	t.Setenv(EnvBackendTimeout, "1500")
	t.Setenv(EnvImagesOffline, "yes")
	t.Setenv(EnvLogLevel, "ERROR")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://example.test:8443" || cfg.Backend.TimeoutMs != 1500 {
		t.Fatalf("backend overrides not applied: %+v", cfg.Backend)
	}
	if !cfg.Images.Offline || cfg.Logging.Level != "error" {
		t.Fatalf("overrides not applied: %+v %+v", cfg.Images, cfg.Logging)
	}
	if env, ok := EnvOverrideFor("backend.base_url"); !ok || env != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("export.logo_size"); ok {
		t.Fatalf("logo_size has no env override")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Theme.BrandName = "Acme"
	cfg.Export.LogoSize = 64
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Theme.BrandName != "Acme" || got.Export.LogoSize != 64 {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestTimeoutFallback(t *testing.T) {
	if got := (BackendConfig{}).Timeout(); got.Milliseconds() != 60000 {
		t.Fatalf("Timeout() = %v", got)
	}
	if got := (BackendConfig{TimeoutMs: 250}).Timeout(); got.Milliseconds() != 250 {
		t.Fatalf("Timeout() = %v", got)
	}
}
