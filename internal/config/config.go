/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied at load time.
// The Gemini API key is never stored here; see KeyStore.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Images        ImagesConfig  `yaml:"images"`
	Export        ExportConfig  `yaml:"export"`
	Theme         ThemeConfig   `yaml:"theme"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

// BackendConfig points at the slide generation service.
type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ImagesConfig points at the prompt-to-image service and its local cache.
type ImagesConfig struct {
	BaseURL       string `yaml:"base_url"`
	TimeoutMs     int    `yaml:"timeout_ms"`
	CacheDir      string `yaml:"cache_dir"`
	MemoryCacheMB int    `yaml:"memory_cache_mb"`
	Offline       bool   `yaml:"offline"`
}

type ExportConfig struct {
	AspectRatio    string `yaml:"aspect_ratio"` // 4:5 | 1:1 | 16:9
	LogoStyle      string `yaml:"logo_style"`   // original | grayscale | white | black
	LogoSize       int    `yaml:"logo_size"`
	OutDir         string `yaml:"out_dir"`
	StrictDocument bool   `yaml:"strict_document"`
	FontDir        string `yaml:"font_dir"`
}

type ThemeConfig struct {
	Preset      string `yaml:"preset"`
	LogoURL     string `yaml:"logo_url"`
	BrandName   string `yaml:"brand_name"`
	BrandHandle string `yaml:"brand_handle"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Backend:       BackendConfig{BaseURL: "http://localhost:8000", TimeoutMs: 60000},
		Images:        ImagesConfig{BaseURL: "https://image.pollinations.ai", TimeoutMs: 30000, MemoryCacheMB: 32},
		Export:        ExportConfig{AspectRatio: "4:5", LogoStyle: "original", LogoSize: 32, OutDir: "exports"},
		Theme:         ThemeConfig{Preset: "glass-dark"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "CAROUSEL_CONFIG"
	EnvBackendURL     = "CAROUSEL_BACKEND_URL"
	EnvBackendTimeout = "CAROUSEL_BACKEND_TIMEOUT_MS"
	EnvImagesURL      = "CAROUSEL_IMAGES_URL"
	EnvImagesOffline  = "CAROUSEL_IMAGES_OFFLINE"
	EnvCacheDir       = "CAROUSEL_CACHE_DIR"
	EnvTelemetryOptIn = "CAROUSEL_TELEMETRY_OPT_IN"
	EnvAspectRatio    = "CAROUSEL_ASPECT_RATIO"
	EnvOutDir         = "CAROUSEL_OUT_DIR"
	EnvLogLevel       = "CAROUSEL_LOG_LEVEL"
	EnvLogFormat      = "CAROUSEL_LOG_FORMAT"
	EnvLogSource      = "CAROUSEL_LOG_SOURCE"
	EnvLogFile        = "CAROUSEL_LOG_FILE"
)

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CarouselStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CarouselStudio")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "carouselstudio")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "carouselstudio")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// Path returns the config file path; CAROUSEL_CONFIG wins over the user default.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file when present, merges it over the defaults and applies env overrides.
// A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, err
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg to the config path.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	setStr(&dst.Backend.BaseURL, src.Backend.BaseURL)
	setInt(&dst.Backend.TimeoutMs, src.Backend.TimeoutMs)

	setStr(&dst.Images.BaseURL, src.Images.BaseURL)
	setInt(&dst.Images.TimeoutMs, src.Images.TimeoutMs)
	setStr(&dst.Images.CacheDir, src.Images.CacheDir)
	setInt(&dst.Images.MemoryCacheMB, src.Images.MemoryCacheMB)
	dst.Images.Offline = src.Images.Offline

	setStr(&dst.Export.AspectRatio, src.Export.AspectRatio)
	setStr(&dst.Export.LogoStyle, strings.ToLower(src.Export.LogoStyle))
	setInt(&dst.Export.LogoSize, src.Export.LogoSize)
	setStr(&dst.Export.OutDir, src.Export.OutDir)
	setStr(&dst.Export.FontDir, src.Export.FontDir)
	dst.Export.StrictDocument = src.Export.StrictDocument

	setStr(&dst.Theme.Preset, strings.ToLower(src.Theme.Preset))
	setStr(&dst.Theme.LogoURL, src.Theme.LogoURL)
	setStr(&dst.Theme.BrandName, src.Theme.BrandName)
	setStr(&dst.Theme.BrandHandle, src.Theme.BrandHandle)

	setStr(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	setStr(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	setStr(&dst.Logging.File, src.Logging.File)
	dst.Logging.Source = src.Logging.Source
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	setStr(&cfg.Backend.BaseURL, os.Getenv(EnvBackendURL))
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvBackendTimeout))); err == nil {
		cfg.Backend.TimeoutMs = n
	}
	setStr(&cfg.Images.BaseURL, os.Getenv(EnvImagesURL))
	setStr(&cfg.Images.CacheDir, os.Getenv(EnvCacheDir))
	if v, ok := envBool(EnvImagesOffline); ok {
		cfg.Images.Offline = v
	}
	if v, ok := envBool(EnvTelemetryOptIn); ok {
		cfg.General.TelemetryOptIn = v
	}
	setStr(&cfg.Export.AspectRatio, os.Getenv(EnvAspectRatio))
	setStr(&cfg.Export.OutDir, os.Getenv(EnvOutDir))
	setStr(&cfg.Logging.Level, strings.ToLower(os.Getenv(EnvLogLevel)))
	setStr(&cfg.Logging.Format, strings.ToLower(os.Getenv(EnvLogFormat)))
	setStr(&cfg.Logging.File, os.Getenv(EnvLogFile))
	if v, ok := envBool(EnvLogSource); ok {
		cfg.Logging.Source = v
	}
}

func envBool(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return false, false
	}
	return v == "1" || v == "true" || v == "on" || v == "yes", true
}

// EnvOverrideFor reports which env var, if any, overrides the dotted config key.
func EnvOverrideFor(key string) (string, bool) {
	m := map[string]string{
		"backend.base_url":         EnvBackendURL,
		"backend.timeout_ms":       EnvBackendTimeout,
		"images.base_url":          EnvImagesURL,
		"images.offline":           EnvImagesOffline,
		"images.cache_dir":         EnvCacheDir,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"export.aspect_ratio":      EnvAspectRatio,
		"export.out_dir":           EnvOutDir,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	env, ok := m[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout converts the backend timeout to a duration, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Timeout converts the image fetch timeout to a duration, falling back to the default.
func (i ImagesConfig) Timeout() time.Duration {
	if i.TimeoutMs <= 0 {
		return time.Duration(Defaults().Images.TimeoutMs) * time.Millisecond
	}
	return time.Duration(i.TimeoutMs) * time.Millisecond
}

// ResolvedCacheDir returns Images.CacheDir or a per-user default.
func (i ImagesConfig) ResolvedCacheDir() string {
	if strings.TrimSpace(i.CacheDir) != "" {
		return i.CacheDir
	}
	if d, err := os.UserCacheDir(); err == nil {
		return filepath.Join(d, "carouselstudio")
	}
	return filepath.Join(os.TempDir(), "carouselstudio")
}
