/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"carouselstudio/internal/config"
	"carouselstudio/internal/crash"
	"carouselstudio/internal/deck"
	"carouselstudio/internal/export"
	"carouselstudio/internal/generate"
	"carouselstudio/internal/imagesource"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/session"
	"carouselstudio/internal/storage"
	"carouselstudio/internal/telemetry"
	"carouselstudio/internal/textlayout"
	"carouselstudio/internal/theme"
	"carouselstudio/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Carousel Studio")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  carousel version|-v|--version                  Show version")
	_, _ = fmt.Fprintln(w, "  carousel presets                               List theme presets")
	_, _ = fmt.Fprintln(w, "  carousel key [<api-key>|-clear]                Show, store or remove the Gemini API key")
	_, _ = fmt.Fprintln(w, "  carousel ping                                  Check the generation backend")
	_, _ = fmt.Fprintln(w, "  carousel ideas <topic>                         Suggest carousel topics")
	_, _ = fmt.Fprintln(w, "  carousel generate [flags] <topic> [days]       Generate a deck and export it")
	_, _ = fmt.Fprintln(w, "  carousel export [flags] <deck.json> [topic]    Export a saved deck")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Flags for generate/export (before positional arguments):")
	_, _ = fmt.Fprintln(w, "  -preset -ratio -logo -logo-style -logo-size -brand -handle -out -strict -offline")
}

// app holds what a command needs; tests swap keys and cfg.
type app struct {
	cfg    config.AppConfig
	keys   config.KeyStore
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	sess   *session.Session
}

// CrashSnapshot and CrashInfo forward to the session once it exists.
func (a *app) CrashSnapshot() ([]byte, error) {
	if a.sess == nil {
		return []byte("[]"), nil
	}
	return a.sess.CrashSnapshot()
}

func (a *app) CrashInfo() map[string]string {
	if a.sess == nil {
		return nil
	}
	return a.sess.CrashInfo()
}

func main() {
	applog.Init(applog.FromEnv())
	cfg, err := config.Load()
	if err != nil {
		applog.WithComponent("cli").Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	tel := telemetry.New(tc)
	telemetry.SetDefault(tel)

	a := &app{
		cfg:    cfg,
		keys:   config.NewKeyringStore(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		log:    applog.WithComponent("cli"),
	}
	defer crash.Recover(cfg.Images.ResolvedCacheDir(), a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := a.run(ctx, os.Args[1:])
	stop()
	tel.Flush(context.Background())
	tel.Close()
	if code != 0 {
		os.Exit(code)
	}
}

func (a *app) run(ctx context.Context, args []string) int {
	a.log.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(a.stdout)
		return 0
	}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(a.stdout, "Carousel Studio")
		_, _ = fmt.Fprintln(a.stdout, version.String())
		return 0
	case "presets":
		a.presets()
		return 0
	case "key":
		err = a.key(args[1:])
	case "ping":
		err = generate.NewClient(a.cfg.Backend.BaseURL, a.cfg.Backend.Timeout()).Ping(ctx)
		if err == nil {
			_, _ = fmt.Fprintln(a.stdout, "backend ok:", a.cfg.Backend.BaseURL)
		}
	case "ideas":
		err = a.ideas(ctx, args[1:])
	case "generate":
		err = a.generate(ctx, args[1:])
	case "export":
		err = a.export(ctx, args[1:])
	default:
		usage(a.stderr)
		return 2
	}
	var ue usageError
	switch {
	case errors.As(err, &ue):
		_, _ = fmt.Fprintln(a.stderr, ue.msg)
		usage(a.stderr)
		return 2
	case err != nil:
		a.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(a.stderr, "Error:", err)
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func (a *app) presets() {
	for _, name := range theme.PresetNames() {
		p, _ := theme.LookupPreset(name)
		_, _ = fmt.Fprintf(a.stdout, "%-12s %-8s %-18s %s\n", name, p.Primary, p.Font, p.Background)
	}
}

func (a *app) key(args []string) error {
	switch {
	case len(args) == 0:
		k, err := a.keys.Get()
		if err != nil {
			return err
		}
		if k == "" {
			_, _ = fmt.Fprintln(a.stdout, "no API key stored; the backend default will be used")
		} else {
			_, _ = fmt.Fprintln(a.stdout, "API key stored")
		}
		return nil
	case args[0] == "-clear":
		if err := a.keys.Set(""); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(a.stdout, "API key removed")
		return nil
	default:
		if err := a.keys.Set(strings.TrimSpace(args[0])); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(a.stdout, "API key stored")
		return nil
	}
}

func (a *app) ideas(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError{"ideas requires <topic>"}
	}
	key, err := a.keys.Get()
	if err != nil {
		a.log.Warn("api key not loaded", slog.Any("err", err))
	}
	c := generate.NewClient(a.cfg.Backend.BaseURL, a.cfg.Backend.Timeout())
	ideas, err := c.GenerateIdeas(ctx, strings.Join(args, " "), key)
	if err != nil {
		return err
	}
	for _, idea := range ideas {
		_, _ = fmt.Fprintln(a.stdout, "-", idea)
	}
	return nil
}

type lookFlags struct {
	preset, ratio, logo, logoStyle string
	brand, handle, out             string
	logoSize                       int
	strict, offline                bool
}

func (a *app) flags(name string) (*flag.FlagSet, *lookFlags) {
	e := a.cfg.Export
	f := &lookFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&f.preset, "preset", a.cfg.Theme.Preset, "theme preset (see carousel presets)")
	fs.StringVar(&f.ratio, "ratio", e.AspectRatio, "aspect ratio 4:5, 1:1 or 16:9")
	fs.StringVar(&f.logo, "logo", a.cfg.Theme.LogoURL, "logo image URL or path")
	fs.StringVar(&f.logoStyle, "logo-style", e.LogoStyle, "original, grayscale, white or black")
	fs.IntVar(&f.logoSize, "logo-size", e.LogoSize, "logo size in px (20-80)")
	fs.StringVar(&f.brand, "brand", a.cfg.Theme.BrandName, "brand name in the footer")
	fs.StringVar(&f.handle, "handle", a.cfg.Theme.BrandHandle, "social handle in the footer")
	fs.StringVar(&f.out, "out", e.OutDir, "output directory")
	fs.BoolVar(&f.strict, "strict", e.StrictDocument, "fail the PDF when a slide cannot be rendered")
	fs.BoolVar(&f.offline, "offline", a.cfg.Images.Offline, "use cached images only")
	return fs, f
}

// newSession builds a fully wired session; the returned func releases the image cache.
func (a *app) newSession(ctx context.Context, f *lookFlags) (*session.Session, func(), error) {
	cleanup := func() {}
	var disk *storage.ImageCache
	if c, err := storage.OpenImageCache(ctx, a.cfg.Images.ResolvedCacheDir()); err != nil {
		a.log.Warn("image cache disabled", slog.Any("err", err))
	} else {
		disk = c
		cleanup = func() { _ = c.Close() }
	}
	images := imagesource.New(imagesource.Options{
		BaseURL:  a.cfg.Images.BaseURL,
		Timeout:  a.cfg.Images.Timeout(),
		MemoryMB: a.cfg.Images.MemoryCacheMB,
		Disk:     disk,
		Offline:  f.offline,
	})
	fonts := textlayout.NewFontLibrary()
	if dir := strings.TrimSpace(a.cfg.Export.FontDir); dir != "" {
		if n, err := fonts.LoadDir(dir); err != nil {
			a.log.Warn("font dir not loaded", slog.String("dir", dir), slog.Any("err", err))
		} else {
			a.log.Debug("fonts loaded", slog.Int("count", n))
		}
	}
	sess, err := session.New(session.Options{
		Generator: generate.NewClient(a.cfg.Backend.BaseURL, a.cfg.Backend.Timeout()),
		Sink:      export.DirSink{Dir: f.out},
		Keys:      a.keys,
		Images:    images,
		Fonts:     fonts,
		Telemetry: telemetry.Default(),
		Export:    export.Options{StrictDocument: f.strict},
		AutoBind:  true,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := applyLook(sess, f); err != nil {
		cleanup()
		return nil, nil, usageError{err.Error()}
	}
	a.sess = sess
	return sess, cleanup, nil
}

func applyLook(sess *session.Session, f *lookFlags) error {
	if f.preset != "" {
		if _, ok := theme.LookupPreset(theme.PresetName(f.preset)); !ok {
			return fmt.Errorf("unknown preset %q", f.preset)
		}
		sess.Theme().ApplyPreset(theme.PresetName(f.preset))
	}
	sess.Theme().SetLogoURL(f.logo)
	sess.Theme().SetBrand(f.brand, f.handle)
	if err := sess.SetAspectRatio(f.ratio); err != nil {
		return err
	}
	if err := sess.SetLogoStyle(f.logoStyle); err != nil {
		return err
	}
	sess.SetLogoSize(f.logoSize)
	return nil
}

func (a *app) generate(ctx context.Context, args []string) error {
	fs, f := a.flags("generate")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return usageError{"generate requires <topic>"}
	}
	days := session.DefaultDays
	if len(rest) > 1 {
		n, err := strconv.Atoi(rest[1])
		if err != nil || n < 1 {
			return usageError{fmt.Sprintf("invalid days %q", rest[1])}
		}
		days = n
	}
	sess, cleanup, err := a.newSession(ctx, f)
	if err != nil {
		return err
	}
	defer cleanup()
	sess.SetTopic(rest[0])
	if err := sess.Generate(ctx, days); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "Generated %d slides for %q\n", sess.Deck().Len(), rest[0])
	if err := a.saveDeck(ctx, sess, f.out); err != nil {
		return err
	}
	return a.exportAll(ctx, sess)
}

func (a *app) export(ctx context.Context, args []string) error {
	fs, f := a.flags("export")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return usageError{"export requires <deck.json>"}
	}
	slides, err := readDeck(rest[0])
	if err != nil {
		return err
	}
	sess, cleanup, err := a.newSession(ctx, f)
	if err != nil {
		return err
	}
	defer cleanup()
	topic := "carousel"
	if len(rest) > 1 {
		topic = rest[1]
	}
	sess.SetTopic(topic)
	sess.LoadDeck(slides)
	return a.exportAll(ctx, sess)
}

func (a *app) exportAll(ctx context.Context, sess *session.Session) error {
	n := sess.Deck().Len()
	for i := 0; i < n; i++ {
		art, err := sess.ExportSlide(ctx, i)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(a.stdout, "wrote", art.Location)
	}
	doc, err := sess.ExportDocument(ctx)
	if err != nil {
		return err
	}
	if doc == nil {
		_, _ = fmt.Fprintln(a.stdout, "deck is empty, nothing exported")
		return nil
	}
	if doc.Location != "" {
		_, _ = fmt.Fprintf(a.stdout, "wrote %s (%d pages)\n", doc.Location, doc.Pages)
	}
	return nil
}

func (a *app) saveDeck(ctx context.Context, sess *session.Session, out string) error {
	b, err := json.MarshalIndent(sess.Deck().Slides(), "", "  ")
	if err != nil {
		return err
	}
	name := export.SanitizeTopic(sess.Topic(), 30) + "_deck.json"
	loc, err := export.DirSink{Dir: out}.Save(ctx, name, b)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.stdout, "wrote", loc)
	return nil
}

// readDeck accepts a bare slide array or the backend's {"data": [...]} envelope.
func readDeck(path string) ([]deck.Slide, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var slides []deck.Slide
	if err := json.Unmarshal(b, &slides); err == nil {
		return slides, nil
	}
	var env struct {
		Data []deck.Slide `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return env.Data, nil
}
