/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSnap struct {
	deck []byte
	err  error
}

func (f fakeSnap) CrashSnapshot() ([]byte, error) { return f.deck, f.err }
func (f fakeSnap) CrashInfo() map[string]string {
	return map[string]string{"Slides": "3", "AspectRatio": "4:5"}
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func TestWriteReportInTemp(t *testing.T) {
	path, err := writeReport("", nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Carousel Studio Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestWriteReportIncludesInfo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crash")
	path, err := writeReport(dir, fakeSnap{}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report in %s, want %s", path, dir)
	}
	b, _ := os.ReadFile(path)
	s := string(b)
	// sorted keys
	if i, j := strings.Index(s, "AspectRatio: 4:5"), strings.Index(s, "Slides: 3"); i < 0 || j < 0 || i > j {
		t.Fatalf("info missing or unsorted: %s", s)
	}
}

func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	silenceStderr(t)
	code := 0
	old := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = old }()

	dir := t.TempDir()
	func() {
		defer Recover(dir, fakeSnap{deck: []byte(`[{"content":"hi"}]`)})
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	var report, deck string
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), "-deck.json"):
			deck = e.Name()
		case strings.HasSuffix(e.Name(), ".log"):
			report = e.Name()
		}
	}
	if report == "" || deck == "" {
		t.Fatalf("files = %v", entries)
	}
	b, _ := os.ReadFile(filepath.Join(dir, deck))
	if string(b) != `[{"content":"hi"}]` {
		t.Fatalf("snapshot = %s", b)
	}
}

func TestRecoverSnapshotFailureStillReports(t *testing.T) {
	silenceStderr(t)
	old := exitFn
	exitFn = func(int) {}
	defer func() { exitFn = old }()

	dir := t.TempDir()
	func() {
		defer Recover(dir, fakeSnap{err: errors.New("locked")})
		panic("boom")
	}()
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Fatalf("files = %v", entries)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	old := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = old }()
	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if called {
		t.Fatal("exit called without panic")
	}
}
