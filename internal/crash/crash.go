/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package crash turns a panic in the CLI into a report file and a deck snapshot.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"time"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/telemetry"
	"carouselstudio/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Snapshotter is implemented by the session so unsaved work survives a panic.
type Snapshotter interface {
	// CrashSnapshot returns the deck as JSON.
	CrashSnapshot() ([]byte, error)
	// CrashInfo returns non-sensitive key/value context for the report.
	CrashInfo() map[string]string
}

// Recover captures a panic, logs it with a stack trace, writes a report into
// dir (os.TempDir when empty) and, when snap is set, a JSON snapshot of the deck.
//
// Usage: defer crash.Recover(dir, sess)
func Recover(dir string, snap Snapshotter) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(dir, snap, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if snap != nil {
		if path, err := writeSnapshot(dir, snap); err != nil {
			l.Error("deck snapshot failed", slog.Any("err", err))
		} else {
			l.Info("deck snapshot written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Your slides were saved to: %s\n", path)
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(dir string) string {
	if dir == "" {
		return os.TempDir()
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func stamp() string { return time.Now().Format("20060102-150405") }

func writeReport(dir string, snap Snapshotter, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(dir), fmt.Sprintf("crash-%s.log", stamp()))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Carousel Studio Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if snap != nil {
		info := snap.CrashInfo()
		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(&buf, "%s: %s\n", k, info[k])
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.Default().UploadCrash(buf.Bytes())
	return path, nil
}

func writeSnapshot(dir string, snap Snapshotter) (string, error) {
	b, err := snap.CrashSnapshot()
	if err != nil {
		return "", err
	}
	path := filepath.Join(reportDir(dir), fmt.Sprintf("crash-%s-deck.json", stamp()))
	return path, os.WriteFile(path, b, 0o644)
}
