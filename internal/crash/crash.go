/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into a written crash report, an optional ROI
// document snapshot, and an optional opt-in upload.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "roibridge/internal/log"
	"roibridge/internal/roi"
	"roibridge/internal/roidoc"
	"roibridge/internal/telemetry"
	"roibridge/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Snapshot names the in-memory state worth rescuing when the process dies:
// the ROIs being worked on and the image they belong to.
type Snapshot struct {
	ImageID int64
	ROIs    []*roi.ROI
}

// Recover captures a panic, logs an error with stacktrace, writes a crash
// report file, and attempts a crash-safe autosave of the given snapshot.
// It must be deferred directly; wrapping it in another function would put
// recover one frame too deep to intercept the panic.
//
// Usage: defer crash.Recover(snap)
func Recover(snap *Snapshot) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, report, _ := writeReport(r, stack)
		if snap != nil && len(snap.ROIs) > 0 {
			if path, err := autosaveSnapshot(snap); err != nil {
				l.Error("autosave snapshot failed", slog.Any("err", err))
			} else {
				l.Info("autosave snapshot written", slog.String("path", path))
			}
		}
		telemetry.UploadCrash(report)

		fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
		fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
		exitFn(2)
	}
}

// writeReport writes the crash report into the user temp directory and also
// returns the report bytes for upload.
func writeReport(panicVal any, stack []byte) (string, []byte, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(os.TempDir(), fmt.Sprintf("roibridge-crash-%s.log", stamp))

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "roibridge Crash Report")
	fmt.Fprintf(&buf, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&buf, "Panic: %v\n\n", panicVal)
	buf.Write(stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, buf.Bytes(), err
	}
	return path, buf.Bytes(), nil
}

// autosaveSnapshot writes the snapshot as a timestamped ROI document next to
// the crash report so no annotation work is lost.
func autosaveSnapshot(snap *Snapshot) (string, error) {
	doc, err := roidoc.FromROIs(snap.ImageID, snap.ROIs)
	if err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(os.TempDir(), fmt.Sprintf("roibridge-autosave-%s.json", stamp))
	if err := roidoc.Save(path, doc); err != nil {
		return "", err
	}
	return path, nil
}
