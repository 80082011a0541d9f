// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"io"
	"time"
)

// watchdog fires once when no activity was seen for the timeout.
type watchdog struct {
	timer   *time.Timer
	timeout time.Duration
}

// newWatchdog arms a watchdog. A non-positive timeout disables it.
func newWatchdog(timeout time.Duration, fire func()) *watchdog {
	if timeout <= 0 {
		return &watchdog{}
	}
	return &watchdog{timer: time.AfterFunc(timeout, fire), timeout: timeout}
}

func (w *watchdog) touch() {
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// activityReader resets the watchdog on every read that returns data.
type activityReader struct {
	rc io.ReadCloser
	w  *watchdog
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.rc.Read(p)
	if n > 0 {
		a.w.touch()
	}
	return n, err
}

func (a *activityReader) Close() error {
	return a.rc.Close()
}
