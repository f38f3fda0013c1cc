// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logx

import (
	"log/slog"
	"os"
)

// UserLevel is the minimum level that will be printed by [Print] and its
// variants. It defaults to [slog.LevelDebug] in debug builds and
// [slog.LevelWarn] in release builds (see the "release" build tag),
// matching the engine's programmer-error-is-loud / transient-miss-is-quiet
// error policy.
var UserLevel = defaultUserLevel

func init() {
	InitColor()
	SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: UserLevel})))
}

// SetDefault installs l as the process-wide default slog logger through
// [slog.SetDefault]. The colored Print* functions do not use l; they
// filter on [UserLevel] on their own.
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}
