// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build release

package logx

import "log/slog"

// Release builds drop per-frame debug/info chatter and keep only warnings
// and fatal errors, matching the worker pool and render-graph's own
// policy of staying silent on the hot path.
var defaultUserLevel = slog.LevelWarn
