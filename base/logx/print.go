// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logx

import (
	"fmt"
	"log/slog"
)

// gated reports whether a message at level should be suppressed given the
// engine's current [UserLevel] (release builds default to warn-and-above:
// per-frame chatter is noise once the device is up, but a fatal assertion
// from [rgassert] must still reach the terminal).
func gated(level slog.Level) bool {
	return UserLevel > level
}

// Print is [fmt.Print] with the output colored by level, suppressed
// entirely if [UserLevel] is above level.
func Print(level slog.Level, a ...any) (n int, err error) {
	if gated(level) {
		return 0, nil
	}
	return fmt.Print(LevelColor(level, fmt.Sprint(a...)))
}

// PrintDebug is [Print] at [slog.LevelDebug].
func PrintDebug(a ...any) (n int, err error) { return Print(slog.LevelDebug, a...) }

// PrintInfo is [Print] at [slog.LevelInfo].
func PrintInfo(a ...any) (n int, err error) { return Print(slog.LevelInfo, a...) }

// PrintWarn is [Print] at [slog.LevelWarn].
func PrintWarn(a ...any) (n int, err error) { return Print(slog.LevelWarn, a...) }

// PrintError is [Print] at [slog.LevelError]. Every call site in this
// engine that reaches PrintError is about to panic via [rgassert] or
// return a fatal error up to cmd/zetacore, so this level is never gated
// off by a build tag the way Debug/Info can be.
func PrintError(a ...any) (n int, err error) { return Print(slog.LevelError, a...) }

// Println is [fmt.Println] with the output colored by level, suppressed
// entirely if [UserLevel] is above level.
func Println(level slog.Level, a ...any) (n int, err error) {
	if gated(level) {
		return 0, nil
	}
	return fmt.Println(LevelColor(level, fmt.Sprint(a...)))
}

// PrintlnDebug is [Println] at [slog.LevelDebug].
func PrintlnDebug(a ...any) (n int, err error) { return Println(slog.LevelDebug, a...) }

// PrintlnInfo is [Println] at [slog.LevelInfo].
func PrintlnInfo(a ...any) (n int, err error) { return Println(slog.LevelInfo, a...) }

// PrintlnWarn is [Println] at [slog.LevelWarn].
func PrintlnWarn(a ...any) (n int, err error) { return Println(slog.LevelWarn, a...) }

// PrintlnError is [Println] at [slog.LevelError].
func PrintlnError(a ...any) (n int, err error) { return Println(slog.LevelError, a...) }

// Printf formats like [fmt.Sprintf] and prints the result colored by level
// and followed by a newline, suppressed entirely if [UserLevel] is above
// level.
func Printf(level slog.Level, format string, a ...any) (n int, err error) {
	if gated(level) {
		return 0, nil
	}
	return fmt.Println(LevelColor(level, fmt.Sprintf(format, a...)))
}

// PrintfDebug is [Printf] at [slog.LevelDebug].
func PrintfDebug(format string, a ...any) (n int, err error) { return Printf(slog.LevelDebug, format, a...) }

// PrintfInfo is [Printf] at [slog.LevelInfo].
func PrintfInfo(format string, a ...any) (n int, err error) { return Printf(slog.LevelInfo, format, a...) }

// PrintfWarn is [Printf] at [slog.LevelWarn].
func PrintfWarn(format string, a ...any) (n int, err error) { return Printf(slog.LevelWarn, format, a...) }

// PrintfError is [Printf] at [slog.LevelError].
func PrintfError(format string, a ...any) (n int, err error) { return Printf(slog.LevelError, format, a...) }
