// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logx

import (
	"image/color"
	"log/slog"

	"github.com/muesli/termenv"
)

var (
	// UseColor is whether to use color in log messages. It is on by default.
	UseColor = true

	// ColorSchemeIsDark is whether the color scheme of the current terminal is dark-themed.
	ColorSchemeIsDark = true
)

// fixed terminal palette for the handful of levels the engine logs at;
// there is no GUI theme to draw from here, unlike the original package.
var (
	debugColorRGBA   = color.RGBA{R: 0x8a, G: 0x8a, B: 0xd6, A: 0xff}
	warnColorRGBA    = color.RGBA{R: 0xd6, G: 0xa8, B: 0x3a, A: 0xff}
	errorColorRGBA   = color.RGBA{R: 0xd6, G: 0x3a, B: 0x3a, A: 0xff}
	successColorRGBA = color.RGBA{R: 0x3a, G: 0xd6, B: 0x6b, A: 0xff}
	cmdColorRGBA     = color.RGBA{R: 0x3a, G: 0x9c, B: 0xd6, A: 0xff}
)

// colorProfile is the termenv color profile, stored globally for convenience.
// It is set by [InitColor] if [UseColor] is true.
var colorProfile termenv.Profile

// InitColor sets up the terminal environment for color output. It is called automatically
// in an init function. However, if you call a system command that changes terminal modes,
// you need to call this function again.
func InitColor() {
	restoreFunc, err := termenv.EnableVirtualTerminalProcessing(termenv.DefaultOutput())
	if err != nil {
		slog.Warn("logx: error enabling virtual terminal processing for colored output on Windows", "error", err)
	}
	_ = restoreFunc
	colorProfile = termenv.ColorProfile()
	ColorSchemeIsDark = termenv.HasDarkBackground()
}

// ApplyColor applies the given color to the given string
// and returns the resulting string. If [UseColor] is set
// to false, it just returns the string it was passed.
func ApplyColor(clr color.Color, str string) string {
	if !UseColor {
		return str
	}
	return termenv.String(str).Foreground(colorProfile.FromColor(clr)).String()
}

// LevelColor applies the color associated with the given level to the
// given string and returns the resulting string.
func LevelColor(level slog.Level, str string) string {
	switch level {
	case slog.LevelDebug:
		return DebugColor(str)
	case slog.LevelInfo:
		return InfoColor(str)
	case slog.LevelWarn:
		return WarnColor(str)
	case slog.LevelError:
		return ErrorColor(str)
	}
	return str
}

// DebugColor applies the color associated with the debug level.
func DebugColor(str string) string { return ApplyColor(debugColorRGBA, str) }

// InfoColor applies the color associated with the info level. Because the
// color associated with the info level is just the terminal default, it
// just returns the given string, but it exists for API consistency.
func InfoColor(str string) string { return str }

// WarnColor applies the color associated with the warn level.
func WarnColor(str string) string { return ApplyColor(warnColorRGBA, str) }

// ErrorColor applies the color associated with the error level.
func ErrorColor(str string) string { return ApplyColor(errorColorRGBA, str) }

// SuccessColor applies the color associated with success.
func SuccessColor(str string) string { return ApplyColor(successColorRGBA, str) }

// CmdColor applies the color associated with terminal commands and arguments.
func CmdColor(str string) string { return ApplyColor(cmdColorRGBA, str) }
