// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zetacore is the engine's launch entry point (§6 "CLI /
// environment": "the core exposes only what's needed for launch: a
// single positional asset path"). It owns process lifetime only: it
// brings up the frame.App, runs the per-frame loop until interrupted,
// flushes the PSO cache and every other subsystem on the way out, and
// reports a clean exit with code 0 or a fatal one with a non-zero code.
// Everything the asset path names — scene parsing, concrete passes,
// shaders, UI — is out of the core's scope (§1) and is not implemented
// here.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"zetacore.dev/engine/base/logx"
	"zetacore.dev/engine/device"
	"zetacore.dev/engine/frame"
)

var (
	debug             bool
	foregroundWorkers int
	backgroundWorkers int
	psoCacheDir       string
)

func main() {
	// An rgassert failure has already logged its message at error level;
	// turn its panic into the non-zero exit code of a fatal error.
	defer func() {
		if r := recover(); r != nil {
			os.Exit(1)
		}
	}()
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		// cobra has already printed the error; just set the exit code (§6
		// "Exit code 0 on clean shutdown, non-zero on fatal error").
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zetacore <asset-path>",
		Short: "Render-graph execution engine launcher",
		Long: `zetacore brings up the render-graph execution engine against a single
scene asset and runs it until interrupted (Ctrl-C / SIGTERM).

Scene parsing, shading, and UI are external collaborators (see the
engine's design notes) and are not built into this binary; it exists to
exercise the core subsystems (worker pool, GPU memory, descriptor heap,
render graph, acceleration structures, world BVH) end to end.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable Vulkan validation layers and debug-level logging")
	cmd.Flags().IntVar(&foregroundWorkers, "workers", 0, "foreground worker-pool thread count (0 = logical CPU count)")
	cmd.Flags().IntVar(&backgroundWorkers, "background-workers", 2, "background worker-pool thread count")
	cmd.Flags().StringVar(&psoCacheDir, "pso-cache-dir", filepath.Join(".", device.PSOCacheDirName), "directory for the PSO cache file")
	return cmd
}

func run(assetPath string) error {
	if debug {
		logx.UserLevel = slog.LevelDebug
	}
	if _, err := os.Stat(assetPath); err != nil {
		return fmt.Errorf("asset path %q: %w", assetPath, err)
	}

	cfg := frame.DefaultConfig(filepath.Base(assetPath))
	cfg.Debug = debug
	cfg.ForegroundWorkers = foregroundWorkers
	cfg.BackgroundWorkers = backgroundWorkers

	app, err := frame.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer app.Shutdown()

	psoConfig := "release"
	if debug {
		psoConfig = "debug"
	}
	psoLib, err := device.OpenPSOLibrary(app.Device, psoCacheDir, psoConfig)
	if err != nil {
		return fmt.Errorf("opening PSO cache: %w", err)
	}
	defer psoLib.Destroy()

	logx.PrintInfo("zetacore: asset ", assetPath, ", adapter ", app.GPU.Name)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			logx.PrintInfo("zetacore: shutdown requested")
			return nil
		default:
		}

		// The concrete per-pass scene update and pass set are supplied by
		// the (out-of-scope) scene/shading layer; this loop exercises
		// RunFrame with an empty per-frame delta so every subsystem's
		// lifecycle (BeginFrame, Build, Submit, recycle) still runs.
		if _, err := app.RunFrame(frame.SceneUpdate{}, nil); err != nil {
			return fmt.Errorf("frame %d: %w", app.Frame, err)
		}
	}
}
