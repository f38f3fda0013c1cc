// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmdRequiresExactlyOnePositionalAsset(t *testing.T) {
	cmd := newRootCmd()
	assert.Error(t, cmd.Args(cmd, nil), "no asset path should be rejected")
	assert.Error(t, cmd.Args(cmd, []string{"a.gltf", "b.gltf"}), "more than one asset path should be rejected")
	assert.NoError(t, cmd.Args(cmd, []string{"a.gltf"}))
}

func TestRootCmdDefaultFlags(t *testing.T) {
	cmd := newRootCmd()
	debugFlag, err := cmd.Flags().GetBool("debug")
	assert.NoError(t, err)
	assert.False(t, debugFlag)

	workers, err := cmd.Flags().GetInt("workers")
	assert.NoError(t, err)
	assert.Zero(t, workers, "0 means workerpool.New's runtime.NumCPU default")

	bg, err := cmd.Flags().GetInt("background-workers")
	assert.NoError(t, err)
	assert.Equal(t, 2, bg)
}

func TestRunRejectsMissingAssetPath(t *testing.T) {
	err := run("/nonexistent/path/to/asset.gltf")
	assert.Error(t, err)
}
