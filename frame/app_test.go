// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigNamesTheApp(t *testing.T) {
	cfg := DefaultConfig("test-app")
	assert.Equal(t, "test-app", cfg.AppName)
}

func TestDefaultConfigLeavesForegroundWorkersAtRuntimeDefault(t *testing.T) {
	cfg := DefaultConfig("test-app")
	assert.Zero(t, cfg.ForegroundWorkers, "0 means workerpool.New picks runtime.NumCPU")
}

func TestDefaultConfigReservesBackgroundWorkersAndDescriptorSpace(t *testing.T) {
	cfg := DefaultConfig("test-app")
	assert.Equal(t, 2, cfg.BackgroundWorkers)
	assert.Positive(t, cfg.DescriptorHeapSize)
	assert.Positive(t, cfg.DescriptorBlockSize)
	assert.LessOrEqual(t, cfg.DescriptorBlockSize, cfg.DescriptorHeapSize)
}
