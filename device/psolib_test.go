// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPSOCachePathNamesByBuildConfiguration(t *testing.T) {
	assert.Equal(t, "psocache/debug.cache", psoCachePath("psocache", "debug"))
	assert.Equal(t, "psocache/release.cache", psoCachePath("psocache", "release"))
}

func TestPSOCachePathKeepsConfigurationsSeparate(t *testing.T) {
	assert.NotEqual(t, psoCachePath("psocache", "debug"), psoCachePath("psocache", "release"))
}
