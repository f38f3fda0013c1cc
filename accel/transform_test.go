// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"zetacore.dev/engine/math32"
)

func TestIdentityAffine3HasNoRotationOrTranslation(t *testing.T) {
	a := identityAffine3()
	assert.Equal(t, affine3{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}, a)
}

func TestComposeAffineWithIdentityRotationCarriesTranslationAndScale(t *testing.T) {
	pos := math32.Vec3(1, 2, 3)
	a := composeAffine(pos, math32.QIdentity(), math32.Vec3(2, 3, 4))

	assert.InDelta(t, 2, a[0][0], 1e-5)
	assert.InDelta(t, 3, a[1][1], 1e-5)
	assert.InDelta(t, 4, a[2][2], 1e-5)
	assert.InDelta(t, 1, a[0][3], 1e-5)
	assert.InDelta(t, 2, a[1][3], 1e-5)
	assert.InDelta(t, 3, a[2][3], 1e-5)
	assert.InDelta(t, 0, a[0][1], 1e-5)
	assert.InDelta(t, 0, a[0][2], 1e-5)
}

func TestComposeAffineQuarterTurnAboutZSwapsXAndY(t *testing.T) {
	// 90deg about +Z: x-axis -> +y, y-axis -> -x.
	half := math.Pi / 4
	rot := math32.Quat{X: 0, Y: 0, Z: float32(math.Sin(half)), W: float32(math.Cos(half))}
	a := composeAffine(math32.Vec3(0, 0, 0), rot, math32.Vec3(1, 1, 1))

	assert.InDelta(t, 0, a[0][0], 1e-4)
	assert.InDelta(t, -1, a[0][1], 1e-4)
	assert.InDelta(t, 1, a[1][0], 1e-4)
	assert.InDelta(t, 0, a[1][1], 1e-4)
}
