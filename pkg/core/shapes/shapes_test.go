// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	require.False(t, Shape{}.Ok())

	shape0 := Make(dtypes.Float32)
	require.True(t, shape0.Ok())
	require.Equal(t, 0, shape0.Rank())
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 4, shape0.Memory())
	require.Nil(t, shape0.Strides())

	shape1 := Make(dtypes.Int8, 4, 3, 2)
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*3*2, shape1.Memory())
	require.Equal(t, []int{6, 2, 1}, shape1.Strides())
	require.Equal(t, 2, shape1.Dim(-1))
	require.Equal(t, 4, shape1.Dim(0))
	require.Panics(t, func() { _ = shape1.Dim(3) })
	require.Equal(t, "(Int8)[4 3 2]", shape1.String())

	clone := shape1.Clone()
	require.True(t, clone.Equal(shape1))
	clone.Dimensions[0] = 5
	require.False(t, clone.Equal(shape1))

	require.Panics(t, func() { _ = Make(dtypes.Float32, 2, 0) })
}
