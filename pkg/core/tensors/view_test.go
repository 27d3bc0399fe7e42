// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tilegemm/pkg/core/shapes"
	"github.com/stretchr/testify/require"
)

func TestAlignedBytes(t *testing.T) {
	for _, alignment := range []int{1, 4, 16, 32, 64, 128} {
		for _, size := range []int{0, 1, 7, 64, 1000} {
			buf := AlignedBytes(size, alignment)
			require.Len(t, buf, size)
			require.True(t, IsAligned(buf, alignment), "size=%d alignment=%d", size, alignment)
			for _, b := range buf {
				require.Zero(t, b)
			}
		}
	}
}

func TestLoadStore(t *testing.T) {
	data := make([]byte, 12)
	Store(data, 4, float32(3.5))
	Store(data, 8, int32(-7))
	require.Equal(t, float32(3.5), Load[float32](data, 4))
	require.Equal(t, int32(-7), Load[int32](data, 8))
	require.Equal(t, []int32{0, Load[int32](data, 4), -7}, Elements[int32](data))
	require.Panics(t, func() { Store(data, 9, int32(1)) })
	require.Panics(t, func() { _ = Load[int8](data, -1) })
	require.Nil(t, Elements[int64](data[:7]))
}

func TestView(t *testing.T) {
	v := FromFlat([]float32{0, 1, 2, 3, 4, 5}, 2, 3)
	require.Equal(t, dtypes.Float32, v.DType())
	require.Equal(t, []int{3, 1}, v.Strides())
	require.True(t, v.IsContiguous())
	require.True(t, IsAligned(v.Data(), DefaultAlignment))
	require.Equal(t, float32(5), Get[float32](v, 1, 2))
	require.Equal(t, 4*5, v.ByteOffset(1, 2))

	tr := v.Transposed(0, 1)
	require.Equal(t, []int{3, 2}, tr.Shape().Dimensions)
	require.False(t, tr.IsContiguous())
	require.Equal(t, []float32{0, 3, 1, 4, 2, 5}, ToFlat[float32](tr))

	// Views share the buffer.
	Set(tr, float32(10), 2, 0)
	require.Equal(t, float32(10), Get[float32](v, 0, 2))

	sl := v.Slice(1, 1, 3)
	require.Equal(t, []float32{1, 10, 4, 5}, ToFlat[float32](sl))
	require.Panics(t, func() { _ = v.ByteOffset(2, 0) })
	require.Panics(t, func() { _ = ToFlat[int32](v) })
}

func TestFromBytes(t *testing.T) {
	data := make([]byte, 6*4)
	shape := shapes.Make(dtypes.Int32, 2, 3)

	// Negative row stride: row 0 is the last row in memory.
	v, err := FromBytes(shape, []int{-3, 1}, data, 3*4)
	require.NoError(t, err)
	Set(v, int32(7), 1, 0)
	require.Equal(t, int32(7), Load[int32](data, 0))

	_, err = FromBytes(shape, []int{3, 1}, data, 4)
	require.Error(t, err)
	_, err = FromBytes(shape, []int{-3, 1}, data, 0)
	require.Error(t, err)
	_, err = FromBytes(shape, []int{1}, data, 0)
	require.Error(t, err)
}
