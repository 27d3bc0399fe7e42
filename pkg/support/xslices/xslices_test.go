// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIota(t *testing.T) {
	require.Equal(t, []float64{3, 4}, Iota(3.0, 2))
	require.Equal(t, []int{0, 1, 2}, Iota(0, 3))
	require.Empty(t, Iota(int8(1), 0))
}

func TestMap(t *testing.T) {
	require.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, func(e int) string { return string(rune('0' + e)) }))
	require.Equal(t, []float32{7, 7}, SliceWithValue(2, float32(7)))
}

func TestFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sizes := Flag(fs, "sizes", []int{1, 2}, "sizes", ParseInt)
	names := Flag(fs, "names", nil, "names", ParseString)
	require.Equal(t, []int{1, 2}, *sizes)
	require.NoError(t, fs.Parse([]string{"-sizes=4, 8,16", "-names=f32_8x8, q8_8x8"}))
	require.Equal(t, []int{4, 8, 16}, *sizes)
	require.Equal(t, []string{"f32_8x8", "q8_8x8"}, *names)
	require.Equal(t, "4,8,16", fs.Lookup("sizes").Value.String())
	require.Error(t, fs.Parse([]string{"-sizes=4,x"}))
}
