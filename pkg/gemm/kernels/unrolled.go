// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

// float32Body8x8 is genericBody specialized for float32 8x8 tiles: the 8 columns of the
// accumulator are kept in local arrays for the whole k loop.
func float32Body8x8(acc *[MaxTileElements]float32, a, b []float32, k int) {
	c0 := [8]float32(acc[0:8])
	c1 := [8]float32(acc[8:16])
	c2 := [8]float32(acc[16:24])
	c3 := [8]float32(acc[24:32])
	c4 := [8]float32(acc[32:40])
	c5 := [8]float32(acc[40:48])
	c6 := [8]float32(acc[48:56])
	c7 := [8]float32(acc[56:64])
	_ = a[k*8-1]
	_ = b[k*8-1]
	for p := range k {
		av := (*[8]float32)(a[p*8 : p*8+8])
		bv := (*[8]float32)(b[p*8 : p*8+8])
		axpy8(&c0, av, bv[0])
		axpy8(&c1, av, bv[1])
		axpy8(&c2, av, bv[2])
		axpy8(&c3, av, bv[3])
		axpy8(&c4, av, bv[4])
		axpy8(&c5, av, bv[5])
		axpy8(&c6, av, bv[6])
		axpy8(&c7, av, bv[7])
	}
	copy(acc[0:8], c0[:])
	copy(acc[8:16], c1[:])
	copy(acc[16:24], c2[:])
	copy(acc[24:32], c3[:])
	copy(acc[32:40], c4[:])
	copy(acc[40:48], c5[:])
	copy(acc[48:56], c6[:])
	copy(acc[56:64], c7[:])
}

// axpy8 computes c += a * s.
func axpy8(c, a *[8]float32, s float32) {
	c[0] += a[0] * s
	c[1] += a[1] * s
	c[2] += a[2] * s
	c[3] += a[3] * s
	c[4] += a[4] * s
	c[5] += a[5] * s
	c[6] += a[6] * s
	c[7] += a[7] * s
}
