// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package storage implements the memory layout side of the matrix multiplication micro-kernels:
//
//   - PackingFormat: the size, alignment and layout of the packed panels of the A and B operands,
//     derived from a kernel's tile shape (mr, nr).
//   - OutputSpec (ViewSpec or StridesSpec): how a kernel's fixed (mr, nr) result tile maps onto
//     a destination with arbitrary strides. Binding it to a destination yields an OutputStore.
//   - OutputStore / OutputTile: the materialized byte strides and the kernel-visible write target
//     for one tile, plus WriteTile to copy partial (boundary) tiles back to the destination.
//
// Only two element sizes are supported end-to-end: 1 byte (quantized integers) and 4 bytes
// (float32 and int32).
//
// Offsets into the destination are not bounds checked beyond Go's own slice checks, unless the
// package is built with the "tilegemm_debug" build tag, in which case tile indices and sizes are
// validated against the destination's dimensions.
package storage

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedItemSize is returned when binding or packing elements whose size is not 1 or 4 bytes.
	ErrUnsupportedItemSize = errors.New("unsupported element size")

	// ErrInvalidAxes is returned when the row/column axes of a ViewSpec don't fit the destination.
	ErrInvalidAxes = errors.New("invalid row/column axes")

	// ErrBufferTooSmall is returned when a packing buffer can't hold the packed panels.
	ErrBufferTooSmall = errors.New("buffer too small")
)

// checkItemSize returns an error if itemSize is not one of the supported element sizes.
func checkItemSize(itemSize int) error {
	if itemSize != 1 && itemSize != 4 {
		return errors.Wrapf(ErrUnsupportedItemSize, "element size %d bytes (only 1 and 4 are supported)", itemSize)
	}
	return nil
}
