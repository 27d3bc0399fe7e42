// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package storage

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/tilegemm/pkg/core/tensors"
	"github.com/pkg/errors"
)

// PackingFormat describes how one operand is packed for a kernel: the operand is cut in
// panels of R rows (mr for A, nr for B), and each panel is stored k-major, that is
// [k][R] contiguous values, with the last panel zero-padded up to R rows.
type PackingFormat struct {
	// R is the number of rows (of the non-contracting dimension) per panel.
	R int

	// Alignment in bytes required for the packed buffer.
	Alignment int
}

// NewPackingFormat returns the PackingFormat of panels of r rows, aligned to alignment bytes.
func NewPackingFormat(r, alignment int) PackingFormat {
	if r <= 0 {
		exceptions.Panicf("storage.NewPackingFormat: invalid panel size %d", r)
	}
	return PackingFormat{R: r, Alignment: alignment}
}

// NumPanels needed to hold rows rows.
func (f PackingFormat) NumPanels(rows int) int {
	return (rows + f.R - 1) / f.R
}

// PanelLen is the number of elements of one panel.
func (f PackingFormat) PanelLen(k int) int {
	return f.R * k
}

// Len is the number of elements of the packed buffer for a k x rows operand.
func (f PackingFormat) Len(k, rows int) int {
	return f.NumPanels(rows) * f.PanelLen(k)
}

// Alloc returns a zeroed buffer, aligned to f.Alignment, large enough to pack a k x rows operand of
// elements of itemSize bytes.
func (f PackingFormat) Alloc(k, rows, itemSize int) []byte {
	return tensors.AlignedBytes(f.Len(k, rows)*itemSize, f.Alignment)
}

// Panel returns the bytes of the panel with the given index of a packed buffer.
func (f PackingFormat) Panel(packed []byte, panelIdx, k, itemSize int) []byte {
	panelBytes := f.PanelLen(k) * itemSize
	start := panelIdx * panelBytes
	return packed[start : start+panelBytes]
}

// checkOperand validates src for packing and returns the number of rows and k.
func (f PackingFormat) checkOperand(v *tensors.View, kAxis, mnAxis int) (k, rows int, err error) {
	if v.Rank() != 2 {
		return 0, 0, errors.Errorf("packing requires a rank-2 operand, got shape %s", v.Shape())
	}
	if kAxis == mnAxis || kAxis < 0 || kAxis > 1 || mnAxis < 0 || mnAxis > 1 {
		return 0, 0, errors.Wrapf(ErrInvalidAxes, "kAxis=%d, mnAxis=%d for shape %s", kAxis, mnAxis, v.Shape())
	}
	if err = checkItemSize(v.ItemSize()); err != nil {
		return 0, 0, err
	}
	dims := v.Shape().Dimensions
	return dims[kAxis], dims[mnAxis], nil
}

// Pack copies the operand src into packed in the panel layout of f.
// kAxis is the axis of src with the contracting dimension, mnAxis the other one.
//
// The packed buffer must have at least Len(k, rows) elements. Padding rows of the last panel are zeroed.
func (f PackingFormat) Pack(packed []byte, src *tensors.View, kAxis, mnAxis int) error {
	k, rows, err := f.checkOperand(src, kAxis, mnAxis)
	if err != nil {
		return errors.WithMessage(err, "PackingFormat.Pack")
	}
	itemSize := src.ItemSize()
	if len(packed) < f.Len(k, rows)*itemSize {
		return errors.Wrapf(ErrBufferTooSmall, "PackingFormat.Pack: %d bytes given, %d x %d operand needs %d",
			len(packed), k, rows, f.Len(k, rows)*itemSize)
	}
	if DebugChecks && !tensors.IsAligned(packed, f.Alignment) {
		exceptions.Panicf("PackingFormat.Pack: packed buffer not aligned to %d bytes", f.Alignment)
	}
	kStride := src.Strides()[kAxis] * itemSize
	rowStride := src.Strides()[mnAxis] * itemSize
	if itemSize == 1 {
		packT[int8](f, packed, src.Data(), src.Offset(), k, rows, kStride, rowStride)
	} else {
		packT[int32](f, packed, src.Data(), src.Offset(), k, rows, kStride, rowStride)
	}
	return nil
}

func packT[T int8 | int32](f PackingFormat, packed, src []byte, srcOffset, k, rows, kStride, rowStride int) {
	dst := tensors.Elements[T](packed)
	numPanels := f.NumPanels(rows)
	dstIdx := 0
	for panel := range numPanels {
		rowStart := panel * f.R
		validRows := min(f.R, rows-rowStart)
		panelOffset := srcOffset + rowStart*rowStride
		for kk := range k {
			srcIdx := panelOffset + kk*kStride
			for r := range validRows {
				dst[dstIdx+r] = tensors.Load[T](src, srcIdx+r*rowStride)
			}
			for r := validRows; r < f.R; r++ {
				dst[dstIdx+r] = 0
			}
			dstIdx += f.R
		}
	}
}

// Unpack is the inverse of Pack: it copies the packed panels back into dst, dropping padding rows.
func (f PackingFormat) Unpack(dst *tensors.View, packed []byte, kAxis, mnAxis int) error {
	k, rows, err := f.checkOperand(dst, kAxis, mnAxis)
	if err != nil {
		return errors.WithMessage(err, "PackingFormat.Unpack")
	}
	itemSize := dst.ItemSize()
	if len(packed) < f.Len(k, rows)*itemSize {
		return errors.Wrapf(ErrBufferTooSmall, "PackingFormat.Unpack: %d bytes given, %d x %d operand needs %d",
			len(packed), k, rows, f.Len(k, rows)*itemSize)
	}
	kStride := dst.Strides()[kAxis] * itemSize
	rowStride := dst.Strides()[mnAxis] * itemSize
	if itemSize == 1 {
		unpackT[int8](f, dst.Data(), packed, dst.Offset(), k, rows, kStride, rowStride)
	} else {
		unpackT[int32](f, dst.Data(), packed, dst.Offset(), k, rows, kStride, rowStride)
	}
	return nil
}

func unpackT[T int8 | int32](f PackingFormat, dst, packed []byte, dstOffset, k, rows, kStride, rowStride int) {
	src := tensors.Elements[T](packed)
	for row := range rows {
		panel, r := row/f.R, row%f.R
		base := panel * f.PanelLen(k)
		for kk := range k {
			tensors.Store(dst, dstOffset+kk*kStride+row*rowStride, src[base+kk*f.R+r])
		}
	}
}
