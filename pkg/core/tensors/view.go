// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements View, a bounds-aware strided view over a byte buffer.
//
// A View is how operands and destinations of a matrix multiplication are handed to the
// packing and addressing code: it owns (or shares) a byte buffer and describes, per axis,
// the stride in items between consecutive elements. Strides can be arbitrary (transposed,
// sliced or broadcast views), which is what the output addressing has to cope with.
//
// There are various ways to construct a View:
//
//   - New(dtype, dimensions...): a zeroed, row-major, aligned view.
//   - FromFlat[T](flat, dimensions...): a row-major view with a copy of the flat values.
//   - FromBytes(shape, strides, data, offset): a view over a caller owned buffer, validated
//     so every addressable element lies within data.
//
// Derived views (Transposed, Slice) share the buffer with the original.
package tensors

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tilegemm/pkg/core/shapes"
	"github.com/pkg/errors"
)

// View of a multidimensional array stored in a byte buffer.
type View struct {
	shape   shapes.Shape
	strides []int // In items, one per axis.
	data    []byte
	offset  int // Byte offset of element [0, ..., 0].
}

// New returns a zeroed row-major View with the given dtype and dimensions.
func New(dtype dtypes.DType, dimensions ...int) *View {
	return FromShape(shapes.Make(dtype, dimensions...))
}

// FromShape returns a zeroed row-major View for shape.
func FromShape(shape shapes.Shape) *View {
	return &View{
		shape:   shape.Clone(),
		strides: shape.Strides(),
		data:    AlignedBytes(shape.Memory(), DefaultAlignment),
	}
}

// FromFlat returns a row-major View with a copy of the flat values, shaped with the given dimensions.
func FromFlat[T dtypes.Supported](flat []T, dimensions ...int) *View {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if shape.Size() != len(flat) {
		exceptions.Panicf("tensors.FromFlat: %d values given for shape %s (size %d)", len(flat), shape, shape.Size())
	}
	v := FromShape(shape)
	copy(v.data, AsBytes(flat))
	return v
}

// FromBytes returns a View over data, where element [0,...,0] starts at byte offset and
// strides (in items) are given per axis. It returns an error if any addressable element
// falls outside data.
func FromBytes(shape shapes.Shape, strides []int, data []byte, offset int) (*View, error) {
	if len(strides) != shape.Rank() {
		return nil, errors.Errorf("tensors.FromBytes: %d strides given for shape %s", len(strides), shape)
	}
	v := &View{shape: shape.Clone(), strides: slices.Clone(strides), data: data, offset: offset}
	low, high := v.byteExtent()
	if low < 0 || high > len(data) {
		return nil, errors.Errorf("tensors.FromBytes: shape %s with strides %v at offset %d addresses bytes [%d, %d), but buffer has %d bytes",
			shape, strides, offset, low, high, len(data))
	}
	return v, nil
}

// byteExtent returns the range of bytes [low, high) addressed by the view.
func (v *View) byteExtent() (low, high int) {
	itemSize := v.ItemSize()
	low, high = v.offset, v.offset
	for axis, dim := range v.shape.Dimensions {
		reach := (dim - 1) * v.strides[axis] * itemSize
		if reach < 0 {
			low += reach
		} else {
			high += reach
		}
	}
	return low, high + itemSize
}

// Shape of the view.
func (v *View) Shape() shapes.Shape { return v.shape }

// DType of the elements of the view.
func (v *View) DType() dtypes.DType { return v.shape.DType }

// ItemSize is the size in bytes of one element.
func (v *View) ItemSize() int { return int(v.shape.DType.Size()) }

// Rank of the view.
func (v *View) Rank() int { return v.shape.Rank() }

// Len is the number of elements addressed by the view.
func (v *View) Len() int { return v.shape.Size() }

// Strides returns the per-axis strides in items. The returned slice is owned by the view: don't change it.
func (v *View) Strides() []int { return v.strides }

// Data returns the underlying buffer, shared with the view.
func (v *View) Data() []byte { return v.data }

// Offset returns the byte offset of element [0, ..., 0] in Data.
func (v *View) Offset() int { return v.offset }

// IsContiguous returns whether the view is laid out row-major without gaps.
func (v *View) IsContiguous() bool {
	return slices.Equal(v.strides, v.shape.Strides())
}

// ByteOffset returns the offset in Data of the element at the given indices.
func (v *View) ByteOffset(indices ...int) int {
	if len(indices) != v.Rank() {
		exceptions.Panicf("View.ByteOffset: %d indices given for shape %s", len(indices), v.shape)
	}
	offset := v.offset
	for axis, idx := range indices {
		if idx < 0 || idx >= v.shape.Dimensions[axis] {
			exceptions.Panicf("View.ByteOffset: index %d out of range for axis %d of shape %s", idx, axis, v.shape)
		}
		offset += idx * v.strides[axis] * v.ItemSize()
	}
	return offset
}

// Transposed returns a view sharing the same buffer, with axis0 and axis1 swapped.
func (v *View) Transposed(axis0, axis1 int) *View {
	t := &View{shape: v.shape.Clone(), strides: slices.Clone(v.strides), data: v.data, offset: v.offset}
	d := t.shape.Dimensions
	d[axis0], d[axis1] = d[axis1], d[axis0]
	t.strides[axis0], t.strides[axis1] = t.strides[axis1], t.strides[axis0]
	return t
}

// Slice returns a view sharing the same buffer, restricted to [start, end) on the given axis.
func (v *View) Slice(axis, start, end int) *View {
	if start < 0 || end > v.shape.Dimensions[axis] || start >= end {
		exceptions.Panicf("View.Slice(axis=%d, %d, %d) invalid for shape %s", axis, start, end, v.shape)
	}
	s := &View{shape: v.shape.Clone(), strides: slices.Clone(v.strides), data: v.data}
	s.shape.Dimensions[axis] = end - start
	s.offset = v.offset + start*v.strides[axis]*v.ItemSize()
	return s
}

// Get returns the element at the given indices.
func Get[T dtypes.Supported](v *View, indices ...int) T {
	return Load[T](v.data, v.ByteOffset(indices...))
}

// Set the element at the given indices.
func Set[T dtypes.Supported](v *View, value T, indices ...int) {
	Store(v.data, v.ByteOffset(indices...), value)
}

// ToFlat returns a copy of the elements of the view in row-major order.
func ToFlat[T dtypes.Supported](v *View) []T {
	if dtypes.FromGenericsType[T]() != v.DType() {
		exceptions.Panicf("tensors.ToFlat: view has dtype %s", v.DType())
	}
	flat := make([]T, 0, v.Len())
	indices := make([]int, v.Rank())
	for range v.Len() {
		flat = append(flat, Get[T](v, indices...))
		for axis := v.Rank() - 1; axis >= 0; axis-- {
			indices[axis]++
			if indices[axis] < v.shape.Dimensions[axis] {
				break
			}
			indices[axis] = 0
		}
	}
	return flat
}
