// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package storage

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/tilegemm/pkg/core/tensors"
	"github.com/pkg/errors"
)

// OutputSpec describes how the (mr, nr) result tiles of a kernel are addressed in a destination.
// It is either a ViewSpec or a StridesSpec.
//
// Bind materializes it against a concrete destination into an OutputStore.
type OutputSpec interface {
	// Bind the spec to the destination dst.
	Bind(dst *tensors.View) (OutputStore, error)

	// TileShape returns the (mr, nr) shape of the kernel tiles.
	TileShape() (mr, nr int)

	isOutputSpec()
}

// ViewSpec addresses the output through two axes of the destination view: the row axis (of
// length m) and the column axis (of length n). The strides are taken from the view at bind time.
type ViewSpec struct {
	// Axes holds the (row, column) axes of the destination. If nil, the last two axes are used.
	Axes *[2]int

	MR, NR int
}

var _ OutputSpec = ViewSpec{}

func (ViewSpec) isOutputSpec() {}

// TileShape implements OutputSpec.
func (s ViewSpec) TileShape() (mr, nr int) { return s.MR, s.NR }

// Bind implements OutputSpec. The byte strides are always recomputed as the view's item
// strides times the element size.
func (s ViewSpec) Bind(dst *tensors.View) (OutputStore, error) {
	itemSize := dst.ItemSize()
	if err := checkItemSize(itemSize); err != nil {
		return OutputStore{}, errors.WithMessagef(err, "ViewSpec.Bind(%s)", dst.Shape())
	}
	rank := dst.Rank()
	var rowAxis, colAxis int
	if s.Axes == nil {
		if rank < 2 {
			return OutputStore{}, errors.Wrapf(ErrInvalidAxes, "ViewSpec.Bind: destination of shape %s has rank < 2 and no axes were given", dst.Shape())
		}
		rowAxis, colAxis = rank-2, rank-1
	} else {
		rowAxis, colAxis = s.Axes[0], s.Axes[1]
		if rowAxis < 0 || rowAxis >= rank || colAxis < 0 || colAxis >= rank || rowAxis == colAxis {
			return OutputStore{}, errors.Wrapf(ErrInvalidAxes, "ViewSpec.Bind: axes (%d, %d) for destination of shape %s", rowAxis, colAxis, dst.Shape())
		}
	}
	if s.MR <= 0 || s.NR <= 0 {
		return OutputStore{}, errors.Errorf("ViewSpec.Bind: invalid tile shape (%d, %d)", s.MR, s.NR)
	}
	strides := dst.Strides()
	store := OutputStore{
		data:          dst.Data(),
		Offset:        dst.Offset(),
		RowItemStride: strides[rowAxis],
		ColItemStride: strides[colAxis],
		ItemSize:      itemSize,
		ItemCount:     dst.Len(),
		MR:            s.MR,
		NR:            s.NR,
		Rows:          dst.Shape().Dimensions[rowAxis],
		Cols:          dst.Shape().Dimensions[colAxis],
	}
	store.materialize()
	return store, nil
}

// StridesSpec addresses the output with explicit strides. The byte strides given are informational:
// Bind recomputes them from the item strides and the destination element size.
type StridesSpec struct {
	RowByteStride, ColByteStride int
	RowItemStride, ColItemStride int
	MR, NR                       int
}

var _ OutputSpec = StridesSpec{}

// NewStridesSpec creates a StridesSpec from item strides, deriving the byte strides from itemSize.
func NewStridesSpec(rowItemStride, colItemStride, itemSize, mr, nr int) StridesSpec {
	return StridesSpec{
		RowByteStride: rowItemStride * itemSize,
		ColByteStride: colItemStride * itemSize,
		RowItemStride: rowItemStride,
		ColItemStride: colItemStride,
		MR:            mr,
		NR:            nr,
	}
}

func (StridesSpec) isOutputSpec() {}

// TileShape implements OutputSpec.
func (s StridesSpec) TileShape() (mr, nr int) { return s.MR, s.NR }

// Bind implements OutputSpec. The destination's dimensions are not used for addressing,
// so debug checks on tile positions are limited to the buffer size.
func (s StridesSpec) Bind(dst *tensors.View) (OutputStore, error) {
	itemSize := dst.ItemSize()
	if err := checkItemSize(itemSize); err != nil {
		return OutputStore{}, errors.WithMessagef(err, "StridesSpec.Bind(%s)", dst.Shape())
	}
	if s.MR <= 0 || s.NR <= 0 {
		return OutputStore{}, errors.Errorf("StridesSpec.Bind: invalid tile shape (%d, %d)", s.MR, s.NR)
	}
	store := OutputStore{
		data:          dst.Data(),
		Offset:        dst.Offset(),
		RowItemStride: s.RowItemStride,
		ColItemStride: s.ColItemStride,
		ItemSize:      itemSize,
		ItemCount:     dst.Len(),
		MR:            s.MR,
		NR:            s.NR,
	}
	store.materialize()
	return store, nil
}

// OutputStore is an OutputSpec bound to a destination buffer.
type OutputStore struct {
	data []byte

	// Offset in bytes of element (0, 0) of the output.
	Offset int

	RowByteStride, ColByteStride int
	RowItemStride, ColItemStride int

	// PanelRowByteStride is the distance in bytes between two consecutive tile rows (RowByteStride * MR),
	// and PanelColByteStride between two consecutive tile columns (ColByteStride * NR).
	PanelRowByteStride, PanelColByteStride int

	ItemSize  int
	ItemCount int
	MR, NR    int

	// Rows and Cols of the output, if known (ViewSpec). Zero otherwise.
	Rows, Cols int
}

func (s *OutputStore) materialize() {
	s.RowByteStride = s.RowItemStride * s.ItemSize
	s.ColByteStride = s.ColItemStride * s.ItemSize
	s.PanelRowByteStride = s.RowByteStride * s.MR
	s.PanelColByteStride = s.ColByteStride * s.NR
}

// Data returns the destination buffer.
func (s *OutputStore) Data() []byte { return s.data }

// tileOffset returns the byte offset of the top-left element of a tile.
func (s *OutputStore) tileOffset(tileRow, tileCol int) int {
	return s.Offset + tileRow*s.PanelRowByteStride + tileCol*s.PanelColByteStride
}

// TileAt returns the kernel write target for the tile at (tileRow, tileCol), in tile units.
// It is pure offset arithmetic: only in debug builds (see DebugChecks) the tile is validated
// to fit in the destination.
func (s *OutputStore) TileAt(tileRow, tileCol int) OutputTile {
	if DebugChecks {
		s.checkTile(tileRow, tileCol, s.MR, s.NR)
	}
	return OutputTile{
		Data:          s.data,
		Offset:        s.tileOffset(tileRow, tileCol),
		RowByteStride: s.RowByteStride,
		ColByteStride: s.ColByteStride,
		ItemSize:      s.ItemSize,
	}
}

// checkTile panics if the height x width region of tile (tileRow, tileCol) falls outside the destination.
func (s *OutputStore) checkTile(tileRow, tileCol, height, width int) {
	if tileRow < 0 || tileCol < 0 || height < 0 || width < 0 || height > s.MR || width > s.NR {
		exceptions.Panicf("OutputStore: invalid tile (%d, %d) of %dx%d for tile shape (%d, %d)",
			tileRow, tileCol, height, width, s.MR, s.NR)
	}
	if s.Rows > 0 && tileRow*s.MR+height > s.Rows {
		exceptions.Panicf("OutputStore: tile row %d with height %d goes beyond %d rows", tileRow, height, s.Rows)
	}
	if s.Cols > 0 && tileCol*s.NR+width > s.Cols {
		exceptions.Panicf("OutputStore: tile col %d with width %d goes beyond %d cols", tileCol, width, s.Cols)
	}
}

// WriteTile copies the valid height x width region of the column-major scratch tile src
// (element (y, x) at index y + x*MR) to the tile (tileRow, tileCol) of the destination.
// Elements of the destination outside that region are left untouched.
func (s *OutputStore) WriteTile(tileRow, tileCol, height, width int, src OutputTile) {
	if DebugChecks {
		s.checkTile(tileRow, tileCol, height, width)
		if src.ItemSize != s.ItemSize {
			exceptions.Panicf("OutputStore.WriteTile: source tile item size %d, destination %d", src.ItemSize, s.ItemSize)
		}
	}
	base := s.tileOffset(tileRow, tileCol)
	if s.ItemSize == 1 {
		writeTileT[int8](s, base, height, width, src)
	} else {
		writeTileT[int32](s, base, height, width, src)
	}
}

func writeTileT[T int8 | int32](s *OutputStore, base, height, width int, src OutputTile) {
	values := tensors.Elements[T](src.Data[src.Offset:])
	for x := range width {
		for y := range height {
			tensors.Store(s.data, base+y*s.RowByteStride+x*s.ColByteStride, values[y+x*s.MR])
		}
	}
}

// OutputTile is where a kernel stores its (mr, nr) result tile: element (y, x) goes
// to Data[ByteOffset(y, x)].
type OutputTile struct {
	Data                         []byte
	Offset                       int
	RowByteStride, ColByteStride int
	ItemSize                     int
}

// ByteOffset of the element (y, x) of the tile.
func (t OutputTile) ByteOffset(y, x int) int {
	return t.Offset + y*t.RowByteStride + x*t.ColByteStride
}

// ScratchTile returns an OutputTile over buf laid out column-major, with mr rows: element (y, x)
// is at index y + x*mr. This is the layout WriteTile reads from.
func ScratchTile(buf []byte, mr, itemSize int) OutputTile {
	return OutputTile{
		Data:          buf,
		RowByteStride: itemSize,
		ColByteStride: mr * itemSize,
		ItemSize:      itemSize,
	}
}
