// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels defines the matrix multiplication micro-kernel contract and the built-in kernels.
//
// A Kernel computes a fixed (mr, nr) result tile. It is driven by a stream of FusedOp, executed
// in order on a private accumulator tile: typically Clear, AddMatMul (the product of one packed
// A panel of mr rows by one packed B panel of nr columns, over k), optional element-wise ops
// (ScalarMul, ScalarMin, ScalarMax, PerRowAdd, PerColAdd) and finally Store to an
// storage.OutputTile.
//
// Kernels hold no mutable state and are safe to run concurrently from any number of goroutines.
// Their accumulator is a fixed-size array, so running a kernel doesn't allocate.
package kernels

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tilegemm/pkg/gemm/storage"
)

// MaxTileElements is the largest mr*nr supported by a kernel.
const MaxTileElements = 128

// Kernel is a matrix multiplication micro-kernel.
type Kernel interface {
	// Name identifies the kernel in registrations, cost-model tables and datasets.
	Name() string

	// MR is the number of rows of the result tile (and of the A panels).
	MR() int

	// NR is the number of columns of the result tile (and of the B panels).
	NR() int

	// Alignment in bytes expected for the packed panels.
	Alignment() int

	// DType of the A and B operands.
	DType() dtypes.DType

	// AccumulatorDType is the dtype of the accumulator tile.
	AccumulatorDType() dtypes.DType

	// PackA is the packing format of the A operand: panels of mr rows.
	PackA() storage.PackingFormat

	// PackB is the packing format of the B operand: panels of nr columns.
	PackB() storage.PackingFormat

	// Run executes the fused-op stream. Any non-OK status means failure, in which case
	// the contents of the destination tile are undefined.
	Run(ops []FusedOp) Status
}

// Status returned by Kernel.Run.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidOperand
	StatusUnsupportedOp
	StatusEmptyStream
)

// Ok returns whether s is StatusOK.
func (s Status) Ok() bool { return s == StatusOK }

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalidOperand:
		return "InvalidOperand"
	case StatusUnsupportedOp:
		return "UnsupportedOp"
	case StatusEmptyStream:
		return "EmptyStream"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Panel is one packed panel of an operand, as laid out by storage.PackingFormat: k x R values, k-major.
type Panel struct {
	Data []byte
}

// FusedOp is one operation of the stream given to Kernel.Run. The concrete types are
// Clear, AddMatMul, ScalarMul, ScalarMin, ScalarMax, PerRowAdd, PerColAdd and Store.
type FusedOp interface {
	isFusedOp()
}

// Clear sets the accumulator tile to zero.
type Clear struct{}

// AddMatMul adds the product of panel A (k x mr) and panel B (k x nr) to the accumulator.
type AddMatMul struct {
	A, B Panel
	K    int
}

// ScalarMul multiplies every accumulator element by Value.
type ScalarMul struct{ Value float64 }

// ScalarMin sets every accumulator element x to min(x, Value).
type ScalarMin struct{ Value float64 }

// ScalarMax sets every accumulator element x to max(x, Value).
type ScalarMax struct{ Value float64 }

// PerRowAdd adds Values[y] to every element of row y. It must have at least mr values.
type PerRowAdd struct{ Values []float64 }

// PerColAdd adds Values[x] to every element of column x. It must have at least nr values.
type PerColAdd struct{ Values []float64 }

// Store writes the accumulator to the tile. The element size of the tile selects the stored
// dtype: 4 bytes stores the accumulator dtype, 1 byte stores saturated int8 (integer kernels only).
type Store struct {
	Tile storage.OutputTile
}

func (Clear) isFusedOp()     {}
func (AddMatMul) isFusedOp() {}
func (ScalarMul) isFusedOp() {}
func (ScalarMin) isFusedOp() {}
func (ScalarMax) isFusedOp() {}
func (PerRowAdd) isFusedOp() {}
func (PerColAdd) isFusedOp() {}
func (Store) isFusedOp()     {}
