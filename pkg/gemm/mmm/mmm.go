// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package mmm drives a micro-kernel over a whole matrix multiplication c = a·b.
//
// The operands are packed in the kernel's panel formats, and the destination is walked
// tile by tile: full tiles are stored by the kernel directly into c, boundary tiles are
// stored into a scratch tile and then copied back with only their valid region.
package mmm

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tilegemm/pkg/core/tensors"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/gomlx/tilegemm/pkg/gemm/storage"
	"github.com/pkg/errors"
)

// ErrKernelFailed is returned when a kernel returns a non-OK status. The destination contents are then undefined.
var ErrKernelFailed = errors.New("kernel failed")

// Operands of a matrix multiplication packed for a kernel.
type Operands struct {
	Kernel  kernels.Kernel
	M, K, N int

	// A and B packed in Kernel.PackA() and Kernel.PackB() formats.
	A, B []byte
}

// NewOperands returns zeroed packed operands for the shape (m, k, n).
func NewOperands(kernel kernels.Kernel, m, k, n int) *Operands {
	itemSize := int(kernel.DType().Size())
	return &Operands{
		Kernel: kernel,
		M:      m,
		K:      k,
		N:      n,
		A:      kernel.PackA().Alloc(k, m, itemSize),
		B:      kernel.PackB().Alloc(k, n, itemSize),
	}
}

// PackOperands packs a ([m, k]) and b ([k, n]) for kernel.
func PackOperands(kernel kernels.Kernel, a, b *tensors.View) (*Operands, error) {
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, errors.Errorf("mmm: operands must be matrices, got shapes %s and %s", a.Shape(), b.Shape())
	}
	if a.DType() != kernel.DType() || b.DType() != kernel.DType() {
		return nil, errors.Errorf("mmm: kernel %q takes %s operands, got %s and %s",
			kernel.Name(), kernel.DType(), a.DType(), b.DType())
	}
	m, k := a.Shape().Dim(0), a.Shape().Dim(1)
	if b.Shape().Dim(0) != k {
		return nil, errors.Errorf("mmm: contracting dimensions don't match for shapes %s and %s", a.Shape(), b.Shape())
	}
	ops := NewOperands(kernel, m, k, b.Shape().Dim(1))
	if err := kernel.PackA().Pack(ops.A, a, 1, 0); err != nil {
		return nil, errors.WithMessagef(err, "mmm: packing A for kernel %q", kernel.Name())
	}
	if err := kernel.PackB().Pack(ops.B, b, 0, 1); err != nil {
		return nil, errors.WithMessagef(err, "mmm: packing B for kernel %q", kernel.Name())
	}
	return ops, nil
}

// Scratch holds the per-call working memory of Run. It is owned by the caller, reused across calls
// to avoid allocations, and must not be shared by concurrent calls.
type Scratch struct {
	tile []byte
	ops  []kernels.FusedOp

	// values[i] holds the per-tile values of the i-th extra op, if it is a PerRowAdd or PerColAdd.
	values [][]float64
}

// MatMul computes c = a·b using kernel, for a [m, k], b [k, n] and c [m, n]. The destination c
// may have any strides (e.g. a transposed view). The extra fused ops are applied on each tile
// after the multiplication: PerRowAdd and PerColAdd take values for the whole m rows / n columns.
func MatMul(kernel kernels.Kernel, a, b, c *tensors.View, extra ...kernels.FusedOp) error {
	ops, err := PackOperands(kernel, a, b)
	if err != nil {
		return err
	}
	var scratch Scratch
	return scratch.Run(ops, c, extra...)
}

// checkDestination returns an error if c can't hold the result of the operands.
func checkDestination(ops *Operands, c *tensors.View) error {
	if c.Rank() != 2 || c.Shape().Dim(0) != ops.M || c.Shape().Dim(1) != ops.N {
		return errors.Errorf("mmm: destination shape %s, expected [%d %d]", c.Shape(), ops.M, ops.N)
	}
	accDType := ops.Kernel.AccumulatorDType()
	if c.DType() != accDType && !(c.DType() == dtypes.Int8 && accDType == dtypes.Int32) {
		return errors.Errorf("mmm: kernel %q can't store to %s (accumulator is %s)", ops.Kernel.Name(), c.DType(), accDType)
	}
	return nil
}

// Run multiplies the packed operands into c. See MatMul.
func (s *Scratch) Run(ops *Operands, c *tensors.View, extra ...kernels.FusedOp) error {
	if err := checkDestination(ops, c); err != nil {
		return err
	}
	kernel := ops.Kernel
	mr, nr := kernel.MR(), kernel.NR()
	for _, op := range extra {
		switch op := op.(type) {
		case kernels.PerRowAdd:
			if len(op.Values) != ops.M {
				return errors.Errorf("mmm: PerRowAdd has %d values for %d rows", len(op.Values), ops.M)
			}
		case kernels.PerColAdd:
			if len(op.Values) != ops.N {
				return errors.Errorf("mmm: PerColAdd has %d values for %d columns", len(op.Values), ops.N)
			}
		case kernels.Clear, kernels.AddMatMul, kernels.Store:
			return errors.Errorf("mmm: %T can't be given as an extra fused op", op)
		}
	}
	store, err := storage.ViewSpec{MR: mr, NR: nr}.Bind(c)
	if err != nil {
		return errors.WithMessagef(err, "mmm: kernel %q", kernel.Name())
	}
	s.reserve(mr, nr, store.ItemSize, len(extra))
	itemSize := int(kernel.DType().Size())
	packA, packB := kernel.PackA(), kernel.PackB()
	numRowTiles, numColTiles := packA.NumPanels(ops.M), packB.NumPanels(ops.N)
	scratchTile := storage.ScratchTile(s.tile, mr, store.ItemSize)
	for tileRow := range numRowTiles {
		height := min(mr, ops.M-tileRow*mr)
		panelA := kernels.Panel{Data: packA.Panel(ops.A, tileRow, ops.K, itemSize)}
		for tileCol := range numColTiles {
			width := min(nr, ops.N-tileCol*nr)
			full := height == mr && width == nr
			target := scratchTile
			if full {
				target = store.TileAt(tileRow, tileCol)
			}
			s.ops = append(s.ops[:0], kernels.Clear{}, kernels.AddMatMul{
				A: panelA,
				B: kernels.Panel{Data: packB.Panel(ops.B, tileCol, ops.K, itemSize)},
				K: ops.K,
			})
			s.appendExtra(extra, tileRow, tileCol, mr, nr)
			s.ops = append(s.ops, kernels.Store{Tile: target})
			if status := kernel.Run(s.ops); !status.Ok() {
				return errors.Wrapf(ErrKernelFailed, "kernel %q returned %s on tile (%d, %d)", kernel.Name(), status, tileRow, tileCol)
			}
			if !full {
				store.WriteTile(tileRow, tileCol, height, width, scratchTile)
			}
		}
	}
	return nil
}

func (s *Scratch) reserve(mr, nr, itemSize, numExtra int) {
	if need := mr * nr * itemSize; len(s.tile) < need {
		s.tile = tensors.AlignedBytes(need, tensors.DefaultAlignment)
	}
	for len(s.values) < numExtra {
		s.values = append(s.values, nil)
	}
	for ii := range numExtra {
		if len(s.values[ii]) < max(mr, nr) {
			s.values[ii] = make([]float64, max(mr, nr))
		}
	}
}

// appendExtra appends the extra ops for the given tile, slicing and zero-padding the per-row and
// per-column values.
func (s *Scratch) appendExtra(extra []kernels.FusedOp, tileRow, tileCol, mr, nr int) {
	for ii, op := range extra {
		switch op := op.(type) {
		case kernels.PerRowAdd:
			s.ops = append(s.ops, kernels.PerRowAdd{Values: tileValues(s.values[ii][:mr], op.Values, tileRow*mr)})
		case kernels.PerColAdd:
			s.ops = append(s.ops, kernels.PerColAdd{Values: tileValues(s.values[ii][:nr], op.Values, tileCol*nr)})
		default:
			s.ops = append(s.ops, op)
		}
	}
}

// tileValues copies values[start:] into buf, zero-padding, and returns buf.
func tileValues(buf, values []float64, start int) []float64 {
	n := copy(buf, values[start:])
	clear(buf[n:])
	return buf
}
