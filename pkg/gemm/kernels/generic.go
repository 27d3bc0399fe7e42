// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tilegemm/pkg/core/tensors"
	"github.com/gomlx/tilegemm/pkg/gemm/storage"
)

// Operand types supported by the kernels.
type Operand interface {
	float32 | int32 | int8
}

// Accumulator types supported by the kernels.
type Accumulator interface {
	float32 | int32
}

// tileKernel implements Kernel for any (mr, nr) with a portable Go body.
type tileKernel[In Operand, Acc Accumulator] struct {
	name             string
	mr, nr           int
	alignment        int
	dtype, accDType  dtypes.DType
	isFloat          bool
	unrolledFloat8x8 bool
}

// New returns a kernel with operands of type In and an accumulator of type Acc, computing tiles of mr x nr.
//
// It panics if mr*nr > MaxTileElements.
func New[In Operand, Acc Accumulator](name string, mr, nr, alignment int) Kernel {
	if mr <= 0 || nr <= 0 || mr*nr > MaxTileElements {
		exceptions.Panicf("kernels.New(%q): invalid tile shape %dx%d (max %d elements)", name, mr, nr, MaxTileElements)
	}
	accDType := dtypes.FromGenericsType[Acc]()
	return &tileKernel[In, Acc]{
		name:      name,
		mr:        mr,
		nr:        nr,
		alignment: alignment,
		dtype:     dtypes.FromGenericsType[In](),
		accDType:  accDType,
		isFloat:   accDType == dtypes.Float32,
	}
}

// newFloat32x8x8 returns the float32 8x8 kernel with the hand-unrolled body.
func newFloat32x8x8(name string, alignment int) Kernel {
	k := New[float32, float32](name, 8, 8, alignment).(*tileKernel[float32, float32])
	k.unrolledFloat8x8 = true
	return k
}

func (k *tileKernel[In, Acc]) Name() string                   { return k.name }
func (k *tileKernel[In, Acc]) MR() int                        { return k.mr }
func (k *tileKernel[In, Acc]) NR() int                        { return k.nr }
func (k *tileKernel[In, Acc]) Alignment() int                 { return k.alignment }
func (k *tileKernel[In, Acc]) DType() dtypes.DType            { return k.dtype }
func (k *tileKernel[In, Acc]) AccumulatorDType() dtypes.DType { return k.accDType }

func (k *tileKernel[In, Acc]) PackA() storage.PackingFormat {
	return storage.NewPackingFormat(k.mr, k.alignment)
}

func (k *tileKernel[In, Acc]) PackB() storage.PackingFormat {
	return storage.NewPackingFormat(k.nr, k.alignment)
}

// String implements fmt.Stringer.
func (k *tileKernel[In, Acc]) String() string { return k.name }

// scalar converts a fused-op value to the accumulator type: integer accumulators round to nearest.
func (k *tileKernel[In, Acc]) scalar(v float64) Acc {
	if k.isFloat {
		return Acc(v)
	}
	return Acc(saturateInt32(v))
}

// Run implements Kernel.
func (k *tileKernel[In, Acc]) Run(ops []FusedOp) Status {
	if len(ops) == 0 {
		return StatusEmptyStream
	}
	var acc [MaxTileElements]Acc
	mr, nr := k.mr, k.nr
	tile := acc[:mr*nr]
	for _, op := range ops {
		switch op := op.(type) {
		case Clear:
			clear(tile)

		case AddMatMul:
			itemSize := int(k.dtype.Size())
			if op.K < 0 || len(op.A.Data) < op.K*mr*itemSize || len(op.B.Data) < op.K*nr*itemSize {
				return StatusInvalidOperand
			}
			if op.K == 0 {
				continue
			}
			if k.unrolledFloat8x8 {
				float32Body8x8((*[MaxTileElements]float32)(unsafe.Pointer(&acc)),
					tensors.Elements[float32](op.A.Data), tensors.Elements[float32](op.B.Data), op.K)
			} else {
				genericBody(tile, tensors.Elements[In](op.A.Data), tensors.Elements[In](op.B.Data), op.K, mr, nr)
			}

		case ScalarMul:
			if k.isFloat {
				s := Acc(op.Value)
				for i := range tile {
					tile[i] *= s
				}
			} else {
				for i := range tile {
					tile[i] = Acc(saturateInt32(float64(tile[i]) * op.Value))
				}
			}

		case ScalarMin:
			s := k.scalar(op.Value)
			for i := range tile {
				tile[i] = min(tile[i], s)
			}

		case ScalarMax:
			s := k.scalar(op.Value)
			for i := range tile {
				tile[i] = max(tile[i], s)
			}

		case PerRowAdd:
			if len(op.Values) < mr {
				return StatusInvalidOperand
			}
			for x := range nr {
				col := tile[x*mr : (x+1)*mr]
				for y := range col {
					col[y] += k.scalar(op.Values[y])
				}
			}

		case PerColAdd:
			if len(op.Values) < nr {
				return StatusInvalidOperand
			}
			for x := range nr {
				s := k.scalar(op.Values[x])
				col := tile[x*mr : (x+1)*mr]
				for y := range col {
					col[y] += s
				}
			}

		case Store:
			if status := k.store(tile, op.Tile); status != StatusOK {
				return status
			}

		default:
			return StatusUnsupportedOp
		}
	}
	return StatusOK
}

// store writes the column-major accumulator tile (element (y, x) at y + x*mr) to dst.
func (k *tileKernel[In, Acc]) store(tile []Acc, dst storage.OutputTile) Status {
	mr, nr := k.mr, k.nr
	switch dst.ItemSize {
	case 4:
	case 1:
		if k.isFloat {
			return StatusUnsupportedOp
		}
	default:
		return StatusUnsupportedOp
	}
	if !tileFits(dst, mr, nr) {
		return StatusInvalidOperand
	}
	for x := range nr {
		for y := range mr {
			v := tile[y+x*mr]
			if dst.ItemSize == 4 {
				tensors.Store(dst.Data, dst.ByteOffset(y, x), v)
			} else {
				tensors.Store(dst.Data, dst.ByteOffset(y, x), saturateInt8(int32(v)))
			}
		}
	}
	return StatusOK
}

// tileFits returns whether all elements of an mr x nr tile fall within dst.Data.
func tileFits(dst storage.OutputTile, mr, nr int) bool {
	low, high := dst.Offset, dst.Offset
	for _, reach := range [2]int{(mr - 1) * dst.RowByteStride, (nr - 1) * dst.ColByteStride} {
		if reach < 0 {
			low += reach
		} else {
			high += reach
		}
	}
	return low >= 0 && high+dst.ItemSize <= len(dst.Data)
}

// genericBody accumulates the product of the packed panels a ([k][mr]) and b ([k][nr]) into the
// column-major tile.
func genericBody[In Operand, Acc Accumulator](tile []Acc, a, b []In, k, mr, nr int) {
	for p := range k {
		aRow := a[p*mr : (p+1)*mr]
		bRow := b[p*nr : (p+1)*nr]
		for x, bv := range bRow {
			col := tile[x*mr : (x+1)*mr]
			bAcc := Acc(bv)
			for y, av := range aRow {
				col[y] += Acc(av) * bAcc
			}
		}
	}
}

func saturateInt32(v float64) int32 {
	v = math.Round(v)
	if v >= math.MaxInt32 {
		return math.MaxInt32
	} else if v <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

func saturateInt8(v int32) int8 {
	if v > math.MaxInt8 {
		return math.MaxInt8
	} else if v < math.MinInt8 {
		return math.MinInt8
	}
	return int8(v)
}
