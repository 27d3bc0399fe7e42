// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"fmt"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Names of the built-in kernels.
const (
	GenericFloat32Name = "generic_f32_4x4"
	GenericInt32Name   = "generic_i32_4x4"
	GenericQ8Name      = "generic_q8_4x4"
)

// packedAlignment of the built-in non-generic kernels, matching 256-bit vector loads.
const packedAlignment = 32

// GenericFloat32 returns the baseline float32 kernel: a 4x4 tile with the portable body.
func GenericFloat32() Kernel { return New[float32, float32](GenericFloat32Name, 4, 4, 4) }

// GenericInt32 returns the baseline int32 kernel.
func GenericInt32() Kernel { return New[int32, int32](GenericInt32Name, 4, 4, 4) }

// GenericQ8 returns the baseline quantized kernel: int8 operands, int32 accumulator.
func GenericQ8() Kernel { return New[int8, int32](GenericQ8Name, 4, 4, 1) }

// Float32x8x8 returns the float32 8x8 kernel with the unrolled body.
func Float32x8x8() Kernel { return newFloat32x8x8("f32_8x8", packedAlignment) }

// Float32 returns a float32 kernel of the given tile shape, named "f32_<mr>x<nr>".
func Float32(mr, nr int) Kernel {
	return New[float32, float32](tileName("f32", mr, nr), mr, nr, packedAlignment)
}

// Int32x8x8 returns the int32 8x8 kernel.
func Int32x8x8() Kernel { return New[int32, int32]("i32_8x8", 8, 8, packedAlignment) }

// Q8x8x8 returns the quantized 8x8 kernel.
func Q8x8x8() Kernel { return New[int8, int32]("q8_8x8", 8, 8, packedAlignment) }

func tileName(prefix string, mr, nr int) string {
	return fmt.Sprintf("%s_%dx%d", prefix, mr, nr)
}

// Builtin returns all built-in kernels: for each dtype, the generic baseline comes first.
func Builtin() []Kernel {
	return []Kernel{
		GenericFloat32(),
		Float32x8x8(),
		Float32(12, 8),
		Float32(16, 4),
		Float32(24, 4),
		Float32(64, 1),
		GenericInt32(),
		Int32x8x8(),
		GenericQ8(),
		Q8x8x8(),
	}
}

// Registration of a kernel in a Set.
type Registration struct {
	Name   string
	MR, NR int
	DType  dtypes.DType
	Kernel Kernel
}

// Set is an immutable ordered list of kernel registrations. The order matters: it is the
// tie-breaking order of the dispatcher.
type Set struct {
	registrations []Registration
}

// NewSet returns a Set with the kernels in the given order. Kernel names must be unique.
func NewSet(kernels ...Kernel) (Set, error) {
	s := Set{registrations: make([]Registration, 0, len(kernels))}
	for _, k := range kernels {
		if k == nil {
			return Set{}, errors.New("kernels.NewSet: nil kernel")
		}
		if _, found := s.Lookup(k.Name()); found {
			return Set{}, errors.Errorf("kernels.NewSet: kernel %q registered twice", k.Name())
		}
		s.registrations = append(s.registrations, Registration{
			Name:   k.Name(),
			MR:     k.MR(),
			NR:     k.NR(),
			DType:  k.DType(),
			Kernel: k,
		})
	}
	return s, nil
}

// Len returns the number of registered kernels.
func (s Set) Len() int { return len(s.registrations) }

// Registrations returns a copy of the registrations in order.
func (s Set) Registrations() []Registration { return slices.Clone(s.registrations) }

// Kernels returns the registered kernels in order.
func (s Set) Kernels() []Kernel {
	kernels := make([]Kernel, len(s.registrations))
	for ii, r := range s.registrations {
		kernels[ii] = r.Kernel
	}
	return kernels
}

// Names returns the names of the registered kernels in order.
func (s Set) Names() []string {
	names := make([]string, len(s.registrations))
	for ii, r := range s.registrations {
		names[ii] = r.Name
	}
	return names
}

// Lookup returns the kernel registered with name.
func (s Set) Lookup(name string) (Kernel, bool) {
	for _, r := range s.registrations {
		if r.Name == name {
			return r.Kernel, true
		}
	}
	return nil, false
}

// ForDType returns the registrations for operands of the given dtype, in order.
func (s Set) ForDType(dtype dtypes.DType) []Registration {
	var regs []Registration
	for _, r := range s.registrations {
		if r.DType == dtype {
			regs = append(regs, r)
		}
	}
	return regs
}
