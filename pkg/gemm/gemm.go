// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gemm assembles, for a CPU profile, the matrix multiplication kernels, their cost models
// and the dispatcher that picks the best kernel for each shape.
//
// Most users only need Default().MatMul:
//
//	c := tensors.New(dtypes.Float32, m, n)
//	err := gemm.Default().MatMul(a, b, c)
package gemm

import (
	"sync"

	"github.com/gomlx/tilegemm/pkg/core/tensors"
	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/gomlx/tilegemm/pkg/gemm/cpuprofile"
	"github.com/gomlx/tilegemm/pkg/gemm/dispatch"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/gomlx/tilegemm/pkg/gemm/mmm"
	"github.com/gomlx/tilegemm/pkg/gemm/models"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Ops is the set of kernels, models and dispatcher for one CPU profile. It is immutable and
// safe for concurrent use.
type Ops struct {
	Profile    cpuprofile.Profile
	Kernels    kernels.Set
	Models     costmodel.Table
	Dispatcher *dispatch.Dispatcher
}

// KernelsFor returns the kernels registered for the profile, in registration order: the generic
// baseline of each dtype comes first.
//
// In-order cores (Cortex-A53 and A55) don't register the tallest float32 tiles, whose
// accumulators don't fit their register files.
func KernelsFor(profile cpuprofile.Profile) []kernels.Kernel {
	all := kernels.Builtin()
	if profile.Kind != cpuprofile.KindCortexA53 && profile.Kind != cpuprofile.KindCortexA55 {
		return all
	}
	selected := make([]kernels.Kernel, 0, len(all))
	for _, kernel := range all {
		if kernel.MR() > 16 {
			continue
		}
		selected = append(selected, kernel)
	}
	return selected
}

// New returns the Ops for the profile.
func New(profile cpuprofile.Profile) (*Ops, error) {
	set, err := kernels.NewSet(KernelsFor(profile)...)
	if err != nil {
		return nil, errors.WithMessagef(err, "gemm.New(%s)", profile)
	}
	table := models.ForKind(profile.Kind)
	dispatcher, err := dispatch.New(dispatch.Config{Profile: profile, Kernels: set, Models: table})
	if err != nil {
		return nil, errors.WithMessagef(err, "gemm.New(%s)", profile)
	}
	klog.V(1).Infof("gemm: %d kernels, %d cost models for %s", set.Len(), len(table), profile)
	return &Ops{
		Profile:    profile,
		Kernels:    set,
		Models:     table,
		Dispatcher: dispatcher,
	}, nil
}

var defaultOps = sync.OnceValue(func() *Ops {
	return must.M1(New(cpuprofile.Default()))
})

// Default returns the Ops of the host CPU profile (see cpuprofile.Default). It is created on first use.
func Default() *Ops {
	return defaultOps()
}

// Select returns the kernel for the multiplication a·b, for a [m, k] and b [k, n].
func (o *Ops) Select(a, b *tensors.View) (kernels.Kernel, error) {
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, errors.Errorf("gemm: operands must be matrices, got shapes %s and %s", a.Shape(), b.Shape())
	}
	return o.Dispatcher.Select(a.DType(), a.Shape().Dim(0), a.Shape().Dim(1), b.Shape().Dim(1))
}

// MatMul computes c = a·b with the kernel selected for the shape. See mmm.MatMul for the
// operands and the extra fused operations.
func (o *Ops) MatMul(a, b, c *tensors.View, extra ...kernels.FusedOp) error {
	kernel, err := o.Select(a, b)
	if err != nil {
		return err
	}
	return mmm.MatMul(kernel, a, b, c, extra...)
}
