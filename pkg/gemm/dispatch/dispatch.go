// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dispatch selects, for a matrix multiplication shape, the registered kernel with the
// lowest latency predicted by the cost models of the CPU profile.
package dispatch

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/gomlx/tilegemm/pkg/gemm/cpuprofile"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrNoKernel is returned when no kernel is registered for the requested dtype.
var ErrNoKernel = errors.New("no kernel registered")

// Config of a Dispatcher.
type Config struct {
	Profile cpuprofile.Profile

	// Kernels in registration order, which breaks ties between equal predictions.
	Kernels kernels.Set

	// Models of the kernels. Kernels without a model are only selected if no kernel of the
	// dtype has one.
	Models costmodel.Table
}

// Dispatcher is immutable after New, and safe for concurrent use.
type Dispatcher struct {
	profile cpuprofile.Profile
	kernels kernels.Set
	models  []*costmodel.CostModel // Parallel to kernels.Registrations().
	regs    []kernels.Registration
}

// New returns a Dispatcher for the configuration.
//
// It fails if there are no kernels, or if a model is malformed or doesn't match the tile shape
// of its kernel. Models of unknown kernels are ignored.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Kernels.Len() == 0 {
		return nil, errors.Wrapf(ErrNoKernel, "dispatch.New for profile %s", cfg.Profile)
	}
	d := &Dispatcher{
		profile: cfg.Profile,
		kernels: cfg.Kernels,
		regs:    cfg.Kernels.Registrations(),
	}
	d.models = make([]*costmodel.CostModel, len(d.regs))
	for ii, reg := range d.regs {
		model, found := cfg.Models.Lookup(reg.Name)
		if !found {
			klog.V(1).Infof("dispatch: no cost model for kernel %q on %s", reg.Name, cfg.Profile.Kind)
			continue
		}
		if err := model.Validate(); err != nil {
			return nil, errors.WithMessagef(err, "dispatch.New: model of kernel %q", reg.Name)
		}
		if model.MR != reg.MR || model.NR != reg.NR {
			return nil, errors.Errorf("dispatch.New: model of kernel %q is for tiles %dx%d, kernel tiles are %dx%d",
				reg.Name, model.MR, model.NR, reg.MR, reg.NR)
		}
		d.models[ii] = model
	}
	return d, nil
}

// Profile used by the dispatcher.
func (d *Dispatcher) Profile() cpuprofile.Profile { return d.profile }

// Kernels registered in the dispatcher.
func (d *Dispatcher) Kernels() kernels.Set { return d.kernels }

// Candidate kernel for a shape, with its predicted latency in seconds (+Inf if it has no model).
type Candidate struct {
	Kernel    kernels.Kernel
	Predicted float64
}

func (d *Dispatcher) predict(ii int, m, k, n int) float64 {
	if d.models[ii] == nil {
		return math.Inf(1)
	}
	prediction := d.models[ii].Predict(m, k, n)
	if math.IsNaN(prediction) {
		return math.Inf(1)
	}
	return prediction
}

// Candidates returns the kernels of the dtype with their predictions for (m, k, n), in registration order.
func (d *Dispatcher) Candidates(dtype dtypes.DType, m, k, n int) []Candidate {
	var candidates []Candidate
	for ii, reg := range d.regs {
		if reg.DType == dtype {
			candidates = append(candidates, Candidate{Kernel: reg.Kernel, Predicted: d.predict(ii, m, k, n)})
		}
	}
	return candidates
}

// Select returns the kernel of the dtype with the lowest predicted latency for (m, k, n).
// Ties go to the kernel registered first.
//
// It returns ErrNoKernel if no kernel is registered for dtype.
func (d *Dispatcher) Select(dtype dtypes.DType, m, k, n int) (kernels.Kernel, error) {
	best := -1
	bestPrediction := math.Inf(1)
	for ii, reg := range d.regs {
		if reg.DType != dtype {
			continue
		}
		prediction := d.predict(ii, m, k, n)
		if best < 0 || prediction < bestPrediction {
			best, bestPrediction = ii, prediction
		}
	}
	if best < 0 {
		return nil, errors.Wrapf(ErrNoKernel, "dispatch: dtype %s on %s", dtype, d.profile.Kind)
	}
	return d.regs[best].Kernel, nil
}

// MustSelect is like Select, but panics if there is no kernel for dtype.
func (d *Dispatcher) MustSelect(dtype dtypes.DType, m, k, n int) kernels.Kernel {
	kernel, err := d.Select(dtype, m, k, n)
	if err != nil {
		exceptions.Panicf("%+v", err)
	}
	return kernel
}
