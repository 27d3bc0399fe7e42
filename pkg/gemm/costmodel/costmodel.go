// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package costmodel predicts the latency of a matrix multiplication kernel for a shape (m, k, n).
//
// A CostModel is a linear regression over a fixed feature vector (see Features) derived from
// the shape and the kernel tile (mr, nr). Models are trained offline (Train, TrainAll) from a
// Dataset of measured latencies, and emitted as Go source (WriteGoSource) into static tables
// compiled into the binary.
//
// The same Features function is used for training and prediction: changing it invalidates all
// emitted tables.
package costmodel

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// NumFeatures is the length of the feature vector returned by Features.
const NumFeatures = 11

// ErrRankDeficient is returned by Train when the samples can't determine the model coefficients:
// too few samples or collinear features.
var ErrRankDeficient = errors.New("rank deficient design matrix")

// Features returns the regression features of the shape (m, k, n) for a kernel tile (mr, nr):
//
//	m, k, n, mt, nt, m·k, k·n, m·n, mt·nt, mt·nt·k, m·k·n
//
// where mt = ceil(m/mr) and nt = ceil(n/nr) are the number of tiles in each direction.
func Features(mr, nr, m, k, n int) []float64 {
	mt := (m + mr - 1) / mr
	nt := (n + nr - 1) / nr
	fm, fk, fn := float64(m), float64(k), float64(n)
	tm, tn := float64(mt), float64(nt)
	return []float64{
		fm, fk, fn,
		tm, tn,
		fm * fk, fk * fn, fm * fn,
		tm * tn, tm * tn * fk,
		fm * fk * fn,
	}
}

// CostModel of one kernel: latency in seconds = Intercept + Coef · Features(MR, NR, m, k, n).
type CostModel struct {
	MR, NR    int
	Intercept float64
	Coef      []float64
}

// Validate returns an error if the model is malformed.
func (c *CostModel) Validate() error {
	if c.MR <= 0 || c.NR <= 0 {
		return errors.Errorf("invalid cost model tile shape (%d, %d)", c.MR, c.NR)
	}
	if len(c.Coef) != NumFeatures {
		return errors.Errorf("cost model has %d coefficients, wanted %d", len(c.Coef), NumFeatures)
	}
	if math.IsNaN(c.Intercept) || math.IsInf(c.Intercept, 0) || math.IsNaN(floats.Sum(c.Coef)) || math.IsInf(floats.Sum(c.Coef), 0) {
		return errors.New("cost model has non-finite parameters")
	}
	return nil
}

// Predict the latency in seconds of the shape (m, k, n). The prediction is not clamped:
// it can be negative or meaningless outside the range of the training data.
//
// It panics if the model doesn't have NumFeatures coefficients (see Validate).
func (c *CostModel) Predict(m, k, n int) float64 {
	return c.Intercept + floats.Dot(c.Coef, Features(c.MR, c.NR, m, k, n))
}

// KernelShape is what the cost model needs to know about a kernel.
// kernels.Kernel implements it.
type KernelShape interface {
	Name() string
	MR() int
	NR() int
}

// Shape is a KernelShape given by value, used when training from a dataset without the kernels at hand.
type Shape struct {
	KernelName string
	Rows, Cols int
}

func (s Shape) Name() string { return s.KernelName }
func (s Shape) MR() int      { return s.Rows }
func (s Shape) NR() int      { return s.Cols }

// Entry of a Table: the model of one kernel.
type Entry struct {
	Kernel string
	Model  CostModel
}

// Table of cost models, one per kernel name.
type Table []Entry

// Lookup returns the model of the kernel with the given name.
func (t Table) Lookup(name string) (*CostModel, bool) {
	for ii := range t {
		if t[ii].Kernel == name {
			return &t[ii].Model, true
		}
	}
	return nil, false
}

// Names returns the kernel names of the table in order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for ii, e := range t {
		names[ii] = e.Kernel
	}
	return names
}

// Validate all the models of the table.
func (t Table) Validate() error {
	seen := make(map[string]bool, len(t))
	for _, e := range t {
		if seen[e.Kernel] {
			return errors.Errorf("kernel %q appears twice in cost-model table", e.Kernel)
		}
		seen[e.Kernel] = true
		if err := e.Model.Validate(); err != nil {
			return errors.WithMessagef(err, "kernel %q", e.Kernel)
		}
	}
	return nil
}
