// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package costmodel

import (
	"math"

	"github.com/gomlx/tilegemm/internal/workerspool"
	"github.com/gomlx/tilegemm/pkg/support/xslices"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

// MaxConditionNumber of the (column-scaled) design matrix accepted by Train.
const MaxConditionNumber = 1e12

// structuralShapes are the matmul shapes used to find the features that are identical for
// every shape, given a kernel tile shape. They include m = 3 so that ceil(m/mr) != m whenever mr > 1,
// and the same for n.
var structuralShapes = [][3]int{
	{1, 1, 1}, {3, 5, 7}, {7, 33, 3}, {13, 2, 250}, {69, 17, 13}, {250, 3, 69},
}

// redundantFeatures returns for each feature the index of an earlier feature it always equals
// for tiles of mr×nr, or -1 if it is independent of the earlier ones.
//
// E.g.: for nr == 1 the number of column tiles nt is n, and for mr == 1 mt is m.
func redundantFeatures(mr, nr int) []int {
	values := make([][]float64, len(structuralShapes))
	for ii, s := range structuralShapes {
		values[ii] = Features(mr, nr, s[0], s[1], s[2])
	}
	sameFeature := func(a, b int) bool {
		for _, v := range values {
			if v[a] != v[b] {
				return false
			}
		}
		return true
	}
	duplicateOf := xslices.SliceWithValue(NumFeatures, -1)
	for jj := range NumFeatures {
		for ii := range jj {
			if duplicateOf[ii] == -1 && sameFeature(ii, jj) {
				duplicateOf[jj] = ii
				break
			}
		}
	}
	return duplicateOf
}

// Train fits the cost model of kernel with ordinary least squares over its samples in ds.
//
// The design matrix [1, Features...] is scaled per column (to max absolute value 1) before
// the QR factorization, since the features span many orders of magnitude.
// Features that are always equal to an earlier one for the kernel tile shape (see
// redundantFeatures) are left out of the fit and get a coefficient of 0.
// It returns ErrRankDeficient if there are fewer than NumFeatures+1 samples or if the
// remaining features are (close to) collinear.
func Train(ds Dataset, kernel KernelShape) (*CostModel, error) {
	name, mr, nr := kernel.Name(), kernel.MR(), kernel.NR()
	samples := ds.Filter(name)
	rows := len(samples)
	if rows < NumFeatures+1 {
		return nil, errors.Wrapf(ErrRankDeficient, "kernel %q has %d samples, at least %d are needed", name, rows, NumFeatures+1)
	}

	// columns maps design matrix columns to parameters: 0 is the intercept, feature i is i+1.
	columns := []int{0}
	for feature, duplicateOf := range redundantFeatures(mr, nr) {
		if duplicateOf >= 0 {
			klog.V(1).Infof("kernel %q: feature %d is the same as feature %d for %dx%d tiles, dropped from fit",
				name, feature, duplicateOf, mr, nr)
			continue
		}
		columns = append(columns, feature+1)
	}
	cols := len(columns)
	x := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)
	x.SetCol(0, xslices.SliceWithValue(rows, 1.0))
	for ii, s := range samples {
		features := Features(mr, nr, s.M, s.K, s.N)
		for jj, param := range columns[1:] {
			x.Set(ii, jj+1, features[param-1])
		}
		y.SetVec(ii, s.Seconds)
	}

	scales := make([]float64, cols)
	col := make([]float64, rows)
	for jj := range cols {
		mat.Col(col, jj, x)
		scales[jj] = floats.Norm(col, math.Inf(1))
		if scales[jj] == 0 {
			return nil, errors.Wrapf(ErrRankDeficient, "kernel %q: feature %d is always 0", name, columns[jj]-1)
		}
		floats.Scale(1/scales[jj], col)
		x.SetCol(jj, col)
	}

	var qr mat.QR
	qr.Factorize(x)
	if cond := qr.Cond(); math.IsNaN(cond) || cond > MaxConditionNumber {
		return nil, errors.Wrapf(ErrRankDeficient, "kernel %q: condition number %g", name, cond)
	}
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, errors.Wrapf(ErrRankDeficient, "kernel %q: %v", name, err)
	}
	params := make([]float64, NumFeatures+1)
	for jj, param := range columns {
		params[param] = beta.AtVec(jj) / scales[jj]
	}
	model := &CostModel{MR: mr, NR: nr, Intercept: params[0], Coef: params[1:]}

	if klog.V(1).Enabled() {
		estimates := make([]float64, rows)
		for ii, s := range samples {
			estimates[ii] = model.Predict(s.M, s.K, s.N)
		}
		klog.Infof("trained cost model of %q on %d samples: R²=%.4f", name, rows,
			stat.RSquaredFrom(estimates, y.RawVector().Data, nil))
	}
	return model, nil
}

// TrainAll trains the models of all the given kernels, using pool to train them in parallel
// (a nil pool trains sequentially).
//
// A failure on one kernel doesn't affect the others: the returned Table holds the models
// that could be trained, in the order of kernelShapes, and failures holds the error of the others.
func TrainAll(ds Dataset, kernelShapes []KernelShape, pool *workerspool.Pool) (table Table, failures map[string]error) {
	models := make([]*CostModel, len(kernelShapes))
	errs := make([]error, len(kernelShapes))
	pool.ForEach(len(kernelShapes), func(ii int) {
		models[ii], errs[ii] = Train(ds, kernelShapes[ii])
	})
	failures = make(map[string]error)
	for ii, k := range kernelShapes {
		if errs[ii] != nil {
			klog.Warningf("failed to train cost model for kernel %q: %v", k.Name(), errs[ii])
			failures[k.Name()] = errs[ii]
			continue
		}
		table = append(table, Entry{Kernel: k.Name(), Model: *models[ii]})
	}
	return table, failures
}
