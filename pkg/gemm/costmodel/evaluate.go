// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package costmodel

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// EvaluationRow compares the prediction of a model with one measured sample.
type EvaluationRow struct {
	M, K, N   int
	Measured  float64
	Predicted float64
}

// RelError is the signed relative error of the prediction: (predicted - measured) / measured.
func (r EvaluationRow) RelError() float64 {
	return (r.Predicted - r.Measured) / r.Measured
}

// Evaluation of a model against the samples of a dataset.
type Evaluation struct {
	Kernel string

	// Rows sorted by (m, k, n, measured).
	Rows []EvaluationRow

	// RSquared is the coefficient of determination of the predictions.
	RSquared float64

	// MeanAbsRelError is the mean of |RelError| over the rows.
	MeanAbsRelError float64
}

// Evaluate model on the samples of kernel name in ds.
func Evaluate(model *CostModel, name string, ds Dataset) Evaluation {
	samples := ds.Filter(name)
	ev := Evaluation{Kernel: name, Rows: make([]EvaluationRow, len(samples))}
	for ii, s := range samples {
		ev.Rows[ii] = EvaluationRow{M: s.M, K: s.K, N: s.N, Measured: s.Seconds, Predicted: model.Predict(s.M, s.K, s.N)}
	}
	slices.SortFunc(ev.Rows, func(a, b EvaluationRow) int {
		return cmp.Or(cmp.Compare(a.M, b.M), cmp.Compare(a.K, b.K), cmp.Compare(a.N, b.N), cmp.Compare(a.Measured, b.Measured))
	})
	if len(ev.Rows) == 0 {
		ev.RSquared, ev.MeanAbsRelError = math.NaN(), math.NaN()
		return ev
	}
	measured := make([]float64, len(ev.Rows))
	predicted := make([]float64, len(ev.Rows))
	absRel := make([]float64, len(ev.Rows))
	for ii, r := range ev.Rows {
		measured[ii], predicted[ii] = r.Measured, r.Predicted
		absRel[ii] = math.Abs(r.RelError())
	}
	ev.RSquared = stat.RSquaredFrom(predicted, measured, nil)
	ev.MeanAbsRelError = stat.Mean(absRel, nil)
	return ev
}
