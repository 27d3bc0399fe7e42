// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"io"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/gomlx/tilegemm/pkg/core/tensors"
	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/gomlx/tilegemm/pkg/gemm/mmm"
	"github.com/gomlx/tilegemm/pkg/support/sets"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// MeasureMatMul returns the latency in seconds of multiplying packed zero operands of shape (m, k, n)
// with kernel into a destination of the accumulator dtype.
//
// Caches are ruined before each call (see Harness.RuinCache) and the noise floor is subtracted.
func (h *Harness) MeasureMatMul(kernel kernels.Kernel, m, k, n int) (float64, error) {
	if m <= 0 || k <= 0 || n <= 0 {
		return 0, errors.Errorf("bench: invalid matmul shape (%d, %d, %d)", m, k, n)
	}
	ops := mmm.NewOperands(kernel, m, k, n)
	c := tensors.New(kernel.AccumulatorDType(), m, n)
	var scratch mmm.Scratch
	// Checks the configuration once, so the measured function can't fail.
	if err := scratch.Run(ops, c); err != nil {
		return 0, errors.WithMessagef(err, "bench: kernel %q on (%d, %d, %d)", kernel.Name(), m, k, n)
	}
	var err error
	seconds := h.MeasureCorrected(func() {
		if runErr := scratch.Run(ops, c); runErr != nil && err == nil {
			err = runErr
		}
	})
	if err != nil {
		return 0, errors.WithMessagef(err, "bench: kernel %q on (%d, %d, %d)", kernel.Name(), m, k, n)
	}
	return seconds, nil
}

// Shape of a matrix multiplication: C[M, N] = A[M, K] · B[K, N].
type Shape struct {
	M, K, N int
}

// gridMultiples of the tile dimensions, and gridKs the contracting dimensions sampled by Grid.
var (
	gridMultiples = []int{1, 2, 4, 32, 128}
	gridKs        = []int{32, 128, 1024}
)

// gridDims returns {1,2,4,32,128}·r ± 1, without values < 1 or repetitions.
func gridDims(r int) []int {
	dims := make([]int, 0, 3*len(gridMultiples))
	for _, mult := range gridMultiples {
		for _, d := range []int{mult*r - 1, mult * r, mult*r + 1} {
			if d >= 1 && !slices.Contains(dims, d) {
				dims = append(dims, d)
			}
		}
	}
	return dims
}

// Grid returns the shapes sampled to train the cost model of a kernel with tiles of mr x nr:
// m and n around small and large multiples of the tile dimensions, in the order (m, n, k).
func Grid(mr, nr int) []Shape {
	ms, ns := gridDims(mr), gridDims(nr)
	shapes := make([]Shape, 0, len(ms)*len(ns)*len(gridKs))
	for _, m := range ms {
		for _, n := range ns {
			for _, k := range gridKs {
				shapes = append(shapes, Shape{M: m, K: k, N: n})
			}
		}
	}
	return shapes
}

// DatasetOptions configure MakeDataset.
type DatasetOptions struct {
	// Seed of the shuffling of the measurements.
	Seed uint64

	// Progress, if not nil, is where a progress bar is displayed.
	Progress io.Writer

	// Filter of kernel names to measure. If empty, all kernels are measured.
	Filter sets.Set[string]
}

type datasetInput struct {
	kernel kernels.Kernel
	shape  Shape
}

// MakeDataset measures the kernels on their Grid shapes, in a shuffled order, so slow drifts of the
// machine (e.g. thermal throttling) don't bias any one kernel.
func (h *Harness) MakeDataset(ks []kernels.Kernel, opts DatasetOptions) (costmodel.Dataset, error) {
	var inputs []datasetInput
	for _, kernel := range ks {
		if !opts.Filter.Allows(kernel.Name()) {
			continue
		}
		for _, shape := range Grid(kernel.MR(), kernel.NR()) {
			inputs = append(inputs, datasetInput{kernel: kernel, shape: shape})
		}
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(inputs), func(i, j int) { inputs[i], inputs[j] = inputs[j], inputs[i] })
	klog.V(1).Infof("bench: measuring %d samples of %d kernels", len(inputs), len(ks))

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetDescription("measuring"),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("samples"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionSetWriter(opts.Progress),
		)
	}
	ds := make(costmodel.Dataset, 0, len(inputs))
	for _, input := range inputs {
		s := input.shape
		seconds, err := h.MeasureMatMul(input.kernel, s.M, s.K, s.N)
		if err != nil {
			return nil, err
		}
		ds = append(ds, costmodel.Sample{Kernel: input.kernel.Name(), M: s.M, K: s.K, N: s.N, Seconds: seconds})
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
		_, _ = io.WriteString(opts.Progress, "\n")
	}
	return ds, nil
}

// Comparison of a kernel's predicted and measured latencies, in seconds, for one shape.
type Comparison struct {
	Kernel    string
	Predicted float64

	// Measured is NaN if the kernel was not measured.
	Measured float64
}

// Compare predicts with table (+Inf for kernels without a model or with a NaN prediction) and, if measure is set, measures
// the latency of each kernel for the shape (m, k, n).
//
// Rows are sorted by measured latency if measured, or by predicted latency otherwise. Ties keep
// the order of ks. It also returns the index in ks of the kernel with the best prediction.
func (h *Harness) Compare(ks []kernels.Kernel, table costmodel.Table, m, k, n int, measure bool) (rows []Comparison, bestPredicted int, err error) {
	rows = make([]Comparison, len(ks))
	bestPredicted = -1
	for ii, kernel := range ks {
		row := Comparison{Kernel: kernel.Name(), Predicted: math.Inf(1), Measured: math.NaN()}
		if model, found := table.Lookup(kernel.Name()); found {
			row.Predicted = model.Predict(m, k, n)
			if math.IsNaN(row.Predicted) {
				row.Predicted = math.Inf(1)
			}
		}
		if bestPredicted < 0 || row.Predicted < rows[bestPredicted].Predicted {
			bestPredicted = ii
		}
		if measure {
			row.Measured, err = h.MeasureMatMul(kernel, m, k, n)
			if err != nil {
				return nil, -1, err
			}
		}
		rows[ii] = row
	}
	slices.SortStableFunc(rows, func(a, b Comparison) int {
		if measure {
			return compareFloats(a.Measured, b.Measured)
		}
		return compareFloats(a.Predicted, b.Predicted)
	})
	return rows, bestPredicted, nil
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// GFlops returns the throughput of a (m, k, n) matrix multiplication taking the given seconds,
// counting one multiply-add as 2 operations.
func GFlops(m, k, n int, seconds float64) float64 {
	return 2 * float64(m) * float64(k) * float64(n) / seconds / 1e9
}
