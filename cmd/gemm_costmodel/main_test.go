// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/tilegemm/pkg/gemm/bench"
	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/gomlx/tilegemm/pkg/gemm/cpuprofile"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/gomlx/tilegemm/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kernelNames(ks []kernels.Kernel) []string {
	return xslices.Map(ks, kernels.Kernel.Name)
}

func TestFilterKernels(t *testing.T) {
	all := kernels.Builtin()
	require.Len(t, filterKernels(all, nil), len(all))
	require.Equal(t, []string{"f32_8x8", "i32_8x8", "q8_8x8"}, kernelNames(filterKernels(all, []string{"8x8"})))
	require.Equal(t, []string{"f32_64x1", "generic_q8_4x4", "q8_8x8"}, kernelNames(filterKernels(all, []string{"q8", "64x1"})))
	require.Empty(t, filterKernels(all, []string{"nope"}))

	_, err := profileKernels(cpuprofile.Profile{}, []string{"nope"})
	require.Error(t, err)
}

func TestDatasetKernels(t *testing.T) {
	ds := costmodel.Dataset{
		{Kernel: "q8_8x8", M: 1, K: 1, N: 1, Seconds: 1},
		{Kernel: "unknown", M: 1, K: 1, N: 1, Seconds: 1},
		{Kernel: "f32_8x8", M: 1, K: 1, N: 1, Seconds: 1},
	}
	// Registration order, unknown kernels skipped.
	require.Equal(t, []string{"f32_8x8", "q8_8x8"}, kernelNames(datasetKernels(ds, kernels.Builtin())))
}

func TestParseShape(t *testing.T) {
	m, k, n, err := parseShape([]string{"4", "16", "8"})
	require.NoError(t, err)
	require.Equal(t, [3]int{4, 16, 8}, [3]int{m, k, n})
	_, _, _, err = parseShape([]string{"4", "16"})
	require.Error(t, err)
	_, _, _, err = parseShape([]string{"4", "x", "8"})
	require.Error(t, err)
	_, _, _, err = parseShape([]string{"4", "0", "8"})
	require.Error(t, err)
}

func TestTableVarName(t *testing.T) {
	assert.Equal(t, "Generic", tableVarName(cpuprofile.KindGeneric))
	assert.Equal(t, "CortexA53", tableVarName(cpuprofile.KindCortexA53))
}

func TestGradientColor(t *testing.T) {
	assert.Equal(t, "#d73027", string(gradientColor(0)))
	assert.Equal(t, "#ffffbf", string(gradientColor(0.5)))
	assert.Equal(t, "#1a9850", string(gradientColor(1)))
	assert.Equal(t, "#d73027", string(gradientColor(math.NaN())))
	assert.Equal(t, "#1a9850", string(gradientColor(7)))
}

func TestWriteComparison(t *testing.T) {
	rows := []bench.Comparison{
		{Kernel: "f32_8x8", Predicted: 2e-6, Measured: 1e-6},
		{Kernel: "f32_16x4", Predicted: 1e-6, Measured: math.NaN()},
	}
	var buf bytes.Buffer
	writeComparison(&buf, rows, "f32_16x4", 64, 64, 64)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "f32_8x8")
	assert.Contains(t, lines[0], "diff: 100.00%")
	// Without measure, the prediction is the truth.
	assert.Contains(t, lines[1], "truth:     1.000 us")
	assert.Contains(t, lines[1], "diff:  0.00%")
}

func TestWriteEvaluation(t *testing.T) {
	ev := costmodel.Evaluation{
		Kernel: "f32_8x8",
		Rows:   []costmodel.EvaluationRow{{M: 8, K: 32, N: 16, Measured: 2e-6, Predicted: 2.1e-6}},
	}
	var buf bytes.Buffer
	writeEvaluation(&buf, ev)
	assert.Contains(t, buf.String(), "   8   32   16  pred:     2.100 us truth:     2.000 us  5.00%")
}

func TestWritePlot(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "sub", "plot.png")
	must.M(os.MkdirAll(filepath.Dir(filePath), 0o755))
	ev := costmodel.Evaluation{
		Kernel: "f32_8x8",
		Rows: []costmodel.EvaluationRow{
			{M: 8, K: 32, N: 16, Measured: 2e-6, Predicted: 2.1e-6},
			{M: 16, K: 32, N: 16, Measured: 4e-6, Predicted: 3.9e-6},
		},
	}
	require.NoError(t, writePlot(filePath, []costmodel.Evaluation{ev, {Kernel: "empty"}}))
	info, err := os.Stat(filePath)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}
