// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package costmodel

import (
	"bytes"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/tilegemm/internal/workerspool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatures(t *testing.T) {
	f := Features(8, 8, 9, 32, 17)
	require.Len(t, f, NumFeatures)
	// m, k, n, mt, nt, m·k, k·n, m·n, mt·nt, mt·nt·k, m·k·n
	require.Equal(t, []float64{9, 32, 17, 2, 3, 288, 544, 153, 6, 192, 4896}, f)

	model := CostModel{MR: 8, NR: 8, Intercept: 1e-6, Coef: make([]float64, NumFeatures)}
	require.NoError(t, model.Validate())
	model.Coef[9] = 1e-9 // mt·nt·k
	require.InDelta(t, 1e-6+192e-9, model.Predict(9, 32, 17), 1e-15)
	require.Equal(t, model.Predict(9, 32, 17), model.Predict(9, 32, 17))

	require.Error(t, (&CostModel{MR: 8, NR: 8, Coef: []float64{1}}).Validate())
	require.Error(t, (&CostModel{MR: 0, NR: 8, Coef: make([]float64, NumFeatures)}).Validate())
}

// truthK8x8 is a synthetic latency linear in the number of tiles times k, going through
// (8, 32, 8) -> 1µs and (64, 32, 8) -> 4µs.
func truthK8x8(m, k, n int) float64 {
	const b = 3e-6 / 224
	const a = 1e-6 - 32*b
	mt, nt := (m+7)/8, (n+7)/8
	return a + b*float64(mt*nt*k)
}

// gridDataset returns samples of truth over the shape grid used for training kernels (mr, nr).
func gridDataset(name string, mr, nr int, truth func(m, k, n int) float64) Dataset {
	var ds Dataset
	for _, mf := range []int{1, 2, 4, 32, 128} {
		for _, nf := range []int{1, 2, 4, 32, 128} {
			for _, dm := range []int{-1, 0, 1} {
				for _, dn := range []int{-1, 0, 1} {
					for _, k := range []int{32, 128, 1024} {
						m, n := mf*mr+dm, nf*nr+dn
						ds = append(ds, Sample{Kernel: name, M: m, K: k, N: n, Seconds: truth(m, k, n)})
					}
				}
			}
		}
	}
	return ds
}

func TestTrainK8x8(t *testing.T) {
	ds := gridDataset("K8x8", 8, 8, truthK8x8)
	ds = append(ds, Sample{Kernel: "K8x8", M: 64, K: 32, N: 8, Seconds: 4e-6})
	require.InDelta(t, 1e-6, truthK8x8(8, 32, 8), 1e-18)
	require.InDelta(t, 4e-6, truthK8x8(64, 32, 8), 1e-18)

	model, err := Train(ds, Shape{"K8x8", 8, 8})
	require.NoError(t, err)
	require.NoError(t, model.Validate())
	assert.InDelta(t, 1e-6, model.Predict(8, 32, 8), 1e-8)
	assert.InDelta(t, 4e-6, model.Predict(64, 32, 8), 1e-8)
	p := model.Predict(32, 32, 8)
	assert.Greater(t, p, 1e-6)
	assert.Less(t, p, 4e-6)

	// Training is deterministic.
	model2, err := Train(ds, Shape{"K8x8", 8, 8})
	require.NoError(t, err)
	require.Equal(t, model, model2)

	ev := Evaluate(model, "K8x8", ds)
	require.Len(t, ev.Rows, len(ds))
	assert.InDelta(t, 1.0, ev.RSquared, 1e-9)
	assert.Less(t, ev.MeanAbsRelError, 1e-2)
	for ii := 1; ii < len(ev.Rows); ii++ {
		require.LessOrEqual(t, ev.Rows[ii-1].M, ev.Rows[ii].M)
	}
}

func TestTrainRankDeficient(t *testing.T) {
	ds := gridDataset("K8x8", 8, 8, truthK8x8)[:NumFeatures]
	_, err := Train(ds, Shape{"K8x8", 8, 8})
	require.True(t, errors.Is(err, ErrRankDeficient), "got %v", err)

	// Many samples, all of the same shape: collinear.
	ds = nil
	for range 50 {
		ds = append(ds, Sample{Kernel: "K8x8", M: 16, K: 32, N: 16, Seconds: 2e-6})
	}
	_, err = Train(ds, Shape{"K8x8", 8, 8})
	require.True(t, errors.Is(err, ErrRankDeficient), "got %v", err)

	_, err = Train(ds, Shape{"missing", 8, 8})
	require.True(t, errors.Is(err, ErrRankDeficient), "got %v", err)
}

func TestRedundantFeatures(t *testing.T) {
	// m, k, n, mt, nt, m·k, k·n, m·n, mt·nt, mt·nt·k, m·k·n
	independent := []int{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
	require.Equal(t, independent, redundantFeatures(8, 8))
	require.Equal(t, independent, redundantFeatures(2, 3))
	require.Equal(t, []int{-1, -1, -1, -1, 2, -1, -1, -1, -1, -1, -1}, redundantFeatures(64, 1))
	require.Equal(t, []int{-1, -1, -1, 0, -1, -1, -1, -1, -1, -1, -1}, redundantFeatures(1, 4))
	require.Equal(t, []int{-1, -1, -1, 0, 2, -1, -1, -1, 7, -1, 9}, redundantFeatures(1, 1))
}

func TestTrainSingleColumnTiles(t *testing.T) {
	truth := func(m, k, n int) float64 { return 2e-7 + 1e-9*float64((m+15)/16*n*k) + 1e-12*float64(m*k*n) }
	ds := gridDataset("K16x1", 16, 1, truth)
	model, err := Train(ds, Shape{"K16x1", 16, 1})
	require.NoError(t, err)
	require.Zero(t, model.Coef[4])
	assert.InEpsilon(t, 1e-9, model.Coef[9], 1e-4)
	assert.InEpsilon(t, truth(100, 64, 7), model.Predict(100, 64, 7), 1e-4)
}

func TestTrainAll(t *testing.T) {
	ds := gridDataset("K8x8", 8, 8, truthK8x8)
	ds = append(ds, gridDataset("K4x4", 4, 4, func(m, k, n int) float64 { return 1e-7 * float64(m*k*n) })...)
	ds = append(ds, Sample{Kernel: "K1x1", M: 1, K: 1, N: 1, Seconds: 1e-9})
	shapes := []KernelShape{Shape{"K4x4", 4, 4}, Shape{"K1x1", 1, 1}, Shape{"K8x8", 8, 8}}
	for _, pool := range []*workerspool.Pool{nil, workerspool.New()} {
		table, failures := TrainAll(ds, shapes, pool)
		require.Equal(t, []string{"K4x4", "K8x8"}, table.Names())
		require.Len(t, failures, 1)
		require.True(t, errors.Is(failures["K1x1"], ErrRankDeficient))
		model, found := table.Lookup("K4x4")
		require.True(t, found)
		assert.InEpsilon(t, 1e-7*20*30*40, model.Predict(20, 30, 40), 1e-4)
		_, found = table.Lookup("K1x1")
		require.False(t, found)
	}
}

func TestDataset(t *testing.T) {
	text := "f32_8x8 8 32 8 0.000001\n\n  f32_8x8\t64  32\t8   4e-6  \nq8_8x8 8 8 8 1.5E-07\n\t\n"
	ds, err := Load(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, Dataset{
		{"f32_8x8", 8, 32, 8, 1e-6},
		{"f32_8x8", 64, 32, 8, 4e-6},
		{"q8_8x8", 8, 8, 8, 1.5e-7},
	}, ds)
	require.Equal(t, []string{"f32_8x8", "q8_8x8"}, ds.Kernels())
	require.Len(t, ds.Filter("f32_8x8"), 2)
	require.Empty(t, ds.Filter("f32_16x4"))

	var buf bytes.Buffer
	require.NoError(t, ds.Save(&buf))
	require.Equal(t, "f32_8x8 8 32 8 1e-06\nf32_8x8 64 32 8 4e-06\nq8_8x8 8 8 8 1.5e-07\n", buf.String())
	back, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, ds, back)

	path := filepath.Join(t.TempDir(), "ds.txt")
	require.NoError(t, ds.SaveFile(path))
	back, err = LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, ds, back)
	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)

	for _, bad := range []struct{ text, lineMsg string }{
		{"a 1 2 3 1e-6\na 1 2 3\n", "line 2"},
		{"\n\na 1 x 3 1e-6\n", "line 3"},
		{"a 1 2 3 fast\n", "line 1"},
		{"a 1 -2 3 1e-6\n", "line 1"},
	} {
		_, err = Load(strings.NewReader(bad.text))
		require.Error(t, err)
		require.Contains(t, err.Error(), bad.lineMsg)
	}
}

func TestWriteGoSource(t *testing.T) {
	ds := gridDataset("f32_8x8", 8, 8, truthK8x8)
	table, failures := TrainAll(ds, []KernelShape{Shape{"f32_8x8", 8, 8}}, nil)
	require.Empty(t, failures)

	opts := GenerateOptions{Package: "models", Var: "CortexA53", Profile: "cortex_a53", Generator: "gemm_costmodel e2e"}
	var buf, buf2 bytes.Buffer
	require.NoError(t, WriteGoSource(&buf, opts, table))
	require.NoError(t, WriteGoSource(&buf2, opts, table))
	require.Equal(t, buf.String(), buf2.String())

	src := buf.String()
	assert.True(t, strings.HasPrefix(src, `// Code generated by "gemm_costmodel e2e"; DO NOT EDIT.`))
	assert.Contains(t, src, "package models")
	assert.Contains(t, src, "var CortexA53 = costmodel.Table{")
	assert.Contains(t, src, `Kernel: "f32_8x8"`)
	assert.Contains(t, src, formatFloat(table[0].Model.Intercept))
	for _, c := range table[0].Model.Coef {
		assert.Contains(t, src, formatFloat(c))
	}
	_, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, 0)
	require.NoError(t, err)

	require.Error(t, WriteGoSource(&buf, GenerateOptions{Package: "models"}, table))
	require.Error(t, WriteGoSource(&buf, opts, Table{{Kernel: "bad", Model: CostModel{MR: 1, NR: 1}}}))
}
