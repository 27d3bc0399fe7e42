// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/gomlx/tilegemm/pkg/support/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock only moves when advanced, or by step on every reading.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestHarness(clock *fakeClock) *Harness {
	h := New()
	h.Now = clock.Now
	h.ChunkTarget = 100 * time.Microsecond
	return h
}

func TestMeasureDeterministicCost(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	h := newTestHarness(clock)
	calls := 0
	got := h.Measure(func() {
		calls++
		clock.advance(5 * time.Microsecond)
	})
	assert.InEpsilon(t, 5e-6, got, 0.1)
	// Warm-up + estimate + 1000 amortized calls + 100 chunks of ~20 calls.
	assert.GreaterOrEqual(t, calls, 1+1+1000+100*19)
	assert.LessOrEqual(t, calls, 1+1+1000+100*20)
}

func TestMeasureDiscardsInterruptions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	h := newTestHarness(clock)
	calls := 0
	got := h.Measure(func() {
		calls++
		cost := 5 * time.Microsecond
		if calls%250 == 0 {
			cost += 10 * time.Millisecond
		}
		clock.advance(cost)
	})
	assert.InEpsilon(t, 5e-6, got, 0.1)
}

func TestMeasureSlowFunction(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	h := newTestHarness(clock)
	h.MinChunks, h.MaxChunks = 3, 5
	calls := 0
	got := h.Measure(func() {
		calls++
		clock.advance(2 * time.Millisecond)
	})
	assert.InEpsilon(t, 2e-3, got, 0.1)
	// No amortized estimate: warm-up + estimate + 3 chunks of 1 call.
	assert.Equal(t, 5, calls)
}

func TestMeasureStoppedClock(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	h := newTestHarness(clock)
	h.ChunkTarget = time.Microsecond
	got := h.Measure(func() {})
	assert.Equal(t, 0.0, got)
}

func TestMeasureCorrected(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	h := newTestHarness(clock)
	ruins := 0
	h.RuinCache = func() {
		ruins++
		clock.advance(time.Microsecond)
	}
	got := h.MeasureCorrected(func() { clock.advance(4 * time.Microsecond) })
	assert.InEpsilon(t, 4e-6, got, 0.1)

	// The noise floor is measured only once.
	floor := h.NoiseFloor()
	assert.InEpsilon(t, 1e-6, floor, 0.1)
	ruinsBefore := ruins
	_ = h.NoiseFloor()
	assert.Equal(t, ruinsBefore, ruins)
}

func TestCacheRuiner(t *testing.T) {
	ruin := CacheRuiner(1 << 16)
	require.NotPanics(t, func() {
		ruin()
		ruin()
	})
	require.NotPanics(t, CacheRuiner(0))
}

func TestGrid(t *testing.T) {
	shapes := Grid(8, 8)
	require.Len(t, shapes, 15*15*3)
	require.Equal(t, Shape{M: 7, K: 32, N: 7}, shapes[0])
	require.Equal(t, Shape{M: 7, K: 128, N: 7}, shapes[1])
	require.Equal(t, Shape{M: 7, K: 32, N: 8}, shapes[3])
	require.Equal(t, Shape{M: 1025, K: 1024, N: 1025}, shapes[len(shapes)-1])

	// Dimensions < 1 and repetitions are dropped.
	require.Equal(t, []int{1, 2, 3, 4, 5, 31, 32, 33, 127, 128, 129}, gridDims(1))
	shapes = Grid(1, 4)
	require.Len(t, shapes, 11*15*3)
	for _, s := range shapes {
		require.Positive(t, s.M)
		require.Positive(t, s.N)
	}
}

// nopKernel has the shapes and packing of a real kernel, but doesn't compute anything.
type nopKernel struct {
	kernels.Kernel
	name string
}

func (k nopKernel) Name() string                       { return k.name }
func (nopKernel) Run([]kernels.FusedOp) kernels.Status { return kernels.StatusOK }

func TestMakeDataset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0), step: 2 * time.Millisecond}
	h := newTestHarness(clock)
	h.MinChunks, h.MaxChunks = 1, 1
	ks := []kernels.Kernel{
		nopKernel{kernels.GenericFloat32(), "nop_a"},
		nopKernel{kernels.Float32x8x8(), "nop_b"},
	}
	var progress bytes.Buffer
	ds, err := h.MakeDataset(ks, DatasetOptions{Seed: 7, Progress: &progress, Filter: sets.MakeWith("nop_b")})
	require.NoError(t, err)
	require.Len(t, ds, len(Grid(8, 8)))
	require.Equal(t, []string{"nop_b"}, ds.Kernels())
	require.NotEmpty(t, progress.String())

	seen := make(map[Shape]bool)
	for _, s := range ds {
		seen[Shape{M: s.M, K: s.K, N: s.N}] = true
		require.False(t, math.IsNaN(s.Seconds))
	}
	for _, shape := range Grid(8, 8) {
		require.True(t, seen[shape], "shape %v not measured", shape)
	}

	// The order depends only on the seed.
	again, err := h.MakeDataset(ks, DatasetOptions{Seed: 7, Filter: sets.MakeWith("nop_b")})
	require.NoError(t, err)
	for ii := range ds {
		require.Equal(t, ds[ii].M, again[ii].M)
		require.Equal(t, ds[ii].K, again[ii].K)
		require.Equal(t, ds[ii].N, again[ii].N)
	}

	all, err := h.MakeDataset(ks, DatasetOptions{Seed: 1})
	require.NoError(t, err)
	require.Len(t, all, len(Grid(4, 4))+len(Grid(8, 8)))
}

func TestMeasureMatMulErrors(t *testing.T) {
	h := newTestHarness(&fakeClock{now: time.Unix(0, 0), step: time.Millisecond})
	_, err := h.MeasureMatMul(kernels.GenericFloat32(), 0, 4, 4)
	require.Error(t, err)
	failing := failingKernel{kernels.GenericFloat32()}
	_, err = h.MeasureMatMul(failing, 4, 4, 4)
	require.Error(t, err)
}

type failingKernel struct {
	kernels.Kernel
}

func (failingKernel) Run([]kernels.FusedOp) kernels.Status { return kernels.StatusInvalidOperand }

// constantModel predicts seconds for any shape.
func constantModel(mr, nr int, seconds float64) costmodel.CostModel {
	return costmodel.CostModel{MR: mr, NR: nr, Intercept: seconds, Coef: make([]float64, costmodel.NumFeatures)}
}

func TestCompare(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0), step: 2 * time.Millisecond}
	h := newTestHarness(clock)
	h.MinChunks, h.MaxChunks = 1, 1
	ks := []kernels.Kernel{kernels.GenericFloat32(), kernels.Float32x8x8(), kernels.Float32(16, 4)}
	table := costmodel.Table{
		{Kernel: kernels.GenericFloat32Name, Model: constantModel(4, 4, 2e-6)},
		{Kernel: "f32_8x8", Model: constantModel(8, 8, 1e-6)},
	}

	rows, best, err := h.Compare(ks, table, 16, 8, 16, false)
	require.NoError(t, err)
	require.Equal(t, 1, best)
	require.Equal(t, []string{"f32_8x8", kernels.GenericFloat32Name, "f32_16x4"},
		[]string{rows[0].Kernel, rows[1].Kernel, rows[2].Kernel})
	require.True(t, math.IsInf(rows[2].Predicted, 1))
	require.True(t, math.IsNaN(rows[0].Measured))

	// With a clock that moves the same for every kernel, all measures tie and keep the kernels order.
	rows, best, err = h.Compare(ks, table, 16, 8, 16, true)
	require.NoError(t, err)
	require.Equal(t, 1, best)
	require.Equal(t, kernels.GenericFloat32Name, rows[0].Kernel)
	for _, row := range rows {
		require.InDelta(t, 0, row.Measured, 1e-9)
	}

	// A NaN prediction ranks last, even when it comes first.
	nanModel := constantModel(4, 4, 0)
	nanModel.Intercept = math.NaN()
	table[0].Model = nanModel
	rows, best, err = h.Compare(ks, table, 16, 8, 16, false)
	require.NoError(t, err)
	require.Equal(t, 1, best)
	require.Equal(t, "f32_8x8", rows[0].Kernel)
	for _, row := range rows[1:] {
		require.True(t, math.IsInf(row.Predicted, 1), "kernel %q predicted %g", row.Kernel, row.Predicted)
	}
}

// gridLatency is a synthetic latency for kernels with tiles of mr x nr: linear on the cost
// model features, with most of the weight on the number of tiles times k.
func gridLatency(mr, nr, m, k, n int) float64 {
	mt, nt := (m+mr-1)/mr, (n+nr-1)/nr
	return 1e-6 + 2e-9*float64(mt*nt*k) + 3e-9*float64(nt) + 1e-12*float64(m*k*n)
}

func TestTrainOnGrid(t *testing.T) {
	for _, kernel := range kernels.Builtin() {
		mr, nr := kernel.MR(), kernel.NR()
		var ds costmodel.Dataset
		for _, s := range Grid(mr, nr) {
			ds = append(ds, costmodel.Sample{Kernel: kernel.Name(), M: s.M, K: s.K, N: s.N,
				Seconds: gridLatency(mr, nr, s.M, s.K, s.N)})
		}
		model, err := costmodel.Train(ds, kernel)
		require.NoError(t, err, "kernel %q", kernel.Name())
		require.NoError(t, model.Validate())
		for _, s := range ds {
			require.InEpsilon(t, s.Seconds, model.Predict(s.M, s.K, s.N), 1e-4,
				"kernel %q, shape (%d, %d, %d)", kernel.Name(), s.M, s.K, s.N)
		}
	}

	// With single column tiles, nt is always n: its coefficient is left at 0.
	ds := make(costmodel.Dataset, 0, len(Grid(64, 1)))
	for _, s := range Grid(64, 1) {
		ds = append(ds, costmodel.Sample{Kernel: "f32_64x1", M: s.M, K: s.K, N: s.N, Seconds: gridLatency(64, 1, s.M, s.K, s.N)})
	}
	model, err := costmodel.Train(ds, kernels.Float32(64, 1))
	require.NoError(t, err)
	require.Zero(t, model.Coef[4])
	assert.InEpsilon(t, 3e-9, model.Coef[2], 1e-3)
	assert.InEpsilon(t, gridLatency(64, 1, 1000, 100, 50), model.Predict(1000, 100, 50), 1e-4)
}

func TestGFlops(t *testing.T) {
	require.InDelta(t, 2.0, GFlops(1000, 1000, 1000, 1), 1e-12)
}
