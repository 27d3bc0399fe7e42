// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bench measures kernel latencies, to build the datasets the cost models are trained on.
//
// Measurements are robust rather than fast: after a warm-up, the function is timed in many
// chunks of repeated calls, and the first quartile of the per-call chunk averages is reported,
// which discards the slow outliers caused by interruptions.
//
// Measurements must not run concurrently with each other or with other heavy work.
package bench

import (
	"math"
	"slices"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// Harness measures the latency of functions.
type Harness struct {
	// Now is the clock. It defaults to time.Now and can be replaced for testing.
	Now func() time.Time

	// RuinCache is called before every call of the measured function in MeasureCorrected,
	// to evict the operands from the caches. Its own cost is measured once (NoiseFloor) and
	// subtracted. If nil, nothing is done.
	RuinCache func()

	// ChunkTarget is the approximate duration of each chunk of calls. It also sets the number
	// of chunks: as many as fit in ChunkTarget, but within [MinChunks, MaxChunks].
	ChunkTarget time.Duration

	MinChunks, MaxChunks int

	noiseOnce sync.Once
	noise     float64
}

// Default values of a Harness created with New.
const (
	DefaultChunkTarget = time.Second
	DefaultMinChunks   = 100
	DefaultMaxChunks   = 10_000
)

// amortizeThreshold: functions faster than this are timed over amortizeCalls calls for the first estimate.
const (
	amortizeThreshold = time.Millisecond
	amortizeCalls     = 1000
)

// minEstimate is used when the clock can't resolve a single call.
const minEstimate = 1e-9

// New returns a Harness with the default configuration.
func New() *Harness {
	return &Harness{
		Now:         time.Now,
		ChunkTarget: DefaultChunkTarget,
		MinChunks:   DefaultMinChunks,
		MaxChunks:   DefaultMaxChunks,
	}
}

func (h *Harness) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// elapsed runs fn calls times and returns the total elapsed seconds.
func (h *Harness) elapsed(fn func(), calls int) float64 {
	start := h.now()
	for range calls {
		fn()
	}
	return h.now().Sub(start).Seconds()
}

// Measure returns the latency of fn in seconds.
//
// fn is called once to warm up and once to estimate its latency. If that takes less than
// 1ms (or the clock didn't move), the estimate is instead the average over 1000 calls.
// Then chunk = max(1, ChunkTarget/estimate) calls are timed together, chunks times, with
// chunks = ChunkTarget/(estimate*chunk) clamped to [MinChunks, MaxChunks].
// It returns the first quartile of the sorted per-call averages of the chunks.
func (h *Harness) Measure(fn func()) float64 {
	fn()
	estimate := h.elapsed(fn, 1)
	if estimate < amortizeThreshold.Seconds() {
		estimate = h.elapsed(fn, amortizeCalls) / amortizeCalls
	}
	if estimate <= 0 {
		estimate = minEstimate
	}
	target := h.ChunkTarget.Seconds()
	if target <= 0 {
		target = DefaultChunkTarget.Seconds()
	}
	chunk := max(1, int(target/estimate))
	minChunks, maxChunks := h.MinChunks, h.MaxChunks
	if minChunks <= 0 {
		minChunks = DefaultMinChunks
	}
	if maxChunks < minChunks {
		maxChunks = max(minChunks, DefaultMaxChunks)
	}
	chunks := int(math.Min(math.Max(target/(estimate*float64(chunk)), float64(minChunks)), float64(maxChunks)))

	measures := make([]float64, chunks)
	for ii := range measures {
		measures[ii] = h.elapsed(fn, chunk) / float64(chunk)
	}
	slices.Sort(measures)
	q1 := measures[chunks/4]
	if klog.V(2).Enabled() {
		q3 := measures[chunks-1-chunks/4]
		klog.Infof("bench: estimate=%.3g s, chunk=%d, chunks=%d, q1=%.3g s, q3=%.3g s", estimate, chunk, chunks, q1, q3)
	}
	return q1
}

func (h *Harness) ruinCache() {
	if h.RuinCache != nil {
		h.RuinCache()
	}
}

// NoiseFloor returns the measured cost of RuinCache. It is measured only once per Harness.
func (h *Harness) NoiseFloor() float64 {
	h.noiseOnce.Do(func() {
		h.noise = h.Measure(h.ruinCache)
		klog.V(1).Infof("bench: noise floor %.3g s", h.noise)
	})
	return h.noise
}

// MeasureCorrected measures fn with the caches ruined before every call, and subtracts the
// cost of ruining the caches.
func (h *Harness) MeasureCorrected(fn func()) float64 {
	floor := h.NoiseFloor()
	return h.Measure(func() {
		h.ruinCache()
		fn()
	}) - floor
}

// CacheRuiner returns a function that writes over a buffer of the given size, evicting other
// data from the caches. It can be used as Harness.RuinCache.
func CacheRuiner(size int) func() {
	buf := make([]byte, size)
	var counter byte
	return func() {
		counter++
		for ii := 0; ii < len(buf); ii += 64 {
			buf[ii] = counter
		}
	}
}
