//go:build perf

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"fmt"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spin busy-waits for d, with the real clock.
func spin(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}

func TestPerfMeasureRealClock(t *testing.T) {
	h := New()
	h.ChunkTarget = 10 * time.Millisecond
	got := h.Measure(func() { spin(20 * time.Microsecond) })
	assert.InEpsilon(t, 20e-6, got, 0.1)
}

func TestPerfMatMul(t *testing.T) {
	h := New()
	h.ChunkTarget = 10 * time.Millisecond
	h.RuinCache = CacheRuiner(8 << 20)
	style := lipgloss.NewStyle().Bold(true)
	const m, k, n = 128, 256, 128
	for _, kernel := range kernels.Builtin() {
		seconds, err := h.MeasureMatMul(kernel, m, k, n)
		require.NoError(t, err)
		fmt.Printf("%-16s %s: %s GFlops\n", kernel.Name(), style.Render(fmt.Sprintf("%10s", time.Duration(seconds*1e9))),
			humanize.FormatFloat("#,###.##", GFlops(m, k, n, seconds)))
	}
}
