// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package models holds the cost model tables trained for each CPU profile.
//
// The gen_*.go files are generated by `gemm_costmodel e2e`, run on a machine of the profile.
package models

import (
	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/gomlx/tilegemm/pkg/gemm/cpuprofile"
)

// ForKind returns the table of cost models for a CPU kind.
//
// Kinds without a table of their own use the closest one available: the Cortex-A55 (in-order,
// like the A53) uses CortexA53, and everything else uses Generic.
func ForKind(kind cpuprofile.Kind) costmodel.Table {
	switch kind {
	case cpuprofile.KindCortexA53, cpuprofile.KindCortexA55:
		return CortexA53
	default:
		return Generic
	}
}
