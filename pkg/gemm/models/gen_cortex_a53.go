// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Seed coefficients, picked by hand. Replace this file with the output of
// "gemm_costmodel e2e -profile cortex_a53" run on the target machine.

package models

import "github.com/gomlx/tilegemm/pkg/gemm/costmodel"

// CortexA53 holds the cost models used on cortex_a53 profiles.
var CortexA53 = costmodel.Table{
	{Kernel: "generic_f32_4x4", Model: costmodel.CostModel{
		MR: 4, NR: 4,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 2.4000000000000003e-08, 0},
	}},
	{Kernel: "f32_8x8", Model: costmodel.CostModel{
		MR: 8, NR: 8,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 4.8000000000000006e-08, 0},
	}},
	{Kernel: "f32_12x8", Model: costmodel.CostModel{
		MR: 12, NR: 8,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 9.600000000000001e-08, 0},
	}},
	{Kernel: "f32_16x4", Model: costmodel.CostModel{
		MR: 16, NR: 4,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 6.6e-08, 0},
	}},
	{Kernel: "f32_24x4", Model: costmodel.CostModel{
		MR: 24, NR: 4,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 1.02e-07, 0},
	}},
	{Kernel: "f32_64x1", Model: costmodel.CostModel{
		MR: 64, NR: 1,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 1.0799999999999999e-07, 0},
	}},
	{Kernel: "generic_i32_4x4", Model: costmodel.CostModel{
		MR: 4, NR: 4,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 2.6999999999999997e-08, 0},
	}},
	{Kernel: "i32_8x8", Model: costmodel.CostModel{
		MR: 8, NR: 8,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 8.999999999999999e-08, 0},
	}},
	{Kernel: "generic_q8_4x4", Model: costmodel.CostModel{
		MR: 4, NR: 4,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 3.0000000000000004e-08, 0},
	}},
	{Kernel: "q8_8x8", Model: costmodel.CostModel{
		MR: 8, NR: 8,
		Intercept: 6e-07,
		Coef:      []float64{0, 0, 0, 1.2000000000000002e-08, 1.2000000000000002e-08, 3.6e-09, 3.6e-09, 4.5e-09, 7.5e-08, 1.02e-07, 0},
	}},
}
