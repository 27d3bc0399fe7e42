// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Seed coefficients, picked by hand. Replace this file with the output of
// "gemm_costmodel e2e -profile generic" run on the target machine.

package models

import "github.com/gomlx/tilegemm/pkg/gemm/costmodel"

// Generic holds the cost models used on generic profiles.
var Generic = costmodel.Table{
	{Kernel: "generic_f32_4x4", Model: costmodel.CostModel{
		MR: 4, NR: 4,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 8e-09, 0},
	}},
	{Kernel: "f32_8x8", Model: costmodel.CostModel{
		MR: 8, NR: 8,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 1.6e-08, 0},
	}},
	{Kernel: "f32_12x8", Model: costmodel.CostModel{
		MR: 12, NR: 8,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 3.2e-08, 0},
	}},
	{Kernel: "f32_16x4", Model: costmodel.CostModel{
		MR: 16, NR: 4,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 2.2e-08, 0},
	}},
	{Kernel: "f32_24x4", Model: costmodel.CostModel{
		MR: 24, NR: 4,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 3.4e-08, 0},
	}},
	{Kernel: "f32_64x1", Model: costmodel.CostModel{
		MR: 64, NR: 1,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 3.6e-08, 0},
	}},
	{Kernel: "generic_i32_4x4", Model: costmodel.CostModel{
		MR: 4, NR: 4,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 9e-09, 0},
	}},
	{Kernel: "i32_8x8", Model: costmodel.CostModel{
		MR: 8, NR: 8,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 3e-08, 0},
	}},
	{Kernel: "generic_q8_4x4", Model: costmodel.CostModel{
		MR: 4, NR: 4,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 1e-08, 0},
	}},
	{Kernel: "q8_8x8", Model: costmodel.CostModel{
		MR: 8, NR: 8,
		Intercept: 2e-07,
		Coef:      []float64{0, 0, 0, 4e-09, 4e-09, 1.2e-09, 1.2e-09, 1.5e-09, 2.5e-08, 3.4e-08, 0},
	}},
}
