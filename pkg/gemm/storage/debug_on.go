// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build tilegemm_debug

package storage

// DebugChecks enables validation of tile indices and sizes against the destination dimensions.
const DebugChecks = true
