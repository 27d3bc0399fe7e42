// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpuprofile

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features are the instruction-set extensions relevant to the kernels.
type Features struct {
	Arch string

	// amd64
	FMA, AVX2, AVX512F bool

	// arm64
	ASIMD, ASIMDHP bool
}

// HostFeatures returns the features of the running CPU.
func HostFeatures() Features {
	return Features{
		Arch:    runtime.GOARCH,
		FMA:     cpu.X86.HasFMA,
		AVX2:    cpu.X86.HasAVX2,
		AVX512F: cpu.X86.HasAVX512F,
		ASIMD:   cpu.ARM64.HasASIMD,
		ASIMDHP: cpu.ARM64.HasASIMDHP,
	}
}

// String lists the architecture and the available features, e.g. "amd64(fma,avx2)".
func (f Features) String() string {
	var names []string
	for _, feature := range []struct {
		name string
		has  bool
	}{
		{"fma", f.FMA}, {"avx2", f.AVX2}, {"avx512f", f.AVX512F},
		{"asimd", f.ASIMD}, {"asimdhp", f.ASIMDHP},
	} {
		if feature.has {
			names = append(names, feature.name)
		}
	}
	return f.Arch + "(" + strings.Join(names, ",") + ")"
}
