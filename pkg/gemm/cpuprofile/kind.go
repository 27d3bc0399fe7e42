// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpuprofile

import "strings"

// Kind of CPU micro-architecture. It selects the kernels and the cost-model table used by the dispatcher.
type Kind int

//go:generate go tool enumer -type=Kind -trimprefix=Kind -transform=snake -values -text -output=gen_kind_enumer.go kind.go

const (
	KindGeneric Kind = iota
	KindCortexA53
	KindCortexA55
	KindCortexA72
	KindCortexA73
	KindCortexA75
)

// CPU part identifiers, as reported in the "CPU part" lines of /proc/cpuinfo.
const (
	PartCortexA53 = "0xd03"
	PartCortexA55 = "0xd05"
	PartCortexA72 = "0xd08"
	PartCortexA73 = "0xd09"
	PartCortexA75 = "0xd0a"

	// PartUnknown is used when no part could be read.
	PartUnknown = "0x00"
)

// KindFromName maps free text naming a core (e.g. "a53", "Cortex-A53") to a Kind.
// Matching is case-insensitive and by substring; anything else is KindGeneric.
func KindFromName(text string) Kind {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "a53"):
		return KindCortexA53
	case strings.Contains(text, "a55"):
		return KindCortexA55
	case strings.Contains(text, "a72"):
		return KindCortexA72
	case strings.Contains(text, "a73"):
		return KindCortexA73
	case strings.Contains(text, "a75"):
		return KindCortexA75
	}
	return KindGeneric
}

// KindFromPart maps a CPU part identifier (e.g. "0xd03") to a Kind. Unknown parts are KindGeneric.
func KindFromPart(part string) Kind {
	switch strings.ToLower(strings.TrimSpace(part)) {
	case PartCortexA53:
		return KindCortexA53
	case PartCortexA55:
		return KindCortexA55
	case PartCortexA72:
		return KindCortexA72
	case PartCortexA73:
		return KindCortexA73
	case PartCortexA75:
		return KindCortexA75
	}
	return KindGeneric
}
