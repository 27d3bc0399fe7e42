// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cpuprofile identifies the CPU micro-architecture (Kind) the process runs on.
//
// Detection follows a fixed priority, with the first available source winning:
//
//  1. TILEGEMM_CPU_KIND: free text naming the core, e.g. "a53" (case-insensitive).
//  2. TILEGEMM_CPU_PART: a raw CPU part identifier, e.g. "0xd03".
//  3. The largest "CPU part" value found in /proc/cpuinfo (compared as strings).
//
// Any failure (unreadable or unparsable metadata) degrades to KindGeneric: detection never fails.
//
// On heterogeneous (big.LITTLE) systems the maximum part string is not necessarily the
// core the process runs on: TILEGEMM_CPU_KIND should be used to force the choice there.
package cpuprofile

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

// Environment variables that override the detection.
const (
	EnvKind = "TILEGEMM_CPU_KIND"
	EnvPart = "TILEGEMM_CPU_PART"
)

// CPUInfoPath is the file scanned for "CPU part" lines.
const CPUInfoPath = "/proc/cpuinfo"

// Source tells how a Profile was determined.
type Source int

const (
	SourceFallback Source = iota
	SourceKindOverride
	SourcePartOverride
	SourceAuto
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceKindOverride:
		return EnvKind
	case SourcePartOverride:
		return EnvPart
	case SourceAuto:
		return "auto"
	}
	return "fallback"
}

// Profile of the CPU.
type Profile struct {
	Kind Kind

	// Part is the CPU part used for the detection, if any.
	Part string

	Source   Source
	Features Features
}

// String implements fmt.Stringer.
func (p Profile) String() string {
	s := p.Kind.String() + " (" + p.Source.String()
	if p.Part != "" {
		s += ", part " + p.Part
	}
	return s + ") " + p.Features.String()
}

// Detector determines the Profile. Its fields can be replaced for testing.
type Detector struct {
	// LookupEnv looks up environment variables, like os.LookupEnv.
	LookupEnv func(key string) (string, bool)

	// ReadCPUInfo returns the contents of /proc/cpuinfo.
	ReadCPUInfo func() ([]byte, error)

	// Features returns the instruction-set features.
	Features func() Features
}

// NewDetector returns a Detector of the host machine.
func NewDetector() *Detector {
	return &Detector{
		LookupEnv:   os.LookupEnv,
		ReadCPUInfo: func() ([]byte, error) { return os.ReadFile(CPUInfoPath) },
		Features:    HostFeatures,
	}
}

// Detect returns the Profile following the priority order described in the package documentation.
func (d *Detector) Detect() Profile {
	var p Profile
	if d.Features != nil {
		p.Features = d.Features()
	}
	if text, found := d.lookupEnv(EnvKind); found {
		klog.V(1).Infof("CPU kind forced with %s: %q", EnvKind, text)
		p.Kind = KindFromName(text)
		p.Source = SourceKindOverride
	} else {
		if part, found := d.lookupEnv(EnvPart); found {
			klog.V(1).Infof("CPU part forced with %s: %q", EnvPart, part)
			p.Part = strings.TrimSpace(part)
			p.Source = SourcePartOverride
		} else {
			p.Part = d.autoPart()
			if p.Part == PartUnknown {
				p.Source = SourceFallback
			} else {
				p.Source = SourceAuto
			}
			klog.V(1).Infof("CPU part auto detected: %s", p.Part)
		}
		p.Kind = KindFromPart(p.Part)
	}
	klog.V(1).Infof("CPU optimisation: %s", p)
	return p
}

func (d *Detector) lookupEnv(key string) (string, bool) {
	if d.LookupEnv == nil {
		return "", false
	}
	return d.LookupEnv(key)
}

// autoPart reads the maximum CPU part from the cpuinfo, or PartUnknown if it can't.
func (d *Detector) autoPart() string {
	if d.ReadCPUInfo == nil {
		return PartUnknown
	}
	contents, err := d.ReadCPUInfo()
	if err != nil {
		klog.V(1).Infof("failed to read CPU information: %v", err)
		return PartUnknown
	}
	return MaxCPUPart(string(contents))
}

// MaxCPUPart returns the largest (as a string) value of the "CPU part" lines of cpuinfo,
// or PartUnknown if there are none.
func MaxCPUPart(cpuinfo string) string {
	maxPart := ""
	scanner := bufio.NewScanner(strings.NewReader(cpuinfo))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "CPU part") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		part := fields[len(fields)-1]
		if part == ":" {
			continue
		}
		if part > maxPart {
			maxPart = part
		}
	}
	if maxPart == "" {
		return PartUnknown
	}
	return maxPart
}

var defaultProfile = sync.OnceValue(func() Profile {
	return NewDetector().Detect()
})

// Default returns the Profile of the host, detected once per process on first use.
func Default() Profile {
	return defaultProfile()
}
