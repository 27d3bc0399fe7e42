// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package costmodel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sample is one latency measurement of a kernel.
type Sample struct {
	Kernel  string
	M, K, N int

	// Seconds is the measured latency.
	Seconds float64
}

// Dataset of latency samples, possibly of many kernels.
//
// Its text format has one sample per line: "<kernel> <m> <k> <n> <seconds>", fields separated
// by runs of whitespace. Blank lines are ignored.
type Dataset []Sample

// Filter returns the samples of the given kernel, in order.
func (ds Dataset) Filter(kernel string) Dataset {
	var filtered Dataset
	for _, s := range ds {
		if s.Kernel == kernel {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Kernels returns the names of the kernels in the dataset, in order of first appearance.
func (ds Dataset) Kernels() []string {
	var names []string
	seen := make(map[string]bool)
	for _, s := range ds {
		if !seen[s.Kernel] {
			seen[s.Kernel] = true
			names = append(names, s.Kernel)
		}
	}
	return names
}

// Save writes the dataset in its text format.
func (ds Dataset) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, s := range ds {
		if _, err := fmt.Fprintf(bw, "%s %d %d %d %s\n", s.Kernel, s.M, s.K, s.N,
			strconv.FormatFloat(s.Seconds, 'g', -1, 64)); err != nil {
			return errors.Wrap(err, "failed to write dataset")
		}
	}
	return errors.Wrap(bw.Flush(), "failed to write dataset")
}

// SaveFile writes the dataset to the file at path.
func (ds Dataset) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create dataset file %q", path)
	}
	if err = ds.Save(f); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "dataset file %q", path)
	}
	return errors.Wrapf(f.Close(), "failed to close dataset file %q", path)
}

// Load reads a dataset in its text format. Errors report the offending line number.
func Load(r io.Reader) (Dataset, error) {
	var ds Dataset
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 {
			return nil, errors.Errorf("dataset line %d: expected 5 fields (kernel m k n seconds), got %d", lineNum, len(fields))
		}
		s := Sample{Kernel: fields[0]}
		dims := []*int{&s.M, &s.K, &s.N}
		for ii, dim := range dims {
			v, err := strconv.Atoi(fields[1+ii])
			if err != nil || v < 0 {
				return nil, errors.Errorf("dataset line %d: invalid dimension %q", lineNum, fields[1+ii])
			}
			*dim = v
		}
		var err error
		s.Seconds, err = strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, errors.Errorf("dataset line %d: invalid latency %q", lineNum, fields[4])
		}
		ds = append(ds, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed reading dataset after line %d", lineNum)
	}
	return ds, nil
}

// LoadFile reads the dataset from the file at path.
func LoadFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset file %q", path)
	}
	defer func() { _ = f.Close() }()
	ds, err := Load(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "dataset file %q", path)
	}
	return ds, nil
}
