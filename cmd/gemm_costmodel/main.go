// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// gemm_costmodel measures the matrix multiplication kernels, trains their cost models and
// generates the model tables of the pkg/gemm/models package.
//
// Usage:
//
//	gemm_costmodel [-v=1] <command> [flags] [args]
//
// Run "gemm_costmodel help" for the list of commands.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gomlx/tilegemm/pkg/gemm"
	"github.com/gomlx/tilegemm/pkg/gemm/bench"
	"github.com/gomlx/tilegemm/pkg/gemm/cpuprofile"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/gomlx/tilegemm/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type command struct {
	name, args, help string
	run              func(fs *flag.FlagSet, args []string) error
}

var commands = []command{
	{"list-kernels", "[-profile kind]", "Lists the kernels registered for the CPU profile.", runListKernels},
	{"ds", "-o <dataset> [-mm filter]", "Measures the kernels and saves the dataset.", runDataset},
	{"train", "-ds <dataset> [-eval <dataset>] [-plot <file.png>]", "Trains the cost models and evaluates them.", runTrain},
	{"e2e", "[-ds <dataset>] [-o <gen.go>]", "Measures (or loads) a dataset and generates the Go table of models.", runEndToEnd},
	{"time", "[-mm filter] <m> <k> <n>", "Measures the kernels on one shape.", runTime},
	{"train-eval", "-ds <dataset> [-no_truth] <m> <k> <n>", "Trains the models and compares predictions and measures for one shape.", runTrainEval},
}

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, "Usage: %s [global flags] <command> [flags] [args]\n\nCommands:\n", os.Args[0])
	for _, cmd := range commands {
		_, _ = fmt.Fprintf(out, "  %-12s %s\n  %12s %s\n", cmd.name, cmd.args, "", cmd.help)
	}
	_, _ = fmt.Fprintf(out, "\nGlobal flags:\n")
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 || args[0] == "help" {
		flag.Usage()
		if len(args) == 0 {
			os.Exit(1)
		}
		return
	}
	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		fs := flag.NewFlagSet(cmd.name, flag.ExitOnError)
		fs.Usage = func() {
			_, _ = fmt.Fprintf(fs.Output(), "Usage: %s %s %s\n\n%s\n\nFlags:\n", os.Args[0], cmd.name, cmd.args, cmd.help)
			fs.PrintDefaults()
		}
		if err := cmd.run(fs, args[1:]); err != nil {
			klog.Errorf("%s: %+v", cmd.name, err)
			os.Exit(1)
		}
		return
	}
	klog.Errorf("Unknown command %q. See '%s help'.", args[0], os.Args[0])
	os.Exit(1)
}

// profileFlag adds the -profile flag to fs. The returned function resolves it: an empty value
// means the profile of the host (see cpuprofile.Default).
func profileFlag(fs *flag.FlagSet) func() (cpuprofile.Profile, error) {
	name := fs.String("profile", "", fmt.Sprintf("CPU kind to use instead of the detected one, one of %q.", cpuprofile.KindStrings()))
	return func() (cpuprofile.Profile, error) {
		if *name == "" {
			return cpuprofile.Default(), nil
		}
		kind, err := cpuprofile.KindString(*name)
		if err != nil {
			return cpuprofile.Profile{}, errors.Wrapf(err, "invalid -profile")
		}
		return cpuprofile.Profile{Kind: kind, Source: cpuprofile.SourceKindOverride, Features: cpuprofile.HostFeatures()}, nil
	}
}

// kernelsFilterFlag adds the -mm flag to fs: kernels are kept if their name contains any of the given substrings.
func kernelsFilterFlag(fs *flag.FlagSet) *[]string {
	return xslices.Flag(fs, "mm", nil, "Comma-separated substrings: only kernels whose name contains one of them are used.",
		xslices.ParseString)
}

// filterKernels returns the kernels whose name contains any of the filters, or all of them if there are no filters.
func filterKernels(ks []kernels.Kernel, filters []string) []kernels.Kernel {
	if len(filters) == 0 {
		return ks
	}
	var selected []kernels.Kernel
	for _, kernel := range ks {
		for _, filter := range filters {
			if strings.Contains(kernel.Name(), filter) {
				selected = append(selected, kernel)
				break
			}
		}
	}
	return selected
}

// profileKernels returns the kernels of the profile, filtered.
func profileKernels(profile cpuprofile.Profile, filters []string) ([]kernels.Kernel, error) {
	ks := filterKernels(gemm.KernelsFor(profile), filters)
	if len(ks) == 0 {
		return nil, errors.Errorf("no kernels match -mm=%q", strings.Join(filters, ","))
	}
	return ks, nil
}

type harnessFlags struct {
	chunk     *time.Duration
	ruinCache *int
}

// addHarnessFlags adds to fs the flags configuring the benchmark harness.
func addHarnessFlags(fs *flag.FlagSet) *harnessFlags {
	return &harnessFlags{
		chunk: fs.Duration("chunk", time.Millisecond,
			"Target duration of each chunk of measured calls. Larger values give more stable measures, but take longer."),
		ruinCache: fs.Int("ruin_cache", 0,
			"Size in bytes of the buffer written before each measured call, to evict the operands from the caches. 0 disables it."),
	}
}

func (f *harnessFlags) harness() *bench.Harness {
	h := bench.New()
	h.ChunkTarget = *f.chunk
	if *f.ruinCache > 0 {
		h.RuinCache = bench.CacheRuiner(*f.ruinCache)
	}
	return h
}

// parseShape parses the positional arguments m, k and n.
func parseShape(args []string) (m, k, n int, err error) {
	if len(args) != 3 {
		return 0, 0, 0, errors.Errorf("expected 3 arguments <m> <k> <n>, got %q", args)
	}
	var dims [3]int
	for ii, arg := range args {
		dims[ii], err = xslices.ParseInt(arg)
		if err != nil {
			return 0, 0, 0, err
		}
		if dims[ii] <= 0 {
			return 0, 0, 0, errors.Errorf("dimensions must be positive, got %q", args)
		}
	}
	return dims[0], dims[1], dims[2], nil
}
