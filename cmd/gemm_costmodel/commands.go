// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/tilegemm/internal/workerspool"
	"github.com/gomlx/tilegemm/pkg/gemm/bench"
	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/gomlx/tilegemm/pkg/gemm/cpuprofile"
	"github.com/gomlx/tilegemm/pkg/gemm/kernels"
	"github.com/gomlx/tilegemm/pkg/gemm/models"
	"github.com/gomlx/tilegemm/pkg/support/fsutil"
	"github.com/gomlx/tilegemm/pkg/support/sets"
	"github.com/gomlx/tilegemm/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 0, 0, 0)
	bestStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	wrongStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// inputPath expands "~" and checks that the file exists.
func inputPath(p string) (string, error) {
	p, err := fsutil.ReplaceTilde(p)
	if err != nil {
		return "", err
	}
	exists, err := fsutil.FileExists(p)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errors.Errorf("file %q not found", p)
	}
	return p, nil
}

// outputPath expands "~" and creates the parent directory of the file.
func outputPath(p string) (string, error) {
	p, err := fsutil.ReplaceTilde(p)
	if err != nil {
		return "", err
	}
	return p, fsutil.CreateParentDir(p)
}

func loadDataset(p string) (costmodel.Dataset, error) {
	p, err := inputPath(p)
	if err != nil {
		return nil, err
	}
	ds, err := costmodel.LoadFile(p)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("loaded %s samples of %d kernels from %q", humanize.Comma(int64(len(ds))), len(ds.Kernels()), p)
	return ds, nil
}

// datasetKernels returns the kernels with samples in ds, in registration order. Kernels of the
// dataset that are not registered are skipped with a warning.
func datasetKernels(ds costmodel.Dataset, registered []kernels.Kernel) []kernels.Kernel {
	inDataset := sets.MakeWith(ds.Kernels()...)
	var ks []kernels.Kernel
	for _, kernel := range registered {
		if inDataset.Has(kernel.Name()) {
			ks = append(ks, kernel)
			delete(inDataset, kernel.Name())
		}
	}
	for _, name := range sets.Sorted(inDataset) {
		klog.Warningf("dataset has samples of kernel %q, which is not registered or was filtered out: skipping it", name)
	}
	return ks
}

func kernelShapes(ks []kernels.Kernel) []costmodel.KernelShape {
	return xslices.Map(ks, func(k kernels.Kernel) costmodel.KernelShape { return k })
}

func trainTable(ds costmodel.Dataset, ks []kernels.Kernel) (costmodel.Table, error) {
	if len(ks) == 0 {
		return nil, errors.New("no registered kernel has samples in the dataset")
	}
	table, failures := costmodel.TrainAll(ds, kernelShapes(ks), workerspool.New())
	if len(table) == 0 && len(failures) > 0 {
		return nil, errors.Errorf("failed to train any of the %d cost models", len(failures))
	}
	return table, nil
}

func runListKernels(fs *flag.FlagSet, args []string) error {
	getProfile := profileFlag(fs)
	_ = fs.Parse(args)
	profile, err := getProfile()
	if err != nil {
		return err
	}
	table := models.ForKind(profile.Kind)
	fmt.Printf("Profile: %s\n", profile)
	t := newPlainTable(true, lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Left)
	t.Headers("Kernel", "DType", "Tile", "Alignment", "Cost model")
	for _, kernel := range profileKernelsOrAll(profile) {
		_, hasModel := table.Lookup(kernel.Name())
		t.Row(kernel.Name(), kernel.DType().String(), fmt.Sprintf("%dx%d", kernel.MR(), kernel.NR()),
			fmt.Sprint(kernel.Alignment()), yesNo(hasModel))
	}
	fmt.Println(t.Render())
	return nil
}

func profileKernelsOrAll(profile cpuprofile.Profile) []kernels.Kernel {
	ks, err := profileKernels(profile, nil)
	if err != nil {
		return kernels.Builtin()
	}
	return ks
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runDataset(fs *flag.FlagSet, args []string) error {
	output := fs.String("o", "", "Path of the dataset file to write.")
	seed := fs.Uint64("seed", 0, "Seed of the order of the measurements.")
	filters := kernelsFilterFlag(fs)
	hFlags := addHarnessFlags(fs)
	getProfile := profileFlag(fs)
	_ = fs.Parse(args)
	if *output == "" {
		fs.Usage()
		return errors.New("missing -o")
	}
	p, err := outputPath(*output)
	if err != nil {
		return err
	}
	profile, err := getProfile()
	if err != nil {
		return err
	}
	ks, err := profileKernels(profile, *filters)
	if err != nil {
		return err
	}
	ds, err := hFlags.harness().MakeDataset(ks, bench.DatasetOptions{Seed: *seed, Progress: os.Stderr})
	if err != nil {
		return err
	}
	if err = ds.SaveFile(p); err != nil {
		return err
	}
	fmt.Printf("Saved %s samples of %d kernels to %q\n", humanize.Comma(int64(len(ds))), len(ks), p)
	return nil
}

func runTrain(fs *flag.FlagSet, args []string) error {
	dsPath := fs.String("ds", "", "Path of the dataset to train on.")
	evalPath := fs.String("eval", "", "Path of a dataset to evaluate the trained models on.")
	plotPath := fs.String("plot", "", "If set, path of a PNG file with a scatter plot of predicted vs measured latencies.")
	filters := kernelsFilterFlag(fs)
	getProfile := profileFlag(fs)
	_ = fs.Parse(args)
	if *dsPath == "" {
		fs.Usage()
		return errors.New("missing -ds")
	}
	profile, err := getProfile()
	if err != nil {
		return err
	}
	ds, err := loadDataset(*dsPath)
	if err != nil {
		return err
	}
	evalDS := ds
	if *evalPath != "" {
		if evalDS, err = loadDataset(*evalPath); err != nil {
			return err
		}
	}
	ks := datasetKernels(ds, filterKernels(profileKernelsOrAll(profile), *filters))
	table, err := trainTable(ds, ks)
	if err != nil {
		return err
	}

	evaluations := make([]costmodel.Evaluation, 0, len(table))
	t := newPlainTable(true, lipgloss.Left, lipgloss.Right)
	t.Headers("Kernel", "Samples", "R²", "Mean |error|")
	for _, entry := range table {
		ev := costmodel.Evaluate(&entry.Model, entry.Kernel, evalDS)
		evaluations = append(evaluations, ev)
		t.Row(entry.Kernel, humanize.Comma(int64(len(ev.Rows))), fmt.Sprintf("%.4f", ev.RSquared),
			fmt.Sprintf("%.2f%%", 100*ev.MeanAbsRelError))
	}
	if *evalPath != "" {
		for _, ev := range evaluations {
			fmt.Println(titleStyle.Render(ev.Kernel))
			writeEvaluation(os.Stdout, ev)
		}
	}
	fmt.Println(t.Render())

	if *plotPath != "" {
		p, err := outputPath(*plotPath)
		if err != nil {
			return err
		}
		if err = writePlot(p, evaluations); err != nil {
			return err
		}
		fmt.Printf("Plot saved to %q\n", p)
	}
	return nil
}

// writeEvaluation writes one line per row of ev, colored from green (exact prediction) to red
// (2% off or worse).
func writeEvaluation(w io.Writer, ev costmodel.Evaluation) {
	for _, row := range ev.Rows {
		line := fmt.Sprintf("%4d %4d %4d  pred: %9.3f us truth: %9.3f us %5.2f%%",
			row.M, row.K, row.N, row.Predicted*1e6, row.Measured*1e6, 100*row.RelError())
		quality := 1 - math.Min(math.Abs(row.RelError())*50, 1)
		style := lipgloss.NewStyle().Bold(true).Foreground(gradientColor(quality))
		_, _ = fmt.Fprintln(w, style.Render(line))
	}
}

// gradientColor maps x in [0, 1] to a color from red (0) through yellow (0.5) to green (1).
func gradientColor(x float64) lipgloss.Color {
	if math.IsNaN(x) {
		x = 0
	}
	x = math.Max(0, math.Min(1, x))
	red, yellow, green := [3]float64{215, 48, 39}, [3]float64{255, 255, 191}, [3]float64{26, 152, 80}
	from, to, f := red, yellow, 2*x
	if x > 0.5 {
		from, to, f = yellow, green, 2*x-1
	}
	var rgb [3]int
	for ii := range rgb {
		rgb[ii] = int(math.Round(from[ii] + (to[ii]-from[ii])*f))
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]))
}

// tableVarName returns the Go name of the models table of a kind, e.g. "cortex_a53" -> "CortexA53".
func tableVarName(kind cpuprofile.Kind) string {
	parts := strings.Split(kind.String(), "_")
	for ii, part := range parts {
		if part != "" {
			parts[ii] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

func runEndToEnd(fs *flag.FlagSet, args []string) error {
	dsPath := fs.String("ds", "", "Path of the dataset to train on. If empty, a new dataset is measured.")
	output := fs.String("o", "", "Path of the Go file to generate. If empty, it is written to the standard output.")
	pkg := fs.String("package", "models", "Package name of the generated file.")
	seed := fs.Uint64("seed", 0, "Seed of the order of the measurements.")
	hFlags := addHarnessFlags(fs)
	getProfile := profileFlag(fs)
	_ = fs.Parse(args)
	profile, err := getProfile()
	if err != nil {
		return err
	}
	ks, err := profileKernels(profile, nil)
	if err != nil {
		return err
	}
	var ds costmodel.Dataset
	if *dsPath != "" {
		ds, err = loadDataset(*dsPath)
	} else {
		ds, err = hFlags.harness().MakeDataset(ks, bench.DatasetOptions{Seed: *seed, Progress: os.Stderr})
	}
	if err != nil {
		return err
	}
	table, err := trainTable(ds, datasetKernels(ds, ks))
	if err != nil {
		return err
	}

	opts := costmodel.GenerateOptions{
		Package:   *pkg,
		Var:       tableVarName(profile.Kind),
		Profile:   profile.Kind.String(),
		Generator: "gemm_costmodel e2e",
	}
	if *output == "" {
		return costmodel.WriteGoSource(os.Stdout, opts, table)
	}
	p, err := outputPath(*output)
	if err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", p)
	}
	if err = costmodel.WriteGoSource(f, opts, table); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", p)
	}
	_, _ = fmt.Fprintf(os.Stderr, "Generated %d cost models in %q\n", len(table), p)
	return nil
}

func runTime(fs *flag.FlagSet, args []string) error {
	filters := kernelsFilterFlag(fs)
	hFlags := addHarnessFlags(fs)
	getProfile := profileFlag(fs)
	_ = fs.Parse(args)
	m, k, n, err := parseShape(fs.Args())
	if err != nil {
		return err
	}
	profile, err := getProfile()
	if err != nil {
		return err
	}
	ks, err := profileKernels(profile, *filters)
	if err != nil {
		return err
	}
	h := hFlags.harness()
	t := newPlainTable(true, lipgloss.Left, lipgloss.Right)
	t.Headers("Kernel", "m", "k", "n", "Latency (us)", "GFlops")
	for _, kernel := range ks {
		seconds, err := h.MeasureMatMul(kernel, m, k, n)
		if err != nil {
			return err
		}
		t.Row(kernel.Name(), fmt.Sprint(m), fmt.Sprint(k), fmt.Sprint(n),
			fmt.Sprintf("%.3f", seconds*1e6), fmt.Sprintf("%.3f", bench.GFlops(m, k, n, seconds)))
	}
	fmt.Println(t.Render())
	return nil
}

func runTrainEval(fs *flag.FlagSet, args []string) error {
	dsPath := fs.String("ds", "", "Path of the dataset to train on.")
	noTruth := fs.Bool("no_truth", false, "Don't measure the kernels, only compare the predictions.")
	filters := kernelsFilterFlag(fs)
	hFlags := addHarnessFlags(fs)
	getProfile := profileFlag(fs)
	_ = fs.Parse(args)
	if *dsPath == "" {
		fs.Usage()
		return errors.New("missing -ds")
	}
	m, k, n, err := parseShape(fs.Args())
	if err != nil {
		return err
	}
	profile, err := getProfile()
	if err != nil {
		return err
	}
	ds, err := loadDataset(*dsPath)
	if err != nil {
		return err
	}
	ks := datasetKernels(ds, filterKernels(profileKernelsOrAll(profile), *filters))
	table, err := trainTable(ds, ks)
	if err != nil {
		return err
	}
	rows, best, err := hFlags.harness().Compare(ks, table, m, k, n, !*noTruth)
	if err != nil {
		return err
	}
	writeComparison(os.Stdout, rows, ks[best].Name(), m, k, n)
	return nil
}

// writeComparison writes one line per kernel, the kernel with the best prediction highlighted in
// green if it is also the fastest measured, in red otherwise.
// Rows without measure use the prediction as the truth.
func writeComparison(w io.Writer, rows []bench.Comparison, bestPredicted string, m, k, n int) {
	for ii, row := range rows {
		truth := row.Measured
		if math.IsNaN(truth) {
			truth = row.Predicted
		}
		line := fmt.Sprintf("%-30s pred: %9.3f us / %9.3f GFlops ; truth: %9.3f us / %9.3f GFlops ; diff: %5.2f%%",
			row.Kernel, row.Predicted*1e6, bench.GFlops(m, k, n, row.Predicted),
			truth*1e6, bench.GFlops(m, k, n, truth), (row.Predicted-truth)/truth*100)
		if row.Kernel == bestPredicted {
			if ii == 0 {
				line = bestStyle.Render(line)
			} else {
				line = wrongStyle.Render(line)
			}
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
