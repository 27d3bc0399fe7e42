// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/gomlx/tilegemm/pkg/gemm/costmodel"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// writePlot saves to filePath a scatter plot of the predicted vs measured latencies (in
// microseconds) of the evaluations, one series per kernel. Perfect predictions fall on the
// diagonal, which is also drawn.
func writePlot(filePath string, evaluations []costmodel.Evaluation) error {
	p := plot.New()
	p.Title.Text = "Cost models: predicted vs measured"
	p.X.Label.Text = "measured (us)"
	p.Y.Label.Text = "predicted (us)"
	p.Add(plotter.NewGrid())

	var maxValue float64
	for ii, ev := range evaluations {
		if len(ev.Rows) == 0 {
			continue
		}
		points := make(plotter.XYs, len(ev.Rows))
		for jj, row := range ev.Rows {
			points[jj].X, points[jj].Y = row.Measured*1e6, row.Predicted*1e6
			maxValue = max(maxValue, points[jj].X, points[jj].Y)
		}
		scatter, err := plotter.NewScatter(points)
		if err != nil {
			return errors.Wrapf(err, "failed to plot kernel %q", ev.Kernel)
		}
		scatter.GlyphStyle.Color = plotutil.Color(ii)
		scatter.GlyphStyle.Shape = plotutil.Shape(ii)
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add(ev.Kernel, scatter)
	}
	diagonal := plotter.NewFunction(func(x float64) float64 { return x })
	diagonal.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diagonal)
	maxValue = max(maxValue, 1)
	p.X.Min, p.Y.Min = 0, 0
	p.X.Max, p.Y.Max = maxValue, maxValue
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 8*vg.Inch, filePath); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", filePath)
	}
	return nil
}
