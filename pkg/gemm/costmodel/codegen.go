// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package costmodel

import (
	"bytes"
	"go/format"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// GenerateOptions configure WriteGoSource.
type GenerateOptions struct {
	// Package name of the generated file.
	Package string

	// Var is the name of the generated Table variable.
	Var string

	// Profile is the name of the CPU profile the table was trained on, used in comments.
	Profile string

	// Generator is the command recorded in the header, e.g. "gemm_costmodel e2e".
	Generator string
}

type generatedEntry struct {
	Kernel    string
	MR, NR    int
	Intercept string
	Coef      string
}

var goSourceTemplate = template.Must(template.New("costmodel").Parse(
	`// Code generated by "{{.Generator}}"; DO NOT EDIT.

package {{.Package}}

import "github.com/gomlx/tilegemm/pkg/gemm/costmodel"

// {{.Var}} holds the cost models trained on {{.Profile}}.
var {{.Var}} = costmodel.Table{
{{- range .Entries}}
	{Kernel: {{printf "%q" .Kernel}}, Model: costmodel.CostModel{
		MR: {{.MR}}, NR: {{.NR}},
		Intercept: {{.Intercept}},
		Coef: []float64{ {{.Coef}} },
	}},
{{- end}}
}
`))

// formatFloat formats v so that it parses back to the exact same float64.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteGoSource writes the table as a gofmt'ed Go source file declaring a costmodel.Table variable.
// The coefficients are written with full precision, so the generated table predicts exactly as
// the trained one.
func WriteGoSource(w io.Writer, opts GenerateOptions, table Table) error {
	if err := table.Validate(); err != nil {
		return errors.WithMessage(err, "WriteGoSource")
	}
	if opts.Package == "" || opts.Var == "" {
		return errors.Errorf("WriteGoSource: package (%q) and variable (%q) names are required", opts.Package, opts.Var)
	}
	if opts.Generator == "" {
		opts.Generator = "gemm_costmodel"
	}
	if opts.Profile == "" {
		opts.Profile = "an unspecified CPU"
	}
	data := struct {
		GenerateOptions
		Entries []generatedEntry
	}{GenerateOptions: opts}
	for _, e := range table {
		coefs := make([]string, len(e.Model.Coef))
		for ii, c := range e.Model.Coef {
			coefs[ii] = formatFloat(c)
		}
		data.Entries = append(data.Entries, generatedEntry{
			Kernel:    e.Kernel,
			MR:        e.Model.MR,
			NR:        e.Model.NR,
			Intercept: formatFloat(e.Model.Intercept),
			Coef:      strings.Join(coefs, ", "),
		})
	}
	var buf bytes.Buffer
	if err := goSourceTemplate.Execute(&buf, data); err != nil {
		return errors.Wrap(err, "WriteGoSource: failed to execute template")
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return errors.Wrap(err, "WriteGoSource: generated source doesn't parse")
	}
	_, err = w.Write(src)
	return errors.Wrap(err, "WriteGoSource: failed to write")
}
