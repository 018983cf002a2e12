// Package analysis validates .blobify documents and merges the findings of
// every stage into one line-ordered diagnostic list.
package analysis

import (
	"sort"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/graph"
	"github.com/blobify/blobify-lang/internal/blobify/parser"
)

// Result is the outcome of one analysis pass over a whole document.
type Result struct {
	Lines       []parser.Line
	Graph       *graph.Graph
	Diagnostics []domain.Diagnostic
}

// Counts tallies diagnostics per severity.
type Counts struct {
	Errors       int `json:"errors" yaml:"errors"`
	Warnings     int `json:"warnings" yaml:"warnings"`
	Informations int `json:"informations" yaml:"informations"`
}

// Add returns the sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Errors:       c.Errors + o.Errors,
		Warnings:     c.Warnings + o.Warnings,
		Informations: c.Informations + o.Informations,
	}
}

// Total is the number of diagnostics counted.
func (c Counts) Total() int {
	return c.Errors + c.Warnings + c.Informations
}

// Analyze runs the classifier, the context graph builder and the per-line
// validator over text. It is a pure function of text: the same input
// always yields the same diagnostics in the same order.
func Analyze(text string) *Result {
	lines := parser.ParseDocument(text)
	g, graphDiags := graph.Build(lines)

	diags := classifierFindings(lines)
	diags = append(diags, graphDiags...)
	for _, l := range lines {
		diags = append(diags, ValidateLine(l)...)
	}
	// Within a line, stage order is kept.
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Line < diags[j].Line
	})

	return &Result{Lines: lines, Graph: g, Diagnostics: diags}
}

// CountDiagnostics tallies diags per severity.
func CountDiagnostics(diags []domain.Diagnostic) Counts {
	var c Counts
	for _, d := range diags {
		switch d.Severity {
		case domain.SeverityError:
			c.Errors++
		case domain.SeverityWarning:
			c.Warnings++
		case domain.SeverityInformation:
			c.Informations++
		}
	}
	return c
}

// Counts tallies the result's diagnostics per severity.
func (r *Result) Counts() Counts {
	return CountDiagnostics(r.Diagnostics)
}

// HasErrors reports whether any diagnostic has Error severity.
func (r *Result) HasErrors() bool {
	return r.Counts().Errors > 0
}

// OnLine returns the diagnostics addressed to line.
func (r *Result) OnLine(line int) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Line == line {
			out = append(out, d)
		}
	}
	return out
}
