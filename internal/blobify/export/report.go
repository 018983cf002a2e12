package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

// Report is the JSON diagnostics report of a set of files.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Totals      analysis.Counts `json:"totals"`
	Files       []FileReport    `json:"files"`
}

// FileReport is one file's section of a Report.
type FileReport struct {
	Path        string              `json:"path"`
	Counts      analysis.Counts     `json:"counts"`
	Diagnostics []domain.Diagnostic `json:"diagnostics"`
	Contexts    []domain.Context    `json:"contexts"`
}

// NewReport builds a report from workspace entries.
func NewReport(entries []*workspace.Entry) Report {
	r := Report{
		GeneratedAt: time.Now().UTC(),
		Files:       make([]FileReport, 0, len(entries)),
	}
	for _, e := range entries {
		fr := FileReport{
			Path:        e.Path,
			Counts:      e.Counts(),
			Diagnostics: e.Diagnostics,
			Contexts:    e.Contexts,
		}
		if fr.Diagnostics == nil {
			fr.Diagnostics = []domain.Diagnostic{}
		}
		if fr.Contexts == nil {
			fr.Contexts = []domain.Context{}
		}
		r.Totals = r.Totals.Add(fr.Counts)
		r.Files = append(r.Files, fr)
	}
	return r
}

// ExportJSON writes the report of entries to w.
func ExportJSON(entries []*workspace.Entry, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewReport(entries))
}
