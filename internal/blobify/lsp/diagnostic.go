package lsp

import (
	"github.com/blobify/blobify-lang/internal/blobify/domain"
)

const diagnosticSource = "blobify"

// convertDiagnostics maps core diagnostics onto whole-line LSP ranges.
func convertDiagnostics(doc *Document) []Diagnostic {
	out := make([]Diagnostic, 0, len(doc.Result.Diagnostics))
	for _, d := range doc.Result.Diagnostics {
		out = append(out, Diagnostic{
			Range:    doc.LineRange(d.Line),
			Severity: convertSeverity(d.Severity),
			Code:     string(d.Code),
			Source:   diagnosticSource,
			Message:  d.Message,
		})
	}
	return out
}

func convertSeverity(s domain.Severity) DiagnosticSeverity {
	switch s {
	case domain.SeverityError:
		return DiagnosticSeverityError
	case domain.SeverityWarning:
		return DiagnosticSeverityWarning
	}
	return DiagnosticSeverityInformation
}

// publishDiagnostics sends the full diagnostic set of uri, replacing
// whatever the client showed before.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}
	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: convertDiagnostics(doc),
	})
}
