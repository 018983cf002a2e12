package lsp

import (
	"encoding/json"
	"strings"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/format"
	"github.com/blobify/blobify-lang/internal/blobify/parser"
)

func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: -32602, Message: err.Error()})
		return err
	}

	actions := getCodeActions(s.documents.Get(params.TextDocument.URI), params)
	if actions == nil {
		actions = []CodeAction{}
	}
	s.sendResponse(msg.ID, actions, nil)
	return nil
}

// getCodeActions offers a CSV migration quick fix for every legacy filter
// line within the requested range.
func getCodeActions(doc *Document, params CodeActionParams) []CodeAction {
	if doc == nil || !wantsKind(params.Context.Only, CodeActionKindQuickFix) {
		return nil
	}

	var actions []CodeAction
	for line := int(params.Range.Start.Line); line <= int(params.Range.End.Line); line++ {
		raw := doc.GetLine(line)
		migrated, ok := format.MigrateFilter(parser.ParseLine(line, raw))
		if !ok {
			continue
		}
		indent := raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]

		actions = append(actions, CodeAction{
			Title:       "Convert filter to CSV format",
			Kind:        CodeActionKindQuickFix,
			Diagnostics: matchingDiagnostics(params.Context.Diagnostics, line),
			IsPreferred: true,
			Edit: &WorkspaceEdit{
				Changes: map[string][]TextEdit{
					doc.URI: {{Range: doc.LineRange(line), NewText: indent + migrated}},
				},
			},
		})
	}
	return actions
}

func wantsKind(only []CodeActionKind, kind CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k == kind || strings.HasPrefix(string(kind), string(k)+".") {
			return true
		}
	}
	return false
}

func matchingDiagnostics(diags []Diagnostic, line int) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Code == string(domain.CodeLegacyFilter) && int(d.Range.Start.Line) == line {
			out = append(out, d)
		}
	}
	return out
}
