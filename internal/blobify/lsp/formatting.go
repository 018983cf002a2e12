package lsp

import (
	"encoding/json"

	"github.com/blobify/blobify-lang/internal/blobify/format"
)

func (s *Server) handleFormatting(msg *JSONRPCMessage) error {
	var params DocumentFormattingParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: -32602, Message: err.Error()})
		return err
	}

	edits := formatDocument(s.documents.Get(params.TextDocument.URI), s.formatOptions())
	s.sendResponse(msg.ID, edits, nil)
	return nil
}

// formatDocument returns a single whole-document edit, or none when the
// document is already formatted.
func formatDocument(doc *Document, opts format.Options) []TextEdit {
	if doc == nil {
		return []TextEdit{}
	}
	formatted := format.Format(doc.Content, opts)
	if formatted == doc.Content {
		return []TextEdit{}
	}
	return []TextEdit{{
		Range:   Range{Start: Position{}, End: doc.EndPosition()},
		NewText: formatted,
	}}
}

func (s *Server) formatOptions() format.Options {
	return format.Options{
		BlankLineBeforeContext: s.cfg.Format.BlankLineBeforeContext,
		MigrateLegacyFilters:   s.cfg.Format.MigrateLegacyFilters,
	}
}
