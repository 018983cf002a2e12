package lsp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/domain"
)

var (
	parentListPrefix  = regexp.MustCompile(`^\s*\[([^\]:]*):([^\]]*)$`)
	optionValuePrefix = regexp.MustCompile(`^\s*@([A-Za-z0-9_-]+)=([^"]*)$`)
	optionNamePrefix  = regexp.MustCompile(`^\s*@([A-Za-z0-9_-]*)$`)
)

func (s *Server) handleCompletion(msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: -32602, Message: err.Error()})
		return err
	}

	items := getCompletions(s.documents.Get(params.TextDocument.URI), params.Position)
	if items == nil {
		items = []CompletionItem{}
	}
	s.sendResponse(msg.ID, &CompletionList{Items: items}, nil)
	return nil
}

// getCompletions decides what the cursor is completing from the text left
// of it on the same line.
func getCompletions(doc *Document, pos Position) []CompletionItem {
	if doc == nil {
		return nil
	}
	before := doc.TextBefore(pos)

	if m := parentListPrefix.FindStringSubmatch(before); m != nil {
		return parentCompletions(doc, int(pos.Line), strings.TrimSpace(m[1]), m[2])
	}
	if m := optionValuePrefix.FindStringSubmatch(before); m != nil {
		return valueCompletions(m[1])
	}
	if optionNamePrefix.MatchString(before) {
		return optionCompletions()
	}
	return nil
}

// parentCompletions offers the contexts a header on line may inherit from,
// leaving out the header's own name and parents already listed.
func parentCompletions(doc *Document, line int, name, typed string) []CompletionItem {
	listed := make(map[string]bool)
	tokens := strings.Split(typed, ",")
	for _, tok := range tokens[:len(tokens)-1] {
		listed[strings.TrimSpace(tok)] = true
	}

	g := doc.Result.Graph
	var items []CompletionItem
	for i, ctx := range g.DefinedBefore(line) {
		if ctx == name || listed[ctx] {
			continue
		}
		detail := "Context"
		if ctx == domain.ReservedContext {
			detail = "Implicit root context"
		} else if c, ok := g.Get(ctx); ok && len(c.Parents) > 0 {
			detail = "Context inheriting from " + strings.Join(c.Parents, ", ")
		}
		items = append(items, CompletionItem{
			Label:    ctx,
			Kind:     CompletionItemKindReference,
			Detail:   detail,
			SortText: sortKey(i),
		})
	}
	return items
}

func optionCompletions() []CompletionItem {
	names := analysis.OptionNames()
	items := make([]CompletionItem, 0, len(names))
	for _, name := range names {
		spec, _ := analysis.LookupOption(name)
		item := CompletionItem{
			Label:         name,
			Kind:          CompletionItemKindProperty,
			Documentation: spec.Description,
		}
		if values := spec.Values(); len(values) > 0 {
			item.Detail = strings.Join(values, " | ")
		}
		items = append(items, item)
	}
	return items
}

func valueCompletions(option string) []CompletionItem {
	spec, ok := analysis.LookupOption(option)
	if !ok {
		return nil
	}
	values := spec.Values()
	items := make([]CompletionItem, 0, len(values))
	for i, v := range values {
		items = append(items, CompletionItem{
			Label:    v,
			Kind:     CompletionItemKindEnumMember,
			Detail:   option,
			SortText: sortKey(i),
		})
	}
	return items
}

func sortKey(i int) string {
	return fmt.Sprintf("%03d", i)
}
