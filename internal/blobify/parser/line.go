// Package parser classifies the lines of a .blobify document.
//
// Classification is purely syntactic: every line is categorized on its own
// text, with no knowledge of the lines around it. Cross-line rules (context
// inheritance, duplicates) belong to the graph package.
package parser

import (
	"regexp"
	"strings"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
)

const (
	commentMarker     = "#"
	instructionMarker = "##"
	optionMarker      = "@"
	filterMarker      = "@filter="
)

var optionPattern = regexp.MustCompile(`^@([A-Za-z0-9_-]+)(?:=(.*))?$`)

// Line is a classified document line. Exactly one of the kind-specific
// fields is set, matching Kind; the others are nil or empty.
type Line struct {
	Number int             // 0-based line number.
	Raw    string          // The line as written.
	Text   string          // The line with surrounding whitespace removed.
	Kind   domain.LineKind // Syntactic category.

	Header  *Header     // Set for LineContextHeader.
	Option  *OptionLine // Set for LineOption.
	Filter  string      // Content after "@filter=" for LineFilterOption.
	Pattern *Pattern    // Set for LinePattern.
}

// Header is the content of a [name] or [name:parent,...] line.
type Header struct {
	Name string
	// Parents are the declared parent tokens, trimmed, empties dropped.
	Parents []string
	// HasParentList is true when the header contained a ':' separator,
	// even if no parent tokens survived.
	HasParentList bool
}

// OptionLine is an @name[=value] line. Valid is false when the text after
// the marker does not follow the identifier grammar.
type OptionLine struct {
	domain.Option
	Valid bool
}

// Pattern is a +glob or -glob line.
type Pattern struct {
	Include bool
	Text    string
}

// SplitLines splits document text into lines on '\n', dropping a trailing
// '\r' from each so CRLF documents keep the same line numbers.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseDocument classifies every line of text.
func ParseDocument(text string) []Line {
	raw := SplitLines(text)
	lines := make([]Line, len(raw))
	for i, l := range raw {
		lines[i] = ParseLine(i, l)
	}
	return lines
}

// Classify returns the kind of a single line.
func Classify(raw string) domain.LineKind {
	return ParseLine(0, raw).Kind
}

// ParseLine classifies one line and extracts its kind-specific content.
func ParseLine(number int, raw string) Line {
	text := strings.TrimSpace(raw)
	line := Line{Number: number, Raw: raw, Text: text}

	switch {
	case text == "":
		line.Kind = domain.LineBlank
	case strings.HasPrefix(text, instructionMarker):
		line.Kind = domain.LineInstruction
	case strings.HasPrefix(text, commentMarker):
		line.Kind = domain.LineComment
	case strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") && len(text) >= 2:
		line.Kind = domain.LineContextHeader
		line.Header = parseHeader(text[1 : len(text)-1])
	case strings.HasPrefix(text, filterMarker):
		line.Kind = domain.LineFilterOption
		line.Filter = strings.TrimPrefix(text, filterMarker)
	case strings.HasPrefix(text, optionMarker):
		line.Kind = domain.LineOption
		line.Option = parseOption(text)
	case strings.HasPrefix(text, "+") || strings.HasPrefix(text, "-"):
		line.Kind = domain.LinePattern
		line.Pattern = &Pattern{
			Include: text[0] == '+',
			Text:    strings.TrimSpace(text[1:]),
		}
	default:
		line.Kind = domain.LineInvalid
	}
	return line
}

func parseHeader(interior string) *Header {
	name, rest, found := strings.Cut(interior, ":")
	h := &Header{Name: strings.TrimSpace(name), HasParentList: found}
	if !found {
		return h
	}
	for _, tok := range strings.Split(rest, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			h.Parents = append(h.Parents, tok)
		}
	}
	return h
}

func parseOption(text string) *OptionLine {
	m := optionPattern.FindStringSubmatch(text)
	if m == nil {
		return &OptionLine{Option: domain.Option{Name: strings.TrimPrefix(text, optionMarker)}}
	}
	opt := &OptionLine{Valid: true, Option: domain.Option{Name: m[1]}}
	if strings.Contains(text, "=") {
		opt.HasValue = true
		opt.Value = m[2]
	}
	return opt
}
