// Package format rewrites .blobify documents into canonical layout.
package format

import (
	"strings"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/parser"
)

// Options controls layout choices that are a matter of taste.
type Options struct {
	// BlankLineBeforeContext separates every context header from the
	// content above it, unless a comment sits directly on top of it.
	BlankLineBeforeContext bool
	// MigrateLegacyFilters rewrites name:regex filters into CSV form.
	MigrateLegacyFilters bool
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{BlankLineBeforeContext: true}
}

// Format returns text in canonical layout. Formatting an already formatted
// document returns it unchanged.
func Format(text string, opts Options) string {
	var out []string
	pendingBlank := false

	for _, l := range parser.ParseDocument(text) {
		if l.Kind == domain.LineBlank {
			pendingBlank = len(out) > 0
			continue
		}

		line := canonical(l, opts)
		switch {
		case pendingBlank:
			out = append(out, "")
		case opts.BlankLineBeforeContext && l.Kind == domain.LineContextHeader && len(out) > 0:
			if prev := parser.Classify(out[len(out)-1]); prev != domain.LineComment && prev != domain.LineInstruction {
				out = append(out, "")
			}
		}
		pendingBlank = false
		out = append(out, line)
	}

	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// Changed reports whether Format would rewrite text.
func Changed(text string, opts Options) bool {
	return Format(text, opts) != text
}

// MigrateFilter returns the CSV form of a legacy filter line. The boolean
// is false when l is not a legacy filter that can be migrated safely.
func MigrateFilter(l parser.Line) (string, bool) {
	if l.Kind != domain.LineFilterOption {
		return "", false
	}
	f, ok := parser.ParseFilter(l.Filter)
	if !ok || f.Format != domain.FilterFormatLegacy || f.Name == "" || f.Regex == "" {
		return "", false
	}
	return parser.FormatCSVFilter(f), true
}

func canonical(l parser.Line, opts Options) string {
	switch l.Kind {
	case domain.LineContextHeader:
		h := l.Header
		if h.Name == "" {
			return l.Text
		}
		if len(h.Parents) == 0 {
			return "[" + h.Name + "]"
		}
		return "[" + h.Name + ":" + strings.Join(h.Parents, ",") + "]"
	case domain.LinePattern:
		sign := "-"
		if l.Pattern.Include {
			sign = "+"
		}
		return sign + l.Pattern.Text
	case domain.LineFilterOption:
		if opts.MigrateLegacyFilters {
			if migrated, ok := MigrateFilter(l); ok {
				return migrated
			}
		}
	}
	return l.Text
}
