package parser

import (
	"errors"
	"strings"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
)

const (
	csvDelimiter = ','
	csvQuote     = '"'
	csvEscape    = '\\'
)

var (
	errUnterminatedQuote = errors.New("unterminated quoted field")
	errTrailingEscape    = errors.New("escape character at end of input")
)

// ParseFilter parses the content that follows "@filter=". The CSV form is
// tried first; only when it does not apply is the legacy name:regex form
// considered. The boolean is false when neither form matches.
func ParseFilter(content string) (domain.Filter, bool) {
	if f, ok := parseCSVFilter(content); ok {
		return f, true
	}
	return parseLegacyFilter(content)
}

// parseCSVFilter accepts "name","regex"[,"filepattern"]: the trimmed content
// must start and end with a quote and hold exactly one record of two or three
// non-empty fields.
func parseCSVFilter(content string) (domain.Filter, bool) {
	s := strings.TrimSpace(content)
	if len(s) < 2 || s[0] != csvQuote || s[len(s)-1] != csvQuote {
		return domain.Filter{}, false
	}
	fields, err := splitCSVRecord(s)
	if err != nil || len(fields) < 2 || len(fields) > 3 {
		return domain.Filter{}, false
	}
	for _, f := range fields {
		if f == "" {
			return domain.Filter{}, false
		}
	}

	f := domain.Filter{
		Name:        fields[0],
		Regex:       fields[1],
		FilePattern: domain.DefaultFilePattern,
		Format:      domain.FilterFormatCSV,
	}
	if len(fields) == 3 {
		f.FilePattern = fields[2]
	}
	return f, true
}

// splitCSVRecord splits a single CSV record. A doubled quote inside a quoted
// field is a literal quote; the escape character makes the next character
// literal and is itself dropped.
func splitCSVRecord(s string) ([]string, error) {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
		quoted   bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == csvEscape:
			if i+1 >= len(s) {
				return nil, errTrailingEscape
			}
			i++
			field.WriteByte(s[i])
		case inQuotes:
			if c != csvQuote {
				field.WriteByte(c)
			} else if i+1 < len(s) && s[i+1] == csvQuote {
				field.WriteByte(csvQuote)
				i++
			} else {
				inQuotes = false
			}
		case c == csvQuote && field.Len() == 0 && !quoted:
			inQuotes, quoted = true, true
		case c == csvDelimiter:
			fields = append(fields, field.String())
			field.Reset()
			quoted = false
		default:
			field.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, errUnterminatedQuote
	}
	return append(fields, field.String()), nil
}

func parseLegacyFilter(content string) (domain.Filter, bool) {
	name, regex, found := strings.Cut(content, ":")
	if !found {
		return domain.Filter{}, false
	}
	return domain.Filter{
		Name:        strings.TrimSpace(name),
		Regex:       strings.TrimSpace(regex),
		FilePattern: domain.DefaultFilePattern,
		Format:      domain.FilterFormatLegacy,
	}, true
}

// UnescapeRegex performs one round of `\\` -> `\` on a regex taken from a
// CSV filter. Legacy filters are never unescaped.
func UnescapeRegex(s string) string {
	return strings.ReplaceAll(s, `\\`, `\`)
}

// FormatCSVFilter renders f as a complete CSV filter line. The regex is
// written so that ParseFilter followed by UnescapeRegex yields it back.
func FormatCSVFilter(f domain.Filter) string {
	pattern := f.FilePattern
	if pattern == "" {
		pattern = domain.DefaultFilePattern
	}
	regex := strings.ReplaceAll(f.Regex, `\`, `\\`)
	return filterMarker + quoteField(f.Name) + "," + quoteField(regex) + "," + quoteField(pattern)
}

func quoteField(s string) string {
	var b strings.Builder
	b.WriteByte(csvQuote)
	for i := 0; i < len(s); i++ {
		if s[i] == csvEscape || s[i] == csvQuote {
			b.WriteByte(csvEscape)
		}
		b.WriteByte(s[i])
	}
	b.WriteByte(csvQuote)
	return b.String()
}
