package analysis

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/parser"
)

const (
	msgInvalidLine = "Invalid line. Expected a comment (#), an instruction (##), a context header " +
		"([name] or [name:parent,...]), an option (@name or @name=value) or a pattern (+glob or -glob)"
	msgInvalidOption = "Invalid option syntax. Expected @name or @name=value"
	msgInvalidFilter = `Invalid filter syntax. Expected @filter="name","regex"[,"filepattern"] or @filter=name:regex`
	msgEmptyName     = "Filter name cannot be empty"
	msgEmptyRegex    = "Filter regex cannot be empty"
	msgEmptyPattern  = "Empty pattern"
	msgLegacyFilter  = "Legacy filter syntax. Consider the CSV format: %s"
)

// CompileRegex compiles a filter regex with the engine filters run under.
func CompileRegex(src string) error {
	_, err := regexp2.Compile(src, regexp2.ECMAScript)
	return err
}

// ValidateLine returns the per-line findings for l. It looks at nothing
// but the line itself; cross-line rules live in the graph package.
func ValidateLine(l parser.Line) []domain.Diagnostic {
	switch l.Kind {
	case domain.LineFilterOption:
		return validateFilter(l)
	case domain.LineOption:
		return validateOption(l)
	case domain.LinePattern:
		if l.Pattern.Text == "" {
			return []domain.Diagnostic{errorAt(l.Number, domain.CodeEmptyPattern, msgEmptyPattern)}
		}
	}
	return nil
}

// classifierFindings reports lines that fit no known form.
func classifierFindings(lines []parser.Line) []domain.Diagnostic {
	var diags []domain.Diagnostic
	for _, l := range lines {
		if l.Kind == domain.LineInvalid {
			diags = append(diags, errorAt(l.Number, domain.CodeInvalidLine, msgInvalidLine))
		}
	}
	return diags
}

func validateFilter(l parser.Line) []domain.Diagnostic {
	f, ok := parser.ParseFilter(l.Filter)
	if !ok {
		return []domain.Diagnostic{errorAt(l.Number, domain.CodeInvalidFilter, msgInvalidFilter)}
	}

	var diags []domain.Diagnostic
	regex := f.Regex
	if f.Format == domain.FilterFormatCSV {
		regex = parser.UnescapeRegex(regex)
	}

	if strings.TrimSpace(f.Name) == "" {
		diags = append(diags, errorAt(l.Number, domain.CodeEmptyFilterName, msgEmptyName))
	}
	switch {
	case f.Format == domain.FilterFormatLegacy && regex == "":
		diags = append(diags, errorAt(l.Number, domain.CodeEmptyFilterRegex, msgEmptyRegex))
	default:
		if err := CompileRegex(regex); err != nil {
			diags = append(diags, errorAt(l.Number, domain.CodeInvalidRegex,
				fmt.Sprintf("Invalid regex in filter '%s': %s", f.Name, err)))
		}
	}

	if f.Format == domain.FilterFormatLegacy {
		diags = append(diags, domain.Diagnostic{
			Line:     l.Number,
			Message:  fmt.Sprintf(msgLegacyFilter, parser.FormatCSVFilter(f)),
			Severity: domain.SeverityInformation,
			Code:     domain.CodeLegacyFilter,
		})
	}
	return diags
}

func validateOption(l parser.Line) []domain.Diagnostic {
	opt := l.Option
	if !opt.Valid {
		return []domain.Diagnostic{errorAt(l.Number, domain.CodeInvalidOption, msgInvalidOption)}
	}
	spec, known := LookupOption(opt.Name)
	if !known || !opt.HasValue {
		return nil
	}
	if msg := spec.check(opt.Value); msg != "" {
		return []domain.Diagnostic{{
			Line:     l.Number,
			Message:  msg,
			Severity: domain.SeverityWarning,
			Code:     domain.CodeOptionValue,
		}}
	}
	return nil
}

func errorAt(line int, code domain.Code, msg string) domain.Diagnostic {
	return domain.Diagnostic{Line: line, Message: msg, Severity: domain.SeverityError, Code: code}
}
