// Package domain holds the entities shared by every stage of .blobify analysis.
package domain

// ReservedContext is the implicit root context every context inherits from
// unless it declares other parents. It can never be declared explicitly.
const ReservedContext = "default"

// LineKind is the syntactic category of a single document line.
type LineKind int

const (
	LineBlank LineKind = iota
	LineComment
	LineInstruction
	LineContextHeader
	LineOption
	LineFilterOption
	LinePattern
	LineInvalid
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "Blank"
	case LineComment:
		return "Comment"
	case LineInstruction:
		return "Instruction"
	case LineContextHeader:
		return "ContextHeader"
	case LineOption:
		return "Option"
	case LineFilterOption:
		return "FilterOption"
	case LinePattern:
		return "Pattern"
	case LineInvalid:
		return "Invalid"
	}
	return "Unknown"
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityError       Severity = "ERROR"
	SeverityWarning     Severity = "WARNING"
	SeverityInformation Severity = "INFORMATION"
)

// Code identifies the rule that produced a diagnostic.
type Code string

const (
	CodeInvalidLine      Code = "invalid-line"
	CodeEmptyContext     Code = "empty-context-name"
	CodeDuplicateContext Code = "duplicate-context"
	CodeReservedContext  Code = "reserved-context"
	CodeUnknownParent    Code = "unknown-parent"
	CodeInvalidOption    Code = "invalid-option"
	CodeOptionValue      Code = "option-value"
	CodeInvalidFilter    Code = "invalid-filter"
	CodeEmptyFilterName  Code = "empty-filter-name"
	CodeEmptyFilterRegex Code = "empty-filter-regex"
	CodeInvalidRegex     Code = "invalid-regex"
	CodeLegacyFilter     Code = "legacy-filter"
	CodeEmptyPattern     Code = "empty-pattern"
)

// Diagnostic is a single line-addressed finding. Line is 0-based.
type Diagnostic struct {
	Line     int      `json:"line"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
}

// Context is a named group of patterns and options.
// Parents holds exactly what the header declared; an empty list means the
// context inherits only from ReservedContext.
type Context struct {
	Name    string   `json:"name" yaml:"name"`
	Parents []string `json:"parents" yaml:"parents"`
	Line    int      `json:"line" yaml:"line"`
}

// FilterFormat is the syntax a filter was declared with.
type FilterFormat string

const (
	FilterFormatCSV    FilterFormat = "csv"
	FilterFormatLegacy FilterFormat = "legacy"
)

// DefaultFilePattern applies when a filter does not name one.
const DefaultFilePattern = "*"

// Filter extracts matching lines from files matching FilePattern.
// Regex is the source as written, before any unescaping.
type Filter struct {
	Name        string       `json:"name"`
	Regex       string       `json:"regex"`
	FilePattern string       `json:"file_pattern"`
	Format      FilterFormat `json:"format"`
}

// Option is an @name or @name=value line.
type Option struct {
	Name     string `json:"name"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"has_value"`
}
