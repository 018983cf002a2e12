package analysis

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ValueKind constrains the value an option accepts.
type ValueKind int

const (
	// ValueFree accepts any value, or none.
	ValueFree ValueKind = iota
	// ValueBoolean accepts exactly "true" or "false" when a value is given.
	ValueBoolean
	// ValueEnum accepts one of OptionSpec.Allowed when a value is given.
	ValueEnum
)

// OptionSpec describes one recognized option.
type OptionSpec struct {
	Name        string
	Kind        ValueKind
	Allowed     []string
	Description string
}

// KnownOptions is the table of recognized options. Adding an option is a
// change to this table only. Names outside it are accepted silently.
var KnownOptions = map[string]OptionSpec{
	"copy-to-clipboard":   {Kind: ValueBoolean, Description: "Copy the output to the clipboard"},
	"debug":               {Kind: ValueBoolean, Description: "Enable debug output"},
	"enable-scrubbing":    {Kind: ValueBoolean, Description: "Scrub sensitive data from the output"},
	"output-line-numbers": {Kind: ValueBoolean, Description: "Prefix output lines with line numbers"},
	"output-index":        {Kind: ValueBoolean, Description: "Include the file index in the output"},
	"output-content":      {Kind: ValueBoolean, Description: "Include file contents in the output"},
	"output-metadata":     {Kind: ValueBoolean, Description: "Include file metadata in the output"},
	"show-excluded":       {Kind: ValueBoolean, Description: "List excluded files in the output"},
	"suppress-timestamps": {Kind: ValueBoolean, Description: "Omit timestamps from the output"},
	"list-patterns": {
		Kind:        ValueEnum,
		Allowed:     []string{"none", "ignored", "contexts"},
		Description: "List patterns instead of producing output",
	},
	"output-filename": {Kind: ValueFree, Description: "Write the output to this file"},
	"filter":          {Kind: ValueFree, Description: "Extract lines matching a regex"},
}

func init() {
	for name, spec := range KnownOptions {
		spec.Name = name
		KnownOptions[name] = spec
	}
}

// LookupOption returns the OptionSpec of a recognized option.
func LookupOption(name string) (OptionSpec, bool) {
	spec, ok := KnownOptions[name]
	return spec, ok
}

// OptionNames returns the recognized option names in sorted order.
func OptionNames() []string {
	names := make([]string, 0, len(KnownOptions))
	for name := range KnownOptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns the values an option accepts, or nil for free-form options.
func (s OptionSpec) Values() []string {
	switch s.Kind {
	case ValueBoolean:
		return []string{"true", "false"}
	case ValueEnum:
		return slices.Clone(s.Allowed)
	}
	return nil
}

// check returns a warning message when value is not accepted, or "".
func (s OptionSpec) check(value string) string {
	switch s.Kind {
	case ValueBoolean:
		if value != "true" && value != "false" {
			return fmt.Sprintf("Option '%s' expects 'true' or 'false', got '%s'", s.Name, value)
		}
	case ValueEnum:
		if !slices.Contains(s.Allowed, value) {
			return fmt.Sprintf("Option '%s' expects one of: %s; got '%s'",
				s.Name, strings.Join(s.Allowed, ", "), value)
		}
	}
	return ""
}
