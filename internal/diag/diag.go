// Package diag holds the positioned messages produced by the parser,
// assembler and linter.
package diag

import (
	"fmt"
	"sort"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Range is a source span on one line. Line and Col are 1-based, Col counts
// bytes and Length counts runes.
type Range struct {
	Line   int
	Col    int
	Length int
}

func (r Range) Before(o Range) bool {
	if r.Line != o.Line {
		return r.Line < o.Line
	}
	return r.Col < o.Col
}

type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	Range    Range
}

func Errorf(code string, r Range, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Severity: SeverityError, Range: r}
}

func Warnf(code string, r Range, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning, Range: r}
}

// Format renders d as path:line:col: severity CODE: message.
func (d Diagnostic) Format(path string) string {
	if d.Code != "" {
		return fmt.Sprintf("%s:%d:%d: %s %s: %s", path, d.Range.Line, d.Range.Col, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", path, d.Range.Line, d.Range.Col, d.Severity, d.Message)
}

// HasErrors reports whether ds contains an error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the errors in ds, in order.
func Errors(ds []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders ds by position, keeping the relative order of equal spans.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Range.Before(ds[j].Range) })
}
