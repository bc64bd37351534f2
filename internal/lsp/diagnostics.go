package lsp

import (
	"calx/internal/diag"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func ToLspDiagnostics(text string, ds []diag.Diagnostic) []protocol.Diagnostic {
	lines := splitLines(text)
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		severity := protocol.DiagnosticSeverityError
		switch d.Severity {
		case diag.SeverityWarning:
			severity = protocol.DiagnosticSeverityWarning
		case diag.SeverityInfo:
			severity = protocol.DiagnosticSeverityInformation
		}

		pd := protocol.Diagnostic{
			Range:    diagRange(lines, d.Range),
			Severity: &severity,
			Source:   ptrString("calx"),
			Message:  d.Message,
		}
		if d.Code != "" {
			code := protocol.IntegerOrString{Value: d.Code}
			pd.Code = &code
		}
		out = append(out, pd)
	}
	return out
}

func ptrString(s string) *string { return &s }
