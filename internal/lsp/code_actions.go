package lsp

import (
	"calx/internal/lint"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// CodeActions offers quick fixes for lint diagnostics.
func CodeActions(uri string, text string, diags []protocol.Diagnostic) []protocol.CodeAction {
	actions := make([]protocol.CodeAction, 0)
	for _, d := range diags {
		switch diagnosticCode(d) {
		case lint.CodeUnreachable:
			if action, ok := MakeRemoveLineAction(uri, text, d.Range, "Remove unreachable instruction"); ok {
				actions = append(actions, action)
			}
		case lint.CodeUnusedLocal:
			if action, ok := MakeRemoveLineAction(uri, text, d.Range, "Remove unused local"); ok {
				actions = append(actions, action)
			}
		}
	}
	return actions
}

func diagnosticCode(d protocol.Diagnostic) string {
	if d.Code == nil {
		return ""
	}
	if s, ok := d.Code.Value.(string); ok {
		return s
	}
	return ""
}

// MakeRemoveLineAction deletes the whole line r starts on.
func MakeRemoveLineAction(uri string, text string, r protocol.Range, title string) (protocol.CodeAction, bool) {
	lines := splitLines(text)
	startLine := int(r.Start.Line)
	if startLine < 0 || startLine >= len(lines) {
		return protocol.CodeAction{}, false
	}

	endLine := startLine
	endChar := uint32(utf16Len(lines[startLine]))
	if startLine+1 < len(lines) {
		endLine = startLine + 1
		endChar = 0
	}

	edit := protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			protocol.DocumentUri(uri): {
				{
					Range: protocol.Range{
						Start: protocol.Position{Line: uint32(startLine), Character: 0},
						End:   protocol.Position{Line: uint32(endLine), Character: endChar},
					},
					NewText: "",
				},
			},
		},
	}

	kind := protocol.CodeActionKindQuickFix
	return protocol.CodeAction{
		Title: title,
		Kind:  &kind,
		Edit:  &edit,
	}, true
}
