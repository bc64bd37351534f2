package lsp

import protocol "github.com/tliron/glsp/protocol_3_16"

// EndPositionUTF16 returns the LSP position at the end of text, using UTF-16 code units.
func EndPositionUTF16(text string) protocol.Position {
	lines := splitLines(text)
	last := lines[len(lines)-1]
	return protocol.Position{Line: uint32(len(lines) - 1), Character: uint32(utf16Len(last))}
}

// FullDocumentRange returns an LSP range covering the entire document.
func FullDocumentRange(text string) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   EndPositionUTF16(text),
	}
}
