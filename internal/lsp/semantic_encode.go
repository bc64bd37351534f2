package lsp

import "sort"

// EncodeSemanticTokens produces the relative five-integer encoding of the
// LSP semanticTokens/full response. toks is not modified.
func EncodeSemanticTokens(toks []SemTok) []uint32 {
	sorted := make([]SemTok, 0, len(toks))
	for _, t := range toks {
		if t.Length > 0 {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Col < sorted[j].Col
	})

	data := make([]uint32, 0, len(sorted)*5)
	prevLine, prevCol := 1, 1
	for _, t := range sorted {
		deltaLine := t.Line - prevLine
		deltaStart := t.Col - 1
		if deltaLine == 0 {
			deltaStart = t.Col - prevCol
		}
		data = append(data,
			uint32(deltaLine),
			uint32(deltaStart),
			uint32(t.Length),
			uint32(t.Type),
			uint32(t.Mods),
		)
		prevLine, prevCol = t.Line, t.Col
	}
	return data
}
