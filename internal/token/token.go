package token

type Type string

type Token struct {
	Type    Type
	Literal string
	// Raw preserves the original lexeme when Literal is normalized (e.g., strings).
	Raw  string
	Line int
	Col  int
}

const (
	// Special
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"

	LPAREN Type = "("
	RPAREN Type = ")"

	// ATOM is any run of characters that is not whitespace, a paren, a
	// quote or a comment marker: mnemonics, names, numbers, type tags.
	ATOM    Type = "ATOM"
	STRING  Type = "STRING"
	COMMENT Type = "COMMENT"
)
