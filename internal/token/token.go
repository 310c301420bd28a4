// Package token defines the fixed-size lexer output element. Tokens are
// produced transiently by a language adapter's lexer as a Stream[Token];
// consumers copy values out and never hold references across an advance.
package token

import (
	"unsafe"

	"fidx/internal/atom"
	"fidx/internal/span"
)

// Kind classifies a token. The set is closed: language adapters map their
// grammar onto these kinds rather than extending them.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindEOF
	KindWhitespace
	KindNewline
	KindIdent
	KindKeyword
	KindNumber
	KindString
	KindComment
	KindPunct
	KindOperator
	KindText // uncategorized text run
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindEOF:        "eof",
	KindWhitespace: "whitespace",
	KindNewline:    "newline",
	KindIdent:      "ident",
	KindKeyword:    "keyword",
	KindNumber:     "number",
	KindString:     "string",
	KindComment:    "comment",
	KindPunct:      "punct",
	KindOperator:   "operator",
	KindText:       "text",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// HasText reports whether tokens of this kind carry an atom id in Data.
func (k Kind) HasText() bool {
	switch k {
	case KindIdent, KindKeyword, KindNumber, KindString, KindComment, KindText:
		return true
	}
	return false
}

// Token flags.
const (
	// FlagSynthetic marks tokens not present in the source (inserted by
	// error recovery).
	FlagSynthetic uint8 = 1 << iota
	// FlagError marks tokens the lexer could not classify cleanly.
	FlagError
	// FlagContinuation marks tokens split across a window refill.
	FlagContinuation
)

// MaxDepth is the saturation point of the Depth field.
const MaxDepth = ^uint16(0)

// Token is the fixed 16-byte lexer output record.
//
// Layout: packed span (8) + data (4) + depth (2) + kind (1) + flags (1).
// Data holds an atom.ID for text-bearing kinds and an inlined small value
// otherwise. The byte budget is a hard invariant, asserted at compile time
// below; changing the layout is an index-format change, not a refactor.
type Token struct {
	Span  span.Packed
	Data  uint32
	Depth uint16
	Kind  Kind
	Flags uint8
}

// Compile-time size assertion: sizeof(Token) == 16 on every build.
const _ = uint(16 - unsafe.Sizeof(Token{}))
const _ = uint(unsafe.Sizeof(Token{}) - 16)

// New returns a token over s with no payload.
func New(kind Kind, s span.Span) Token {
	return Token{Span: s.Pack(), Kind: kind}
}

// NewText returns a text-bearing token whose payload is an atom id.
func NewText(kind Kind, s span.Span, id atom.ID) Token {
	return Token{Span: s.Pack(), Kind: kind, Data: uint32(id)}
}

// EOF returns the terminal token for an input of the given length: span
// [len, len), emitted exactly once after all ordinary tokens.
func EOF(inputLen uint32) Token {
	return Token{Span: span.New(inputLen, inputLen).Pack(), Kind: KindEOF}
}

// Atom returns the token's text atom, or atom.None for kinds that carry no
// text.
func (t Token) Atom() atom.ID {
	if !t.Kind.HasText() {
		return atom.None
	}
	return atom.ID(t.Data)
}

// IsEOF reports whether this is the stream-terminal token.
func (t Token) IsEOF() bool {
	return t.Kind == KindEOF
}

// Range returns the token's unpacked span.
func (t Token) Range() span.Span {
	return t.Span.Unpack()
}

// Text resolves the token's source text. Text-bearing kinds resolve through
// the atom table; others slice the original source by span.
func (t Token) Text(src []byte, atoms *atom.Table) string {
	if t.Kind.HasText() {
		if s, ok := atoms.Text(atom.ID(t.Data)); ok {
			return s
		}
	}
	r := t.Range()
	if int(r.End) > len(src) {
		return ""
	}
	return string(src[r.Start:r.End])
}
