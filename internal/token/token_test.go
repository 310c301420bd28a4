package token

import (
	"testing"
	"unsafe"

	"fidx/internal/atom"
	"fidx/internal/span"
)

func TestSizeIsSixteenBytes(t *testing.T) {
	// The compile-time assertion in token.go is the real check; this keeps
	// the invariant visible in test output.
	if size := unsafe.Sizeof(Token{}); size != 16 {
		t.Fatalf("sizeof(Token) = %d, want 16", size)
	}
}

func TestEOFToken(t *testing.T) {
	tok := EOF(42)
	if !tok.IsEOF() {
		t.Fatal("EOF token not recognized")
	}
	r := tok.Range()
	if r.Start != 42 || r.End != 42 {
		t.Errorf("EOF span = [%d,%d), want [42,42)", r.Start, r.End)
	}
}

func TestTextResolution(t *testing.T) {
	atoms := atom.NewTable()
	src := []byte("let x = 1")

	id := atoms.Intern("let")
	tok := NewText(KindKeyword, span.New(0, 3), id)
	if got := tok.Text(src, atoms); got != "let" {
		t.Errorf("text-bearing token resolved to %q", got)
	}

	// Non-text kinds slice the source directly.
	ws := New(KindWhitespace, span.New(3, 4))
	if got := ws.Text(src, atoms); got != " " {
		t.Errorf("whitespace token resolved to %q", got)
	}
}

func TestAtomOnlyForTextKinds(t *testing.T) {
	tok := Token{Kind: KindPunct, Data: 99}
	if tok.Atom() != atom.None {
		t.Error("non-text kind should not expose an atom id")
	}
	txt := Token{Kind: KindIdent, Data: 7}
	if txt.Atom() != atom.ID(7) {
		t.Errorf("Atom() = %d, want 7", txt.Atom())
	}
}

func TestKindStrings(t *testing.T) {
	if KindEOF.String() != "eof" || KindIdent.String() != "ident" {
		t.Error("kind names wrong")
	}
	if Kind(200).String() != "unknown" {
		t.Error("out-of-range kind should be unknown")
	}
}
