package lang

import (
	"context"
	"fmt"

	"fidx/internal/atom"
)

// VerifyTokens runs an adapter's tokenizer over src and checks the token
// stream contract: spans tile [0, len(src)) with no gaps or overlaps, the
// stream ends with exactly one EOF token at [len, len), and every
// text-bearing token's atom resolves to the exact source bytes it covers.
// Used by adapter tests and by the engine's debug mode.
func VerifyTokens(ctx context.Context, a Adapter, src []byte) error {
	atoms := atom.NewTable()
	toks := a.Tokenize(ctx, src, atoms)
	defer toks.Close()

	var (
		pos     uint32
		n       = uint32(len(src))
		sawEOF  bool
		tokenNo int
	)
	for {
		tok, ok, err := toks.Next()
		if err != nil {
			return fmt.Errorf("token %d: %w", tokenNo, err)
		}
		if !ok {
			break
		}
		if sawEOF {
			return fmt.Errorf("token %d: token after eof", tokenNo)
		}
		r := tok.Range()
		if tok.IsEOF() {
			if r.Start != n || r.End != n {
				return fmt.Errorf("eof span [%d,%d), want [%d,%d)", r.Start, r.End, n, n)
			}
			if pos != n {
				return fmt.Errorf("eof at offset %d, %d bytes untiled", n, n-pos)
			}
			sawEOF = true
			tokenNo++
			continue
		}
		if r.Start != pos {
			return fmt.Errorf("token %d: span starts at %d, want %d", tokenNo, r.Start, pos)
		}
		if r.End <= r.Start {
			return fmt.Errorf("token %d: empty span at %d", tokenNo, r.Start)
		}
		if r.End > n {
			return fmt.Errorf("token %d: span ends at %d past input length %d", tokenNo, r.End, n)
		}
		if tok.Kind.HasText() {
			text, ok := atoms.Text(tok.Atom())
			if !ok {
				return fmt.Errorf("token %d: unresolvable atom %d", tokenNo, tok.Atom())
			}
			if text != string(src[r.Start:r.End]) {
				return fmt.Errorf("token %d: atom text %q does not match source %q",
					tokenNo, text, src[r.Start:r.End])
			}
		}
		pos = r.End
		tokenNo++
	}
	if !sawEOF {
		return fmt.Errorf("stream ended without eof token")
	}
	return nil
}
