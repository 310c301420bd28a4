package lang

import (
	"context"

	"fidx/internal/atom"
	"fidx/internal/fact"
	"fidx/internal/span"
	"fidx/internal/stream"
	"fidx/internal/token"
)

// Plain is the built-in adapter for unstructured text. It tokenizes into
// words, numbers, whitespace, and punctuation and emits lexical facts
// only. It supports incremental extraction because its facts never cross
// a line boundary except the per-line facts themselves, which are
// re-derived for every line touching the region.
type Plain struct{}

// NewPlain creates the plain-text adapter.
func NewPlain() *Plain {
	return &Plain{}
}

func (*Plain) Name() string { return "plain" }

func (*Plain) Extensions() []string { return []string{".txt", ".md", ".text"} }

func (*Plain) Capabilities() Capabilities {
	return Capabilities{HasSymbols: false, SupportsIncremental: true}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' }

// Tokenize scans src into a token stream. Emitted spans tile [0, len(src))
// exactly and the stream ends with a single EOF token.
func (*Plain) Tokenize(ctx context.Context, src []byte, atoms *atom.Table) *stream.Stream[token.Token] {
	pos := uint32(0)
	eofSent := false
	n := uint32(len(src))
	return stream.New(func() (token.Token, bool, error) {
		if err := ctx.Err(); err != nil {
			return token.Token{}, false, stream.NewError(stream.Cancelled, "tokenize cancelled", err)
		}
		if pos >= n {
			if eofSent {
				return token.Token{}, false, nil
			}
			eofSent = true
			return token.EOF(n), true, nil
		}
		start := pos
		b := src[pos]
		switch {
		case b == '\n':
			pos++
			return token.New(token.KindNewline, span.New(start, pos)), true, nil
		case isSpace(b):
			for pos < n && isSpace(src[pos]) {
				pos++
			}
			return token.New(token.KindWhitespace, span.New(start, pos)), true, nil
		case isDigit(b):
			for pos < n && isDigit(src[pos]) {
				pos++
			}
			id := atoms.InternBytes(src[start:pos])
			return token.NewText(token.KindNumber, span.New(start, pos), id), true, nil
		case isWordByte(b):
			for pos < n && (isWordByte(src[pos]) || isDigit(src[pos])) {
				pos++
			}
			id := atoms.InternBytes(src[start:pos])
			return token.NewText(token.KindIdent, span.New(start, pos), id), true, nil
		default:
			pos++
			return token.New(token.KindPunct, span.New(start, pos)), true, nil
		}
	})
}

// ExtractFacts derives lexical facts for the lines of src that touch
// region: one line fact per line, one word fact per word, one number fact
// per numeric literal. The region is widened to whole lines first so a
// partial-line region still yields the facts a full extraction would
// produce for those lines.
func (p *Plain) ExtractFacts(ctx context.Context, src []byte, region span.Span, atoms *atom.Table) ([]fact.Fact, error) {
	lines := lineSpan(src, region)
	if lines.Len() == 0 && len(src) > 0 {
		return nil, nil
	}

	toks := p.Tokenize(ctx, src[lines.Start:lines.End], atoms)
	defer toks.Close()

	var facts []fact.Fact
	lineStart := lines.Start
	wordCount := int64(0)
	flushLine := func(end uint32) {
		facts = append(facts, fact.New(span.New(lineStart, end), fact.PredLine, fact.Number(wordCount), 1))
		wordCount = 0
	}
	for {
		tok, ok, err := toks.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		r := tok.Range()
		abs := span.New(r.Start+lines.Start, r.End+lines.Start)
		switch tok.Kind {
		case token.KindIdent:
			wordCount++
			facts = append(facts, fact.New(abs, fact.PredWord, fact.AtomValue(tok.Atom()), 1))
		case token.KindNumber:
			facts = append(facts, fact.New(abs, fact.PredNumberLit, fact.AtomValue(tok.Atom()), 1))
		case token.KindNewline:
			flushLine(abs.End)
			lineStart = abs.End
		case token.KindEOF:
			if abs.End > lineStart || wordCount > 0 {
				flushLine(abs.End)
			}
		}
	}
	return facts, nil
}

// lineSpan widens region to whole lines of src, clamped to the input.
func lineSpan(src []byte, region span.Span) span.Span {
	n := uint32(len(src))
	start := region.Start
	if start > n {
		start = n
	}
	end := region.End
	if end > n {
		end = n
	}
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	for end < n && src[end] != '\n' {
		end++
	}
	if end < n {
		end++ // include the terminating newline
	}
	return span.New(start, end)
}
