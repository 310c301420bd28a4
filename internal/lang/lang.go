// Package lang defines the language adapter contract: how source text
// becomes tokens and facts. Adapters are registered explicitly in a
// Registry owned by the caller; there is no package-level registration.
package lang

import (
	"context"

	"fidx/internal/atom"
	"fidx/internal/fact"
	"fidx/internal/span"
	"fidx/internal/stream"
	"fidx/internal/token"
)

// Capabilities describes what an adapter can do beyond basic tokenization.
type Capabilities struct {
	// HasSymbols reports whether the adapter emits semantic facts
	// (declarations, references) rather than only lexical ones.
	HasSymbols bool
	// SupportsIncremental reports whether ExtractFacts over a sub-span of a
	// changed file produces facts consistent with a full re-extraction.
	SupportsIncremental bool
}

// Adapter converts source text for one language into tokens and facts.
// Tokenize interns all token text into atoms so that token streams never
// retain the source buffer.
type Adapter interface {
	// Name returns the adapter's registry name, e.g. "plain".
	Name() string
	// Extensions returns the file extensions (with leading dot) the
	// adapter claims.
	Extensions() []string
	// Capabilities reports the adapter's feature set.
	Capabilities() Capabilities
	// Tokenize produces the token stream for src. The stream must tile the
	// input and end with exactly one EOF token at [len(src), len(src)).
	Tokenize(ctx context.Context, src []byte, atoms *atom.Table) *stream.Stream[token.Token]
	// ExtractFacts derives facts for the portion of src covered by region.
	// A region covering the whole input yields the file's complete fact
	// set.
	ExtractFacts(ctx context.Context, src []byte, region span.Span, atoms *atom.Table) ([]fact.Fact, error)
}
