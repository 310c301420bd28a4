package fact

// Predicate names the statement a fact makes about its subject span. The
// enum is closed and partitioned into four categories; adapters map their
// grammar onto it rather than extending it.
type Predicate uint16

// Category groups predicates by the layer of analysis that produces them.
type Category uint8

const (
	CategoryLexical Category = iota
	CategoryStructural
	CategorySemantic
	CategoryDiagnostic
)

func (c Category) String() string {
	switch c {
	case CategoryLexical:
		return "lexical"
	case CategoryStructural:
		return "structural"
	case CategorySemantic:
		return "semantic"
	case CategoryDiagnostic:
		return "diagnostic"
	}
	return "unknown"
}

// Category base offsets. The gaps leave room for growth without renumbering;
// predicate codes must stay below the 13-bit record ceiling.
const (
	predLexicalBase    Predicate = 0x001
	predStructuralBase Predicate = 0x040
	predSemanticBase   Predicate = 0x080
	predDiagnosticBase Predicate = 0x0C0
	predLimit          Predicate = 0x100
)

const (
	PredNone Predicate = 0

	// Lexical: statements the lexer alone can make.
	PredLine        = predLexicalBase + iota - 1 // object: number (words on the line)
	PredWord                                     // object: atom (word text)
	PredNumberLit                                // object: atom (literal text)
	PredStringLit                                // object: atom (literal text)
	PredComment                                  // object: atom (comment text)
	PredTokenCount                               // object: number
)

const (
	// Structural: nesting and containment, no name resolution.
	PredContains  = predStructuralBase + iota // object: span (child)
	PredBelongsTo                             // object: fact (parent)
	PredDepth                                 // object: number
	PredBlock                                 // object: none
)

const (
	// Semantic: statements requiring symbol knowledge.
	PredDeclares   = predSemanticBase + iota // object: atom (name)
	PredReferences                           // object: atom (name)
	PredImports                              // object: atom (path)
	PredCalls                                // object: fact (callee declaration)
	PredTypeOf                               // object: atom (type name)
)

const (
	// Diagnostic: problems reported as facts, never thrown. A caller
	// queries "all diagnostics in span S" the same way it queries anything
	// else, and partial results coexist with reported problems.
	PredHasError   = predDiagnosticBase + iota // object: atom (message)
	PredHasWarning                             // object: atom (message)
	PredHasHint                                // object: atom (message)
)

var predNames = map[Predicate]string{
	PredNone:       "none",
	PredLine:       "line",
	PredWord:       "word",
	PredNumberLit:  "number_lit",
	PredStringLit:  "string_lit",
	PredComment:    "comment",
	PredTokenCount: "token_count",
	PredContains:   "contains",
	PredBelongsTo:  "belongs_to",
	PredDepth:      "depth",
	PredBlock:      "block",
	PredDeclares:   "declares",
	PredReferences: "references",
	PredImports:    "imports",
	PredCalls:      "calls",
	PredTypeOf:     "type_of",
	PredHasError:   "has_error",
	PredHasWarning: "has_warning",
	PredHasHint:    "has_hint",
}

func (p Predicate) String() string {
	if name, ok := predNames[p]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether p is a known predicate code.
func (p Predicate) Valid() bool {
	_, ok := predNames[p]
	return ok && p != PredNone
}

// Category returns the analysis layer p belongs to.
func (p Predicate) Category() Category {
	switch {
	case p >= predDiagnosticBase:
		return CategoryDiagnostic
	case p >= predSemanticBase:
		return CategorySemantic
	case p >= predStructuralBase:
		return CategoryStructural
	default:
		return CategoryLexical
	}
}

// Diagnostic reports whether p reports a problem in the source.
func (p Predicate) Diagnostic() bool {
	return p.Category() == CategoryDiagnostic
}
