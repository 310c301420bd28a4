package engine

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"fidx/internal/fact"
	"fidx/internal/span"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{Workers: 4, CacheCapacity: 8})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func mustIndex(t *testing.T, e *Engine, path, src string) {
	t.Helper()
	if err := e.IndexFiles(context.Background(), []Input{{Path: path, Source: []byte(src)}}); err != nil {
		t.Fatalf("index %s: %v", path, err)
	}
}

func factSummary(facts []fact.Fact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		s := f.Subject()
		out[i] = fmt.Sprintf("%v@[%d,%d)", f.Predicate(), s.Start, s.End)
	}
	return out
}

func TestIndexSingleFile(t *testing.T) {
	e := newTestEngine(t)
	mustIndex(t, e, "a.txt", "alpha beta\ngamma\n")

	n, err := e.FactCount("a.txt")
	if err != nil {
		t.Fatalf("fact count: %v", err)
	}
	// 3 words + 2 lines
	if n != 5 {
		t.Fatalf("fact count = %d, want 5", n)
	}
	words, err := e.QueryPredicate("a.txt", fact.PredWord, span.New(0, 17))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(words) != 3 {
		t.Fatalf("words = %d, want 3", len(words))
	}
}

func TestIndexManyFilesDeterministic(t *testing.T) {
	var inputs []Input
	for i := 0; i < 20; i++ {
		inputs = append(inputs, Input{
			Path:   fmt.Sprintf("f%02d.txt", i),
			Source: []byte(fmt.Sprintf("file %d content\nsecond line %d\n", i, i)),
		})
	}

	run := func() map[string][]string {
		e := newTestEngine(t)
		if err := e.IndexFiles(context.Background(), inputs); err != nil {
			t.Fatalf("index: %v", err)
		}
		out := make(map[string][]string)
		for _, in := range inputs {
			facts, err := e.Query(in.Path, span.New(0, uint32(len(in.Source))))
			if err != nil {
				t.Fatalf("query %s: %v", in.Path, err)
			}
			out[in.Path] = factSummary(facts)
		}
		return out
	}

	first := run()
	for round := 0; round < 3; round++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("round %d produced different index contents", round)
		}
	}
}

func TestReindexReplacesFacts(t *testing.T) {
	e := newTestEngine(t)
	mustIndex(t, e, "a.txt", "one two three\n")
	mustIndex(t, e, "a.txt", "four\n")

	n, err := e.FactCount("a.txt")
	if err != nil {
		t.Fatalf("fact count: %v", err)
	}
	// 1 word + 1 line
	if n != 2 {
		t.Fatalf("fact count after reindex = %d, want 2", n)
	}
	gen, err := e.Generation("a.txt")
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if gen != 2 {
		t.Fatalf("generation = %d, want 2", gen)
	}
}

func TestCancelledBatchLeavesStoreUntouched(t *testing.T) {
	e := newTestEngine(t)
	mustIndex(t, e, "a.txt", "stable content\n")
	before, err := e.Generation("a.txt")
	if err != nil {
		t.Fatalf("generation: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = e.IndexFiles(ctx, []Input{{Path: "a.txt", Source: []byte("replacement\n")}})
	if CodeOf(err) != Cancelled {
		t.Fatalf("code = %q, want %q (err: %v)", CodeOf(err), Cancelled, err)
	}

	after, err := e.Generation("a.txt")
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if after != before {
		t.Fatalf("generation moved %d -> %d on cancelled batch", before, after)
	}
	src, err := e.Source("a.txt")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if string(src) != "stable content\n" {
		t.Fatalf("source changed on cancelled batch: %q", src)
	}
}

func TestQueryUsesCache(t *testing.T) {
	e := newTestEngine(t)
	mustIndex(t, e, "a.txt", "cached words here\n")

	q := span.New(0, 18)
	first, err := e.Query("a.txt", q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	second, err := e.Query("a.txt", q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !reflect.DeepEqual(factSummary(first), factSummary(second)) {
		t.Fatalf("cached query differs: %v vs %v", first, second)
	}
}

func TestQueryResultSurvivesCacheChurn(t *testing.T) {
	e, err := New(Options{Workers: 1, CacheCapacity: 1})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	mustIndex(t, e, "a.txt", "alpha beta gamma\n")

	q := span.New(0, 5)
	if _, err := e.Query("a.txt", q); err != nil {
		t.Fatalf("query: %v", err)
	}
	// Second query is served from the cache; hold on to its result.
	held, err := e.Query("a.txt", q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := factSummary(held)

	// Churn the single-entry cache so the storage behind the hit is
	// evicted and refilled with different results.
	for i := 0; i < 4; i++ {
		if _, err := e.Query("a.txt", span.New(0, uint32(6+i*4))); err != nil {
			t.Fatalf("query: %v", err)
		}
	}

	if got := factSummary(held); !reflect.DeepEqual(got, want) {
		t.Fatalf("held result changed under cache churn\n got: %v\nwant: %v", got, want)
	}
}

func TestRemoveDocument(t *testing.T) {
	e := newTestEngine(t)
	mustIndex(t, e, "a.txt", "content\n")
	if !e.Remove("a.txt") {
		t.Fatal("remove returned false for existing document")
	}
	if _, err := e.Query("a.txt", span.New(0, 1)); CodeOf(err) != UnknownDocument {
		t.Fatalf("expected UnknownDocument, got %v", err)
	}
	if e.Remove("a.txt") {
		t.Fatal("remove returned true for missing document")
	}
}

func TestEditRejectsStaleOldText(t *testing.T) {
	e := newTestEngine(t)
	mustIndex(t, e, "a.txt", "hello world\n")

	err := e.ApplyEdit(context.Background(), "a.txt", Edit{
		Span:    span.New(0, 5),
		OldText: []byte("jello"),
		NewText: []byte("howdy"),
	})
	if CodeOf(err) != InvalidEdit {
		t.Fatalf("code = %q, want %q", CodeOf(err), InvalidEdit)
	}
}

func editAndCompare(t *testing.T, src string, ed Edit) {
	t.Helper()

	// Apply the edit incrementally to one engine.
	inc := newTestEngine(t)
	mustIndex(t, inc, "a.txt", src)
	if err := inc.ApplyEdit(context.Background(), "a.txt", ed); err != nil {
		t.Fatalf("apply edit: %v", err)
	}

	after, err := inc.Source("a.txt")
	if err != nil {
		t.Fatalf("source: %v", err)
	}

	// Index the post-edit text from scratch in a second engine.
	full := newTestEngine(t)
	mustIndex(t, full, "a.txt", string(after))

	q := span.New(0, uint32(len(after))+1)
	got, err := inc.Query("a.txt", q)
	if err != nil {
		t.Fatalf("query incremental: %v", err)
	}
	want, err := full.Query("a.txt", q)
	if err != nil {
		t.Fatalf("query full: %v", err)
	}
	if !reflect.DeepEqual(factSummary(got), factSummary(want)) {
		t.Fatalf("incremental edit diverged from full reindex\n got: %v\nwant: %v",
			factSummary(got), factSummary(want))
	}
}

func TestIncrementalEditMatchesFullReindex(t *testing.T) {
	src := "alpha beta\ngamma delta\nepsilon zeta\n"
	cases := []struct {
		name string
		ed   Edit
	}{
		{"replace word", Edit{Span: span.New(11, 16), OldText: []byte("gamma"), NewText: []byte("GAMMA2")}},
		{"insert word", Edit{Span: span.New(11, 11), NewText: []byte("pre ")}},
		{"delete word", Edit{Span: span.New(17, 23), OldText: []byte("delta\n"), NewText: nil}},
		{"append line", Edit{Span: span.New(36, 36), NewText: []byte("eta theta\n")}},
		{"edit first line", Edit{Span: span.New(0, 5), OldText: []byte("alpha"), NewText: []byte("a")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			editAndCompare(t, src, tc.ed)
		})
	}
}

func TestEditBumpsGenerationOnce(t *testing.T) {
	e := newTestEngine(t)
	mustIndex(t, e, "a.txt", "one two\nthree four\n")
	before, _ := e.Generation("a.txt")

	err := e.ApplyEdit(context.Background(), "a.txt", Edit{
		Span:    span.New(0, 3),
		OldText: []byte("one"),
		NewText: []byte("ONE"),
	})
	if err != nil {
		t.Fatalf("apply edit: %v", err)
	}
	after, _ := e.Generation("a.txt")
	if after != before+1 {
		t.Fatalf("generation %d -> %d, want single bump", before, after)
	}
}

func TestLargeEditFallsBackToFullReindex(t *testing.T) {
	e, err := New(Options{IncrementalThreshold: 4})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	mustIndex(t, e, "a.txt", "short\n")

	if err := e.ApplyEdit(context.Background(), "a.txt", Edit{
		Span:    span.New(0, 5),
		OldText: []byte("short"),
		NewText: []byte("much longer replacement text"),
	}); err != nil {
		t.Fatalf("apply edit: %v", err)
	}
	src, _ := e.Source("a.txt")
	if string(src) != "much longer replacement text\n" {
		t.Fatalf("source = %q", src)
	}
}
