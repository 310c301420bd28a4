package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"

	"fidx/internal/atom"
	"fidx/internal/fact"
	"fidx/internal/span"
	"fidx/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func buildStore(t *testing.T, atoms *atom.Table) *store.Store {
	t.Helper()
	st := store.New()
	idx := store.NewIndex(st)

	d := store.NewDelta()
	d.Add(fact.New(span.New(0, 5), fact.PredWord, fact.AtomValue(atoms.Intern("alpha")), 1))
	d.Add(fact.New(span.New(6, 10), fact.PredWord, fact.AtomValue(atoms.Intern("beta")), 1))
	d.Add(fact.New(span.New(0, 11), fact.PredLine, fact.Number(2), 1))
	if err := d.Apply(st, idx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	return st
}

func liveSummaries(st *store.Store) []fact.Fact {
	var out []fact.Fact
	st.EachLive(func(_ fact.ID, f fact.Fact) bool {
		out = append(out, f)
		return true
	})
	return out
}

func TestDocumentRoundTrip(t *testing.T) {
	db := openTestDB(t)
	atoms := atom.NewTable()
	st := buildStore(t, atoms)
	source := []byte("alpha beta\n")

	if err := db.SaveDocument("a.txt", source, st); err != nil {
		t.Fatalf("save: %v", err)
	}
	gotSource, restored, err := db.LoadDocument("a.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if string(gotSource) != string(source) {
		t.Fatalf("source = %q, want %q", gotSource, source)
	}
	if restored.Generation() != st.Generation() {
		t.Fatalf("generation = %d, want %d", restored.Generation(), st.Generation())
	}
	if !reflect.DeepEqual(liveSummaries(restored), liveSummaries(st)) {
		t.Fatal("restored facts differ from saved facts")
	}

	// A restored store must accept new deltas where the old one left off.
	idx := store.NewIndex(restored)
	idx.Rebuild()
	d := store.NewDelta()
	d.Add(fact.New(span.New(11, 16), fact.PredWord, fact.AtomValue(atoms.Intern("gamma")), 1))
	if err := d.Apply(restored, idx); err != nil {
		t.Fatalf("apply to restored store: %v", err)
	}
	if restored.Generation() != st.Generation()+1 {
		t.Fatalf("generation after delta = %d", restored.Generation())
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	db := openTestDB(t)
	atoms := atom.NewTable()
	st := buildStore(t, atoms)

	if err := db.SaveDocument("a.txt", []byte("v1"), st); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	if err := db.SaveDocument("a.txt", []byte("v2"), st); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	source, _, err := db.LoadDocument("a.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(source) != "v2" {
		t.Fatalf("source = %q, want v2", source)
	}
	paths, err := db.Paths()
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want one entry", paths)
	}
}

func TestFactRefsRemappedOnLoad(t *testing.T) {
	db := openTestDB(t)
	st := store.New()
	idx := store.NewIndex(st)

	// First delta adds two facts; the second removes the first of them and
	// adds a fact referencing the survivor, leaving a hole in the id space.
	d1 := store.NewDelta()
	d1.Add(fact.New(span.New(0, 3), fact.PredWord, fact.None(), 1))
	d1.Add(fact.New(span.New(4, 7), fact.PredWord, fact.None(), 1))
	if err := d1.Apply(st, idx); err != nil {
		t.Fatalf("apply d1: %v", err)
	}
	d2 := store.NewDelta()
	d2.Remove(0)
	d2.Add(fact.New(span.New(4, 7), fact.PredTypeOf, fact.FactRef(1), 1))
	if err := d2.Apply(st, idx); err != nil {
		t.Fatalf("apply d2: %v", err)
	}

	if err := db.SaveDocument("a.txt", []byte("x"), st); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, restored, err := db.LoadDocument("a.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Saved live ids were {1, 2}; after load they are {0, 1}, so the
	// reference to old id 1 must now point at new id 0.
	var refs []fact.ID
	restored.EachLive(func(_ fact.ID, f fact.Fact) bool {
		if ref, ok := f.Object().Fact(); ok {
			refs = append(refs, ref)
		}
		return true
	})
	if len(refs) != 1 || refs[0] != 0 {
		t.Fatalf("remapped refs = %v, want [0]", refs)
	}
	target, ok := restored.Get(0)
	if !ok {
		t.Fatal("referenced fact missing after load")
	}
	if target.Subject() != span.New(0+4, 7) {
		t.Fatalf("referenced fact subject = %v", target.Subject())
	}
}

func TestLoadMissingDocument(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.LoadDocument("nope.txt"); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}

func TestDeleteDocument(t *testing.T) {
	db := openTestDB(t)
	atoms := atom.NewTable()
	if err := db.SaveDocument("a.txt", []byte("x"), buildStore(t, atoms)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.DeleteDocument("a.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := db.LoadDocument("a.txt"); err == nil {
		t.Fatal("document still loadable after delete")
	}
}

func TestAtomsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	atoms := atom.NewTable()
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	ids := make([]atom.ID, len(words))
	for i, w := range words {
		ids[i] = atoms.Intern(w)
	}

	if err := db.SaveAtoms(atoms); err != nil {
		t.Fatalf("save atoms: %v", err)
	}
	restored, err := db.LoadAtoms()
	if err != nil {
		t.Fatalf("load atoms: %v", err)
	}

	if restored.Len() != atoms.Len() {
		t.Fatalf("len = %d, want %d", restored.Len(), atoms.Len())
	}
	for i, w := range words {
		if text, ok := restored.Text(ids[i]); !ok || text != w {
			t.Fatalf("atom %d = %q (%v), want %q", ids[i], text, ok, w)
		}
		if id, ok := restored.Lookup(w); !ok || id != ids[i] {
			t.Fatalf("lookup %q = %d (%v), want %d", w, id, ok, ids[i])
		}
	}
	// Interning after restore continues the id sequence.
	next := restored.Intern("zeta")
	if next != atom.ID(atoms.Len()) {
		t.Fatalf("next id = %d, want %d", next, atoms.Len())
	}
}

func TestLoadAtomsFromEmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	atoms, err := db.LoadAtoms()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if atoms.Len() != 1 {
		t.Fatalf("fresh table len = %d, want 1", atoms.Len())
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db1, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	db2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	db2.Close()
}
