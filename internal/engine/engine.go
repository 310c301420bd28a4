// Package engine orchestrates extraction and indexing: a worker pool runs
// per-file extraction jobs concurrently, and a single applier thread
// commits the resulting deltas in input order so index contents are
// deterministic regardless of scheduling.
package engine

import (
	"log/slog"
	"runtime"
	"sync"

	"fidx/internal/atom"
	"fidx/internal/cache"
	"fidx/internal/fact"
	"fidx/internal/lang"
	"fidx/internal/slogutil"
	"fidx/internal/span"
	"fidx/internal/store"
	"fidx/internal/telemetry"
)

// Options configures a new Engine. Zero values pick sensible defaults.
type Options struct {
	// Workers bounds concurrent extraction jobs; defaults to GOMAXPROCS.
	Workers int
	// CacheCapacity is the per-document query cache size in entries;
	// 0 disables caching.
	CacheCapacity int
	// IncrementalThreshold is the edit size in bytes above which an edit
	// triggers full re-extraction instead of region re-extraction.
	IncrementalThreshold int
	// Registry resolves adapters; when nil a registry with the plain
	// adapter is created.
	Registry *lang.Registry
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

const defaultIncrementalThreshold = 4096

// Engine owns the indexed documents. All mutations flow through a single
// mutex, so at most one delta is ever being applied; extraction itself
// runs outside the lock.
type Engine struct {
	registry  *lang.Registry
	atoms     *atom.Table
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	workers   int
	cacheCap  int
	threshold int

	mu   sync.Mutex
	docs map[string]*document
}

// document is the indexed state of one file.
type document struct {
	path    string
	adapter lang.Adapter
	store   *store.Store
	index   *store.Index
	cache   *cache.Cache
	source  []byte
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.IncrementalThreshold <= 0 {
		opts.IncrementalThreshold = defaultIncrementalThreshold
	}
	if opts.Registry == nil {
		opts.Registry = lang.NewRegistry()
		if err := opts.Registry.Register(lang.NewPlain()); err != nil {
			return nil, err
		}
	}
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	return &Engine{
		registry:  opts.Registry,
		atoms:     atom.NewTable(),
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		workers:   opts.Workers,
		cacheCap:  opts.CacheCapacity,
		threshold: opts.IncrementalThreshold,
		docs:      make(map[string]*document),
	}, nil
}

// Atoms returns the engine's shared atom table.
func (e *Engine) Atoms() *atom.Table {
	return e.atoms
}

// Paths returns the indexed document paths.
func (e *Engine) Paths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	paths := make([]string, 0, len(e.docs))
	for p := range e.docs {
		paths = append(paths, p)
	}
	return paths
}

// Remove drops a document from the engine.
func (e *Engine) Remove(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.docs[path]; !ok {
		return false
	}
	delete(e.docs, path)
	return true
}

// Source returns a copy of a document's current source text.
func (e *Engine) Source(path string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[path]
	if !ok {
		return nil, Errorf(UnknownDocument, "no document %q", path)
	}
	return append([]byte(nil), doc.source...), nil
}

// Generation returns a document's store generation.
func (e *Engine) Generation(path string) (fact.Generation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[path]
	if !ok {
		return 0, Errorf(UnknownDocument, "no document %q", path)
	}
	return doc.store.Generation(), nil
}

// FactCount returns the number of live facts for a document.
func (e *Engine) FactCount(path string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[path]
	if !ok {
		return 0, Errorf(UnknownDocument, "no document %q", path)
	}
	return doc.store.LiveCount(), nil
}

// Query returns the live facts overlapping q in a document, in (start, id)
// order. Results for a given span are served from the document's cache
// when fresh.
func (e *Engine) Query(path string, q span.Span) ([]fact.Fact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[path]
	if !ok {
		return nil, Errorf(UnknownDocument, "no document %q", path)
	}
	if doc.cache != nil {
		if facts, ok := doc.cache.Get(q); ok {
			// Cache hits hand back slot storage; copy so callers keep a
			// slice the cache will not recycle under them.
			return append([]fact.Fact(nil), facts...), nil
		}
	}
	facts := doc.index.FindInSpan(q).Collect()
	if doc.cache != nil {
		doc.cache.Put(q, doc.store.Generation(), facts)
	}
	return facts, nil
}

// QueryPredicate returns the live facts with predicate pred overlapping q.
// Predicate queries bypass the span-keyed cache.
func (e *Engine) QueryPredicate(path string, pred fact.Predicate, q span.Span) ([]fact.Fact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[path]
	if !ok {
		return nil, Errorf(UnknownDocument, "no document %q", path)
	}
	return doc.index.Find(pred, q).Collect(), nil
}

// WithStore runs fn with a document's store and index under the engine
// lock. Used by the snapshot layer; fn must not retain either.
func (e *Engine) WithStore(path string, fn func(*store.Store, *store.Index) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[path]
	if !ok {
		return Errorf(UnknownDocument, "no document %q", path)
	}
	return fn(doc.store, doc.index)
}

// getOrCreate resolves or creates the document for path. Caller holds e.mu.
func (e *Engine) getOrCreate(path string) (*document, error) {
	if doc, ok := e.docs[path]; ok {
		return doc, nil
	}
	adapter, ok := e.registry.ForPath(path)
	if !ok {
		adapter, ok = e.registry.ByName("plain")
		if !ok {
			return nil, Errorf(NoAdapter, "no adapter for %q", path)
		}
	}
	st := store.New()
	doc := &document{
		path:    path,
		adapter: adapter,
		store:   st,
		index:   store.NewIndex(st),
	}
	if e.cacheCap > 0 {
		c, err := cache.New(e.cacheCap, st, e.metrics)
		if err != nil {
			return nil, err
		}
		doc.cache = c
	}
	e.docs[path] = doc
	return doc, nil
}

// applyFull replaces a document's fact set in one delta. Caller holds e.mu.
func (e *Engine) applyFull(doc *document, source []byte, facts []fact.Fact) error {
	delta := store.NewDelta()
	doc.store.EachLive(func(id fact.ID, _ fact.Fact) bool {
		delta.Remove(id)
		return true
	})
	for _, f := range facts {
		delta.Add(f)
	}
	if !delta.Empty() {
		if err := delta.Apply(doc.store, doc.index); err != nil {
			return err
		}
		e.metrics.FactsAppended(len(facts))
		e.metrics.DeltaApplied(uint32(doc.store.Generation()))
	}
	doc.source = append([]byte(nil), source...)
	if doc.cache != nil {
		doc.cache.Purge()
	}
	return nil
}
