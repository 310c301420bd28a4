package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fidx/internal/arena"
	"fidx/internal/fact"
	"fidx/internal/lang"
	"fidx/internal/span"
	"fidx/internal/stream"
)

// Input is one file to index.
type Input struct {
	Path   string
	Source []byte
}

// extraction is the result of one worker job, held until the serial apply
// phase.
type extraction struct {
	facts []fact.Fact
}

// IndexFiles extracts all inputs concurrently, then applies the resulting
// deltas serially in input order. On error or cancellation no delta is
// applied and every document is left exactly as it was.
func (e *Engine) IndexFiles(ctx context.Context, inputs []Input) error {
	if len(inputs) == 0 {
		return nil
	}
	batchID := uuid.NewString()
	e.logger.Debug("index batch start", "batch", batchID, "files", len(inputs))

	results := make([]extraction, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, in := range inputs {
		g.Go(func() error {
			start := time.Now()
			adapter, err := e.adapterFor(in.Path)
			if err != nil {
				return err
			}

			// Each job works on a private arena copy of the source so a
			// caller mutating its buffer mid-batch cannot corrupt
			// extraction; everything is released when the job ends.
			ar := arena.New()
			defer ar.Reset()
			src := ar.Copy(in.Source)

			facts, err := e.extract(gctx, adapter, src, span.New(0, uint32(len(src))))
			if err != nil {
				return err
			}
			results[i] = extraction{facts: facts}
			e.metrics.ExtractionDone(time.Since(start))
			e.logger.Debug("extracted", "batch", batchID, "path", in.Path, "facts", len(facts))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if gctx.Err() != nil || CodeOf(err) == Cancelled {
			e.metrics.JobCancelled()
			return NewError(Cancelled, "index batch cancelled", err)
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		e.metrics.JobCancelled()
		return NewError(Cancelled, "index batch cancelled", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, in := range inputs {
		doc, err := e.getOrCreate(in.Path)
		if err != nil {
			return err
		}
		if err := e.applyFull(doc, in.Source, results[i].facts); err != nil {
			return err
		}
	}
	e.logger.Debug("index batch applied", "batch", batchID)
	return nil
}

func (e *Engine) adapterFor(path string) (lang.Adapter, error) {
	if a, ok := e.registry.ForPath(path); ok {
		return a, nil
	}
	if a, ok := e.registry.ByName("plain"); ok {
		return a, nil
	}
	return nil, Errorf(NoAdapter, "no adapter for %q", path)
}

// extract runs an adapter over a region. Content-level problems (corrupt
// input, lexer window overflow) are demoted to a diagnostic fact covering
// the region, so bad source degrades the index instead of failing the
// batch; everything else is a real error.
func (e *Engine) extract(ctx context.Context, adapter lang.Adapter, src []byte, region span.Span) ([]fact.Fact, error) {
	facts, err := adapter.ExtractFacts(ctx, src, region, e.atoms)
	if err == nil {
		return facts, nil
	}
	switch stream.CodeOf(err) {
	case stream.Cancelled:
		return nil, NewError(Cancelled, "extraction cancelled", err)
	case stream.Corrupt, stream.CapacityExceeded:
		e.logger.Warn("degraded extraction", "error", err)
		return []fact.Fact{fact.New(region, fact.PredHasError, fact.None(), 1)}, nil
	}
	return nil, NewError(ExtractFailed, "extraction failed", err)
}
