// Package pipeline composes bidirectional transforms into a single
// reusable, introspectable unit. Stage types are erased internally for
// storage, but every boundary between stages is checked when the stage is
// added — a caller can never observe an unchecked type boundary, and there
// are no raw pointer casts anywhere in the composition.
package pipeline

import (
	"context"
	"reflect"
)

// PerformanceClass is coarse metadata describing a transform's cost.
type PerformanceClass uint8

const (
	PerfConstant PerformanceClass = iota
	PerfLinear
	PerfSuperlinear
)

func (p PerformanceClass) String() string {
	switch p {
	case PerfConstant:
		return "constant"
	case PerfLinear:
		return "linear"
	case PerfSuperlinear:
		return "superlinear"
	}
	return "unknown"
}

// Meta describes a transform for introspection and planning.
type Meta struct {
	Name             string
	Reversible       bool
	StreamingCapable bool
	EstimatedMemory  int64 // bytes per unit of input, 0 if unknown
	Performance      PerformanceClass
}

// Transform bundles a forward function, an optional reverse function, and
// metadata. A Transform with a nil Reverse is forward-only; its Meta
// Reversible flag is forced false by NewTransform.
type Transform[In, Out any] struct {
	Forward func(context.Context, In) (Out, error)
	Reverse func(context.Context, Out) (In, error)
	Meta    Meta
}

// NewTransform builds a forward-only transform.
func NewTransform[In, Out any](name string, forward func(context.Context, In) (Out, error)) Transform[In, Out] {
	return Transform[In, Out]{
		Forward: forward,
		Meta:    Meta{Name: name},
	}
}

// NewReversible builds a transform with both directions.
func NewReversible[In, Out any](
	name string,
	forward func(context.Context, In) (Out, error),
	reverse func(context.Context, Out) (In, error),
) Transform[In, Out] {
	return Transform[In, Out]{
		Forward: forward,
		Reverse: reverse,
		Meta:    Meta{Name: name, Reversible: true},
	}
}

// stage is a type-erased transform plus the reflected boundary types used
// to check composition.
type stage struct {
	forward func(context.Context, any) (any, error)
	reverse func(context.Context, any) (any, error)
	in      reflect.Type
	out     reflect.Type
	meta    Meta
}

// Pipeline is a type-checked sequence of stages behind a uniform boundary.
// The pipeline's declared input and output types are fixed by the stages
// added so far; Add rejects a stage whose input does not match the current
// output type.
type Pipeline struct {
	stages     []stage
	reversible bool
}

// New creates an empty pipeline. An empty pipeline is the identity and is
// trivially reversible.
func New() *Pipeline {
	return &Pipeline{reversible: true}
}

// typeOf resolves the reflected type of T, including interface types.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Add appends t to the pipeline, checking the boundary against the
// current output type. Reversible is recomputed: the pipeline is
// reversible iff every stage is.
func Add[In, Out any](p *Pipeline, t Transform[In, Out]) error {
	inType := typeOf[In]()
	if cur := p.OutputType(); cur != nil && cur != inType {
		return Errorf(TypeMismatch, "stage %q wants input %v but pipeline produces %v",
			t.Meta.Name, inType, cur)
	}
	meta := t.Meta
	if t.Reverse == nil {
		meta.Reversible = false
	}
	st := stage{
		in:   inType,
		out:  typeOf[Out](),
		meta: meta,
		forward: func(ctx context.Context, v any) (any, error) {
			return t.Forward(ctx, v.(In))
		},
	}
	if t.Reverse != nil {
		st.reverse = func(ctx context.Context, v any) (any, error) {
			return t.Reverse(ctx, v.(Out))
		}
	}
	p.stages = append(p.stages, st)
	p.reversible = p.reversible && meta.Reversible
	return nil
}

// InputType returns the pipeline's declared input type, nil when empty.
func (p *Pipeline) InputType() reflect.Type {
	if len(p.stages) == 0 {
		return nil
	}
	return p.stages[0].in
}

// OutputType returns the pipeline's declared output type, nil when empty.
func (p *Pipeline) OutputType() reflect.Type {
	if len(p.stages) == 0 {
		return nil
	}
	return p.stages[len(p.stages)-1].out
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Reversible reports whether every stage can run backwards.
func (p *Pipeline) Reversible() bool {
	return p.reversible
}

// Stages returns the metadata of each stage in order, for introspection.
func (p *Pipeline) Stages() []Meta {
	out := make([]Meta, len(p.stages))
	for i, st := range p.stages {
		out[i] = st.meta
	}
	return out
}

// EstimatedMemory sums the per-stage memory estimates.
func (p *Pipeline) EstimatedMemory() int64 {
	var total int64
	for _, st := range p.stages {
		total += st.meta.EstimatedMemory
	}
	return total
}

// Forward runs every stage in order. Cancellation is checked once per
// stage boundary; the first stage error short-circuits the run and is
// wrapped with the failing stage's name.
func (p *Pipeline) Forward(ctx context.Context, input any) (any, error) {
	if err := p.checkInput(input, p.InputType()); err != nil {
		return nil, err
	}
	v := input
	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, NewError(Cancelled, "pipeline cancelled", err)
		}
		next, err := st.forward(ctx, v)
		if err != nil {
			return nil, NewError(StageFailed, "stage "+st.meta.Name+" failed", err)
		}
		v = next
	}
	return v, nil
}

// ReverseRun runs every stage backwards in reverse order. All stages must
// be reversible.
func (p *Pipeline) ReverseRun(ctx context.Context, output any) (any, error) {
	if !p.reversible {
		for _, st := range p.stages {
			if !st.meta.Reversible {
				return nil, Errorf(StageNotReversible, "stage %q is not reversible", st.meta.Name)
			}
		}
		return nil, Errorf(NotReversible, "pipeline is not reversible")
	}
	if err := p.checkInput(output, p.OutputType()); err != nil {
		return nil, err
	}
	v := output
	for i := len(p.stages) - 1; i >= 0; i-- {
		st := p.stages[i]
		if err := ctx.Err(); err != nil {
			return nil, NewError(Cancelled, "pipeline cancelled", err)
		}
		prev, err := st.reverse(ctx, v)
		if err != nil {
			return nil, NewError(StageFailed, "stage "+st.meta.Name+" failed in reverse", err)
		}
		v = prev
	}
	return v, nil
}

// checkInput guards the pipeline's outer boundary: the only place a
// caller-supplied value enters the erased interior.
func (p *Pipeline) checkInput(v any, want reflect.Type) error {
	if want == nil {
		return nil // empty pipeline, identity
	}
	got := reflect.TypeOf(v)
	if want.Kind() == reflect.Interface {
		if got == nil || !got.Implements(want) {
			return Errorf(TypeMismatch, "value of type %v does not implement %v", got, want)
		}
		return nil
	}
	if got != want {
		return Errorf(TypeMismatch, "value of type %v does not match boundary type %v", got, want)
	}
	return nil
}
