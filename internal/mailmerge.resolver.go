package internal

import (
	"strings"

	"go.uber.org/zap"
)

// RowAccessor is the read-only view of a row the engine resolves against.
type RowAccessor interface {
	// Lookup returns the cell value for a column and whether the column exists.
	Lookup(name string) (string, bool)
}

// TraceEvent describes one step of a resolution pass.
type TraceEvent struct {
	Point   TracePoint
	Offset  int      // byte offset of the tag's open marker in the string being scanned
	Depth   int      // nesting depth after the marker was processed
	Level   int      // recursion level; 0 is the caller's template string
	Content string   // raw tag content (tag_close) or pre-resolved content (evaluate)
	Result  string   // evaluate only
	Kind    EvalKind // evaluate only
}

// Tracer receives trace events. It must not retain or mutate anything
// reachable from the resolution pass.
type Tracer func(TraceEvent)

// Resolver expands {{...}} tags in a string against a row.
// A Resolver holds no per-call state and is safe for concurrent use.
type Resolver struct {
	evaluator *Evaluator
	tracer    Tracer
	logger    *zap.Logger
}

// NewResolver creates a resolver. A nil logger is replaced with a no-op logger;
// a nil tracer disables tracing.
func NewResolver(tracer Tracer, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgResolverCreated)
	return &Resolver{
		evaluator: NewEvaluator(),
		tracer:    tracer,
		logger:    logger,
	}
}

// Resolve returns src with every outermost tag replaced by its evaluation.
// It never fails: unknown fields become empty strings, malformed tags echo
// their content, and unbalanced markers are left as literal text.
func (r *Resolver) Resolve(src string, row RowAccessor) string {
	r.logger.Debug(LogMsgResolveStart, zap.Int(LogFieldSource, len(src)))
	out := r.resolve(src, row, 0)
	r.logger.Debug(LogMsgResolveEnd, zap.Int(LogFieldResult, len(out)))
	return out
}

// resolve walks src once. Literal text is copied to the output as soon as the
// walk leaves it; a tag is only written once its outermost close marker is
// seen, after its content has been resolved at level+1 and evaluated.
// Because the walk continues in src after the close marker, a replacement is
// never scanned again.
func (r *Resolver) resolve(src string, row RowAccessor, level int) string {
	if !strings.Contains(src, StrOpenDelim) {
		return src
	}

	var out strings.Builder
	out.Grow(len(src))

	depth := 0
	openedAt := -1
	literalFrom := 0

	for i := 0; i < len(src); {
		if strings.HasPrefix(src[i:], StrOpenDelim) {
			if depth == 0 {
				out.WriteString(src[literalFrom:i])
				openedAt = i
			}
			depth++
			r.trace(TraceEvent{Point: TracePointTagOpen, Offset: i, Depth: depth, Level: level})
			i += delimWidth
			continue
		}

		if strings.HasPrefix(src[i:], StrCloseDelim) {
			if depth == 0 {
				r.logger.Debug(LogMsgDanglingClose, zap.Int(LogFieldOffset, i), zap.Int(LogFieldLevel, level))
				i += delimWidth
				continue
			}

			depth--
			if depth > 0 {
				i += delimWidth
				continue
			}

			content := src[openedAt+delimWidth : i]
			r.trace(TraceEvent{Point: TracePointTagClose, Offset: openedAt, Depth: depth, Level: level, Content: content})

			out.WriteString(r.evaluateTag(content, row, openedAt, level))
			i += delimWidth
			literalFrom = i
			openedAt = -1
			continue
		}

		i++
	}

	if depth > 0 {
		r.logger.Debug(LogMsgUnterminatedTag, zap.Int(LogFieldOffset, openedAt), zap.Int(LogFieldDepth, depth))
		out.WriteString(src[openedAt:])
	} else {
		out.WriteString(src[literalFrom:])
	}

	return out.String()
}

// evaluateTag pre-resolves nested tags inside content, then evaluates it.
func (r *Resolver) evaluateTag(content string, row RowAccessor, offset, level int) string {
	inner := r.resolve(content, row, level+1)
	result, kind := r.evaluator.Evaluate(inner, row)

	r.logger.Debug(LogMsgTagEvaluated,
		zap.String(LogFieldTag, inner),
		zap.String(LogFieldKind, string(kind)),
		zap.Int(LogFieldLevel, level))
	r.trace(TraceEvent{
		Point:   TracePointEvaluate,
		Offset:  offset,
		Level:   level,
		Content: inner,
		Result:  result,
		Kind:    kind,
	})

	return result
}

func (r *Resolver) trace(ev TraceEvent) {
	if r.tracer != nil {
		r.tracer(ev)
	}
}
