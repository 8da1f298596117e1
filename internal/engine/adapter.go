package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("covenantrix.engine")

// Params tunes per-mode retrieval breadth.
//
// Isolated mode works over an already-narrow candidate space, so it requests a
// smaller top-k and skips reranking. Purely a performance choice; correctness
// never depends on it.
type Params struct {
	// TopKIsolated is the result budget for isolated queries. Default: 10.
	TopKIsolated int

	// TopKRelational is the result budget for relational queries. Default: 40.
	TopKRelational int

	// RerankRelational enables reranking for relational queries. Isolated
	// queries never rerank.
	RerankRelational bool
}

// ApplyDefaults sets default values for unset fields.
func (p *Params) ApplyDefaults() {
	if p.TopKIsolated == 0 {
		p.TopKIsolated = 10
	}
	if p.TopKRelational == 0 {
		p.TopKRelational = 40
	}
}

// Adapter invokes the engine, negotiating candidate-filter support per call.
//
// When the engine rejects the filter the query is retried once without it and
// the returned honored flag is false. honored=true only means the engine
// accepted the parameter; it is advisory and never proof the filter was
// applied. The isolation guard enforces scope regardless.
type Adapter struct {
	engine Engine
	params Params
	logger *zap.Logger
}

// NewAdapter creates an Adapter over an engine.
func NewAdapter(e Engine, params Params, logger *zap.Logger) (*Adapter, error) {
	if e == nil {
		return nil, errors.New("engine: adapter requires an engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	params.ApplyDefaults()
	return &Adapter{engine: e, params: params, logger: logger}, nil
}

// Execute runs a query in the given mode.
//
// candidateIDs is nil for unscoped queries. Returns the engine response and
// whether the engine accepted the candidate filter.
func (a *Adapter) Execute(ctx context.Context, text string, mode Mode, candidateIDs []string) (*Response, bool, error) {
	ctx, span := tracer.Start(ctx, "Adapter.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("mode", string(mode)),
		attribute.Int("candidates", len(candidateIDs)),
	)

	if text == "" {
		return nil, false, ErrEmptyQuery
	}

	req := Request{
		Text:         text,
		Mode:         mode,
		TopK:         a.params.TopKRelational,
		Rerank:       a.params.RerankRelational,
		CandidateIDs: candidateIDs,
	}
	if mode == ModeIsolated {
		req.TopK = a.params.TopKIsolated
		req.Rerank = false
	}

	resp, err := a.engine.Query(ctx, req)
	if err == nil {
		honored := candidateIDs != nil
		span.SetAttributes(attribute.Bool("filter_honored", honored))
		return resp, honored, nil
	}

	// Cancellation always wins over capability fallback.
	if ctx.Err() != nil {
		span.SetStatus(codes.Error, ctx.Err().Error())
		return nil, false, ctx.Err()
	}

	if candidateIDs != nil && errors.Is(err, ErrFilterUnsupported) {
		a.logger.Warn("engine rejected candidate filter, retrying unfiltered",
			zap.Int("candidates", len(candidateIDs)),
		)
		span.AddEvent("candidate_filter_fallback")

		req.CandidateIDs = nil
		resp, err = a.engine.Query(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, false, fmt.Errorf("unfiltered retry: %w", err)
		}
		span.SetAttributes(attribute.Bool("filter_honored", false))
		return resp, false, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, false, err
}
