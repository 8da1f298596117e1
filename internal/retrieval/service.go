package retrieval

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/engine"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/guard"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/scope"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("covenantrix.retrieval")

// Result is the outcome of a scoped query.
type Result struct {
	// Content is the answer context, rebuilt from in-scope sources only.
	Content string

	// Sources are the retained chunks, ranked.
	Sources []engine.Source

	// Mode is the retrieval mode that was used.
	Mode engine.Mode

	// UnresolvedDocuments lists requested document ids that could not be
	// mapped to chunks. Consumers should disclose these to the user.
	UnresolvedDocuments []string

	// NoMatchingContent is true when a scoped query produced no in-scope
	// sources: either nothing in the selected documents matched, or every
	// requested document was unresolved. Distinct from an engine-level
	// no-match on an unscoped query.
	NoMatchingContent bool

	// FilterHonored reports whether the engine accepted the candidate
	// filter. Advisory only; isolation never depends on it.
	FilterHonored bool
}

// Service is the document-scoped retrieval entry point.
//
// Stateless per request; safe for concurrent use. The engine call may be
// long-running and is bounded only by the caller's ctx. No retries happen
// here; storage and engine failures propagate and the caller owns retry
// policy.
type Service struct {
	resolver *scope.Resolver
	adapter  *engine.Adapter
	guard    *guard.Guard
	logger   *zap.Logger
}

// NewService creates a Service from its collaborators.
func NewService(resolver *scope.Resolver, adapter *engine.Adapter, g *guard.Guard, logger *zap.Logger) (*Service, error) {
	if resolver == nil {
		return nil, errors.New("retrieval: resolver is required")
	}
	if adapter == nil {
		return nil, errors.New("retrieval: adapter is required")
	}
	if g == nil {
		g = guard.New(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{resolver: resolver, adapter: adapter, guard: g, logger: logger}, nil
}

// QueryScoped answers queryText, restricted to documentIDs.
//
// An empty documentIDs means unscoped: full-knowledge-base relational
// retrieval with no post-filtering. Otherwise the result is guaranteed to
// contain only chunks from the resolved scope, however the engine behaves.
func (s *Service) QueryScoped(ctx context.Context, queryText string, documentIDs []string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Service.QueryScoped")
	defer span.End()
	span.SetAttributes(attribute.Int("documents_requested", len(documentIDs)))

	start := time.Now()
	defer func() { QueryDuration.Observe(time.Since(start).Seconds()) }()

	if queryText == "" {
		return nil, engine.ErrEmptyQuery
	}

	resolved, err := s.resolver.Resolve(ctx, documentIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	UnresolvedDocumentsTotal.Add(float64(len(resolved.UnresolvedDocuments())))

	// Scoped but nothing resolved: answer without touching the engine.
	if resolved.Empty() {
		QueriesTotal.WithLabelValues("short_circuit").Inc()
		span.SetAttributes(attribute.Bool("short_circuit", true))
		s.logger.Info("scoped query short-circuited, no resolvable content",
			zap.Strings("unresolved", resolved.UnresolvedDocuments()),
		)
		return &Result{
			Mode:                engine.ModeIsolated,
			UnresolvedDocuments: resolved.UnresolvedDocuments(),
			NoMatchingContent:   true,
		}, nil
	}

	mode := selectMode(resolved)
	QueriesTotal.WithLabelValues(string(mode)).Inc()
	span.SetAttributes(attribute.String("mode", string(mode)))

	resp, honored, err := s.adapter.Execute(ctx, queryText, mode, resolved.ChunkIDs())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resolved.Scoped() && !honored {
		FilterFallbacksTotal.Inc()
	}

	// Unconditional enforcement: the honored flag is advisory, the guard is
	// the guarantee.
	enforced, dropped := s.guard.Enforce(resp, resolved.ChunkIDSet())
	GuardDroppedSourcesTotal.Add(float64(dropped))
	if dropped > 0 {
		span.SetAttributes(attribute.Int("guard_dropped", dropped))
	}

	result := &Result{
		Content:             enforced.Content,
		Sources:             enforced.Sources,
		Mode:                mode,
		UnresolvedDocuments: resolved.UnresolvedDocuments(),
		FilterHonored:       honored,
	}
	if resolved.Scoped() && len(enforced.Sources) == 0 {
		result.NoMatchingContent = true
	}

	s.logger.Debug("scoped query completed",
		zap.String("mode", string(mode)),
		zap.Int("sources", len(result.Sources)),
		zap.Int("guard_dropped", dropped),
		zap.Bool("filter_honored", honored),
	)
	return result, nil
}
