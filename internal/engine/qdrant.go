package engine

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Payload keys the ingestion collaborator writes on every point.
const (
	payloadChunkID = "chunk_id"
	payloadDocID   = "doc_id"
	payloadText    = "text"
)

// QdrantConfig holds configuration for the Qdrant gRPC engine.
type QdrantConfig struct {
	// Host is the Qdrant server hostname. Default: "localhost".
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (not the HTTP REST port). Default: 6334.
	Port int `koanf:"port"`

	// Collection is the chunk collection name. Default: "covenantrix_chunks".
	Collection string `koanf:"collection"`

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool `koanf:"use_tls"`
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "covenantrix_chunks"
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("qdrant: invalid port %d", c.Port)
	}
	return nil
}

// QdrantEngine is an Engine backed by a Qdrant server over gRPC.
//
// Candidate-id filtering is expressed as a keyword match on the chunk_id
// payload field. Whether a given server/collection accepts that filter is not
// contractually guaranteed, so rejections are mapped to ErrFilterUnsupported
// and the adapter's fallback takes over.
type QdrantEngine struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	logger     *zap.Logger
}

// NewQdrantEngine creates a QdrantEngine connected to the configured server.
func NewQdrantEngine(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantEngine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("qdrant: embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	return &QdrantEngine{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		logger:     logger,
	}, nil
}

// Close closes the gRPC connection.
func (e *QdrantEngine) Close() error {
	return e.client.Close()
}

// Query executes a similarity query, restricted to CandidateIDs when present.
func (e *QdrantEngine) Query(ctx context.Context, req Request) (*Response, error) {
	if req.Text == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector, err := e.embedder.EmbedQuery(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("qdrant: embedding query: %w", err)
	}

	k := req.TopK
	if k <= 0 {
		k = 10
	}

	var filter *qdrant.Filter
	if req.CandidateIDs != nil {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchKeywords(payloadChunkID, req.CandidateIDs...),
			},
		}
	}

	points, err := e.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: e.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	})
	if err != nil {
		return nil, e.mapQueryError(err, filter != nil)
	}

	sources := make([]Source, 0, len(points))
	for _, point := range points {
		src := Source{Score: point.Score}
		if point.Payload != nil {
			src.ChunkID = payloadString(point.Payload, payloadChunkID)
			src.DocumentID = payloadString(point.Payload, payloadDocID)
			src.Text = payloadString(point.Payload, payloadText)
		}
		if src.ChunkID == "" {
			src.ChunkID = pointIDString(point.Id)
		}
		sources = append(sources, src)
	}

	e.logger.Debug("qdrant query executed",
		zap.String("collection", e.collection),
		zap.Bool("filtered", filter != nil),
		zap.Int("results", len(sources)),
	)

	return &Response{
		Content: RenderContent(sources),
		Sources: sources,
	}, nil
}

// mapQueryError translates gRPC failures into the package's error taxonomy.
//
// A server that rejects the filter shape surfaces InvalidArgument or
// Unimplemented; with a filter in play that means "filter unsupported", not a
// broken engine.
func (e *QdrantEngine) mapQueryError(err error, filtered bool) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("qdrant: querying collection %s: %w", e.collection, err)
	}

	switch st.Code() {
	case grpccodes.InvalidArgument, grpccodes.Unimplemented:
		if filtered {
			return fmt.Errorf("%w: %v", ErrFilterUnsupported, err)
		}
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return fmt.Errorf("qdrant: querying collection %s: %w", e.collection, err)
}

// payloadString extracts a string payload field.
func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
		return s.StringValue
	}
	return ""
}

// pointIDString renders a point id for use as a chunk id fallback.
func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	}
	return ""
}

var _ Engine = (*QdrantEngine)(nil)
