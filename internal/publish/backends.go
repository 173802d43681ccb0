package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/varnet/internal/config"
	graphneo4j "github.com/efebarandurmaz/varnet/internal/graph/neo4j"
	"github.com/efebarandurmaz/varnet/internal/observability"
	"github.com/efebarandurmaz/varnet/internal/secrets"
	"github.com/efebarandurmaz/varnet/internal/vector"
	vectorqdrant "github.com/efebarandurmaz/varnet/internal/vector/qdrant"
)

// Backends holds the sink connections opened from configuration. A nil field
// means the backend is not configured.
type Backends struct {
	Graph  *graphneo4j.Neo4jRepository
	Colors *vectorqdrant.QdrantRepository
}

// OpenBackends connects to every backend named in cfg. Neo4j is enabled by
// graph.uri and Qdrant by vector.host. An empty graph.password is looked up
// in the configured secret store.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}

	if cfg.Graph.URI != "" {
		store, err := secrets.NewManager(&cfg.Secrets)
		if err != nil {
			return nil, err
		}
		password, err := store.Resolve(ctx, secrets.SecretGraphPassword, cfg.Graph.Password)
		if err != nil {
			return nil, fmt.Errorf("resolve graph password: %w", err)
		}
		repo, err := graphneo4j.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, password, cfg.Graph.Database)
		if err != nil {
			return nil, err
		}
		b.Graph = repo
		slog.Info("Graph backend connected", "uri", cfg.Graph.URI)
	}

	if cfg.Vector.Host != "" {
		repo, err := vectorqdrant.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
		if err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		if err := repo.EnsureCollection(ctx); err != nil {
			_ = repo.Close()
			_ = b.Close(ctx)
			return nil, err
		}
		b.Colors = repo
		slog.Info("Vector backend connected", "host", cfg.Vector.Host, "collection", cfg.Vector.Collection)
	}

	return b, nil
}

// Sinks returns a sink per connected backend.
func (b *Backends) Sinks() []Sink {
	var sinks []Sink
	if b.Graph != nil {
		sinks = append(sinks, NewGraphSink(b.Graph))
	}
	if b.Colors != nil {
		sinks = append(sinks, NewColorSink(vector.NewIndexer(b.Colors)))
	}
	return sinks
}

// Publisher returns a publisher over every connected backend, or nil when
// none is configured.
func (b *Backends) Publisher(metrics *observability.Metrics) *Publisher {
	sinks := b.Sinks()
	if len(sinks) == 0 {
		return nil
	}
	return NewPublisher(metrics, sinks...)
}

// Close releases every open connection.
func (b *Backends) Close(ctx context.Context) error {
	var errs []error
	if b.Graph != nil {
		if err := b.Graph.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close graph: %w", err))
		}
	}
	if b.Colors != nil {
		if err := b.Colors.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close vector: %w", err))
		}
	}
	return errors.Join(errs...)
}
