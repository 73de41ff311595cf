package services

import (
	"context"
	"time"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/graph"
)

// GraphSync runs a full or incremental graph projection sync. mode is
// "full" or "incremental"; anything else defaults to incremental.
func (s *Services) GraphSync(ctx context.Context, mode string) error {
	if s.Projector == nil {
		return cwaerr.New(cwaerr.Unavailable, "graph projection is not configured")
	}
	if mode == "full" {
		return s.Projector.SyncFull(ctx)
	}
	return s.Projector.SyncIncremental(ctx)
}

// GraphImpact runs a bounded impact analysis from one entity.
func (s *Services) GraphImpact(ctx context.Context, kind, id string, depth int) ([]graph.Hop, error) {
	if s.Projector == nil {
		return nil, cwaerr.New(cwaerr.Unavailable, "graph projection is not configured")
	}
	return s.Projector.ImpactAnalysis(ctx, kind, id, depth)
}

// GraphNeighborhood extracts a visualizable subgraph from one entity.
func (s *Services) GraphNeighborhood(ctx context.Context, kind, id string, depth int) (graph.Subgraph, error) {
	if s.Projector == nil {
		return graph.Subgraph{}, cwaerr.New(cwaerr.Unavailable, "graph projection is not configured")
	}
	return s.Projector.Neighborhood(ctx, kind, id, depth)
}

// GraphRawQuery passes a native query straight through the projector.
func (s *Services) GraphRawQuery(ctx context.Context, query string, params map[string]any, timeout time.Duration, rowCap int) ([]map[string]any, error) {
	if s.Projector == nil {
		return nil, cwaerr.New(cwaerr.Unavailable, "graph projection is not configured")
	}
	return s.Projector.RawQuery(ctx, query, params, timeout, rowCap)
}

// GraphHyperedges reports every edge touching an entity, of any label,
// framed as "hyperedges" linking more than two domain concepts through a
// shared decision or spec. Depth 1 from the entity, grouped by edge label.
func (s *Services) GraphHyperedges(ctx context.Context, kind, id string) (map[string][]graph.Hop, error) {
	if s.Projector == nil {
		return nil, cwaerr.New(cwaerr.Unavailable, "graph projection is not configured")
	}
	hops, err := s.Projector.ImpactAnalysis(ctx, kind, id, 1)
	if err != nil {
		return nil, err
	}
	grouped := map[string][]graph.Hop{}
	for _, h := range hops {
		grouped[h.Label] = append(grouped[h.Label], h)
	}
	return grouped, nil
}
