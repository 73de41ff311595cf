// Package graph maintains a property-graph projection of the primary store:
// nodes for {Project, Spec, Task, BoundedContext, DomainEntity, Term,
// Decision, Memory} and edges for IMPLEMENTS, BELONGS_TO, RELATES_TO,
// DEPENDS_ON, and CONTAINS. It supports full rebuilds and incremental,
// content-hash-gated upserts driven by primary-store events.
package graph

import "context"

// Node is one vertex in the projection.
type Node struct {
	Kind       string            `json:"kind"`
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Edge is a directed, labeled relationship between two nodes.
type Edge struct {
	FromKind string `json:"from_kind"`
	FromID   string `json:"from_id"`
	ToKind   string `json:"to_kind"`
	ToID     string `json:"to_id"`
	Label    string `json:"label"`
}

// Edge labels per spec.
const (
	EdgeImplements = "IMPLEMENTS"
	EdgeBelongsTo  = "BELONGS_TO"
	EdgeRelatesTo  = "RELATES_TO"
	EdgeDependsOn  = "DEPENDS_ON"
	EdgeContains   = "CONTAINS"
)

// Hop is one step of a bounded traversal result.
type Hop struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Label string `json:"edge_label"`
	Depth int    `json:"hop"`
}

// Subgraph is a node+edge set returned from neighborhood exploration.
type Subgraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Store is the graph projector's persistence contract, implemented by Neo4j
// (and satisfiable by any store offering MERGE-style upsert semantics).
type Store interface {
	// UpsertNode replaces a node's properties, creating it if absent.
	UpsertNode(ctx context.Context, n Node) error
	// ReplaceEdges discards a node's current outgoing edge set for label and
	// replaces it with edges. Edge sets are always fully replaced, never merged.
	ReplaceEdges(ctx context.Context, fromKind, fromID, label string, edges []Edge) error
	// DeleteNode removes a node and all of its edges.
	DeleteNode(ctx context.Context, kind, id string) error
	// ClearProject erases every node scoped to project (used before a full rebuild).
	ClearProject(ctx context.Context, project string) error
	// EnsureConstraints creates uniqueness constraints and indexes if missing.
	EnsureConstraints(ctx context.Context) error
	// Traverse performs a bounded BFS from (kind, id) across all edge labels.
	Traverse(ctx context.Context, kind, id string, depth int) ([]Hop, error)
	// Neighborhood extracts the subgraph reachable from (kind, id) within depth.
	Neighborhood(ctx context.Context, kind, id string, depth int) (Subgraph, error)
	// RawQuery executes a native query, bounded by timeout and rowCap.
	RawQuery(ctx context.Context, query string, params map[string]any, rowCap int) ([]map[string]any, error)
	// Close releases underlying resources.
	Close(ctx context.Context) error
}
