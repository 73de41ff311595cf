package graph

import (
	"context"
	"sync"
)

// fakeStore is an in-memory Store double used to test the projector without
// a live Neo4j instance.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]Node
	edges map[string][]Edge // key: fromKind:fromID:label
}

func newFakeStore() *fakeStore {
	return &fakeStore{nodes: map[string]Node{}, edges: map[string][]Edge{}}
}

func nodeID(kind, id string) string { return kind + ":" + id }

func (f *fakeStore) UpsertNode(_ context.Context, n Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[nodeID(n.Kind, n.ID)] = n
	return nil
}

func (f *fakeStore) ReplaceEdges(_ context.Context, fromKind, fromID, label string, edges []Edge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges[fromKind+":"+fromID+":"+label] = edges
	return nil
}

func (f *fakeStore) DeleteNode(_ context.Context, kind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, nodeID(kind, id))
	return nil
}

func (f *fakeStore) ClearProject(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes = map[string]Node{}
	f.edges = map[string][]Edge{}
	return nil
}

func (f *fakeStore) EnsureConstraints(_ context.Context) error { return nil }

func (f *fakeStore) Traverse(_ context.Context, kind, id string, depth int) ([]Hop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hops []Hop
	for _, edges := range f.edges {
		for _, e := range edges {
			if e.FromKind == kind && e.FromID == id {
				hops = append(hops, Hop{Kind: e.ToKind, ID: e.ToID, Label: e.Label, Depth: 1})
			}
		}
	}
	return hops, nil
}

func (f *fakeStore) Neighborhood(ctx context.Context, kind, id string, depth int) (Subgraph, error) {
	hops, err := f.Traverse(ctx, kind, id, depth)
	if err != nil {
		return Subgraph{}, err
	}
	sg := Subgraph{Nodes: []Node{{Kind: kind, ID: id}}}
	for _, h := range hops {
		sg.Nodes = append(sg.Nodes, Node{Kind: h.Kind, ID: h.ID})
		sg.Edges = append(sg.Edges, Edge{FromKind: kind, FromID: id, ToKind: h.Kind, ToID: h.ID, Label: h.Label})
	}
	return sg, nil
}

func (f *fakeStore) RawQuery(_ context.Context, _ string, _ map[string]any, _ int) ([]map[string]any, error) {
	return nil, nil
}

func (f *fakeStore) Close(_ context.Context) error { return nil }
