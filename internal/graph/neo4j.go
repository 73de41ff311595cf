package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j implements Store against a real Neo4j cluster. Each write runs in
// its own managed transaction, matching the per-entity atomicity the
// projector's failure semantics rely on when a full rebuild cannot be
// staged transactionally.
type Neo4j struct {
	driver  neo4j.DriverWithContext
	project string
}

// NewNeo4j connects to uri and verifies connectivity before returning.
func NewNeo4j(ctx context.Context, uri, username, password, project string, maxPoolSize int) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), func(c *neo4j.Config) {
		if maxPoolSize > 0 {
			c.MaxConnectionPoolSize = maxPoolSize
		}
	})
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}
	return &Neo4j{driver: driver, project: project}, nil
}

func (n *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
}

// EnsureConstraints creates one uniqueness constraint per node kind on
// (project, id), idempotently.
func (n *Neo4j) EnsureConstraints(ctx context.Context) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, kind := range []string{"Project", "Spec", "Task", "BoundedContext", "DomainEntity", "Term", "Decision", "Memory"} {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE (n.project, n.id) IS UNIQUE", kind)
		if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, query, nil)
		}); err != nil {
			return fmt.Errorf("ensuring constraint for %s: %w", kind, err)
		}
	}
	return nil
}

// ClearProject deletes every node (and their relationships) scoped to
// project, as the first step of a full rebuild.
func (n *Neo4j) ClearProject(ctx context.Context, project string) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `MATCH (n {project: $project}) DETACH DELETE n`, map[string]any{"project": project})
	})
	return err
}

// UpsertNode MERGEs a node keyed on (project, kind, id) and sets its properties.
func (n *Neo4j) UpsertNode(ctx context.Context, node Node) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MERGE (x:%s {project: $project, id: $id})
		SET x += $props
	`, node.Kind)
	props := map[string]any{}
	for k, v := range node.Properties {
		props[k] = v
	}
	params := map[string]any{
		"project": n.project,
		"id":      node.ID,
		"props":   props,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})
	return err
}

// ReplaceEdges deletes every outgoing edge of this label from (fromKind,
// fromID) and recreates exactly the ones in edges, so a node's edge set for
// a label is always fully replaced, never merged.
func (n *Neo4j) ReplaceEdges(ctx context.Context, fromKind, fromID, label string, edges []Edge) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		delQuery := fmt.Sprintf(`
			MATCH (a:%s {project: $project, id: $id})-[r:%s]->()
			DELETE r
		`, fromKind, label)
		if _, err := tx.Run(ctx, delQuery, map[string]any{"project": n.project, "id": fromID}); err != nil {
			return nil, err
		}

		for _, e := range edges {
			addQuery := fmt.Sprintf(`
				MERGE (a:%s {project: $project, id: $fromId})
				MERGE (b:%s {project: $project, id: $toId})
				MERGE (a)-[:%s]->(b)
			`, e.FromKind, e.ToKind, label)
			params := map[string]any{
				"project": n.project,
				"fromId":  e.FromID,
				"toId":    e.ToID,
			}
			if _, err := tx.Run(ctx, addQuery, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// DeleteNode removes a node and all of its relationships.
func (n *Neo4j) DeleteNode(ctx context.Context, kind, id string) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`MATCH (x:%s {project: $project, id: $id}) DETACH DELETE x`, kind)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, map[string]any{"project": n.project, "id": id})
	})
	return err
}

// Traverse runs a bounded-depth BFS from (kind, id) over every relationship
// type, returning hops ordered by depth then id.
func (n *Neo4j) Traverse(ctx context.Context, kind, id string, depth int) ([]Hop, error) {
	if depth <= 0 {
		depth = 2
	}
	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (start:%s {project: $project, id: $id})
		MATCH p = (start)-[*1..%d]-(other)
		WHERE other <> start
		WITH other, relationships(p) AS rels, length(p) AS hop
		RETURN DISTINCT labels(other)[0] AS kind, other.id AS id, last(rels) AS rel, hop
		ORDER BY hop ASC, id ASC
	`, kind, depth)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"project": n.project, "id": id})
		if err != nil {
			return nil, err
		}
		var hops []Hop
		for res.Next(ctx) {
			rec := res.Record()
			otherKind, _ := rec.Get("kind")
			otherID, _ := rec.Get("id")
			hopVal, _ := rec.Get("hop")
			label := ""
			if rel, ok := rec.Get("rel"); ok && rel != nil {
				if r, ok := rel.(neo4j.Relationship); ok {
					label = r.Type
				}
			}
			hops = append(hops, Hop{
				Kind:  fmt.Sprintf("%v", otherKind),
				ID:    fmt.Sprintf("%v", otherID),
				Label: label,
				Depth: int(hopVal.(int64)),
			})
		}
		return hops, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]Hop), nil
}

// Neighborhood extracts the full subgraph (nodes and edges) reachable from
// (kind, id) within depth, for visualization.
func (n *Neo4j) Neighborhood(ctx context.Context, kind, id string, depth int) (Subgraph, error) {
	if depth <= 0 {
		depth = 2
	}
	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (start:%s {project: $project, id: $id})
		MATCH p = (start)-[*0..%d]-(other)
		UNWIND nodes(p) AS nd
		UNWIND relationships(p) AS rl
		RETURN DISTINCT labels(nd)[0] AS ndKind, nd.id AS ndId,
		       labels(startNode(rl))[0] AS fromKind, startNode(rl).id AS fromId,
		       labels(endNode(rl))[0] AS toKind, endNode(rl).id AS toId, type(rl) AS label
	`, kind, depth)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"project": n.project, "id": id})
		if err != nil {
			return nil, err
		}
		sg := Subgraph{}
		seenNodes := map[string]bool{}
		seenEdges := map[string]bool{}
		for res.Next(ctx) {
			rec := res.Record()
			ndKind, _ := rec.Get("ndKind")
			ndID, _ := rec.Get("ndId")
			nodeKey := fmt.Sprintf("%v:%v", ndKind, ndID)
			if !seenNodes[nodeKey] {
				seenNodes[nodeKey] = true
				sg.Nodes = append(sg.Nodes, Node{Kind: fmt.Sprintf("%v", ndKind), ID: fmt.Sprintf("%v", ndID)})
			}

			fromKind, _ := rec.Get("fromKind")
			fromID, _ := rec.Get("fromId")
			toKind, _ := rec.Get("toKind")
			toID, _ := rec.Get("toId")
			label, _ := rec.Get("label")
			if fromKind == nil {
				continue
			}
			edgeKey := fmt.Sprintf("%v:%v-%v-%v:%v", fromKind, fromID, label, toKind, toID)
			if !seenEdges[edgeKey] {
				seenEdges[edgeKey] = true
				sg.Edges = append(sg.Edges, Edge{
					FromKind: fmt.Sprintf("%v", fromKind),
					FromID:   fmt.Sprintf("%v", fromID),
					ToKind:   fmt.Sprintf("%v", toKind),
					ToID:     fmt.Sprintf("%v", toID),
					Label:    fmt.Sprintf("%v", label),
				})
			}
		}
		return sg, res.Err()
	})
	if err != nil {
		return Subgraph{}, err
	}
	return result.(Subgraph), nil
}

// RawQuery executes an arbitrary read-only Cypher query bounded by rowCap.
// timeout is enforced by the caller via ctx.
func (n *Neo4j) RawQuery(ctx context.Context, query string, params map[string]any, rowCap int) ([]map[string]any, error) {
	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var rows []map[string]any
		for res.Next(ctx) {
			if rowCap > 0 && len(rows) >= rowCap {
				break
			}
			rec := res.Record()
			row := make(map[string]any, len(rec.Keys))
			for _, k := range rec.Keys {
				v, _ := rec.Get(k)
				row[k] = v
			}
			rows = append(rows, row)
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]map[string]any), nil
}

// Close releases the driver.
func (n *Neo4j) Close(ctx context.Context) error { return n.driver.Close(ctx) }
