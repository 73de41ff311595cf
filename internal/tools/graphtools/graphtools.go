// Package graphtools implements the graph tool group: graph_query,
// graph_impact, graph_neighborhood, graph_sync, graph_hyperedges.
package graphtools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
)

const (
	defaultQueryTimeout = 30 * time.Second
	defaultRowCap       = 10000
)

// Register adds the graph tools to reg.
func Register(reg *mcp.Registry, svc *services.Services) {
	reg.Register(toolkit.New(
		"graph_sync",
		"Project the primary store into the graph store. mode is full or incremental (default incremental, content-hash-gated).",
		toolkit.Schema(`{"type":"object","properties":{"mode":{"type":"string","enum":["full","incremental"]}}}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ Mode string }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			err := svc.GraphSync(ctx, args.Mode)
			return toolkit.Result(map[string]any{"mode": args.Mode}, err)
		},
	))

	reg.Register(toolkit.New(
		"graph_impact",
		"Walk outward from an entity along edges of every label, in either direction, reporting every entity that would be affected by a change to it.",
		toolkit.Schema(`{"type":"object","properties":{
			"kind":{"type":"string"},
			"id":{"type":"string"},
			"depth":{"type":"integer"}
		},"required":["kind","id"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Kind  string
				ID    string
				Depth int
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("kind", args.Kind); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			if args.Depth <= 0 {
				args.Depth = 2
			}
			hops, err := svc.GraphImpact(ctx, args.Kind, args.ID, args.Depth)
			return toolkit.Result(hops, err)
		},
	))

	reg.Register(toolkit.New(
		"graph_neighborhood",
		"Extract a small visualizable subgraph around an entity.",
		toolkit.Schema(`{"type":"object","properties":{
			"kind":{"type":"string"},
			"id":{"type":"string"},
			"depth":{"type":"integer"}
		},"required":["kind","id"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Kind  string
				ID    string
				Depth int
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("kind", args.Kind); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			if args.Depth <= 0 {
				args.Depth = 1
			}
			sub, err := svc.GraphNeighborhood(ctx, args.Kind, args.ID, args.Depth)
			return toolkit.Result(sub, err)
		},
	))

	reg.Register(toolkit.New(
		"graph_hyperedges",
		"Group every edge touching an entity by label, surfacing multi-way relationships that share a decision or spec.",
		toolkit.Schema(`{"type":"object","properties":{"kind":{"type":"string"},"id":{"type":"string"}},"required":["kind","id"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ Kind, ID string }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("kind", args.Kind); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			grouped, err := svc.GraphHyperedges(ctx, args.Kind, args.ID)
			return toolkit.Result(grouped, err)
		},
	))

	reg.Register(toolkit.New(
		"graph_query",
		"Run a native read-only graph query with a bounded timeout and row cap.",
		toolkit.Schema(`{"type":"object","properties":{
			"query":{"type":"string"},
			"params":{"type":"object"},
			"timeout_seconds":{"type":"integer"},
			"row_cap":{"type":"integer"}
		},"required":["query"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Query          string
				Params         map[string]any
				TimeoutSeconds int `json:"timeout_seconds"`
				RowCap         int `json:"row_cap"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("query", args.Query); !ok {
				return res, nil
			}
			timeout := defaultQueryTimeout
			if args.TimeoutSeconds > 0 {
				timeout = time.Duration(args.TimeoutSeconds) * time.Second
			}
			rowCap := defaultRowCap
			if args.RowCap > 0 {
				rowCap = args.RowCap
			}
			rows, err := svc.GraphRawQuery(ctx, args.Query, args.Params, timeout, rowCap)
			return toolkit.Result(rows, err)
		},
	))
}
