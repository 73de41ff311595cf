// Package memorytools implements the memory/observation tool group:
// memory_add, observe, memory_semantic_search, memory_search_all,
// memory_timeline, memory_get, hybrid_search, search_memory, summarize.
package memorytools

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/memory"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
	"github.com/cwaproj/cwa/internal/vector"
)

// Register adds the memory/observation tools to reg.
func Register(reg *mcp.Registry, mem *memory.Service) {
	reg.Register(toolkit.New(
		"memory_add",
		"Store an unstructured memory nugget (preference/decision/fact/pattern).",
		toolkit.Schema(`{"type":"object","properties":{
			"kind":{"type":"string","enum":["preference","decision","fact","pattern"]},
			"content":{"type":"string"}
		},"required":["kind","content"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ Kind, Content string }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("kind", args.Kind); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("content", args.Content); !ok {
				return res, nil
			}
			m, err := mem.Add(ctx, args.Kind, args.Content)
			return toolkit.Result(m, err)
		},
	))

	reg.Register(toolkit.New(
		"observe",
		"Record a structured development event (bugfix/feature/refactor/discovery/decision/change/insight).",
		toolkit.Schema(`{"type":"object","properties":{
			"kind":{"type":"string","enum":["bugfix","feature","refactor","discovery","decision","change","insight"]},
			"title":{"type":"string"},
			"narrative":{"type":"string"},
			"facts":{"type":"array","items":{"type":"string"}},
			"files_modified":{"type":"array","items":{"type":"string"}},
			"files_read":{"type":"array","items":{"type":"string"}},
			"related_entity":{"type":"string"}
		},"required":["kind","title"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Kind          string
				Title         string
				Narrative     string
				Facts         []string
				FilesModified []string `json:"files_modified"`
				FilesRead     []string `json:"files_read"`
				RelatedEntity string   `json:"related_entity"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("kind", args.Kind); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("title", args.Title); !ok {
				return res, nil
			}
			o, err := mem.Observe(ctx, args.Kind, args.Title, args.Narrative, args.Facts, args.FilesModified, args.FilesRead, args.RelatedEntity)
			return toolkit.Result(o, err)
		},
	))

	reg.Register(toolkit.New(
		"memory_timeline",
		"Return compact timeline rows {id, kind, title, confidence, created_at} for browsing — the cheap side of progressive disclosure.",
		toolkit.Schema(`{"type":"object","properties":{"days":{"type":"integer"},"limit":{"type":"integer"}}}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ Days, Limit int }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			rows, err := mem.Timeline(ctx, args.Days, args.Limit)
			return toolkit.Result(rows, err)
		},
	))

	reg.Register(toolkit.New(
		"memory_get",
		"Return full observation records (narrative, facts, file lists) for the given ids — the expensive side of progressive disclosure.",
		toolkit.Schema(`{"type":"object","properties":{"ids":{"type":"array","items":{"type":"string"}}},"required":["ids"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				IDs []string `json:"ids"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			rows, err := mem.Get(ctx, args.IDs)
			return toolkit.Result(rows, err)
		},
	))

	reg.Register(toolkit.New(
		"summarize",
		"Compress the most recent N observations into a single Summary entity.",
		toolkit.Schema(`{"type":"object","properties":{"count":{"type":"integer"}},"required":["count"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ Count int }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			s, err := mem.Summarize(ctx, args.Count)
			return toolkit.Result(s, err)
		},
	))

	reg.Register(toolkit.New(
		"search_memory",
		"Keyword search across memories and/or observations.",
		toolkit.Schema(`{"type":"object","properties":{
			"query":{"type":"string"},
			"top_k":{"type":"integer"},
			"include_memories":{"type":"boolean"},
			"include_observations":{"type":"boolean"}
		},"required":["query"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			args := struct {
				Query               string
				TopK                int  `json:"top_k"`
				IncludeMemories     bool `json:"include_memories"`
				IncludeObservations bool `json:"include_observations"`
			}{IncludeMemories: true, IncludeObservations: true}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("query", args.Query); !ok {
				return res, nil
			}
			hits, err := mem.SearchKeyword(ctx, args.Query, args.TopK, args.IncludeMemories, args.IncludeObservations)
			return toolkit.Result(hits, err)
		},
	))

	reg.Register(toolkit.New(
		"memory_semantic_search",
		"Semantic (vector-cosine) search within one collection: memories or observations.",
		toolkit.Schema(`{"type":"object","properties":{
			"query":{"type":"string"},
			"top_k":{"type":"integer"},
			"collection":{"type":"string","enum":["memories","observations"]}
		},"required":["query"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			args := struct {
				Query      string
				TopK       int    `json:"top_k"`
				Collection string `json:"collection"`
			}{Collection: vector.CollectionMemories}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("query", args.Query); !ok {
				return res, nil
			}
			hits, err := mem.SearchSemantic(ctx, args.Query, args.TopK, args.Collection)
			return toolkit.Result(hits, err)
		},
	))

	reg.Register(toolkit.New(
		"hybrid_search",
		"Rank-fuse keyword and semantic hits: blended = alpha*vector + (1-alpha)*keyword, default alpha=0.7.",
		toolkit.Schema(`{"type":"object","properties":{
			"query":{"type":"string"},
			"alpha":{"type":"number"},
			"top_k":{"type":"integer"}
		},"required":["query"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			args := struct {
				Query string
				Alpha float64
				TopK  int `json:"top_k"`
			}{Alpha: memory.HybridAlpha}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("query", args.Query); !ok {
				return res, nil
			}
			hits, err := mem.SearchHybrid(ctx, args.Query, args.Alpha, args.TopK)
			return toolkit.Result(hits, err)
		},
	))

	reg.Register(toolkit.New(
		"memory_search_all",
		"Hybrid search applied across both memories and observations (alias of search_all).",
		toolkit.Schema(`{"type":"object","properties":{"query":{"type":"string"},"top_k":{"type":"integer"}},"required":["query"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Query string
				TopK  int `json:"top_k"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("query", args.Query); !ok {
				return res, nil
			}
			hits, err := mem.SearchAll(ctx, args.Query, args.TopK)
			return toolkit.Result(hits, err)
		},
	))

	reg.Register(toolkit.New(
		"decay",
		"Multiply every observation's confidence by a factor (typically 0.98), ageing out stale memories.",
		toolkit.Schema(`{"type":"object","properties":{"factor":{"type":"number"}}}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ Factor float64 }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if args.Factor == 0 {
				args.Factor = memory.DefaultDecayFactor
			}
			n, err := mem.Decay(ctx, args.Factor)
			return toolkit.Result(map[string]any{"decayed": n}, err)
		},
	))

	reg.Register(toolkit.New(
		"compact",
		"Physically delete every memory/observation whose confidence is strictly below min_confidence, from every store that knows about it.",
		toolkit.Schema(`{"type":"object","properties":{"min_confidence":{"type":"number"}}}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				MinConfidence float64 `json:"min_confidence"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if args.MinConfidence == 0 {
				args.MinConfidence = memory.DefaultMinConfidence
			}
			n, err := mem.Compact(ctx, args.MinConfidence, nil)
			return toolkit.Result(map[string]any{"deleted": n}, err)
		},
	))
}
