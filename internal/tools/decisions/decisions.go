// Package decisions implements the decision tool group: add_decision,
// list_decisions.
package decisions

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
)

// Register adds the decision tools to reg.
func Register(reg *mcp.Registry, svc *services.Services) {
	reg.Register(toolkit.New(
		"add_decision",
		"Record a new architectural decision, optionally superseding an earlier one.",
		toolkit.Schema(`{"type":"object","properties":{
			"title":{"type":"string"},
			"rationale":{"type":"string"},
			"alternatives":{"type":"array","items":{"type":"string"}},
			"supersedes":{"type":"string"},
			"related_entity":{"type":"string"}
		},"required":["title","rationale"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Title         string   `json:"title"`
				Rationale     string   `json:"rationale"`
				Alternatives  []string `json:"alternatives"`
				Supersedes    string   `json:"supersedes"`
				RelatedEntity string   `json:"related_entity"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("title", args.Title); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("rationale", args.Rationale); !ok {
				return res, nil
			}
			d, err := svc.AddDecision(ctx, args.Title, args.Rationale, args.Alternatives, args.Supersedes, args.RelatedEntity)
			return toolkit.Result(d, err)
		},
	))

	reg.Register(toolkit.New(
		"list_decisions",
		"List every decision in creation order.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			list, err := svc.ListDecisions(ctx)
			return toolkit.Result(list, err)
		},
	))
}
