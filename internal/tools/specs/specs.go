// Package specs implements the spec tool group: get_spec, list_specs,
// create_spec, update_spec_status, add_acceptance_criteria, validate_spec.
package specs

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
)

// Register adds the spec tools to reg.
func Register(reg *mcp.Registry, svc *services.Services) {
	reg.Register(toolkit.New(
		"get_spec",
		"Fetch a spec by id.",
		toolkit.Schema(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ ID string `json:"id"` }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			sp, err := svc.GetSpec(ctx, args.ID)
			return toolkit.Result(sp, err)
		},
	))

	reg.Register(toolkit.New(
		"list_specs",
		"List every spec in creation order.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			list, err := svc.ListSpecs(ctx)
			return toolkit.Result(list, err)
		},
	))

	reg.Register(toolkit.New(
		"create_spec",
		"Create a new spec in draft status.",
		toolkit.Schema(`{"type":"object","properties":{
			"title":{"type":"string"},
			"description":{"type":"string"},
			"priority":{"type":"string","enum":["low","medium","high","critical"]},
			"acceptance_criteria":{"type":"array","items":{"type":"string"}},
			"dependencies":{"type":"array","items":{"type":"string"}}
		},"required":["title"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Title              string   `json:"title"`
				Description        string   `json:"description"`
				Priority           string   `json:"priority"`
				AcceptanceCriteria []string `json:"acceptance_criteria"`
				Dependencies       []string `json:"dependencies"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("title", args.Title); !ok {
				return res, nil
			}
			if args.Priority == "" {
				args.Priority = domain.PriorityMedium
			}
			sp, err := svc.CreateSpec(ctx, args.Title, args.Description, args.Priority, args.AcceptanceCriteria, args.Dependencies)
			return toolkit.Result(sp, err)
		},
	))

	reg.Register(toolkit.New(
		"update_spec_status",
		"Transition a spec's status. Archiving a spec with non-done dependent tasks fails with Conflict.",
		toolkit.Schema(`{"type":"object","properties":{
			"id":{"type":"string"},
			"status":{"type":"string","enum":["draft","active","in_review","accepted","completed","archived"]}
		},"required":["id","status"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ ID, Status string }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("status", args.Status); !ok {
				return res, nil
			}
			if args.Status == domain.SpecArchived {
				sp, err := svc.ArchiveSpec(ctx, args.ID)
				return toolkit.Result(sp, err)
			}
			sp, err := svc.UpdateSpecStatus(ctx, args.ID, args.Status)
			return toolkit.Result(sp, err)
		},
	))

	reg.Register(toolkit.New(
		"add_acceptance_criteria",
		"Append an acceptance criterion to a spec.",
		toolkit.Schema(`{"type":"object","properties":{"id":{"type":"string"},"criterion":{"type":"string"}},"required":["id","criterion"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ ID, Criterion string }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("criterion", args.Criterion); !ok {
				return res, nil
			}
			sp, err := svc.AddAcceptanceCriteria(ctx, args.ID, args.Criterion)
			return toolkit.Result(sp, err)
		},
	))

	reg.Register(toolkit.New(
		"validate_spec",
		"Report whether a spec is well-formed enough to move to in_review.",
		toolkit.Schema(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ ID string `json:"id"` }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			ok, problems, err := svc.ValidateSpec(ctx, args.ID)
			if err != nil {
				return toolkit.Result(nil, err)
			}
			return toolkit.Result(map[string]any{"valid": ok, "problems": problems}, nil)
		},
	))
}
