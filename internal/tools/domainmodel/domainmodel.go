// Package domainmodel implements the domain-model tool group: create_context,
// create_domain_object, get_domain_model, get_context_map, get_glossary,
// add_glossary_term.
package domainmodel

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
)

// Register adds the domain-model tools to reg.
func Register(reg *mcp.Registry, svc *services.Services) {
	reg.Register(toolkit.New(
		"create_context",
		"Create a bounded context.",
		toolkit.Schema(`{"type":"object","properties":{"name":{"type":"string"},"description":{"type":"string"}},"required":["name"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct{ Name, Description string }
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("name", args.Name); !ok {
				return res, nil
			}
			c, err := svc.CreateContext(ctx, args.Name, args.Description)
			return toolkit.Result(c, err)
		},
	))

	reg.Register(toolkit.New(
		"create_domain_object",
		"Add an entity/value_object/aggregate/service/event to a bounded context.",
		toolkit.Schema(`{"type":"object","properties":{
			"context_id":{"type":"string"},
			"kind":{"type":"string","enum":["entity","value_object","aggregate","service","event"]},
			"name":{"type":"string"},
			"invariants":{"type":"array","items":{"type":"string"}},
			"properties":{"type":"object","additionalProperties":{"type":"string"}}
		},"required":["context_id","kind","name"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				ContextID  string            `json:"context_id"`
				Kind       string            `json:"kind"`
				Name       string            `json:"name"`
				Invariants []string          `json:"invariants"`
				Properties map[string]string `json:"properties"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("context_id", args.ContextID); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("kind", args.Kind); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("name", args.Name); !ok {
				return res, nil
			}
			o, err := svc.CreateDomainObject(ctx, args.ContextID, args.Kind, args.Name, args.Invariants, args.Properties)
			return toolkit.Result(o, err)
		},
	))

	reg.Register(toolkit.New(
		"get_domain_model",
		"Return every bounded context with its member domain objects attached.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			m, err := svc.GetDomainModel(ctx)
			return toolkit.Result(m, err)
		},
	))

	reg.Register(toolkit.New(
		"get_context_map",
		"Return the upstream/downstream relationships between bounded contexts.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			m, err := svc.GetContextMap(ctx)
			return toolkit.Result(m, err)
		},
	))

	reg.Register(toolkit.New(
		"get_glossary",
		"Return every ubiquitous-language glossary term.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			g, err := svc.GetGlossary(ctx)
			return toolkit.Result(g, err)
		},
	))

	reg.Register(toolkit.New(
		"add_glossary_term",
		"Define (or redefine) a ubiquitous-language term.",
		toolkit.Schema(`{"type":"object","properties":{
			"term":{"type":"string"},
			"definition":{"type":"string"},
			"aliases":{"type":"array","items":{"type":"string"}},
			"context_id":{"type":"string"}
		},"required":["term","definition"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Term       string   `json:"term"`
				Definition string   `json:"definition"`
				Aliases    []string `json:"aliases"`
				ContextID  string   `json:"context_id"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("term", args.Term); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("definition", args.Definition); !ok {
				return res, nil
			}
			g, err := svc.AddGlossaryTerm(ctx, args.Term, args.Definition, args.Aliases, args.ContextID)
			return toolkit.Result(g, err)
		},
	))
}
