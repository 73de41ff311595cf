// Package project implements the project/context tool group: get_project_info,
// get_context_summary, get_tech_stack, cache_status.
package project

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
)

// Register adds the project/context tools to reg, scoped to one project id
// (the coordination core serves a single project per process).
func Register(reg *mcp.Registry, svc *services.Services, projectID string) {
	reg.Register(toolkit.New(
		"get_project_info",
		"Return the project's name, description, and declared tech stack.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			p, err := svc.GetProjectInfo(ctx, projectID)
			return toolkit.Result(p, err)
		},
	))

	reg.Register(toolkit.New(
		"get_tech_stack",
		"Return the project's declared tech-stack tags.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			tags, err := svc.GetTechStack(ctx, projectID)
			return toolkit.Result(tags, err)
		},
	))

	reg.Register(toolkit.New(
		"set_tech_stack",
		"Replace the project's declared tech-stack tags (drives codegen persona/rule selection).",
		toolkit.Schema(`{"type":"object","properties":{"tags":{"type":"array","items":{"type":"string"}}},"required":["tags"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Tags []string `json:"tags"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			p, err := svc.SetTechStack(ctx, projectID, args.Tags)
			return toolkit.Result(p, err)
		},
	))

	reg.Register(toolkit.New(
		"get_context_summary",
		"Return the condensed project digest: active specs, recent decisions, current task, and recent high-confidence observations.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			s, err := svc.GetContextSummary(ctx, projectID)
			return toolkit.Result(s, err)
		},
	))

	reg.Register(toolkit.New(
		"cache_status",
		"Report primary/graph/vector store freshness: pending embedding backlog and graph dirty-entity count.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			s, err := svc.GetCacheStatus(ctx)
			return toolkit.Result(s, err)
		},
	))

	reg.Register(toolkit.New(
		"get_next_steps",
		"Suggest the task(s) an agent should pick up next.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			tasks, err := svc.GetNextSteps(ctx)
			return toolkit.Result(tasks, err)
		},
	))
}
