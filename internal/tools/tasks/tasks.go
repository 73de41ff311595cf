// Package tasks implements the kanban tool group: get_current_task,
// list_tasks, create_task, update_task_status, generate_tasks,
// get_wip_status, set_wip_limit.
package tasks

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/services"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
)

// Register adds the kanban tools to reg.
func Register(reg *mcp.Registry, svc *services.Services) {
	reg.Register(toolkit.New(
		"get_current_task",
		"Return the task currently in progress, or the front of todo if nothing is in progress.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			t, err := svc.GetCurrentTask(ctx)
			return toolkit.Result(t, err)
		},
	))

	reg.Register(toolkit.New(
		"list_tasks",
		"List every task across every column, column by column in pipeline order.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			list, err := svc.ListTasks(ctx)
			return toolkit.Result(list, err)
		},
	))

	reg.Register(toolkit.New(
		"create_task",
		"Create a task. Its status defaults to backlog; spec_id, if given, must reference a non-archived spec.",
		toolkit.Schema(`{"type":"object","properties":{
			"title":{"type":"string"},
			"description":{"type":"string"},
			"priority":{"type":"string","enum":["low","medium","high","critical"]},
			"spec_id":{"type":"string"},
			"status":{"type":"string","enum":["backlog","todo","in_progress","review","done"]}
		},"required":["title"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Title, Description, Priority, SpecID, Status string
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
			t, err := svc.CreateTask(ctx, args.Title, args.Description, args.Priority, args.SpecID, args.Status)
			return toolkit.Result(t, err)
		},
	))

	reg.Register(toolkit.New(
		"update_task_status",
		"Move a task to a new column, enforcing the column transition table and WIP limit. Set force=true to override a soft block.",
		toolkit.Schema(`{"type":"object","properties":{
			"id":{"type":"string"},
			"status":{"type":"string","enum":["backlog","todo","in_progress","review","done"]},
			"force":{"type":"boolean"}
		},"required":["id","status"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				ID, Status string
				Force      bool
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("id", args.ID); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("status", args.Status); !ok {
				return res, nil
			}
			t, err := svc.UpdateTaskStatus(ctx, args.ID, args.Status, args.Force)
			return toolkit.Result(t, err)
		},
	))

	reg.Register(toolkit.New(
		"generate_tasks",
		"Create one backlog task per acceptance criterion on a spec that doesn't already have one. Idempotent: re-running creates zero tasks once every criterion has a task.",
		toolkit.Schema(`{"type":"object","properties":{"spec_id":{"type":"string"}},"required":["spec_id"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				SpecID string `json:"spec_id"`
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("spec_id", args.SpecID); !ok {
				return res, nil
			}
			created, errs := svc.GenerateTasks(ctx, args.SpecID)
			errStrs := make([]string, len(errs))
			for i, e := range errs {
				errStrs[i] = e.Error()
			}
			return toolkit.Result(map[string]any{"created": created, "errors": errStrs}, nil)
		},
	))

	reg.Register(toolkit.New(
		"get_wip_status",
		"Report current card counts against configured WIP limits for every kanban column.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			status, err := svc.WipStatus(ctx)
			return toolkit.Result(status, err)
		},
	))

	reg.Register(toolkit.New(
		"set_wip_limit",
		"Set a column's WIP limit (0 = unlimited).",
		toolkit.Schema(`{"type":"object","properties":{
			"column":{"type":"string","enum":["backlog","todo","in_progress","review","done"]},
			"limit":{"type":"integer"}
		},"required":["column","limit"]}`),
		func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
			var args struct {
				Column string
				Limit  int
			}
			if res, ok := toolkit.Decode(params, &args); !ok {
				return res, nil
			}
			if res, ok := toolkit.Require("column", args.Column); !ok {
				return res, nil
			}
			if err := svc.SetWipLimit(ctx, args.Column, args.Limit); err != nil {
				return toolkit.Result(nil, err)
			}
			return toolkit.Result(map[string]any{"column": args.Column, "limit": args.Limit}, nil)
		},
	))
}
