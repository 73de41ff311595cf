// Package codegentools implements the codegen tool group: codegen_agents,
// codegen_dry_run, codegen_optimize.
package codegentools

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/codegen"
	"github.com/cwaproj/cwa/internal/mcp"
	"github.com/cwaproj/cwa/internal/tools/toolkit"
)

// Register adds the codegen tools to reg. destDir is the repository root the
// artifact tree is applied into.
func Register(reg *mcp.Registry, gen *codegen.Generator, destDir string) {
	reg.Register(toolkit.New(
		"codegen_agents",
		"Regenerate the .claude/ agent-harness tree, CLAUDE.md, .mcp.json, and .cwa/ metadata from the current project state, applying it to disk atomically.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			result, err := gen.Apply(ctx, destDir)
			if result == nil {
				return toolkit.Result(nil, err)
			}
			// A partial failure still reports which paths landed and which
			// one aborted the run, per the atomic-apply contract, rather
			// than collapsing to a bare error message.
			out := map[string]any{"written": result.Written, "failed": result.Failed}
			res, jerr := mcp.JSONResult(out)
			if jerr != nil {
				return nil, jerr
			}
			if err != nil {
				res.IsError = true
				res.Content = append(res.Content, mcp.TextContent(err.Error()))
			}
			return res, nil
		},
	))

	reg.Register(toolkit.New(
		"codegen_dry_run",
		"Report which files codegen_agents would write, grouped by kind, without touching disk.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			grouped, err := gen.DryRun(ctx)
			return toolkit.Result(grouped, err)
		},
	))

	reg.Register(toolkit.New(
		"codegen_optimize",
		"Count cl100k_base tokens per generated artifact and rank overruns against their per-kind soft budget.",
		toolkit.Schema(`{"type":"object","properties":{}}`),
		func(ctx context.Context, _ json.RawMessage) (*mcp.ToolsCallResult, error) {
			artifacts, err := gen.Generate(ctx)
			if err != nil {
				return toolkit.Result(nil, err)
			}
			opt, err := codegen.NewOptimizer()
			if err != nil {
				return toolkit.Result(nil, err)
			}
			reports, err := opt.Analyze(artifacts)
			return toolkit.Result(reports, err)
		},
	))
}
