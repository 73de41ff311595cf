// Package toolkit gives every tool group in internal/tools a single,
// generic mcp.Tool implementation to sit behind: the many
// get_X/list_X/create_X tools share one schema shape, so the
// dispatcher-facing plumbing (name, description, input schema, error
// translation) lives here once instead of once per tool.
package toolkit

import (
	"context"
	"encoding/json"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/mcp"
)

// Handler executes one tool call against already-decoded arguments.
type Handler func(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error)

// Func adapts a name/description/schema/handler tuple to mcp.Tool.
type Func struct {
	name   string
	desc   string
	schema json.RawMessage
	fn     Handler
}

// New builds a Func-backed tool.
func New(name, desc string, schema json.RawMessage, fn Handler) *Func {
	return &Func{name: name, desc: desc, schema: schema, fn: fn}
}

func (f *Func) Name() string { return f.name }
func (f *Func) Description() string { return f.desc }
func (f *Func) InputSchema() json.RawMessage { return f.schema }

func (f *Func) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	return f.fn(ctx, params)
}

// Decode unmarshals raw tool arguments into dst, returning an InvalidArguments
// tool result (not a Go error) on malformed JSON so the caller can return it
// directly without panicking the dispatcher.
func Decode(params json.RawMessage, dst any) (*mcp.ToolsCallResult, bool) {
	if len(params) == 0 {
		return nil, true
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return mcp.ErrorResult(cwaerr.Newf(cwaerr.InvalidArguments, "invalid arguments: %v", err).Error()), false
	}
	return nil, true
}

// Result translates a service-layer error into a tool result, or marshals a
// successful value as JSON. Every caller in internal/tools funnels through
// this so the taxonomy in cwaerr reaches the agent uniformly.
func Result(v any, err error) (*mcp.ToolsCallResult, error) {
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return mcp.JSONResult(v)
}

// Require returns an InvalidArguments result if s is empty.
func Require(field, s string) (*mcp.ToolsCallResult, bool) {
	if s == "" {
		return mcp.ErrorResult(cwaerr.Newf(cwaerr.InvalidArguments, "%s is required", field).Error()), false
	}
	return nil, true
}

// Schema is a convenience literal for InputSchema bodies.
func Schema(s string) json.RawMessage { return json.RawMessage(s) }
