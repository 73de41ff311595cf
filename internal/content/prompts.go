// Package content provides MCP prompts and resources for the cwa server.
package content

import "github.com/cwaproj/cwa/internal/mcp"

// --- new-spec prompt ---

// NewSpecPrompt guides an LLM through drafting a new spec interactively.
type NewSpecPrompt struct{}

func (p *NewSpecPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "new-spec",
		Description: "Interactive guide for drafting a new spec: scope, acceptance criteria, dependencies.",
		Arguments:   []mcp.PromptArgument{},
	}
}

func (p *NewSpecPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	return &mcp.PromptsGetResult{
		Description: "Guide for drafting a new spec",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent(newSpecGuide)},
		},
	}, nil
}

const newSpecGuide = `# Draft a New Spec

You are helping a user turn an idea into a spec tracked by cwa.

## Step 1: Scope

Ask:
- What are you building, fixing, or improving? (one sentence title)
- What problem does it solve?
- What's explicitly out of scope?

## Step 2: Acceptance criteria

Ask for 2-5 concrete, checkable statements of done. Each should be testable,
not aspirational ("returns 404 for an unknown spec id", not "handles errors well").

## Step 3: Dependencies

Does this spec depend on another spec finishing first? List their ids.

## Step 4: Create it

Call create_spec with title, description, priority, and acceptance_criteria.
Then call generate_tasks if the spec is large enough to break into cards, or
create_task directly for a single card.
`

// --- move-task prompt ---

// MoveTaskPrompt guides an LLM through a kanban transition, surfacing guard
// feedback before the caller retries.
type MoveTaskPrompt struct{}

func (p *MoveTaskPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "move-task",
		Description: "Guide for moving a task across the kanban board, including what to do when a WIP-limit guard blocks the move.",
		Arguments:   []mcp.PromptArgument{},
	}
}

func (p *MoveTaskPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	return &mcp.PromptsGetResult{
		Description: "Guide for moving a task across the kanban board",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent(moveTaskGuide)},
		},
	}, nil
}

const moveTaskGuide = `# Move a Task

Call update_task_status with task_id and the target column.

The pipeline is backlog → todo → in_progress → review → done. Forward moves
may skip columns; backward moves land only on todo or in_progress, except
from done, which re-opens to review or in_progress. Every move into todo,
in_progress, or review is subject to that column's WIP limit.

If the response reports WipExceeded, the target column is at its configured
limit. Either complete or move out another card in that column first, or ask
the user whether to raise the limit with set_wip_limit.
`
