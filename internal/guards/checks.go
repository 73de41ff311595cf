package guards

import (
	"context"
	"fmt"
)

// WipLimit hard-blocks a kanban move that would push a column over its
// configured WIP limit.
var WipLimit = NewGuardFunc("wip_limit", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.WipLimit <= 0 || gctx.ColumnCount < gctx.WipLimit {
		return Pass("wip_limit")
	}
	return Fail("wip_limit", HardBlock,
		fmt.Sprintf("column %q is at its WIP limit of %d", gctx.ToColumn, gctx.WipLimit),
		"complete or move another card out of this column first")
})

// AcceptanceCriteriaRequired soft-blocks moving a spec to in_review without
// at least one acceptance criterion recorded.
var AcceptanceCriteriaRequired = NewGuardFunc("acceptance_criteria_required", func(_ context.Context, gctx *GuardContext) Result {
	if gctx.ToColumn != "in_review" || gctx.AcceptanceCriteriaCount > 0 {
		return Pass("acceptance_criteria_required")
	}
	return Fail("acceptance_criteria_required", SoftBlock,
		"spec has no acceptance criteria",
		"add at least one acceptance criterion before requesting review")
})

// KanbanGuards returns the guard set run before a kanban move is applied.
func KanbanGuards() []Guard {
	return []Guard{WipLimit}
}

// SpecGuards returns the guard set run before a spec status change is applied.
func SpecGuards() []Guard {
	return []Guard{AcceptanceCriteriaRequired}
}
