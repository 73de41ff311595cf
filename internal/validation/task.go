package validation

import "github.com/cwaproj/cwa/internal/domain"

// taskColumnOrder is the linear kanban pipeline. Cards may skip forward any
// number of columns (the WIP limit on the target column is the only forward
// gate, enforced downstream by internal/guards) and may move backward to
// todo or in_progress from anywhere ahead of them. done is terminal except
// for re-opening backward to review or in_progress.
var taskColumnOrder = []string{
	domain.ColumnBacklog,
	domain.ColumnTodo,
	domain.ColumnInProgress,
	domain.ColumnReview,
	domain.ColumnDone,
}

var taskColumnIndex = func() map[string]int {
	idx := make(map[string]int, len(taskColumnOrder))
	for i, c := range taskColumnOrder {
		idx[c] = i
	}
	return idx
}()

type taskValidator struct{}

// NewTaskValidator returns the kanban column-transition validator.
func NewTaskValidator() Validator { return &taskValidator{} }

func (v *taskValidator) Validate(from, to string) error {
	if !isAllowedTaskTransition(from, to) {
		return transitionError(from, to)
	}
	return nil
}

// isAllowedTaskTransition encodes the board's state machine: any forward
// move (to a later column, including skips) is structurally legal and left
// to the caller's WIP check; backward moves are legal only to todo or
// in_progress, except from done, which may only re-open backward to review
// or in_progress.
func isAllowedTaskTransition(from, to string) bool {
	fromIdx, ok := taskColumnIndex[from]
	if !ok {
		return false
	}
	toIdx, ok := taskColumnIndex[to]
	if !ok {
		return false
	}
	if toIdx > fromIdx {
		return true
	}
	if from == domain.ColumnDone {
		return to == domain.ColumnReview || to == domain.ColumnInProgress
	}
	return to == domain.ColumnTodo || to == domain.ColumnInProgress
}
