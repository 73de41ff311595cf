package validation

import "github.com/cwaproj/cwa/internal/domain"

// specTransitions governs the spec review lifecycle. Archival is reachable
// from any non-terminal state; acceptance only from in_review.
var specTransitions = map[string][]string{
	domain.SpecDraft:    {domain.SpecActive, domain.SpecArchived},
	domain.SpecActive:   {domain.SpecInReview, domain.SpecArchived},
	domain.SpecInReview: {domain.SpecAccepted, domain.SpecActive, domain.SpecArchived},
	domain.SpecAccepted: {domain.SpecComplete, domain.SpecArchived},
	domain.SpecComplete: {domain.SpecArchived},
	domain.SpecArchived: {},
}

type specValidator struct{}

// NewSpecValidator returns the spec status-transition validator.
func NewSpecValidator() Validator { return &specValidator{} }

func (v *specValidator) Validate(from, to string) error {
	if !isAllowedTransition(from, to, specTransitions) {
		return transitionError(from, to)
	}
	return nil
}
