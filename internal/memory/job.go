package memory

import (
	"context"

	"github.com/cwaproj/cwa/internal/graph"
)

// DecayJob implements scheduler.Job, running a decay pass followed by
// compaction on every tick.
type DecayJob struct {
	svc           *Service
	proj          *graph.Projector
	decayFactor   float64
	minConfidence float64
}

// NewDecayJob builds a scheduler.Job that decays and compacts on each tick.
// proj may be nil if no graph projection is configured.
func NewDecayJob(svc *Service, proj *graph.Projector, decayFactor, minConfidence float64) *DecayJob {
	return &DecayJob{svc: svc, proj: proj, decayFactor: decayFactor, minConfidence: minConfidence}
}

func (j *DecayJob) Name() string { return "memory_decay" }

func (j *DecayJob) Run(ctx context.Context) error {
	if _, err := j.svc.Decay(ctx, j.decayFactor); err != nil {
		return err
	}
	_, err := j.svc.Compact(ctx, j.minConfidence, j.proj)
	return err
}
