package storage

import (
	"context"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
)

// RunRecorder adapts lifecycle events into run records.
// It implements events.EventPersister.
type RunRecorder struct {
	repo    RunRepository
	logger  *logger.Logger
	metrics *metrics.Collector
	timeout time.Duration
}

// NewRunRecorder creates a recorder writing into repo. collector may be nil.
func NewRunRecorder(repo RunRepository, log *logger.Logger, collector *metrics.Collector) *RunRecorder {
	if collector == nil {
		collector = metrics.Get()
	}
	return &RunRecorder{repo: repo, logger: log, metrics: collector, timeout: 5 * time.Second}
}

// Append records started, reseeded and stopped runs. Other events are ignored.
func (r *RunRecorder) Append(event events.SimEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch event.Type {
	case events.EventTypeRunStarted:
		p, ok := event.Payload.(engine.RunStartedPayload)
		if !ok {
			return nil
		}
		err = r.repo.Create(ctx, RunRecord{
			RunID:           event.RunID,
			Width:           p.Dimensions.Width,
			Height:          p.Dimensions.Height,
			Depth:           p.Dimensions.Depth,
			Rules:           p.Rules,
			Topology:        p.Topology,
			SeedMode:        p.SeedMode,
			SeedProbability: p.SeedProbability,
			SeedRNG:         p.SeedRNG,
			StepRNG:         p.StepRNG,
			Seeded:          p.Population.Live(),
			StartedAt:       event.Timestamp,
		})
	case events.EventTypeRunReseeded:
		p, ok := event.Payload.(engine.RunStartedPayload)
		if !ok {
			return nil
		}
		err = r.repo.Reseeded(ctx, event.RunID, p.Population.Live())
	case events.EventTypeRunStopped:
		p, ok := event.Payload.(engine.RunStoppedPayload)
		if !ok {
			return nil
		}
		err = r.repo.Finish(ctx, event.RunID, RunOutcome{
			FinishedAt:  event.Timestamp,
			Generations: event.Generation,
			FinalAlive:  p.Census.Population.Alive,
			FinalDying:  p.Census.Population.Dying,
			Stable:      p.Census.Stable,
			Extinct:     p.Census.Extinct,
		})
	default:
		return nil
	}

	r.metrics.RecordStoreWrite(time.Since(start), err)
	if err != nil {
		r.logger.Errorf("Failed to record %s for run %s: %v", event.Type, event.RunID, err)
	}
	return err
}
