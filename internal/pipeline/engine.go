package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"persona-engine/internal/catalog"
	"persona-engine/internal/detect"
	"persona-engine/internal/match"
	"persona-engine/internal/signal"
	"persona-engine/internal/window"
)

// Result carries both the decision and the raw signal set that produced
// it, for transparency surfaces that need metric values beside the
// assignment.
type Result struct {
	Signals  *signal.Set           `json:"signals"`
	Assigned match.AssignedPersona `json:"assigned"`
}

// Options tune engine behaviour.
type Options struct {
	// Now stamps GeneratedAt on signal sets. Defaults to time.Now.
	Now func() time.Time
}

// Engine evaluates users against a fixed catalog. It holds no mutable
// state: any number of users may be evaluated in parallel on one Engine.
type Engine struct {
	resolver  *window.Resolver
	detectors []detect.Detector
	cat       *catalog.Catalog
	now       func() time.Time
	logger    zerolog.Logger
}

// New constructs an evaluation engine.
func New(resolver *window.Resolver, detectors []detect.Detector, cat *catalog.Catalog, opts Options, logger zerolog.Logger) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		resolver:  resolver,
		detectors: detectors,
		cat:       cat,
		now:       now,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Evaluate runs the full pipeline for one user. Window resolution is the
// only blocking step; everything after operates on materialised data.
func (e *Engine) Evaluate(ctx context.Context, userID string, refDate time.Time) (Result, error) {
	datasets := make(map[int]window.Dataset, len(signal.WindowLengths))
	for _, length := range signal.WindowLengths {
		ds, err := e.resolver.Resolve(ctx, userID, refDate, length)
		if err != nil {
			return Result{}, stageErr(StageWindowsResolved, userID, err)
		}
		datasets[length] = ds
	}

	outputs := e.runDetectors(userID, datasets)

	set := signal.Aggregate(userID, datasets[window.LengthShort].Window.ReferenceDate, e.now().UTC(), outputs)

	matches := match.MatchAll(set, e.cat.Personas())
	assigned := match.Resolve(userID, set.ReferenceDate, matches, e.cat.FallbackPersona())

	e.logger.Debug().
		Str("user_id", userID).
		Str("persona_id", assigned.PersonaID).
		Str("reason", assigned.ResolutionReason).
		Int("fallbacks", len(set.FallbacksApplied)).
		Msg("evaluation resolved")

	return Result{Signals: set, Assigned: assigned}, nil
}

// runDetectors dispatches every detector over both windows concurrently
// and joins before aggregation. Each invocation writes only its own
// preallocated slot, so the join needs no extra synchronisation. A panic
// inside one detector is contained: its block is marked failed and the
// user's evaluation continues.
func (e *Engine) runDetectors(userID string, datasets map[int]window.Dataset) []signal.DetectorOutput {
	outputs := make([]signal.DetectorOutput, len(e.detectors)*len(signal.WindowLengths))

	var g errgroup.Group
	slot := 0
	for _, det := range e.detectors {
		for _, length := range signal.WindowLengths {
			det, length, idx := det, length, slot
			slot++
			ds := datasets[length]

			g.Go(func() error {
				out := signal.DetectorOutput{
					Detector:     det.Name(),
					LengthDays:   length,
					DataComplete: ds.DataComplete,
				}
				rec, err := e.safeDetect(det, ds)
				if err != nil {
					e.logger.Error().
						Err(err).
						Str("user_id", userID).
						Str("detector", det.Name()).
						Int("length_days", length).
						Msg("detector failed; block defaulted")
					out.Failed = true
					out.Record = signal.NewRecord(det.Name(), length)
				} else {
					out.Record = rec
				}
				outputs[idx] = out
				return nil
			})
		}
	}
	_ = g.Wait()

	return outputs
}

func (e *Engine) safeDetect(det detect.Detector, ds window.Dataset) (rec signal.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return det.Detect(ds), nil
}
