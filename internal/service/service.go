// Package service wraps the evaluation pipeline with the operational
// concerns the core deliberately stays free of: batch fan-out over the
// user population, assignment auditing, event publishing, and the
// scheduled re-evaluation loop.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"persona-engine/internal/pipeline"
	"persona-engine/internal/publish"
	"persona-engine/internal/scheduler"
	"persona-engine/internal/storage"
)

// UserLister enumerates the user population to evaluate.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Options configure the service.
type Options struct {
	// Workers bounds concurrent user evaluations in a batch.
	Workers int
	// LockKey guards batch runs with a postgres advisory lock when a
	// locker is available. Zero disables locking.
	LockKey int64
}

// Service orchestrates evaluation, auditing, and publishing.
type Service struct {
	engine    *pipeline.Engine
	users     UserLister
	audit     storage.AssignmentStore
	publisher publish.Publisher
	locker    storage.AdvisoryLocker
	sched     *scheduler.Scheduler
	workers   int
	lockKey   int64
	logger    zerolog.Logger
}

// New constructs the service. The audit store, publisher, locker, and
// scheduler are all optional.
func New(engine *pipeline.Engine, users UserLister, audit storage.AssignmentStore, publisher publish.Publisher, locker storage.AdvisoryLocker, sched *scheduler.Scheduler, opts Options, logger zerolog.Logger) *Service {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		engine:    engine,
		users:     users,
		audit:     audit,
		publisher: publisher,
		locker:    locker,
		sched:     sched,
		workers:   workers,
		lockKey:   opts.LockKey,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// EvaluateUser runs one user through the pipeline, then records and
// publishes the assignment. Audit and publish failures are logged, not
// fatal: the evaluation result already exists and is returned regardless.
func (s *Service) EvaluateUser(ctx context.Context, userID string, refDate time.Time) (pipeline.Result, error) {
	res, err := s.engine.Evaluate(ctx, userID, refDate)
	if err != nil {
		return pipeline.Result{}, err
	}

	if s.audit != nil {
		if err := s.recordAssignment(ctx, res); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to record assignment")
		}
	}

	if s.publisher != nil {
		event := publish.EventFromAssignment(res.Assigned, res.Signals.GeneratedAt)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to publish assignment event")
		}
	}

	return res, nil
}

// BatchSummary reports the outcome of one batch run.
type BatchSummary struct {
	ReferenceDate time.Time
	Users         int
	Evaluated     int
	Failed        int
	ByPersona     map[string]int
}

// RunBatch evaluates every user in the store for the given reference
// date. Per-user failures are isolated: they are counted and logged, and
// the batch continues.
func (s *Service) RunBatch(ctx context.Context, refDate time.Time) (BatchSummary, error) {
	if s.lockKey != 0 && s.locker != nil {
		unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
		if err != nil {
			return BatchSummary{}, fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !acquired {
			s.logger.Warn().Msg("batch skipped; advisory lock held elsewhere")
			return BatchSummary{ReferenceDate: refDate}, nil
		}
		defer unlock()
	}

	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("list users: %w", err)
	}

	summary := BatchSummary{
		ReferenceDate: refDate,
		Users:         len(userIDs),
		ByPersona:     make(map[string]int),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			res, err := s.EvaluateUser(gctx, userID, refDate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				s.logger.Error().Err(err).Str("user_id", userID).Msg("user evaluation failed")
				return nil
			}
			summary.Evaluated++
			summary.ByPersona[res.Assigned.PersonaID]++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	s.logger.Info().
		Time("reference_date", refDate).
		Int("users", summary.Users).
		Int("evaluated", summary.Evaluated).
		Int("failed", summary.Failed).
		Msg("batch complete")

	return summary, nil
}

// Run drives scheduled batch runs until the context is cancelled. Each
// tick evaluates the population against the tick's date.
func (s *Service) Run(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		_, err := s.RunBatch(ctx, at)
		return err
	})
}

func (s *Service) recordAssignment(ctx context.Context, res pipeline.Result) error {
	evidence, err := json.Marshal(res.Assigned.AllMatches)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = s.audit.UpsertAssignment(ctx, storage.AssignmentRecord{
		UserID:           res.Assigned.UserID,
		ReferenceDate:    res.Assigned.ReferenceDate,
		PersonaID:        res.Assigned.PersonaID,
		PriorityRank:     res.Assigned.PriorityRank,
		ResolutionReason: res.Assigned.ResolutionReason,
		MatchedCount:     countMatched(res),
		Evidence:         evidence,
	})
	return err
}

func countMatched(res pipeline.Result) int {
	n := 0
	for _, m := range res.Assigned.AllMatches {
		if m.Matched {
			n++
		}
	}
	return n
}
