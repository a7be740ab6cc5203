package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"prs/internal/rationing/models"
	"prs/pkg/platform/sentinel"
)

// gatherTimeout bounds the reference data lookups of one evaluation.
const gatherTimeout = 2 * time.Second

// facts is the read-mostly reference data one evaluation needs. Nil records were not found.
type facts struct {
	individual   *models.Individual
	guardian     *models.Individual
	item         *models.CriticalItem
	schedule     *models.PurchaseSchedule
	limits       []*models.PurchaseLimit
	vaccinations []*models.VaccinationRecord
}

// gather fetches reference data in parallel with shared cancellation.
func (e *Evaluator) gather(ctx context.Context, req models.EligibilityRequest) (*facts, error) {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	f := &facts{}

	g.Go(func() error {
		start := time.Now()
		ind, err := e.catalog.GetIndividual(gctx, req.IndividualID)
		e.metrics.ObserveGatherLatency("individual", time.Since(start))
		if err != nil {
			return notFoundOK(err, "get individual")
		}
		f.individual = ind
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		item, err := e.catalog.GetItem(gctx, req.ItemID)
		e.metrics.ObserveGatherLatency("item", time.Since(start))
		if err != nil {
			return notFoundOK(err, "get item")
		}
		f.item = item
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		sched, err := e.catalog.GetSchedule(gctx, req.ItemID)
		e.metrics.ObserveGatherLatency("schedule", time.Since(start))
		if err != nil {
			return notFoundOK(err, "get schedule")
		}
		f.schedule = sched
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		limits, err := e.catalog.ListLimits(gctx, req.ItemID)
		e.metrics.ObserveGatherLatency("limits", time.Since(start))
		if err != nil {
			return fmt.Errorf("list limits: %w", err)
		}
		f.limits = limits
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		records, err := e.catalog.ListVaccinations(gctx, req.IndividualID)
		e.metrics.ObserveGatherLatency("vaccinations", time.Since(start))
		if err != nil {
			return fmt.Errorf("list vaccinations: %w", err)
		}
		f.vaccinations = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Guardians are one hop away; they are never minors themselves.
	if f.individual != nil && f.individual.IsMinor && f.individual.GuardianID != nil {
		guardian, err := e.catalog.GetIndividual(ctx, *f.individual.GuardianID)
		if err != nil {
			if nfErr := notFoundOK(err, "get guardian"); nfErr != nil {
				return nil, nfErr
			}
		} else {
			f.guardian = guardian
		}
	}
	return f, nil
}

// notFoundOK swallows sentinel.ErrNotFound so the decision can report it as a reason.
func notFoundOK(err error, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
