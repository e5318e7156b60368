package seating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/metrics"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	"github.com/kirinyoku/periodic-tables/internal/uow"
)

// Check reports every table/reservation pair that breaks the seating
// invariant, read from one consistent snapshot.
func (s *Service) Check(ctx context.Context) (domain.ConsistencyReport, error) {
	const op = "service.seating.Check"

	var issues []domain.Inconsistency

	err := s.store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		var err error
		issues, err = findInconsistencies(ctx, tx)
		return err
	})
	if err != nil {
		return domain.ConsistencyReport{}, fmt.Errorf("%s:%w", op, err)
	}

	record(issues)

	return domain.ConsistencyReport{Issues: issues}, nil
}

// Repair clears table assignments that point at non-seated reservations
// and returns seated reservations without a table to booked.
func (s *Service) Repair(ctx context.Context) (domain.ConsistencyReport, error) {
	const op = "service.seating.Repair"

	var report domain.ConsistencyReport

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		issues, err := findInconsistencies(ctx, tx)
		if err != nil {
			return err
		}

		dates := make([]string, 0, len(issues))

		for _, issue := range issues {
			switch issue.Kind {
			case domain.StaleAssignment:
				if _, err := tx.Tables().SetAssignment(ctx, *issue.TableID, nil); err != nil {
					return err
				}
			case domain.OrphanedSeating:
				r, err := tx.Reservations().UpdateStatus(ctx, issue.ReservationID, domain.StatusBooked)
				if err != nil {
					return err
				}
				dates = append(dates, r.ReservationDate)
			}
		}

		report = domain.ConsistencyReport{Issues: issues, Repaired: len(issues)}

		if len(issues) > 0 {
			after(func(ctx context.Context) {
				metrics.AddRepaired(len(issues))
				s.changed(ctx, domain.Change{Kind: domain.ChangeConsistencyRepaired}, dates...)
			})
		}

		return nil
	})
	if err != nil {
		return domain.ConsistencyReport{}, fmt.Errorf("%s:%w", op, err)
	}

	record(nil)

	return report, nil
}

// RunReconciler repairs inconsistencies every interval until ctx is done.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("reconciler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciler stopped")
			return nil
		case <-ticker.C:
			report, err := s.Repair(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.Error("reconcile failed", "error", err)
				continue
			}
			if report.Repaired > 0 {
				s.logger.Warn("repaired seating inconsistencies", "count", report.Repaired, "issues", report.Issues)
			}
		}
	}
}

func findInconsistencies(ctx context.Context, tx repository.Repos) ([]domain.Inconsistency, error) {
	issues := []domain.Inconsistency{}

	tables, err := tx.Tables().List(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range tables {
		if !t.Occupied() {
			continue
		}

		issue := domain.Inconsistency{
			Kind:          domain.StaleAssignment,
			TableID:       &t.ID,
			ReservationID: *t.ReservationID,
		}

		r, err := tx.Reservations().Get(ctx, *t.ReservationID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			issues = append(issues, issue)
		case err != nil:
			return nil, err
		case r.Status != domain.StatusSeated:
			issue.Status = r.Status
			issues = append(issues, issue)
		}
	}

	seated, err := tx.Reservations().ListByStatus(ctx, domain.StatusSeated)
	if err != nil {
		return nil, err
	}

	for _, r := range seated {
		_, err := tx.Tables().FindByReservation(ctx, r.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			issues = append(issues, domain.Inconsistency{
				Kind:          domain.OrphanedSeating,
				ReservationID: r.ID,
				Status:        r.Status,
			})
		case err != nil:
			return nil, err
		}
	}

	return issues, nil
}

func record(issues []domain.Inconsistency) {
	counts := map[string]int{
		string(domain.StaleAssignment): 0,
		string(domain.OrphanedSeating): 0,
	}
	for _, issue := range issues {
		counts[string(issue.Kind)]++
	}
	metrics.SetInconsistencies(counts)
}
