// Package sweep scans for pending activities past their due date and emits a
// reminder notification per lead.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/notify"
	"github.com/medhirweb/salespipe/internal/store"
)

// Sweeper finds overdue activities and notifies per lead.
type Sweeper struct {
	store          store.Store
	notifier       notify.Notifier
	maxConcurrency int
}

// New creates a Sweeper.
func New(st store.Store, notifier notify.Notifier, maxConcurrency int) *Sweeper {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Sweeper{store: st, notifier: notifier, maxConcurrency: maxConcurrency}
}

// Sweep performs one scan and returns the number of leads notified.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	overdue, err := s.store.ListOverdueActivities(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	byLead := make(map[string][]model.Activity)
	for _, a := range overdue {
		byLead[a.LeadID] = append(byLead[a.LeadID], a)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for leadID, activities := range byLead {
		leadID, activities := leadID, activities
		g.Go(func() error {
			lead, err := s.store.GetLead(ctx, leadID)
			if err != nil {
				zap.L().Warn("sweep: skipping lead", zap.String("lead_id", leadID), zap.Error(err))
				return nil
			}
			s.notifier.Notify(ctx, notify.Event{
				Level:   notify.LevelError,
				Action:  "activities_overdue",
				LeadID:  leadID,
				Message: fmt.Sprintf("%d overdue activities for lead %s", len(activities), lead.Name),
				Details: map[string]any{"count": len(activities)},
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(byLead), nil
}

// Run repeats Sweep on the interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "sweep"))
	log.Info("starting overdue-activity sweeper", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			notified, err := s.Sweep(ctx)
			if err != nil {
				log.Error("sweep failed", zap.Error(err))
				continue
			}
			if notified > 0 {
				log.Info("sweep complete", zap.Int("leads_notified", notified))
			}
		}
	}
}
