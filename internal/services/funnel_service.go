// Package services orchestrates funnel and spending operations over
// the storage layer, attaching the derived per-period figures the
// core computes.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"funneltrack/internal/core"
	"funneltrack/internal/log"
)

// FunnelStore is the persistence surface the funnel service needs.
type FunnelStore interface {
	CreateFunnel(ctx context.Context, f core.Funnel) (string, error)
	ListFunnels(ctx context.Context, owner string) ([]core.Funnel, error)
	GetFunnel(ctx context.Context, id, owner string) (core.Funnel, error)
	UpdateFunnel(ctx context.Context, f core.Funnel) error
	DeleteFunnel(ctx context.Context, id, owner string) error
	SumSpendings(ctx context.Context, funnelID string, from, to int64) (decimal.Decimal, error)
}

// FunnelService serves funnel CRUD and computes each funnel's
// remaining and daily figures against the current period on read.
type FunnelService struct {
	store   FunnelStore
	periods core.Calculator
	now     func() time.Time
	logger  *log.Logger
}

func NewFunnelService(store FunnelStore, periods core.Calculator, logger *log.Logger) *FunnelService {
	return &FunnelService{
		store:   store,
		periods: periods,
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentFunnel),
	}
}

// WithClock overrides the service clock. Test hook.
func (s *FunnelService) WithClock(now func() time.Time) *FunnelService {
	s.now = now
	return s
}

// List returns the owner's funnels, each with remaining and daily
// derived for the instant of the call.
func (s *FunnelService) List(ctx context.Context, owner string) ([]core.FunnelView, error) {
	funnels, err := s.store.ListFunnels(ctx, owner)
	if err != nil {
		return nil, err
	}
	views := make([]core.FunnelView, 0, len(funnels))
	for _, f := range funnels {
		view, err := s.derive(ctx, f)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns a single funnel with derived figures.
func (s *FunnelService) Get(ctx context.Context, id, owner string) (core.FunnelView, error) {
	f, err := s.store.GetFunnel(ctx, id, owner)
	if err != nil {
		return core.FunnelView{}, err
	}
	return s.derive(ctx, f)
}

// Create validates and persists a new funnel, returning it with its
// derived figures (a fresh funnel has its full limit remaining).
func (s *FunnelService) Create(ctx context.Context, f core.Funnel) (core.FunnelView, error) {
	if err := f.Validate(); err != nil {
		return core.FunnelView{}, err
	}
	id, err := s.store.CreateFunnel(ctx, f)
	if err != nil {
		return core.FunnelView{}, err
	}
	f.ID = id
	s.logger.InfoContext(ctx, "Funnel created",
		log.FieldFunnelID, id, log.FieldUsername, f.Owner)
	return core.Derive(f, decimal.Zero, s.periods.PeriodAt(s.now())), nil
}

// Update replaces the funnel's mutable fields.
func (s *FunnelService) Update(ctx context.Context, f core.Funnel) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateFunnel(ctx, f); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Funnel updated",
		log.FieldFunnelID, f.ID, log.FieldUsername, f.Owner)
	return nil
}

// Delete removes the funnel; its spendings go with it.
func (s *FunnelService) Delete(ctx context.Context, id, owner string) error {
	if err := s.store.DeleteFunnel(ctx, id, owner); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Funnel deleted",
		log.FieldFunnelID, id, log.FieldUsername, owner)
	return nil
}

func (s *FunnelService) derive(ctx context.Context, f core.Funnel) (core.FunnelView, error) {
	now := s.now()
	period := s.periods.PeriodAt(now)
	spent, err := s.store.SumSpendings(ctx, f.ID, period.StartMillis(), now.UnixMilli())
	if err != nil {
		return core.FunnelView{}, fmt.Errorf("sum period spendings: %w", err)
	}
	return core.Derive(f, spent, period), nil
}
