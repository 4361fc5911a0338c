package services

import (
	"context"
	"time"

	"funneltrack/internal/core"
	"funneltrack/internal/log"
)

// SpendingStore is the persistence surface the spending service needs.
type SpendingStore interface {
	CreateSpending(ctx context.Context, owner string, s core.Spending) (string, error)
	ListSpendings(ctx context.Context, owner, funnelID string, from, to int64) ([]core.Spending, error)
	UpdateSpending(ctx context.Context, owner string, s core.Spending) error
	DeleteSpending(ctx context.Context, owner, id string) error
}

// SpendingService serves spending CRUD. Listing without an explicit
// window defaults to the current period start through now.
type SpendingService struct {
	store   SpendingStore
	periods core.Calculator
	now     func() time.Time
	logger  *log.Logger
}

func NewSpendingService(store SpendingStore, periods core.Calculator, logger *log.Logger) *SpendingService {
	return &SpendingService{
		store:   store,
		periods: periods,
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentSpending),
	}
}

// WithClock overrides the service clock. Test hook.
func (s *SpendingService) WithClock(now func() time.Time) *SpendingService {
	s.now = now
	return s
}

// Create records a spending. The timestamp defaults to now when the
// caller leaves it zero.
func (s *SpendingService) Create(ctx context.Context, owner string, spending core.Spending) (core.Spending, error) {
	if spending.Timestamp == 0 {
		spending.Timestamp = s.now().UnixMilli()
	}
	if err := spending.Validate(); err != nil {
		return core.Spending{}, err
	}
	id, err := s.store.CreateSpending(ctx, owner, spending)
	if err != nil {
		return core.Spending{}, err
	}
	spending.ID = id
	s.logger.InfoContext(ctx, "Spending recorded",
		log.FieldSpendingID, id, log.FieldFunnelID, spending.FunnelID, log.FieldUsername, owner)
	return spending, nil
}

// List returns the owner's spendings with timestamp in [from, to),
// optionally narrowed to one funnel. A zero from means the current
// period start; a zero to means now.
func (s *SpendingService) List(ctx context.Context, owner, funnelID string, from, to int64) ([]core.Spending, error) {
	now := s.now()
	if from == 0 {
		from = s.periods.StartMillis(now)
	}
	if to == 0 {
		to = now.UnixMilli()
	}
	return s.store.ListSpendings(ctx, owner, funnelID, from, to)
}

// Update replaces a spending's fields.
func (s *SpendingService) Update(ctx context.Context, owner string, spending core.Spending) error {
	if err := spending.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateSpending(ctx, owner, spending); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Spending updated",
		log.FieldSpendingID, spending.ID, log.FieldUsername, owner)
	return nil
}

// Delete removes a spending.
func (s *SpendingService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteSpending(ctx, owner, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Spending deleted",
		log.FieldSpendingID, id, log.FieldUsername, owner)
	return nil
}
