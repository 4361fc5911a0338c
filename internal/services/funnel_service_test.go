package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funneltrack/internal/core"
	"funneltrack/internal/log"
)

// fakeStore implements FunnelStore and SpendingStore in memory.
type fakeStore struct {
	funnels   map[string]core.Funnel
	spendings map[string]core.Spending
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		funnels:   make(map[string]core.Funnel),
		spendings: make(map[string]core.Spending),
	}
}

func (s *fakeStore) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *fakeStore) CreateFunnel(_ context.Context, f core.Funnel) (string, error) {
	f.ID = s.id()
	s.funnels[f.ID] = f
	return f.ID, nil
}

func (s *fakeStore) ListFunnels(_ context.Context, owner string) ([]core.Funnel, error) {
	var out []core.Funnel
	for _, f := range s.funnels {
		if f.Owner == owner {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) GetFunnel(_ context.Context, id, owner string) (core.Funnel, error) {
	f, ok := s.funnels[id]
	if !ok || f.Owner != owner {
		return core.Funnel{}, fmt.Errorf("funnel %s: not found", id)
	}
	return f, nil
}

func (s *fakeStore) UpdateFunnel(_ context.Context, f core.Funnel) error {
	old, ok := s.funnels[f.ID]
	if !ok || old.Owner != f.Owner {
		return fmt.Errorf("funnel %s: not found", f.ID)
	}
	s.funnels[f.ID] = f
	return nil
}

func (s *fakeStore) DeleteFunnel(_ context.Context, id, owner string) error {
	f, ok := s.funnels[id]
	if !ok || f.Owner != owner {
		return fmt.Errorf("funnel %s: not found", id)
	}
	delete(s.funnels, id)
	for sid, sp := range s.spendings {
		if sp.FunnelID == id {
			delete(s.spendings, sid)
		}
	}
	return nil
}

func (s *fakeStore) SumSpendings(_ context.Context, funnelID string, from, to int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, sp := range s.spendings {
		if sp.FunnelID == funnelID && sp.Timestamp >= from && sp.Timestamp < to {
			total = total.Add(sp.Amount)
		}
	}
	return total, nil
}

func (s *fakeStore) CreateSpending(_ context.Context, owner string, sp core.Spending) (string, error) {
	if f, ok := s.funnels[sp.FunnelID]; !ok || f.Owner != owner {
		return "", fmt.Errorf("funnel %s: not found", sp.FunnelID)
	}
	sp.ID = s.id()
	s.spendings[sp.ID] = sp
	return sp.ID, nil
}

func (s *fakeStore) ListSpendings(_ context.Context, owner, funnelID string, from, to int64) ([]core.Spending, error) {
	var out []core.Spending
	for _, sp := range s.spendings {
		f, ok := s.funnels[sp.FunnelID]
		if !ok || f.Owner != owner {
			continue
		}
		if funnelID != "" && sp.FunnelID != funnelID {
			continue
		}
		if sp.Timestamp >= from && sp.Timestamp < to {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateSpending(_ context.Context, owner string, sp core.Spending) error {
	old, ok := s.spendings[sp.ID]
	if !ok {
		return fmt.Errorf("spending %s: not found", sp.ID)
	}
	if f, okf := s.funnels[old.FunnelID]; !okf || f.Owner != owner {
		return fmt.Errorf("spending %s: not found", sp.ID)
	}
	s.spendings[sp.ID] = sp
	return nil
}

func (s *fakeStore) DeleteSpending(_ context.Context, owner, id string) error {
	sp, ok := s.spendings[id]
	if !ok {
		return fmt.Errorf("spending %s: not found", id)
	}
	if f, okf := s.funnels[sp.FunnelID]; !okf || f.Owner != owner {
		return fmt.Errorf("spending %s: not found", id)
	}
	delete(s.spendings, id)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

// Frozen at 2023-09-20; with breakpoint 5 the period is Sep 5 – Oct 5,
// 30 days long, 14 remaining.
var testNow = time.Date(2023, 9, 20, 12, 0, 0, 0, time.UTC)

func newFunnelService(store *fakeStore) *FunnelService {
	return NewFunnelService(store, core.NewCalculator(5), testLogger()).
		WithClock(func() time.Time { return testNow })
}

func newSpendingService(store *fakeStore) *SpendingService {
	return NewSpendingService(store, core.NewCalculator(5), testLogger()).
		WithClock(func() time.Time { return testNow })
}

func TestFunnelServiceCreateDerivesFullLimit(t *testing.T) {
	store := newFakeStore()
	svc := newFunnelService(store)

	view, err := svc.Create(context.Background(), core.Funnel{
		Name: "Groceries", Limit: decimal.RequireFromString("300"), Owner: "alice",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.True(t, view.Remaining.Equal(decimal.RequireFromString("300")))
	// daily = 300 - 300*14/30 = 160
	assert.True(t, view.Daily.Equal(decimal.RequireFromString("160")), "daily = %s", view.Daily)
}

func TestFunnelServiceCreateValidates(t *testing.T) {
	svc := newFunnelService(newFakeStore())
	_, err := svc.Create(context.Background(), core.Funnel{Name: "", Limit: decimal.New(1, 0)})
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestFunnelServiceListDerivesAgainstPeriod(t *testing.T) {
	store := newFakeStore()
	funnels := newFunnelService(store)
	spendings := newSpendingService(store)
	ctx := context.Background()

	view, err := funnels.Create(ctx, core.Funnel{
		Name: "Groceries", Limit: decimal.RequireFromString("300"), Owner: "alice",
	})
	require.NoError(t, err)

	inPeriod := time.Date(2023, 9, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	beforePeriod := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	_, err = spendings.Create(ctx, "alice", core.Spending{
		Amount: decimal.RequireFromString("40"), Timestamp: inPeriod, FunnelID: view.ID,
	})
	require.NoError(t, err)
	// A spending before the period start must not affect remaining.
	_, err = spendings.Create(ctx, "alice", core.Spending{
		Amount: decimal.RequireFromString("999"), Timestamp: beforePeriod, FunnelID: view.ID,
	})
	require.NoError(t, err)

	views, err := funnels.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Remaining.Equal(decimal.RequireFromString("260")),
		"remaining = %s", views[0].Remaining)
	// daily = 260 - 300*14/30 = 120
	assert.True(t, views[0].Daily.Equal(decimal.RequireFromString("120")),
		"daily = %s", views[0].Daily)
}

func TestSpendingServiceDefaultWindow(t *testing.T) {
	store := newFakeStore()
	funnels := newFunnelService(store)
	spendings := newSpendingService(store)
	ctx := context.Background()

	view, err := funnels.Create(ctx, core.Funnel{
		Name: "Groceries", Limit: decimal.RequireFromString("300"), Owner: "alice",
	})
	require.NoError(t, err)

	inPeriod := time.Date(2023, 9, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	beforePeriod := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	for _, ts := range []int64{inPeriod, beforePeriod} {
		_, err = spendings.Create(ctx, "alice", core.Spending{
			Amount: decimal.New(1, 0), Timestamp: ts, FunnelID: view.ID,
		})
		require.NoError(t, err)
	}

	// Zero bounds default to the current period.
	list, err := spendings.List(ctx, "alice", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inPeriod, list[0].Timestamp)

	// Explicit bounds are honored.
	list, err = spendings.List(ctx, "alice", "", beforePeriod, inPeriod+1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSpendingServiceCreateDefaultsTimestamp(t *testing.T) {
	store := newFakeStore()
	funnels := newFunnelService(store)
	spendings := newSpendingService(store)
	ctx := context.Background()

	view, err := funnels.Create(ctx, core.Funnel{
		Name: "Groceries", Limit: decimal.RequireFromString("300"), Owner: "alice",
	})
	require.NoError(t, err)

	created, err := spendings.Create(ctx, "alice", core.Spending{
		Amount: decimal.New(5, 0), FunnelID: view.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), created.Timestamp)
	assert.NotEmpty(t, created.ID)
}
