package selector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

type fakeSignalStore struct {
	mu      sync.Mutex
	signals map[int64]*domain.Signal
}

func newFakeSignalStore(signals ...domain.Signal) *fakeSignalStore {
	f := &fakeSignalStore{signals: make(map[int64]*domain.Signal)}
	for i, s := range signals {
		cp := s
		cp.ID = int64(i + 1)
		f.signals[cp.ID] = &cp
	}
	return f
}

func (f *fakeSignalStore) InsertSignal(ctx context.Context, s domain.Signal) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.signals) + 1)
	s.ID = id
	f.signals[id] = &s
	return id, nil
}

func (f *fakeSignalStore) UpdateSignalStatus(ctx context.Context, id int64, from, to domain.SignalStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.signals[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (f *fakeSignalStore) ListActiveSignals(ctx context.Context, olderThan time.Time) ([]domain.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Signal
	for _, s := range f.signals {
		if s.Status == domain.SignalActive && !s.CreatedAt.Before(olderThan) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSignalStore) CountSignalsToday(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeSignalStore) ExpireStaleSignals(ctx context.Context, maxAge time.Duration) (int, error) {
	return 0, nil
}

func sampleSignal(symbol string, score float64, age time.Duration) domain.Signal {
	return domain.Signal{
		Symbol:    symbol,
		Direction: domain.DirectionLong,
		Score:     score,
		CreatedAt: time.Now().Add(-age),
		Levels:    domain.Levels{Entry: 100, StopLoss: 95, TP1: 105, TP2: 110, TP3: 115},
		Status:    domain.SignalActive,
	}
}

func TestSelect_PicksHighestQualityCandidate(t *testing.T) {
	store := newFakeSignalStore(
		sampleSignal("BTCUSDT", 0.70, time.Minute),
		sampleSignal("ETHUSDT", 0.90, time.Minute),
	)
	sel := New(DefaultConfig(), store, nil, nil)

	picked, err := sel.Select(context.Background(), time.Now(), map[string]bool{}, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "ETHUSDT", picked.Symbol)
	assert.Equal(t, domain.SignalConsumed, picked.Status)
}

func TestSelect_ExcludesOpenPositionSymbols(t *testing.T) {
	store := newFakeSignalStore(sampleSignal("BTCUSDT", 1.0, time.Minute))
	sel := New(DefaultConfig(), store, nil, nil)

	picked, err := sel.Select(context.Background(), time.Now(), map[string]bool{"BTCUSDT": true}, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, picked)
}

func TestSelect_CooldownGateBlocksSecondTick(t *testing.T) {
	store := newFakeSignalStore(
		sampleSignal("BTCUSDT", 0.80, time.Minute),
		sampleSignal("ETHUSDT", 0.80, time.Minute),
	)
	cfg := DefaultConfig()
	cfg.Cooldown = 5 * time.Minute
	sel := New(cfg, store, nil, nil)

	now := time.Now()
	first, err := sel.Select(context.Background(), now, map[string]bool{}, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := sel.Select(context.Background(), now.Add(2*time.Minute), map[string]bool{}, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestSelect_PortfolioFullReturnsNone(t *testing.T) {
	store := newFakeSignalStore(sampleSignal("BTCUSDT", 1.0, time.Minute))
	cfg := DefaultConfig()
	cfg.MaxConcurrentPositions = 1
	sel := New(cfg, store, nil, nil)

	picked, err := sel.Select(context.Background(), time.Now(), map[string]bool{}, 1, 0)
	require.NoError(t, err)
	assert.Nil(t, picked)
}

func TestSelect_DoubleConsumeReturnsFalseOnSecondCall(t *testing.T) {
	store := newFakeSignalStore(sampleSignal("BTCUSDT", 1.0, time.Minute))

	ok1, err := store.UpdateSignalStatus(context.Background(), 1, domain.SignalActive, domain.SignalConsumed)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := store.UpdateSignalStatus(context.Background(), 1, domain.SignalActive, domain.SignalConsumed)
	require.NoError(t, err)
	assert.False(t, ok2)
}
