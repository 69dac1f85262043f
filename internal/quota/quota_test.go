package quota

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/routing"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu       sync.Mutex
	count    int
	countErr error
	recErr   error
	panicMsg string
	records  []UsageRecord
}

func (f *fakeStore) DailyCount(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

func (f *fakeStore) RecordUsage(_ context.Context, rec UsageRecord) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.recErr
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

type failingTiers struct{}

func (failingTiers) ResolveTier(context.Context, string) (routing.Tier, error) {
	return "", errors.New("tier service down")
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// =============================================================================
// Checker
// =============================================================================

func TestChecker_Boundaries(t *testing.T) {
	tests := []struct {
		name      string
		tier      routing.Tier
		count     int
		remaining int
		exceeded  bool
	}{
		{"free fresh", routing.TierFree, 0, 15, false},
		{"free one left", routing.TierFree, 14, 1, false},
		{"free at limit", routing.TierFree, 15, 0, true},
		{"free over limit", routing.TierFree, 40, 0, true},
		{"premium", routing.TierPremium, 149, 1, false},
		{"premiumPlus", routing.TierPremiumPlus, 10, 990, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{count: tt.count}
			c := NewChecker(store, StaticTierResolver{Tier: tt.tier}, time.UTC)

			st := c.Check(context.Background(), "u1")
			assert.Equal(t, tt.tier, st.Tier)
			assert.Equal(t, tt.tier.DailyLimit(), st.Limit)
			assert.Equal(t, tt.remaining, st.Remaining)
			assert.Equal(t, tt.exceeded, st.Exceeded())
		})
	}
}

func TestChecker_CollaboratorFailures(t *testing.T) {
	store := &fakeStore{count: 99, countErr: errors.New("db down")}
	c := NewChecker(store, failingTiers{}, time.UTC)

	st := c.Check(context.Background(), "u1")
	assert.Equal(t, routing.TierFree, st.Tier)
	assert.Equal(t, 0, st.Count)
	assert.Equal(t, 15, st.Remaining)
	assert.False(t, st.Exceeded())
}

// blockingStore never answers before its context ends.
type blockingStore struct{ fakeStore }

func (b *blockingStore) DailyCount(ctx context.Context, _ string) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestChecker_LookupTimeout(t *testing.T) {
	c := NewChecker(&blockingStore{}, StaticTierResolver{Tier: routing.TierPremium}, time.UTC,
		WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	st := c.Check(context.Background(), "u1")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, routing.TierPremium, st.Tier)
	assert.Equal(t, 0, st.Count)
	assert.Equal(t, 150, st.Remaining)

	// non-positive keeps the default
	d := NewChecker(&fakeStore{}, StaticTierResolver{}, time.UTC, WithLookupTimeout(0))
	assert.Equal(t, config.DefaultCollaboratorTimeout, d.timeout)
}

func TestChecker_ResetAtNextMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC) // 01:30 on the 11th in loc

	c := NewChecker(&fakeStore{}, StaticTierResolver{}, loc, WithClock(fixedClock(now)))
	st := c.Check(context.Background(), "u1")

	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, loc), st.ResetAt)
	assert.Equal(t, "2026-03-11", c.Today())
}

func TestNextReset_MonthRollover(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), NextReset(now, time.UTC))
}

// =============================================================================
// Tier resolvers
// =============================================================================

func TestNewTierResolver(t *testing.T) {
	ctx := context.Background()

	static := NewTierResolver("premium", nil)
	tier, err := static.ResolveTier(ctx, "anyone")
	require.NoError(t, err)
	assert.Equal(t, routing.TierPremium, tier)

	mapped := NewTierResolver("", map[string]string{"vip": "premiumPlus", "odd": "gold"})
	tier, _ = mapped.ResolveTier(ctx, "vip")
	assert.Equal(t, routing.TierPremiumPlus, tier)
	tier, _ = mapped.ResolveTier(ctx, "odd")
	assert.Equal(t, routing.TierFree, tier)
	tier, _ = mapped.ResolveTier(ctx, "someone")
	assert.Equal(t, routing.TierFree, tier)
}

// =============================================================================
// SQLiteStore
// =============================================================================

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "usage.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RecordAndCount(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	store.now = fixedClock(now)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	count, err := store.DailyCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	rec := UsageRecord{UserID: "u1", Date: "2026-05-04", Model: "gpt-4o-mini", Provider: "openai", InputTokens: 10, OutputTokens: 5, RequestCount: 1}
	require.NoError(t, store.RecordUsage(ctx, rec))
	require.NoError(t, store.RecordUsage(ctx, rec))
	require.NoError(t, store.RecordUsage(ctx, UsageRecord{UserID: "u1", Date: "2026-05-04", Model: "gemini-2.5-flash", Provider: "google", RequestCount: 1}))
	// another day and another user do not count
	require.NoError(t, store.RecordUsage(ctx, UsageRecord{UserID: "u1", Date: "2026-05-03", Model: "gpt-4o", Provider: "openai", RequestCount: 1}))
	require.NoError(t, store.RecordUsage(ctx, UsageRecord{UserID: "u2", Date: "2026-05-04", Model: "gpt-4o", Provider: "openai", RequestCount: 1}))

	count, err = store.DailyCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	usage, err := store.Usage(ctx, "u1", "2026-05-04")
	require.NoError(t, err)
	assert.Equal(t, 20, usage.InputTokens)
	assert.Equal(t, 10, usage.OutputTokens)
	assert.Equal(t, 3, usage.RequestCount)
}

func TestSQLiteStore_DefaultsDate(t *testing.T) {
	store := openTestStore(t)
	store.now = fixedClock(time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, store.RecordUsage(ctx, UsageRecord{UserID: "u1", Model: "m", Provider: "openai", RequestCount: 1}))

	usage, err := store.Usage(ctx, "u1", "2026-05-04")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.RequestCount)
}

func TestSQLiteStore_DrivesChecker(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	today := time.Now().UTC().Format(DateLayout)

	for i := 0; i < 14; i++ {
		require.NoError(t, store.RecordUsage(ctx, UsageRecord{UserID: "u1", Date: today, Model: "m", Provider: "openai", RequestCount: 1}))
	}

	c := NewChecker(store, StaticTierResolver{}, time.UTC)
	st := c.Check(ctx, "u1")
	assert.Equal(t, 1, st.Remaining)

	require.NoError(t, store.RecordUsage(ctx, UsageRecord{UserID: "u1", Date: today, Model: "m", Provider: "openai", RequestCount: 1}))
	assert.True(t, c.Check(ctx, "u1").Exceeded())
}

// =============================================================================
// RPCStore
// =============================================================================

type fakeRPC struct {
	calls  []string
	params []any
	result int
	null   bool
	err    error
}

func (f *fakeRPC) RPC(_ context.Context, fn string, params any, result any) error {
	f.calls = append(f.calls, fn)
	f.params = append(f.params, params)
	if f.err != nil {
		return f.err
	}
	if out, ok := result.(**int); ok && !f.null {
		v := f.result
		*out = &v
	}
	return nil
}

func TestRPCStore(t *testing.T) {
	ctx := context.Background()

	t.Run("count", func(t *testing.T) {
		rpc := &fakeRPC{result: 7}
		n, err := NewRPCStore(rpc).DailyCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
		assert.Equal(t, []string{"get_daily_ai_message_count"}, rpc.calls)
	})

	t.Run("null count is zero", func(t *testing.T) {
		n, err := NewRPCStore(&fakeRPC{null: true}).DailyCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewRPCStore(&fakeRPC{err: boom}).DailyCount(ctx, "u1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("record usage", func(t *testing.T) {
		rpc := &fakeRPC{}
		err := NewRPCStore(rpc).RecordUsage(ctx, UsageRecord{UserID: "u1", Date: "2026-05-04", Model: "gpt-4o", Provider: "openai", InputTokens: 3, OutputTokens: 4, RequestCount: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"increment_token_usage"}, rpc.calls)
	})
}

// =============================================================================
// Recorder
// =============================================================================

func TestRecorder_WritesInBackground(t *testing.T) {
	store := &fakeStore{}
	var ok, failed atomic.Int32
	r := NewRecorder(store, time.Second, func(err error) {
		if err != nil {
			failed.Add(1)
			return
		}
		ok.Add(1)
	})

	r.RecordAsync(UsageRecord{UserID: "u1", RequestCount: 1})
	r.RecordAsync(UsageRecord{UserID: "u2", RequestCount: 1})
	r.Wait()

	assert.Len(t, store.records, 2)
	assert.Equal(t, int32(2), ok.Load())
	assert.Equal(t, int32(0), failed.Load())
}

func TestRecorder_FailuresAreContained(t *testing.T) {
	var failures atomic.Int32
	onResult := func(err error) {
		if err != nil {
			failures.Add(1)
		}
	}

	NewRecorder(&fakeStore{recErr: errors.New("write failed")}, 0, onResult).RecordAsync(UsageRecord{UserID: "u1"})

	r := NewRecorder(&fakeStore{panicMsg: "driver bug"}, 0, onResult)
	r.RecordAsync(UsageRecord{UserID: "u1"})
	r.Wait()

	assert.Eventually(t, func() bool { return failures.Load() == 2 }, time.Second, 10*time.Millisecond)
}
