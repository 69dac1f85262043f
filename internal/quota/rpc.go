package quota

import (
	"context"
	"fmt"

	"github.com/starnote/ai-gateway/internal/supabase"
)

// Database functions called by RPCStore.
const (
	rpcDailyCount     = "get_daily_ai_message_count"
	rpcIncrementUsage = "increment_token_usage"
)

// RPCCaller invokes a remote database function.
type RPCCaller interface {
	RPC(ctx context.Context, function string, params any, result any) error
}

// RPCStore keeps usage in the hosted database through its RPC endpoint.
// The day boundary for DailyCount is decided by the database function.
type RPCStore struct {
	client RPCCaller
}

// NewRPCStore creates a store backed by client.
func NewRPCStore(client RPCCaller) *RPCStore {
	return &RPCStore{client: client}
}

// DailyCount implements Store. A null result counts as zero.
func (s *RPCStore) DailyCount(ctx context.Context, userID string) (int, error) {
	var count *int
	if err := s.client.RPC(ctx, rpcDailyCount, supabase.DailyCountParams{UserID: userID}, &count); err != nil {
		return 0, fmt.Errorf("%s: %w", rpcDailyCount, err)
	}
	if count == nil {
		return 0, nil
	}
	return *count, nil
}

// RecordUsage implements Store.
func (s *RPCStore) RecordUsage(ctx context.Context, rec UsageRecord) error {
	params := supabase.IncrementUsageParams{
		UserID:        rec.UserID,
		Date:          rec.Date,
		Model:         rec.Model,
		Provider:      rec.Provider,
		InputTokens:   rec.InputTokens,
		OutputTokens:  rec.OutputTokens,
		RequestCount:  rec.RequestCount,
		EstimatedCost: rec.EstimatedCost,
	}
	if err := s.client.RPC(ctx, rpcIncrementUsage, params, nil); err != nil {
		return fmt.Errorf("%s: %w", rpcIncrementUsage, err)
	}
	return nil
}

// Ping implements Store. The RPC endpoint has no cheap health call, so the
// store is assumed reachable.
func (s *RPCStore) Ping(context.Context) error {
	return nil
}

// Close implements Store.
func (s *RPCStore) Close() error {
	return nil
}

var _ Store = (*RPCStore)(nil)
