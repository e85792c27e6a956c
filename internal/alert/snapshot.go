package alert

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	houseBalanceKey   = "house:balance"
	houseBalanceAtKey = "house:balance_at"
)

// HouseBalanceSnapshot keeps the last observed house wallet balance in Redis
// so the ops tooling can alert on it without touching the RPC endpoint.
// Writes are best effort; a snapshot miss never blocks a settlement.
type HouseBalanceSnapshot struct {
	cache  *redis.Client
	logger *slog.Logger
}

// NewHouseBalanceSnapshot constructs a Redis-backed snapshot recorder.
func NewHouseBalanceSnapshot(cache *redis.Client, logger *slog.Logger) *HouseBalanceSnapshot {
	return &HouseBalanceSnapshot{cache: cache, logger: logger}
}

// RecordHouseBalance stores the freshly read on-chain balance.
func (s *HouseBalanceSnapshot) RecordHouseBalance(ctx context.Context, lamports uint64) {
	if s == nil || s.cache == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	pipe := s.cache.Pipeline()
	pipe.Set(writeCtx, houseBalanceKey, strconv.FormatUint(lamports, 10), 0)
	pipe.Set(writeCtx, houseBalanceAtKey, time.Now().UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(writeCtx); err != nil {
		s.logger.Warn("house balance snapshot write failed", slog.Any("error", err))
	}
}

// LastHouseBalance returns the most recent snapshot, or ok=false when none
// has been recorded.
func (s *HouseBalanceSnapshot) LastHouseBalance(ctx context.Context) (uint64, bool) {
	if s == nil || s.cache == nil {
		return 0, false
	}
	raw, err := s.cache.Get(ctx, houseBalanceKey).Result()
	if err != nil {
		return 0, false
	}
	lamports, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return lamports, true
}
