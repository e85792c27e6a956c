package alert

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/solbet/custody/internal/logging"
)

func TestHouseBalanceSnapshotRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	snap := NewHouseBalanceSnapshot(cache, logging.Discard())
	ctx := context.Background()

	if _, ok := snap.LastHouseBalance(ctx); ok {
		t.Fatal("expected no snapshot before first record")
	}

	snap.RecordHouseBalance(ctx, 42_000_000_000)

	got, ok := snap.LastHouseBalance(ctx)
	if !ok || got != 42_000_000_000 {
		t.Fatalf("expected recorded balance, got %d ok=%v", got, ok)
	}
}

func TestSnapshotNilSafe(t *testing.T) {
	var snap *HouseBalanceSnapshot
	snap.RecordHouseBalance(context.Background(), 1)
	if _, ok := snap.LastHouseBalance(context.Background()); ok {
		t.Fatal("nil snapshot must report no data")
	}
}
