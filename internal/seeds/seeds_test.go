package seeds_test

import (
	"context"
	"sync"
	"testing"

	"casino-backend/internal/fairness"
	"casino-backend/internal/seeds"
)

func TestCurrentCreatesEpoch(t *testing.T) {
	store := seeds.NewMemStore()
	ctx := context.Background()

	e, err := store.Current(ctx, 1)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if e.ServerSeed == "" || e.ClientSeed == "" {
		t.Error("New epoch should carry both seeds")
	}
	if e.ServerSeedHash != fairness.CommitHash(e.ServerSeed) {
		t.Error("Commit hash should match the server seed")
	}
	if e.Nonce != 0 {
		t.Errorf("Fresh epoch nonce should be 0, got %d", e.Nonce)
	}
}

func TestNextNonceNeverRepeats(t *testing.T) {
	store := seeds.NewMemStore()
	ctx := context.Background()

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := store.NextNonce(ctx, 7)
			if err != nil {
				t.Errorf("NextNonce failed: %v", err)
				return
			}
			mu.Lock()
			if seen[e.Nonce] {
				t.Errorf("Nonce %d handed out twice", e.Nonce)
			}
			seen[e.Nonce] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 200 {
		t.Errorf("Expected 200 distinct nonces, got %d", len(seen))
	}
}

func TestRotateRevealsOldSeed(t *testing.T) {
	store := seeds.NewMemStore()
	ctx := context.Background()

	before, err := store.NextNonce(ctx, 3)
	if err != nil {
		t.Fatalf("NextNonce failed: %v", err)
	}

	revealed, fresh, err := store.Rotate(ctx, 3)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if revealed.ServerSeed != before.ServerSeed {
		t.Error("Rotation should reveal the seed that produced prior outcomes")
	}
	if fairness.CommitHash(revealed.ServerSeed) != before.ServerSeedHash {
		t.Error("Revealed seed must hash to the previously published commitment")
	}
	if revealed.RotatedAt == nil {
		t.Error("Revealed epoch should carry a rotation timestamp")
	}
	if fresh.ServerSeed == revealed.ServerSeed {
		t.Error("Fresh epoch must use a new server seed")
	}
	if fresh.ClientSeed != revealed.ClientSeed {
		t.Error("Client seed should survive rotation")
	}
	if fresh.Nonce != 0 {
		t.Errorf("Fresh epoch should restart the nonce at 0, got %d", fresh.Nonce)
	}

	after, _ := store.Current(ctx, 3)
	if after.ServerSeedHash != fresh.ServerSeedHash {
		t.Error("Current should return the fresh epoch after rotation")
	}
}

func TestSetClientSeed(t *testing.T) {
	store := seeds.NewMemStore()
	ctx := context.Background()

	if err := store.SetClientSeed(ctx, 5, "my-lucky-seed"); err != nil {
		t.Fatalf("SetClientSeed failed: %v", err)
	}
	e, _ := store.Current(ctx, 5)
	if e.ClientSeed != "my-lucky-seed" {
		t.Errorf("Client seed not applied, got %q", e.ClientSeed)
	}
}
