package fairness_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"

	"casino-backend/internal/fairness"
)

const (
	testServerSeed = "1f6e2a0d9b8c7e5f4a3b2c1d0e9f8a7b6c5d4e3f2a1b0c9d8e7f6a5b4c3d2e1f"
	testClientSeed = "a1b2c3d4e5f60718"
)

// verifierDeriveFloat is an independent recomputation of the published
// verification procedure: hex the HMAC digest, take the first 13 hex
// characters as an integer, divide by 2^52. The engine must match it
// bit-for-bit.
func verifierDeriveFloat(t *testing.T, serverSeed, clientSeed string, nonce int64, roundIndex int) float64 {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(fmt.Sprintf("%s:%d:%d", clientSeed, nonce, roundIndex)))
	digest := hex.EncodeToString(mac.Sum(nil))

	v, err := strconv.ParseUint(digest[:13], 16, 64)
	if err != nil {
		t.Fatalf("Failed to parse digest prefix: %v", err)
	}
	return float64(v) / float64(uint64(1)<<52)
}

func TestDeriveFloatReproducible(t *testing.T) {
	for nonce := int64(0); nonce < 50; nonce++ {
		for round := 0; round < 3; round++ {
			got, err := fairness.DeriveFloat(testServerSeed, testClientSeed, nonce, round)
			if err != nil {
				t.Fatalf("DeriveFloat failed: %v", err)
			}
			if got < 0 || got >= 1 {
				t.Errorf("DeriveFloat out of [0,1): %v", got)
			}

			want := verifierDeriveFloat(t, testServerSeed, testClientSeed, nonce, round)
			if got != want {
				t.Errorf("nonce=%d round=%d: engine %v != independent verifier %v", nonce, round, got, want)
			}

			again, _ := fairness.DeriveFloat(testServerSeed, testClientSeed, nonce, round)
			if got != again {
				t.Errorf("DeriveFloat not deterministic: %v != %v", got, again)
			}
		}
	}
}

func TestDeriveFloatDistinctInputs(t *testing.T) {
	a, _ := fairness.DeriveFloat(testServerSeed, testClientSeed, 1, 0)
	b, _ := fairness.DeriveFloat(testServerSeed, testClientSeed, 2, 0)
	c, _ := fairness.DeriveFloat(testServerSeed, testClientSeed, 1, 1)

	if a == b {
		t.Error("Different nonces should produce different draws")
	}
	if a == c {
		t.Error("Different round indexes should produce different draws")
	}
}

func TestDeriveFloatEmptySeed(t *testing.T) {
	if _, err := fairness.DeriveFloat("", testClientSeed, 0, 0); err == nil {
		t.Error("Empty server seed should be rejected")
	}
	if _, err := fairness.DeriveFloat(testServerSeed, "", 0, 0); err == nil {
		t.Error("Empty client seed should be rejected")
	}
}

func TestDeriveIntBounds(t *testing.T) {
	for nonce := int64(0); nonce < 200; nonce++ {
		roll, err := fairness.DeriveInt(testServerSeed, testClientSeed, nonce, 0, 0, 99)
		if err != nil {
			t.Fatalf("DeriveInt failed: %v", err)
		}
		if roll < 0 || roll > 99 {
			t.Errorf("Roll out of [0,99]: %d", roll)
		}
	}

	if _, err := fairness.DeriveInt(testServerSeed, testClientSeed, 0, 0, 10, 5); err == nil {
		t.Error("max < min should be rejected")
	}
}

func TestPickWeighted(t *testing.T) {
	table := []fairness.WeightedOutcome{
		{Tier: "jackpot", Multiplier: 100, Weight: 1},
		{Tier: "big", Multiplier: 10, Weight: 50},
		{Tier: "small", Multiplier: 2, Weight: 300},
		{Tier: "broken", Multiplier: 1, Weight: 0},
		{Tier: "lose", Multiplier: 0, Weight: 649},
	}

	counts := make(map[string]int)
	for nonce := int64(0); nonce < 1000; nonce++ {
		got, err := fairness.PickWeighted(testServerSeed, testClientSeed, nonce, 0, table)
		if err != nil {
			t.Fatalf("PickWeighted failed: %v", err)
		}
		counts[got.Tier]++

		again, _ := fairness.PickWeighted(testServerSeed, testClientSeed, nonce, 0, table)
		if got.Tier != again.Tier {
			t.Fatalf("PickWeighted not deterministic at nonce %d", nonce)
		}
	}

	if counts["broken"] != 0 {
		t.Error("Zero-weight rows must never be picked")
	}
	if counts["lose"] == 0 || counts["small"] == 0 {
		t.Errorf("Heavy tiers never hit in 1000 draws: %v", counts)
	}
	if counts["lose"] <= counts["small"] {
		t.Errorf("Weights not respected: lose=%d small=%d", counts["lose"], counts["small"])
	}
}

func TestPickWeightedBoundaryDraw(t *testing.T) {
	// Construct a table whose first cumulative weight equals the scaled
	// draw exactly: the draw is v/2^52, so with a total weight of 2^52 the
	// scaled draw is v bit-for-bit. The first row must win the tie.
	const twoPow52 = int64(1) << 52

	f, err := fairness.DeriveFloat(testServerSeed, testClientSeed, 1, 0)
	if err != nil {
		t.Fatalf("DeriveFloat failed: %v", err)
	}
	v := int64(f * float64(twoPow52))
	if v <= 0 {
		t.Fatalf("Fixture seeds produced a zero draw, pick different seeds")
	}

	table := []fairness.WeightedOutcome{
		{Tier: "first", Multiplier: 2, Weight: v},
		{Tier: "second", Multiplier: 0, Weight: twoPow52 - v},
	}
	got, err := fairness.PickWeighted(testServerSeed, testClientSeed, 1, 0, table)
	if err != nil {
		t.Fatalf("PickWeighted failed: %v", err)
	}
	if got.Tier != "first" {
		t.Errorf("Draw equal to a cumulative weight must resolve to the earlier row, got %q", got.Tier)
	}
}

func TestPickWeightedEmptyTable(t *testing.T) {
	if _, err := fairness.PickWeighted(testServerSeed, testClientSeed, 0, 0, nil); err == nil {
		t.Error("Empty table should be rejected")
	}

	zero := []fairness.WeightedOutcome{{Tier: "x", Weight: 0}}
	if _, err := fairness.PickWeighted(testServerSeed, testClientSeed, 0, 0, zero); err == nil {
		t.Error("All-zero-weight table should be rejected")
	}
}

func TestCrashPointReproducible(t *testing.T) {
	first, err := fairness.CrashPoint(testServerSeed, testClientSeed)
	if err != nil {
		t.Fatalf("CrashPoint failed: %v", err)
	}
	if first < 1.0 {
		t.Errorf("Crash point below 1.00: %v", first)
	}

	// Independent recomputation of the published formula.
	sum := sha256.Sum256([]byte(testServerSeed + testClientSeed))
	h, err := strconv.ParseUint(hex.EncodeToString(sum[:])[:13], 16, 64)
	if err != nil {
		t.Fatalf("Failed to parse hash prefix: %v", err)
	}
	e := uint64(1) << 52
	want := float64((100*e-h)/(e-h)) / 100
	if want < 1.0 {
		want = 1.0
	}

	if first != want {
		t.Errorf("Engine crash point %v != independent verifier %v", first, want)
	}
}

func TestCrashPointEmptySeed(t *testing.T) {
	if _, err := fairness.CrashPoint("", testClientSeed); err == nil {
		t.Error("Empty server seed should be rejected")
	}
}

func TestCommitHash(t *testing.T) {
	seed, err := fairness.GenerateServerSeed()
	if err != nil {
		t.Fatalf("GenerateServerSeed failed: %v", err)
	}
	if len(seed) != 64 {
		t.Errorf("Server seed should be 32 bytes hex (64 chars), got %d", len(seed))
	}

	commit := fairness.CommitHash(seed)
	sum := sha256.Sum256([]byte(seed))
	if commit != hex.EncodeToString(sum[:]) {
		t.Error("CommitHash should be sha256 of the seed")
	}

	other, _ := fairness.GenerateServerSeed()
	if other == seed {
		t.Error("Two generated server seeds should not collide")
	}
}
