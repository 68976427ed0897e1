package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Provably-fair outcome derivation. Every function here is deterministic in
// its inputs so a player holding the revealed server seed can recompute any
// outcome bit-for-bit.

const twoPow52 = uint64(1) << 52

var ErrEmptySeed = fmt.Errorf("fairness: empty seed")

// GenerateServerSeed returns 32 bytes of CSPRNG output, hex encoded.
func GenerateServerSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateClientSeed returns 16 bytes of CSPRNG output, hex encoded. Users
// may replace it with their own seed at any time.
func GenerateClientSeed() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

// CommitHash is the SHA-256 commitment published before a server seed is
// used, proving the seed was fixed in advance of any outcome.
func CommitHash(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// DeriveFloat maps (serverSeed, clientSeed, nonce, roundIndex) to [0, 1):
// HMAC-SHA256 over "clientSeed:nonce:roundIndex" keyed by the server seed,
// first 52 bits of the digest divided by 2^52.
func DeriveFloat(serverSeed, clientSeed string, nonce int64, roundIndex int) (float64, error) {
	if serverSeed == "" || clientSeed == "" {
		return 0, ErrEmptySeed
	}

	mac := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(mac, "%s:%d:%d", clientSeed, nonce, roundIndex)
	digest := mac.Sum(nil)

	// Top 52 bits of the digest, same value as its first 13 hex characters.
	v := binary.BigEndian.Uint64(digest[:8]) >> 12
	return float64(v) / float64(twoPow52), nil
}

// DeriveInt maps the draw to an integer in [min, max].
func DeriveInt(serverSeed, clientSeed string, nonce int64, roundIndex, min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("fairness: max %d < min %d", max, min)
	}
	f, err := DeriveFloat(serverSeed, clientSeed, nonce, roundIndex)
	if err != nil {
		return 0, err
	}
	return min + int(f*float64(max-min+1)), nil
}

// WeightedOutcome is one row of a prize table. Table order is significant:
// a draw on a cumulative-weight boundary always resolves to the earlier row.
type WeightedOutcome struct {
	Tier       string  `json:"tier"`
	Multiplier float64 `json:"multiplier"`
	Weight     int64   `json:"weight"`
}

// PickWeighted scales the draw by the total weight and walks the cumulative
// weight table; rows with non-positive weight are skipped.
func PickWeighted(serverSeed, clientSeed string, nonce int64, roundIndex int, outcomes []WeightedOutcome) (WeightedOutcome, error) {
	var total int64
	for _, o := range outcomes {
		if o.Weight > 0 {
			total += o.Weight
		}
	}
	if total <= 0 {
		return WeightedOutcome{}, fmt.Errorf("fairness: empty or zero-weight outcome table")
	}

	f, err := DeriveFloat(serverSeed, clientSeed, nonce, roundIndex)
	if err != nil {
		return WeightedOutcome{}, err
	}
	scaled := f * float64(total)

	var cum int64
	var last WeightedOutcome
	for _, o := range outcomes {
		if o.Weight <= 0 {
			continue
		}
		cum += o.Weight
		last = o
		if scaled <= float64(cum) {
			return o, nil
		}
	}
	return last, nil
}

// CrashPoint derives the crash multiplier from the seed pair:
// H = first 13 hex chars of sha256(serverSeed+clientSeed), E = 2^52,
// floor((100*E - H) / (E - H)) / 100, clamped to a 1.00 minimum. The house
// edge is embedded in the distribution of this exact formula, so it must
// not be altered without re-publishing the verification procedure.
func CrashPoint(serverSeed, clientSeed string) (float64, error) {
	if serverSeed == "" || clientSeed == "" {
		return 0, ErrEmptySeed
	}

	sum := sha256.Sum256([]byte(serverSeed + clientSeed))
	h, err := strconv.ParseUint(hex.EncodeToString(sum[:])[:13], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse hash prefix: %v", err)
	}

	e := twoPow52
	point := float64((100*e-h)/(e-h)) / 100
	if point < 1.0 {
		point = 1.0
	}
	return point, nil
}
