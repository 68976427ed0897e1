package seeds

import (
	"context"
	"errors"
	"time"

	"casino-backend/internal/fairness"
)

// A seed epoch is one server seed's lifetime for one user. The server seed
// stays secret while the epoch is active; only its commit hash is shown.
// Rotating the epoch reveals the old seed so past rounds become verifiable.

var ErrStoreUnavailable = errors.New("seed store unavailable")

type Epoch struct {
	UserID         int64      `json:"user_id"`
	ServerSeed     string     `json:"-"` // secret until the epoch is rotated
	ServerSeedHash string     `json:"server_seed_hash"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          int64      `json:"nonce"`
	CreatedAt      time.Time  `json:"created_at"`
	RotatedAt      *time.Time `json:"rotated_at,omitempty"`
}

type Store interface {
	// Current returns the active epoch, creating one on first use.
	Current(ctx context.Context, userID int64) (*Epoch, error)

	// NextNonce atomically reserves the next nonce of the active epoch and
	// returns the epoch carrying it. Nonces never repeat within an epoch,
	// including under concurrent calls.
	NextNonce(ctx context.Context, userID int64) (*Epoch, error)

	// SetClientSeed replaces the user-facing half of the seed pair.
	SetClientSeed(ctx context.Context, userID int64, clientSeed string) error

	// Rotate retires the active epoch and starts a fresh one. The retired
	// epoch is returned with its server seed revealed.
	Rotate(ctx context.Context, userID int64) (revealed, fresh *Epoch, err error)
}

func newEpoch(userID int64) (*Epoch, error) {
	serverSeed, err := fairness.GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	clientSeed, err := fairness.GenerateClientSeed()
	if err != nil {
		return nil, err
	}
	return &Epoch{
		UserID:         userID,
		ServerSeed:     serverSeed,
		ServerSeedHash: fairness.CommitHash(serverSeed),
		ClientSeed:     clientSeed,
		CreatedAt:      time.Now(),
	}, nil
}
