package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"casino-backend/internal/config"
	"casino-backend/internal/models"
)

// RedisService holds ephemeral state: login sessions, rate-limit counters
// and the recent-rounds feed shown in the lobby. Nothing here is a source
// of truth for money; balances live in the ledger.
type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) StoreUserSession(session *models.UserSession) error {
	key := fmt.Sprintf(KeyUserSession, session.UserID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, TTLUserSession).Err()
}

func (s *RedisService) GetUserSession(userID int64, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.UserSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updatedData, TTLUserSession)

	return &session, nil
}

func (s *RedisService) DeleteUserSession(userID int64, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

// CheckRateLimit increments the counter for the action and reports whether
// the caller is still under the limit for the window. The first hit in a
// window sets the expiry.
func (s *RedisService) CheckRateLimit(userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(userID int64, action string) error {
	key := fmt.Sprintf(KeyRateLimit, userID, action)
	return s.client.Del(s.ctx, key).Err()
}

// PushSettledRound appends a settled round to the lobby feed, keeping the
// most recent entries only.
func (s *RedisService) PushSettledRound(round *models.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %v", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(s.ctx, KeyRecentRounds, data)
	pipe.LTrim(s.ctx, KeyRecentRounds, 0, RecentRoundsKept-1)
	pipe.Expire(s.ctx, KeyRecentRounds, TTLRecentRounds)

	_, err = pipe.Exec(s.ctx)
	return err
}

func (s *RedisService) RecentRounds(limit int64) ([]*models.Round, error) {
	if limit <= 0 || limit > RecentRoundsKept {
		limit = RecentRoundsKept
	}

	items, err := s.client.LRange(s.ctx, KeyRecentRounds, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent rounds: %v", err)
	}

	var rounds []*models.Round
	for _, item := range items {
		var r models.Round
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			continue
		}
		rounds = append(rounds, &r)
	}

	return rounds, nil
}
