package services_test

import (
	"testing"
	"time"

	"casino-backend/internal/config"
	"casino-backend/internal/models"
	"casino-backend/internal/services"
)

func TestRedisService(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	userID := int64(999999)
	sessionID := "test_session_123"

	session := &models.UserSession{
		UserID:    userID,
		SessionID: sessionID,
		Username:  "redis_test_user",
		CreatedAt: time.Now(),
	}
	if err := redisService.StoreUserSession(session); err != nil {
		t.Fatalf("Failed to store session: %v", err)
	}

	got, err := redisService.GetUserSession(userID, sessionID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if got.Username != "redis_test_user" {
		t.Errorf("Expected username redis_test_user, got %s", got.Username)
	}

	if err := redisService.DeleteUserSession(userID, sessionID); err != nil {
		t.Errorf("Failed to delete session: %v", err)
	}
	if _, err := redisService.GetUserSession(userID, sessionID); err == nil {
		t.Error("Deleted session should not resolve")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := &config.Config{RedisURL: "localhost:6379"}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	userID := int64(999998)
	action := "test_action"
	redisService.ClearRateLimit(userID, action)

	for i := 0; i < 3; i++ {
		allowed, err := redisService.CheckRateLimit(userID, action, 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !allowed {
			t.Errorf("Call %d should be allowed", i+1)
		}
	}

	allowed, err := redisService.CheckRateLimit(userID, action, 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if allowed {
		t.Error("Fourth call should exceed the limit")
	}

	redisService.ClearRateLimit(userID, action)
}

func TestRecentRoundsFeed(t *testing.T) {
	cfg := &config.Config{RedisURL: "localhost:6379"}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	round := &models.Round{
		ID:             "test_round_feed",
		UserID:         999997,
		GameType:       models.GameTypeDice,
		Status:         models.RoundStatusWon,
		BetAmountCents: 100,
		Multiplier:     2.0,
	}
	if err := redisService.PushSettledRound(round); err != nil {
		t.Fatalf("PushSettledRound failed: %v", err)
	}

	rounds, err := redisService.RecentRounds(10)
	if err != nil {
		t.Fatalf("RecentRounds failed: %v", err)
	}
	if len(rounds) == 0 || rounds[0].ID != "test_round_feed" {
		t.Errorf("Newest round should be first in the feed, got %+v", rounds)
	}
}
