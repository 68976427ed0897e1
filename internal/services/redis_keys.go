package services

import "time"

const (
	KeyUserSession  = "user:%d:session:%s"
	KeyRateLimit    = "ratelimit:%d:%s"
	KeyRecentRounds = "rounds:recent"

	TTLUserSession  = 24 * time.Hour
	TTLRecentRounds = 24 * time.Hour

	RecentRoundsKept = 50

	DefaultRateLimitBets      = 30 // Max 30 bets per minute
	DefaultRateLimitWithdraws = 10 // Max 10 withdrawal requests per minute
)
