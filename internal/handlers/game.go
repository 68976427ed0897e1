package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"casino-backend/internal/fairness"
	"casino-backend/internal/ledger"
	"casino-backend/internal/models"
	"casino-backend/internal/seeds"
	"casino-backend/internal/services"
	"casino-backend/internal/settlement"
)

type GameHandler struct {
	games        *settlement.Orchestrator
	seeds        seeds.Store
	redisService *services.RedisService
	log          zerolog.Logger
}

func NewGameHandler(games *settlement.Orchestrator, seedStore seeds.Store, redisService *services.RedisService, log zerolog.Logger) *GameHandler {
	return &GameHandler{
		games:        games,
		seeds:        seedStore,
		redisService: redisService,
		log:          log,
	}
}

func (h *GameHandler) PlaceBet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bet request"})
		return
	}

	result, err := h.games.Play(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrInvalidBet):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
		default:
			h.log.Error().Err(err).Int64("user_id", userID).Msg("bet failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Bet could not be processed"})
		}
		return
	}

	if h.redisService != nil {
		if err := h.redisService.PushSettledRound(result.Round); err != nil {
			h.log.Warn().Err(err).Str("round_id", result.Round.ID).Msg("recent rounds feed update failed")
		}
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rounds, err := h.games.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

func (h *GameHandler) GetRound(c *gin.Context) {
	round, err := h.games.Round(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, settlement.ErrRoundNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Round not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load round"})
		return
	}

	c.JSON(http.StatusOK, round)
}

func (h *GameHandler) GetRecentRounds(c *gin.Context) {
	if h.redisService == nil {
		c.JSON(http.StatusOK, gin.H{"rounds": []*models.Round{}})
		return
	}

	rounds, err := h.redisService.RecentRounds(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recent rounds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

// GetSeed exposes the active epoch's public half: the server seed commit
// hash, the client seed and the current nonce. The server seed itself is
// only revealed by rotation.
func (h *GameHandler) GetSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	epoch, err := h.seeds.Current(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load seed"})
		return
	}

	c.JSON(http.StatusOK, epoch)
}

type clientSeedRequest struct {
	ClientSeed string `json:"client_seed" binding:"required"`
}

func (h *GameHandler) SetClientSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req clientSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ClientSeed) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_seed is required and at most 64 characters"})
		return
	}

	if err := h.seeds.SetClientSeed(c.Request.Context(), userID, req.ClientSeed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set client seed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Client seed updated"})
}

// RotateSeed retires the active epoch and reveals its server seed, making
// every round played under it independently verifiable.
func (h *GameHandler) RotateSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	revealed, fresh, err := h.seeds.Rotate(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate seed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"revealed": gin.H{
			"server_seed":      revealed.ServerSeed,
			"server_seed_hash": revealed.ServerSeedHash,
			"client_seed":      revealed.ClientSeed,
			"nonce":            revealed.Nonce,
		},
		"current": fresh,
	})
}

type verifyRequest struct {
	GameType   models.GameType `json:"game_type" binding:"required"`
	ServerSeed string          `json:"server_seed" binding:"required"`
	ClientSeed string          `json:"client_seed" binding:"required"`
	Nonce      int64           `json:"nonce"`

	DiceTarget int  `json:"dice_target,omitempty"`
	DiceOver   bool `json:"dice_over,omitempty"`
}

// VerifyRound recomputes an outcome from a revealed seed pair so players
// can check settled rounds without trusting the server.
func (h *GameHandler) VerifyRound(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification request"})
		return
	}

	resp := gin.H{
		"game_type":        req.GameType,
		"server_seed_hash": fairness.CommitHash(req.ServerSeed),
		"nonce":            req.Nonce,
	}

	switch req.GameType {
	case models.GameTypeCrash:
		point, err := settlement.CrashPointForRound(req.ServerSeed, req.ClientSeed, req.Nonce)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp["crash_point"] = point

	case models.GameTypeDice:
		roll, err := fairness.DeriveInt(req.ServerSeed, req.ClientSeed, req.Nonce, 0, 0, 99)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp["dice_roll"] = roll
		if req.DiceTarget > 0 {
			win := (req.DiceOver && roll > req.DiceTarget) ||
				(!req.DiceOver && roll < req.DiceTarget)
			resp["win"] = win
		}

	case models.GameTypeSlots:
		tier, err := fairness.PickWeighted(req.ServerSeed, req.ClientSeed, req.Nonce, 0, settlement.DefaultPayTable)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp["slot_tier"] = tier.Tier
		resp["multiplier"] = tier.Multiplier

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported game type"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
