package handlers

import (
	"hash/fnv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casino-backend/internal/models"
	"casino-backend/internal/services"
)

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	log          zerolog.Logger
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
		log:          log,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
}

// Login issues a session token for the username. User ids are derived
// deterministically from the username, so the same name always maps to
// the same wallet.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	userID := deriveUserID(req.Username)
	sessionID := uuid.New().String()

	token, err := h.jwtService.GenerateToken(userID, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	if h.redisService != nil {
		session := &models.UserSession{
			UserID:    userID,
			SessionID: sessionID,
			Username:  req.Username,
			CreatedAt: time.Now(),
		}
		if err := h.redisService.StoreUserSession(session); err != nil {
			h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to store session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user_id":    userID,
		"session_id": sessionID,
	})
}

func deriveUserID(username string) int64 {
	h := fnv.New64a()
	h.Write([]byte(username))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}
