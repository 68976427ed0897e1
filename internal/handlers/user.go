package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-backend/internal/services"
	"casino-backend/internal/wallet"
)

type UserHandler struct {
	redisService  *services.RedisService
	walletService *wallet.Service
}

func NewUserHandler(redisService *services.RedisService, walletService *wallet.Service) *UserHandler {
	return &UserHandler{
		redisService:  redisService,
		walletService: walletService,
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	resp := gin.H{"user_id": userID}

	if h.redisService != nil {
		session, err := h.redisService.GetUserSession(userID.(int64), sessionID.(string))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
			return
		}
		resp["username"] = session.Username
		resp["session"] = gin.H{
			"session_id":    session.SessionID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		}
	}

	balance, err := h.walletService.Balance(c.Request.Context(), userID.(int64))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return
	}
	resp["wallet"] = balance

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Logout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	if h.redisService != nil {
		if err := h.redisService.DeleteUserSession(userID.(int64), sessionID.(string)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
