package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-backend/internal/promo"
)

type PromoHandler struct {
	applier *promo.Applier
	claims  promo.ClaimStore
}

func NewPromoHandler(applier *promo.Applier, claims promo.ClaimStore) *PromoHandler {
	return &PromoHandler{applier: applier, claims: claims}
}

func (h *PromoHandler) ListOffers(c *gin.Context) {
	offers, err := h.claims.Offers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load offers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

type redeemRequest struct {
	OfferID string `json:"offer_id" binding:"required"`
}

func (h *PromoHandler) Redeem(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offer_id is required"})
		return
	}

	claim, err := h.applier.Redeem(c.Request.Context(), userID, req.OfferID)
	if err != nil {
		switch {
		case errors.Is(err, promo.ErrOfferNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
		case errors.Is(err, promo.ErrClaimAlreadyOpen):
			c.JSON(http.StatusConflict, gin.H{"error": "An active claim already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem offer"})
		}
		return
	}

	c.JSON(http.StatusOK, claim)
}

func (h *PromoHandler) GetActiveClaim(c *gin.Context) {
	userID := c.GetInt64("user_id")

	claim, err := h.claims.ActiveClaim(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, promo.ErrNoActiveClaim) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No active claim"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load claim"})
		return
	}

	c.JSON(http.StatusOK, claim)
}
