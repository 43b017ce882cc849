package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getPreference returns (creating if needed) the payable preference for a
// pending booking
func (h *Handler) getPreference(c *gin.Context) {
	id, ok := pathID(c, "classRequest")
	if !ok {
		return
	}

	result, err := h.transactions.GetPreference(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// updateTransaction records a provider-reported transaction status
func (h *Handler) updateTransaction(c *gin.Context) {
	id, ok := pathID(c, "classRequest")
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	txn, err := h.transactions.UpdateTransaction(c.Request.Context(), id, currentUserID(c), body.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// refund reverses a paid-but-unconfirmed booking
func (h *Handler) refund(c *gin.Context) {
	id, ok := pathID(c, "classRequest")
	if !ok {
		return
	}

	refund, err := h.transactions.Refund(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, refund)
}

// handlePaymentRedirect is the provider's redirect/webhook target. The
// success path marks the booking paid; failure and pending land the payer
// back without touching state.
func (h *Handler) handlePaymentRedirect(c *gin.Context) {
	id, ok := pathID(c, "classRequest")
	if !ok {
		return
	}

	status := c.Param("status")
	if status != "success" {
		c.JSON(http.StatusOK, gin.H{"message": "payment not completed", "status": status})
		return
	}

	paymentID := c.Query("payment_id")
	paymentStatus := c.DefaultQuery("status", "approved")

	req, err := h.transactions.HandleRedirect(c.Request.Context(), id, paymentID, paymentStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// checkOAuthStatus reports whether the caller has a usable provider credential
func (h *Handler) checkOAuthStatus(c *gin.Context) {
	linked := h.oauth.CheckOAuthStatus(c.Request.Context(), currentUserID(c))
	if !linked {
		c.JSON(http.StatusOK, gin.H{
			"linked":  false,
			"message": "link your mercadopago account to receive payments",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": true})
}

// createOAuthToken redeems the provider authorization code for the caller
func (h *Handler) createOAuthToken(c *gin.Context) {
	var body struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	info, err := h.oauth.CreateOAuthToken(c.Request.Context(), currentUserID(c), body.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// refreshOAuthToken force-rotates a teacher's credential; hit by an external
// scheduler
func (h *Handler) refreshOAuthToken(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	info, err := h.oauth.RefreshOAuthToken(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
