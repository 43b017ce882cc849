package api

import (
	"net/http"

	"github.com/AP5B/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// createClassRequest handles booking creation by a student
func (h *Handler) createClassRequest(c *gin.Context) {
	var body service.CreateClassRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	req, err := h.requests.Create(c.Request.Context(), currentUserID(c), &body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// listUserRequests returns the student's bookings, paginated
func (h *Handler) listUserRequests(c *gin.Context) {
	page, limit := pagination(c)

	views, total, err := h.requests.ListUserRequests(c.Request.Context(), currentUserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class_requests": views,
		"total":          total,
		"page":           page,
		"total_pages":    totalPages(total, limit),
	})
}

// listTutorRequests returns the bookings received across the tutor's offers
func (h *Handler) listTutorRequests(c *gin.Context) {
	page, limit := pagination(c)

	reqs, total, err := h.requests.ListTutorRequests(c.Request.Context(), currentUserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class_requests": reqs,
		"total":          total,
		"page":           page,
		"total_pages":    totalPages(total, limit),
	})
}

// listRequestsByOffer returns the bookings on one of the tutor's offers
func (h *Handler) listRequestsByOffer(c *gin.Context) {
	offerID, ok := pathID(c, "classOfferId")
	if !ok {
		return
	}
	page, limit := pagination(c)

	views, total, err := h.requests.ListRequestsByOffer(c.Request.Context(), currentUserID(c), offerID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class_requests": views,
		"total":          total,
		"page":           page,
		"total_pages":    totalPages(total, limit),
	})
}

// listUserRequestsInOffer returns the student's own bookings within one offer
func (h *Handler) listUserRequestsInOffer(c *gin.Context) {
	offerID, ok := pathID(c, "classOfferId")
	if !ok {
		return
	}

	views, err := h.requests.ListUserRequestsInOffer(c.Request.Context(), currentUserID(c), offerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class_requests": views})
}

// getClassRequest returns one booking
func (h *Handler) getClassRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.requests.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// acceptOrReject applies the tutor's decision on a pending booking
func (h *Handler) acceptOrReject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	req, err := h.requests.AcceptOrReject(c.Request.Context(), currentUserID(c), id, *body.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// updateRequestState applies a tutor-initiated state change
func (h *Handler) updateRequestState(c *gin.Context) {
	var body struct {
		ClassRequestID int64  `json:"class_request_id" binding:"required"`
		State          string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	req, err := h.requests.UpdateState(c.Request.Context(), currentUserID(c), body.ClassRequestID, body.State)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// confirmClassRequest runs the confirmation-code handshake
func (h *Handler) confirmClassRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	req, err := h.requests.Confirm(c.Request.Context(), id, body.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// deleteClassRequest removes the student's own booking
func (h *Handler) deleteClassRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.requests.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
