package api

import (
	"net/http"
	"strconv"

	"github.com/AP5B/backend/internal/service"
	"github.com/AP5B/backend/internal/store"

	"github.com/gin-gonic/gin"
)

// listOffers returns published offers with category/price filters
func (h *Handler) listOffers(c *gin.Context) {
	page, limit := pagination(c)
	minPrice, _ := strconv.ParseInt(c.Query("min_price"), 10, 64)
	maxPrice, _ := strconv.ParseInt(c.Query("max_price"), 10, 64)

	filter := store.OfferFilter{
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	offers, total, err := h.offers.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class_offers": offers,
		"total":        total,
		"page":         page,
		"total_pages":  totalPages(total, limit),
	})
}

// getOffer returns one published offer
func (h *Handler) getOffer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	offer, err := h.offers.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// listOwnOffers returns the teacher's own offers
func (h *Handler) listOwnOffers(c *gin.Context) {
	offers, err := h.offers.ListByAuthor(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class_offers": offers})
}

// createOffer publishes a new class offer
func (h *Handler) createOffer(c *gin.Context) {
	var body service.OfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	offer, err := h.offers.Create(c.Request.Context(), currentUserID(c), &body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

// updateOffer edits the teacher's own offer
func (h *Handler) updateOffer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body service.OfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	offer, err := h.offers.Update(c.Request.Context(), currentUserID(c), id, &body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// deleteOffer soft-deletes the teacher's own offer
func (h *Handler) deleteOffer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.offers.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// saveAvailability bulk-adds cells to the teacher's weekly grid
func (h *Handler) saveAvailability(c *gin.Context) {
	var body struct {
		Cells []service.AvailabilityCell `json:"cells" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if err := h.availability.Save(c.Request.Context(), currentUserID(c), body.Cells); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// listAvailability returns a teacher's weekly grid
func (h *Handler) listAvailability(c *gin.Context) {
	teacherID, ok := pathID(c, "teacherId")
	if !ok {
		return
	}

	cells, err := h.availability.List(c.Request.Context(), teacherID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availabilities": cells})
}

// deleteAvailability bulk-removes cells from the teacher's weekly grid
func (h *Handler) deleteAvailability(c *gin.Context) {
	var body struct {
		Cells []service.AvailabilityCell `json:"cells" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if err := h.availability.Delete(c.Request.Context(), currentUserID(c), body.Cells); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// createReview adds the student's review of a teacher
func (h *Handler) createReview(c *gin.Context) {
	var body service.ReviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), currentUserID(c), &body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// listTeacherReviews returns the reviews left on a teacher
func (h *Handler) listTeacherReviews(c *gin.Context) {
	teacherID, ok := pathID(c, "teacherId")
	if !ok {
		return
	}

	reviews, err := h.reviews.ListForTeacher(c.Request.Context(), teacherID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// listOwnReviews returns the reviews the caller has written
func (h *Handler) listOwnReviews(c *gin.Context) {
	reviews, err := h.reviews.ListOwn(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// updateReview edits the caller's own review
func (h *Handler) updateReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), currentUserID(c), id, body.Rating, body.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// deleteReview removes the caller's own review
func (h *Handler) deleteReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getAccount returns the caller's account
func (h *Handler) getAccount(c *gin.Context) {
	user, err := h.accounts.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// deleteAccount soft-deletes the caller's account and their offers
func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
