package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AP5B/backend/internal/service"
	"github.com/AP5B/backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	requests     *service.RequestService
	transactions *service.TransactionService
	oauth        *service.OAuthService
	offers       *service.OfferService
	availability *service.AvailabilityService
	reviews      *service.ReviewService
	accounts     *service.AccountService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	requests *service.RequestService,
	transactions *service.TransactionService,
	oauth *service.OAuthService,
	offers *service.OfferService,
	availability *service.AvailabilityService,
	reviews *service.ReviewService,
	accounts *service.AccountService,
) *Handler {
	return &Handler{
		requests:     requests,
		transactions: transactions,
		oauth:        oauth,
		offers:       offers,
		availability: availability,
		reviews:      reviews,
		accounts:     accounts,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	// Provider redirect target; the payer arrives here unauthenticated.
	v1.GET("/transactions/wh/:status/:classRequest", h.handlePaymentRedirect)

	// Browsing offers and reviews needs no session either.
	v1.GET("/class-offers", h.listOffers)
	v1.GET("/class-offers/:id", h.getOffer)
	v1.GET("/availability/:teacherId", h.listAvailability)
	v1.GET("/reviews/teacher/:teacherId", h.listTeacherReviews)

	auth := v1.Group("")
	auth.Use(authMiddleware())
	{
		auth.POST("/class-requests", requireRole(roleStudent), h.createClassRequest)
		auth.GET("/class-requests", h.listUserRequests)
		auth.GET("/class-requests/tutor", requireRole(roleTeacher), h.listTutorRequests)
		auth.GET("/class-requests/class/:classOfferId", requireRole(roleTeacher), h.listRequestsByOffer)
		auth.GET("/class-requests/offer/:classOfferId", h.listUserRequestsInOffer)
		auth.GET("/class-requests/:id", h.getClassRequest)
		auth.PATCH("/class-requests/:id/accept", requireRole(roleTeacher), h.acceptOrReject)
		auth.PATCH("/class-requests/state", requireRole(roleTeacher), h.updateRequestState)
		auth.POST("/class-requests/:id/confirm", h.confirmClassRequest)
		auth.DELETE("/class-requests/:id", h.deleteClassRequest)

		auth.GET("/transactions/:classRequest", h.getPreference)
		auth.POST("/transactions/:classRequest", h.updateTransaction)
		auth.POST("/transactions/refund/:classRequest", h.refund)
		auth.GET("/transactions/oauth/check", h.checkOAuthStatus)
		auth.POST("/transactions/oauth/token", requireRole(roleTeacher), h.createOAuthToken)
		auth.POST("/transactions/oauth/refresh/:userId", requireRole(roleAdmin), h.refreshOAuthToken)

		auth.GET("/class-offers/own", requireRole(roleTeacher), h.listOwnOffers)
		auth.POST("/class-offers", requireRole(roleTeacher), h.createOffer)
		auth.PATCH("/class-offers/:id", requireRole(roleTeacher), h.updateOffer)
		auth.DELETE("/class-offers/:id", requireRole(roleTeacher), h.deleteOffer)

		auth.POST("/availability", requireRole(roleTeacher), h.saveAvailability)
		auth.DELETE("/availability", requireRole(roleTeacher), h.deleteAvailability)

		auth.GET("/reviews/own", h.listOwnReviews)
		auth.POST("/reviews", requireRole(roleStudent), h.createReview)
		auth.PATCH("/reviews/:id", h.updateReview)
		auth.DELETE("/reviews/:id", h.deleteReview)

		auth.GET("/account", h.getAccount)
		auth.PATCH("/account/delete", h.deleteAccount)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps a domain error onto its HTTP status; anything else is a
// generic 500 so internals never leak into responses.
func respondError(c *gin.Context, err error) {
	if svcErr, ok := service.AsError(err); ok {
		if svcErr.HTTPStatus >= http.StatusInternalServerError {
			util.GetLogger().Error("Request failed",
				zap.String("path", c.FullPath()),
				zap.String("code", svcErr.Code),
				zap.Error(err))
		}
		c.JSON(svcErr.HTTPStatus, gin.H{"message": svcErr.Message})
		return
	}

	util.GetLogger().Error("Unhandled error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + name})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func totalPages(total int64, limit int) int64 {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return pages
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
