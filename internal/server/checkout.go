package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/formpay/internal/checkout/domain"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) CreateOrder(c *gin.Context) {
	var req checkoutdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedID == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	orderID, err := s.checkoutSvc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID})
}

func (s *Server) PrepareSubscription(c *gin.Context) {
	var req checkoutdomain.PrepareSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedID == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Currency == "" {
		AbortWithError(c, newValidationError("currency", "required", "currency is required"))
		return
	}

	body, err := s.checkoutSvc.PrepareSubscription(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": body})
}

func (s *Server) ProcessSubmission(c *gin.Context) {
	var req checkoutdomain.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedID == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Currency == "" {
		AbortWithError(c, newValidationError("currency", "required", "currency is required"))
		return
	}

	ctx := c.Request.Context()
	token, ok, err := s.limiter.LockOrder(ctx, req.OrderID)
	if err != nil {
		logger.FromContext(ctx).Warn("order lock failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if !ok {
		AbortWithError(c, ErrConflict)
		return
	}
	defer func() {
		if err := s.limiter.ReleaseOrder(ctx, req.OrderID, token); err != nil {
			logger.FromContext(ctx).Warn("order lock release failed", zap.Error(err))
		}
	}()

	result, err := s.checkoutSvc.ProcessSubmission(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if !result.IsSuccess {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}
