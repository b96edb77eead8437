package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/formpay/internal/audit/domain"
	"github.com/smallbiznis/formpay/internal/authorization"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) GetEntry(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	ctx := c.Request.Context()
	entry, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	notes, err := s.entries.ListNotes(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry, "notes": notes})
}

// CaptureEntry captures the authorization held by an authorize-only entry.
func (s *Server) CaptureEntry(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	ctx := c.Request.Context()
	if err := s.orders.CaptureAuthorized(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	logger.FromContext(ctx).Info("entry captured", zap.String("entry_id", id.String()))
	s.recordAudit(c, authorization.ActionEntryCapture, auditdomain.TargetEntry, id.String(), nil)
	s.respondEntry(c, id)
}

func (s *Server) RefundEntry(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	ctx := c.Request.Context()
	if err := s.orders.Refund(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	logger.FromContext(ctx).Info("entry refund requested", zap.String("entry_id", id.String()))
	s.recordAudit(c, authorization.ActionEntryRefund, auditdomain.TargetEntry, id.String(), nil)
	s.respondEntry(c, id)
}

func (s *Server) respondEntry(c *gin.Context, id snowflake.ID) {
	entry, err := s.entries.GetEntry(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
