package server

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/formpay/internal/audit/domain"
	"github.com/smallbiznis/formpay/internal/authorization"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) GetFeed(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	feed, err := s.feeds.GetFeed(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

// UpdateFeedSettings replaces a feed's settings. Changing a property the
// provider product or plan was built from drops the cached remote ids.
func (s *Server) UpdateFeedSettings(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var settings map[string]any
	if err := c.ShouldBindJSON(&settings); err != nil || len(settings) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	feed, err := s.feeds.SaveSettings(c.Request.Context(), id, settings)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("feed settings updated", zap.String("feed_id", id.String()))
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	s.recordAudit(c, authorization.ActionFeedUpdate, auditdomain.TargetFeed, id.String(), map[string]any{"keys": keys})
	c.JSON(http.StatusOK, feed)
}
