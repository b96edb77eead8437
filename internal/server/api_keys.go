package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/formpay/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/formpay/internal/audit/domain"
	"github.com/smallbiznis/formpay/internal/authorization"
	"go.uber.org/zap"
)

type createAPIKeyRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (s *Server) ListAPIKeys(c *gin.Context) {
	keys, err := s.apiKeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": keys})
}

func (s *Server) CreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.apiKeySvc.Create(c.Request.Context(), apikeydomain.CreateRequest{Name: req.Name, Role: req.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, authorization.ActionAPIKeyCreate, auditdomain.TargetAPIKey, resp.KeyID, map[string]any{
		"name":    req.Name,
		"role":    req.Role,
		"api_key": resp.APIKey,
	})
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) RotateAPIKey(c *gin.Context) {
	keyID := strings.TrimSpace(c.Param("key_id"))
	resp, err := s.apiKeySvc.Rotate(c.Request.Context(), keyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("api key rotated", zap.String("key_id", keyID), zap.String("next_key_id", resp.KeyID))
	s.recordAudit(c, authorization.ActionAPIKeyRotate, auditdomain.TargetAPIKey, keyID, map[string]any{
		"next_key_id": resp.KeyID,
		"api_key":     resp.APIKey,
	})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	keyID := strings.TrimSpace(c.Param("key_id"))
	if err := s.apiKeySvc.Revoke(c.Request.Context(), keyID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("api key revoked", zap.String("key_id", keyID))
	s.recordAudit(c, authorization.ActionAPIKeyRevoke, auditdomain.TargetAPIKey, keyID, nil)
	c.Status(http.StatusNoContent)
}
