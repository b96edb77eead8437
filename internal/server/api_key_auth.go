package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/formpay/internal/apikey/domain"
	obscontext "github.com/smallbiznis/formpay/internal/observability/context"
)

const (
	HeaderAPIKey      = "X-Api-Key"
	contextAPIKeyKey  = "api_key"
	bearerTokenPrefix = "Bearer"
)

// APIKeyRequired authenticates administrative requests with an API key sent
// as a bearer token or in X-Api-Key.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := apiKeyFromRequest(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key, err := s.apiKeySvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextAPIKeyKey, key)
		ctx := obscontext.WithActor(c.Request.Context(), obscontext.ActorTypeAPIKey, key.KeyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func apiKeyFromRequest(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != bearerTokenPrefix || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return parts[1], true
	}
	if raw := strings.TrimSpace(c.GetHeader(HeaderAPIKey)); raw != "" {
		return raw, true
	}
	return "", false
}

func apiKeyFromContext(c *gin.Context) (*apikeydomain.APIKey, bool) {
	value, ok := c.Get(contextAPIKeyKey)
	if !ok {
		return nil, false
	}
	key, ok := value.(*apikeydomain.APIKey)
	return key, ok && key != nil
}
