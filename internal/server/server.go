package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/formpay/internal/apikey"
	apikeydomain "github.com/smallbiznis/formpay/internal/apikey/domain"
	"github.com/smallbiznis/formpay/internal/audit"
	auditdomain "github.com/smallbiznis/formpay/internal/audit/domain"
	"github.com/smallbiznis/formpay/internal/authorization"
	"github.com/smallbiznis/formpay/internal/checkout"
	checkoutdomain "github.com/smallbiznis/formpay/internal/checkout/domain"
	"github.com/smallbiznis/formpay/internal/config"
	"github.com/smallbiznis/formpay/internal/entry"
	entrydomain "github.com/smallbiznis/formpay/internal/entry/domain"
	"github.com/smallbiznis/formpay/internal/feed"
	feeddomain "github.com/smallbiznis/formpay/internal/feed/domain"
	"github.com/smallbiznis/formpay/internal/observability"
	obsmiddleware "github.com/smallbiznis/formpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/formpay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/formpay/internal/observability/tracing"
	"github.com/smallbiznis/formpay/internal/order"
	orderdomain "github.com/smallbiznis/formpay/internal/order/domain"
	"github.com/smallbiznis/formpay/internal/provider/paypal"
	"github.com/smallbiznis/formpay/internal/ratelimit"
	"github.com/smallbiznis/formpay/internal/subscription"
	"github.com/smallbiznis/formpay/internal/webhook"
	webhookdomain "github.com/smallbiznis/formpay/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	paypal.Module,
	entry.Module,
	feed.Module,
	subscription.Module,
	order.Module,
	checkout.Module,
	webhook.Module,
	apikey.Module,
	audit.Module,
	authorization.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	checkoutSvc checkoutdomain.Service
	orders      orderdomain.Engine
	entries     entrydomain.Store
	feeds       feeddomain.Store
	webhooks    webhookdomain.Engine
	apiKeySvc   apikeydomain.Service
	auditSvc    auditdomain.Service
	authzSvc    authorization.Service
	limiter     *ratelimit.CheckoutLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	CheckoutSvc checkoutdomain.Service
	Orders      orderdomain.Engine
	Entries     entrydomain.Store
	Feeds       feeddomain.Store
	Webhooks    webhookdomain.Engine
	APIKeySvc   apikeydomain.Service
	AuditSvc    auditdomain.Service
	AuthzSvc    authorization.Service
	Limiter     *ratelimit.CheckoutLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		checkoutSvc: p.CheckoutSvc,
		orders:      p.Orders,
		entries:     p.Entries,
		feeds:       p.Feeds,
		webhooks:    p.Webhooks,
		apiKeySvc:   p.APIKeySvc,
		auditSvc:    p.AuditSvc,
		authzSvc:    p.AuthzSvc,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerPublicRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	// -------- Webhooks --------
	s.engine.POST("/webhooks/paypal", s.HandlePayPalWebhook)

	// -------- Checkout --------
	public := s.engine.Group("/checkout", s.CheckoutRateLimit())
	{
		public.POST("/orders", s.CreateOrder)
		public.POST("/subscriptions", s.PrepareSubscription)
		public.POST("/submissions", s.ProcessSubmission)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.APIKeyRequired())

	// -------- Entries --------
	entries := admin.Group("/entries")
	{
		entries.GET("/:id", s.authorizeAction(authorization.ObjectEntry, authorization.ActionEntryView), s.GetEntry)
		entries.POST("/:id/capture", s.authorizeAction(authorization.ObjectEntry, authorization.ActionEntryCapture), s.CaptureEntry)
		entries.POST("/:id/refund", s.authorizeAction(authorization.ObjectEntry, authorization.ActionEntryRefund), s.RefundEntry)
	}

	// -------- Feeds --------
	feeds := admin.Group("/feeds")
	{
		feeds.GET("/:id", s.authorizeAction(authorization.ObjectFeed, authorization.ActionFeedView), s.GetFeed)
		feeds.PUT("/:id/settings", s.authorizeAction(authorization.ObjectFeed, authorization.ActionFeedUpdate), s.UpdateFeedSettings)
	}

	// -------- Webhooks --------
	admin.POST("/webhooks", s.authorizeAction(authorization.ObjectWebhook, authorization.ActionWebhookRegister), s.RegisterWebhook)

	// -------- API Keys --------
	apiKeys := admin.Group("/api-keys")
	{
		apiKeys.GET("", s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeys)
		apiKeys.POST("", s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
		apiKeys.POST("/:key_id/rotate", s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRotate), s.RotateAPIKey)
		apiKeys.DELETE("/:key_id", s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)
	}

	// -------- Audit --------
	admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
