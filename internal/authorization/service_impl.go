package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/formpay/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectEntry    = "entry"
	ObjectFeed     = "feed"
	ObjectWebhook  = "webhook"
	ObjectAPIKey   = "api_key"
	ObjectAuditLog = "audit_log"
)

const (
	ActionEntryView    = "entry.view"
	ActionEntryCapture = "entry.capture"
	ActionEntryRefund  = "entry.refund"

	ActionFeedView   = "feed.view"
	ActionFeedUpdate = "feed.update"

	ActionWebhookRegister = "webhook.register"

	ActionAPIKeyView   = "api_key.view"
	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRotate = "api_key.rotate"
	ActionAPIKeyRevoke = "api_key.revoke"

	ActionAuditLogView = "audit_log.view"
)

const (
	RoleSystem  = "system"
	actorAPIKey = "api_key:"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := resolveActor(strings.TrimSpace(actor), role)
	if err != nil {
		s.denied(ctx, actor, object, action, err)
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(ctx, subject, object, action, ErrForbidden)
		return ErrForbidden
	}
	if shouldLogGrant(action) {
		logger.WithContext(ctx, s.log).Info("authorization granted",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
	}
	return nil
}

func resolveActor(actor string, role string) (string, string, error) {
	if actor == "system" {
		return actor, "role:" + RoleSystem, nil
	}
	if !strings.HasPrefix(actor, actorAPIKey) {
		return "", "", ErrInvalidActor
	}
	keyID, err := snowflake.ParseString(strings.TrimPrefix(actor, actorAPIKey))
	if err != nil || keyID == 0 {
		return "", "", ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" || role == RoleSystem {
		return "", "", ErrInvalidRole
	}
	return fmt.Sprintf("%s%s", actorAPIKey, keyID), fmt.Sprintf("role:%s", role), nil
}

// ensureGrouping keeps exactly one role link for subject, following role
// changes on the key.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) denied(ctx context.Context, subject, object, action string, err error) {
	logger.WithContext(ctx, s.log).Warn("authorization denied",
		zap.String("subject", subject),
		zap.String("object", object),
		zap.String("action", action),
		zap.Error(err),
	)
}

func shouldLogGrant(action string) bool {
	switch action {
	case ActionEntryRefund, ActionAPIKeyRotate, ActionAPIKeyRevoke, ActionWebhookRegister:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Operator permissions
		{"role:operator", ObjectEntry, ActionEntryView},
		{"role:operator", ObjectEntry, ActionEntryCapture},
		{"role:operator", ObjectEntry, ActionEntryRefund},
		{"role:operator", ObjectFeed, ActionFeedView},

		// Admin permissions
		{"role:admin", ObjectEntry, ActionEntryView},
		{"role:admin", ObjectEntry, ActionEntryCapture},
		{"role:admin", ObjectEntry, ActionEntryRefund},
		{"role:admin", ObjectFeed, ActionFeedView},
		{"role:admin", ObjectFeed, ActionFeedUpdate},
		{"role:admin", ObjectWebhook, ActionWebhookRegister},
		{"role:admin", ObjectAPIKey, ActionAPIKeyView},
		{"role:admin", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:admin", ObjectAPIKey, ActionAPIKeyRotate},
		{"role:admin", ObjectAPIKey, ActionAPIKeyRevoke},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},

		// System permissions
		{"role:system", ObjectWebhook, ActionWebhookRegister},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
