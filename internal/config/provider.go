package config

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	ProviderEnvironmentSandbox = "sandbox"
	ProviderEnvironmentLive    = "live"
)

// ProviderConfig configures the payment processor integration.
type ProviderConfig struct {
	Environment    string        `mapstructure:"environment"`
	ClientID       string        `mapstructure:"clientId"`
	ClientSecret   string        `mapstructure:"clientSecret"`
	WebhookID      string        `mapstructure:"webhookId"`
	WebhookURL     string        `mapstructure:"webhookUrl"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`

	// LinkedResourceTypes lists the resource types whose webhook payloads
	// resolve their entry through the "up" link instead of the resource id.
	LinkedResourceTypes []string `mapstructure:"linkedResourceTypes"`

	// UnresolvedEntryStatus is the HTTP status returned for webhook events
	// whose entry cannot be found.
	UnresolvedEntryStatus int `mapstructure:"unresolvedEntryStatus"`
}

func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Environment:           ProviderEnvironmentSandbox,
		RequestTimeout:        30 * time.Second,
		LinkedResourceTypes:   []string{"refund"},
		UnresolvedEntryStatus: http.StatusOK,
	}
}

// IsConfigured reports whether API credentials are present.
func (c ProviderConfig) IsConfigured() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

func (c ProviderConfig) IsLive() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), ProviderEnvironmentLive)
}

// IsLinkedResource reports whether resourceType resolves through its up link.
func (c ProviderConfig) IsLinkedResource(resourceType string) bool {
	for _, t := range c.LinkedResourceTypes {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(resourceType)) {
			return true
		}
	}
	return false
}

// ProviderConfigHolder serves the current provider settings and swaps them
// when paypal.yml changes on disk.
type ProviderConfigHolder struct {
	current atomic.Value // holds ProviderConfig
}

// NewStaticProviderConfigHolder pins cfg without watching any file.
func NewStaticProviderConfigHolder(cfg ProviderConfig) *ProviderConfigHolder {
	holder := &ProviderConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewProviderConfigHolder(log *zap.Logger) (*ProviderConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.provider")

	v := viper.New()
	v.SetConfigName("paypal")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/formpay/config")
	v.AddConfigPath("/etc/formpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FORMPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultProviderConfig()
	v.SetDefault("paypal.environment", defaults.Environment)
	v.SetDefault("paypal.requestTimeout", defaults.RequestTimeout)
	v.SetDefault("paypal.linkedResourceTypes", defaults.LinkedResourceTypes)
	v.SetDefault("paypal.unresolvedEntryStatus", defaults.UnresolvedEntryStatus)
	for _, key := range []string{"paypal.clientId", "paypal.clientSecret", "paypal.webhookId", "paypal.webhookUrl"} {
		_ = v.BindEnv(key)
	}

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg ProviderConfig
	if err := v.UnmarshalKey("paypal", &cfg); err != nil {
		return nil, err
	}
	if err := validateProviderConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticProviderConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ProviderConfig
		if err := v.UnmarshalKey("paypal", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateProviderConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ProviderConfigHolder) Get() ProviderConfig {
	return h.current.Load().(ProviderConfig)
}

func validateProviderConfig(cfg ProviderConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Environment)) {
	case ProviderEnvironmentSandbox, ProviderEnvironmentLive:
	default:
		return errors.New("paypal.environment must be sandbox or live")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("paypal.requestTimeout must be positive")
	}
	if cfg.UnresolvedEntryStatus < 100 || cfg.UnresolvedEntryStatus > 599 {
		return errors.New("paypal.unresolvedEntryStatus must be an HTTP status")
	}
	return nil
}
