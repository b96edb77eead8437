package observability

import (
	"strings"

	"github.com/smallbiznis/formpay/internal/config"
)

// Config is the observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel         string
	LogFormat        string
	LogSampleInitial int
	LogSampleAfter   int

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "formpay"
	}
	telemetry := cfg.Telemetry
	level := telemetry.LogLevel
	if level == "" {
		level = "info"
	}
	format := telemetry.LogFormat
	if format == "" {
		format = "json"
	}
	protocol := telemetry.OTLPProtocol
	if protocol == "" {
		protocol = "grpc"
	}

	return Config{
		ServiceName:          name,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             level,
		LogFormat:            format,
		LogSampleInitial:     telemetry.LogSampleInitial,
		LogSampleAfter:       telemetry.LogSampleAfter,
		OtelEnabled:          telemetry.OTLPEnabled && telemetry.OTLPEndpoint != "",
		OtelExporterEndpoint: telemetry.OTLPEndpoint,
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    telemetry.TraceSamplingRatio,
	}
}

// Debug reports whether verbose logging is wanted: debug level or a
// development environment.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
