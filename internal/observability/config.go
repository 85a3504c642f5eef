package observability

import (
	"strings"

	"github.com/burton0621/barix-site-sub000/internal/config"
)

// Config is the observability slice of the application config, normalized.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	obs := cfg.Observability

	out := Config{
		ServiceName:          strings.TrimSpace(cfg.AppName),
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             strings.ToLower(strings.TrimSpace(obs.LogLevel)),
		LogFormat:            strings.ToLower(strings.TrimSpace(obs.LogFormat)),
		OtelEnabled:          obs.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(obs.OtelEndpoint),
		OtelExporterProtocol: strings.ToLower(strings.TrimSpace(obs.OtelProtocol)),
		OtelSamplingRatio:    obs.SamplingRatio,
	}
	if out.ServiceName == "" {
		out.ServiceName = "barix"
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.LogFormat != "console" {
		out.LogFormat = "json"
	}
	switch out.OtelExporterProtocol {
	case "http", "http/protobuf":
		out.OtelExporterProtocol = "http"
	default:
		out.OtelExporterProtocol = "grpc"
	}
	if out.OtelSamplingRatio < 0 || out.OtelSamplingRatio > 1 {
		out.OtelSamplingRatio = 0.1
	}
	return out
}

// Debug is true for debug log level and for dev, local and test deployments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
