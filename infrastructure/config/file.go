package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domainConfig "snippets-backend/domain/config"
)

// FileConfig is the YAML overlay. Unset fields leave the environment value
// in place.
type FileConfig struct {
	LogLevel string         `yaml:"log_level"`
	Domain   DomainOverlay  `yaml:"domain"`
	CORS     []string       `yaml:"cors_origins"`
	Breaker  BreakerOverlay `yaml:"breaker"`
}

// DomainOverlay overrides business rules
type DomainOverlay struct {
	MaxTitleLength *int    `yaml:"max_title_length"`
	MaxBodyLength  *int    `yaml:"max_body_length"`
	MaxDepth       *int    `yaml:"max_depth"`
	DeletePolicy   *string `yaml:"delete_policy"`
	DropDetached   *bool   `yaml:"drop_detached"`
}

// BreakerOverlay overrides the remote circuit breaker
type BreakerOverlay struct {
	MinRequests    *int `yaml:"min_requests"`
	TimeoutSeconds *int `yaml:"timeout_seconds"`
}

// LoadFile reads a YAML overlay from path
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseFile(data)
}

// ParseFile decodes a YAML overlay
func ParseFile(data []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

// Apply copies the set fields onto cfg
func (fc *FileConfig) Apply(cfg *Config) {
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if len(fc.CORS) > 0 {
		cfg.CORSOrigins = fc.CORS
	}
	if fc.Breaker.MinRequests != nil {
		cfg.BreakerMinRequests = *fc.Breaker.MinRequests
	}
	if fc.Breaker.TimeoutSeconds != nil {
		cfg.BreakerTimeoutSecs = *fc.Breaker.TimeoutSeconds
	}
	if cfg.Domain == nil {
		cfg.Domain = domainConfig.DefaultDomainConfig()
	}
	fc.Domain.apply(cfg.Domain)
}

func (o DomainOverlay) apply(d *domainConfig.DomainConfig) {
	if o.MaxTitleLength != nil {
		d.MaxTitleLength = *o.MaxTitleLength
	}
	if o.MaxBodyLength != nil {
		d.MaxBodyLength = *o.MaxBodyLength
	}
	if o.MaxDepth != nil {
		d.MaxDepth = *o.MaxDepth
	}
	if o.DeletePolicy != nil {
		d.DeletePolicy = domainConfig.DeletePolicy(*o.DeletePolicy)
	}
	if o.DropDetached != nil {
		d.DropDetached = *o.DropDetached
	}
}
