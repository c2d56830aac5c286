package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	domainConfig "snippets-backend/domain/config"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Local store
	LocalStorePath string
	LocalInMemory  bool

	// Remote store (AWS)
	RemoteEnabled bool
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// CORS
	CORSOrigins []string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
	OTLPEndpoint  string

	// Remote circuit breaker
	BreakerMinRequests int
	BreakerTimeoutSecs int

	// Optional YAML overlay, watched for changes in development
	ConfigFile string

	Domain *domainConfig.DomainConfig
}

// LoadConfig loads configuration from environment variables, then applies
// the YAML file named by CONFIG_FILE when set
func LoadConfig() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   environment,

		LocalStorePath: getEnv("LOCAL_STORE_PATH", "./data/snippets"),
		LocalInMemory:  getEnvBool("LOCAL_STORE_IN_MEMORY", false),

		RemoteEnabled: getEnvBool("REMOTE_ENABLED", true),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "snippets")),
		EventBusName:  getEnv("EVENT_BUS_NAME", ""),

		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "snippets-backend"),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		BreakerMinRequests: getEnvInt("BREAKER_MIN_REQUESTS", 5),
		BreakerTimeoutSecs: getEnvInt("BREAKER_TIMEOUT_SECONDS", 60),

		ConfigFile: getEnv("CONFIG_FILE", ""),

		Domain: domainConfig.LoadDomainConfig(environment),
	}
	// Lambda invocations set this without IS_LAMBDA
	if cfg.LambdaFunctionName != "" {
		cfg.IsLambda = true
	}
	// only /tmp is writable inside the Lambda sandbox
	if cfg.IsLambda && os.Getenv("LOCAL_STORE_PATH") == "" {
		cfg.LocalStorePath = "/tmp/snippets"
	}

	if cfg.ConfigFile != "" {
		file, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		file.Apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.RemoteEnabled && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
	}
	if !c.LocalInMemory && c.LocalStorePath == "" {
		return fmt.Errorf("LOCAL_STORE_PATH is required unless the local store is in memory")
	}
	if c.Domain == nil {
		return fmt.Errorf("domain configuration is missing")
	}
	if err := c.Domain.Validate(); err != nil {
		return fmt.Errorf("invalid domain configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
