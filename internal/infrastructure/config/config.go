package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	apperrors "github.com/stack-service/circle_transfer/pkg/errors"
)

// Names of the two secrets the harness requires
const (
	EnvSandboxAPIKey    = "CIRCLE_API_KEY_SANDBOX"
	EnvProductionAPIKey = "CIRCLE_API_KEY_PRODUCTION"
)

// Config holds all configuration for the harness
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	ParamsFile  string          `mapstructure:"params_file"`
	Circle      CircleConfig    `mapstructure:"circle"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type CircleConfig struct {
	SandboxAPIKey     string   `mapstructure:"sandbox_api_key"`
	ProductionAPIKey  string   `mapstructure:"production_api_key"`
	SandboxBaseURL    string   `mapstructure:"sandbox_base_url"`
	ProductionBaseURL string   `mapstructure:"production_base_url"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds"`
	SupportedChains   []string `mapstructure:"supported_chains"`
}

type TelemetryConfig struct {
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// Load loads configuration from a .env file, an optional config.yaml and
// environment variables. Credentials are not checked here; call Validate.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeConfiguration,
				apperrors.ErrConfiguration.Code, "error reading config file")
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeConfiguration,
			apperrors.ErrConfiguration.Code, "error unmarshaling config")
	}

	config.Circle.SupportedChains = normalizeChains(config.Circle.SupportedChains)

	if err := validateSettings(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("params_file", "test-params.json")

	// Circle defaults
	v.SetDefault("circle.sandbox_api_key", "")
	v.SetDefault("circle.production_api_key", "")
	v.SetDefault("circle.sandbox_base_url", "https://api-sandbox.circle.com")
	v.SetDefault("circle.production_base_url", "https://api.circle.com")
	v.SetDefault("circle.timeout_seconds", 30)
	v.SetDefault("circle.supported_chains", []string{"ETH", "ALGO", "APTOS", "ARB", "AVAX", "BASE", "CELO", "FLOW", "HBAR", "MATIC", "NEAR", "NOBLE", "OP", "POLY", "SOL", "SUI", "TRX", "UNI", "XLM"})

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.pushgateway_url", "")
}

func overrideFromEnv(v *viper.Viper) {
	// Circle API
	if key := os.Getenv(EnvSandboxAPIKey); key != "" {
		v.Set("circle.sandbox_api_key", key)
	}
	if key := os.Getenv(EnvProductionAPIKey); key != "" {
		v.Set("circle.production_api_key", key)
	}
	if baseURL := os.Getenv("CIRCLE_SANDBOX_BASE_URL"); baseURL != "" {
		v.Set("circle.sandbox_base_url", baseURL)
	}
	if baseURL := os.Getenv("CIRCLE_PRODUCTION_BASE_URL"); baseURL != "" {
		v.Set("circle.production_base_url", baseURL)
	}
	if timeout := os.Getenv("CIRCLE_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			v.Set("circle.timeout_seconds", t)
		}
	}
	if supportedChains := os.Getenv("CIRCLE_SUPPORTED_CHAINS"); supportedChains != "" {
		v.Set("circle.supported_chains", strings.Split(supportedChains, ","))
	}

	if paramsFile := os.Getenv("PARAMS_FILE"); paramsFile != "" {
		v.Set("params_file", paramsFile)
	}

	// Telemetry
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		v.Set("telemetry.otlp_endpoint", endpoint)
	}
	if gateway := os.Getenv("PROMETHEUS_PUSHGATEWAY_URL"); gateway != "" {
		v.Set("telemetry.pushgateway_url", gateway)
	}
}

func normalizeChains(chains []string) []string {
	var out []string
	for _, chain := range chains {
		trimmed := strings.TrimSpace(chain)
		if trimmed != "" {
			out = append(out, strings.ToUpper(trimmed))
		}
	}
	return out
}

func validateSettings(config *Config) error {
	if config.Circle.TimeoutSeconds <= 0 {
		return apperrors.Configuration("circle timeout must be positive")
	}

	if len(config.Circle.SupportedChains) == 0 {
		return apperrors.Configuration("circle supported chains configuration is required")
	}

	if config.Circle.SandboxBaseURL == "" || config.Circle.ProductionBaseURL == "" {
		return apperrors.Configuration("circle base URLs are required")
	}

	return nil
}

// Validate fails with a configuration error if either credential is empty.
// Once it returns nil both keys are non-empty.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Circle.SandboxAPIKey) == "" {
		return apperrors.Configuration(EnvSandboxAPIKey + " is required in the environment or .env file").
			WithDetail("variable", EnvSandboxAPIKey)
	}

	if strings.TrimSpace(c.Circle.ProductionAPIKey) == "" {
		return apperrors.Configuration(EnvProductionAPIKey + " is required in the environment or .env file").
			WithDetail("variable", EnvProductionAPIKey)
	}

	return nil
}

// Credentials returns the API key pair
func (c *Config) Credentials() entities.Credentials {
	return entities.Credentials{
		SandboxAPIKey:    strings.TrimSpace(c.Circle.SandboxAPIKey),
		ProductionAPIKey: strings.TrimSpace(c.Circle.ProductionAPIKey),
	}
}

// BaseURL returns the Circle API base URL for an environment
func (c *Config) BaseURL(env entities.Environment) string {
	if env == entities.EnvironmentProduction {
		return c.Circle.ProductionBaseURL
	}
	return c.Circle.SandboxBaseURL
}

// Timeout returns the per-request Circle timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Circle.TimeoutSeconds) * time.Second
}

// IsSupportedChain reports whether chain is in the configured chain list
func (c *Config) IsSupportedChain(chain string) bool {
	for _, supported := range c.Circle.SupportedChains {
		if supported == chain {
			return true
		}
	}
	return false
}
