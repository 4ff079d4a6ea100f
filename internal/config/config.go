package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ScoutNewsletter/internal/domain"
)

const (
	configPathEnv = "NEWSLETTER_CONFIG"

	providerEnv = "NEWSLETTER_PROVIDER"

	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	geminiModelEnv     = "GEMINI_MODEL"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	anthropicModelEnv  = "ANTHROPIC_MODEL"

	scanAPIKeyEnv      = "PERPLEXITY_API_KEY"
	scanEndpointEnv    = "PERPLEXITY_API_URL"
	scanModelEnv       = "PERPLEXITY_MODEL"
	scanLegacyModelEnv = "PERPLEXITY_COIN_MODEL"
	scanWindowDaysEnv  = "PERPLEXITY_WINDOW_DAYS"
	scanMaxTokensEnv   = "PERPLEXITY_MAX_TOKENS"
	scanTemperatureEnv = "PERPLEXITY_TEMPERATURE"

	resendAPIKeyEnv = "RESEND_API_KEY"
	resendFromEnv   = "RESEND_FROM_EMAIL"

	recipientsEnv  = "NEWSLETTER_RECIPIENTS"
	dataDirEnv     = "NEWSLETTER_DATA_DIR"
	storeDriverEnv = "NEWSLETTER_STORE_DRIVER"
	databaseDSNEnv = "DATABASE_DSN"
	logLevelEnv    = "LOG_LEVEL"
)

// Provider names understood by the generator registry.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds every setting the newsletter workflow needs.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Gemini     ProviderConfig   `yaml:"gemini"`
	OpenAI     ProviderConfig   `yaml:"openai"`
	Anthropic  ProviderConfig   `yaml:"anthropic"`
	Scan       ScanConfig       `yaml:"scan"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Storage    StorageConfig    `yaml:"storage"`
	Recipients RecipientsConfig `yaml:"recipients"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// GeneratorConfig selects the primary generative provider.
type GeneratorConfig struct {
	Provider         string `yaml:"provider"`
	DisableGrounding bool   `yaml:"disableGrounding"`
}

// ProviderConfig holds credentials for one primary provider.
type ProviderConfig struct {
	APIKey    string `yaml:"apiKey"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"maxTokens"`
}

// ScanConfig configures the secondary (Perplexity-compatible) scan service.
type ScanConfig struct {
	APIKey      string  `yaml:"apiKey"`
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	WindowDays  int     `yaml:"windowDays"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
}

// DeliveryConfig wires the transactional email provider.
type DeliveryConfig struct {
	APIKey string `yaml:"apiKey"`
	From   string `yaml:"from"`
}

// StorageConfig locates persisted state.
type StorageConfig struct {
	Driver          string `yaml:"driver"`
	DataDir         string `yaml:"dataDir"`
	NewslettersFile string `yaml:"newslettersFile"`
	SubscribersFile string `yaml:"subscribersFile"`
	DSN             string `yaml:"dsn"`
}

// NewslettersPath is the full path of the newsletter collection file.
func (s StorageConfig) NewslettersPath() string {
	return filepath.Join(s.DataDir, s.NewslettersFile)
}

// SubscribersPath is the full path of the optional subscriber list.
func (s StorageConfig) SubscribersPath() string {
	return filepath.Join(s.DataDir, s.SubscribersFile)
}

// RecipientsConfig carries the inline comma-separated fallback list.
type RecipientsConfig struct {
	Inline string `yaml:"inline"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Scan.WindowDays < 1 {
		cfg.Scan.WindowDays = 1
	}

	return cfg
}

// RequireGeneration fails when the selected primary provider has no credential.
func (c Config) RequireGeneration() error {
	var key string
	switch c.Generator.Provider {
	case ProviderGemini:
		key = c.Gemini.APIKey
	case ProviderOpenAI:
		key = c.OpenAI.APIKey
	case ProviderAnthropic:
		key = c.Anthropic.APIKey
	default:
		return fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, c.Generator.Provider)
	}
	if key == "" {
		return fmt.Errorf("%w: an API key for provider %q is required for generation", domain.ErrConfiguration, c.Generator.Provider)
	}
	return nil
}

// RequireDelivery fails unless both the delivery credential and sender are set.
func (c Config) RequireDelivery() error {
	if c.Delivery.APIKey == "" || c.Delivery.From == "" {
		return fmt.Errorf("%w: %s and %s are required to send", domain.ErrConfiguration, resendAPIKeyEnv, resendFromEnv)
	}
	return nil
}

// RequireStorage validates the storage driver settings.
func (c Config) RequireStorage() error {
	switch c.Storage.Driver {
	case DriverFile:
		return nil
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: %s is required for the postgres store", domain.ErrConfiguration, databaseDSNEnv)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown store driver %q", domain.ErrConfiguration, c.Storage.Driver)
	}
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, logLevelEnv)
	if v := os.Getenv(providerEnv); v != "" {
		c.Generator.Provider = strings.ToLower(strings.TrimSpace(v))
	}

	setString(&c.Gemini.APIKey, geminiAPIKeyEnv)
	setString(&c.Gemini.Model, geminiModelEnv)
	setString(&c.OpenAI.APIKey, openAIAPIKeyEnv)
	setString(&c.OpenAI.Model, openAIModelEnv)
	setString(&c.Anthropic.APIKey, anthropicAPIKeyEnv)
	setString(&c.Anthropic.Model, anthropicModelEnv)

	setString(&c.Scan.APIKey, scanAPIKeyEnv)
	setString(&c.Scan.Endpoint, scanEndpointEnv)
	if v := os.Getenv(scanModelEnv); v != "" {
		c.Scan.Model = v
	} else if v := os.Getenv(scanLegacyModelEnv); v != "" {
		c.Scan.Model = v
	}
	setInt(&c.Scan.WindowDays, scanWindowDaysEnv)
	setInt(&c.Scan.MaxTokens, scanMaxTokensEnv)
	if v := os.Getenv(scanTemperatureEnv); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scan.Temperature = f
		} else {
			log.Printf("config: invalid %s=%q, keeping %v", scanTemperatureEnv, v, c.Scan.Temperature)
		}
	}

	setString(&c.Delivery.APIKey, resendAPIKeyEnv)
	setString(&c.Delivery.From, resendFromEnv)

	setString(&c.Recipients.Inline, recipientsEnv)
	setString(&c.Storage.DataDir, dataDirEnv)
	setString(&c.Storage.DSN, databaseDSNEnv)
	if v := os.Getenv(storeDriverEnv); v != "" {
		c.Storage.Driver = strings.ToLower(strings.TrimSpace(v))
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: invalid %s=%q, keeping %d", env, v, *dst)
		return
	}
	*dst = n
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Generator.Provider != "" {
		base.Generator.Provider = strings.ToLower(override.Generator.Provider)
	}
	if override.Generator.DisableGrounding {
		base.Generator.DisableGrounding = true
	}

	base.Gemini = mergeProvider(base.Gemini, override.Gemini)
	base.OpenAI = mergeProvider(base.OpenAI, override.OpenAI)
	base.Anthropic = mergeProvider(base.Anthropic, override.Anthropic)

	if override.Scan.APIKey != "" {
		base.Scan.APIKey = override.Scan.APIKey
	}
	if override.Scan.Endpoint != "" {
		base.Scan.Endpoint = override.Scan.Endpoint
	}
	if override.Scan.Model != "" {
		base.Scan.Model = override.Scan.Model
	}
	if override.Scan.WindowDays != 0 {
		base.Scan.WindowDays = override.Scan.WindowDays
	}
	if override.Scan.MaxTokens != 0 {
		base.Scan.MaxTokens = override.Scan.MaxTokens
	}
	if override.Scan.Temperature != 0 {
		base.Scan.Temperature = override.Scan.Temperature
	}

	if override.Delivery.APIKey != "" {
		base.Delivery.APIKey = override.Delivery.APIKey
	}
	if override.Delivery.From != "" {
		base.Delivery.From = override.Delivery.From
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = strings.ToLower(override.Storage.Driver)
	}
	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}
	if override.Storage.NewslettersFile != "" {
		base.Storage.NewslettersFile = override.Storage.NewslettersFile
	}
	if override.Storage.SubscribersFile != "" {
		base.Storage.SubscribersFile = override.Storage.SubscribersFile
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.Recipients.Inline != "" {
		base.Recipients.Inline = override.Recipients.Inline
	}

	return base
}

func mergeProvider(base, override ProviderConfig) ProviderConfig {
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.MaxTokens != 0 {
		base.MaxTokens = override.MaxTokens
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Generator: GeneratorConfig{Provider: ProviderGemini},
		Gemini:    ProviderConfig{Model: "gemini-2.5-flash"},
		OpenAI:    ProviderConfig{Model: "gpt-4o-mini"},
		Anthropic: ProviderConfig{Model: "claude-haiku-4-5", MaxTokens: 2048},
		Scan: ScanConfig{
			Endpoint:    "https://api.perplexity.ai/chat/completions",
			Model:       "sonar-pro",
			WindowDays:  10,
			MaxTokens:   1100,
			Temperature: 0.15,
		},
		Storage: StorageConfig{
			Driver:          DriverFile,
			DataDir:         "data",
			NewslettersFile: "newsletters.json",
			SubscribersFile: "subscribers.json",
		},
	}
}
