// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like SERPER_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if absent.
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from the working directory upward so binaries and
// tests can run from any level of the tree.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig applies well-known environment variables for values
// still empty after expansion. These are the same variable names the
// original deployment documented.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.Serper.APIKey == "" {
		if val := os.Getenv("SERPER_API_KEY"); val != "" {
			cfg.APIs.Serper.APIKey = val
		}
	}
	if cfg.APIs.Firecrawl.APIKey == "" {
		if val := os.Getenv("FIRECRAWL_API_KEY"); val != "" {
			cfg.APIs.Firecrawl.APIKey = val
		}
	}
	if cfg.APIs.Jina.APIKey == "" {
		if val := os.Getenv("JINA_API_KEY"); val != "" {
			cfg.APIs.Jina.APIKey = val
		}
	}
	if cfg.APIs.GenAI.XAIAPIKey == "" {
		if val := os.Getenv("XAI_API_KEY"); val != "" {
			cfg.APIs.GenAI.XAIAPIKey = val
		}
	}
	if cfg.APIs.GenAI.OpenAIAPIKey == "" {
		if val := os.Getenv("OPENAI_API_KEY"); val != "" {
			cfg.APIs.GenAI.OpenAIAPIKey = val
		}
	}
	if cfg.APIs.GenAI.OllamaURL == "" {
		if val := os.Getenv("OLLAMA_API_BASE"); val != "" {
			cfg.APIs.GenAI.OllamaURL = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "research-crew"
	}

	if cfg.Camunda.ProcessID == "" {
		cfg.Camunda.ProcessID = "company-research"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Gateway.ListenAddress == "" {
		cfg.Gateway.ListenAddress = ":8080"
	}
	if cfg.Gateway.RateLimit == 0 {
		cfg.Gateway.RateLimit = 20
	}
	if cfg.Gateway.RateWindowSecs == 0 {
		cfg.Gateway.RateWindowSecs = 60
	}

	if cfg.APIs.Serper.BaseURL == "" {
		cfg.APIs.Serper.BaseURL = "https://google.serper.dev"
	}
	if cfg.APIs.Serper.MaxResults == 0 {
		cfg.APIs.Serper.MaxResults = 5
	}
	if cfg.APIs.Firecrawl.BaseURL == "" {
		cfg.APIs.Firecrawl.BaseURL = "https://api.firecrawl.dev"
	}
	if cfg.APIs.Jina.BaseURL == "" {
		cfg.APIs.Jina.BaseURL = "https://r.jina.ai"
	}
	if cfg.APIs.GenAI.OllamaURL == "" {
		cfg.APIs.GenAI.OllamaURL = "http://localhost:11434"
	}
	if cfg.APIs.GenAI.OllamaModel == "" {
		cfg.APIs.GenAI.OllamaModel = "tinyllama"
	}
	if cfg.APIs.GenAI.MaxTokens == 0 {
		cfg.APIs.GenAI.MaxTokens = 2000
	}
	if cfg.APIs.GenAI.Temperature == 0 {
		cfg.APIs.GenAI.Temperature = 0.1
	}

	if cfg.Agents.RegistryPath == "" {
		cfg.Agents.RegistryPath = "configs/agents.json"
	}

	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "reports"
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// validateConfig checks required settings and reports missing API keys.
// Search needs a Serper key; scraping needs at least one of Firecrawl or
// Jina. The model path always has the Ollama fallback, so no key is hard
// required there.
func validateConfig(cfg *Config) error {
	var missing []string

	if cfg.Camunda.BrokerAddress == "" {
		missing = append(missing, "camunda.broker_address")
	}
	if cfg.APIs.Serper.APIKey == "" {
		missing = append(missing, "apis.serper.api_key (SERPER_API_KEY)")
	}
	if cfg.APIs.Firecrawl.APIKey == "" && cfg.APIs.Jina.APIKey == "" {
		missing = append(missing, "one of apis.firecrawl.api_key or apis.jina.api_key")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
