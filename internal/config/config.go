// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Menu       MenuConfig       `yaml:"menu"`
	Order      OrderConfig      `yaml:"order"`
	Session    SessionConfig    `yaml:"session"`
	Restaurant RestaurantConfig `yaml:"restaurant"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds listener ports
type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

// LLMConfig selects and tunes the language model provider
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Stream      bool    `yaml:"stream"`
}

// MenuConfig says where the catalog comes from
type MenuConfig struct {
	Source   string `yaml:"source"`
	Path     string `yaml:"path"`
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	SeedFrom string `yaml:"seed_from"`
}

// OrderConfig holds pricing parameters
type OrderConfig struct {
	TaxRate string `yaml:"tax_rate"`
}

// SessionConfig controls session lifetime and token signing
type SessionConfig struct {
	TokenSecret   string        `yaml:"token_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RestaurantConfig carries the persona shown to customers
type RestaurantConfig struct {
	Name     string   `yaml:"name"`
	Greeting string   `yaml:"greeting"`
	Prompts  []string `yaml:"prompts"`
}

// LogConfig configures logrus
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, MetricsPort: 9090},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.4,
			MaxTokens:   1024,
			Stream:      true,
		},
		Menu:  MenuConfig{Source: "file", Path: "data/menu.json", Driver: "sqlite3"},
		Order: OrderConfig{TaxRate: "0.07"},
		Session: SessionConfig{
			TokenTTL:      12 * time.Hour,
			IdleTTL:       2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Restaurant: RestaurantConfig{
			Name:     "Lighthouse Cove",
			Greeting: "Hi there! Welcome to Lighthouse Cove. What can I get started for you today?",
			Prompts: []string{
				"What drinks do you have?",
				"I want a burger and fries",
				"What are your specials?",
			},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then applies environment overrides and validates the result
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv("OLLAMA_HOST")
	}
	if v := os.Getenv("MENU_DSN"); v != "" {
		c.Menu.DSN = v
	}
	if v := os.Getenv("SESSION_TOKEN_SECRET"); v != "" {
		c.Session.TokenSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if _, err := c.TaxRate(); err != nil {
		return err
	}
	switch c.Menu.Source {
	case "file":
		if c.Menu.Path == "" {
			return fmt.Errorf("menu.path is required for file menus")
		}
	case "database":
		if c.Menu.DSN == "" {
			return fmt.Errorf("menu.dsn is required for database menus")
		}
	default:
		return fmt.Errorf("unsupported menu source %q", c.Menu.Source)
	}
	if c.Session.TokenSecret == "" {
		return fmt.Errorf("session.token_secret is required (or set SESSION_TOKEN_SECRET)")
	}
	if c.Session.TokenTTL <= 0 || c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session ttls must be positive")
	}
	return nil
}

// TaxRate parses the configured tax rate
func (c *Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Order.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid order.tax_rate %q: %w", c.Order.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("order.tax_rate %s must be in [0, 1)", rate)
	}
	return rate, nil
}
