package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Model       ModelConfig       `json:"model" yaml:"model"`
	Providers   ProvidersConfig   `json:"providers" yaml:"providers"`
	Discord     DiscordConfig     `json:"discord" yaml:"discord"`
	Marketplace MarketplaceConfig `json:"marketplace" yaml:"marketplace"`
	Data        DataConfig        `json:"data" yaml:"data"`
	Sessions    SessionsConfig    `json:"sessions" yaml:"sessions"`
	Shop        ShopConfig        `json:"shop" yaml:"shop"`
	Log         LogConfig         `json:"log" yaml:"log"`
}

type ServerConfig struct {
	BindAddress string `json:"bind_address" yaml:"bind_address"`
	Port        int    `json:"port" yaml:"port"`
}

type ModelConfig struct {
	Provider          string  `json:"provider" yaml:"provider"`
	Name              string  `json:"name" yaml:"name"`
	Temperature       float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens         int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxToolIterations int     `json:"max_tool_iterations,omitempty" yaml:"max_tool_iterations,omitempty"`
	TimeoutSeconds    int     `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

type ProviderEndpointConfig struct {
	BaseURL   string            `json:"base_url" yaml:"base_url"`
	APIKey    string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv string            `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

type ProvidersConfig struct {
	Gemini     ProviderEndpointConfig `json:"gemini" yaml:"gemini"`
	OpenAI     ProviderEndpointConfig `json:"openai" yaml:"openai"`
	OpenRouter ProviderEndpointConfig `json:"openrouter" yaml:"openrouter"`
	Generic    ProviderEndpointConfig `json:"generic" yaml:"generic"`
}

type DiscordConfig struct {
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	TokenEnv        string   `json:"token_env,omitempty" yaml:"token_env,omitempty"`
	GuildID         string   `json:"guild_id,omitempty" yaml:"guild_id,omitempty"`
	AllowChannels   []string `json:"allow_channels,omitempty" yaml:"allow_channels,omitempty"`
	AllowUsers      []string `json:"allow_users,omitempty" yaml:"allow_users,omitempty"`
	RateLimitPerMin int      `json:"rate_limit_per_min,omitempty" yaml:"rate_limit_per_min,omitempty"`
	APIBaseURL      string   `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty"`
	APIBaseURLEnv   string   `json:"api_base_url_env,omitempty" yaml:"api_base_url_env,omitempty"`
}

type MarketplaceConfig struct {
	BaseURL     string `json:"base_url" yaml:"base_url"`
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv   string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	ResultLimit int    `json:"result_limit,omitempty" yaml:"result_limit,omitempty"`
}

type DataConfig struct {
	Dir           string `json:"dir" yaml:"dir"`
	LedgerBackend string `json:"ledger_backend" yaml:"ledger_backend"`
	InventoryFile string `json:"inventory_file" yaml:"inventory_file"`
	SQLiteFile    string `json:"sqlite_file" yaml:"sqlite_file"`
	NotesFile     string `json:"notes_file" yaml:"notes_file"`
	BankFile      string `json:"bank_file" yaml:"bank_file"`
	AuditFile     string `json:"audit_file" yaml:"audit_file"`
}

type SessionsConfig struct {
	Backend     string `json:"backend" yaml:"backend"`
	Capacity    int    `json:"capacity" yaml:"capacity"`
	TTLMinutes  int    `json:"ttl_minutes" yaml:"ttl_minutes"`
	RedisURL    string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	RedisURLEnv string `json:"redis_url_env,omitempty" yaml:"redis_url_env,omitempty"`
	RedisPrefix string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
}

type ShopConfig struct {
	OperatorName       string  `json:"operator_name" yaml:"operator_name"`
	InitialBalanceUSD  float64 `json:"initial_balance_usd" yaml:"initial_balance_usd"`
	BowlProducts       int     `json:"bowl_products" yaml:"bowl_products"`
	UnitsPerProduct    int     `json:"units_per_product" yaml:"units_per_product"`
	RestockCanPurchase bool    `json:"restock_can_purchase" yaml:"restock_can_purchase"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			BindAddress: "127.0.0.1",
			Port:        5000,
		},
		Model: ModelConfig{
			Provider:          "gemini",
			Name:              "gemini-2.5-flash",
			MaxToolIterations: 8,
			TimeoutSeconds:    90,
		},
		Providers: ProvidersConfig{
			Gemini: ProviderEndpointConfig{
				BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
				APIKeyEnv: "GOOGLE_API_KEY",
			},
			OpenAI: ProviderEndpointConfig{
				BaseURL:   "https://api.openai.com/v1",
				APIKeyEnv: "OPENAI_API_KEY",
			},
			OpenRouter: ProviderEndpointConfig{
				BaseURL:   "https://openrouter.ai/api/v1",
				APIKeyEnv: "OPENROUTER_API_KEY",
			},
			Generic: ProviderEndpointConfig{
				BaseURL:   "",
				APIKeyEnv: "OPENAI_COMPAT_API_KEY",
			},
		},
		Discord: DiscordConfig{
			TokenEnv:        "DISCORD_BOT_TOKEN",
			RateLimitPerMin: 20,
			APIBaseURLEnv:   "API_BASE_URL",
		},
		Marketplace: MarketplaceConfig{
			BaseURL:     "https://graphql.canopyapi.co/",
			APIKeyEnv:   "CANOPY_API_KEY",
			ResultLimit: 5,
		},
		Data: DataConfig{
			Dir:           "data",
			LedgerBackend: "csv",
			InventoryFile: "inventory.csv",
			SQLiteFile:    "inventory.db",
			NotesFile:     "notes.txt",
			BankFile:      "bank.txt",
			AuditFile:     "audit.jsonl",
		},
		Sessions: SessionsConfig{
			Backend:     "memory",
			Capacity:    1000,
			TTLMinutes:  24 * 60,
			RedisURLEnv: "REDIS_URL",
			RedisPrefix: "candybowl:session:",
		},
		Shop: ShopConfig{
			OperatorName:      "Jordan Hayes",
			InitialBalanceUSD: 100,
			BowlProducts:      6,
			UnitsPerProduct:   30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Server.BindAddress == "" {
		c.Server.BindAddress = d.Server.BindAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Model.Provider == "" {
		c.Model.Provider = d.Model.Provider
	}
	if c.Model.Name == "" {
		c.Model.Name = d.Model.Name
	}
	if c.Model.MaxToolIterations == 0 {
		c.Model.MaxToolIterations = d.Model.MaxToolIterations
	}
	if c.Model.TimeoutSeconds == 0 {
		c.Model.TimeoutSeconds = d.Model.TimeoutSeconds
	}
	if c.Providers.Gemini.BaseURL == "" {
		c.Providers.Gemini.BaseURL = d.Providers.Gemini.BaseURL
	}
	if c.Providers.Gemini.APIKeyEnv == "" && c.Providers.Gemini.APIKey == "" {
		c.Providers.Gemini.APIKeyEnv = d.Providers.Gemini.APIKeyEnv
	}
	if c.Providers.OpenAI.BaseURL == "" {
		c.Providers.OpenAI = d.Providers.OpenAI
	}
	if c.Providers.OpenRouter.BaseURL == "" {
		c.Providers.OpenRouter = d.Providers.OpenRouter
	}
	if c.Providers.Generic.APIKeyEnv == "" && c.Providers.Generic.APIKey == "" {
		c.Providers.Generic.APIKeyEnv = d.Providers.Generic.APIKeyEnv
	}
	if c.Discord.TokenEnv == "" {
		c.Discord.TokenEnv = d.Discord.TokenEnv
	}
	if c.Discord.RateLimitPerMin == 0 {
		c.Discord.RateLimitPerMin = d.Discord.RateLimitPerMin
	}
	if c.Discord.APIBaseURLEnv == "" {
		c.Discord.APIBaseURLEnv = d.Discord.APIBaseURLEnv
	}
	if c.Marketplace.BaseURL == "" {
		c.Marketplace.BaseURL = d.Marketplace.BaseURL
	}
	if c.Marketplace.APIKeyEnv == "" && c.Marketplace.APIKey == "" {
		c.Marketplace.APIKeyEnv = d.Marketplace.APIKeyEnv
	}
	if c.Marketplace.ResultLimit == 0 {
		c.Marketplace.ResultLimit = d.Marketplace.ResultLimit
	}
	if c.Data.Dir == "" {
		c.Data.Dir = d.Data.Dir
	}
	if c.Data.LedgerBackend == "" {
		c.Data.LedgerBackend = d.Data.LedgerBackend
	}
	if c.Data.InventoryFile == "" {
		c.Data.InventoryFile = d.Data.InventoryFile
	}
	if c.Data.SQLiteFile == "" {
		c.Data.SQLiteFile = d.Data.SQLiteFile
	}
	if c.Data.NotesFile == "" {
		c.Data.NotesFile = d.Data.NotesFile
	}
	if c.Data.AuditFile == "" {
		c.Data.AuditFile = d.Data.AuditFile
	}
	if c.Data.BankFile == "" {
		c.Data.BankFile = d.Data.BankFile
	}
	if c.Sessions.Backend == "" {
		c.Sessions.Backend = d.Sessions.Backend
	}
	if c.Sessions.Capacity == 0 {
		c.Sessions.Capacity = d.Sessions.Capacity
	}
	if c.Sessions.TTLMinutes == 0 {
		c.Sessions.TTLMinutes = d.Sessions.TTLMinutes
	}
	if c.Sessions.RedisURLEnv == "" && c.Sessions.RedisURL == "" {
		c.Sessions.RedisURLEnv = d.Sessions.RedisURLEnv
	}
	if c.Sessions.RedisPrefix == "" {
		c.Sessions.RedisPrefix = d.Sessions.RedisPrefix
	}
	if c.Shop.OperatorName == "" {
		c.Shop.OperatorName = d.Shop.OperatorName
	}
	if c.Shop.BowlProducts == 0 {
		c.Shop.BowlProducts = d.Shop.BowlProducts
	}
	if c.Shop.UnitsPerProduct == 0 {
		c.Shop.UnitsPerProduct = d.Shop.UnitsPerProduct
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	host := c.Server.BindAddress
	if host == "" {
		return errors.New("server.bind_address is required")
	}
	if ip := net.ParseIP(host); ip == nil {
		return fmt.Errorf("server.bind_address must be an IP address: %q", host)
	}

	provider := strings.ToLower(strings.TrimSpace(c.Model.Provider))
	supported := map[string]bool{"gemini": true, "openai": true, "openrouter": true, "generic": true}
	if !supported[provider] {
		return fmt.Errorf("unsupported model provider: %q", c.Model.Provider)
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		return errors.New("model.name is required")
	}
	if c.Model.MaxToolIterations < 1 {
		return errors.New("model.max_tool_iterations must be >= 1")
	}
	if provider == "generic" && strings.TrimSpace(c.Providers.Generic.BaseURL) == "" {
		return errors.New("providers.generic.base_url is required for the generic provider")
	}
	if c.Discord.RateLimitPerMin < 1 {
		return errors.New("discord.rate_limit_per_min must be >= 1")
	}
	if c.Marketplace.ResultLimit < 1 || c.Marketplace.ResultLimit > 50 {
		return fmt.Errorf("marketplace.result_limit out of range: %d", c.Marketplace.ResultLimit)
	}

	switch c.Data.LedgerBackend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("data.ledger_backend must be csv or sqlite: %q", c.Data.LedgerBackend)
	}
	if strings.TrimSpace(c.Data.Dir) == "" {
		return errors.New("data.dir cannot be empty")
	}

	switch c.Sessions.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("sessions.backend must be memory or redis: %q", c.Sessions.Backend)
	}
	if c.Sessions.Capacity < 0 {
		return errors.New("sessions.capacity cannot be negative")
	}
	if c.Sessions.TTLMinutes < 0 {
		return errors.New("sessions.ttl_minutes cannot be negative")
	}

	if strings.TrimSpace(c.Shop.OperatorName) == "" {
		return errors.New("shop.operator_name is required")
	}
	if c.Shop.InitialBalanceUSD < 0 {
		return errors.New("shop.initial_balance_usd cannot be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error: %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json: %q", c.Log.Format)
	}
	return nil
}

// Path resolves a data file name against data.dir unless it is absolute.
func (c Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

func LoadOrDefault(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			return cfg, nil
		}
		return Config{}, err
	}
	return Load(path)
}

func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if isYAML(path) {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	var (
		buf []byte
		err error
	)
	if isYAML(path) {
		buf, err = yaml.Marshal(cfg)
	} else {
		buf, err = json.MarshalIndent(cfg, "", "  ")
		buf = append(buf, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return WriteAtomic(path, buf, 0o600)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
