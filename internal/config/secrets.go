package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret returns the inline value if set, otherwise the named
// environment variable.
func ResolveSecret(inline, envName string) string {
	if v := strings.TrimSpace(inline); v != "" {
		return v
	}
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}

// RequireSecret is ResolveSecret for values a command cannot start without.
func RequireSecret(label, inline, envName string) (string, error) {
	if v := ResolveSecret(inline, envName); v != "" {
		return v, nil
	}
	if envName == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	return "", fmt.Errorf("%s is required: set %s in the environment", label, envName)
}

func (c Config) DiscordToken() (string, error) {
	return RequireSecret("discord bot token", c.Discord.Token, c.Discord.TokenEnv)
}

func (c Config) MarketplaceAPIKey() (string, error) {
	return RequireSecret("marketplace API key", c.Marketplace.APIKey, c.Marketplace.APIKeyEnv)
}

// APIBaseURL is optional; empty means the bot runs sessions in process.
func (c Config) APIBaseURL() string {
	return ResolveSecret(c.Discord.APIBaseURL, c.Discord.APIBaseURLEnv)
}

func (c Config) RedisURL() (string, error) {
	return RequireSecret("redis URL", c.Sessions.RedisURL, c.Sessions.RedisURLEnv)
}
