package config

import (
	"strings"
	"testing"
)

func TestResolveSecretPrefersInline(t *testing.T) {
	t.Setenv("CANDYBOWL_TEST_SECRET", "from-env")
	if got := ResolveSecret(" inline ", "CANDYBOWL_TEST_SECRET"); got != "inline" {
		t.Fatalf("expected inline value, got %q", got)
	}
	if got := ResolveSecret("", "CANDYBOWL_TEST_SECRET"); got != "from-env" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestRequireSecretNamesVariable(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	cfg := Default()
	_, err := cfg.DiscordToken()
	if err == nil || !strings.Contains(err.Error(), "DISCORD_BOT_TOKEN") {
		t.Fatalf("expected error naming DISCORD_BOT_TOKEN, got %v", err)
	}

	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	token, err := cfg.DiscordToken()
	if err != nil || token != "abc" {
		t.Fatalf("expected token from env, got %q (%v)", token, err)
	}
}

func TestAPIBaseURLOptional(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	cfg := Default()
	if got := cfg.APIBaseURL(); got != "" {
		t.Fatalf("expected empty base URL, got %q", got)
	}
	cfg.Discord.APIBaseURL = "http://localhost:5000"
	if got := cfg.APIBaseURL(); got != "http://localhost:5000" {
		t.Fatalf("unexpected base URL %q", got)
	}
}
