package auth

import (
	"errors"
	"os"
	"testing"

	"github.com/cbout22/ghcp/internal/errdefs"
)

func env(values map[string]string) Getenv {
	return func(key string) string { return values[key] }
}

func TestToken_GITHUB_TOKEN(t *testing.T) {
	tok, err := Token(env(map[string]string{"GITHUB_TOKEN": "gh-token-123"}))
	if err != nil {
		t.Fatalf("Token(): unexpected error: %v", err)
	}
	if tok != "gh-token-123" {
		t.Errorf("Token(): got %q, want %q", tok, "gh-token-123")
	}
}

func TestToken_GH_TOKEN_Fallback(t *testing.T) {
	tok, err := Token(env(map[string]string{"GITHUB_TOKEN": "", "GH_TOKEN": "fallback-token"}))
	if err != nil {
		t.Fatalf("Token(): unexpected error: %v", err)
	}
	if tok != "fallback-token" {
		t.Errorf("Token(): got %q, want %q", tok, "fallback-token")
	}
}

func TestToken_GITHUB_TOKEN_Priority(t *testing.T) {
	tok, err := Token(env(map[string]string{"GITHUB_TOKEN": "primary", "GH_TOKEN": "secondary"}))
	if err != nil {
		t.Fatalf("Token(): unexpected error: %v", err)
	}
	if tok != "primary" {
		t.Errorf("Token(): GITHUB_TOKEN should take priority, got %q", tok)
	}
}

func TestToken_NoToken(t *testing.T) {
	_, err := Token(env(nil))
	if err == nil {
		t.Fatal("Token(): expected error when no token set, got nil")
	}
}

func TestToken_OSEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "from-os")

	tok := Resolve("", os.Getenv)
	if tok != "from-os" {
		t.Errorf("Resolve(): got %q, want %q", tok, "from-os")
	}
}

func TestResolve_ExplicitWins(t *testing.T) {
	got := Resolve("  flag-token ", env(map[string]string{"GITHUB_TOKEN": "env-token"}))
	if got != "flag-token" {
		t.Errorf("Resolve(): got %q, want %q", got, "flag-token")
	}

	got = Resolve("", env(nil))
	if got != "" {
		t.Errorf("Resolve() with nothing set: got %q, want empty", got)
	}
}

func TestNewTokenSource(t *testing.T) {
	if ts := NewTokenSource(""); ts != nil {
		t.Fatal("NewTokenSource(\"\"): expected nil source")
	}

	ts := NewTokenSource("ghp_abc")
	if ts == nil {
		t.Fatal("NewTokenSource: returned nil")
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token(): %v", err)
	}
	if tok.AccessToken != "ghp_abc" {
		t.Errorf("AccessToken: got %q, want %q", tok.AccessToken, "ghp_abc")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"ghp_1234567890abcdef", "ghp_...cdef"},
		{"github_pat_11AAAAAA_zzzz9999", "github_pat_...9999"},
		{"customtoken1234", "cust...1234"},
		{"short", "*****"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Mask(tt.token); got != tt.want {
			t.Errorf("Mask(%q): got %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestCheckFormat(t *testing.T) {
	if _, err := CheckFormat(""); !errors.Is(err, errdefs.ErrAuthentication) {
		t.Errorf("CheckFormat(\"\"): got %v, want ErrAuthentication", err)
	}
	if _, err := CheckFormat("ghp_abc def"); !errors.Is(err, errdefs.ErrAuthentication) {
		t.Errorf("CheckFormat(whitespace): got %v, want ErrAuthentication", err)
	}

	warning, err := CheckFormat("ghp_1234567890abcdef")
	if err != nil || warning != "" {
		t.Errorf("CheckFormat(ghp_): got (%q, %v), want no warning", warning, err)
	}

	warning, err = CheckFormat("abcdefghijklmnop")
	if err != nil {
		t.Fatalf("CheckFormat(unknown prefix): unexpected error %v", err)
	}
	if warning == "" {
		t.Error("CheckFormat(unknown prefix): expected a warning")
	}
}
