package internal

import (
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/bock/internal/storage"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Wiki.Path = "/srv/wiki"
	return cfg
}

func TestDefaultConfig_RequiresWikiPath(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("default config without wiki path should fail")
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("error is not a validation error: %v", err)
	}
	if _, ok := errs["Path"]; !ok || len(errs) != 1 {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("default config with wiki path should pass: %v", err)
	}
}

func TestWikiConfig_MaxDepthBounds(t *testing.T) {
	cfg := WikiConfig{Path: "/srv/wiki", MaxDepth: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("max depth 0 should fail")
	}
	cfg.MaxDepth = 33
	if err := cfg.Validate(); err == nil {
		t.Error("max depth 33 should fail")
	}
	cfg.MaxDepth = 5
	if err := cfg.Validate(); err != nil {
		t.Errorf("max depth 5 should pass: %v", err)
	}
}

func TestWatchConfig_EmptyModeDefaultsAuto(t *testing.T) {
	cfg := WatchConfig{Debounce: time.Second, PollInterval: time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to auto: %v", err)
	}
	if cfg.Mode != "auto" {
		t.Errorf("mode = %q, want auto", cfg.Mode)
	}
}

func TestWatchConfig_InvalidMode(t *testing.T) {
	cfg := WatchConfig{Mode: "magic", Debounce: time.Second, PollInterval: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestIndexConfig_Fuzziness(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Fuzziness = 3
	if err := cfg.Validate(); err == nil {
		t.Fatal("fuzziness 3 should fail")
	}
	cfg.Index.Fuzziness = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fuzziness 0 should pass: %v", err)
	}
}

func TestIndexConfig_Configuration(t *testing.T) {
	cfg := validConfig()
	ic := cfg.Index.Configuration(cfg.Wiki.Path)
	if ic.Root != "/srv/wiki" || ic.Folder != storage.IndexFolder {
		t.Errorf("configuration = %+v", ic)
	}
	if ic.Dir() != "/srv/wiki/"+storage.IndexFolder {
		t.Errorf("dir = %q", ic.Dir())
	}
}

func TestRefreshConfig_Enabled(t *testing.T) {
	if (&RefreshConfig{}).Enabled() {
		t.Error("empty refresh config should be disabled")
	}
	if !(&RefreshConfig{Key: "k"}).Enabled() {
		t.Error("key should enable refresh")
	}
	if !(&RefreshConfig{GitHubSecret: "s"}).Enabled() {
		t.Error("secret should enable refresh")
	}
}
