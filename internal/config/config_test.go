package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine.PollingRate.Std() != 250*time.Millisecond {
		t.Errorf("polling rate %s, want 250ms", cfg.Engine.PollingRate.Std())
	}
	if cfg.Viewer.Address != "ws://localhost:7778" {
		t.Errorf("viewer address %q", cfg.Viewer.Address)
	}
	if cfg.Viewer.MaxRetries != 60 || cfg.Viewer.RetryBackoff.Std() != time.Second {
		t.Errorf("viewer retry %d/%s", cfg.Viewer.MaxRetries, cfg.Viewer.RetryBackoff.Std())
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
engine:
  polling_rate: 500ms
  max_sample_rate: 20
  sample_burst: 5
provider:
  url: ws://tlm.example.com:7779/stream
viewer:
  address: ws://viewer.example.com:7778
  max_retries: 10
outcome_log:
  path: /var/lib/telewait/outcomes.db
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.PollingRate.Std() != 500*time.Millisecond {
		t.Errorf("polling rate %s, want 500ms", cfg.Engine.PollingRate.Std())
	}
	if cfg.Engine.MaxSampleRate != 20 || cfg.Engine.SampleBurst != 5 {
		t.Errorf("sample guard %g/%d", cfg.Engine.MaxSampleRate, cfg.Engine.SampleBurst)
	}
	if cfg.Provider.URL != "ws://tlm.example.com:7779/stream" {
		t.Errorf("provider url %q", cfg.Provider.URL)
	}
	if cfg.Viewer.MaxRetries != 10 {
		t.Errorf("max retries %d", cfg.Viewer.MaxRetries)
	}
	// Unset fields still get defaults.
	if cfg.Viewer.RetryBackoff.Std() != time.Second {
		t.Errorf("retry backoff %s", cfg.Viewer.RetryBackoff.Std())
	}
	if cfg.OutcomeLog.Path != "/var/lib/telewait/outcomes.db" {
		t.Errorf("outcome log path %q", cfg.OutcomeLog.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestDurationForms(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"duration string", "engine:\n  polling_rate: 500ms\n", 500 * time.Millisecond},
		{"compound string", "viewer:\n  retry_backoff: 1m30s\n", 90 * time.Second},
		{"integer seconds", "viewer:\n  retry_backoff: 2\n", 2 * time.Second},
		{"fractional seconds", "engine:\n  polling_rate: 0.1\n", 100 * time.Millisecond},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, c.yaml))
			if err != nil {
				t.Fatal(err)
			}
			got := cfg.Engine.PollingRate.Std()
			if strings.Contains(c.yaml, "retry_backoff") {
				got = cfg.Viewer.RetryBackoff.Std()
			}
			if got != c.want {
				t.Fatalf("decoded %s, want %s", got, c.want)
			}
		})
	}
}

func TestDurationInvalid(t *testing.T) {
	for _, yaml := range []string{
		"engine:\n  polling_rate: fast\n",
		"engine:\n  polling_rate: [1, 2]\n",
	} {
		if _, err := Load(writeConfig(t, yaml)); err == nil {
			t.Errorf("expected error for %q", yaml)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "engine: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad level", "logging:\n  level: verbose\n", "invalid logging level"},
		{"bad format", "logging:\n  format: xml\n", "invalid logging format"},
		{"negative sample rate", "engine:\n  max_sample_rate: -1\n", "max_sample_rate"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, c.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("error %q does not mention %q", err, c.wantErr)
			}
		})
	}
}
