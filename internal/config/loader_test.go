package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `{
	// This is a JSONC comment
	"provider": {
		"driver": "azure",
		"endpoint": "https://example.openai.azure.com/",
		"api_version": "2024-05-01-preview",
		"model": "gpt-4o",
		"auth": {
			"api_key": "${{ .Env.SHEETCHAT_TEST_KEY }}",
		},
	},
	"poll": {
		"strategy": "blocking",
		"max_wait": "90s"
	},
	"output": {
		"image_dir": "charts",
		"delete_remote_images": false
	}
}`
	path := writeConfig(t, "config.jsonc", content)
	t.Setenv("SHEETCHAT_TEST_KEY", "test-key-123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.Driver != "azure" {
		t.Errorf("expected driver azure, got %s", cfg.Provider.Driver)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.Provider.Model)
	}
	if cfg.Provider.Auth.APIKey != "test-key-123" {
		t.Errorf("expected api_key test-key-123, got %s", cfg.Provider.Auth.APIKey)
	}
	if cfg.Poll.Strategy != "blocking" {
		t.Errorf("expected strategy blocking, got %s", cfg.Poll.Strategy)
	}
	if cfg.Poll.Interval.Duration() != time.Second {
		t.Errorf("expected blocking interval 1s, got %s", cfg.Poll.Interval.Duration())
	}
	if cfg.Poll.MaxWait.Duration() != 90*time.Second {
		t.Errorf("expected max_wait 90s, got %s", cfg.Poll.MaxWait.Duration())
	}
	if cfg.Output.ImageDir != "charts" {
		t.Errorf("expected image_dir charts, got %s", cfg.Output.ImageDir)
	}
	if cfg.Output.ShouldDeleteRemoteImages() {
		t.Error("expected delete_remote_images false")
	}
}

func TestLoadYAML(t *testing.T) {
	content := `provider:
  driver: openai
  model: gpt-4o-mini
poll:
  interval: 2s
  backoff: exponential
  max_interval: 20s
console:
  scope: all
  markdown: true
`
	path := writeConfig(t, "config.yaml", content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.Driver != "openai" {
		t.Errorf("expected driver openai, got %s", cfg.Provider.Driver)
	}
	if cfg.Poll.Interval.Duration() != 2*time.Second {
		t.Errorf("expected interval 2s, got %s", cfg.Poll.Interval.Duration())
	}
	if cfg.Poll.Backoff != "exponential" {
		t.Errorf("expected backoff exponential, got %s", cfg.Poll.Backoff)
	}
	if cfg.Poll.MaxInterval.Duration() != 20*time.Second {
		t.Errorf("expected max_interval 20s, got %s", cfg.Poll.MaxInterval.Duration())
	}
	if cfg.Console.Scope != "all" || !cfg.Console.Markdown {
		t.Errorf("unexpected console config: %+v", cfg.Console)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	t.Setenv("API_VERSION", "")
	t.Setenv("DEPLOYMENT_NAME", "")

	path := writeConfig(t, "config.jsonc", `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.Driver != "openai" {
		t.Errorf("expected default driver openai, got %s", cfg.Provider.Driver)
	}
	if cfg.Assistant.Name != DefaultAssistantName {
		t.Errorf("expected default assistant name, got %q", cfg.Assistant.Name)
	}
	if cfg.Assistant.SeedMessage != DefaultSeedMessage {
		t.Errorf("expected default seed message, got %q", cfg.Assistant.SeedMessage)
	}
	if cfg.Inputs.FontArchive != filepath.Join("input_files", "Font.zip") {
		t.Errorf("expected default font archive, got %s", cfg.Inputs.FontArchive)
	}
	if cfg.Inputs.DataArchive != filepath.Join("input_files", "Excel.zip") {
		t.Errorf("expected default data archive, got %s", cfg.Inputs.DataArchive)
	}
	if cfg.Output.ImageDir != "output_images" {
		t.Errorf("expected default image dir output_images, got %s", cfg.Output.ImageDir)
	}
	if !cfg.Output.ShouldDeleteRemoteImages() {
		t.Error("expected remote images to be deleted by default")
	}
	if cfg.Poll.Strategy != "interval" {
		t.Errorf("expected default strategy interval, got %s", cfg.Poll.Strategy)
	}
	if cfg.Poll.Interval.Duration() != 5*time.Second {
		t.Errorf("expected default interval 5s, got %s", cfg.Poll.Interval.Duration())
	}
	if cfg.Poll.MaxWait.Duration() != 10*time.Minute {
		t.Errorf("expected default max_wait 10m, got %s", cfg.Poll.MaxWait.Duration())
	}
	if cfg.Console.Scope != "latest" {
		t.Errorf("expected default scope latest, got %s", cfg.Console.Scope)
	}
}

func TestLoadDefaults_StrategyCaseInsensitive(t *testing.T) {
	path := writeConfig(t, "config.jsonc", `{"poll": {"strategy": "Blocking", "backoff": "Exponential"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Poll.Strategy != "blocking" {
		t.Errorf("strategy = %q, want blocking", cfg.Poll.Strategy)
	}
	if cfg.Poll.Interval.Duration() != time.Second {
		t.Errorf("interval = %s, want 1s", cfg.Poll.Interval.Duration())
	}
	if cfg.Poll.Backoff != "exponential" {
		t.Errorf("backoff = %q, want exponential", cfg.Poll.Backoff)
	}
}

func TestLoadDefaults_AzureFromEnv(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com/")
	t.Setenv("API_VERSION", "2024-05-01-preview")
	t.Setenv("DEPLOYMENT_NAME", "gpt-4o")

	path := writeConfig(t, "config.jsonc", `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.Driver != "azure" {
		t.Errorf("expected driver azure, got %s", cfg.Provider.Driver)
	}
	if cfg.Provider.Endpoint != "https://example.openai.azure.com/" {
		t.Errorf("unexpected endpoint %s", cfg.Provider.Endpoint)
	}
	if cfg.Provider.APIVersion != "2024-05-01-preview" {
		t.Errorf("unexpected api version %s", cfg.Provider.APIVersion)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("unexpected model %s", cfg.Provider.Model)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.jsonc"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Output.ImageDir != "output_images" {
		t.Errorf("expected defaults to be applied, got image dir %q", cfg.Output.ImageDir)
	}
}

func TestLoadOrDefault_InvalidFile(t *testing.T) {
	path := writeConfig(t, "config.jsonc", `{ "poll": { "interval": "soon" } }`)
	if _, err := LoadOrDefault(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestExpandEnvTemplates(t *testing.T) {
	t.Setenv("TEST_KEY", "my-secret")
	result := expandEnvTemplates(`{"key": "${{ .Env.TEST_KEY }}"}`)
	expected := `{"key": "my-secret"}`
	if result != expected {
		t.Errorf("expected %s, got %s", expected, result)
	}
}
