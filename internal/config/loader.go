package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Default assistant persona and seed, carried over from the first release.
const (
	DefaultAssistantName = "AI Assistant for Excel File Analysis"
	DefaultInstructions  = "You are an AI assistant that analyzes EXCEL files. Please answer user requests in Japanese."
	DefaultSeedMessage   = "アップロードされた Font.zip と Excel.zip を /mnt/data/upload_files に展開してください。" +
		"これらの ZIP ファイルには解析対象の EXCEL ファイルと日本語フォント NotoSansJP.ttf が含まれています。" +
		"展開した先にある EXCEL ファイルをユーザーの指示に従い解析してください。" +
		"EXCEL データからグラフやチャート画像を生成する場合、タイトル、軸項目、凡例等に NotoSansJP.ttf を利用してください。"
)

// Load reads a JSONC or YAML config file, expands ${{ .Env.VAR }} templates,
// unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before parsing, since templates are in strings)
	expanded := []byte(expandEnvTemplates(string(data)))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	default:
		std, err := hujson.Standardize(expanded)
		if err != nil {
			return nil, fmt.Errorf("parse jsonc: %w", err)
		}
		if err := json.Unmarshal(std, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns a default config when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}
	return nil, err
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Provider settings fall back to the AZURE_OPENAI_* environment used by the first release.
func applyDefaults(cfg *Config) {
	p := &cfg.Provider
	if p.Endpoint == "" {
		p.Endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	if p.APIVersion == "" {
		p.APIVersion = os.Getenv("API_VERSION")
	}
	if p.Model == "" {
		p.Model = os.Getenv("DEPLOYMENT_NAME")
	}
	if p.Driver == "" {
		if p.Endpoint != "" {
			p.Driver = "azure"
		} else {
			p.Driver = "openai"
		}
	}
	if p.Timeout == 0 {
		p.Timeout = Duration(2 * time.Minute)
	}

	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = DefaultAssistantName
	}
	if cfg.Assistant.Instructions == "" {
		cfg.Assistant.Instructions = DefaultInstructions
	}
	if cfg.Assistant.SeedMessage == "" {
		cfg.Assistant.SeedMessage = DefaultSeedMessage
	}

	if cfg.Inputs.FontArchive == "" {
		cfg.Inputs.FontArchive = filepath.Join("input_files", "Font.zip")
	}
	if cfg.Inputs.DataArchive == "" {
		cfg.Inputs.DataArchive = filepath.Join("input_files", "Excel.zip")
	}
	if cfg.Output.ImageDir == "" {
		cfg.Output.ImageDir = "output_images"
	}

	cfg.Poll.Strategy = strings.ToLower(strings.TrimSpace(cfg.Poll.Strategy))
	cfg.Poll.Backoff = strings.ToLower(strings.TrimSpace(cfg.Poll.Backoff))
	if cfg.Poll.Strategy == "" {
		cfg.Poll.Strategy = "interval"
	}
	if cfg.Poll.Interval == 0 {
		if cfg.Poll.Strategy == "blocking" {
			cfg.Poll.Interval = Duration(time.Second)
		} else {
			cfg.Poll.Interval = Duration(5 * time.Second)
		}
	}
	if cfg.Poll.Backoff == "" {
		cfg.Poll.Backoff = "fixed"
	}
	if cfg.Poll.MaxInterval == 0 {
		cfg.Poll.MaxInterval = Duration(30 * time.Second)
	}
	if cfg.Poll.MaxWait == 0 {
		cfg.Poll.MaxWait = Duration(10 * time.Minute)
	}

	if cfg.Console.Scope == "" {
		cfg.Console.Scope = "latest"
	}
}
