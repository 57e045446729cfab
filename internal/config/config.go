package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for sheetchat.
type Config struct {
	Provider  ProviderConfig  `json:"provider" yaml:"provider"`
	Assistant AssistantConfig `json:"assistant" yaml:"assistant"`
	Inputs    InputsConfig    `json:"inputs" yaml:"inputs"`
	Output    OutputConfig    `json:"output" yaml:"output"`
	Poll      PollConfig      `json:"poll" yaml:"poll"`
	Console   ConsoleConfig   `json:"console" yaml:"console"`
}

// ProviderConfig configures the hosted Assistants API.
type ProviderConfig struct {
	Driver     string     `json:"driver" yaml:"driver"`     // "azure", "openai"
	Endpoint   string     `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIVersion string     `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	Model      string     `json:"model" yaml:"model"` // deployment name on Azure
	Auth       AuthConfig `json:"auth" yaml:"auth"`
	Timeout    Duration   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // direct key, ${VAR} or ENC[age:...]
}

// AssistantConfig holds the assistant persona and the thread seed.
type AssistantConfig struct {
	Name         string `json:"name" yaml:"name"`
	Instructions string `json:"instructions" yaml:"instructions"`
	SeedMessage  string `json:"seed_message" yaml:"seed_message"`
}

// InputsConfig points at the two archives uploaded at startup.
type InputsConfig struct {
	FontArchive string `json:"font_archive" yaml:"font_archive"`
	DataArchive string `json:"data_archive" yaml:"data_archive"`
}

// OutputConfig controls where generated images land.
type OutputConfig struct {
	ImageDir           string `json:"image_dir" yaml:"image_dir"`
	DeleteRemoteImages *bool  `json:"delete_remote_images,omitempty" yaml:"delete_remote_images,omitempty"`
}

// PollConfig drives the run poller.
type PollConfig struct {
	Strategy    string   `json:"strategy" yaml:"strategy"` // "interval", "blocking"
	Interval    Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	Backoff     string   `json:"backoff,omitempty" yaml:"backoff,omitempty"` // "fixed", "exponential"
	MaxInterval Duration `json:"max_interval,omitempty" yaml:"max_interval,omitempty"`
	MaxWait     Duration `json:"max_wait,omitempty" yaml:"max_wait,omitempty"` // negative = unbounded
}

// ConsoleConfig controls how assistant output is rendered.
type ConsoleConfig struct {
	Markdown bool   `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	Scope    string `json:"scope,omitempty" yaml:"scope,omitempty"` // "latest", "all"
}

// ShouldDeleteRemoteImages reports whether downloaded images are removed from the service.
func (o OutputConfig) ShouldDeleteRemoteImages() bool {
	return o.DeleteRemoteImages == nil || *o.DeleteRemoteImages
}

// Duration wraps time.Duration for JSON and YAML unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", node.Kind)
	}
	dur, err := time.ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
