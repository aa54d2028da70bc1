// Package config handles Aide configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./aide.yaml, ~/.config/aide/config.yaml, /etc/aide/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"aide.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "aide", "config.yaml"))
	}

	paths = append(paths, "/etc/aide/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Aide configuration.
type Config struct {
	Listen       ListenConfig  `yaml:"listen"`
	Logic        ModelConfig   `yaml:"logic"`
	Vision       ModelConfig   `yaml:"vision"`
	Image        ModelConfig   `yaml:"image"`
	Agent        AgentConfig   `yaml:"agent"`
	Search       SearchConfig  `yaml:"search"`
	Weather      WeatherConfig `yaml:"weather"`
	Sandbox      SandboxConfig `yaml:"sandbox"`
	DataDir      string        `yaml:"data_dir"`
	GeneratedDir string        `yaml:"generated_dir"`
	LogLevel     string        `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines an OpenAI-compatible model endpoint.
// The logic model drives the agent loop; the vision model handles image
// analysis; the image model handles image generation. Vision and image
// inherit the logic endpoint's credentials when their own are empty.
type ModelConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	// MaxSteps caps model round trips per request (default 10).
	MaxSteps int `yaml:"max_steps"`
	// ContextWindow is the number of trailing history messages sent to
	// the model on each round trip (default 20).
	ContextWindow int `yaml:"context_window"`
}

// SearchConfig selects and configures the web search provider.
type SearchConfig struct {
	Provider    string `yaml:"provider"` // searxng or brave
	SearXNGURL  string `yaml:"searxng_url"`
	BraveAPIKey string `yaml:"brave_api_key"`
}

// WeatherConfig holds the OpenWeather API settings for the weather tool.
type WeatherConfig struct {
	APIKey string `yaml:"api_key"`
}

// SandboxConfig defines Python code execution capabilities.
type SandboxConfig struct {
	// Enabled allows code execution. Disabled by default for safety.
	Enabled bool `yaml:"enabled"`
	// Python is the interpreter to invoke (default "python3").
	Python string `yaml:"python"`
	// TimeoutSec limits each execution (default 10).
	TimeoutSec int `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Agent: AgentConfig{
			MaxSteps:      10,
			ContextWindow: 20,
		},
		Search: SearchConfig{
			Provider: "searxng",
		},
		Sandbox: SandboxConfig{
			Python:     "python3",
			TimeoutSec: 10,
		},
		DataDir:      "data",
		GeneratedDir: "generated",
	}
}

// SessionsDir returns the directory holding per-session files.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// PersonasFile returns the path of the shared persona store file.
func (c *Config) PersonasFile() string {
	return filepath.Join(c.DataDir, "personas.json")
}

// MemosFile returns the path of the shared memo store file.
func (c *Config) MemosFile() string {
	return filepath.Join(c.DataDir, "memos.json")
}
