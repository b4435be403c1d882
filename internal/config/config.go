// Package config loads corral's settings from the YAML settings file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	_ "embed"

	"github.com/caarlos0/duration"
	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	"github.com/strayline/corral/internal/errs"
)

//go:embed config_template.yml
var configTemplate string

// DefaultEndpoint is the endpoint path used when a server config leaves it
// unset.
const DefaultEndpoint = "/mcp"

// Duration is a time.Duration that accepts human-friendly values ("10s",
// "1m30s", "2h") in both YAML and environment variables.
type Duration time.Duration

// UnmarshalText conforms with encoding.TextUnmarshaler (used by env parsing).
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := duration.Parse(string(b))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML conforms with yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig identifies one remote tool server. Immutable once loaded.
type ServerConfig struct {
	Name     string `yaml:"-"`
	URL      string `yaml:"url"`
	Port     int    `yaml:"port"`
	Endpoint string `yaml:"endpoint"`
}

// Target builds the transport target for the server by joining URL, port and
// endpoint path.
func (c ServerConfig) Target() string {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return fmt.Sprintf("%s:%d%s", strings.TrimRight(c.URL, "/"), c.Port, endpoint)
}

// Servers is an ordered list of server configs. YAML decoding preserves the
// order in which servers appear in the settings file.
type Servers []ServerConfig

// UnmarshalYAML conforms with yaml.Unmarshaler.
func (s *Servers) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i < len(node.Content); i += 2 {
		var server ServerConfig
		if err := node.Content[i+1].Decode(&server); err != nil {
			return fmt.Errorf("error decoding YAML file: %s", err)
		}
		server.Name = node.Content[i].Value
		*s = append(*s, server)
	}
	return nil
}

// Provider represents one language model API endpoint.
type Provider struct {
	Name      string `yaml:"-"`
	BaseURL   string `yaml:"base-url"`
	APIKey    string `yaml:"api-key"`
	APIKeyEnv string `yaml:"api-key-env"`
	APIKeyCmd string `yaml:"api-key-cmd"`
}

// Providers is a list of providers; YAML decoding preserves file order.
type Providers []Provider

// UnmarshalYAML conforms with yaml.Unmarshaler.
func (p *Providers) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i < len(node.Content); i += 2 {
		var provider Provider
		if err := node.Content[i+1].Decode(&provider); err != nil {
			return fmt.Errorf("error decoding YAML file: %s", err)
		}
		provider.Name = node.Content[i].Value
		*p = append(*p, provider)
	}
	return nil
}

// Find returns the provider with the given name.
func (p Providers) Find(name string) (Provider, bool) {
	for _, provider := range p {
		if provider.Name == name {
			return provider, true
		}
	}
	return Provider{}, false
}

// Settings holds persisted configuration loaded from the YAML settings file
// and environment variables.
type Settings struct {
	API           string    `yaml:"default-api" env:"API"`
	Model         string    `yaml:"default-model" env:"MODEL"`
	Temperature   float64   `yaml:"temp" env:"TEMP"`
	MaxTokens     int64     `yaml:"max-tokens" env:"MAX_TOKENS"`
	Processor     string    `yaml:"processor" env:"PROCESSOR"`
	System        string    `yaml:"system"`
	AuthToken     string    `yaml:"auth-token" env:"AUTH_TOKEN"`
	MaxIterations int       `yaml:"max-iterations" env:"MAX_ITERATIONS"`
	HistoryWindow int       `yaml:"history-window" env:"HISTORY_WINDOW"`
	Quiet         bool      `yaml:"quiet" env:"QUIET"`
	Raw           bool      `yaml:"raw" env:"RAW"`
	WordWrap      int       `yaml:"word-wrap" env:"WORD_WRAP"`
	CachePath     string    `yaml:"cache-path" env:"CACHE_PATH"`
	Debug         bool      `yaml:"debug" env:"DEBUG"`
	Providers     Providers `yaml:"apis"`
	Servers       Servers   `yaml:"servers"`

	ConnectTimeout Duration `yaml:"connect-timeout" env:"CONNECT_TIMEOUT"`
	HealthTimeout  Duration `yaml:"health-timeout" env:"HEALTH_TIMEOUT"`
	CallTimeout    Duration `yaml:"call-timeout" env:"CALL_TIMEOUT"`
}

// Runtime holds CLI/runtime-only options that should not be loaded from the
// settings file.
type Runtime struct {
	Prefix       string
	SettingsPath string
	ContinueLast bool
	Continue     string
	Title        string
}

// Config is the application configuration (settings + runtime-only options).
type Config struct {
	Settings `yaml:",inline"`
	Runtime  `yaml:"-" env:"-"`
}

// AgentConfig is the per-session configuration handed to the agent runtime.
type AgentConfig struct {
	API           string
	Model         string
	Temperature   float64
	MaxTokens     int64
	Processor     string
	AuthToken     string
	SystemPrompt  string
	MaxIterations int
	HistoryWindow int
	CallTimeout   time.Duration
}

// Agent projects an AgentConfig out of the loaded settings.
func (c *Config) Agent() AgentConfig {
	return AgentConfig{
		API:           c.API,
		Model:         c.Model,
		Temperature:   c.Temperature,
		MaxTokens:     c.MaxTokens,
		Processor:     c.Processor,
		AuthToken:     c.AuthToken,
		SystemPrompt:  c.System,
		MaxIterations: c.MaxIterations,
		HistoryWindow: c.HistoryWindow,
		CallTimeout:   c.CallTimeout.Std(),
	}
}

// Ensure loads settings from disk and environment and applies defaults.
//
// It also creates the default settings file if it does not exist.
func Ensure() (Config, error) {
	var c Config
	home, err := os.UserHomeDir()
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not determine home directory."}
	}

	sp := filepath.Join(home, ".config", "corral", "corral.yml")
	c.SettingsPath = sp

	if dirErr := os.MkdirAll(filepath.Dir(sp), 0o700); dirErr != nil {
		return c, errs.Error{Err: dirErr, Reason: "Could not create config directory."}
	}

	if fileErr := WriteConfigFile(sp); fileErr != nil {
		return c, fileErr
	}
	content, err := os.ReadFile(sp)
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse settings file."}
	}

	if err := env.ParseWithOptions(&c, env.Options{Prefix: "CORRAL_"}); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse environment into settings file."}
	}

	if c.CachePath == "" {
		c.CachePath = filepath.Join(home, ".config", "corral", "history")
	}
	if err := os.MkdirAll(c.CachePath, 0o700); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not create cache directory."}
	}

	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Config) {
	def := Default()
	if c.Processor == "" {
		c.Processor = def.Processor
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = def.HistoryWindow
	}
	if c.WordWrap == 0 {
		c.WordWrap = def.WordWrap
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = def.HealthTimeout
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = def.CallTimeout
	}
}

// WriteConfigFile creates the config file at path if it does not exist.
func WriteConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return errs.Error{Err: err, Reason: "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct{ Config Config }{Config: Default()}
	if err := tmpl.Execute(f, m); err != nil {
		return errs.Error{Err: err, Reason: "Could not render template."}
	}
	return nil
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Settings: Settings{
			Processor:      "react",
			MaxIterations:  10,
			HistoryWindow:  50,
			WordWrap:       80,
			ConnectTimeout: Duration(10 * time.Second),
			HealthTimeout:  Duration(5 * time.Second),
			CallTimeout:    Duration(30 * time.Second),
		},
	}
}
