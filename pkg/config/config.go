package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/david1155/tagsemver/pkg/version"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no config path is
// given.
const DefaultFile = ".tagsemver.yaml"

const (
	// WildcardScope holds defaults inherited by every scope.
	WildcardScope = "*"
	// UnscopedKey configures tags that carry no scope.
	UnscopedKey = "."
)

var DefaultMainBranches = []string{"main", "master"}

type TerraformConfig struct {
	Dir      string           `json:"dir,omitempty" yaml:"dir,omitempty"`
	Source   string           `json:"source,omitempty" yaml:"source,omitempty"`
	Strategy version.Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Force    bool             `json:"force,omitempty" yaml:"force,omitempty"`
}

type GoModConfig struct {
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
	// Module overrides the module path suffix matched in require lines.
	// Defaults to the scope name.
	Module string `json:"module,omitempty" yaml:"module,omitempty"`
}

type ScopeConfig struct {
	Part      version.Part     `json:"part,omitempty" yaml:"part,omitempty"`
	Push      *bool            `json:"push,omitempty" yaml:"push,omitempty"`
	Terraform *TerraformConfig `json:"terraform,omitempty" yaml:"terraform,omitempty"`
	GoMod     *GoModConfig     `json:"gomod,omitempty" yaml:"gomod,omitempty"`
}

type Config struct {
	MainBranches []string               `json:"main_branches,omitempty" yaml:"main_branches,omitempty"`
	Remote       string                 `json:"remote,omitempty" yaml:"remote,omitempty"`
	Pull         *bool                  `json:"pull,omitempty" yaml:"pull,omitempty"`
	VPrefix      bool                   `json:"v_prefix,omitempty" yaml:"v_prefix,omitempty"`
	Scopes       map[string]ScopeConfig `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	pull := true
	return &Config{
		MainBranches: append([]string(nil), DefaultMainBranches...),
		Remote:       "origin",
		Pull:         &pull,
		Scopes:       map[string]ScopeConfig{},
	}
}

// LoadConfig loads and parses the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty config file")
	}

	var config Config

	// Try JSON first, then YAML if that fails
	if err := json.Unmarshal(data, &config); err != nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyDefaults(&config)
	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &config, nil
}

// Resolve loads path when set. Otherwise it loads DefaultFile from workDir
// if present and falls back to Default.
func Resolve(path, workDir string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	candidate := filepath.Join(workDir, DefaultFile)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}
	return LoadConfig(candidate)
}

func applyDefaults(cfg *Config) {
	def := Default()
	if len(cfg.MainBranches) == 0 {
		cfg.MainBranches = def.MainBranches
	}
	if cfg.Remote == "" {
		cfg.Remote = def.Remote
	}
	if cfg.Pull == nil {
		cfg.Pull = def.Pull
	}
	if cfg.Scopes == nil {
		cfg.Scopes = map[string]ScopeConfig{}
	}
}

// Validate rejects unknown bump parts and strategies and normalizes the
// spelling of parts.
func Validate(cfg *Config) error {
	for name, sc := range cfg.Scopes {
		if sc.Part != "" {
			part, err := version.ParsePart(string(sc.Part))
			if err != nil {
				return fmt.Errorf("scope %q: %w", name, err)
			}
			sc.Part = part
			cfg.Scopes[name] = sc
		}
		if sc.Terraform != nil {
			switch sc.Terraform.Strategy {
			case "", version.StrategyDynamic, version.StrategyExact, version.StrategyRange:
			default:
				return fmt.Errorf("scope %q: unknown terraform strategy %q", name, sc.Terraform.Strategy)
			}
		}
	}
	return nil
}

// ScopeKey maps a scope to its key in Config.Scopes.
func ScopeKey(scope version.Scope) string {
	if !scope.Valid {
		return UnscopedKey
	}
	return scope.Name
}

// ShouldPull reports whether to pull before running a command.
func (c *Config) ShouldPull() bool {
	return c.Pull == nil || *c.Pull
}

// GetEffectiveScopeConfig returns the configuration for scope, filling
// fields the scope leaves unset from the wildcard entry.
func GetEffectiveScopeConfig(cfg *Config, scope version.Scope) ScopeConfig {
	specific, hasSpecific := cfg.Scopes[ScopeKey(scope)]
	wildcard, hasWildcard := cfg.Scopes[WildcardScope]

	var eff ScopeConfig
	if hasWildcard {
		eff = wildcard
	}
	if !hasSpecific {
		return eff
	}
	if specific.Part != "" {
		eff.Part = specific.Part
	}
	if specific.Push != nil {
		eff.Push = specific.Push
	}
	if specific.Terraform != nil {
		eff.Terraform = specific.Terraform
	}
	if specific.GoMod != nil {
		eff.GoMod = specific.GoMod
	}
	return eff
}

// GetEffectivePart returns the configured bump part for scope, defaulting to
// patch.
func GetEffectivePart(cfg *Config, scope version.Scope) version.Part {
	if p := GetEffectiveScopeConfig(cfg, scope).Part; p != "" {
		return p
	}
	return version.Patch
}

// GetEffectivePush returns whether new tags of scope are pushed by default.
func GetEffectivePush(cfg *Config, scope version.Scope) bool {
	if p := GetEffectiveScopeConfig(cfg, scope).Push; p != nil {
		return *p
	}
	return false
}

// ParseOptions returns the tag parser options implied by the config.
func (c *Config) ParseOptions() []version.ParseOption {
	if c.VPrefix {
		return []version.ParseOption{version.WithVPrefix()}
	}
	return nil
}
