// Package config parses the YAML configuration consumed by the otcore CLI
// and the otreplay adapter: which overlap policy the algebra should use,
// the worker-pool size for the concurrent driver, content-sniffing rules for AddFile
// payloads, and which git branch plays which role when replaying history.
package config

import (
	"fmt"
	"os"
	"regexp"

	yaml "gopkg.in/yaml.v2"

	"github.com/rcowham/otcore/transpose"
)

const (
	// DefaultOverlapPolicy is used when the config omits overlap_policy.
	DefaultOverlapPolicy = "annihilate"
	// DefaultConcurrency is used when the config omits concurrency.
	DefaultConcurrency = 0
)

// BranchRole maps a regex over a git branch name to the role it plays when
// otreplay derives a local/remote commit stream pair from a single
// fast-export history.
type BranchRole struct {
	Name string `yaml:"name"` // Regex for branch
	Role string `yaml:"role"` // "local" or "remote"
}

// SniffRule maps a regex over an AddFile name to a forced binary/text
// classification, overriding content-based sniffing.
type SniffRule struct {
	Pattern string `yaml:"pattern"`
	Binary  bool   `yaml:"binary"`

	reCompiled *regexp.Regexp
}

// Config is the parsed, validated configuration.
type Config struct {
	OverlapPolicy string       `yaml:"overlap_policy"`
	Concurrency   int          `yaml:"concurrency"`
	BranchRoles   []BranchRole `yaml:"branch_roles"`
	SniffRules    []SniffRule  `yaml:"sniff_rules"`
}

// Unmarshal parses raw, applying defaults for omitted fields, then
// validates it.
func Unmarshal(raw []byte) (*Config, error) {
	cfg := &Config{
		OverlapPolicy: DefaultOverlapPolicy,
		Concurrency:   DefaultConcurrency,
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters (like match patterns)", err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads and parses a config file.
func LoadFile(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	cfg, err := Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.OverlapPolicy {
	case "annihilate", "split":
	default:
		return fmt.Errorf("overlap_policy must be 'annihilate' or 'split', got %q", c.OverlapPolicy)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	for i := range c.BranchRoles {
		br := &c.BranchRoles[i]
		if _, err := regexp.Compile(br.Name); err != nil {
			return fmt.Errorf("failed to parse branch_roles[%d].name %q as a regex", i, br.Name)
		}
		if br.Role != "local" && br.Role != "remote" {
			return fmt.Errorf("branch_roles[%d].role must be 'local' or 'remote', got %q", i, br.Role)
		}
	}
	for i := range c.SniffRules {
		sr := &c.SniffRules[i]
		re, err := regexp.Compile(sr.Pattern)
		if err != nil {
			return fmt.Errorf("failed to parse sniff_rules[%d].pattern %q as a regex", i, sr.Pattern)
		}
		sr.reCompiled = re
	}
	return nil
}

// Algebra builds the transpose.Algebra this config selects.
func (c *Config) Algebra() transpose.Algebra {
	if c.OverlapPolicy == "split" {
		return transpose.Algebra{Overlap: transpose.PolicySplit}
	}
	return transpose.Algebra{Overlap: transpose.PolicyAnnihilate}
}

// ForcedBinary reports whether name matches a sniff rule that forces a
// binary/text classification, and whether any rule matched at all.
func (c *Config) ForcedBinary(name string) (binary bool, matched bool) {
	for _, sr := range c.SniffRules {
		if sr.reCompiled != nil && sr.reCompiled.MatchString(name) {
			return sr.Binary, true
		}
	}
	return false, false
}

// RoleForBranch returns "local", "remote", or "" if no rule matches branch.
func (c *Config) RoleForBranch(branch string) string {
	for _, br := range c.BranchRoles {
		if ok, _ := regexp.MatchString(br.Name, branch); ok {
			return br.Role
		}
	}
	return ""
}
