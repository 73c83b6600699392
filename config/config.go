/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config builds prlint's configuration once, at process entry, from
// the workflow environment and an optional stage file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"chainguard.dev/prlint/reconcilers/githubreconciler"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Kind selects how a stage's tool is driven.
type Kind string

const (
	// KindLint tools report structured diagnostics.
	KindLint Kind = "lint"
	// KindFormat tools rewrite files and report only an exit status.
	KindFormat Kind = "format"
)

// Stage configures one tool run. Tool is the binary name resolved through
// the package manager and CheckName names its check run. Extensions
// restricts the change set; empty keeps every file.
type Stage struct {
	Tool         string   `yaml:"tool"`
	CheckName    string   `yaml:"checkName"`
	Kind         Kind     `yaml:"kind"`
	Extensions   []string `yaml:"extensions"`
	CommitPrefix string   `yaml:"commitPrefix"`
}

// Config is the complete process configuration.
type Config struct {
	Token      string `env:"GITHUB_TOKEN,required"`
	Workspace  string `env:"GITHUB_WORKSPACE,required"`
	Repository string `env:"GITHUB_REPOSITORY,required"`
	HeadRef    string `env:"GITHUB_HEAD_REF"`
	SHA        string `env:"GITHUB_SHA"`
	EventName  string `env:"GITHUB_EVENT_NAME"`
	EventPath  string `env:"GITHUB_EVENT_PATH"`
	APIURL     string `env:"GITHUB_API_URL,default=https://api.github.com"`
	GraphQLURL string `env:"GITHUB_GRAPHQL_URL,default=https://api.github.com/graphql"`
	ServerURL  string `env:"GITHUB_SERVER_URL,default=https://github.com"`
	RunID      string `env:"GITHUB_RUN_ID"`

	StepSummary string `env:"GITHUB_STEP_SUMMARY"`

	PRNumber      int    `env:"PRLINT_PR_NUMBER"`
	Fix           bool   `env:"PRLINT_FIX,default=false"`
	ConfigFile    string `env:"PRLINT_CONFIG"`
	LogLevel      string `env:"PRLINT_LOG_LEVEL,default=info"`
	MetricsStdout bool   `env:"PRLINT_METRICS_STDOUT,default=false"`
	CommitterName string `env:"PRLINT_COMMITTER_NAME"`
	CommitterMail string `env:"PRLINT_COMMITTER_EMAIL"`

	// Stages come from ConfigFile, or DefaultStages when it is unset.
	Stages []Stage
}

// DefaultStages returns the linter stage followed by the formatter stage.
func DefaultStages() []Stage {
	return []Stage{{
		Tool:         "eslint",
		CheckName:    "eslint",
		Kind:         KindLint,
		Extensions:   []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"},
		CommitPrefix: "style(eslint): fix",
	}, {
		Tool:         "prettier",
		CheckName:    "prettier",
		Kind:         KindFormat,
		CommitPrefix: "style(prettier): format",
	}}
}

// Load reads the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through lookuper, then the stage file.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	cfg.Stages = DefaultStages()
	if cfg.ConfigFile != "" {
		stages, err := LoadStages(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Stages = stages
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if _, _, err := githubreconciler.ParseRepository(c.Repository); err != nil {
		return err
	}
	if c.PRNumber < 0 {
		return fmt.Errorf("PRLINT_PR_NUMBER must not be negative, got %d", c.PRNumber)
	}
	if len(c.Stages) == 0 {
		return errors.New("no stages configured")
	}
	seen := make(map[string]bool, len(c.Stages))
	for i, s := range c.Stages {
		if s.Tool == "" {
			return fmt.Errorf("stage %d: tool is required", i)
		}
		switch s.Kind {
		case KindLint, KindFormat:
		default:
			return fmt.Errorf("stage %s: unknown kind %q", s.Tool, s.Kind)
		}
		if seen[s.CheckName] {
			return fmt.Errorf("stage %s: duplicate check name %q", s.Tool, s.CheckName)
		}
		seen[s.CheckName] = true
	}
	return nil
}

// Event returns the workflow event fields used to build a Resource.
func (c *Config) Event() githubreconciler.EventContext {
	return githubreconciler.EventContext{
		Repository: c.Repository,
		EventName:  c.EventName,
		EventPath:  c.EventPath,
		HeadRef:    c.HeadRef,
		SHA:        c.SHA,
		PRNumber:   c.PRNumber,
	}
}

// RunURL links to the workflow run, or returns "" outside Actions.
func (c *Config) RunURL() string {
	if c.RunID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/actions/runs/%s", strings.TrimSuffix(c.ServerURL, "/"), c.Repository, c.RunID)
}

type stageFile struct {
	Stages []Stage `yaml:"stages"`
}

// LoadStages parses a YAML stage file. Missing check names default to the
// tool name and extensions are normalized to a leading dot.
func LoadStages(path string) ([]Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stage file: %w", err)
	}
	var f stageFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing stage file %s: %w", path, err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("stage file %s defines no stages", path)
	}
	for i := range f.Stages {
		s := &f.Stages[i]
		if s.CheckName == "" {
			s.CheckName = s.Tool
		}
		for j, ext := range s.Extensions {
			if !strings.HasPrefix(ext, ".") {
				s.Extensions[j] = "." + ext
			}
		}
	}
	return f.Stages, nil
}
