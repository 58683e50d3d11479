package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g. MSDSIM_SERVER_HTTP_ADDR.
const EnvPrefix = "MSDSIM_"

// LoadConfig loads a configuration file, applies environment overrides and
// validates the result. An empty path starts from the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		cfg, err = decodeConfig(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields of cfg from MSDSIM_* environment variables.
// Variables that are not set leave the field untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		aggErr := env.AggregateError{}
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return fmt.Errorf("environment override: %w", aggErr.Errors[0])
		}
		return fmt.Errorf("environment override: %w", err)
	}
	return nil
}

// LoadScenario loads and parses a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// LoadPolicySet loads and parses a policy set file
func LoadPolicySet(path string) (*PolicySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy set file %s: %w", path, err)
	}
	set, err := ParsePolicySetYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy set file %s: %w", path, err)
	}
	return set, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", cfg.LogFormat)
	}

	if cfg.Server.GRPCAddr == "" && cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server: at least one of grpc_addr or http_addr must be set")
	}

	switch cfg.Store.Backend {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store: path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("store: unsupported backend %q (must be memory or sqlite)", cfg.Store.Backend)
	}

	if err := validateEvaluation(&cfg.Evaluation); err != nil {
		return fmt.Errorf("evaluation validation failed: %w", err)
	}
	return nil
}

func validateEvaluation(ev *EvaluationConfig) error {
	if ev.Realizations <= 0 {
		return fmt.Errorf("realizations must be positive")
	}
	if ev.Steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	if ev.NRBF < 0 {
		return fmt.Errorf("n_rbf cannot be negative")
	}
	if ev.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// validateScenario checks the ecological parameters
func validateScenario(s *Scenario) error {
	switch s.Strategy {
	case "previous_prey", "initial_only", "constant":
	default:
		return fmt.Errorf("unknown strategy %q (must be previous_prey, initial_only or constant)", s.Strategy)
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"a", s.A}, {"b", s.B}, {"c", s.C}, {"d", s.D}, {"h", s.H},
		{"k", s.K}, {"m", s.M}, {"sigma_x", s.SigmaX}, {"sigma_y", s.SigmaY},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be finite", f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%s cannot be negative", f.name)
		}
	}
	if s.K == 0 {
		return fmt.Errorf("k must be positive")
	}
	return nil
}

// validatePolicySet checks policy names and decision vector lengths. Vectors
// are laid out for the one-input, one-output fishery policy: three values per
// radial basis function.
func validatePolicySet(set *PolicySet) error {
	if len(set.Policies) == 0 {
		return fmt.Errorf("at least one policy must be defined")
	}
	if set.NRBF < 0 {
		return fmt.Errorf("n_rbf cannot be negative")
	}

	names := make(map[string]bool)
	for i, p := range set.Policies {
		if p.Name == "" {
			return fmt.Errorf("policy %d: name cannot be empty", i)
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate policy name: %s", p.Name)
		}
		names[p.Name] = true

		if set.NRBF > 0 && len(p.Vars) != set.NRBF*3 {
			return fmt.Errorf("policy %s: expected %d vars for n_rbf=%d, got %d", p.Name, set.NRBF*3, set.NRBF, len(p.Vars))
		}
		if set.NRBF == 0 && len(p.Vars)%3 != 0 {
			return fmt.Errorf("policy %s: vars length %d is not a multiple of 3", p.Name, len(p.Vars))
		}
	}
	return nil
}
