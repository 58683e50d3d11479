package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/internal/simd"
	"github.com/msdbook/msdsim/pkg/config"
	"github.com/msdbook/msdsim/pkg/logger"
)

type options struct {
	scenario     string
	params       string
	vars         string
	policies     string
	nRBF         int
	seed         int64
	realizations int
	steps        int
	states       int
	workers      int
}

// policyResult is one line of output.
type policyResult struct {
	Name        string                 `json:"name,omitempty"`
	Objectives  fishery.Objectives     `json:"objectives"`
	Constraints []float64              `json:"constraints"`
	Robustness  *simd.RobustnessReport `json:"robustness,omitempty"`
}

func main() {
	var opts options
	var logLevel string

	flag.StringVar(&opts.scenario, "scenario", "", "scenario YAML (defaults to the baseline state)")
	flag.StringVar(&opts.params, "params", "", "state as strategy,a,b,c,d,h,k,m,sigma_x,sigma_y (overrides -scenario)")
	flag.StringVar(&opts.vars, "vars", "", "comma-separated decision vector")
	flag.StringVar(&opts.policies, "policies", "", "policy set YAML evaluated instead of -vars")
	flag.IntVar(&opts.nRBF, "n-rbf", 0, "number of RBFs (inferred from the vector when 0)")
	flag.Int64Var(&opts.seed, "seed", 0, "random seed (time-based when 0)")
	flag.IntVar(&opts.realizations, "realizations", 100, "noise realizations per evaluation")
	flag.IntVar(&opts.steps, "steps", 100, "simulation steps")
	flag.IntVar(&opts.states, "states", 0, "sampled states of the world for a robustness summary")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent state evaluations")
	flag.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fisheval:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	params, err := loadParams(opts)
	if err != nil {
		return err
	}
	policies, err := loadPolicies(opts)
	if err != nil {
		return err
	}

	evaluator := simd.NewEvaluator(config.EvaluationConfig{
		Realizations: opts.realizations,
		Steps:        opts.steps,
		Seed:         opts.seed,
		Workers:      opts.workers,
	}, nil)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	for _, policy := range policies {
		in := simd.EvaluationInput{
			Label:  policy.name,
			Vars:   policy.vars,
			Params: &params,
			NRBF:   policy.nRBF,
		}
		if err := evaluator.Validate(in); err != nil {
			return fmt.Errorf("policy %q: %w", policy.name, err)
		}

		ev, _, err := evaluator.Evaluate(ctx, "", in, nil, 0)
		if err != nil {
			return fmt.Errorf("policy %q: %w", policy.name, err)
		}
		result := policyResult{
			Name:        policy.name,
			Objectives:  ev.Objectives,
			Constraints: ev.Cnstr(),
		}

		if opts.states > 0 {
			result.Robustness, err = evaluator.Robustness(ctx, simd.RobustnessInput{
				EvaluationInput: in,
				Samples:         opts.states,
			})
			if err != nil {
				return fmt.Errorf("policy %q: robustness: %w", policy.name, err)
			}
			// The per-state results are too long for terminal output.
			result.Robustness.Results = nil
		}

		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return nil
}

type namedPolicy struct {
	name string
	vars []float64
	nRBF int
}

func loadParams(opts options) (fishery.Params, error) {
	if opts.params != "" {
		return fishery.ParamsFromStrings(strings.Split(opts.params, ","))
	}
	if opts.scenario == "" {
		return fishery.DefaultParams(), nil
	}
	scenario, err := config.LoadScenario(opts.scenario)
	if err != nil {
		return fishery.Params{}, err
	}
	return fishery.ParamsFromScenario(scenario)
}

func loadPolicies(opts options) ([]namedPolicy, error) {
	if opts.policies != "" {
		set, err := config.LoadPolicySet(opts.policies)
		if err != nil {
			return nil, err
		}
		nRBF := set.NRBF
		if opts.nRBF > 0 {
			nRBF = opts.nRBF
		}
		out := make([]namedPolicy, len(set.Policies))
		for i, p := range set.Policies {
			out[i] = namedPolicy{name: p.Name, vars: p.Vars, nRBF: nRBF}
		}
		return out, nil
	}

	if opts.vars == "" {
		return nil, errors.New("either -vars or -policies is required")
	}
	vars, err := parseVars(opts.vars)
	if err != nil {
		return nil, err
	}
	return []namedPolicy{{vars: vars, nRBF: opts.nRBF}}, nil
}

func parseVars(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	vars := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("vars[%d]: %w", i, err)
		}
		vars = append(vars, v)
	}
	return vars, nil
}
