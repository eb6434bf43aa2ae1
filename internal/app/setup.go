package app

import (
	"context"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"crucible/internal/adapters"
	"crucible/internal/core"
	"crucible/internal/ports"
	"crucible/internal/types"
)

// Setup runs the full input-analysis pipeline for one solver
// invocation: parse roots, compute the possible universe, emit
// cardinality facts and requirement rules, and enumerate candidate
// targets. Every analyzer/counter/parser instance is constructed fresh
// here; their caches never outlive the request.
func (s Service) Setup(ctx context.Context, req SetupRequest) (SetupResult, error) {
	input, _, err := s.setup(ctx, req)
	if err != nil {
		return SetupResult{}, err
	}
	return SetupResult{Input: input}, nil
}

// Solve runs Setup and hands the emitted facts to the downstream
// solver.
func (s Service) Solve(ctx context.Context, req SolveRequest) (SolveResult, error) {
	input, repo, err := s.setup(ctx, req.SetupRequest)
	if err != nil {
		return SolveResult{}, err
	}
	selected, err := core.Solve(ctx, repo, input)
	if err != nil {
		return SolveResult{}, err
	}
	return SolveResult{Selected: selected}, nil
}

func (s Service) setup(ctx context.Context, req SetupRequest) (*types.SolverInput, ports.RepositoryPort, error) {
	if strings.TrimSpace(req.RepoPath) == "" {
		return nil, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository path is required")
	}
	if len(req.Roots) == 0 {
		return nil, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one root spec is required")
	}

	var roots []types.Spec
	for _, raw := range req.Roots {
		spec, err := core.ParseSpec(raw)
		if err != nil {
			return nil, nil, err
		}
		roots = append(roots, spec)
	}

	repo, err := adapters.NewRepoFileAdapter(req.RepoPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := adapters.NewStoreFileAdapter(req.StorePath)
	if err != nil {
		return nil, nil, err
	}

	analyzer := core.NewGraphAnalyzer(repo, s.Config, store, s.Platform)
	counter := core.NewCounter(ctx, analyzer, repo, s.Config, roots, req.Tests)

	allowed := types.DepAll
	if !req.Tests {
		allowed &^= types.DepTest
	}
	input := types.NewSolverInput()
	input.Roots = roots
	input.Graph = analyzer.PossibleDependencies(ctx, roots, core.TraversalOptions{
		AllowedDeps:    allowed,
		Transitive:     true,
		ExpandVirtuals: true,
	})
	counter.Emit(input)

	parser := core.NewRequirementParser(repo, s.Config)
	rules, err := collectRules(ctx, parser, repo, input.Graph)
	if err != nil {
		return nil, nil, err
	}
	input.Rules = rules
	input.Targets = analyzer.CandidateTargets()

	log.Ctx(ctx).Debug().
		Int("real_pkgs", len(input.Graph.RealPkgs)).
		Int("rules", len(input.Rules)).
		Msg("solver input assembled")
	return input, repo, nil
}

// collectRules gathers requirement rules for every real package and
// virtual in the universe, in sorted name order for deterministic
// emission.
func collectRules(ctx context.Context, parser core.RequirementParser, repo ports.RepositoryPort, graph types.PossibleGraph) ([]types.RequirementRule, error) {
	var rules []types.RequirementRule
	names := graph.SortedReals()
	for _, name := range names {
		cls, ok := repo.GetPkgClass(name)
		if !ok {
			continue
		}
		pkgRules, err := parser.Rules(ctx, cls)
		if err != nil {
			return nil, err
		}
		rules = append(rules, pkgRules...)
	}
	virtuals := graph.SortedVirtuals()
	sort.Strings(virtuals)
	for _, name := range virtuals {
		virtualRules, err := parser.RulesFromVirtual(ctx, name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, virtualRules...)
	}
	return rules, nil
}

// Rules returns the normalized requirement rules for a single package
// or virtual name.
func (s Service) Rules(ctx context.Context, req RulesRequest) (RulesResult, error) {
	if strings.TrimSpace(req.RepoPath) == "" {
		return RulesResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository path is required")
	}
	if strings.TrimSpace(req.PkgName) == "" {
		return RulesResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}
	repo, err := adapters.NewRepoFileAdapter(req.RepoPath)
	if err != nil {
		return RulesResult{}, err
	}
	parser := core.NewRequirementParser(repo, s.Config)
	if repo.IsVirtual(req.PkgName) {
		rules, err := parser.RulesFromVirtual(ctx, req.PkgName)
		if err != nil {
			return RulesResult{}, err
		}
		return RulesResult{Rules: rules}, nil
	}
	cls, ok := repo.GetPkgClass(req.PkgName)
	if !ok {
		return RulesResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package not found: " + req.PkgName)
	}
	rules, err := parser.Rules(ctx, cls)
	if err != nil {
		return RulesResult{}, err
	}
	return RulesResult{Rules: rules}, nil
}

// Targets returns the candidate microarchitectures for the host, in
// solver preference order.
func (s Service) Targets(ctx context.Context, req TargetsRequest) (TargetsResult, error) {
	if strings.TrimSpace(req.RepoPath) == "" {
		return TargetsResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository path is required")
	}
	repo, err := adapters.NewRepoFileAdapter(req.RepoPath)
	if err != nil {
		return TargetsResult{}, err
	}
	store, err := adapters.NewStoreFileAdapter("")
	if err != nil {
		return TargetsResult{}, err
	}
	analyzer := core.NewGraphAnalyzer(repo, s.Config, store, s.Platform)
	targets := analyzer.CandidateTargets()
	log.Ctx(ctx).Debug().Int("targets", len(targets)).Msg("candidate targets computed")
	return TargetsResult{Targets: targets}, nil
}

// Expand resolves a spec-list document and expands one named list into
// its specs and conjunctive constraint groups.
func (s Service) Expand(ctx context.Context, req ExpandRequest) (ExpandResult, error) {
	if strings.TrimSpace(req.SpecListPath) == "" {
		return ExpandResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("spec list path is required")
	}
	definitions, err := adapters.LoadSpecListDefinitions(req.SpecListPath)
	if err != nil {
		return ExpandResult{}, err
	}
	parser := core.NewSpecListParser(s.Platform)
	if err := parser.Parse(definitions); err != nil {
		return ExpandResult{}, err
	}
	list, ok := parser.Get(req.ListName)
	if !ok {
		return ExpandResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("undefined reference: no spec list named " + req.ListName)
	}
	specs, err := list.Specs()
	if err != nil {
		return ExpandResult{}, err
	}
	constraints, err := list.SpecsAsConstraints()
	if err != nil {
		return ExpandResult{}, err
	}
	log.Ctx(ctx).Debug().Int("specs", len(specs)).Str("list", req.ListName).Msg("spec list expanded")
	return ExpandResult{Specs: specs, Constraints: constraints}, nil
}
