package app

import "crucible/internal/types"

type SetupRequest struct {
	Roots     []string
	RepoPath  string
	StorePath string
	Tests     bool
}

type SetupResult struct {
	Input *types.SolverInput
}

type SolveRequest struct {
	SetupRequest
}

type SolveResult struct {
	Selected map[string]string
}

type ExpandRequest struct {
	SpecListPath string
	ListName     string
}

type ExpandResult struct {
	Specs       []types.Spec
	Constraints [][]types.Spec
}

type TargetsRequest struct {
	RepoPath string
}

type TargetsResult struct {
	Targets []string
}

type RulesRequest struct {
	RepoPath string
	PkgName  string
}

type RulesResult struct {
	Rules []types.RequirementRule
}
