package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/crillab/gophersat/solver"
	"github.com/rs/zerolog/log"

	"crucible/internal/ports"
	"crucible/internal/types"
)

// solveVarKey maps a SAT variable ID back to its package and version.
type solveVarKey struct {
	Name    string
	Version string
}

// solveState holds all bookkeeping for one SAT invocation. Isolating
// it avoids threading several maps through every helper.
type solveState struct {
	packageVars map[string][]int
	varKey      map[int]solveVarKey
	varID       int
	costLits    []solver.Lit
	costWeights []int
}

// Solve is the downstream collaborator made concrete: it consumes
// exactly what the input-analysis core emits (possible graph,
// cardinality facts, requirement rules) and selects one version per
// required package, preferring newer versions. The input-analysis core
// never depends on this; it exists for the CLI and end-to-end tests.
func Solve(ctx context.Context, repo ports.RepositoryPort, input *types.SolverInput) (map[string]string, error) {
	if len(input.Graph.RealPkgs) == 0 {
		return map[string]string{}, nil
	}

	state := buildSolveState(repo, input)
	if state.varID == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("solver received no package versions to solve")
	}

	clauses, err := buildSolveClauses(repo, input, state)
	if err != nil {
		return nil, err
	}

	problem := solver.ParseSliceNb(clauses, state.varID)
	problem.SetCostFunc(state.costLits, state.costWeights)
	sat := solver.New(problem)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cost := sat.Minimize(); cost < 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no satisfiable solution for the requested roots")
	}
	model := sat.Model()
	selected := map[string]string{}
	for id, key := range state.varKey {
		if id-1 < 0 || id-1 >= len(model) || !model[id-1] {
			continue
		}
		selected[key.Name] = key.Version
	}
	log.Ctx(ctx).Debug().Int("selected", len(selected)).Msg("solve completed")
	return selected, nil
}

// buildSolveState enumerates one SAT variable per (package, version)
// pair in the possible universe, weighting older versions higher so
// minimization prefers newer ones.
func buildSolveState(repo ports.RepositoryPort, input *types.SolverInput) solveState {
	state := solveState{
		packageVars: map[string][]int{},
		varKey:      map[int]solveVarKey{},
	}
	for _, name := range input.Graph.SortedReals() {
		cls, ok := repo.GetPkgClass(name)
		if !ok {
			continue
		}
		versions := append([]string(nil), cls.Versions()...)
		sort.Slice(versions, func(i, j int) bool {
			return types.CompareVersions(versions[i], versions[j]) > 0
		})
		var ids []int
		for i, version := range versions {
			state.varID++
			id := state.varID
			ids = append(ids, id)
			state.varKey[id] = solveVarKey{Name: name, Version: version}
			state.costLits = append(state.costLits, solver.IntToLit(int32(id))) //nolint:gosec // bounded by the number of package versions
			state.costWeights = append(state.costWeights, i)
		}
		if len(ids) > 0 {
			state.packageVars[name] = ids
		}
	}
	return state
}

// buildSolveClauses emits four clause groups: at-most-one per
// single-instance package, root demands, active dependency edges, and
// requirement-rule restrictions.
func buildSolveClauses(repo ports.RepositoryPort, input *types.SolverInput, state solveState) ([][]int, error) {
	var clauses [][]int

	for name, ids := range state.packageVars {
		if input.MaxDupes[name] > 1 {
			continue
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				clauses = append(clauses, []int{-ids[i], -ids[j]})
			}
		}
	}

	for _, root := range input.Roots {
		if root.Name == "" || !input.Graph.HasReal(root.Name) {
			continue
		}
		candidates := candidateVars(state, root.Name, root.Versions)
		if len(candidates) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("no candidate versions for root %s", root.Name))
		}
		clauses = append(clauses, candidates)
	}

	for _, name := range input.Graph.SortedReals() {
		cls, ok := repo.GetPkgClass(name)
		if !ok {
			continue
		}
		for _, decl := range cls.DependenciesByName() {
			if !decl.When.IsEmpty() {
				continue
			}
			targets := []string{decl.Name}
			if repo.IsVirtual(decl.Name) {
				targets = nil
				for _, provider := range repo.ProvidersFor(decl.Name) {
					targets = append(targets, provider.Name)
				}
			}
			var candidates []int
			for _, target := range targets {
				candidates = append(candidates, candidateVars(state, target, decl.Constraint.Versions)...)
			}
			for _, id := range state.packageVars[name] {
				if len(candidates) == 0 {
					clauses = append(clauses, []int{-id})
					continue
				}
				clauses = append(clauses, append([]int{-id}, candidates...))
			}
		}
	}

	for _, rule := range input.Rules {
		if !rule.Condition.IsEmpty() {
			continue
		}
		for _, id := range state.packageVars[rule.PkgName] {
			key := state.varKey[id]
			if !versionViolatesRule(key.Version, rule) {
				continue
			}
			clauses = append(clauses, []int{-id})
		}
	}

	return clauses, nil
}

// versionViolatesRule reports that a candidate version satisfies no
// member of the rule's requirement group. Members constraining aspects
// other than name and version are treated as satisfiable here; the
// full check belongs to a complete solver encoding.
func versionViolatesRule(version string, rule types.RequirementRule) bool {
	applicable := 0
	for _, member := range rule.Requirements {
		if member.Name != "" && member.Name != rule.PkgName {
			continue
		}
		applicable++
		if member.Versions.Contains(version) {
			return false
		}
	}
	return applicable > 0
}

func candidateVars(state solveState, name string, versions types.VersionRange) []int {
	var out []int
	for _, id := range state.packageVars[name] {
		if versions.Contains(state.varKey[id].Version) {
			out = append(out, id)
		}
	}
	return out
}
