package types

// SolverInput is everything this core hands to the downstream solver:
// the reachable universe, per-name cardinality facts, the unification
// partition and the normalized requirement rules.
type SolverInput struct {
	Roots                   []Spec
	Graph                   PossibleGraph
	MaxDupes                map[string]int
	LinkRun                 map[string]struct{}
	MultipleUnificationSets map[string]struct{}
	Rules                   []RequirementRule
	Targets                 []string
}

func NewSolverInput() *SolverInput {
	return &SolverInput{
		MaxDupes:                map[string]int{},
		LinkRun:                 map[string]struct{}{},
		MultipleUnificationSets: map[string]struct{}{},
	}
}
