package types

// RequirementRule is a normalized, provenance-tagged constraint group
// destined for the solver's fact base. Hard requirements, soft
// preferences and conflicts all share this shape: preferences and
// conflicts carry an always-satisfiable catch-all member so that
// failing to match stays a soft signal. Rules are immutable after
// creation.
type RequirementRule struct {
	PkgName      string
	Policy       RulePolicy
	Requirements []Spec
	Condition    Spec
	Kind         RequirementKind
	Message      string
}
