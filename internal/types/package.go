package types

// ConditionalDependency is one declared dependency edge, active only
// when the owning package's spec intersects When. Declarations are kept
// as ordered (condition, payload) lists rather than maps keyed by Spec,
// since Spec equality is structural.
type ConditionalDependency struct {
	When  Spec
	Name  string
	Flags DepFlag

	// Constraint is the spec the dependency must satisfy when the edge
	// is active (e.g. depends_on("zlib@1.2:")).
	Constraint Spec
}

// ConditionalProvide declares that the owning package provides a
// virtual spec whenever its own spec intersects When.
type ConditionalProvide struct {
	When    Spec
	Virtual Spec
}

// RequirementGroup is one package-authored requires(...) group.
type RequirementGroup struct {
	Requirements []Spec
	Policy       RulePolicy
	Message      string
}

// ConditionalRequirement guards a list of requirement groups with a
// condition spec.
type ConditionalRequirement struct {
	When   Spec
	Groups []RequirementGroup
}
