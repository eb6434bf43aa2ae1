package types

// DepFlag is a bitset of dependency kinds carried by a single edge in
// the dependency graph.
type DepFlag uint8

const (
	DepBuild DepFlag = 1 << iota
	DepLink
	DepRun
	DepTest
)

const (
	DepNone    DepFlag = 0
	DepLinkRun DepFlag = DepLink | DepRun
	DepAll     DepFlag = DepBuild | DepLink | DepRun | DepTest
)

// Matches reports whether the flag set is acceptable under allowed.
// Strict matching requires exact equality; non-strict requires any
// overlapping bit.
func (f DepFlag) Matches(allowed DepFlag, strict bool) bool {
	if strict {
		return f == allowed
	}
	return f&allowed != 0
}

func (f DepFlag) String() string {
	if f == DepNone {
		return "none"
	}
	var parts []string
	if f&DepBuild != 0 {
		parts = append(parts, "build")
	}
	if f&DepLink != 0 {
		parts = append(parts, "link")
	}
	if f&DepRun != 0 {
		parts = append(parts, "run")
	}
	if f&DepTest != 0 {
		parts = append(parts, "test")
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "+" + p
	}
	return out
}

// RequirementKind records the provenance of a requirement rule.
type RequirementKind string

const (
	RequirementKindDefault RequirementKind = "default"
	RequirementKindVirtual RequirementKind = "virtual"
	RequirementKindPackage RequirementKind = "package"
)

// RulePolicy selects how many members of a requirement group must hold.
type RulePolicy string

const (
	RulePolicyOneOf RulePolicy = "one_of"
	RulePolicyAnyOf RulePolicy = "any_of"
)

// DuplicatesStrategy selects the duplicate-counting policy. The set is
// closed; unrecognized configuration values fall back to
// DuplicatesNone.
type DuplicatesStrategy string

const (
	DuplicatesNone    DuplicatesStrategy = "none"
	DuplicatesMinimal DuplicatesStrategy = "minimal"
	DuplicatesFull    DuplicatesStrategy = "full"
)

// ParseDuplicatesStrategy maps a configuration string to a strategy,
// defaulting to DuplicatesNone for absent or unknown values.
func ParseDuplicatesStrategy(value string) DuplicatesStrategy {
	switch DuplicatesStrategy(value) {
	case DuplicatesMinimal:
		return DuplicatesMinimal
	case DuplicatesFull:
		return DuplicatesFull
	default:
		return DuplicatesNone
	}
}

// TargetGranularity controls which microarchitectures are offered as
// candidate targets.
type TargetGranularity string

const (
	GranularityMicroarchitectures TargetGranularity = "microarchitectures"
	GranularityGeneric            TargetGranularity = "generic"
)
