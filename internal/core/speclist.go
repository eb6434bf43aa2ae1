package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"crucible/internal/ports"
	"crucible/internal/types"
)

// SpecList wraps a declarative list of spec strings and matrix
// expressions and exposes lazily-expanded derived views. Mutation goes
// through Add/Remove/Extend only; every mutation invalidates both
// memoized views, which are recomputed from scratch on the next read.
type SpecList struct {
	Name string

	yamlList     []any
	expandedList []any

	constraints [][]types.Spec
	specs       []types.Spec
}

func NewSpecList(name string, yamlList []any) *SpecList {
	return &SpecList{
		Name:         name,
		yamlList:     append([]any(nil), yamlList...),
		expandedList: append([]any(nil), yamlList...),
	}
}

// YAMLList returns a copy of the raw entry list.
func (l *SpecList) YAMLList() []any {
	return append([]any(nil), l.yamlList...)
}

func (l *SpecList) invalidate() {
	l.constraints = nil
	l.specs = nil
}

// Add appends a literal spec entry.
func (l *SpecList) Add(spec types.Spec) {
	l.yamlList = append(l.yamlList, spec.String())
	l.expandedList = append(l.expandedList, spec.String())
	l.invalidate()
}

// Extend appends all entries of another list.
func (l *SpecList) Extend(other *SpecList) {
	l.yamlList = append(l.yamlList, other.yamlList...)
	l.expandedList = append(l.expandedList, other.expandedList...)
	l.invalidate()
}

// Remove deletes the literal entry equal to spec. Matching is by
// reconstructed-Spec equality, not string equality. Removing an entry
// that only exists as a matrix expansion is unsupported and fails, as
// does removing an entry that is not present: a silent no-op would
// hide a caller error.
func (l *SpecList) Remove(spec types.Spec) error {
	idx := -1
	for i, entry := range l.yamlList {
		value, ok := entry.(string)
		if !ok {
			continue
		}
		parsed, err := ParseSpec(value)
		if err != nil {
			continue
		}
		if parsed.Equal(spec) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("cannot remove %q from spec list %q: no matching non-matrix entry", spec.String(), l.Name))
	}
	l.yamlList = append(l.yamlList[:idx], l.yamlList[idx+1:]...)
	for i, entry := range l.expandedList {
		value, ok := entry.(string)
		if !ok {
			continue
		}
		parsed, err := ParseSpec(value)
		if err != nil {
			continue
		}
		if parsed.Equal(spec) {
			l.expandedList = append(l.expandedList[:i], l.expandedList[i+1:]...)
			break
		}
	}
	l.invalidate()
	return nil
}

// SpecsAsConstraints expands every entry into one conjunctive
// constraint list per expanded combination.
func (l *SpecList) SpecsAsConstraints() ([][]types.Spec, error) {
	if l.constraints != nil {
		return l.constraints, nil
	}
	var out [][]types.Spec
	for _, entry := range l.expandedList {
		switch value := entry.(type) {
		case string:
			spec, err := ParseSpec(value)
			if err != nil {
				return nil, err
			}
			out = append(out, []types.Spec{spec})
		case map[string]any:
			expanded, err := expandMatrix(value, l.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		default:
			return nil, invalidMatrix(l.Name, fmt.Sprintf("entry must be a spec string or matrix mapping, got %T", entry))
		}
	}
	l.constraints = out
	return out, nil
}

// Specs merges each constraint list into a single spec.
func (l *SpecList) Specs() ([]types.Spec, error) {
	if l.specs != nil {
		return l.specs, nil
	}
	constraints, err := l.SpecsAsConstraints()
	if err != nil {
		return nil, err
	}
	var out []types.Spec
	for _, group := range constraints {
		// The groups stay cached; constraining in place would write
		// through the shared variant map.
		merged := group[0].Clone()
		for _, other := range group[1:] {
			if err := merged.Constrain(other); err != nil {
				return nil, err
			}
		}
		out = append(out, merged)
	}
	l.specs = out
	return out, nil
}

// expandMatrix computes the cross product of a matrix block's rows,
// drops combinations intersecting any exclusion, and applies the sigil
// to the first element of each surviving combination at emission.
func expandMatrix(block map[string]any, listName string) ([][]types.Spec, error) {
	for key := range block {
		switch key {
		case "matrix", "exclude", "sigil":
		default:
			return nil, invalidMatrix(listName, fmt.Sprintf("unknown key %q", key))
		}
	}
	rawRows, ok := block["matrix"]
	if !ok {
		return nil, invalidMatrix(listName, "missing matrix key")
	}
	rowList, ok := rawRows.([]any)
	if !ok || len(rowList) == 0 {
		return nil, invalidMatrix(listName, "matrix must be a non-empty list of rows")
	}
	var rows [][]string
	for _, rawRow := range rowList {
		row, err := normalizeMatrixRow(rawRow, listName)
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			return nil, invalidMatrix(listName, "matrix row must not be empty")
		}
		rows = append(rows, row)
	}

	exclusions, err := matrixExclusions(block, listName)
	if err != nil {
		return nil, err
	}
	sigil := ""
	if rawSigil, ok := block["sigil"]; ok {
		value, isString := rawSigil.(string)
		if !isString || (value != "" && value != "^" && value != "%") {
			return nil, invalidMatrix(listName, "sigil must be \"^\" or \"%\"")
		}
		sigil = value
	}

	var out [][]types.Spec
	for _, combo := range crossProduct(rows) {
		testSpec, testable, err := comboTestSpec(combo)
		if err != nil {
			return nil, err
		}
		excluded := false
		if testable {
			for _, exclusion := range exclusions {
				if testSpec.Intersects(exclusion) {
					excluded = true
					break
				}
			}
		}
		if excluded {
			continue
		}
		group := make([]types.Spec, 0, len(combo))
		for i, element := range combo {
			spec, err := ParseSpec(element)
			if err != nil {
				return nil, err
			}
			// The sigil applies to the first element only, and only
			// here at emission, never during exclusion testing.
			if i == 0 {
				spec = applySigil(sigil, spec)
			}
			group = append(group, spec)
		}
		out = append(out, group)
	}
	return out, nil
}

// normalizeMatrixRow flattens a row: literal strings pass through and
// nested matrix blocks are expanded first, each combination collapsing
// into a single combined-string row element.
func normalizeMatrixRow(rawRow any, listName string) ([]string, error) {
	row, ok := rawRow.([]any)
	if !ok {
		return nil, invalidMatrix(listName, fmt.Sprintf("matrix row must be a list, got %T", rawRow))
	}
	var out []string
	for _, element := range row {
		switch value := element.(type) {
		case string:
			out = append(out, value)
		case map[string]any:
			nested, err := expandMatrix(value, listName)
			if err != nil {
				return nil, err
			}
			for _, group := range nested {
				parts := make([]string, 0, len(group))
				for _, spec := range group {
					parts = append(parts, spec.String())
				}
				out = append(out, strings.Join(parts, " "))
			}
		default:
			return nil, invalidMatrix(listName, fmt.Sprintf("matrix row element must be a string or nested matrix, got %T", element))
		}
	}
	return out, nil
}

func matrixExclusions(block map[string]any, listName string) ([]types.Spec, error) {
	raw, ok := block["exclude"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, invalidMatrix(listName, "exclude must be a list of spec strings")
	}
	var out []types.Spec
	for _, entry := range list {
		value, isString := entry.(string)
		if !isString {
			return nil, invalidMatrix(listName, fmt.Sprintf("exclude entry must be a string, got %T", entry))
		}
		spec, err := ParseSpec(value)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

// comboTestSpec builds the spec used for exclusion testing by
// sequentially constraining a clone of the first element with every
// other element. Variant substitution is best-effort: a constrain
// failure reports the combination as untestable, which the caller
// treats as never matching an exclusion; it does not fail the
// expansion.
func comboTestSpec(combo []string) (types.Spec, bool, error) {
	first, err := ParseSpec(combo[0])
	if err != nil {
		return types.Spec{}, false, err
	}
	test := first.Clone()
	for _, element := range combo[1:] {
		spec, err := ParseSpec(element)
		if err != nil {
			return types.Spec{}, false, err
		}
		if err := test.Constrain(spec); err != nil {
			return types.Spec{}, false, nil
		}
	}
	return test, true, nil
}

func crossProduct(rows [][]string) [][]string {
	out := [][]string{{}}
	for _, row := range rows {
		var next [][]string
		for _, combo := range out {
			for _, element := range row {
				extended := append(append([]string(nil), combo...), element)
				next = append(next, extended)
			}
		}
		out = next
	}
	return out
}

// applySigil reinterprets a spec under a sigil: "^" turns it into a
// dependency constraint, "%" into a compiler constraint.
func applySigil(sigil string, spec types.Spec) types.Spec {
	switch sigil {
	case "^":
		return types.Spec{Deps: []types.Spec{spec}}
	case "%":
		return types.Spec{Compiler: spec.Name, CompilerVersions: spec.Versions}
	default:
		return spec
	}
}

func invalidMatrix(listName string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid matrix in spec list %q: %s", listName, reason))
}

// SpecListDefinition is one named, optionally when:-guarded fragment of
// a spec-list document.
type SpecListDefinition struct {
	Name    string
	When    string
	Entries []any
}

// SpecListParser resolves named-list references ($name, $^name, $%name)
// against previously parsed definitions. Resolution is strictly in
// encounter order: forward references are not resolved. This is a
// deliberate predictability guarantee, not an oversight.
type SpecListParser struct {
	platform ports.PlatformPort
	lists    map[string]*SpecList
}

func NewSpecListParser(platform ports.PlatformPort) *SpecListParser {
	return &SpecListParser{
		platform: platform,
		lists:    map[string]*SpecList{},
	}
}

// Get returns a previously parsed list by name.
func (p *SpecListParser) Get(name string) (*SpecList, bool) {
	list, ok := p.lists[name]
	return list, ok
}

// Parse resolves a sequence of definitions in order. Fragments whose
// when: guard does not hold for the current platform are skipped;
// fragments sharing a name merge into the same list.
func (p *SpecListParser) Parse(definitions []SpecListDefinition) error {
	for _, definition := range definitions {
		if definition.When != "" {
			holds, err := p.guardHolds(definition.When)
			if err != nil {
				return err
			}
			if !holds {
				continue
			}
		}
		resolved, err := p.resolveReferences(definition.Name, definition.Entries)
		if err != nil {
			return err
		}
		if existing, ok := p.lists[definition.Name]; ok {
			existing.Extend(NewSpecList(definition.Name, resolved))
			continue
		}
		p.lists[definition.Name] = NewSpecList(definition.Name, resolved)
	}
	return nil
}

// guardHolds evaluates a when: guard spec against the host platform
// and target.
func (p *SpecListParser) guardHolds(when string) (bool, error) {
	guard, err := ParseSpec(when)
	if err != nil {
		return false, err
	}
	if guard.Platform != "" && guard.Platform != p.platform.HostPlatform() {
		return false, nil
	}
	if guard.Target != "" {
		host := p.platform.HostTarget()
		if guard.Target != host.Name && host.Family != guard.Target {
			return false, nil
		}
	}
	return true, nil
}

// resolveReferences splices $name references, applying the reference's
// sigil to every element of the referenced list.
func (p *SpecListParser) resolveReferences(listName string, entries []any) ([]any, error) {
	var out []any
	for _, entry := range entries {
		value, ok := entry.(string)
		if !ok || !strings.HasPrefix(value, "$") {
			out = append(out, entry)
			continue
		}
		sigil := ""
		refName := value[1:]
		if strings.HasPrefix(refName, "^") || strings.HasPrefix(refName, "%") {
			sigil = refName[:1]
			refName = refName[1:]
		}
		referenced, ok := p.lists[refName]
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("undefined reference %q in spec list %q", value, listName))
		}
		for _, refEntry := range referenced.expandedList {
			switch refValue := refEntry.(type) {
			case string:
				out = append(out, sigil+refValue)
			case map[string]any:
				if sigil == "" {
					out = append(out, refValue)
					continue
				}
				cloned := map[string]any{}
				for key, inner := range refValue {
					cloned[key] = inner
				}
				cloned["sigil"] = sigil
				out = append(out, cloned)
			default:
				out = append(out, refEntry)
			}
		}
	}
	return out, nil
}
