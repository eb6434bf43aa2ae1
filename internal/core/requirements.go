package core

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"crucible/internal/policies"
	"crucible/internal/ports"
	"crucible/internal/types"
)

// RequirementParser merges package-authored requires(...) directives
// with configured require/prefer/conflict sections into one flat,
// provenance-tagged rule list. Rule order matters downstream: earlier
// rules act as higher-priority defaults for solver tie-breaking.
type RequirementParser struct {
	repo ports.RepositoryPort
	cfg  ports.ConfigPort
}

func NewRequirementParser(repo ports.RepositoryPort, cfg ports.ConfigPort) RequirementParser {
	return RequirementParser{repo: repo, cfg: cfg}
}

// Rules returns the normalized requirement rules for one package, in
// fixed order: authored requires, configured require (falling back to
// the global all: section), prefer, conflict.
func (p RequirementParser) Rules(ctx context.Context, cls ports.PackageClass) ([]types.RequirementRule, error) {
	pkgName := cls.Name()
	assert.NotEmpty(ctx, pkgName, "package class must carry a name")
	var rules []types.RequirementRule

	for _, conditional := range cls.Requirements() {
		for _, group := range conditional.Groups {
			if len(group.Requirements) == 0 {
				continue
			}
			rules = append(rules, types.RequirementRule{
				PkgName:      pkgName,
				Policy:       group.Policy,
				Requirements: group.Requirements,
				Condition:    conditional.When,
				Kind:         types.RequirementKindPackage,
				Message:      group.Message,
			})
		}
	}

	kind := types.RequirementKindPackage
	raw, ok := p.cfg.Get("packages:" + pkgName + ":require")
	if !ok {
		raw, ok = p.cfg.Get("packages:all:require")
		kind = types.RequirementKindDefault
	}
	if ok {
		configRules, err := p.parseRequireSection(ctx, cls, raw, kind)
		if err != nil {
			return nil, err
		}
		rules = append(rules, configRules...)
	}

	preferRules, err := p.preferenceRules(pkgName, "packages:"+pkgName+":prefer", types.RulePolicyAnyOf, types.RequirementKindPackage)
	if err != nil {
		return nil, err
	}
	rules = append(rules, preferRules...)

	conflictRules, err := p.preferenceRules(pkgName, "packages:"+pkgName+":conflict", types.RulePolicyOneOf, types.RequirementKindPackage)
	if err != nil {
		return nil, err
	}
	rules = append(rules, conflictRules...)

	return rules, nil
}

// RulesFromVirtual builds rules for a virtual name from configuration
// alone; virtuals have no package class. Every requirement spec must be
// named.
func (p RequirementParser) RulesFromVirtual(ctx context.Context, virtual string) ([]types.RequirementRule, error) {
	var rules []types.RequirementRule
	if raw, ok := p.cfg.Get("packages:" + virtual + ":require"); ok {
		groups, err := p.normalizeRequireEntries(raw, "packages:"+virtual+":require")
		if err != nil {
			return nil, err
		}
		for _, group := range groups {
			for _, req := range group.requirements {
				if err := requireNamedSpec(virtual, req); err != nil {
					return nil, err
				}
			}
			rules = append(rules, types.RequirementRule{
				PkgName:      virtual,
				Policy:       group.policy,
				Requirements: group.requirements,
				Condition:    group.when,
				Kind:         types.RequirementKindVirtual,
				Message:      group.message,
			})
		}
	}

	preferRules, err := p.preferenceRules(virtual, "packages:"+virtual+":prefer", types.RulePolicyAnyOf, types.RequirementKindVirtual)
	if err != nil {
		return nil, err
	}
	for _, rule := range preferRules {
		if err := requireNamedSpec(virtual, rule.Requirements[0]); err != nil {
			return nil, err
		}
	}
	rules = append(rules, preferRules...)

	conflictRules, err := p.preferenceRules(virtual, "packages:"+virtual+":conflict", types.RulePolicyOneOf, types.RequirementKindVirtual)
	if err != nil {
		return nil, err
	}
	for _, rule := range conflictRules {
		if err := requireNamedSpec(virtual, rule.Requirements[0]); err != nil {
			return nil, err
		}
	}
	rules = append(rules, conflictRules...)

	return rules, nil
}

// parseRequireSection normalizes one require: section. DEFAULT-kind
// groups are additionally screened by the rejection policy; rejected
// members are dropped silently and a group left empty is discarded.
func (p RequirementParser) parseRequireSection(ctx context.Context, cls ports.PackageClass, raw any, kind types.RequirementKind) ([]types.RequirementRule, error) {
	pkgName := cls.Name()
	source := "packages:" + pkgName + ":require"
	if kind == types.RequirementKindDefault {
		source = "packages:all:require"
	}
	groups, err := p.normalizeRequireEntries(raw, source)
	if err != nil {
		return nil, err
	}
	var rules []types.RequirementRule
	for _, group := range groups {
		requirements := group.requirements
		if kind == types.RequirementKindDefault {
			var kept []types.Spec
			for _, req := range requirements {
				if policies.RejectRequirementConstraint(ctx, pkgName, cls.Tags(), req) {
					continue
				}
				kept = append(kept, req)
			}
			requirements = kept
		}
		if len(requirements) == 0 {
			continue
		}
		rules = append(rules, types.RequirementRule{
			PkgName:      pkgName,
			Policy:       group.policy,
			Requirements: requirements,
			Condition:    group.when,
			Kind:         kind,
			Message:      group.message,
		})
	}
	return rules, nil
}

// preferenceRules translates prefer:/conflict: entries into soft
// requirement groups: each entry becomes [spec, "@:"] so that failing
// to match the real member never hard-fails the solve on its own.
// Entries are either bare spec strings or {spec, when, message}
// mappings, the same shapes the require: normalizer accepts.
func (p RequirementParser) preferenceRules(pkgName string, key string, policy types.RulePolicy, kind types.RequirementKind) ([]types.RequirementRule, error) {
	raw, ok := p.cfg.Get(key)
	if !ok {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, malformedRequirement(key, "expected a list")
	}
	var rules []types.RequirementRule
	for _, entry := range entries {
		var (
			spec    types.Spec
			when    types.Spec
			message string
		)
		switch value := entry.(type) {
		case string:
			parsed, err := ParseSpec(value)
			if err != nil {
				return nil, malformedRequirement(key, err.Error())
			}
			spec = parsed
		case map[string]any:
			rawSpec, ok := value["spec"]
			if !ok {
				return nil, malformedRequirement(key, "mapping entry requires a spec")
			}
			parsed, err := parseRequirementMember(rawSpec, key)
			if err != nil {
				return nil, err
			}
			spec = parsed
			if rawWhen, ok := value["when"]; ok {
				when, err = parseRequirementMember(rawWhen, key)
				if err != nil {
					return nil, err
				}
			}
			if rawMessage, ok := value["message"]; ok {
				message, ok = rawMessage.(string)
				if !ok {
					return nil, malformedRequirement(key, "message must be a string")
				}
			}
		default:
			return nil, malformedRequirement(key, fmt.Sprintf("expected a spec string or mapping, got %T", entry))
		}
		rules = append(rules, types.RequirementRule{
			PkgName:      pkgName,
			Policy:       policy,
			Requirements: []types.Spec{spec, {}},
			Condition:    when,
			Kind:         kind,
			Message:      message,
		})
	}
	return rules, nil
}

// configuredRequireConstraints returns the flat member list of the
// require: section for a package (or the global all: fallback). Static
// analysis uses it as the reachability envelope for "when" conditions.
func (p RequirementParser) configuredRequireConstraints(pkgName string) []types.Spec {
	raw, ok := p.cfg.Get("packages:" + pkgName + ":require")
	if !ok {
		raw, ok = p.cfg.Get("packages:all:require")
	}
	if !ok {
		return nil
	}
	groups, err := p.normalizeRequireEntries(raw, "packages:"+pkgName+":require")
	if err != nil {
		return nil
	}
	var out []types.Spec
	for _, group := range groups {
		if !group.when.IsEmpty() {
			continue
		}
		out = append(out, group.requirements...)
	}
	return out
}

type requireGroup struct {
	policy       types.RulePolicy
	requirements []types.Spec
	when         types.Spec
	message      string
}

// normalizeRequireEntries accepts the raw YAML shapes of a require:
// section: a bare string is {one_of: [string]}; a mapping may carry
// spec (single-member one_of), one_of or any_of, plus when and message.
func (p RequirementParser) normalizeRequireEntries(raw any, source string) ([]requireGroup, error) {
	entries, ok := raw.([]any)
	if !ok {
		if single, isString := raw.(string); isString {
			entries = []any{single}
		} else {
			return nil, malformedRequirement(source, fmt.Sprintf("expected a list, got %T", raw))
		}
	}
	var out []requireGroup
	for _, entry := range entries {
		switch value := entry.(type) {
		case string:
			spec, err := ParseSpec(value)
			if err != nil {
				return nil, malformedRequirement(source, err.Error())
			}
			out = append(out, requireGroup{policy: types.RulePolicyOneOf, requirements: []types.Spec{spec}})
		case map[string]any:
			group, err := p.normalizeRequireMapping(value, source)
			if err != nil {
				return nil, err
			}
			out = append(out, group)
		default:
			return nil, malformedRequirement(source, fmt.Sprintf("expected string or mapping, got %T", entry))
		}
	}
	return out, nil
}

func (p RequirementParser) normalizeRequireMapping(value map[string]any, source string) (requireGroup, error) {
	group := requireGroup{policy: types.RulePolicyOneOf}
	payloads := 0
	if raw, ok := value["spec"]; ok {
		payloads++
		spec, err := parseRequirementMember(raw, source)
		if err != nil {
			return requireGroup{}, err
		}
		group.requirements = []types.Spec{spec}
	}
	if raw, ok := value["one_of"]; ok {
		payloads++
		members, err := parseRequirementMembers(raw, source)
		if err != nil {
			return requireGroup{}, err
		}
		group.policy = types.RulePolicyOneOf
		group.requirements = members
	}
	if raw, ok := value["any_of"]; ok {
		payloads++
		members, err := parseRequirementMembers(raw, source)
		if err != nil {
			return requireGroup{}, err
		}
		group.policy = types.RulePolicyAnyOf
		group.requirements = members
	}
	if payloads != 1 {
		return requireGroup{}, malformedRequirement(source, "exactly one of spec, one_of or any_of is required")
	}
	if raw, ok := value["when"]; ok {
		condition, err := parseRequirementMember(raw, source)
		if err != nil {
			return requireGroup{}, err
		}
		group.when = condition
	}
	if raw, ok := value["message"]; ok {
		message, isString := raw.(string)
		if !isString {
			return requireGroup{}, malformedRequirement(source, "message must be a string")
		}
		group.message = message
	}
	return group, nil
}

func parseRequirementMembers(raw any, source string) ([]types.Spec, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, malformedRequirement(source, fmt.Sprintf("expected a list of spec strings, got %T", raw))
	}
	var out []types.Spec
	for _, entry := range list {
		spec, err := parseRequirementMember(entry, source)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

func parseRequirementMember(raw any, source string) (types.Spec, error) {
	value, ok := raw.(string)
	if !ok {
		return types.Spec{}, malformedRequirement(source, fmt.Sprintf("expected a spec string, got %T", raw))
	}
	spec, err := ParseSpec(value)
	if err != nil {
		return types.Spec{}, malformedRequirement(source, err.Error())
	}
	return spec, nil
}

// requireNamedSpec enforces the virtual-rule invariant that every
// requirement names a package. When the string parsed into a single
// dependency edge instead, the author most likely meant the ^ form on
// the virtual itself, so the error suggests it.
func requireNamedSpec(virtual string, spec types.Spec) error {
	if spec.Name != "" {
		return nil
	}
	if spec.IsEmpty() {
		return nil
	}
	if len(spec.Deps) == 1 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("requirement on virtual %s must be a named spec; did you mean %q?", virtual, spec.Deps[0].String()))
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("requirement on virtual %s must be a named spec, got %q", virtual, spec.String()))
}

func malformedRequirement(source string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("malformed requirement in %s: %s", source, reason))
}
