package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"crucible/internal/types"
)

// sigils is the ordered list of token prefixes recognized by the spec
// grammar. Order matters only for documentation; each sigil is a single
// rune checked explicitly below.
//
//	@  version range        +  variant on       ~  variant off
//	%  compiler             ^  dependency       /  abstract hash
const sigilRunes = "@+~%^/"

// ParseSpec parses one spec string in the crucible grammar, e.g.
// "hdf5@1.12:1.14 +mpi api=v112 %gcc@12 target=x86_64_v3 ^zlib@1.2:".
// Tokens may be whitespace-separated or concatenated ("hdf5@1.12+mpi").
func ParseSpec(raw string) (types.Spec, error) {
	fragments, err := fragmentSpec(raw)
	if err != nil {
		return types.Spec{}, err
	}
	root := types.Spec{}
	current := &root
	compilerScope := false
	for _, fragment := range fragments {
		switch {
		case strings.HasPrefix(fragment, "^"):
			dep, err := ParseSpec(fragment[1:])
			if err != nil {
				return types.Spec{}, err
			}
			if dep.Name == "" {
				return types.Spec{}, malformedSpec(raw, "dependency sigil with no package name")
			}
			root.Deps = append(root.Deps, dep)
			current = &root.Deps[len(root.Deps)-1]
			compilerScope = false
		case strings.HasPrefix(fragment, "@"):
			versions, err := parseVersionRange(fragment[1:])
			if err != nil {
				return types.Spec{}, malformedSpec(raw, err.Error())
			}
			if compilerScope {
				current.CompilerVersions = versions
			} else {
				current.Versions = versions
			}
		case strings.HasPrefix(fragment, "%"):
			if fragment == "%" {
				return types.Spec{}, malformedSpec(raw, "compiler sigil with no name")
			}
			current.Compiler = fragment[1:]
			compilerScope = true
		case strings.HasPrefix(fragment, "+"):
			setVariant(current, fragment[1:], "true")
			compilerScope = false
		case strings.HasPrefix(fragment, "~"):
			setVariant(current, fragment[1:], "false")
			compilerScope = false
		case strings.HasPrefix(fragment, "/"):
			current.Hash = fragment[1:]
			compilerScope = false
		case strings.Contains(fragment, "="):
			key, value, _ := strings.Cut(fragment, "=")
			switch key {
			case "platform":
				current.Platform = value
			case "target":
				current.Target = value
			default:
				setVariant(current, key, value)
			}
			compilerScope = false
		default:
			if current.Name != "" {
				return types.Spec{}, malformedSpec(raw, fmt.Sprintf("unexpected token %q", fragment))
			}
			current.Name = fragment
			compilerScope = false
		}
	}
	return root, nil
}

// ParseSpecs parses a whitespace-separated list of root specs. A "^"
// token attaches to the preceding spec rather than starting a new one.
func ParseSpecs(raw string) ([]types.Spec, error) {
	var out []types.Spec
	var pending []string
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		spec, err := ParseSpec(strings.Join(pending, " "))
		if err != nil {
			return err
		}
		out = append(out, spec)
		pending = nil
		return nil
	}
	for _, token := range strings.Fields(raw) {
		if len(pending) > 0 && !strings.ContainsAny(token[:1], sigilRunes) && !strings.Contains(token, "=") {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		pending = append(pending, token)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// fragmentSpec splits a raw spec string into sigil-prefixed fragments.
// Sigils bind without whitespace, so "zlib@1.2+shared" yields three
// fragments.
func fragmentSpec(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	var fragments []string
	for _, token := range strings.Fields(trimmed) {
		start := 0
		for i := 1; i < len(token); i++ {
			if !strings.ContainsRune(sigilRunes, rune(token[i])) {
				continue
			}
			// "=" values may contain sigil characters; never split
			// inside a key=value fragment.
			if strings.Contains(token[start:i], "=") {
				continue
			}
			if token[i] == '^' {
				// A dependency consumes the rest of the token.
				if i > start {
					fragments = append(fragments, token[start:i])
				}
				fragments = append(fragments, token[i:])
				start = len(token)
				break
			}
			if i > start {
				fragments = append(fragments, token[start:i])
			}
			start = i
		}
		if start < len(token) {
			fragments = append(fragments, token[start:])
		}
	}
	return fragments, nil
}

func setVariant(spec *types.Spec, key string, value string) {
	if spec.Variants == nil {
		spec.Variants = map[string]string{}
	}
	spec.Variants[key] = value
}

// parseVersionRange parses "1.2:3.4,5,7:" into a union of intervals.
// The bare ":" is the universal range.
func parseVersionRange(raw string) (types.VersionRange, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return types.VersionRange{}, fmt.Errorf("empty version range")
	}
	var intervals []types.VersionInterval
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return types.VersionRange{}, fmt.Errorf("empty version range member in %q", raw)
		}
		lo, hi, ranged := strings.Cut(part, ":")
		if !ranged {
			hi = lo
		}
		if lo != "" && hi != "" && types.CompareVersions(lo, hi) > 0 {
			return types.VersionRange{}, fmt.Errorf("inverted version range %q", part)
		}
		intervals = append(intervals, types.VersionInterval{Lo: lo, Hi: hi})
	}
	return types.VersionRange{Intervals: intervals}, nil
}

func malformedSpec(raw string, reason string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("malformed spec %q: %s", raw, reason))
}
