package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Spec is a possibly-partial constraint over a package: name, version
// range, variants, compiler, platform/target and dependency edges. An
// anonymous spec (empty name) acts as a pure condition. The zero value
// is the always-true constraint.
type Spec struct {
	Name             string
	Versions         VersionRange
	Variants         map[string]string
	Compiler         string
	CompilerVersions VersionRange
	Platform         string
	Target           string
	Deps             []Spec
	Hash             string
}

// NewSpec returns a spec constraining only the package name.
func NewSpec(name string) Spec {
	return Spec{Name: name}
}

// Clone returns a deep copy sharing no mutable state with the
// original. Constrain mutates its receiver, so any spec held in a
// cache must be cloned before being used as a Constrain receiver.
func (s Spec) Clone() Spec {
	out := s
	out.Versions.Intervals = append([]VersionInterval(nil), s.Versions.Intervals...)
	out.CompilerVersions.Intervals = append([]VersionInterval(nil), s.CompilerVersions.Intervals...)
	if s.Variants != nil {
		out.Variants = make(map[string]string, len(s.Variants))
		for key, value := range s.Variants {
			out.Variants[key] = value
		}
	}
	if s.Deps != nil {
		out.Deps = make([]Spec, 0, len(s.Deps))
		for _, dep := range s.Deps {
			out.Deps = append(out.Deps, dep.Clone())
		}
	}
	return out
}

// IsEmpty reports whether the spec carries no constraints at all, i.e.
// it is the always-true condition.
func (s Spec) IsEmpty() bool {
	return s.Name == "" && s.Versions.IsAny() && len(s.Variants) == 0 &&
		s.Compiler == "" && s.Platform == "" && s.Target == "" &&
		len(s.Deps) == 0 && s.Hash == ""
}

// IsAnonymous reports whether the spec names no package.
func (s Spec) IsAnonymous() bool {
	return s.Name == ""
}

func (s Spec) depByName(name string) (Spec, bool) {
	for _, dep := range s.Deps {
		if dep.Name == name {
			return dep, true
		}
	}
	return Spec{}, false
}

// Intersects reports whether a concrete spec could satisfy both s and
// other.
func (s Spec) Intersects(other Spec) bool {
	if s.Name != "" && other.Name != "" && s.Name != other.Name {
		return false
	}
	if !s.Versions.Intersects(other.Versions) {
		return false
	}
	for key, value := range other.Variants {
		if existing, ok := s.Variants[key]; ok && existing != value {
			return false
		}
	}
	if s.Compiler != "" && other.Compiler != "" {
		if s.Compiler != other.Compiler {
			return false
		}
		if !s.CompilerVersions.Intersects(other.CompilerVersions) {
			return false
		}
	}
	if s.Platform != "" && other.Platform != "" && s.Platform != other.Platform {
		return false
	}
	if s.Target != "" && other.Target != "" && s.Target != other.Target {
		return false
	}
	for _, dep := range other.Deps {
		if existing, ok := s.depByName(dep.Name); ok && !existing.Intersects(dep) {
			return false
		}
	}
	return true
}

// Satisfies reports whether every concrete spec matching s also matches
// other.
func (s Spec) Satisfies(other Spec) bool {
	if other.Name != "" && s.Name != other.Name {
		return false
	}
	if !s.Versions.Satisfies(other.Versions) {
		return false
	}
	for key, value := range other.Variants {
		existing, ok := s.Variants[key]
		if !ok || existing != value {
			return false
		}
	}
	if other.Compiler != "" {
		if s.Compiler != other.Compiler {
			return false
		}
		if !s.CompilerVersions.Satisfies(other.CompilerVersions) {
			return false
		}
	}
	if other.Platform != "" && s.Platform != other.Platform {
		return false
	}
	if other.Target != "" && s.Target != other.Target {
		return false
	}
	for _, dep := range other.Deps {
		existing, ok := s.depByName(dep.Name)
		if !ok || !existing.Satisfies(dep) {
			return false
		}
	}
	return true
}

// Constrain merges other into the spec, tightening every field. It
// fails when the two specs cannot intersect.
func (s *Spec) Constrain(other Spec) error {
	if s.Name != "" && other.Name != "" && s.Name != other.Name {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot constrain %s by %s: name mismatch", s.Name, other.Name))
	}
	if s.Name == "" {
		s.Name = other.Name
	}
	versions, ok := s.Versions.Constrain(other.Versions)
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("empty version intersection for %s: %s vs %s", s.Name, s.Versions, other.Versions))
	}
	s.Versions = versions
	for key, value := range other.Variants {
		existing, ok := s.Variants[key]
		if ok && existing != value {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("conflicting variant %s for %s: %s vs %s", key, s.Name, existing, value))
		}
		if s.Variants == nil {
			s.Variants = map[string]string{}
		}
		s.Variants[key] = value
	}
	if other.Compiler != "" {
		if s.Compiler != "" && s.Compiler != other.Compiler {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("conflicting compiler for %s: %s vs %s", s.Name, s.Compiler, other.Compiler))
		}
		s.Compiler = other.Compiler
		compilerVersions, ok := s.CompilerVersions.Constrain(other.CompilerVersions)
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("empty compiler version intersection for %s", s.Name))
		}
		s.CompilerVersions = compilerVersions
	}
	if other.Platform != "" {
		if s.Platform != "" && s.Platform != other.Platform {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("conflicting platform for %s: %s vs %s", s.Name, s.Platform, other.Platform))
		}
		s.Platform = other.Platform
	}
	if other.Target != "" {
		if s.Target != "" && s.Target != other.Target {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("conflicting target for %s: %s vs %s", s.Name, s.Target, other.Target))
		}
		s.Target = other.Target
	}
	if other.Hash != "" {
		s.Hash = other.Hash
	}
	for _, dep := range other.Deps {
		idx := -1
		for i, existing := range s.Deps {
			if existing.Name == dep.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			s.Deps = append(s.Deps, dep.Clone())
			continue
		}
		if err := s.Deps[idx].Constrain(dep); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports structural equality of two specs.
func (s Spec) Equal(other Spec) bool {
	return s.String() == other.String()
}

// Validate checks the spec for internal consistency: every version
// interval must be non-empty and every dependency constraint must
// itself validate.
func (s Spec) Validate() error {
	for _, iv := range s.Versions.Intervals {
		if iv.Lo != "" && iv.Hi != "" && CompareVersions(iv.Lo, iv.Hi) > 0 {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("empty version interval %s:%s for %s", iv.Lo, iv.Hi, s.Name))
		}
	}
	for _, dep := range s.Deps {
		if dep.Name == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("anonymous dependency constraint on %s", s.Name))
		}
		if err := dep.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the spec in the canonical input grammar:
// name@range +variant k=v %compiler@range platform=p target=t ^dep...
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if !s.Versions.IsAny() {
		b.WriteString("@" + s.Versions.String())
	}
	keys := make([]string, 0, len(s.Variants))
	for key := range s.Variants {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch s.Variants[key] {
		case "true":
			b.WriteString(" +" + key)
		case "false":
			b.WriteString(" ~" + key)
		default:
			b.WriteString(" " + key + "=" + s.Variants[key])
		}
	}
	if s.Compiler != "" {
		b.WriteString(" %" + s.Compiler)
		if !s.CompilerVersions.IsAny() {
			b.WriteString("@" + s.CompilerVersions.String())
		}
	}
	if s.Platform != "" {
		b.WriteString(" platform=" + s.Platform)
	}
	if s.Target != "" {
		b.WriteString(" target=" + s.Target)
	}
	if s.Hash != "" {
		b.WriteString(" /" + s.Hash)
	}
	for _, dep := range s.Deps {
		b.WriteString(" ^" + dep.String())
	}
	return strings.TrimSpace(b.String())
}
