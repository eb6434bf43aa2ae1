package types

import (
	"strings"

	debversion "github.com/knqyf263/go-deb-version"
)

// VersionInterval is a closed interval over version strings. An empty
// bound is unbounded on that side, so the zero value covers every
// version.
type VersionInterval struct {
	Lo string
	Hi string
}

// VersionRange is a union of intervals. An empty range (no intervals)
// also covers every version; "@:" parses to a single unbounded
// interval.
type VersionRange struct {
	Intervals []VersionInterval
}

// CompareVersions orders two version strings using Debian comparison
// semantics, which handle dotted numeric versions with letter suffixes.
// Unparseable versions fall back to lexicographic ordering.
func CompareVersions(a string, b string) int {
	va, errA := debversion.NewVersion(a)
	vb, errB := debversion.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// IsAny reports whether the range admits every version.
func (r VersionRange) IsAny() bool {
	if len(r.Intervals) == 0 {
		return true
	}
	for _, iv := range r.Intervals {
		if iv.Lo == "" && iv.Hi == "" {
			return true
		}
	}
	return false
}

func (iv VersionInterval) contains(version string) bool {
	if iv.Lo != "" && CompareVersions(version, iv.Lo) < 0 {
		return false
	}
	if iv.Hi != "" && CompareVersions(version, iv.Hi) > 0 {
		return false
	}
	return true
}

func intervalsIntersect(a VersionInterval, b VersionInterval) bool {
	if a.Hi != "" && b.Lo != "" && CompareVersions(a.Hi, b.Lo) < 0 {
		return false
	}
	if b.Hi != "" && a.Lo != "" && CompareVersions(b.Hi, a.Lo) < 0 {
		return false
	}
	return true
}

// intervalWithin reports whether a is fully contained in b.
func intervalWithin(a VersionInterval, b VersionInterval) bool {
	if b.Lo != "" && (a.Lo == "" || CompareVersions(a.Lo, b.Lo) < 0) {
		return false
	}
	if b.Hi != "" && (a.Hi == "" || CompareVersions(a.Hi, b.Hi) > 0) {
		return false
	}
	return true
}

// Contains reports whether a concrete version lies inside the range.
func (r VersionRange) Contains(version string) bool {
	if r.IsAny() {
		return true
	}
	for _, iv := range r.Intervals {
		if iv.contains(version) {
			return true
		}
	}
	return false
}

// Intersects reports whether some concrete version lies in both ranges.
func (r VersionRange) Intersects(other VersionRange) bool {
	if r.IsAny() || other.IsAny() {
		return true
	}
	for _, a := range r.Intervals {
		for _, b := range other.Intervals {
			if intervalsIntersect(a, b) {
				return true
			}
		}
	}
	return false
}

// Satisfies reports whether every version admitted by the range is also
// admitted by other.
func (r VersionRange) Satisfies(other VersionRange) bool {
	if other.IsAny() {
		return true
	}
	if r.IsAny() {
		return false
	}
	for _, a := range r.Intervals {
		within := false
		for _, b := range other.Intervals {
			if intervalWithin(a, b) {
				within = true
				break
			}
		}
		if !within {
			return false
		}
	}
	return true
}

// Constrain intersects the range with other. The second return value is
// false when the intersection is empty.
func (r VersionRange) Constrain(other VersionRange) (VersionRange, bool) {
	if other.IsAny() {
		return r, true
	}
	if r.IsAny() {
		return other, true
	}
	var out []VersionInterval
	for _, a := range r.Intervals {
		for _, b := range other.Intervals {
			if !intervalsIntersect(a, b) {
				continue
			}
			merged := VersionInterval{Lo: a.Lo, Hi: a.Hi}
			if merged.Lo == "" || (b.Lo != "" && CompareVersions(b.Lo, merged.Lo) > 0) {
				merged.Lo = b.Lo
			}
			if merged.Hi == "" || (b.Hi != "" && CompareVersions(b.Hi, merged.Hi) < 0) {
				merged.Hi = b.Hi
			}
			out = append(out, merged)
		}
	}
	if len(out) == 0 {
		return VersionRange{}, false
	}
	return VersionRange{Intervals: out}, true
}

func (r VersionRange) String() string {
	if r.IsAny() {
		return ":"
	}
	var parts []string
	for _, iv := range r.Intervals {
		switch {
		case iv.Lo == iv.Hi:
			parts = append(parts, iv.Lo)
		default:
			parts = append(parts, iv.Lo+":"+iv.Hi)
		}
	}
	return strings.Join(parts, ",")
}
