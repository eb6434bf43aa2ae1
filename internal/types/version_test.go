package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{name: "equal", a: "1.2.3", b: "1.2.3", expected: 0},
		{name: "numeric order", a: "1.10", b: "1.9", expected: 1},
		{name: "letter suffix", a: "1.2.3a", b: "1.2.3", expected: 1},
		{name: "fewer components first", a: "1.2", b: "1.2.1", expected: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareVersions(tt.a, tt.b)
			switch {
			case tt.expected < 0:
				assert.Negative(t, got)
			case tt.expected > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestVersionRangeContains(t *testing.T) {
	r := VersionRange{Intervals: []VersionInterval{
		{Lo: "1.2", Hi: "1.4"},
		{Lo: "2.0", Hi: ""},
	}}
	assert.True(t, r.Contains("1.3"))
	assert.True(t, r.Contains("1.2"))
	assert.True(t, r.Contains("1.4"))
	assert.True(t, r.Contains("2.5"))
	assert.False(t, r.Contains("1.5"))
	assert.False(t, r.Contains("1.0"))

	assert.True(t, VersionRange{}.Contains("0.1"), "empty range admits everything")
}

func TestVersionRangeIntersects(t *testing.T) {
	a := VersionRange{Intervals: []VersionInterval{{Lo: "1.2", Hi: "1.4"}}}
	b := VersionRange{Intervals: []VersionInterval{{Lo: "1.4", Hi: "2.0"}}}
	c := VersionRange{Intervals: []VersionInterval{{Lo: "3.0", Hi: ""}}}

	assert.True(t, a.Intersects(b), "shared endpoint intersects")
	assert.False(t, a.Intersects(c))
	assert.True(t, a.Intersects(VersionRange{}), "universal range intersects everything")
}

func TestVersionRangeSatisfies(t *testing.T) {
	narrow := VersionRange{Intervals: []VersionInterval{{Lo: "1.2", Hi: "1.3"}}}
	wide := VersionRange{Intervals: []VersionInterval{{Lo: "1.0", Hi: "2.0"}}}

	assert.True(t, narrow.Satisfies(wide))
	assert.False(t, wide.Satisfies(narrow))
	assert.True(t, wide.Satisfies(VersionRange{}), "everything satisfies the universal range")
	assert.False(t, VersionRange{}.Satisfies(wide), "the universal range satisfies only itself")
}

func TestVersionRangeConstrain(t *testing.T) {
	a := VersionRange{Intervals: []VersionInterval{{Lo: "1.0", Hi: "2.0"}}}
	b := VersionRange{Intervals: []VersionInterval{{Lo: "1.5", Hi: "3.0"}}}

	merged, ok := a.Constrain(b)
	require.True(t, ok)
	require.Len(t, merged.Intervals, 1)
	assert.Equal(t, VersionInterval{Lo: "1.5", Hi: "2.0"}, merged.Intervals[0])

	_, ok = a.Constrain(VersionRange{Intervals: []VersionInterval{{Lo: "4.0", Hi: ""}}})
	assert.False(t, ok, "disjoint ranges have no intersection")

	same, ok := a.Constrain(VersionRange{})
	require.True(t, ok)
	assert.Equal(t, a, same, "the universal range constrains nothing away")
}

func TestVersionRangeString(t *testing.T) {
	assert.Equal(t, ":", VersionRange{}.String())
	r := VersionRange{Intervals: []VersionInterval{
		{Lo: "1.2", Hi: "1.2"},
		{Lo: "2.0", Hi: "3.0"},
		{Lo: "4.0", Hi: ""},
	}}
	assert.Equal(t, "1.2,2.0:3.0,4.0:", r.String())
}
