package policies

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crucible/internal/types"
)

func TestRejectDependencyConstraintOnSpecialChannel(t *testing.T) {
	constraint := types.Spec{Deps: []types.Spec{{Name: "zlib"}}}

	assert.True(t, RejectRequirementConstraint(t.Context(), "gcc", []string{"compiler"}, constraint))
	assert.True(t, RejectRequirementConstraint(t.Context(), "gcc-runtime", []string{"runtime"}, constraint))
	assert.False(t, RejectRequirementConstraint(t.Context(), "hdf5", nil, constraint),
		"ordinary packages accept dependency constraints")
}

func TestRejectSelfInconsistentConstraint(t *testing.T) {
	otherName := types.NewSpec("zlib")
	assert.True(t, RejectRequirementConstraint(t.Context(), "hdf5", nil, otherName),
		"a default naming a different package cannot apply")

	invalid := types.Spec{Versions: types.VersionRange{Intervals: []types.VersionInterval{{Lo: "2.0", Hi: "1.0"}}}}
	assert.True(t, RejectRequirementConstraint(t.Context(), "hdf5", nil, invalid))
}

func TestAcceptPlainConstraints(t *testing.T) {
	tests := []struct {
		name       string
		constraint types.Spec
	}{
		{name: "version range", constraint: types.Spec{Versions: types.VersionRange{Intervals: []types.VersionInterval{{Lo: "1.12", Hi: ""}}}}},
		{name: "variant", constraint: types.Spec{Variants: map[string]string{"shared": "true"}}},
		{name: "compiler", constraint: types.Spec{Compiler: "gcc"}},
		{name: "self-named", constraint: types.NewSpec("hdf5")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, RejectRequirementConstraint(t.Context(), "hdf5", nil, tt.constraint))
		})
	}
}
