package policies

import (
	"context"

	"github.com/rs/zerolog/log"

	"crucible/internal/types"
)

// Tags whose packages use a separate constraint channel; default-scoped
// dependency constraints are meaningless for them.
var specialChannelTags = map[string]struct{}{
	"compiler": {},
	"runtime":  {},
}

// RejectRequirementConstraint decides whether a default-scoped (global
// "all:" section) constraint applies to a package at all. Rejection is
// an expected, high-frequency path and is traced at debug level only.
// PACKAGE- and VIRTUAL-kind rules are never passed through here.
func RejectRequirementConstraint(ctx context.Context, pkgName string, tags []string, constraint types.Spec) bool {
	if len(constraint.Deps) > 0 {
		for _, tag := range tags {
			if _, ok := specialChannelTags[tag]; ok {
				log.Ctx(ctx).Debug().
					Str("package", pkgName).
					Str("constraint", constraint.String()).
					Msg("default requirement rejected: dependency constraint on compiler/runtime package")
				return true
			}
		}
	}
	probe := types.NewSpec(pkgName)
	if err := probe.Constrain(constraint); err != nil {
		log.Ctx(ctx).Debug().
			Str("package", pkgName).
			Str("constraint", constraint.String()).
			Msg("default requirement rejected: not self-consistent")
		return true
	}
	if err := probe.Validate(); err != nil {
		log.Ctx(ctx).Debug().
			Str("package", pkgName).
			Str("constraint", constraint.String()).
			Msg("default requirement rejected: validation failed")
		return true
	}
	return false
}
