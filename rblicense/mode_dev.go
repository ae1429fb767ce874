//go:build rollaball_dev

package rblicense

// DevelopmentBuild reports whether this binary was built with the
// rollaball_dev tag.
const DevelopmentBuild = true

func developmentBypass(mode BuildMode) (Result, bool) {
	if mode != Development {
		return Result{}, false
	}
	return Result{Activated: true, Reason: "Editor mode (no license needed)."}, true
}
