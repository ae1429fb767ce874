//go:build !rollaball_dev

package rblicense

// DevelopmentBuild reports whether this binary was built with the
// rollaball_dev tag.
const DevelopmentBuild = false

func developmentBypass(BuildMode) (Result, bool) {
	return Result{}, false
}
