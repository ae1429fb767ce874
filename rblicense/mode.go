package rblicense

// BuildMode selects how a Service treats the current binary.
type BuildMode int

const (
	// Shipping runs every activation check.
	Shipping BuildMode = iota
	// Development reports the client as activated without checks. It only
	// takes effect in binaries built with the rollaball_dev tag.
	Development
)

func (m BuildMode) String() string {
	switch m {
	case Shipping:
		return "shipping"
	case Development:
		return "development"
	default:
		return "unknown"
	}
}
