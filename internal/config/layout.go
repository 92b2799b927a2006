package config

import "strings"

// LogLayout controls how steps are represented in the remote item tree
type LogLayout int

const (
	// LayoutScenario logs every step as a text entry on the scenario item
	LayoutScenario LogLayout = iota
	// LayoutStep reports every step as a counted child item of the scenario
	LayoutStep
	// LayoutNested reports every step as a child item excluded from statistics
	LayoutNested
)

func (l LogLayout) String() string {
	switch l {
	case LayoutStep:
		return "STEP"
	case LayoutNested:
		return "NESTED"
	default:
		return "SCENARIO"
	}
}

// PerStep reports whether steps become their own remote items
func (l LogLayout) PerStep() bool {
	return l == LayoutStep || l == LayoutNested
}

// ParseLogLayout matches the layout name case-insensitively. Empty or
// unrecognized input yields LayoutScenario.
func ParseLogLayout(s string) LogLayout {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STEP":
		return LayoutStep
	case "NESTED":
		return LayoutNested
	default:
		return LayoutScenario
	}
}
