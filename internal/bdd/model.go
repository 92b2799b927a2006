package bdd

import "strings"

// Status is the runner-native outcome of a feature, scenario or step
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusUndefined Status = "undefined"
	StatusUntested  Status = "untested"
)

// Location points at the source line an item was declared on
type Location struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// IsZero reports whether the location carries no file
func (l Location) IsZero() bool {
	return l.File == ""
}

// Table is a step data table. Rows do not include the heading row.
type Table struct {
	Headings []string   `json:"headings" yaml:"headings"`
	Rows     [][]string `json:"rows" yaml:"rows"`
}

// Row is a single example row of a scenario outline
type Row struct {
	Headings []string `json:"headings" yaml:"headings"`
	Cells    []string `json:"cells" yaml:"cells"`
}

// Failure describes why a step or scenario failed
type Failure struct {
	// Exception is the short error text, e.g. the error's Error() value
	Exception string `json:"exception,omitempty" yaml:"exception,omitempty"`
	// Trace is a fully formatted stack trace, if the runner captured one
	Trace string `json:"trace,omitempty" yaml:"trace,omitempty"`
	// Message is an additional human-readable error message
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Item is the capability set shared by features, scenarios and steps
type Item interface {
	ItemName() string
	ItemTags() []string
	ItemDescription() []string
	ItemLocation() Location
	ItemStatus() Status
}

// Feature is a top-level grouping of scenarios
type Feature struct {
	Name        string      `json:"name" yaml:"name"`
	Description []string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Location    Location    `json:"location" yaml:"location"`
	Status      Status      `json:"status" yaml:"status"`
	Scenarios   []*Scenario `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`

	SkipReason string `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
}

// Scenario is one example or test case within a feature
type Scenario struct {
	Name        string   `json:"name" yaml:"name"`
	Description []string `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Location    Location `json:"location" yaml:"location"`
	Status      Status   `json:"status" yaml:"status"`
	Steps       []*Step  `json:"steps,omitempty" yaml:"steps,omitempty"`
	Failure     *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`

	// Row is set when the scenario was generated from an outline example
	Row *Row `json:"row,omitempty" yaml:"row,omitempty"`

	SkipReason string `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
}

// Step is one action or assertion line within a scenario
type Step struct {
	Keyword  string   `json:"keyword" yaml:"keyword"`
	Name     string   `json:"name" yaml:"name"`
	Text     string   `json:"text,omitempty" yaml:"text,omitempty"`
	Table    *Table   `json:"table,omitempty" yaml:"table,omitempty"`
	Location Location `json:"location" yaml:"location"`
	Status   Status   `json:"status" yaml:"status"`
	Failure  *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

func (f *Feature) ItemName() string          { return f.Name }
func (f *Feature) ItemTags() []string        { return f.Tags }
func (f *Feature) ItemDescription() []string { return f.Description }
func (f *Feature) ItemLocation() Location    { return f.Location }
func (f *Feature) ItemStatus() Status        { return f.Status }

func (s *Scenario) ItemName() string          { return s.Name }
func (s *Scenario) ItemTags() []string        { return s.Tags }
func (s *Scenario) ItemDescription() []string { return s.Description }
func (s *Scenario) ItemLocation() Location    { return s.Location }
func (s *Scenario) ItemStatus() Status        { return s.Status }

func (s *Step) ItemName() string          { return s.Name }
func (s *Step) ItemTags() []string        { return nil }
func (s *Step) ItemDescription() []string { return nil }
func (s *Step) ItemLocation() Location    { return s.Location }
func (s *Step) ItemStatus() Status        { return s.Status }

// Skip marks the feature and everything below it as skipped so the runner
// does not execute it
func (f *Feature) Skip(reason string) {
	f.SkipReason = reason
	f.Status = StatusSkipped
	for _, sc := range f.Scenarios {
		sc.Skip(reason)
	}
}

// Skip marks the scenario and its steps as skipped
func (s *Scenario) Skip(reason string) {
	s.SkipReason = reason
	s.Status = StatusSkipped
	for _, st := range s.Steps {
		st.Status = StatusSkipped
	}
}

// HasTag reports whether the item carries exactly the given tag
func HasTag(item Item, tag string) bool {
	for _, t := range item.ItemTags() {
		if t == tag {
			return true
		}
	}
	return false
}

// ScenarioStatus rolls step outcomes up into a scenario outcome. Any failed
// or undefined step fails the scenario; a scenario with no executed step is
// skipped.
func ScenarioStatus(steps []*Step) Status {
	executed := false
	for _, st := range steps {
		switch st.Status {
		case StatusFailed, StatusUndefined:
			return StatusFailed
		case StatusPassed:
			executed = true
		}
	}
	if !executed {
		return StatusSkipped
	}
	return StatusPassed
}

// FeatureStatus rolls scenario outcomes up into a feature outcome
func FeatureStatus(scenarios []*Scenario) Status {
	executed := false
	for _, sc := range scenarios {
		switch sc.Status {
		case StatusFailed:
			return StatusFailed
		case StatusPassed:
			executed = true
		}
	}
	if !executed {
		return StatusSkipped
	}
	return StatusPassed
}

// ParseStatus maps a runner status string onto a Status. Unknown values are
// returned as-is so callers can decide how to treat them.
func ParseStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}
