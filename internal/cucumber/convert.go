package cucumber

import (
	"strings"

	"github.com/rocketship-ai/rpbdd/internal/bdd"
)

// Scenario pairs a converted scenario with the after hooks that ran for it
type Scenario struct {
	*bdd.Scenario
	Cleanups []string
}

// Converted is a feature with its scenarios in report order
type Converted struct {
	Feature   *bdd.Feature
	Scenarios []Scenario
}

// Convert maps report features onto the runner model. Background steps are
// folded into the scenario that follows them.
func Convert(features []Feature) []Converted {
	out := make([]Converted, 0, len(features))
	for _, f := range features {
		out = append(out, convertFeature(f))
	}
	return out
}

func convertFeature(f Feature) Converted {
	feature := &bdd.Feature{
		Name:        f.Name,
		Description: descriptionLines(f.Description),
		Tags:        tagNames(f.Tags),
		Location:    bdd.Location{File: f.URI, Line: f.Line},
	}
	c := Converted{Feature: feature}

	var background []*bdd.Step
	for _, el := range f.Elements {
		if el.IsBackground() {
			background = append(background, convertSteps(f.URI, el.Steps)...)
			continue
		}
		sc := convertScenario(f.URI, el, background)
		background = nil
		feature.Scenarios = append(feature.Scenarios, sc.Scenario)
		c.Scenarios = append(c.Scenarios, sc)
	}
	feature.Status = bdd.FeatureStatus(feature.Scenarios)
	return c
}

func convertScenario(uri string, el Element, background []*bdd.Step) Scenario {
	steps := append(background, convertSteps(uri, el.Steps)...)
	sc := &bdd.Scenario{
		Name:        el.Name,
		Description: descriptionLines(el.Description),
		Tags:        tagNames(el.Tags),
		Location:    bdd.Location{File: uri, Line: el.Line},
		Steps:       steps,
		Status:      bdd.ScenarioStatus(steps),
	}
	for _, st := range steps {
		if st.Status == bdd.StatusFailed || st.Status == bdd.StatusUndefined {
			sc.Failure = st.Failure
			break
		}
	}

	// a failed hook fails the scenario even when no step ran
	for _, h := range append(append([]Hook(nil), el.Before...), el.After...) {
		if stepStatus(h.Result.Status) == bdd.StatusFailed {
			sc.Status = bdd.StatusFailed
			if sc.Failure == nil {
				sc.Failure = failure(h.Result.ErrorMessage)
			}
		}
	}

	var cleanups []string
	for _, h := range el.After {
		name := h.Match.Location
		if name == "" {
			name = "after hook"
		}
		cleanups = append(cleanups, name)
	}
	return Scenario{Scenario: sc, Cleanups: cleanups}
}

func convertSteps(uri string, in []Step) []*bdd.Step {
	out := make([]*bdd.Step, 0, len(in))
	for _, s := range in {
		st := &bdd.Step{
			Keyword:  strings.TrimSpace(s.Keyword),
			Name:     s.Name,
			Location: bdd.Location{File: uri, Line: s.Line},
			Status:   stepStatus(s.Result.Status),
		}
		if s.DocString != nil {
			st.Text = s.DocString.Value
		}
		if len(s.Rows) > 0 {
			st.Table = &bdd.Table{Headings: s.Rows[0].Cells}
			for _, r := range s.Rows[1:] {
				st.Table.Rows = append(st.Table.Rows, r.Cells)
			}
		}
		if st.Status == bdd.StatusFailed {
			st.Failure = failure(s.Result.ErrorMessage)
		}
		out = append(out, st)
	}
	return out
}

// stepStatus folds the cucumber result vocabulary into runner statuses
func stepStatus(s string) bdd.Status {
	switch status := bdd.ParseStatus(s); status {
	case "pending":
		return bdd.StatusUndefined
	case "ambiguous":
		return bdd.StatusFailed
	case "":
		return bdd.StatusUntested
	default:
		return status
	}
}

func failure(msg string) *bdd.Failure {
	if msg == "" {
		return &bdd.Failure{}
	}
	exception, _, _ := strings.Cut(msg, "\n")
	return &bdd.Failure{Exception: exception, Trace: msg}
}

func tagNames(tags []Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.TrimPrefix(t.Name, "@"))
	}
	return out
}

// descriptionLines splits a free-text description into trimmed lines,
// dropping leading and trailing blank lines
func descriptionLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		lines = append(lines, strings.TrimSpace(l))
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}
