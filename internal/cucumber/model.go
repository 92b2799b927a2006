package cucumber

import (
	"encoding/json"
	"fmt"
)

// Feature is one feature entry of a cucumber JSON report
type Feature struct {
	URI         string    `json:"uri"`
	ID          string    `json:"id"`
	Keyword     string    `json:"keyword"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Line        int       `json:"line"`
	Tags        []Tag     `json:"tags"`
	Elements    []Element `json:"elements"`
}

// Element is a scenario or background
type Element struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Keyword     string `json:"keyword"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Line        int    `json:"line"`
	Tags        []Tag  `json:"tags"`
	Before      []Hook `json:"before"`
	After       []Hook `json:"after"`
	Steps       []Step `json:"steps"`
}

type Tag struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

type Hook struct {
	Match  Match  `json:"match"`
	Result Result `json:"result"`
}

type Match struct {
	Location string `json:"location"`
}

type Step struct {
	Keyword   string     `json:"keyword"`
	Name      string     `json:"name"`
	Line      int        `json:"line"`
	DocString *DocString `json:"doc_string,omitempty"`
	Rows      []TableRow `json:"rows,omitempty"`
	Match     Match      `json:"match"`
	Result    Result     `json:"result"`
}

type DocString struct {
	Value       string `json:"value"`
	ContentType string `json:"content_type"`
	Line        int    `json:"line"`
}

type TableRow struct {
	Cells []string `json:"cells"`
}

// Result is the outcome of a step or hook. Duration is in nanoseconds.
type Result struct {
	Status       string  `json:"status"`
	Duration     float64 `json:"duration"`
	ErrorMessage string  `json:"error_message"`
}

// IsBackground reports whether the element is a background block
func (e Element) IsBackground() bool {
	return e.Type == "background"
}

// Parse validates and decodes a cucumber JSON report
func Parse(data []byte) ([]Feature, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var features []Feature
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return features, nil
}
