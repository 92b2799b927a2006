package agent

import (
	"os"
	"runtime"
	"strings"

	"github.com/rocketship-ai/rpbdd/internal/bdd"
	"github.com/rocketship-ai/rpbdd/internal/reportportal"
)

// Tag prefixes that carry structured data and are never reported verbatim
const (
	attributeTagPrefix  = "attribute"
	fixtureTagPrefix    = "fixture"
	testCaseIDTagPrefix = "test_case_id"
)

var reservedTagPrefixes = []string{attributeTagPrefix, fixtureTagPrefix, testCaseIDTagPrefix}

// DeriveAttributes turns item tags into remote attributes. Ordinary tags
// become value-only attributes; attribute(...) tags contribute their entries,
// which may be written as key:value.
func DeriveAttributes(tags []string) []reportportal.Attribute {
	var attrs []reportportal.Attribute
	for _, tag := range tags {
		if hasReservedPrefix(tag) {
			continue
		}
		attrs = append(attrs, reportportal.Attribute{Value: tag})
	}
	return append(attrs, GenAttributes(AttributesFromTags(tags))...)
}

func hasReservedPrefix(tag string) bool {
	for _, p := range reservedTagPrefixes {
		if strings.HasPrefix(tag, p) {
			return true
		}
	}
	return false
}

// AttributesFromTags collects the comma separated entries of every
// attribute(...) tag. Tags without a parenthesized argument are ignored.
func AttributesFromTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		if !strings.HasPrefix(tag, attributeTagPrefix) {
			continue
		}
		inner, ok := tagArgument(tag)
		if !ok {
			continue
		}
		for _, part := range strings.Split(inner, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GenAttributes converts "key:value" or "value" strings into attributes.
// Only the first colon separates the key.
func GenAttributes(raw []string) []reportportal.Attribute {
	var attrs []reportportal.Attribute
	for _, s := range raw {
		key, value, ok := strings.Cut(s, ":")
		if !ok {
			attrs = append(attrs, reportportal.Attribute{Value: strings.TrimSpace(s)})
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" {
			attrs = append(attrs, reportportal.Attribute{Value: value})
			continue
		}
		attrs = append(attrs, reportportal.Attribute{Key: key, Value: value})
	}
	return attrs
}

// TestCaseID returns the argument of the first test_case_id(...) tag, or an
// empty string
func TestCaseID(tags []string) string {
	for _, tag := range tags {
		if !strings.HasPrefix(tag, testCaseIDTagPrefix+"(") {
			continue
		}
		id, _ := tagArgument(tag)
		return id
	}
	return ""
}

// tagArgument returns the text between the first "(" and the first ")"
func tagArgument(tag string) (string, bool) {
	start := strings.Index(tag, "(")
	end := strings.Index(tag, ")")
	if start < 0 || end < 0 || end <= start+1 {
		return "", false
	}
	return tag[start+1 : end], true
}

// fixtureNames lists the fixtures an item requests via fixture.<name> tags
func fixtureNames(item bdd.Item) []string {
	var names []string
	for _, tag := range item.ItemTags() {
		if name, ok := strings.CutPrefix(tag, fixtureTagPrefix+"."); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (a *Agent) launchAttributes() []reportportal.Attribute {
	attrs := GenAttributes(a.cfg.LaunchAttributes)
	return append(attrs, systemAttributes(a.version)...)
}

func systemAttributes(version string) []reportportal.Attribute {
	machine, err := os.Hostname()
	if err != nil || machine == "" {
		machine = "unknown"
	}
	return []reportportal.Attribute{
		{Key: "os", Value: runtime.GOOS, System: true},
		{Key: "cpu", Value: runtime.GOARCH, System: true},
		{Key: "machine", Value: machine, System: true},
		{Key: "interpreter", Value: "Go " + strings.TrimPrefix(runtime.Version(), "go"), System: true},
		{Key: "agent", Value: Name + "|" + version, System: true},
	}
}
