package subst

import (
	"strings"
	"testing"
)

func TestSubstitute(t *testing.T) {
	row := map[string]string{"col_title": "Cozy Nooks", "cta": "read more"}
	mapping := map[string]string{"title": "col_title"}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"mapped field", "{{title}}", "Cozy Nooks"},
		{"unmapped field becomes empty", "{{cta}}", ""},
		{"missing field becomes empty", "before {{nope}} after", "before  after"},
		{"whitespace inside braces", "{{ title }}", "Cozy Nooks"},
		{"multiple occurrences", "{{title}} / {{title}}", "Cozy Nooks / Cozy Nooks"},
		{"no placeholders untouched", "plain text", "plain text"},
		{"single braces untouched", "{title}", "{title}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Substitute(tc.in, row, mapping); got != tc.want {
				t.Errorf("Substitute(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// Substitution is total: whatever the inputs, no {{field}} token survives.
func TestSubstituteLeavesNoPlaceholders(t *testing.T) {
	inputs := []string{
		"{{a}}{{b}}{{c}}",
		"{{missing}}",
		"x {{ spaced-name }} y {{under_score}} z {{dotted.name}}",
	}
	for _, in := range inputs {
		got := Substitute(in, nil, nil)
		if HasPlaceholders(got) {
			t.Errorf("Substitute(%q) = %q still contains a placeholder", in, got)
		}
	}
}

func TestSubstituteNilMaps(t *testing.T) {
	if got := Substitute("{{x}}", nil, nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestDynamicValue(t *testing.T) {
	row := map[string]string{"colA": "via mapping", "field": "direct"}
	mapping := map[string]string{"field2": "colA", "broken": "no_such_column"}

	if v, ok := DynamicValue("field2", row, mapping); !ok || v != "via mapping" {
		t.Errorf("mapped lookup = (%q, %v)", v, ok)
	}
	// Strict: an unmapped field never reads the row directly.
	if _, ok := DynamicValue("field", row, mapping); ok {
		t.Error("expected miss for unmapped field even with a matching column")
	}
	if _, ok := DynamicValue("broken", row, mapping); ok {
		t.Error("expected miss for mapping to absent column")
	}
	if _, ok := DynamicValue("absent", row, mapping); ok {
		t.Error("expected miss")
	}
}

func TestColumnValue(t *testing.T) {
	row := map[string]string{"colA": "via mapping", "field": "direct"}
	mapping := map[string]string{"field2": "colA", "broken": "no_such_column"}

	if v, ok := ColumnValue("field2", row, mapping); !ok || v != "via mapping" {
		t.Errorf("mapped lookup = (%q, %v)", v, ok)
	}
	// Unmapped fields fall back to the field name as a column.
	if v, ok := ColumnValue("field", row, mapping); !ok || v != "direct" {
		t.Errorf("column fallback = (%q, %v)", v, ok)
	}
	// A mapping to a missing column is a miss; the fallback is only for
	// fields the mapping does not mention at all.
	if _, ok := ColumnValue("broken", row, mapping); ok {
		t.Error("expected miss for mapping to absent column")
	}
	if _, ok := ColumnValue("absent", row, mapping); ok {
		t.Error("expected miss")
	}
}

func TestApplyTextTransform(t *testing.T) {
	cases := []struct {
		mode, in, want string
	}{
		{"uppercase", "Hello World", "HELLO WORLD"},
		{"lowercase", "Hello World", "hello world"},
		{"capitalize", "hello world", "Hello World"},
		{"capitalize", "10 cozy nooks", "10 Cozy Nooks"},
		{"capitalize", "foo-bar baz", "Foo-Bar Baz"},
		{"none", "Hello World", "Hello World"},
		{"", "Hello World", "Hello World"},
		{"bogus", "Hello World", "Hello World"},
	}
	for _, tc := range cases {
		if got := ApplyTextTransform(tc.in, tc.mode); got != tc.want {
			t.Errorf("ApplyTextTransform(%q, %q) = %q, want %q", tc.in, tc.mode, got, tc.want)
		}
	}
}

func TestHasPlaceholders(t *testing.T) {
	if !HasPlaceholders("x {{y}} z") {
		t.Error("expected true")
	}
	if HasPlaceholders("x {y} z") || HasPlaceholders(strings.Repeat("{", 4)) {
		t.Error("expected false")
	}
}
