// Package subst implements dynamic field substitution: {{field}} placeholder
// replacement through a field mapping plus row data, and post-substitution
// text transforms. All functions are pure and total — a missing field becomes
// an empty string, never an error and never a leftover placeholder.
package subst

import (
	"regexp"
	"strings"
	"unicode"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Substitute replaces every {{field}} occurrence in text. Each field name is
// resolved through fieldMapping to a column name, then through rowData to a
// value; if either lookup misses, the placeholder becomes the empty string.
func Substitute(text string, rowData, fieldMapping map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		field := placeholderRe.FindStringSubmatch(m)[1]
		v, _ := DynamicValue(field, rowData, fieldMapping)
		return v
	})
}

// DynamicValue resolves one dynamic field name strictly: the mapping gives
// the column name and the row gives the value. Either lookup missing is a
// miss — text substitution renders unmapped fields as empty strings.
func DynamicValue(field string, rowData, fieldMapping map[string]string) (string, bool) {
	column, ok := fieldMapping[field]
	if !ok {
		return "", false
	}
	v, ok := rowData[column]
	return v, ok
}

// ColumnValue resolves like DynamicValue, but an unmapped field name is tried
// directly as a row column. Image dynamic sources use this, so templates
// without an explicit mapping still pick up matching CSV headers.
func ColumnValue(field string, rowData, fieldMapping map[string]string) (string, bool) {
	if v, ok := DynamicValue(field, rowData, fieldMapping); ok {
		return v, true
	}
	if _, mapped := fieldMapping[field]; !mapped {
		if v, ok := rowData[field]; ok {
			return v, true
		}
	}
	return "", false
}

// HasPlaceholders reports whether text contains at least one {{field}} token.
func HasPlaceholders(text string) bool {
	return placeholderRe.MatchString(text)
}

// ApplyTextTransform applies a case transform. Transforms run after
// substitution so they affect substituted values too.
func ApplyTextTransform(text, mode string) string {
	switch mode {
	case "uppercase":
		return strings.ToUpper(text)
	case "lowercase":
		return strings.ToLower(text)
	case "capitalize":
		return capitalizeWords(text)
	default:
		return text
	}
}

// capitalizeWords uppercases the first letter at every word boundary.
func capitalizeWords(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	atBoundary := true
	for _, r := range text {
		if atBoundary && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
			atBoundary = false
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			atBoundary = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
