package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Kind declares the element kind of a schema field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field is a named schema field with a declared kind.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered set of named fields. A decoded result always
// contains every declared field.
type Schema struct {
	Fields []Field
}

// NewSchema builds a schema from the given fields, preserving order.
func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// promptForm renders the schema in the JSON-schema shape the generator is
// prompted with.
func (s Schema) promptForm() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = map[string]any{"type": string(f.Kind)}
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// defaultValue returns the type-appropriate fallback for a field.
func (f Field) defaultValue() any {
	switch f.Kind {
	case KindArray:
		return []any{}
	case KindObject:
		return map[string]any{}
	case KindBoolean:
		return false
	case KindNumber:
		return float64(0)
	default:
		return fmt.Sprintf("[Could not extract %s from response]", f.Name)
	}
}

// fencedBlockRe matches the first fenced code block, with or without a
// language tag.
var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")

// DecodeStructured decodes possibly malformed generator output against a
// schema. The cascade, in precedence order:
//
//  1. parse the entire response directly
//  2. parse the interior of the first fenced block
//  3. parse the first balanced object or array substring
//  4. structural repair: decreasing-window parse from the first opening
//     brace, synthetically closing unmatched quotes, braces and brackets
//  5. per-field pattern fallback against the raw text
//
// Whatever succeeds, the result is completed so that every schema field is
// present, substituting type-appropriate defaults for anything unresolved.
func DecodeStructured(raw string, schema Schema) map[string]any {
	content := strings.TrimSpace(raw)

	if result := tryParse(content); result != nil {
		return schema.complete(result)
	}

	if m := fencedBlockRe.FindStringSubmatch(content); m != nil {
		if result := tryParse(m[1]); result != nil {
			return schema.complete(result)
		}
	}

	if result := parseBalanced(content); result != nil {
		return schema.complete(result)
	}

	if result := repairTruncated(content); result != nil {
		return schema.complete(result)
	}

	return schema.complete(extractFields(content, schema))
}

// complete fills any missing schema fields with defaults.
func (s Schema) complete(result map[string]any) map[string]any {
	if result == nil {
		result = make(map[string]any, len(s.Fields))
	}
	for _, f := range s.Fields {
		if _, ok := result[f.Name]; !ok {
			result[f.Name] = f.defaultValue()
		}
	}
	return result
}

// tryParse attempts a strict JSON object parse.
func tryParse(s string) map[string]any {
	var result map[string]any
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil
	}
	return result
}

// parseBalanced extracts the widest object substring (first '{' to last '}'),
// falling back to the widest array substring. Nesting errors inside are left
// for the parse attempt to reject.
func parseBalanced(content string) map[string]any {
	if start := strings.IndexByte(content, '{'); start != -1 {
		if end := strings.LastIndexByte(content, '}'); end > start {
			if result := tryParse(content[start : end+1]); result != nil {
				return result
			}
		}
	}
	if start := strings.IndexByte(content, '['); start != -1 {
		if end := strings.LastIndexByte(content, ']'); end > start {
			var arr []any
			if err := json.Unmarshal([]byte(content[start:end+1]), &arr); err == nil {
				return map[string]any{"items": arr}
			}
		}
	}
	return nil
}

// repairWindowStep is how far the repair window shrinks per attempt. Any
// monotonically shrinking suffix strategy satisfies the contract; this one
// steps in fixed chunks and finishes with the minimal viable prefix.
const repairWindowStep = 24

// repairTruncated scans from the first opening brace and, for progressively
// shorter suffixes, closes any unmatched quote and then unmatched
// braces/brackets, accepting the first chunk that parses.
func repairTruncated(content string) map[string]any {
	start := strings.IndexByte(content, '{')
	if start == -1 {
		return nil
	}

	min := start + 2 // "{" plus at least one byte of interior
	if min > len(content) {
		min = len(content)
	}
	for end := len(content); end > min; end -= repairWindowStep {
		if result := tryParse(closeDelimiters(content[start:end])); result != nil {
			return result
		}
	}
	// The stepping may overshoot the shortest window; always finish with
	// the minimal viable prefix.
	return tryParse(closeDelimiters(content[start:min]))
}

// closeDelimiters appends a closing quote if quotes are unbalanced, then
// closing braces and brackets for every unmatched opener.
func closeDelimiters(chunk string) string {
	braces := strings.Count(chunk, "{") - strings.Count(chunk, "}")
	brackets := strings.Count(chunk, "[") - strings.Count(chunk, "]")
	quotes := strings.Count(chunk, `"`) % 2

	var b strings.Builder
	b.WriteString(chunk)
	if quotes != 0 {
		b.WriteByte('"')
	}
	for i := 0; i < braces; i++ {
		b.WriteByte('}')
	}
	for i := 0; i < brackets; i++ {
		b.WriteByte(']')
	}
	return b.String()
}

// extractFields pattern-matches `"field": value` fragments for each schema
// field directly against the raw text.
func extractFields(content string, schema Schema) map[string]any {
	result := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		pattern := fmt.Sprintf(`(?i)"%s"\s*:\s*("[^"]*"|\[[^\]]*\]|\{[^\}]*\}|true|false|null|-?\d+(?:\.\d+)?)`,
			regexp.QuoteMeta(f.Name))
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(m[1]), &value); err != nil {
			value = strings.Trim(m[1], `"`)
		}
		result[f.Name] = value
	}
	return result
}
