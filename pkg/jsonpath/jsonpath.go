// Package jsonpath evaluates JSONPath-style expressions against JSON
// documents by converting them to gjson syntax. It supports the subset
// of JSONPath that scenario extraction needs: dot notation, bracket
// notation, the [*] array wildcard, and $..name recursive descent.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract returns the first value matched by a JSONPath expression.
// It returns an error if the path matches nothing.
func Extract(json string, path string) (string, error) {
	if json == "" {
		return "", fmt.Errorf("empty JSON string")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}

	values, err := ExtractAll(json, path)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", fmt.Errorf("path not found: %s", path)
	}
	return values[0], nil
}

// ExtractAll returns every value matched by a JSONPath expression, in
// document order. Zero matches is not an error: the caller decides what
// an empty result means. Scalar results come back as their string form,
// null as "null", and object/array results as raw JSON.
func ExtractAll(json string, path string) ([]string, error) {
	if json == "" {
		return nil, fmt.Errorf("empty JSON string")
	}
	if path == "" {
		return nil, fmt.Errorf("empty JSONPath expression")
	}

	// Recursive descent: $..name collects the value of every field
	// called name anywhere in the document.
	if name, ok := deepScanTarget(path); ok {
		if !gjson.Valid(json) {
			return nil, fmt.Errorf("invalid JSON")
		}
		var values []string
		collectDeep(gjson.Parse(json), name, &values)
		return values, nil
	}

	gpath := convertToGjsonPath(path)
	result := gjson.Get(json, gpath)
	if !result.Exists() {
		return nil, nil
	}

	// A path through [*] yields a gjson array of matches; flatten it.
	if strings.Contains(path, "[*]") && result.IsArray() {
		var values []string
		result.ForEach(func(_, value gjson.Result) bool {
			values = append(values, resultString(value))
			return true
		})
		return values, nil
	}

	return []string{resultString(result)}, nil
}

// deepScanTarget reports whether path is a plain recursive descent
// ($..name) and returns the field name if so.
func deepScanTarget(path string) (string, bool) {
	if !strings.HasPrefix(path, "$..") {
		return "", false
	}
	name := strings.TrimPrefix(path, "$..")
	if name == "" || strings.ContainsAny(name, ".[]") {
		return "", false
	}
	return name, true
}

// collectDeep walks the document depth-first, appending the value of
// every field named name.
func collectDeep(node gjson.Result, name string, out *[]string) {
	switch {
	case node.IsObject():
		node.ForEach(func(key, value gjson.Result) bool {
			if key.String() == name {
				*out = append(*out, resultString(value))
			}
			collectDeep(value, name, out)
			return true
		})
	case node.IsArray():
		node.ForEach(func(_, value gjson.Result) bool {
			collectDeep(value, name, out)
			return true
		})
	}
}

// resultString renders a gjson result the way extraction consumers
// expect: null stays visible as "null", everything else is the value's
// string form (raw JSON for objects and arrays).
func resultString(result gjson.Result) string {
	if result.Type == gjson.Null {
		return "null"
	}
	return result.String()
}

// convertToGjsonPath converts a JSONPath expression to gjson path
// format:
//
//	JSONPath: $.users[*].username   gjson: users.#.username
//	JSONPath: $.users[0].name       gjson: users.0.name
//	JSONPath: $['users'][0]         gjson: users.0
func convertToGjsonPath(path string) string {
	if path == "$" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}
	path = strings.TrimPrefix(path, ".")

	// The [*] wildcard becomes gjson's # array iterator. This must
	// happen before the generic bracket rewrite below.
	path = strings.ReplaceAll(path, "[*]", ".#")

	// Bracket notation with quotes: ['name'] / ["name"].
	path = strings.ReplaceAll(path, "['", ".")
	path = strings.ReplaceAll(path, "']", "")
	path = strings.ReplaceAll(path, `["`, ".")
	path = strings.ReplaceAll(path, `"]`, "")

	// Remaining array indexing: [n] -> .n.
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")

	// Collapse artifacts of the rewrites above.
	path = strings.ReplaceAll(path, "..", ".")
	path = strings.Trim(path, ".")

	return path
}
