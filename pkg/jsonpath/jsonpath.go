// Package jsonpath evaluates simple JSONPath expressions ($.a.b[0]) with gjson.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Lookup evaluates path against doc. The boolean is false when the path does
// not exist.
func Lookup(doc []byte, path string) (gjson.Result, bool) {
	result := gjson.GetBytes(doc, ToGjson(path))
	return result, result.Exists()
}

// Extract returns the value at path as a string. JSON null is returned as
// "null".
func Extract(doc []byte, path string) (string, error) {
	if len(doc) == 0 {
		return "", fmt.Errorf("empty JSON document")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}
	if !gjson.ValidBytes(doc) {
		return "", fmt.Errorf("invalid JSON document")
	}

	result, ok := Lookup(doc, path)
	if !ok {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ToGjson converts a JSONPath expression to gjson path syntax:
// $.users[0].name becomes users.0.name, $['a b'] becomes a b.
// Paths without a leading $ are assumed to already be gjson paths.
func ToGjson(path string) string {
	if !strings.HasPrefix(path, "$") {
		return path
	}

	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}

	var (
		sb    strings.Builder
		parts []string
	)
	flush := func() {
		if sb.Len() > 0 {
			parts = append(parts, sb.String())
			sb.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				sb.WriteString(path[i+1:])
				i = len(path)
				continue
			}
			key := strings.Trim(path[i+1:i+end], `'"`)
			parts = append(parts, escape(key))
			i += end
		default:
			sb.WriteByte(c)
		}
	}
	flush()

	if len(parts) == 0 {
		return "@this"
	}
	return strings.Join(parts, ".")
}

// escape quotes gjson path metacharacters in a bracketed key.
func escape(key string) string {
	var sb strings.Builder
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(key[i])
	}
	return sb.String()
}
