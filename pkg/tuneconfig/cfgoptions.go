/*
Copyright 2023 The MLTune Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tuneconfig

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseCfgOptions turns "key=value" override tokens into a dotted-key map.
// Values support scalar literals (int, float, bool, None), comma-separated
// lists ("a,b" or "[a,b]") and nested list/tuple literals ("[(a,b),(c,d)]").
// Tuples are represented as lists after parsing. No whitespace is allowed
// inside values; quotation marks around a whole value are stripped.
func ParseCfgOptions(pairs []string) (map[string]interface{}, error) {
	overrides := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, errors.Errorf("invalid override %q, expected key=value", pair)
		}
		value, err := ParseValue(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid override %q", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}

// ParseValue parses a single override value literal.
func ParseValue(raw string) (interface{}, error) {
	raw = stripQuotes(raw)

	if isBracketed(raw) {
		return parseSequence(raw[1 : len(raw)-1])
	}
	if containsTopLevelComma(raw) {
		return parseSequence(raw)
	}
	return parseScalar(raw), nil
}

func parseSequence(inner string) ([]interface{}, error) {
	items, err := splitTopLevel(inner)
	if err != nil {
		return nil, err
	}
	seq := make([]interface{}, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		v, err := ParseValue(item)
		if err != nil {
			return nil, err
		}
		seq = append(seq, v)
	}
	return seq, nil
}

func parseScalar(raw string) interface{} {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch raw {
	case "true", "True":
		return true
	case "false", "False":
		return false
	case "None", "none", "null":
		return nil
	}
	return raw
}

func isBracketed(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '[' && s[len(s)-1] == ']') || (s[0] == '(' && s[len(s)-1] == ')')
}

func stripQuotes(s string) string {
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		return s[1 : len(s)-1]
	}
	return s
}

func containsTopLevelComma(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case ',':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// splitTopLevel splits on commas that are not nested inside brackets.
func splitTopLevel(s string) ([]string, error) {
	var items []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth < 0 {
				return nil, errors.Errorf("unbalanced brackets in %q", s)
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.Errorf("unbalanced brackets in %q", s)
	}
	items = append(items, strings.TrimSpace(s[start:]))
	return items, nil
}
