package experiments

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subject is the case-insensitive bag of named parameters a caller
// passes when evaluating an experiment: identity (user_id, user_name,
// user_created), content (content_id, content_type, subreddit,
// subdomain), and request-scoped targeting attributes (url_flags,
// url_features, oauth_client, user_flags, logged_in).
//
// Keys are lower-cased once, at construction time, so providers never
// need to re-normalize them. Values are passed through as-is; providers
// are responsible for coercing them to the type they expect.
type Subject map[string]interface{}

// NewSubject builds a Subject from a caller-supplied kwargs map,
// lower-casing every key.
func NewSubject(kwargs map[string]interface{}) Subject {
	s := make(Subject, len(kwargs))
	for k, v := range kwargs {
		s[strings.ToLower(k)] = v
	}
	return s
}

// Has reports whether key is present in the subject, regardless of
// value (including an explicit nil).
func (s Subject) Has(key string) bool {
	_, ok := s[strings.ToLower(key)]
	return ok
}

// String returns the string value for key. It reports false if the key
// is absent, nil, or not a string.
func (s Subject) String(key string) (string, bool) {
	v, ok := s[strings.ToLower(key)]
	if !ok || v == nil {
		return "", false
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}

// Bool returns the bool value for key, defaulting to false if absent or
// not a bool.
func (s Subject) Bool(key string) (bool, bool) {
	v, ok := s[strings.ToLower(key)]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Int64 returns the value for key coerced to an epoch-seconds integer.
// It accepts ints, int64s, float64s (as decoded from JSON numbers), and
// json.Number.
func (s Subject) Int64(key string) (int64, bool) {
	v, ok := s[strings.ToLower(key)]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, err := n.Float64()
			if err != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	default:
		return 0, false
	}
}

// Values returns the value(s) stored at key as a slice, lifting a bare
// scalar into a single-element slice. It reports false if the key is
// absent.
func (s Subject) Values(key string) ([]interface{}, bool) {
	v, ok := s[strings.ToLower(key)]
	if !ok {
		return nil, false
	}
	switch vv := v.(type) {
	case []interface{}:
		return vv, true
	case []string:
		out := make([]interface{}, len(vv))
		for i, item := range vv {
			out[i] = item
		}
		return out, true
	default:
		return []interface{}{v}, true
	}
}

// Strings returns the value(s) stored at key as a slice of strings,
// lifting a bare scalar into a single-element slice and skipping any
// values that aren't strings.
func (s Subject) Strings(key string) ([]string, bool) {
	values, ok := s.Values(key)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if str, ok := v.(string); ok && str != "" {
			out = append(out, str)
		}
	}
	return out, true
}

// scalarEqual compares two loosely-typed scalars for equality, folding
// string comparisons to lower-case. Non-string scalars are compared via
// their default formatting, which is sufficient for the bool and
// json.Number values that targeting configuration and kwargs carry.
func scalarEqual(a, b interface{}) bool {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.EqualFold(as, bs)
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
