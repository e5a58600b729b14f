package models

import (
	"os"
	"regexp"
	"sort"

	"go.uber.org/zap/zapcore"
)

// RedactedValue replaces credential values in API responses.
const RedactedValue = "[redacted]"

var envReference = regexp.MustCompile(`^\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?$`)

// Credentials is the opaque credential bag of a course. A value that is exactly
// $VAR or ${VAR} is read from the process environment.
type Credentials map[string]string

// Get returns the credential value, resolving a whole-value environment
// reference when that variable is set. Any other value is returned verbatim.
func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	v := c[key]
	m := envReference.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	if resolved, ok := os.LookupEnv(m[1]); ok {
		return resolved
	}
	return v
}

// Redacted returns a copy with every value masked.
func (c Credentials) Redacted() Credentials {
	if c == nil {
		return nil
	}
	out := make(Credentials, len(c))
	for k := range c {
		out[k] = RedactedValue
	}
	return out
}

// MarshalLogObject only emits key names so secrets never reach the logs.
func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		enc.AddString(k, RedactedValue)
	}
	return nil
}
