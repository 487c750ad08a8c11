package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Flag is a boolean toggle parsed from a string so it can come from ${VAR}
// expansion: unset or empty keeps the default, "false" in any case disables,
// anything else enables.
type Flag struct {
	value *bool
}

// NewFlag returns a flag explicitly set to v.
func NewFlag(v bool) Flag { return Flag{value: &v} }

// ParseFlag parses s with the Flag rules.
func ParseFlag(s string) Flag {
	s = strings.TrimSpace(s)
	switch s {
	case "", "~", "null":
		return Flag{}
	}
	return NewFlag(!strings.EqualFold(s, "false"))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	*f = ParseFlag(node.Value)
	return nil
}

// IsSet reports whether the flag was given a value.
func (f Flag) IsSet() bool { return f.value != nil }

// Enabled returns the flag value, or def when unset.
func (f Flag) Enabled(def bool) bool {
	if f.value == nil {
		return def
	}
	return *f.value
}
