package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PermissionKind classifies a method's permission predicate
type PermissionKind string

const (
	PermissionAbsent      PermissionKind = "absent"
	PermissionAlwaysAllow PermissionKind = "allow"
	PermissionAlwaysDeny  PermissionKind = "deny"
	PermissionCustom      PermissionKind = "custom"
)

// Sentinel predicate names used by registry dumps
const (
	PredicateAlwaysAllow = "__return_true"
	PredicateAlwaysDeny  = "__return_false"
)

// Permission is the opaque permission predicate attached to a raw method.
// Only AlwaysAllow and Absent are considered public.
type Permission struct {
	Kind PermissionKind `json:"kind"`
	Ref  string         `json:"ref,omitempty"`
}

// AllowAll returns the always-allow permission
func AllowAll() Permission { return Permission{Kind: PermissionAlwaysAllow, Ref: PredicateAlwaysAllow} }

// DenyAll returns the always-deny permission
func DenyAll() Permission { return Permission{Kind: PermissionAlwaysDeny, Ref: PredicateAlwaysDeny} }

// CustomPermission wraps an opaque predicate reference
func CustomPermission(ref string) Permission { return Permission{Kind: PermissionCustom, Ref: ref} }

// ParsePermission maps a predicate name onto a Permission
func ParsePermission(ref string) Permission {
	switch ref {
	case "":
		return Permission{Kind: PermissionAbsent}
	case PredicateAlwaysAllow:
		return AllowAll()
	case PredicateAlwaysDeny:
		return DenyAll()
	default:
		return CustomPermission(ref)
	}
}

// IsPublic reports whether the predicate lets anonymous callers through
func (p Permission) IsPublic() bool {
	return p.Kind == PermissionAbsent || p.Kind == PermissionAlwaysAllow || p.Kind == ""
}

// ArgSchema is one declared argument of a raw method
type ArgSchema struct {
	Name        string   `json:"name" yaml:"-"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []any    `json:"enum,omitempty" yaml:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinLength   *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// ArgList is an ordered argument schema. It decodes from a YAML or JSON
// mapping of name to schema and keeps the document order.
type ArgList []ArgSchema

// Lookup returns the schema entry with the given name
func (l ArgList) Lookup(name string) (ArgSchema, bool) {
	for _, a := range l {
		if a.Name == name {
			return a, true
		}
	}
	return ArgSchema{}, false
}

// UnmarshalYAML decodes a mapping node, preserving key order
func (l *ArgList) UnmarshalYAML(node *yaml.Node) error {
	// Registry dumps encode an empty args map as []
	if node.Tag == "!!null" || (node.Kind == yaml.SequenceNode && len(node.Content) == 0) {
		*l = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("args: expected mapping, got %v", node.Tag)
	}
	out := make(ArgList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var arg ArgSchema
		if err := node.Content[i+1].Decode(&arg); err != nil {
			return fmt.Errorf("args.%s: %w", node.Content[i].Value, err)
		}
		arg.Name = node.Content[i].Value
		out = append(out, arg)
	}
	*l = out
	return nil
}

// UnmarshalJSON decodes a JSON object, preserving key order
func (l *ArgList) UnmarshalJSON(data []byte) error {
	// yaml.v3 keeps mapping order and accepts JSON
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	if len(node.Content) == 0 {
		*l = nil
		return nil
	}
	return l.UnmarshalYAML(node.Content[0])
}

// MarshalJSON encodes the list back into a JSON object in declaration order
func (l ArgList) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, a := range l {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// RawMethod is one method definition as reported by the registry
type RawMethod struct {
	Callback   string     `json:"callback,omitempty"`
	Permission Permission `json:"permission"`
	Args       ArgList    `json:"args,omitempty"`
}

// RawRoute is one registry entry before normalization. A nil Methods map is
// allowed and normalizes to a route with no methods.
type RawRoute struct {
	Pattern     string               `json:"pattern"`
	Description string               `json:"description,omitempty"`
	Methods     map[string]RawMethod `json:"methods,omitempty"`
}
