package service

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// PermissionGrant is an immutable IAM policy statement. Actions and resources
// are sets: duplicates are dropped and the members kept sorted, so two grants
// built from the same members compare and serialise identically.
type PermissionGrant struct {
	effect    Effect
	actions   []string
	resources []string
}

// Statement is the IAM JSON shape of a PermissionGrant.
type Statement struct {
	Effect   Effect   `json:"Effect" yaml:"Effect"`
	Action   []string `json:"Action" yaml:"Action"`
	Resource []string `json:"Resource" yaml:"Resource"`
}

func NewPermissionGrant(effect Effect, actions, resources []string) PermissionGrant {
	return PermissionGrant{
		effect:    effect,
		actions:   normalize(actions),
		resources: normalize(resources),
	}
}

// AllowAll grants actions on every resource.
func AllowAll(actions ...string) PermissionGrant {
	return NewPermissionGrant(EffectAllow, actions, []string{"*"})
}

func (g PermissionGrant) Effect() Effect      { return g.effect }
func (g PermissionGrant) Actions() []string   { return slices.Clone(g.actions) }
func (g PermissionGrant) Resources() []string { return slices.Clone(g.resources) }

func (g PermissionGrant) Equal(other PermissionGrant) bool {
	return g.effect == other.effect &&
		slices.Equal(g.actions, other.actions) &&
		slices.Equal(g.resources, other.resources)
}

func (g PermissionGrant) Statement() Statement {
	return Statement{
		Effect:   g.effect,
		Action:   g.Actions(),
		Resource: g.Resources(),
	}
}

func (g PermissionGrant) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Statement())
}

func (g PermissionGrant) MarshalYAML() (interface{}, error) {
	return g.Statement(), nil
}

func (g PermissionGrant) String() string {
	return fmt.Sprintf("%s %s on %s", g.effect, strings.Join(g.actions, ","), strings.Join(g.resources, ","))
}

func (g PermissionGrant) validate() error {
	switch g.effect {
	case EffectAllow, EffectDeny:
	default:
		return fmt.Errorf("effect must be %s or %s, got %q", EffectAllow, EffectDeny, g.effect)
	}
	if len(g.actions) == 0 {
		return fmt.Errorf("no actions")
	}
	if len(g.resources) == 0 {
		return fmt.Errorf("no resources")
	}
	return nil
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func cloneGrants(grants []PermissionGrant) []PermissionGrant {
	if grants == nil {
		return nil
	}
	return slices.Clone(grants)
}
