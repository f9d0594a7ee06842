package domain

import (
	"slices"
	"strings"
)

// Capability names a mutating action an invocation may be forbidden from
// performing. Names are compared case-insensitively.
type Capability string

const (
	CapabilityWrite  Capability = "write"
	CapabilityEdit   Capability = "edit"
	CapabilityBash   Capability = "bash"
	CapabilityDelete Capability = "delete"
)

// Is reports whether c and other name the same capability.
func (c Capability) Is(other Capability) bool {
	return strings.EqualFold(string(c), string(other))
}

// writeCapable lists the capabilities that can change the workspace.
var writeCapable = []Capability{CapabilityWrite, CapabilityEdit, CapabilityBash, CapabilityDelete}

// PolicyKind tags the AccessPolicy variant.
type PolicyKind int

const (
	PolicyUnrestricted PolicyKind = iota
	PolicyReadOnly
	PolicyDenyList
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyReadOnly:
		return "read-only"
	case PolicyDenyList:
		return "deny-list"
	default:
		return "unrestricted"
	}
}

// AccessPolicy is the capability policy an agent runs under. It is one of
// Unrestricted, ReadOnly or DenyList(caps); the zero value is Unrestricted.
type AccessPolicy struct {
	kind PolicyKind
	deny []Capability
}

// Unrestricted returns a policy that denies nothing.
func Unrestricted() AccessPolicy { return AccessPolicy{} }

// ReadOnly returns a policy that forbids every mutating action.
func ReadOnly() AccessPolicy { return AccessPolicy{kind: PolicyReadOnly} }

// DenyList returns a policy forbidding the given capabilities. Names are
// trimmed and de-duplicated case-insensitively in first-seen order; the
// original spelling is kept. An empty list yields Unrestricted.
func DenyList(caps ...Capability) AccessPolicy {
	var deny []Capability
	for _, c := range caps {
		n := Capability(strings.TrimSpace(string(c)))
		if n == "" || slices.ContainsFunc(deny, n.Is) {
			continue
		}
		deny = append(deny, n)
	}
	if len(deny) == 0 {
		return Unrestricted()
	}
	return AccessPolicy{kind: PolicyDenyList, deny: deny}
}

// PolicyFromConfig builds a policy from the two descriptor forms an agent
// config may carry. readOnly wins over a deny list.
func PolicyFromConfig(denyTools []string, readOnly bool) AccessPolicy {
	if readOnly {
		return ReadOnly()
	}
	caps := make([]Capability, 0, len(denyTools))
	for _, t := range denyTools {
		caps = append(caps, Capability(t))
	}
	return DenyList(caps...)
}

// Kind returns the variant tag.
func (p AccessPolicy) Kind() PolicyKind { return p.kind }

// Denied returns a copy of the denied capabilities for a DenyList policy.
func (p AccessPolicy) Denied() []Capability {
	if p.kind != PolicyDenyList {
		return nil
	}
	return slices.Clone(p.deny)
}

// Restricted reports whether the policy forbids anything at all.
func (p AccessPolicy) Restricted() bool { return p.kind != PolicyUnrestricted }

// DeniesWrites reports whether any workspace-mutating action is forbidden.
func (p AccessPolicy) DeniesWrites() bool {
	switch p.kind {
	case PolicyReadOnly:
		return true
	case PolicyDenyList:
		for _, c := range p.deny {
			if slices.ContainsFunc(writeCapable, c.Is) {
				return true
			}
		}
	}
	return false
}

func (p AccessPolicy) String() string {
	if p.kind == PolicyDenyList {
		names := make([]string, len(p.deny))
		for i, c := range p.deny {
			names[i] = string(c)
		}
		return "deny[" + strings.Join(names, ",") + "]"
	}
	return p.kind.String()
}
