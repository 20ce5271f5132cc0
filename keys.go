package sessions

import (
	"fmt"
	"strings"
)

// preserveSegment is the reserved trailing segment of a provider key string.
// Because it flags login behavior it can never be used as an instance key.
const preserveSegment = "preserve"

// ProviderKey identifies a registered provider configuration and, optionally,
// one logical instance of it (for example one per-tenant OAuth application).
//
// String forms accepted by ParseProviderKey and produced by String:
//
//	clio                   the provider's global configuration
//	clio:acme              instance "acme" of provider "clio"
//	clio:acme:preserve     same identity; a login keeps sibling sessions
//
// Preserve only affects cookie cleanup during login. It is not part of the
// identity used for registry lookups or cookie namespaces.
type ProviderKey struct {
	Provider string
	Instance string
	Preserve bool
}

// ParseProviderKey parses the string form of a provider key.
// Parsing and String are mutually inverse.
func ParseProviderKey(s string) (ProviderKey, error) {
	if s == "" {
		return ProviderKey{}, fmt.Errorf("provider key is empty")
	}

	parts := strings.Split(s, ":")
	key := ProviderKey{}
	if parts[len(parts)-1] == preserveSegment {
		key.Preserve = true
		parts = parts[:len(parts)-1]
	}

	switch len(parts) {
	case 0:
		// s was only the reserved segment; caught by the empty-provider check
	case 1:
		key.Provider = parts[0]
	case 2:
		key.Provider = parts[0]
		key.Instance = parts[1]
	default:
		return ProviderKey{}, fmt.Errorf("provider key %q has too many segments", s)
	}

	if key.Provider == "" {
		return ProviderKey{}, fmt.Errorf("provider key %q has an empty provider segment", s)
	}
	if len(parts) == 2 && key.Instance == "" {
		return ProviderKey{}, fmt.Errorf("provider key %q has an empty instance segment", s)
	}
	if key.Instance == preserveSegment {
		return ProviderKey{}, fmt.Errorf("instance key %q is reserved", preserveSegment)
	}
	return key, nil
}

// String renders the key back to its string form.
func (k ProviderKey) String() string {
	s := k.Provider
	if k.Instance != "" {
		s += ":" + k.Instance
	}
	if k.Preserve {
		s += ":" + preserveSegment
	}
	return s
}

// Namespace returns the cookie namespace for this key: the provider name,
// or provider:instance for instance-scoped keys. The preserve flag never
// appears in a namespace.
func (k ProviderKey) Namespace() string {
	if k.Instance != "" {
		return k.Provider + ":" + k.Instance
	}
	return k.Provider
}

// WithoutPreserve returns the bare identity of the key.
func (k ProviderKey) WithoutPreserve() ProviderKey {
	k.Preserve = false
	return k
}
