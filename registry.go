package sessions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/giantswarm/oauth-sessions/security"
)

// ProviderStore is the registry abstraction the flows resolve configurations
// through. The in-memory Registry is the stock implementation; hosts that
// keep provider configs elsewhere implement this instead.
type ProviderStore interface {
	// Register stores a config under the key's namespace, replacing any
	// previous entry.
	Register(key ProviderKey, cfg *ProviderConfig) error

	// Get returns the config registered for the key's namespace. The
	// returned value is shared with the store; callers must not mutate it.
	Get(key ProviderKey) (*ProviderConfig, error)

	// Has reports whether the key's namespace is registered.
	Has(key ProviderKey) bool

	// Keys lists the registered namespaces, sorted.
	Keys() []string
}

// Registry is the default in-memory ProviderStore. Writes are expected at
// startup; lookups are hot and take only a read lock.
//
// Configs registered without a cipher pair get one derived from the master
// encryption key via HKDF-SHA256, keyed by provider name, so no two
// providers encrypt refresh tokens with the same key.
type Registry struct {
	mu        sync.RWMutex
	configs   map[string]*ProviderConfig
	masterKey []byte
	ciphers   map[string]*security.Encryptor
}

// NewRegistry creates a registry. encryptionKey must be 32 bytes or nil;
// nil disables refresh token encryption at rest.
func NewRegistry(encryptionKey []byte) (*Registry, error) {
	if len(encryptionKey) != 0 && len(encryptionKey) != security.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", security.KeySize, len(encryptionKey))
	}
	return &Registry{
		configs:   make(map[string]*ProviderConfig),
		masterKey: encryptionKey,
		ciphers:   make(map[string]*security.Encryptor),
	}, nil
}

// Register validates and stores a provider config. Registering an existing
// namespace replaces it.
func (r *Registry) Register(key ProviderKey, cfg *ProviderConfig) error {
	if key.Provider == "" {
		return fmt.Errorf("register: provider key has no provider")
	}
	if key.Instance == preserveSegment {
		return fmt.Errorf("register: instance key %q is reserved", preserveSegment)
	}
	if cfg == nil {
		return fmt.Errorf("register %s: config is nil", key.Namespace())
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", key.Namespace(), err)
	}
	if (cfg.Encrypt == nil) != (cfg.Decrypt == nil) {
		return fmt.Errorf("register %s: Encrypt and Decrypt must be set together", key.Namespace())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Encrypt == nil {
		enc, err := r.cipherFor(key.Provider)
		if err != nil {
			return fmt.Errorf("register %s: %w", key.Namespace(), err)
		}
		cfg.Encrypt = enc.Encrypt
		cfg.Decrypt = enc.Decrypt
	}
	r.configs[key.Namespace()] = cfg
	return nil
}

// Get returns the config for the key's namespace.
func (r *Registry) Get(key ProviderKey) (*ProviderConfig, error) {
	r.mu.RLock()
	cfg, ok := r.configs[key.Namespace()]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotRegistered(key.Namespace())
	}
	return cfg, nil
}

// Has reports whether the key's namespace is registered.
func (r *Registry) Has(key ProviderKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[key.Namespace()]
	return ok
}

// Keys lists the registered namespaces, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.configs))
	for k := range r.configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cipherFor returns the provider's derived encryptor, creating it on first
// use. Caller holds the write lock.
func (r *Registry) cipherFor(provider string) (*security.Encryptor, error) {
	if enc, ok := r.ciphers[provider]; ok {
		return enc, nil
	}

	var key []byte
	if len(r.masterKey) > 0 {
		derived, err := security.DeriveKey(r.masterKey, "refresh-token:"+provider)
		if err != nil {
			return nil, fmt.Errorf("derive cipher for provider %q: %w", provider, err)
		}
		key = derived
	}

	enc, err := security.NewEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher for provider %q: %w", provider, err)
	}
	r.ciphers[provider] = enc
	return enc, nil
}
