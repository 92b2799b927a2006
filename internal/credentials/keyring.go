package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "rpbdd"

// KeyringStore implements Store using the system keyring
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed store
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService}
}

// NewKeyringStoreWithService creates a keyring-backed store under a custom
// service name
func NewKeyringStoreWithService(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// Save stores a credential in the keyring
func (k *KeyringStore) Save(ctx context.Context, cred *Credential) error {
	endpoint := normalizeEndpoint(cred.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	stored := *cred
	stored.Endpoint = endpoint

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := keyring.Set(k.service, endpoint, string(data)); err != nil {
		return fmt.Errorf("failed to save credential to keyring: %w", err)
	}

	return nil
}

// Get retrieves the credential for endpoint from the keyring
func (k *KeyringStore) Get(ctx context.Context, endpoint string) (*Credential, error) {
	data, err := keyring.Get(k.service, normalizeEndpoint(endpoint))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credential from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &cred, nil
}

// Delete removes the credential for endpoint from the keyring
func (k *KeyringStore) Delete(ctx context.Context, endpoint string) error {
	err := keyring.Delete(k.service, normalizeEndpoint(endpoint))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete credential from keyring: %w", err)
	}
	return nil
}
