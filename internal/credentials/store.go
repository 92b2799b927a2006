package credentials

import (
	"context"
	"strings"
	"time"
)

// Credential is an API key saved for one ReportPortal endpoint
type Credential struct {
	Endpoint string    `json:"endpoint"`
	APIKey   string    `json:"api_key"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store persists API keys per endpoint
type Store interface {
	Save(ctx context.Context, cred *Credential) error
	// Get returns nil without error when nothing is stored for the endpoint
	Get(ctx context.Context, endpoint string) (*Credential, error)
	Delete(ctx context.Context, endpoint string) error
}

// normalizeEndpoint makes "https://rp/" and "https://rp" share a key
func normalizeEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

// LookupKey returns the stored API key for endpoint, or an empty string
func LookupKey(ctx context.Context, s Store, endpoint string) (string, error) {
	if s == nil || normalizeEndpoint(endpoint) == "" {
		return "", nil
	}
	cred, err := s.Get(ctx, endpoint)
	if err != nil || cred == nil {
		return "", err
	}
	return cred.APIKey, nil
}
