package policy

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultGrant is one entry of the feature manifest
type DefaultGrant struct {
	FeatureKey string     `yaml:"feature_key"`
	AccessType AccessType `yaml:"access_type"`
}

// Manifest declares the feature grants every newly opened store starts with
type Manifest struct {
	Defaults []DefaultGrant `yaml:"defaults"`
}

// LoadManifest reads and validates a YAML feature manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates manifest bytes
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse feature manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(m.Defaults))
	for i, d := range m.Defaults {
		if d.FeatureKey == "" {
			return nil, fmt.Errorf("feature manifest entry %d: missing feature_key", i)
		}
		if !d.AccessType.Valid() {
			return nil, fmt.Errorf("feature manifest entry %q: %w: %q", d.FeatureKey, ErrInvalidAccessType, d.AccessType)
		}
		if _, dup := seen[d.FeatureKey]; dup {
			return nil, fmt.Errorf("feature manifest entry %q: duplicate feature_key", d.FeatureKey)
		}
		seen[d.FeatureKey] = struct{}{}
	}
	return &m, nil
}

// Apply grants every manifest default on the store
func (m *Manifest) Apply(ctx context.Context, store *Store, storeID string) error {
	for _, d := range m.Defaults {
		if err := store.Grant(ctx, storeID, d.FeatureKey, d.AccessType); err != nil {
			return fmt.Errorf("failed to apply default grant %q: %w", d.FeatureKey, err)
		}
	}
	return nil
}

// Defaulter binds a manifest to a grant store so store provisioning can
// seed new stores without knowing about either.
type Defaulter struct {
	manifest *Manifest
	grants   *Store
}

// NewDefaulter creates a defaulter over the manifest and grant store
func NewDefaulter(manifest *Manifest, grants *Store) *Defaulter {
	return &Defaulter{manifest: manifest, grants: grants}
}

// ApplyDefaults grants the manifest's defaults on the store
func (d *Defaulter) ApplyDefaults(ctx context.Context, storeID string) error {
	return d.manifest.Apply(ctx, d.grants, storeID)
}
