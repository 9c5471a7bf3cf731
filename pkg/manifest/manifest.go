// Package manifest reads package.json files
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrInvalidManifest indicates a package.json that cannot be used
var ErrInvalidManifest = errors.New("invalid manifest")

// DepotConfig is the "depot" section of a package manifest
type DepotConfig struct {
	Platform string `json:"platform,omitempty"`
	Target   string `json:"target,omitempty"`
	NoServer *bool  `json:"no-server,omitempty"`
}

// WorkspaceConfig is the "depot" section of the workspace root manifest
type WorkspaceConfig struct {
	DepotVersion string `json:"depot_version"`
}

// Manifest is the subset of package.json that depot reads
type Manifest struct {
	Path             string            `json:"-"`
	Name             string            `json:"name"`
	Version          string            `json:"version,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
	Scripts          map[string]string `json:"scripts,omitempty"`
	Depot            *DepotConfig      `json:"depot,omitempty"`
}

// Load reads and parses the manifest at path
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes a package manifest
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidManifest)
	}
	if m.Depot == nil {
		m.Depot = &DepotConfig{}
	}
	return &m, nil
}

// DependencyNames returns the sorted union of runtime, development and
// peer dependency names
func (m *Manifest) DependencyNames() []string {
	seen := make(map[string]struct{})
	for _, deps := range []map[string]string{m.Dependencies, m.DevDependencies, m.PeerDependencies} {
		for name := range deps {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NoServer reports whether a site should be built instead of served in
// watch mode
func (m *Manifest) NoServer() bool {
	return m.Depot != nil && m.Depot.NoServer != nil && *m.Depot.NoServer
}

// WorkspaceManifest is the root package.json of a workspace
type WorkspaceManifest struct {
	Path  string           `json:"-"`
	Name  string           `json:"name,omitempty"`
	Depot *WorkspaceConfig `json:"depot,omitempty"`
}

// LoadWorkspace reads the workspace root manifest. Unlike package
// manifests, the root manifest may omit a name.
func LoadWorkspace(path string) (*WorkspaceManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace manifest: %w", err)
	}

	var m WorkspaceManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrInvalidManifest, err)
	}
	m.Path = path
	return &m, nil
}

// DepotVersion returns the depot version the workspace was created with,
// or "" if it does not record one
func (m *WorkspaceManifest) DepotVersion() string {
	if m.Depot == nil {
		return ""
	}
	return m.Depot.DepotVersion
}
