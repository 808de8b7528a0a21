package policy

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed allowlist.yaml
var allowlistYAML []byte

// AllowList is the versioned set of content fields a business operator may
// write. It is the single source of truth: the engine enforces it and the API
// exposes it read-only so client forms stay in sync.
type AllowList struct {
	Version int      `yaml:"version"`
	Fields  []string `yaml:"fields"`

	set map[string]bool
}

// LoadAllowList parses the embedded allow-list definition.
func LoadAllowList() (*AllowList, error) {
	var al AllowList
	if err := yaml.Unmarshal(allowlistYAML, &al); err != nil {
		return nil, fmt.Errorf("parse allowlist: %w", err)
	}
	if al.Version <= 0 {
		return nil, fmt.Errorf("allowlist version must be positive")
	}
	if len(al.Fields) == 0 {
		return nil, fmt.Errorf("allowlist has no fields")
	}
	al.set = make(map[string]bool, len(al.Fields))
	for _, f := range al.Fields {
		al.set[f] = true
	}
	return &al, nil
}

// Permits reports whether field may be written by a business operator.
func (a *AllowList) Permits(field string) bool {
	return a.set[field]
}
