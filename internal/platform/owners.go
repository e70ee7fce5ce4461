package platform

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Owners resolves the principal responsible for a platform object. Explicit
// overrides win over the creator identity recorded in the snapshot; when
// neither is known the default admin, if any, is used. A miss resolves to an
// empty owner and planning carries on.
type Owners struct {
	catalog      *Catalog
	overrides    map[string]map[string]string
	defaultAdmin string
}

// NewOwners returns an owner lookup over the given catalog.
func NewOwners(catalog *Catalog, defaultAdmin string) *Owners {
	return &Owners{
		catalog:      catalog,
		overrides:    make(map[string]map[string]string),
		defaultAdmin: defaultAdmin,
	}
}

// LoadOverrides reads an overrides file: a YAML mapping of object type to
// object id to principal.
//
//	cluster:
//	  "cluster-123": "eve@corp.com"
//	job:
//	  "1234": "mallory@corp.com"
func (o *Owners) LoadOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading owner overrides: %w", err)
	}
	var parsed map[string]map[string]string
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parsing owner overrides %s: %w", path, err)
	}
	for objectType, entries := range parsed {
		key := strings.ToLower(objectType)
		if o.overrides[key] == nil {
			o.overrides[key] = make(map[string]string)
		}
		for id, principal := range entries {
			o.overrides[key][id] = principal
		}
	}
	return nil
}

// Owner resolves the owner of an object by type and id. Unknown objects
// resolve to the default admin, which may be empty.
func (o *Owners) Owner(objectType, objectID string) string {
	if principal, ok := o.overrides[strings.ToLower(objectType)][objectID]; ok {
		return principal
	}
	var creator string
	switch strings.ToLower(objectType) {
	case "cluster":
		if cluster, ok := o.catalog.Cluster(objectID); ok {
			creator = cluster.Creator
		}
	case "job":
		if job, ok := o.catalog.Job(objectID); ok {
			creator = job.Creator
		}
	}
	if creator != "" {
		return creator
	}
	return o.defaultAdmin
}
