package graph

import (
	"bytes"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/lazyload/errors"
)

// Registry maps a source module's file path to the raw request strings it
// passes to lazy import declarations. It is collected separately from the
// compilation and filters out chunk groups created by ordinary imports.
type Registry struct {
	imports map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{imports: make(map[string]map[string]struct{})}
}

// Add records that resource lazily imports request.
func (r *Registry) Add(resource string, requests ...string) {
	set, ok := r.imports[resource]
	if !ok {
		set = make(map[string]struct{})
		r.imports[resource] = set
	}
	for _, req := range requests {
		set[req] = struct{}{}
	}
}

// Has reports whether resource lazily imports request.
func (r *Registry) Has(resource, request string) bool {
	if r == nil {
		return false
	}
	_, ok := r.imports[resource][request]
	return ok
}

// Requests returns the sorted requests recorded for resource.
func (r *Registry) Requests(resource string) []string {
	if r == nil {
		return nil
	}
	set := r.imports[resource]
	out := make([]string, 0, len(set))
	for req := range set {
		out = append(out, req)
	}
	sort.Strings(out)
	return out
}

// Resources returns the sorted resources with at least one request.
func (r *Registry) Resources() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.imports))
	for res, set := range r.imports {
		if len(set) > 0 {
			out = append(out, res)
		}
	}
	sort.Strings(out)
	return out
}

// DecodeRegistry parses a YAML (or JSON) mapping of resource to request list:
//
//	/app/src/routes.js:
//	  - ./pages/settings
//	  - ./pages/profile
func DecodeRegistry(data []byte) (*Registry, error) {
	reg := NewRegistry()
	if len(bytes.TrimSpace(data)) == 0 {
		return reg, nil
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.ParseFailed("import registry", err)
	}
	for res, reqs := range raw {
		if res == "" {
			return nil, errors.InvalidData(errors.PhaseDecode, nil, "registry resource path is empty")
		}
		reg.Add(res, reqs...)
	}
	return reg, nil
}

// LoadRegistry reads a registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindNotFound, err, "read registry "+path)
	}
	return DecodeRegistry(data)
}
