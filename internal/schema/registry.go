package schema

import (
	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/pkg/coreerrors"
	"github.com/ontocore/core/pkg/logger"
)

// Registry orders class extracts, builds their Schemas, and resolves
// inverse-property bindings (spec.md §4.1).
type Registry struct {
	log *logger.Logger

	namespaces *kb.NamespaceIndex
	classes    []kb.ClassExtract
	properties []kb.PropertyExtract

	schemas  map[string]*Schema
	inverses map[string]map[string]InverseBinding // cname -> field -> binding
	order    []string
}

// NewRegistry builds a Registry from KB enumerations, without touching a
// cache. Use Cache.Load (cache.go) to populate from a persisted
// extract cache or from an Extractor.
func NewRegistry(log *logger.Logger, namespaces []kb.Namespace, classes []kb.ClassExtract, properties []kb.PropertyExtract) (*Registry, *coreerrors.CoreError) {
	if log == nil {
		log = logger.NewDefault("schema-registry")
	}

	r := &Registry{
		log:        log,
		namespaces: kb.NewNamespaceIndex(namespaces),
		classes:    classes,
		properties: properties,
	}

	builder := NewBuilder(classes, properties)

	order, err := builder.BuildOrder()
	if err != nil {
		return nil, err
	}
	r.order = order

	schemas, err := builder.BuildSchemas()
	if err != nil {
		return nil, err
	}
	r.schemas = schemas

	r.inverses = make(map[string]map[string]InverseBinding)
	for _, binding := range builder.InverseBindings() {
		if r.inverses[binding.OwnerCName] == nil {
			r.inverses[binding.OwnerCName] = make(map[string]InverseBinding)
		}
		r.inverses[binding.OwnerCName][binding.FieldName] = binding
	}

	r.log.WithField("classes", len(schemas)).Debug("schema registry built")
	return r, nil
}

// Schema returns the Schema for cname, or nil if unknown.
func (r *Registry) Schema(cname string) *Schema { return r.schemas[cname] }

// Schemas returns every built Schema, keyed by cname.
func (r *Registry) Schemas() map[string]*Schema { return r.schemas }

// BuildOrder returns the class linearization computed at registry build time.
func (r *Registry) BuildOrder() []string { return r.order }

// InverseBinding resolves the (T, f) target for an inverse field, per
// spec.md §4.1.
func (r *Registry) InverseBinding(cname, field string) (InverseBinding, bool) {
	fields, ok := r.inverses[cname]
	if !ok {
		return InverseBinding{}, false
	}
	b, ok := fields[field]
	return b, ok
}

// Ancestors returns cname's full ancestor set (its direct and transitive
// base classes), used by is_a and get_all_subtypes (spec.md §4.2).
func (r *Registry) Ancestors(cname string) map[string]bool {
	ancestors := make(map[string]bool)
	var visit func(string)
	visit = func(c string) {
		s := r.schemas[c]
		if s == nil {
			return
		}
		for _, base := range s.BaseNames {
			if !ancestors[base] {
				ancestors[base] = true
				visit(base)
			}
		}
	}
	visit(cname)
	return ancestors
}

// IsA reports whether candidate is cname itself or one of its ancestors.
func (r *Registry) IsA(cname, candidate string) bool {
	if cname == candidate {
		return true
	}
	return r.Ancestors(cname)[candidate]
}

// Subtypes returns every cname whose ancestor set contains root, plus root
// itself — the sub-DAG rooted at root (spec.md §4.2 get_all_subtypes).
func (r *Registry) Subtypes(root string) []string {
	var out []string
	for cname := range r.schemas {
		if r.IsA(cname, root) {
			out = append(out, cname)
		}
	}
	return out
}
