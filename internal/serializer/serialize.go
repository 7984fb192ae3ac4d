package serializer

import "github.com/ontocore/core/internal/store"

// ParameterSource is the hook the Parametric Engine registers so the
// Serializer can read its parameter/data-element caches without the
// serializer importing the engine package (spec.md §4.4, mirroring the
// store.ParamSeeder decoupling used elsewhere).
type ParameterSource interface {
	ParametersFor(oid string) map[string]float64
	DataElementsFor(oid string) map[string]interface{}
	RestoreParameters(oid string, params map[string]float64)
	RestoreDataElements(oid string, des map[string]interface{})
}

// Options controls a Serialize call.
type Options struct {
	// IncludeComponents pulls in a Product's direct component usages and
	// their components (spec.md §4.4).
	IncludeComponents bool
	// IncludeReferenceData bypasses the default exclusion of reference-data
	// classes from the output (spec.md §4.4 "excluded unless explicitly
	// requested").
	IncludeReferenceData bool
	// Parameters supplies the parameter/data-element caches. May be nil, in
	// which case records carry no "parameters"/"data_elements" entries.
	Parameters ParameterSource
}

// Serializer exports Things reachable from a seed set by the traversal
// rules of spec.md §4.4.
type Serializer struct {
	store *store.Store
}

// New constructs a Serializer bound to an Object Store.
func New(st *store.Store) *Serializer {
	return &Serializer{store: st}
}

var referenceDataSet = func() map[string]bool {
	set := make(map[string]bool, len(store.ReferenceDataClasses))
	for _, c := range store.ReferenceDataClasses {
		set[c] = true
	}
	return set
}()

// Serialize walks the traversal rules of spec.md §4.4 from seeds, dedupes by
// oid, and returns one Record per included Thing.
func (s *Serializer) Serialize(seeds []string, opts Options) []Record {
	visited := make(map[string]bool)
	var order []string

	var visit func(oid string)
	visit = func(oid string) {
		if oid == "" || visited[oid] {
			return
		}
		t, ok := s.store.Get(oid)
		if !ok {
			return
		}
		if referenceDataSet[t.CName] && !opts.IncludeReferenceData {
			return
		}
		visited[oid] = true
		order = append(order, oid)
		s.expand(t, opts, visit)
	}

	for _, seed := range seeds {
		visit(seed)
	}

	out := make([]Record, 0, len(order))
	for _, oid := range order {
		t, ok := s.store.Get(oid)
		if !ok {
			continue
		}
		out = append(out, toRecord(t, opts.Parameters))
	}
	return out
}

// expand applies the per-class traversal rules, calling visit on every
// oid the rule pulls in (spec.md §4.4).
func (s *Serializer) expand(t *store.Thing, opts Options, visit func(string)) {
	switch t.CName {
	case store.CNameAcu:
		visit(t.RefOID("assembly"))
		visit(t.RefOID("component"))
	case store.CNameProjectSystemUsage:
		visit(t.RefOID("system"))
	case store.CNameRoleAssignment:
		visit(t.RefOID("assigned_role"))
		visit(t.RefOID("assigned_to"))
		visit(t.RefOID("role_assignment_context"))
	case store.CNameRequirement:
		relOID := t.RefOID("computable_form")
		if relOID != "" {
			visit(relOID)
			for _, pr := range s.store.SearchExact(map[string]interface{}{"relation": store.RefCriterion(relOID)}, store.CNameParameterRelation) {
				visit(pr.OID)
			}
		}
	}

	if s.store.IsA(t, store.CNameProduct) {
		if opts.IncludeComponents {
			for _, acu := range s.store.SearchExact(map[string]interface{}{"assembly": store.RefCriterion(t.OID)}, store.CNameAcu) {
				visit(acu.OID)
				visit(acu.RefOID("component"))
			}
		}
		for _, port := range s.store.SearchExact(map[string]interface{}{"product": store.RefCriterion(t.OID)}, store.CNamePort) {
			visit(port.OID)
		}
		for _, flow := range s.store.GetByType(store.CNameFlow) {
			if flow.RefOID("product") == t.OID {
				visit(flow.OID)
			}
		}
	}
}
