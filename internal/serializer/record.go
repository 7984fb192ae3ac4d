// Package serializer implements canonical serialize/deserialize of Things
// (spec.md §4.4): traversal-rule-driven export, fixed topological
// deserialization order, and version-keyed schema migration.
package serializer

import "github.com/ontocore/core/internal/store"

// Record is one serialized Thing: its class tag, every field (object-valued
// fields represented by the referent's oid), and the "parameters" /
// "data_elements" sub-dictionaries (spec.md §4.4). Inverse fields are never
// serialized.
type Record map[string]interface{}

// classTagKey is the record field the Serializer uses to carry a Thing's
// class, per spec.md §4.4 "_cname".
const classTagKey = "_cname"

// metaFieldNames are the structural Thing.Meta fields folded into the flat
// record alongside ontology-derived Thing.Fields (spec.md §3).
const (
	fieldOID             = "oid"
	fieldID              = "id"
	fieldIDNamespace     = "id_ns"
	fieldName            = "name"
	fieldCreateDatetime  = "create_datetime"
	fieldModDatetime     = "mod_datetime"
	fieldCreator         = "creator"
	fieldModifier        = "modifier"
	fieldOwner           = "owner"
	fieldVersionable     = "versionable"
	fieldVersion         = "version"
	fieldIteration       = "iteration"
	fieldVersionSequence = "version_sequence"
	fieldFrozen          = "frozen"
	fieldPublic          = "public"
	fieldTBD             = "tbd"
	fieldProductTypeHint = "product_type_hint"
	fieldDeprecated      = "deprecated"
)

// toRecord flattens a Thing's Meta and Fields into one Record, plus its
// parameter/data-element caches if a ParameterSource is supplied (spec.md
// §4.4: "two sub-dictionaries parameters and data_elements containing the
// corresponding cache entries").
func toRecord(t *store.Thing, src ParameterSource) Record {
	rec := Record{classTagKey: t.CName}
	rec[fieldOID] = t.OID
	if t.Meta.ID != "" {
		rec[fieldID] = t.Meta.ID
	}
	rec[fieldIDNamespace] = t.Meta.IDNamespace
	rec[fieldName] = t.Meta.Name
	rec[fieldCreateDatetime] = t.Meta.CreateDatetime
	rec[fieldModDatetime] = t.Meta.ModDatetime
	rec[fieldCreator] = t.Meta.Creator
	rec[fieldModifier] = t.Meta.Modifier
	rec[fieldOwner] = t.Meta.Owner
	rec[fieldVersionable] = t.Meta.Versionable
	if t.Meta.Versionable {
		rec[fieldVersion] = t.Meta.Version
		rec[fieldIteration] = t.Meta.Iteration
		rec[fieldVersionSequence] = t.Meta.VersionSequence
		rec[fieldFrozen] = t.Meta.Frozen
	}
	rec[fieldPublic] = t.Meta.Public
	rec[fieldTBD] = t.Meta.TBD
	if t.Meta.ProductTypeHint != "" {
		rec[fieldProductTypeHint] = t.Meta.ProductTypeHint
	}
	if t.Meta.Deprecated {
		rec[fieldDeprecated] = true
	}

	for k, v := range t.Fields {
		rec[k] = v
	}

	if src != nil {
		if params := src.ParametersFor(t.OID); len(params) > 0 {
			rec["parameters"] = params
		}
		if des := src.DataElementsFor(t.OID); len(des) > 0 {
			rec["data_elements"] = des
		}
	}
	return rec
}

// fromRecord rebuilds a Thing from a flat Record, splitting the structural
// Meta fields back out of the domain fields (spec.md §4.4).
func fromRecord(rec Record) *store.Thing {
	cname, _ := rec[classTagKey].(string)
	oid, _ := rec[fieldOID].(string)

	t := store.NewThing(oid, cname)
	t.Meta.ID = strField(rec, fieldID)
	t.Meta.IDNamespace = strField(rec, fieldIDNamespace)
	t.Meta.Name = strField(rec, fieldName)
	t.Meta.CreateDatetime = strField(rec, fieldCreateDatetime)
	t.Meta.ModDatetime = strField(rec, fieldModDatetime)
	t.Meta.Creator = strField(rec, fieldCreator)
	t.Meta.Modifier = strField(rec, fieldModifier)
	t.Meta.Owner = strField(rec, fieldOwner)
	t.Meta.Versionable = boolField(rec, fieldVersionable)
	t.Meta.Version = intField(rec, fieldVersion)
	t.Meta.Iteration = intField(rec, fieldIteration)
	t.Meta.VersionSequence = intField(rec, fieldVersionSequence)
	t.Meta.Frozen = boolField(rec, fieldFrozen)
	t.Meta.Public = boolField(rec, fieldPublic)
	t.Meta.TBD = boolField(rec, fieldTBD)
	t.Meta.ProductTypeHint = strField(rec, fieldProductTypeHint)
	t.Meta.Deprecated = boolField(rec, fieldDeprecated)

	structural := map[string]bool{
		classTagKey: true, fieldOID: true, fieldID: true, fieldIDNamespace: true, fieldName: true,
		fieldCreateDatetime: true, fieldModDatetime: true, fieldCreator: true,
		fieldModifier: true, fieldOwner: true, fieldVersionable: true, fieldVersion: true,
		fieldIteration: true, fieldVersionSequence: true, fieldFrozen: true, fieldPublic: true,
		fieldTBD: true, fieldProductTypeHint: true, fieldDeprecated: true,
		"parameters": true, "data_elements": true,
	}
	for k, v := range rec {
		if !structural[k] {
			t.Set(k, v)
		}
	}
	return t
}

func strField(rec Record, key string) string {
	s, _ := rec[key].(string)
	return s
}

func boolField(rec Record, key string) bool {
	b, _ := rec[key].(bool)
	return b
}

func intField(rec Record, key string) int {
	switch n := rec[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// recordParameters extracts a record's "parameters" sub-dictionary, if any.
func recordParameters(rec Record) map[string]float64 {
	raw, ok := rec["parameters"]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		if typed, ok := raw.(map[string]float64); ok {
			return typed
		}
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		}
	}
	return out
}

// recordDataElements extracts a record's "data_elements" sub-dictionary.
func recordDataElements(rec Record) map[string]interface{} {
	raw, ok := rec["data_elements"]
	if !ok {
		return nil
	}
	m, _ := raw.(map[string]interface{})
	return m
}
