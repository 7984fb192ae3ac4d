// Package store implements the Object Store (spec.md §4.2): a polymorphic,
// ID-addressed container of Things.
package store

// NullRef is the stored representation of a null object-valued reference
// (spec.md §3 invariants: "a null reference is the empty string, not a
// missing key").
const NullRef = ""

// Metadata holds the structural fields every Thing carries (spec.md §3),
// separate from its dense, schema-declared field record.
type Metadata struct {
	ID              string
	IDNamespace     string
	Name            string
	CreateDatetime  string
	ModDatetime     string
	Creator         string
	Modifier        string
	Owner           string
	Versionable     bool
	Version         int
	Iteration       int
	VersionSequence int
	Frozen          bool
	Public          bool
	TBD             bool
	ProductTypeHint string
	Deprecated      bool
}

// Thing is the uniform, dynamically typed entity of the object store
// (spec.md §3, §9 Design Notes). Polymorphism is dispatched on CName via the
// schema registry; inverse fields are never stored here, only resolved at
// query time.
type Thing struct {
	OID    string
	CName  string
	Meta   Metadata
	Fields map[string]interface{}
}

// NewThing constructs an empty Thing of the given class.
func NewThing(oid, cname string) *Thing {
	return &Thing{OID: oid, CName: cname, Fields: make(map[string]interface{})}
}

// Get returns a field's value and whether it is present.
func (t *Thing) Get(field string) (interface{}, bool) {
	v, ok := t.Fields[field]
	return v, ok
}

// Set assigns a field's value.
func (t *Thing) Set(field string, value interface{}) {
	t.Fields[field] = value
}

// RefOID reads an object-valued field as a referent oid, treating a missing
// field the same as a null reference.
func (t *Thing) RefOID(field string) string {
	v, ok := t.Fields[field]
	if !ok || v == nil {
		return NullRef
	}
	s, _ := v.(string)
	return s
}

// Clone produces a deep-enough copy for safe return across the Store's
// mutex boundary (spec.md §5: readers must not observe partial writer
// state), mirroring the teacher's clone-on-read/clone-on-write discipline.
func (t *Thing) Clone() *Thing {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Fields = make(map[string]interface{}, len(t.Fields))
	for k, v := range t.Fields {
		clone.Fields[k] = v
	}
	return &clone
}
