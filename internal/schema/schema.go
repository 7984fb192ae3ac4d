// Package schema builds runtime class schemas from Knowledge Base extracts
// (spec.md §4.1): build order, inheritance, and field descriptors.
package schema

import (
	"sort"

	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/pkg/coreerrors"
)

// FieldDescriptor describes one field of a Schema (spec.md §3).
type FieldDescriptor struct {
	Name         string
	FieldType    string // primitive type, or the sentinel "object"
	RelatedCName string // set when FieldType == "object"
	Functional   bool
	IsInverse    bool
	InverseOf    string
	MaxLength    int
	Editable     bool
	ExternalName string
	Local        bool // true when defined directly on this class, not inherited
}

// Schema is the runtime class schema (spec.md §3).
type Schema struct {
	CName      string
	BaseNames  []string
	PKName     string
	FieldNames []string // deterministic order
	Fields     map[string]FieldDescriptor
	Definition string
}

// IsVersionable reports whether the schema carries a "version" field,
// per spec.md §9 Design Notes ("only classes with a version field are
// versionable").
func (s *Schema) IsVersionable() bool {
	_, ok := s.Fields["version"]
	return ok
}

const objectFieldType = "object"

// maxLengthOverrides gives a handful of fields a max_length other than the
// spec's default of 80; unlisted fields use the default.
var maxLengthOverrides = map[string]int{
	"name":       120,
	"definition": 4000,
	"oid":        64,
	"id":         64,
}

func maxLengthFor(name string) int {
	if v, ok := maxLengthOverrides[name]; ok {
		return v
	}
	return 80
}

// fieldPrecedenceGroups orders the fixed structural fields ahead of
// ontology-derived fields, per spec.md §4.1 ("Fields are ordered by a fixed
// precedence list (identity, audit, version, ownership) followed by the
// remainder").
var fieldPrecedenceGroups = [][]string{
	{"oid", "id", "id_ns", "name"},                      // identity
	{"create_datetime", "mod_datetime", "creator", "modifier"}, // audit
	{"version", "iteration", "version_sequence", "frozen"},     // version
	{"owner"},                                                  // ownership
}

// orderFieldNames produces the deterministic field order: the fixed
// precedence groups (in their declared order, skipping fields the class
// doesn't have), followed by the remaining fields sorted alphabetically.
func orderFieldNames(fields map[string]FieldDescriptor) []string {
	placed := make(map[string]bool, len(fields))
	ordered := make([]string, 0, len(fields))

	for _, group := range fieldPrecedenceGroups {
		for _, name := range group {
			if _, ok := fields[name]; ok && !placed[name] {
				ordered = append(ordered, name)
				placed[name] = true
			}
		}
	}

	remainder := make([]string, 0, len(fields))
	for name := range fields {
		if !placed[name] {
			remainder = append(remainder, name)
		}
	}
	sort.Strings(remainder)
	ordered = append(ordered, remainder...)
	return ordered
}

// Builder constructs Schemas in build order from class and property
// extracts.
type Builder struct {
	classesByCName map[string]kb.ClassExtract
	propsByDomain  map[string][]kb.PropertyExtract
	propsByQName   map[string]kb.PropertyExtract
	qnameToCName   map[string]string
}

// NewBuilder indexes class and property extracts for schema construction.
// qnameToCName maps a class's qualified name (namespace:name) to its
// internal cname — by convention the class's local Name, since cnames are
// unique across the ontology in this core.
func NewBuilder(classes []kb.ClassExtract, properties []kb.PropertyExtract) *Builder {
	b := &Builder{
		classesByCName: make(map[string]kb.ClassExtract, len(classes)),
		propsByDomain:  make(map[string][]kb.PropertyExtract),
		propsByQName:   make(map[string]kb.PropertyExtract, len(properties)),
		qnameToCName:   make(map[string]string, len(classes)),
	}
	for _, c := range classes {
		b.classesByCName[c.Name] = c
		b.qnameToCName[c.QName()] = c.Name
	}
	for _, p := range properties {
		domainCName := b.resolveCName(p.Domain)
		b.propsByDomain[domainCName] = append(b.propsByDomain[domainCName], p)
		b.propsByQName[p.QName()] = p
	}
	return b
}

// InverseBinding records the reciprocal pair for one inverse field, per
// spec.md §4.1 ("The Registry records the reciprocal pair so that both
// directions resolve consistently").
type InverseBinding struct {
	OwnerCName    string // the class the inverse field is declared on
	FieldName     string // the inverse field's name
	TargetCName   string // T: the class to scan
	TargetField   string // f: the forward field on T that references the owner
}

// InverseBindings resolves every is_inverse property to the forward property
// it mirrors. An inverse property whose inverse_of names no known property is
// skipped; schema validation (InverseMissingProperty) is the caller's
// responsibility when strictness is required.
func (b *Builder) InverseBindings() []InverseBinding {
	var bindings []InverseBinding
	for _, p := range b.propsByQName {
		if !p.IsInverse {
			continue
		}
		forward, ok := b.propsByQName[p.InverseOf]
		if !ok {
			continue
		}
		bindings = append(bindings, InverseBinding{
			OwnerCName:  b.resolveCName(p.Domain),
			FieldName:   p.Name,
			TargetCName: b.resolveCName(forward.Domain),
			TargetField: forward.Name,
		})
	}
	return bindings
}

func (b *Builder) resolveCName(qnameOrCName string) string {
	if cname, ok := b.qnameToCName[qnameOrCName]; ok {
		return cname
	}
	return qnameOrCName
}

// BuildOrder computes a linearization of class extracts such that every
// class's ancestors precede it (spec.md §4.1). It fails with CyclicOntology
// if a pass makes no progress.
func (b *Builder) BuildOrder() ([]string, *coreerrors.CoreError) {
	remaining := make(map[string]kb.ClassExtract, len(b.classesByCName))
	for cname, c := range b.classesByCName {
		remaining[cname] = c
	}

	var order []string
	placed := make(map[string]bool, len(remaining))

	for len(remaining) > 0 {
		progressed := false
		// Iterate over a deterministic snapshot of the remaining class names
		// so build order doesn't depend on Go's randomized map iteration.
		names := make([]string, 0, len(remaining))
		for cname := range remaining {
			names = append(names, cname)
		}
		sort.Strings(names)

		for _, cname := range names {
			c := remaining[cname]
			ready := true
			for _, baseQName := range c.Bases {
				baseCName := b.resolveCName(baseQName)
				if _, ok := b.classesByCName[baseCName]; !ok {
					return nil, coreerrors.UnknownClass(baseCName)
				}
				if !placed[baseCName] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, cname)
				placed[cname] = true
				delete(remaining, cname)
				progressed = true
			}
		}

		if !progressed {
			stalled := make([]string, 0, len(remaining))
			for cname := range remaining {
				stalled = append(stalled, cname)
			}
			sort.Strings(stalled)
			return nil, coreerrors.CyclicOntology(stalled)
		}
	}

	return order, nil
}

// BuildSchemas builds every class's Schema, in build order.
func (b *Builder) BuildSchemas() (map[string]*Schema, *coreerrors.CoreError) {
	order, err := b.BuildOrder()
	if err != nil {
		return nil, err
	}

	schemas := make(map[string]*Schema, len(order))

	for _, cname := range order {
		c := b.classesByCName[cname]

		fields := make(map[string]FieldDescriptor)
		baseNames := make([]string, 0, len(c.Bases))

		for _, baseQName := range c.Bases {
			baseCName := b.resolveCName(baseQName)
			baseNames = append(baseNames, baseCName)
			baseSchema, ok := schemas[baseCName]
			if !ok {
				return nil, coreerrors.UnknownClass(baseCName)
			}
			for name, fd := range baseSchema.Fields {
				if _, exists := fields[name]; !exists {
					inherited := fd
					inherited.Local = false
					fields[name] = inherited
				}
			}
		}

		for _, p := range b.propsByDomain[cname] {
			fd := FieldDescriptor{
				Name:         p.Name,
				Functional:   p.Functional,
				IsInverse:    p.IsInverse,
				InverseOf:    p.InverseOf,
				Editable:     true,
				ExternalName: p.Name,
				Local:        true,
			}

			switch {
			case kb.IsReservedIDLikeName(p.Name):
				fd.FieldType = "string"
				fd.MaxLength = maxLengthFor(p.Name)
			case p.IsDatatype:
				primitive, ok := kb.PrimitiveForRange(p.Range)
				if !ok {
					return nil, coreerrors.FieldNotRepresentable(p.Name, cname)
				}
				fd.FieldType = primitive
				fd.MaxLength = maxLengthFor(p.Name)
			default:
				fd.FieldType = objectFieldType
				fd.RelatedCName = b.resolveCName(p.Range)
			}

			fields[p.Name] = fd
		}

		schemas[cname] = &Schema{
			CName:      cname,
			BaseNames:  baseNames,
			PKName:     "oid",
			FieldNames: orderFieldNames(fields),
			Fields:     fields,
			Definition: c.Definition,
		}
	}

	return schemas, nil
}
