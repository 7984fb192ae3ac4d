// Package kb models the Knowledge Base (spec.md §4.1): the enumerations an
// OWL document yields once parsed. The OWL parser itself is an external
// collaborator (spec.md §1 Out of scope); this package consumes a fixed
// extract shape through the Extractor interface.
package kb

import (
	"strings"

	"github.com/ontocore/core/pkg/coreerrors"
)

// Namespace identifies the origin of a name (spec.md §3).
type Namespace struct {
	Prefix    string
	URI       string
	Names     []string
	MetaLevel int
}

// ClassExtract is one class-node yielded by the KB (spec.md §3/§4.1).
type ClassExtract struct {
	ID           string
	IDNamespace  string
	Name         string
	Bases        []string // qualified names of base classes
	Definition   string
	Abbreviation string
}

// QName returns the class's fully qualified name.
func (c ClassExtract) QName() string { return c.IDNamespace + ":" + c.Name }

// PropertyExtract is one property-node yielded by the KB (spec.md §3/§4.1).
type PropertyExtract struct {
	ID                 string
	IDNamespace        string
	Name               string
	Domain             string // qualified class name
	Range              string // qualified class name, or an XSD datatype qname
	Functional         bool
	IsDatatype         bool
	IsInverse          bool
	InverseOf          string
	InverseFunctional  bool
	Definition         string
}

// QName returns the property's fully qualified name.
func (p PropertyExtract) QName() string { return p.IDNamespace + ":" + p.Name }

// Extractor is the black-box producer of class/property/namespace
// enumerations an OWL document yields (spec.md §4.1). Production code is
// expected to supply an implementation backed by an OWL/RDF parser; this
// package only consumes the interface.
type Extractor interface {
	Namespaces() ([]Namespace, error)
	Classes() ([]ClassExtract, error)
	Properties() ([]PropertyExtract, error)
}

// XSD-to-primitive mapping (spec.md §4.1).
var xsdToPrimitive = map[string]string{
	"xsd:string":       "string",
	"xsd:boolean":      "boolean",
	"xsd:int":          "int",
	"xsd:long":         "long",
	"xsd:float":        "float",
	"xsd:decimal":      "decimal",
	"xsd:dateTime":     "dateTime",
	"xsd:date":         "date",
	"xsd:time":         "time",
	"xsd:base64Binary": "bytes",
	"xsd:anyURI":       "string",
	"xsd:token":        "string",
}

// PrimitiveForRange maps an XSD datatype qname to its primitive type. The
// second return value is false when the range is not a recognized XSD
// datatype (i.e. it is an object-valued range).
func PrimitiveForRange(rangeQName string) (string, bool) {
	p, ok := xsdToPrimitive[rangeQName]
	return p, ok
}

// SplitQName splits "prefix:local" into its parts, returning InvalidQName
// when the name has no colon or an empty prefix/local part.
func SplitQName(qname string) (prefix, local string, err *coreerrors.CoreError) {
	idx := strings.IndexByte(qname, ':')
	if idx <= 0 || idx == len(qname)-1 {
		return "", "", coreerrors.InvalidQName(qname)
	}
	return qname[:idx], qname[idx+1:], nil
}

// NamespaceIndex resolves prefixes to their Namespace binding.
type NamespaceIndex struct {
	byPrefix map[string]Namespace
}

// NewNamespaceIndex builds an index from the KB's namespace enumeration.
func NewNamespaceIndex(namespaces []Namespace) *NamespaceIndex {
	idx := &NamespaceIndex{byPrefix: make(map[string]Namespace, len(namespaces))}
	for _, ns := range namespaces {
		idx.byPrefix[ns.Prefix] = ns
	}
	return idx
}

// Resolve returns the Namespace bound to prefix, or UnknownPrefix.
func (n *NamespaceIndex) Resolve(prefix string) (Namespace, *coreerrors.CoreError) {
	ns, ok := n.byPrefix[prefix]
	if !ok {
		return Namespace{}, coreerrors.UnknownPrefix(prefix)
	}
	return ns, nil
}

// ValidateQName resolves a qualified name's prefix against the index,
// returning UnknownPrefix or InvalidQName as appropriate.
func (n *NamespaceIndex) ValidateQName(qname string) *coreerrors.CoreError {
	prefix, _, err := SplitQName(qname)
	if err != nil {
		return err
	}
	_, rErr := n.Resolve(prefix)
	return rErr
}

// reservedIDLikeNames are forced to string range regardless of their
// declared range, per spec.md §4.1.
var reservedIDLikeNames = map[string]bool{
	"id": true, "id_ns": true, "oid": true, "uri": true,
	"version": true, "domain": true, "range": true,
}

// IsReservedIDLikeName reports whether a property name is forced to string
// range (spec.md §4.1).
func IsReservedIDLikeName(name string) bool { return reservedIDLikeNames[name] }
