package schema

import (
	"testing"

	"github.com/ontocore/core/internal/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleClasses() []kb.ClassExtract {
	return []kb.ClassExtract{
		{ID: "1", IDNamespace: "sm", Name: "Thing", Bases: nil, Definition: "root"},
		{ID: "2", IDNamespace: "sm", Name: "VersionableThing", Bases: []string{"sm:Thing"}},
		{ID: "3", IDNamespace: "sm", Name: "Product", Bases: []string{"sm:VersionableThing"}},
		{ID: "4", IDNamespace: "sm", Name: "HardwareProduct", Bases: []string{"sm:Product"}},
		{ID: "5", IDNamespace: "sm", Name: "Acu", Bases: []string{"sm:Thing"}},
	}
}

func sampleProperties() []kb.PropertyExtract {
	return []kb.PropertyExtract{
		{ID: "p1", IDNamespace: "sm", Name: "version", Domain: "sm:VersionableThing", Range: "xsd:int", IsDatatype: true, Functional: true},
		{ID: "p2", IDNamespace: "sm", Name: "iteration", Domain: "sm:VersionableThing", Range: "xsd:int", IsDatatype: true, Functional: true},
		{ID: "p3", IDNamespace: "sm", Name: "mass_cbe", Domain: "sm:HardwareProduct", Range: "xsd:float", IsDatatype: true, Functional: true},
		{ID: "p4", IDNamespace: "sm", Name: "assembly", Domain: "sm:Acu", Range: "sm:HardwareProduct", IsDatatype: false, Functional: true},
		{ID: "p5", IDNamespace: "sm", Name: "component", Domain: "sm:Acu", Range: "sm:HardwareProduct", IsDatatype: false, Functional: true},
		{ID: "p6", IDNamespace: "sm", Name: "where_used", Domain: "sm:HardwareProduct", Range: "sm:Acu", IsInverse: true, InverseOf: "sm:component"},
	}
}

func buildSampleRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(nil, nil, sampleClasses(), sampleProperties())
	require.Nil(t, err)
	return r
}

func TestBuildOrderRespectsAncestry(t *testing.T) {
	b := NewBuilder(sampleClasses(), sampleProperties())
	order, err := b.BuildOrder()
	require.Nil(t, err)

	pos := make(map[string]int, len(order))
	for i, cname := range order {
		pos[cname] = i
	}

	assert.Less(t, pos["Thing"], pos["VersionableThing"])
	assert.Less(t, pos["VersionableThing"], pos["Product"])
	assert.Less(t, pos["Product"], pos["HardwareProduct"])
}

func TestBuildOrderDetectsCycle(t *testing.T) {
	classes := []kb.ClassExtract{
		{IDNamespace: "sm", Name: "A", Bases: []string{"sm:B"}},
		{IDNamespace: "sm", Name: "B", Bases: []string{"sm:A"}},
	}
	b := NewBuilder(classes, nil)
	_, err := b.BuildOrder()
	require.NotNil(t, err)
	assert.Equal(t, "ONTOLOGY_CYCLIC", string(err.Code))
}

func TestBuildOrderUnknownBase(t *testing.T) {
	classes := []kb.ClassExtract{
		{IDNamespace: "sm", Name: "A", Bases: []string{"sm:Missing"}},
	}
	b := NewBuilder(classes, nil)
	_, err := b.BuildOrder()
	require.NotNil(t, err)
	assert.Equal(t, "ONTOLOGY_UNKNOWN_CLASS", string(err.Code))
}

func TestSchemaInheritsFieldsAndOrdersByPrecedence(t *testing.T) {
	r := buildSampleRegistry(t)

	hp := r.Schema("HardwareProduct")
	require.NotNil(t, hp)

	_, hasVersion := hp.Fields["version"]
	assert.True(t, hasVersion, "HardwareProduct should inherit version from VersionableThing")
	assert.False(t, hp.Fields["version"].Local)

	_, hasMass := hp.Fields["mass_cbe"]
	assert.True(t, hasMass)
	assert.True(t, hp.Fields["mass_cbe"].Local)

	assert.True(t, hp.IsVersionable())

	// version/iteration (version group) must precede mass_cbe (remainder).
	posVersion, posMass := -1, -1
	for i, f := range hp.FieldNames {
		if f == "version" {
			posVersion = i
		}
		if f == "mass_cbe" {
			posMass = i
		}
	}
	require.NotEqual(t, -1, posVersion)
	require.NotEqual(t, -1, posMass)
	assert.Less(t, posVersion, posMass)
}

func TestObjectValuedFieldDescriptor(t *testing.T) {
	r := buildSampleRegistry(t)
	acu := r.Schema("Acu")
	require.NotNil(t, acu)

	fd := acu.Fields["assembly"]
	assert.Equal(t, "object", fd.FieldType)
	assert.Equal(t, "HardwareProduct", fd.RelatedCName)
}

func TestInverseBindingResolvesReciprocalPair(t *testing.T) {
	r := buildSampleRegistry(t)
	binding, ok := r.InverseBinding("HardwareProduct", "where_used")
	require.True(t, ok)
	assert.Equal(t, "Acu", binding.TargetCName)
	assert.Equal(t, "component", binding.TargetField)
}

func TestAncestorsAndIsA(t *testing.T) {
	r := buildSampleRegistry(t)
	ancestors := r.Ancestors("HardwareProduct")
	assert.True(t, ancestors["Product"])
	assert.True(t, ancestors["VersionableThing"])
	assert.True(t, ancestors["Thing"])

	assert.True(t, r.IsA("HardwareProduct", "Thing"))
	assert.True(t, r.IsA("HardwareProduct", "HardwareProduct"))
	assert.False(t, r.IsA("Thing", "HardwareProduct"))
}

func TestSubtypes(t *testing.T) {
	r := buildSampleRegistry(t)
	subs := r.Subtypes("Product")
	assert.Contains(t, subs, "Product")
	assert.Contains(t, subs, "HardwareProduct")
	assert.NotContains(t, subs, "Acu")
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, nil)

	assert.False(t, cache.Exists())

	namespaces := []kb.Namespace{{Prefix: "sm", URI: "urn:sm"}}
	classes := sampleClasses()
	properties := sampleProperties()

	require.Nil(t, cache.Write(namespaces, classes, properties))
	assert.True(t, cache.Exists())

	gotNS, gotClasses, gotProps, found, err := cache.Read()
	require.Nil(t, err)
	require.True(t, found)
	assert.Len(t, gotNS, len(namespaces))
	assert.Len(t, gotClasses, len(classes))
	assert.Len(t, gotProps, len(properties))
}

func TestCacheLoadMissingIsCleanNoOp(t *testing.T) {
	dir := t.TempDir()
	_, _, _, found, err := NewCache(dir, nil).Read()
	require.Nil(t, err)
	assert.False(t, found)
}
