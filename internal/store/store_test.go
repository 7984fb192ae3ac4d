package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	classes := []kb.ClassExtract{
		{ID: "c1", IDNamespace: "core", Name: CNameThing},
		{ID: "c2", IDNamespace: "core", Name: CNameProduct, Bases: []string{"core:" + CNameThing}},
		{ID: "c3", IDNamespace: "core", Name: CNameHardwareProduct, Bases: []string{"core:" + CNameProduct}},
		{ID: "c4", IDNamespace: "core", Name: CNameAcu, Bases: []string{"core:" + CNameThing}},
		{ID: "c5", IDNamespace: "core", Name: CNamePort, Bases: []string{"core:" + CNameThing}},
		{ID: "c6", IDNamespace: "core", Name: CNameFlow, Bases: []string{"core:" + CNameThing}},
		{ID: "c7", IDNamespace: "core", Name: CNameProject, Bases: []string{"core:" + CNameThing}},
		{ID: "c8", IDNamespace: "core", Name: CNameOrganization, Bases: []string{"core:" + CNameThing}},
		{ID: "c9", IDNamespace: "core", Name: CNamePerson, Bases: []string{"core:" + CNameThing}},
		{ID: "c10", IDNamespace: "core", Name: CNameRoleAssignment, Bases: []string{"core:" + CNameThing}},
		{ID: "c11", IDNamespace: "core", Name: CNameProjectSystemUsage, Bases: []string{"core:" + CNameThing}},
		{ID: "c12", IDNamespace: "core", Name: CNameRequirement, Bases: []string{"core:" + CNameThing}},
		{ID: "c13", IDNamespace: "core", Name: CNameRelation, Bases: []string{"core:" + CNameThing}},
		{ID: "c14", IDNamespace: "core", Name: CNameParameterRelation, Bases: []string{"core:" + CNameThing}},
	}

	objProp := func(id, name, domain, rng string) kb.PropertyExtract {
		return kb.PropertyExtract{ID: id, IDNamespace: "core", Name: name, Domain: "core:" + domain, Range: "core:" + rng, Functional: true}
	}
	strProp := func(id, name, domain string) kb.PropertyExtract {
		return kb.PropertyExtract{ID: id, IDNamespace: "core", Name: name, Domain: "core:" + domain, Range: "xsd:string", IsDatatype: true, Functional: true}
	}

	properties := []kb.PropertyExtract{
		objProp("p1", "product", CNameAcu, CNameHardwareProduct),
		objProp("p2", "source", CNameFlow, CNameAcu),
		objProp("p3", "destination", CNameFlow, CNameAcu),
		objProp("p4", "project", CNameRoleAssignment, CNameProject),
		objProp("p5", "project", CNameProjectSystemUsage, CNameProject),
		objProp("p6", "parent_oid", CNameOrganization, CNameOrganization),
		objProp("p7", "organization", CNamePerson, CNameOrganization),
		objProp("p8", "requirement", CNameRelation, CNameRequirement),
		objProp("p9", "relation", CNameParameterRelation, CNameRelation),
		strProp("p10", "version", CNameHardwareProduct),
	}

	reg, err := schema.NewRegistry(nil, nil, classes, properties)
	require.Nil(t, err)
	return reg
}

func TestStoreInsertAndGet(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	thing := NewThing("oid-1", CNameHardwareProduct)
	thing.Set("name", "Widget")

	saved, err := s.Insert(thing)
	require.Nil(t, err)
	assert.Equal(t, "oid-1", saved.OID)

	got, ok := s.Get("oid-1")
	require.True(t, ok)
	assert.Equal(t, "Widget", mustGet(got, "name"))

	// Mutating the returned clone must not affect the stored Thing.
	got.Set("name", "Mutated")
	got2, _ := s.Get("oid-1")
	assert.Equal(t, "Widget", mustGet(got2, "name"))
}

func mustGet(t *Thing, field string) interface{} {
	v, _ := t.Get(field)
	return v
}

func TestStoreInsertDuplicateOID(t *testing.T) {
	s := New(testRegistry(t), nil, nil)
	thing := NewThing("dup-1", CNameThing)

	_, err := s.Insert(thing)
	require.Nil(t, err)

	_, err = s.Insert(thing)
	require.NotNil(t, err)
	assert.Equal(t, "STORE_DUPLICATE_OID", string(err.Code))
}

func TestStoreUpdateIncrementsIterationWhenVersionable(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	hw := NewThing("hw-1", CNameHardwareProduct)
	hw.Meta.Versionable = true
	hw.Meta.Iteration = 1
	_, err := s.Insert(hw)
	require.Nil(t, err)

	hw2 := NewThing("hw-1", CNameHardwareProduct)
	hw2.Meta.Versionable = true
	_, err = s.Update(hw2)
	require.Nil(t, err)

	got, _ := s.Get("hw-1")
	assert.Equal(t, 2, got.Meta.Iteration)
}

func TestStoreSaveRoutesInsertOrUpdate(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	t1 := NewThing("a", CNameThing)
	t2 := NewThing("b", CNameThing)
	saved, err := s.Save([]*Thing{t1, t2})
	require.Nil(t, err)
	assert.Len(t, saved, 2)

	t1Again := NewThing("a", CNameThing)
	t1Again.Set("name", "renamed")
	_, err = s.Save([]*Thing{t1Again})
	require.Nil(t, err)

	got, _ := s.Get("a")
	assert.Equal(t, "renamed", mustGet(got, "name"))
}

func TestStoreGetByTypeAndSubtypes(t *testing.T) {
	s := New(testRegistry(t), nil, nil)
	mustInsert(t, s, NewThing("hw-1", CNameHardwareProduct))
	mustInsert(t, s, NewThing("hw-2", CNameHardwareProduct))
	mustInsert(t, s, NewThing("thing-1", CNameThing))

	byType := s.GetByType(CNameHardwareProduct)
	assert.Len(t, byType, 2)

	subtypes := s.GetAllSubtypes(CNameProduct)
	assert.Len(t, subtypes, 2)

	all := s.GetAllSubtypes(CNameThing)
	assert.Len(t, all, 3)
}

func TestStoreIsA(t *testing.T) {
	s := New(testRegistry(t), nil, nil)
	hw := NewThing("hw-1", CNameHardwareProduct)
	assert.True(t, s.IsA(hw, CNameThing))
	assert.True(t, s.IsA(hw, CNameProduct))
	assert.True(t, s.IsA(hw, CNameHardwareProduct))
	assert.False(t, s.IsA(hw, CNameAcu))
}

func TestStoreSelectAndSearchExact(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	hw := NewThing("hw-1", CNameHardwareProduct)
	hw.Set("name", "Radio")
	mustInsert(t, s, hw)

	acu := NewThing("acu-1", CNameAcu)
	acu.Set("product", "hw-1")
	mustInsert(t, s, acu)

	acuNull := NewThing("acu-2", CNameAcu)
	mustInsert(t, s, acuNull)

	found := s.Select(CNameHardwareProduct, map[string]interface{}{"name": "Radio"})
	require.NotNil(t, found)
	assert.Equal(t, "hw-1", found.OID)

	matches := s.SearchExact(map[string]interface{}{"product": RefCriterion("hw-1")}, CNameAcu)
	require.Len(t, matches, 1)
	assert.Equal(t, "acu-1", matches[0].OID)

	nullMatches := s.SearchExact(map[string]interface{}{"product": RefCriterion(NullRef)}, CNameAcu)
	require.Len(t, nullMatches, 1)
	assert.Equal(t, "acu-2", nullMatches[0].OID)
}

func TestStoreGenerateProductIDAvoidsCollisions(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	first := s.GenerateProductID("Acme", "RDO")
	taken := NewThing("hw-1", CNameHardwareProduct)
	taken.Meta.ID = first
	mustInsert(t, s, taken)

	second := s.GenerateProductID("Acme", "RDO")
	assert.NotEqual(t, first, second)
}

func TestStoreDeleteCascadesProject(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	proj := NewThing("proj-1", CNameProject)
	mustInsert(t, s, proj)

	role := NewThing("role-1", CNameRoleAssignment)
	role.Set("project", "proj-1")
	mustInsert(t, s, role)

	usage := NewThing("psu-1", CNameProjectSystemUsage)
	usage.Set("project", "proj-1")
	mustInsert(t, s, usage)

	err := s.Delete([]string{"proj-1"})
	require.Nil(t, err)

	_, ok := s.Get("proj-1")
	assert.False(t, ok)
	_, ok = s.Get("role-1")
	assert.False(t, ok)
	_, ok = s.Get("psu-1")
	assert.False(t, ok)
}

func TestStoreDeleteReassignsOrganizationOwnedObjects(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	parent := NewThing("org-parent", CNameOrganization)
	mustInsert(t, s, parent)

	child := NewThing("org-child", CNameOrganization)
	child.Set("parent_oid", "org-parent")
	mustInsert(t, s, child)

	owned := NewThing("thing-1", CNameThing)
	owned.Meta.Owner = "org-child"
	mustInsert(t, s, owned)

	err := s.Delete([]string{"org-child"})
	require.Nil(t, err)

	got, ok := s.Get("thing-1")
	require.True(t, ok)
	assert.Equal(t, "org-parent", got.Meta.Owner)
}

func TestStoreDeleteProductRefusedWhenWhereUsedNonEmpty(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	hw := NewThing("hw-1", CNameHardwareProduct)
	mustInsert(t, s, hw)

	acu := NewThing("acu-1", CNameAcu)
	acu.Set("product", "hw-1")
	mustInsert(t, s, acu)

	err := s.Delete([]string{"hw-1"})
	require.NotNil(t, err)
	assert.Equal(t, "STORE_DELETE_REFUSED", string(err.Code))

	_, ok := s.Get("hw-1")
	assert.True(t, ok)
}

func TestStoreDeleteAcuRemovesReferencingFlows(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	acu1 := NewThing("acu-1", CNameAcu)
	mustInsert(t, s, acu1)
	acu2 := NewThing("acu-2", CNameAcu)
	mustInsert(t, s, acu2)

	flow := NewThing("flow-1", CNameFlow)
	flow.Set("source", "acu-1")
	flow.Set("destination", "acu-2")
	mustInsert(t, s, flow)

	err := s.Delete([]string{"acu-1"})
	require.Nil(t, err)

	_, ok := s.Get("flow-1")
	assert.False(t, ok)
	_, ok = s.Get("acu-2")
	assert.True(t, ok)
}

func TestStoreDeleteRequirementRemovesComputableForm(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	rqt := NewThing("rqt-1", CNameRequirement)
	mustInsert(t, s, rqt)

	rel := NewThing("rel-1", CNameRelation)
	rel.Set("requirement", "rqt-1")
	mustInsert(t, s, rel)

	pr := NewThing("pr-1", CNameParameterRelation)
	pr.Set("relation", "rel-1")
	mustInsert(t, s, pr)

	err := s.Delete([]string{"rqt-1"})
	require.Nil(t, err)

	_, ok := s.Get("rel-1")
	assert.False(t, ok)
	_, ok = s.Get("pr-1")
	assert.False(t, ok)
}

func TestStoreOwnerFallsBackToCreatorsOrganization(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	org := NewThing("org-1", CNameOrganization)
	mustInsert(t, s, org)

	person := NewThing("person-1", CNamePerson)
	person.Set("organization", "org-1")
	mustInsert(t, s, person)

	owned := NewThing("thing-1", CNameThing)
	owned.Meta.Creator = "person-1"
	saved, err := s.Insert(owned)
	require.Nil(t, err)
	assert.Equal(t, "org-1", saved.Meta.Owner)
}

func TestStoreOwnerFallsBackToPlatformRootWhenNoCreator(t *testing.T) {
	s := New(testRegistry(t), nil, nil)

	owned := NewThing("thing-1", CNameThing)
	saved, err := s.Insert(owned)
	require.Nil(t, err)
	assert.Equal(t, PlatformRootOrganization, saved.Meta.Owner)
}

type fakeSeeder struct{ seeded []string }

func (f *fakeSeeder) EnsureCanonicalParameters(oid string) { f.seeded = append(f.seeded, oid) }

func TestStoreSeedsCanonicalParametersOnHardwareProduct(t *testing.T) {
	s := New(testRegistry(t), nil, nil)
	seeder := &fakeSeeder{}
	s.SetParamSeeder(seeder)

	mustInsert(t, s, NewThing("hw-1", CNameHardwareProduct))
	require.Len(t, seeder.seeded, 1)
	assert.Equal(t, "hw-1", seeder.seeded[0])
}

type fakePurger struct{ purged []string }

func (f *fakePurger) PurgeRequirement(oid string) { f.purged = append(f.purged, oid) }

func TestStoreDeleteRequirementPurgesAllocationIndex(t *testing.T) {
	s := New(testRegistry(t), nil, nil)
	purger := &fakePurger{}
	s.SetAllocationIndexPurger(purger)

	mustInsert(t, s, NewThing("rqt-1", CNameRequirement))
	require.Nil(t, s.Delete([]string{"rqt-1"}))
	require.Len(t, purger.purged, 1)
	assert.Equal(t, "rqt-1", purger.purged[0])
}

func mustInsert(t *testing.T, s *Store, thing *Thing) {
	t.Helper()
	_, err := s.Insert(thing)
	require.Nil(t, err)
}
