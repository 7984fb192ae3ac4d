package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/internal/schema"
	"github.com/ontocore/core/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()

	classes := []kb.ClassExtract{
		{ID: "c1", IDNamespace: "core", Name: store.CNameThing},
		{ID: "c2", IDNamespace: "core", Name: store.CNameProduct, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c3", IDNamespace: "core", Name: store.CNameHardwareProduct, Bases: []string{"core:" + store.CNameProduct}},
		{ID: "c4", IDNamespace: "core", Name: store.CNameAcu, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c5", IDNamespace: "core", Name: store.CNameRole, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c6", IDNamespace: "core", Name: store.CNameRoleAssignment, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c7", IDNamespace: "core", Name: store.CNamePerson, Bases: []string{"core:" + store.CNameThing}},
	}

	objProp := func(id, name, domain, rng string) kb.PropertyExtract {
		return kb.PropertyExtract{ID: id, IDNamespace: "core", Name: name, Domain: "core:" + domain, Range: "core:" + rng, Functional: true}
	}

	properties := []kb.PropertyExtract{
		objProp("p1", "assembly", store.CNameAcu, store.CNameProduct),
		objProp("p2", "component", store.CNameAcu, store.CNameProduct),
		objProp("p3", "assigned_role", store.CNameRoleAssignment, store.CNameRole),
		objProp("p4", "assigned_to", store.CNameRoleAssignment, store.CNamePerson),
		objProp("p5", "role_assignment_context", store.CNameRoleAssignment, store.CNameThing),
	}

	reg, err := schema.NewRegistry(nil, nil, classes, properties)
	require.Nil(t, err)
	return store.New(reg, nil, nil)
}

func TestRecordRoundTrip(t *testing.T) {
	th := store.NewThing("oid-1", store.CNameHardwareProduct)
	th.Meta.Name = "Widget"
	th.Meta.ModDatetime = "2026-01-01T00:00:00Z"
	th.Meta.Owner = "org-1"
	th.Meta.Versionable = true
	th.Meta.Version = 2
	th.Meta.Iteration = 3
	th.Set("mass_class", "small")

	rec := toRecord(th, nil)
	assert.Equal(t, store.CNameHardwareProduct, rec[classTagKey])
	assert.Equal(t, "small", rec["mass_class"])

	back := fromRecord(rec)
	assert.Equal(t, th.OID, back.OID)
	assert.Equal(t, th.CName, back.CName)
	assert.Equal(t, th.Meta.Name, back.Meta.Name)
	assert.Equal(t, th.Meta.Owner, back.Meta.Owner)
	assert.Equal(t, th.Meta.Version, back.Meta.Version)
	assert.Equal(t, th.Meta.Iteration, back.Meta.Iteration)
	v, ok := back.Get("mass_class")
	require.True(t, ok)
	assert.Equal(t, "small", v)
}

func TestSerializeAcuIncludesAssemblyAndComponent(t *testing.T) {
	st := testStore(t)

	assembly := store.NewThing("assembly-1", store.CNameHardwareProduct)
	_, err := st.Insert(assembly)
	require.Nil(t, err)
	component := store.NewThing("component-1", store.CNameHardwareProduct)
	_, err = st.Insert(component)
	require.Nil(t, err)

	acu := store.NewThing("acu-1", store.CNameAcu)
	acu.Set("assembly", "assembly-1")
	acu.Set("component", "component-1")
	_, err = st.Insert(acu)
	require.Nil(t, err)

	ser := New(st)
	records := ser.Serialize([]string{"acu-1"}, Options{})

	oids := make(map[string]bool)
	for _, r := range records {
		oids[r[fieldOID].(string)] = true
	}
	assert.True(t, oids["acu-1"])
	assert.True(t, oids["assembly-1"])
	assert.True(t, oids["component-1"])
	assert.Len(t, records, 3)
}

func TestSerializeExcludesReferenceDataByDefault(t *testing.T) {
	st := testStore(t)

	role := store.NewThing("role-1", store.CNameRole)
	_, err := st.Insert(role)
	require.Nil(t, err)
	person := store.NewThing("person-1", store.CNamePerson)
	_, err = st.Insert(person)
	require.Nil(t, err)

	ra := store.NewThing("ra-1", store.CNameRoleAssignment)
	ra.Set("assigned_role", "role-1")
	ra.Set("assigned_to", "person-1")
	_, err = st.Insert(ra)
	require.Nil(t, err)

	ser := New(st)

	withoutRefData := ser.Serialize([]string{"ra-1"}, Options{})
	oids := make(map[string]bool)
	for _, r := range withoutRefData {
		oids[r[fieldOID].(string)] = true
	}
	assert.True(t, oids["ra-1"])
	assert.True(t, oids["person-1"])
	assert.False(t, oids["role-1"], "Role is reference data and excluded by default")

	withRefData := ser.Serialize([]string{"ra-1"}, Options{IncludeReferenceData: true})
	oids = make(map[string]bool)
	for _, r := range withRefData {
		oids[r[fieldOID].(string)] = true
	}
	assert.True(t, oids["role-1"])
}

func TestDeserializeTopologicalOrder(t *testing.T) {
	st := testStore(t)

	var referentsPresentWhenAcuLands bool
	records := []Record{
		// Deliberately out of order: the Acu record precedes its referents
		// in the input slice; the fixed topological order must still
		// deserialize HardwareProduct ahead of Acu.
		{classTagKey: store.CNameAcu, fieldOID: "acu-1", "assembly": "assembly-1", "component": "component-1"},
		{classTagKey: store.CNameHardwareProduct, fieldOID: "assembly-1"},
		{classTagKey: store.CNameHardwareProduct, fieldOID: "component-1"},
	}

	cErr := Deserialize(st, nil, records, DeserializeOptions{
		RefreshComponents: func(oid, cname string) {
			_, assemblyOK := st.Get("assembly-1")
			_, componentOK := st.Get("component-1")
			referentsPresentWhenAcuLands = assemblyOK && componentOK
		},
	})
	require.Nil(t, cErr)

	_, ok := st.Get("acu-1")
	assert.True(t, ok)
	assert.True(t, referentsPresentWhenAcuLands, "HardwareProduct referents must be deserialized before the Acu that references them")
}

func TestDeserializeSkipsOlderModDatetime(t *testing.T) {
	st := testStore(t)

	newer := Record{classTagKey: store.CNameHardwareProduct, fieldOID: "p-1", fieldModDatetime: "2026-02-01T00:00:00Z", "mass_class": "new"}
	older := Record{classTagKey: store.CNameHardwareProduct, fieldOID: "p-1", fieldModDatetime: "2026-01-01T00:00:00Z", "mass_class": "old"}

	require.Nil(t, Deserialize(st, nil, []Record{newer}, DeserializeOptions{}))
	require.Nil(t, Deserialize(st, nil, []Record{older}, DeserializeOptions{}))

	got, ok := st.Get("p-1")
	require.True(t, ok)
	v, _ := got.Get("mass_class")
	assert.Equal(t, "new", v, "older record must not overwrite a newer mod_datetime")

	require.Nil(t, Deserialize(st, nil, []Record{older}, DeserializeOptions{ForceUpdate: true}))
	got, ok = st.Get("p-1")
	require.True(t, ok)
	v, _ = got.Get("mass_class")
	assert.Equal(t, "old", v, "force_update bypasses the mod_datetime check")
}

func TestMigrationIdempotence(t *testing.T) {
	rec := Record{
		classTagKey:             "Acu",
		fieldOID:                "acu-1",
		"assembly":              "activity-1",
		"component":             "activity-2",
		"reference_designator":  "A1",
	}

	once := applyMigrations(rec, "2.0.0")
	require.Len(t, once, 1)
	assert.Equal(t, "ActCompRel", once[0][classTagKey])
	assert.Equal(t, "activity-1", once[0]["composite_activity"])
	assert.Equal(t, "activity-2", once[0]["sub_activity"])
	assert.Equal(t, "A1", once[0]["sub_activity_role"])
	_, hasAssembly := once[0]["assembly"]
	assert.False(t, hasAssembly)

	twice := applyMigrations(once[0], "2.0.0")
	require.Len(t, twice, 1)
	assert.Equal(t, once[0], twice[0])
}

func TestDecodeRecordsSkipsMalformed(t *testing.T) {
	raw := []byte(`[
		{"_cname":"HardwareProduct","oid":"p-1"},
		{"oid":"no-class-tag"},
		"not-an-object",
		{"_cname":"HardwareProduct","oid":"p-2"}
	]`)

	records, skipped := DecodeRecords(raw, nil)
	require.Len(t, records, 2)
	assert.Equal(t, "p-1", records[0][fieldOID])
	assert.Equal(t, "p-2", records[1][fieldOID])
	assert.Equal(t, 2, skipped)
}

func TestPeekClassAndTimestampRejectsInvalidJSON(t *testing.T) {
	_, _, ok := PeekClassAndTimestamp([]byte(`{not json`))
	assert.False(t, ok)
}
