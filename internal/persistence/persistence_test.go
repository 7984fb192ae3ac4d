package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/internal/paramengine"
	"github.com/ontocore/core/internal/schema"
	"github.com/ontocore/core/internal/store"
	"github.com/ontocore/core/internal/units"
	"github.com/ontocore/core/pkg/coreerrors"
)

func testSetup(t *testing.T) (*store.Store, *paramengine.Engine) {
	t.Helper()

	classes := []kb.ClassExtract{
		{ID: "c1", IDNamespace: "core", Name: store.CNameThing},
		{ID: "c2", IDNamespace: "core", Name: store.CNameProduct, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c3", IDNamespace: "core", Name: store.CNameHardwareProduct, Bases: []string{"core:" + store.CNameProduct}},
		{ID: "c4", IDNamespace: "core", Name: store.CNameAcu, Bases: []string{"core:" + store.CNameThing}},
	}
	objProp := func(id, name, domain, rng string) kb.PropertyExtract {
		return kb.PropertyExtract{ID: id, IDNamespace: "core", Name: name, Domain: "core:" + domain, Range: "core:" + rng, Functional: true}
	}
	properties := []kb.PropertyExtract{
		objProp("p1", "assembly", store.CNameAcu, store.CNameProduct),
		objProp("p2", "component", store.CNameAcu, store.CNameProduct),
	}

	reg, err := schema.NewRegistry(nil, nil, classes, properties)
	require.Nil(t, err)
	st := store.New(reg, nil, nil)
	eng := paramengine.New(st, units.NewBuiltin(), nil, nil)
	return st, eng
}

func TestSaveThenLoadRoundTripsMatrixAndParameters(t *testing.T) {
	st, eng := testSetup(t)

	th := store.NewThing("hw-1", store.CNameHardwareProduct)
	th.Meta.Name = "Widget"
	th.Meta.ModDatetime = "2026-01-01T00:00:00Z"
	th.Set("mass_class", "small")
	_, cErr := st.Insert(th)
	require.Nil(t, cErr)
	eng.LoadParameters(map[string]map[string]float64{"hw-1": {"m[CBE]": 12.5}})

	p := New(st, eng, nil, nil)
	home := t.TempDir()
	saveReport := p.Save(home)
	assert.Equal(t, coreerrors.PersistenceSuccess, saveReport[fileMatrix])
	assert.Equal(t, coreerrors.PersistenceSuccess, saveReport[fileParameters])

	_, err := os.Stat(filepath.Join(home, fileMatrix))
	require.NoError(t, err)

	st2, eng2 := testSetup(t)
	p2 := New(st2, eng2, nil, nil)
	loadReport := p2.Load(home)
	assert.Equal(t, coreerrors.PersistenceSuccess, loadReport[fileMatrix])
	assert.Equal(t, coreerrors.PersistenceSuccess, loadReport[fileParameters])

	got, ok := st2.Get("hw-1")
	require.True(t, ok)
	assert.Equal(t, "Widget", got.Meta.Name)
	v, _ := got.Get("mass_class")
	assert.Equal(t, "small", v)
	assert.Equal(t, 12.5, eng2.AllParameters()["hw-1"]["m[CBE]"])
}

func TestLoadMissingFileIsNotFound(t *testing.T) {
	st, eng := testSetup(t)
	p := New(st, eng, nil, nil)
	home := t.TempDir()

	report := p.Load(home)
	assert.Equal(t, coreerrors.PersistenceNotFound, report[fileMatrix])
	assert.Equal(t, coreerrors.PersistenceNotFound, report[fileParameters])
}

func TestLoadMalformedFileIsFail(t *testing.T) {
	st, eng := testSetup(t)
	p := New(st, eng, nil, nil)
	home := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(home, fileMatrix), []byte("{not json"), 0o644))

	report := p.Load(home)
	assert.Equal(t, coreerrors.PersistenceFail, report[fileMatrix])
}

func TestSaveWritesDatedBackupDirectory(t *testing.T) {
	st, eng := testSetup(t)
	p := New(st, eng, nil, nil)
	home := t.TempDir()

	p.Save(home)

	backupDir := filepath.Join(home, "backup", dateStamp())
	_, err := os.Stat(filepath.Join(backupDir, fileMatrix))
	require.NoError(t, err, "Save must mirror the snapshot into a dated backup directory")

	// a second Save the same day overwrites rather than creating a sibling
	p.Save(home)
	entries, err := os.ReadDir(filepath.Join(home, "backup"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only one backup directory per calendar day is retained")
}

func TestLoadMigratesOldDictShapedParameters(t *testing.T) {
	st, eng := testSetup(t)
	p := New(st, eng, nil, nil)
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(home, 0o755))

	oldFormat := map[string]map[string]interface{}{
		"hw-1": {
			"m[CBE]": map[string]interface{}{"value": 7.0, "units": "kg"},
		},
	}
	data, err := json.Marshal(oldFormat)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(home, fileParameters), data, 0o644))

	report := p.Load(home)
	assert.Equal(t, coreerrors.PersistenceSuccess, report[fileParameters])
	assert.Equal(t, 7.0, eng.AllParameters()["hw-1"]["m[CBE]"])
}

func TestSchedulerTriggersSave(t *testing.T) {
	st, eng := testSetup(t)
	p := New(st, eng, nil, nil)
	home := t.TempDir()

	s, err := NewScheduler(p, home, "@every 1h")
	require.NoError(t, err)
	s.tick()

	_, statErr := os.Stat(filepath.Join(home, fileMatrix))
	require.NoError(t, statErr)
	s.Stop()
}
