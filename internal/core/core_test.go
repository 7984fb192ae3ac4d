package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/internal/permission"
	"github.com/ontocore/core/internal/store"
	"github.com/ontocore/core/pkg/config"
)

// fixtureExtractor stands in for the OWL parser external collaborator
// (spec.md §1 Non-goals) with a small, fixed class/property set.
type fixtureExtractor struct{}

func (fixtureExtractor) Namespaces() ([]kb.Namespace, error) {
	return []kb.Namespace{{Prefix: "core", URI: "urn:ontocore:core"}}, nil
}

func (fixtureExtractor) Classes() ([]kb.ClassExtract, error) {
	return []kb.ClassExtract{
		{ID: "c1", IDNamespace: "core", Name: store.CNameThing},
		{ID: "c2", IDNamespace: "core", Name: store.CNameProduct, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c3", IDNamespace: "core", Name: store.CNameHardwareProduct, Bases: []string{"core:" + store.CNameProduct}},
		{ID: "c4", IDNamespace: "core", Name: store.CNameAcu, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c5", IDNamespace: "core", Name: store.CNameOrganization, Bases: []string{"core:" + store.CNameThing}},
		{ID: "c6", IDNamespace: "core", Name: store.CNameRequirement, Bases: []string{"core:" + store.CNameThing}},
	}, nil
}

func (fixtureExtractor) Properties() ([]kb.PropertyExtract, error) {
	return []kb.PropertyExtract{
		{ID: "p1", IDNamespace: "core", Name: "assembly", Domain: "core:" + store.CNameAcu, Range: "core:" + store.CNameProduct, Functional: true},
		{ID: "p2", IDNamespace: "core", Name: "component", Domain: "core:" + store.CNameAcu, Range: "core:" + store.CNameProduct, Functional: true},
	}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.State.SchemaCacheDir = t.TempDir()
	cfg.Core.HomeDir = t.TempDir()
	cfg.Core.BackupDir = t.TempDir()
	cfg.Core.SessionSecret = "test-secret"
	return cfg
}

func TestNewWiresParamSeederAndAllocationPurger(t *testing.T) {
	c, cErr := New(testConfig(t), fixtureExtractor{})
	require.Nil(t, cErr)

	th := store.NewThing("hw-1", store.CNameHardwareProduct)
	_, cErr = c.Store.Insert(th)
	require.Nil(t, cErr)

	// Inserting a HardwareProduct reaches EnsureCanonicalParameters through
	// the seeder hook, which seeds the canonical CBE parameters.
	assert.Contains(t, c.Engine.ParametersFor("hw-1"), "m[CBE]")

	// Deleting a Requirement reaches PurgeRequirement through the purger hook.
	req := store.NewThing("rqt-1", store.CNameRequirement)
	_, cErr = c.Store.Insert(req)
	require.Nil(t, cErr)
	c.Engine.RefreshRequirementAllocation("rqt-1")
	_, ok := c.Engine.Allocation("rqt-1")
	require.True(t, ok)
	require.Nil(t, c.Store.Delete([]string{"rqt-1"}))
	_, ok = c.Engine.Allocation("rqt-1")
	assert.False(t, ok)
}

func TestNewPurgesDeprecatedRefDataBeforeCacheRebuild(t *testing.T) {
	cfg := testConfig(t)
	c, cErr := New(cfg, fixtureExtractor{})
	require.Nil(t, cErr)

	stale := store.NewThing("org-deprecated", store.CNameOrganization)
	stale.Meta.Deprecated = true
	_, cErr = c.Store.Insert(stale)
	require.Nil(t, cErr)
	require.NoError(t, c.Stop(context.Background()))

	c2, cErr := New(cfg, fixtureExtractor{})
	require.Nil(t, cErr)
	_, ok := c2.Store.Get("org-deprecated")
	assert.False(t, ok, "deprecated reference objects are purged at startup")
}

func TestSaveThenReopenRehydratesStore(t *testing.T) {
	cfg := testConfig(t)
	c, cErr := New(cfg, fixtureExtractor{})
	require.Nil(t, cErr)

	th := store.NewThing("hw-1", store.CNameHardwareProduct)
	th.Meta.Name = "Widget"
	_, cErr = c.Store.Insert(th)
	require.Nil(t, cErr)

	require.NoError(t, c.Stop(context.Background()))

	c2, cErr := New(cfg, fixtureExtractor{})
	require.Nil(t, cErr)
	got, ok := c2.Store.Get("hw-1")
	require.True(t, ok)
	assert.Equal(t, "Widget", got.Meta.Name)
}

func TestAuthorizeRoundTripsIssuedSession(t *testing.T) {
	cfg := testConfig(t)
	c, cErr := New(cfg, fixtureExtractor{})
	require.Nil(t, cErr)

	assertion, err := c.IssueSession("user-1", "org-1", permission.SiteModeServer, time.Hour)
	require.NoError(t, err)

	result, cErr := c.Authorize(assertion, nil)
	require.Nil(t, cErr)
	assert.Equal(t, "no object", result.Reason)
}

func TestStartWithoutCronIsNoop(t *testing.T) {
	c, cErr := New(testConfig(t), fixtureExtractor{})
	require.Nil(t, cErr)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
}
