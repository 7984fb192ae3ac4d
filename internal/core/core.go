// Package core assembles the Knowledge Base, Object Store, Parametric
// Engine, Serializer, Permission Oracle, and Persistence into the single
// running instance described in spec.md §2: construction wires the hooks
// each subsystem exposes to its neighbors, and Start/Stop drive the
// lifecycle a long-running process needs around that wiring.
package core

import (
	"context"
	"time"

	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/internal/paramengine"
	"github.com/ontocore/core/internal/permission"
	"github.com/ontocore/core/internal/permission/token"
	"github.com/ontocore/core/internal/persistence"
	"github.com/ontocore/core/internal/schema"
	"github.com/ontocore/core/internal/serializer"
	"github.com/ontocore/core/internal/store"
	"github.com/ontocore/core/internal/units"
	"github.com/ontocore/core/pkg/config"
	"github.com/ontocore/core/pkg/coreerrors"
	"github.com/ontocore/core/pkg/logger"
	"github.com/ontocore/core/pkg/metrics"
)

// Core binds the four tightly coupled subsystems spec.md §1 names, plus the
// ambient config/logging/metrics layer each of them shares.
type Core struct {
	Config     *config.Config
	Log        *logger.Logger
	Metrics    *metrics.Registry
	Registry   *schema.Registry
	Store      *store.Store
	Units      units.UnitService
	Engine     *paramengine.Engine
	Serializer *serializer.Serializer
	Permission *permission.Oracle
	Persist    *persistence.Persistence
	scheduler  *persistence.Scheduler
}

// New wires and starts up a Core against cfg, following the control flow of
// spec.md §2: KB extracts (if stale) rebuild schemas, the Object Store
// rehydrates from the last snapshot, deprecated reference data is purged, the
// Parametric Engine repopulates its caches, and the Permission Oracle builds
// its role indices. extractor supplies the OWL-derived class/property/
// namespace enumerations; the core never parses ontology files itself
// (spec.md §1 Non-goals).
func New(cfg *config.Config, extractor kb.Extractor) (*Core, *coreerrors.CoreError) {
	if cfg == nil {
		cfg = config.Defaults()
	}

	log := logger.New(logger.Config(cfg.Logging))
	m := metrics.New()

	schemaCache := schema.NewCache(cfg.State.SchemaCacheDir, log)
	registry, cErr := schemaCache.Load(extractor, cfg.State.ForceOntologyRebuild, log)
	if cErr != nil {
		return nil, cErr
	}

	st := store.New(registry, log, m)
	unitSvc := units.NewBuiltin()
	eng := paramengine.New(st, unitSvc, log, m)
	eng.SetDefaults(cfg.State.ParmDefaults)

	// Wire the hooks the maintainer review flagged as dead: the Object
	// Store asks the engine to seed canonical parameters on a new
	// HardwareProduct, and to purge a deleted Requirement's allocation-
	// index entry, without either package importing the other's types.
	st.SetParamSeeder(eng)
	st.SetAllocationIndexPurger(eng)

	c := &Core{
		Config:     cfg,
		Log:        log,
		Metrics:    m,
		Registry:   registry,
		Store:      st,
		Units:      unitSvc,
		Engine:     eng,
		Serializer: serializer.New(st),
		Permission: permission.New(st),
		Persist:    persistence.New(st, eng, log, m),
	}
	c.Persist.SetBackupDir(cfg.Core.BackupDir)

	if report := c.Persist.Load(cfg.Core.HomeDir); hasFailure(report) {
		log.WithField("report", report).Warn("core: snapshot reload completed with one or more failures")
	}

	c.purgeDeprecatedRefData()

	eng.BuildParameterDefinitionCache()
	eng.BuildDataElementDefinitionCache()
	eng.RebuildIndices()

	c.Permission.RefreshRoleProductTypes()

	return c, nil
}

// hasFailure reports whether report carries any non-success, non-not-found
// status; a missing file on first boot is expected, not a warning.
func hasFailure(report persistence.Report) bool {
	for _, status := range report {
		if status == coreerrors.PersistenceFail {
			return true
		}
	}
	return false
}

// purgeDeprecatedRefData removes every Thing flagged Meta.Deprecated before
// the engine rebuilds its caches (SPEC_FULL.md "Supplemented features":
// "Deprecated reference-object purge at startup", supplementing spec.md §3
// Lifecycle).
// A single refused deletion (e.g. a deprecated Product still referenced by a
// live Acu) is logged and skipped rather than aborting the rest of the
// purge.
func (c *Core) purgeDeprecatedRefData() {
	var deprecated []string
	for _, t := range c.Store.GetAllSubtypes(store.CNameThing) {
		if t.Meta.Deprecated {
			deprecated = append(deprecated, t.OID)
		}
	}
	for _, oid := range deprecated {
		if cErr := c.Store.Delete([]string{oid}); cErr != nil {
			c.Log.WithField("oid", oid).WithField("error", cErr.Error()).
				Warn("core: deprecated reference object could not be purged")
		}
	}
}

// Start begins background work: the scheduled snapshot cron, when
// cfg.Core.SnapshotCron is set (SPEC_FULL.md §4.6 expansion "Scheduled
// snapshotting"). A Core with no cron expression runs with snapshotting
// only on explicit Save calls.
func (c *Core) Start(ctx context.Context) error {
	if c.Config.Core.SnapshotCron == "" {
		return nil
	}
	s, err := persistence.NewScheduler(c.Persist, c.Config.Core.HomeDir, c.Config.Core.SnapshotCron)
	if err != nil {
		return err
	}
	c.scheduler = s
	c.scheduler.Start()
	c.Log.WithField("cron", c.Config.Core.SnapshotCron).Info("core: scheduled snapshotting started")
	return nil
}

// Stop halts the snapshot schedule and takes one final snapshot so no
// in-memory mutation since the last scheduled tick is lost.
func (c *Core) Stop(ctx context.Context) error {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	report := c.Persist.Save(c.Config.Core.HomeDir)
	if hasFailure(report) {
		c.Log.WithField("report", report).Error("core: final snapshot on shutdown had failures")
	}
	return nil
}

// Authorize decodes a signed session assertion and evaluates the Permission
// Oracle against obj for the resolved user, tying the token, permission, and
// config subsystems together the way a transport layer (out of scope here)
// would on every request (spec.md §4.5, SPEC_FULL.md expansion "User
// resolution"). An assertion that fails to decode does not abort the call:
// obj is evaluated with no resolvable user, and the decode diagnostic is
// returned alongside that Result.
func (c *Core) Authorize(assertion string, obj *store.Thing) (permission.Result, *coreerrors.CoreError) {
	resolved, cErr := token.Decode(assertion, []byte(c.Config.Core.SessionSecret))

	var user *store.Thing
	if cErr == nil && resolved.UserOID != "" {
		user, _ = c.Store.Get(resolved.UserOID)
	}

	mode := resolved.Mode
	if c.Config.Core.OfflineClient {
		mode = permission.SiteModeOfflineClient
	}
	opts := permission.Options{
		LocalAdmin: c.Config.Core.LocalAdmin,
		Permissive: c.Config.Core.PermissiveMode,
		Mode:       mode,
	}
	return c.Permission.GetPerms(obj, user, opts), cErr
}

// IssueSession mints a signed session assertion for userOID, a convenience
// for dev harnesses and tests standing in for the identity provider a real
// deployment would front the core with.
func (c *Core) IssueSession(userOID, org string, mode permission.SiteMode, ttl time.Duration) (string, error) {
	return token.Issue(userOID, org, mode, []byte(c.Config.Core.SessionSecret), ttl)
}
