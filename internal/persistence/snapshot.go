// Package persistence implements the fixed JSON snapshot/reload named in
// spec.md §4.6: matrix.json (the full object store) plus the Parametric
// Engine's cache files, a dated daily backup directory, and auto-migration
// of the old dict-shaped parameter/data-element format.
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ontocore/core/internal/paramengine"
	"github.com/ontocore/core/internal/serializer"
	"github.com/ontocore/core/internal/store"
	"github.com/ontocore/core/pkg/coreerrors"
	"github.com/ontocore/core/pkg/logger"
	"github.com/ontocore/core/pkg/metrics"
)

const (
	fileMatrix       = "matrix.json"
	fileParameters   = "parameters.json"
	fileDataElements = "data_elements.json"
	fileComponents   = "components.json"
	fileSystems      = "systems.json"
	fileRqtAllocs    = "rqt_allocs.json"
	fileModeDefs     = "mode_defs.json"
)

// Report carries one status code per snapshot file, as spec.md §7 requires
// ("read failure returns a status code... write failure is logged and
// aggregated").
type Report map[string]coreerrors.PersistenceStatus

// Persistence owns the snapshot/reload path for an Object Store and its
// bound Parametric Engine.
type Persistence struct {
	store      *store.Store
	engine     *paramengine.Engine
	log        *logger.Logger
	metrics    *metrics.Registry
	backupBase string
}

// New constructs a Persistence bound to st and eng. eng may be nil, in
// which case only matrix.json is snapshotted (the caches are simply empty).
func New(st *store.Store, eng *paramengine.Engine, log *logger.Logger, m *metrics.Registry) *Persistence {
	if log == nil {
		log = logger.NewDefault("persistence")
	}
	return &Persistence{store: st, engine: eng, log: log, metrics: m}
}

// SetBackupDir overrides the backup directory's parent (the dated subdirectory
// is still appended per save). Defaults to homeDir/backup when unset,
// matching the source layout; config.CoreConfig.BackupDir is the intended
// caller for an override.
func (p *Persistence) SetBackupDir(dir string) { p.backupBase = dir }

// Save writes every snapshot file to homeDir, then to a dated backup
// directory (spec.md §4.6). Each file write is best-effort: one failure is
// recorded in the Report and does not prevent the rest from being attempted
// (spec.md §7).
func (p *Persistence) Save(homeDir string) Report {
	report := p.writeAll(homeDir)

	backupBase := p.backupBase
	if backupBase == "" {
		backupBase = filepath.Join(homeDir, "backup")
	}
	backupDir, err := dailyBackupDir(backupBase)
	if err != nil {
		p.log.WithField("error", err).Error("persistence: could not create backup directory")
		return report
	}
	p.writeAll(backupDir)
	return report
}

func (p *Persistence) writeAll(dir string) Report {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.log.WithField("dir", dir).WithField("error", err).Error("persistence: could not create snapshot directory")
		report := Report{}
		for _, f := range p.fileNames() {
			report[f] = coreerrors.PersistenceFail
		}
		return report
	}

	report := Report{}
	report[fileMatrix] = p.writeJSON(dir, fileMatrix, p.matrixSnapshot())
	if p.engine != nil {
		report[fileParameters] = p.writeJSON(dir, fileParameters, p.engine.AllParameters())
		report[fileDataElements] = p.writeJSON(dir, fileDataElements, p.engine.AllDataElements())
		report[fileComponents] = p.writeJSON(dir, fileComponents, p.engine.AllComponents())
		report[fileSystems] = p.writeJSON(dir, fileSystems, p.engine.AllSystems())
		report[fileRqtAllocs] = p.writeJSON(dir, fileRqtAllocs, rqtAllocsFile(p.engine))
		report[fileModeDefs] = p.writeJSON(dir, fileModeDefs, p.engine.AllModeTables())
	}
	return report
}

func (p *Persistence) fileNames() []string {
	return []string{fileMatrix, fileParameters, fileDataElements, fileComponents, fileSystems, fileRqtAllocs, fileModeDefs}
}

// matrixSnapshot serializes every Thing in the store to the matrix.json
// shape: { oid: { _cname, <field>: <value>, ... } } (spec.md §6).
func (p *Persistence) matrixSnapshot() map[string]serializer.Record {
	all := p.store.GetAllSubtypes(store.CNameThing)
	seeds := make([]string, len(all))
	for i, t := range all {
		seeds[i] = t.OID
	}

	ser := serializer.New(p.store)
	opts := serializer.Options{IncludeReferenceData: true, IncludeComponents: true}
	if p.engine != nil {
		opts.Parameters = p.engine
	}
	records := ser.Serialize(seeds, opts)

	out := make(map[string]serializer.Record, len(records))
	for _, rec := range records {
		if oid, ok := rec["oid"].(string); ok {
			out[oid] = rec
		}
	}
	return out
}

func (p *Persistence) writeJSON(dir, name string, v interface{}) coreerrors.PersistenceStatus {
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		p.recordWrite(name, coreerrors.PersistenceFail)
		p.log.WithField("file", name).WithField("error", err).Error("persistence: marshal failed")
		return coreerrors.PersistenceFail
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		p.recordWrite(name, coreerrors.PersistenceFail)
		p.log.WithField("file", name).WithField("error", err).Error("persistence: write failed")
		return coreerrors.PersistenceFail
	}
	p.recordWrite(name, coreerrors.PersistenceSuccess)
	return coreerrors.PersistenceSuccess
}

func (p *Persistence) recordWrite(file string, status coreerrors.PersistenceStatus) {
	if p.metrics != nil {
		p.metrics.SnapshotWrites.WithLabelValues(file, string(status)).Inc()
	}
}

func (p *Persistence) recordRead(file string, status coreerrors.PersistenceStatus) {
	if p.metrics != nil {
		p.metrics.SnapshotReads.WithLabelValues(file, string(status)).Inc()
	}
}

// dailyBackupDir returns base/<today>, creating it if absent (spec.md §4.6:
// "a backup directory dated by calendar day... only one backup per day is
// retained").
func dailyBackupDir(base string) (string, error) {
	dir := filepath.Join(base, dateStamp())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// rqtAllocEntry is the rqt_allocs.json row shape (spec.md §6): one JSON
// object per row, with usage_oid, obj_oid, alloc_ref, pid and the constraint
// fields as named keys rather than a positional array.
type rqtAllocEntry struct {
	UsageOID       string  `json:"usage_oid"`
	ObjOID         string  `json:"obj_oid"`
	AllocRef       string  `json:"alloc_ref"`
	ParameterID    string  `json:"pid"`
	Units          string  `json:"units"`
	Target         float64 `json:"target"`
	Max            float64 `json:"max"`
	Min            float64 `json:"min"`
	Tolerance      float64 `json:"tol"`
	Upper          float64 `json:"upper"`
	Lower          float64 `json:"lower"`
	ConstraintType string  `json:"constraint_type"`
	ToleranceType  string  `json:"tol_type"`
}

// rqtAllocsFile reshapes the engine's allocation index into the
// rqt_oid -> [entry] map named in spec.md §6.
func rqtAllocsFile(eng *paramengine.Engine) map[string][]rqtAllocEntry {
	entries, converse := eng.AllAllocations()
	out := make(map[string][]rqtAllocEntry, len(entries))
	for reqOID, entry := range entries {
		out[reqOID] = []rqtAllocEntry{{
			UsageOID:       entry.UsageOID,
			ObjOID:         entry.ObjectOID,
			AllocRef:       entry.AllocRef,
			ParameterID:    entry.ParameterID,
			Units:          entry.Constraint.Units,
			Target:         entry.Constraint.Target,
			Max:            entry.Constraint.Max,
			Min:            entry.Constraint.Min,
			Tolerance:      entry.Constraint.Tolerance,
			Upper:          entry.Constraint.Upper,
			Lower:          entry.Constraint.Lower,
			ConstraintType: entry.Constraint.ConstraintType,
			ToleranceType:  entry.Constraint.ToleranceType,
		}}
	}
	_ = converse // rebuilt from entries on load; not separately persisted
	return out
}
