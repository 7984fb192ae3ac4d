package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ontocore/core/internal/paramengine"
	"github.com/ontocore/core/internal/serializer"
	"github.com/ontocore/core/internal/store"
	"github.com/ontocore/core/pkg/coreerrors"
)

// Load reloads every snapshot file from homeDir (spec.md §4.6). A missing
// file is a clean "not found"; a malformed file is a "fail"; neither aborts
// the remaining files.
func (p *Persistence) Load(homeDir string) Report {
	report := Report{}
	report[fileMatrix] = p.loadMatrix(homeDir)
	if p.engine == nil {
		return report
	}
	report[fileParameters] = p.loadParameters(homeDir)
	report[fileDataElements] = p.loadDataElements(homeDir)
	report[fileComponents] = p.loadComponents(homeDir)
	report[fileSystems] = p.loadSystems(homeDir)
	report[fileRqtAllocs] = p.loadRqtAllocs(homeDir)
	report[fileModeDefs] = p.loadModeDefs(homeDir)
	return report
}

// readFile returns the file's bytes and a status: "not found" if absent,
// "fail" if unreadable, "success" with the bytes otherwise.
func readFile(dir, name string) ([]byte, coreerrors.PersistenceStatus) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coreerrors.PersistenceNotFound
		}
		return nil, coreerrors.PersistenceFail
	}
	return data, coreerrors.PersistenceSuccess
}

func (p *Persistence) loadMatrix(homeDir string) coreerrors.PersistenceStatus {
	data, status := readFile(homeDir, fileMatrix)
	p.recordRead(fileMatrix, status)
	if status != coreerrors.PersistenceSuccess {
		return status
	}

	var stored map[string]serializer.Record
	if err := json.Unmarshal(data, &stored); err != nil {
		p.log.WithField("file", fileMatrix).WithField("error", err).Error("persistence: matrix.json decode failed")
		p.recordRead(fileMatrix, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}

	records := make([]serializer.Record, 0, len(stored))
	for oid, rec := range stored {
		if _, ok := rec["oid"]; !ok {
			rec["oid"] = oid
		}
		records = append(records, rec)
	}

	opts := serializer.DeserializeOptions{ForceUpdate: true}
	if p.engine != nil {
		opts.Parameters = p.engine
		opts.RefreshComponents = func(oid, cname string) {
			if cname != store.CNameAcu {
				return
			}
			if acu, ok := p.store.Get(oid); ok {
				p.engine.RefreshComponentsFor(acu.RefOID("assembly"))
			}
		}
	}
	if cErr := serializer.Deserialize(p.store, p.log, records, opts); cErr != nil {
		p.log.WithField("file", fileMatrix).WithField("error", cErr).Error("persistence: matrix.json replay failed")
		p.recordRead(fileMatrix, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}
	return coreerrors.PersistenceSuccess
}

func (p *Persistence) loadParameters(homeDir string) coreerrors.PersistenceStatus {
	data, status := readFile(homeDir, fileParameters)
	p.recordRead(fileParameters, status)
	if status != coreerrors.PersistenceSuccess {
		return status
	}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		p.log.WithField("file", fileParameters).WithField("error", err).Error("persistence: parameters.json decode failed")
		p.recordRead(fileParameters, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}

	migrated := migrateParameterDict(raw)
	p.engine.LoadParameters(migrated)
	return coreerrors.PersistenceSuccess
}

func (p *Persistence) loadDataElements(homeDir string) coreerrors.PersistenceStatus {
	data, status := readFile(homeDir, fileDataElements)
	p.recordRead(fileDataElements, status)
	if status != coreerrors.PersistenceSuccess {
		return status
	}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		p.log.WithField("file", fileDataElements).WithField("error", err).Error("persistence: data_elements.json decode failed")
		p.recordRead(fileDataElements, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}

	migrated := migrateDataElementDict(raw)
	p.engine.LoadDataElements(migrated)
	return coreerrors.PersistenceSuccess
}

func (p *Persistence) loadComponents(homeDir string) coreerrors.PersistenceStatus {
	data, status := readFile(homeDir, fileComponents)
	p.recordRead(fileComponents, status)
	if status != coreerrors.PersistenceSuccess {
		return status
	}
	var stored map[string][]paramengine.ComponentUsage
	if err := json.Unmarshal(data, &stored); err != nil {
		p.log.WithField("file", fileComponents).WithField("error", err).Error("persistence: components.json decode failed")
		p.recordRead(fileComponents, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}
	p.engine.LoadComponents(stored)
	return coreerrors.PersistenceSuccess
}

func (p *Persistence) loadSystems(homeDir string) coreerrors.PersistenceStatus {
	data, status := readFile(homeDir, fileSystems)
	p.recordRead(fileSystems, status)
	if status != coreerrors.PersistenceSuccess {
		return status
	}
	var stored map[string][]paramengine.SystemUsage
	if err := json.Unmarshal(data, &stored); err != nil {
		p.log.WithField("file", fileSystems).WithField("error", err).Error("persistence: systems.json decode failed")
		p.recordRead(fileSystems, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}
	p.engine.LoadSystems(stored)
	return coreerrors.PersistenceSuccess
}

func (p *Persistence) loadRqtAllocs(homeDir string) coreerrors.PersistenceStatus {
	data, status := readFile(homeDir, fileRqtAllocs)
	p.recordRead(fileRqtAllocs, status)
	if status != coreerrors.PersistenceSuccess {
		return status
	}
	var stored map[string][]rqtAllocEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		p.log.WithField("file", fileRqtAllocs).WithField("error", err).Error("persistence: rqt_allocs.json decode failed")
		p.recordRead(fileRqtAllocs, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}

	entries := make(map[string]paramengine.AllocationEntry, len(stored))
	converse := make(map[string][]string, len(stored))
	for reqOID, rows := range stored {
		if len(rows) == 0 {
			continue
		}
		row := rows[0]
		entry := paramengine.AllocationEntry{
			UsageOID:    row.UsageOID,
			ObjectOID:   row.ObjOID,
			AllocRef:    row.AllocRef,
			ParameterID: row.ParameterID,
			Constraint: paramengine.Constraint{
				Units:          row.Units,
				Target:         row.Target,
				Max:            row.Max,
				Min:            row.Min,
				Tolerance:      row.Tolerance,
				Upper:          row.Upper,
				Lower:          row.Lower,
				ConstraintType: row.ConstraintType,
				ToleranceType:  row.ToleranceType,
			},
		}
		entries[reqOID] = entry
		converse[entry.UsageOID] = append(converse[entry.UsageOID], reqOID)
	}
	p.engine.LoadAllocations(entries, converse)
	return coreerrors.PersistenceSuccess
}

func (p *Persistence) loadModeDefs(homeDir string) coreerrors.PersistenceStatus {
	data, status := readFile(homeDir, fileModeDefs)
	p.recordRead(fileModeDefs, status)
	if status != coreerrors.PersistenceSuccess {
		return status
	}
	var stored map[string]paramengine.ModeTable
	if err := json.Unmarshal(data, &stored); err != nil {
		p.log.WithField("file", fileModeDefs).WithField("error", err).Error("persistence: mode_defs.json decode failed")
		p.recordRead(fileModeDefs, coreerrors.PersistenceFail)
		return coreerrors.PersistenceFail
	}
	p.engine.LoadModeTables(stored)
	return coreerrors.PersistenceSuccess
}
