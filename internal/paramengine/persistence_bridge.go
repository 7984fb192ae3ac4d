package paramengine

// This file exposes the engine's caches wholesale, for internal/persistence
// to snapshot to and reload from the files named in spec.md §4.6
// (parameters.json, data_elements.json, components.json, systems.json,
// rqt_allocs.json, mode_defs.json). Each cache is otherwise owned and
// mutated incrementally by the engine; these are bulk export/import paths
// only, used at snapshot boundaries.

// AllParameters returns a deep copy of the parameterz cache.
func (e *Engine) AllParameters() map[string]map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]map[string]float64, len(e.parameterz))
	for oid, bucket := range e.parameterz {
		cp := make(map[string]float64, len(bucket))
		for k, v := range bucket {
			cp[k] = v
		}
		out[oid] = cp
	}
	return out
}

// LoadParameters installs the parameterz cache wholesale, replacing any
// existing contents (spec.md §4.6 load).
func (e *Engine) LoadParameters(data map[string]map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parameterz = make(map[string]map[string]float64, len(data))
	for oid, bucket := range data {
		cp := make(map[string]float64, len(bucket))
		for k, v := range bucket {
			cp[k] = v
		}
		e.parameterz[oid] = cp
	}
}

// AllDataElements returns a deep copy of the data_elementz cache.
func (e *Engine) AllDataElements() map[string]map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]map[string]interface{}, len(e.dataElementz))
	for oid, bucket := range e.dataElementz {
		cp := make(map[string]interface{}, len(bucket))
		for k, v := range bucket {
			cp[k] = v
		}
		out[oid] = cp
	}
	return out
}

// LoadDataElements installs the data_elementz cache wholesale.
func (e *Engine) LoadDataElements(data map[string]map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dataElementz = make(map[string]map[string]interface{}, len(data))
	for oid, bucket := range data {
		cp := make(map[string]interface{}, len(bucket))
		for k, v := range bucket {
			cp[k] = v
		}
		e.dataElementz[oid] = cp
	}
}

// AllComponents returns a copy of the componentz index.
func (e *Engine) AllComponents() map[string][]ComponentUsage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]ComponentUsage, len(e.componentz))
	for oid, usages := range e.componentz {
		cp := make([]ComponentUsage, len(usages))
		copy(cp, usages)
		out[oid] = cp
	}
	return out
}

// LoadComponents installs the componentz index wholesale, bypassing
// RebuildIndices (used when restoring components.json directly, matching
// the source's cache-file round trip rather than re-deriving from Acu
// instances).
func (e *Engine) LoadComponents(data map[string][]ComponentUsage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.componentz = make(map[string][]ComponentUsage, len(data))
	for oid, usages := range data {
		cp := make([]ComponentUsage, len(usages))
		copy(cp, usages)
		e.componentz[oid] = cp
	}
}

// AllSystems returns a copy of the systemz index.
func (e *Engine) AllSystems() map[string][]SystemUsage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]SystemUsage, len(e.systemz))
	for oid, usages := range e.systemz {
		cp := make([]SystemUsage, len(usages))
		copy(cp, usages)
		out[oid] = cp
	}
	return out
}

// LoadSystems installs the systemz index wholesale.
func (e *Engine) LoadSystems(data map[string][]SystemUsage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.systemz = make(map[string][]SystemUsage, len(data))
	for oid, usages := range data {
		cp := make([]SystemUsage, len(usages))
		copy(cp, usages)
		e.systemz[oid] = cp
	}
}

// AllAllocations returns a copy of the requirement allocation index
// (rqtAllocz keyed by requirement oid, allocz the converse usage->reqs
// lookup), for rqt_allocs.json (spec.md §6).
func (e *Engine) AllAllocations() (map[string]AllocationEntry, map[string][]string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entries := make(map[string]AllocationEntry, len(e.rqtAllocz))
	for k, v := range e.rqtAllocz {
		entries[k] = v
	}
	converse := make(map[string][]string, len(e.allocz))
	for k, v := range e.allocz {
		cp := make([]string, len(v))
		copy(cp, v)
		converse[k] = cp
	}
	return entries, converse
}

// LoadAllocations installs both halves of the requirement allocation index
// wholesale.
func (e *Engine) LoadAllocations(entries map[string]AllocationEntry, converse map[string][]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rqtAllocz = make(map[string]AllocationEntry, len(entries))
	for k, v := range entries {
		e.rqtAllocz[k] = v
	}
	e.allocz = make(map[string][]string, len(converse))
	for k, v := range converse {
		cp := make([]string, len(v))
		copy(cp, v)
		e.allocz[k] = cp
	}
}

// AllModeTables returns a copy of the modeDefz cache, for mode_defs.json.
func (e *Engine) AllModeTables() map[string]ModeTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]ModeTable, len(e.modeDefz))
	for k, v := range e.modeDefz {
		out[k] = v
	}
	return out
}

// LoadModeTables installs the modeDefz cache wholesale.
func (e *Engine) LoadModeTables(data map[string]ModeTable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modeDefz = make(map[string]ModeTable, len(data))
	for k, v := range data {
		e.modeDefz[k] = v
	}
}
