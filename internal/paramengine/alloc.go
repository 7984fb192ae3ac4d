package paramengine

import "github.com/ontocore/core/internal/store"

// Constraint describes the bound a Requirement places on a parameter
// (spec.md §3 Requirement allocation index).
type Constraint struct {
	Units          string
	Target         float64
	Max            float64
	Min            float64
	Tolerance      float64
	Upper          float64
	Lower          float64
	ConstraintType string // single_value | maximum | minimum
	ToleranceType  string // symmetric | asymmetric
}

// AllocationEntry is one rqt_allocz entry (spec.md §3, §4.3.4).
type AllocationEntry struct {
	UsageOID    string
	ObjectOID   string
	AllocRef    string
	ParameterID string
	Constraint  Constraint
}

func constraintFromFields(get func(string) (interface{}, bool)) Constraint {
	str := func(field string) string {
		v, _ := get(field)
		s, _ := v.(string)
		return s
	}
	num := func(field string) float64 {
		v, _ := get(field)
		return toFloat(v)
	}
	return Constraint{
		Units:          str("units"),
		Target:         num("target"),
		Max:            num("max"),
		Min:            num("min"),
		Tolerance:      num("tolerance"),
		Upper:          num("upper"),
		Lower:          num("lower"),
		ConstraintType: str("constraint_type"),
		ToleranceType:  str("tolerance_type"),
	}
}

// parameterIDForRequirement resolves the correlated parameter of a
// Requirement's computable-form Relation via its ParameterRelation, or ""
// if the requirement is functional (spec.md §4.3.4).
func (e *Engine) parameterIDForRequirement(reqOID string) string {
	relations := e.store.SearchExact(nil, store.CNameRelation)
	var relOID string
	for _, r := range relations {
		if r.RefOID("requirement") == reqOID {
			relOID = r.OID
			break
		}
	}
	if relOID == "" {
		return ""
	}
	prs := e.store.SearchExact(nil, store.CNameParameterRelation)
	for _, pr := range prs {
		if pr.RefOID("relation") == relOID {
			pid, _ := pr.Get("parameter_id")
			s, _ := pid.(string)
			return s
		}
	}
	return ""
}

// RefreshRequirementAllocation rebuilds the rqt_allocz/allocz entries for
// reqOID (spec.md §4.3.4). It runs only when called directly: saving a
// Requirement, a component usage, or a ProjectSystemUsage does not invoke it.
func (e *Engine) RefreshRequirementAllocation(reqOID string) {
	req, ok := e.store.Get(reqOID)
	if !ok {
		return
	}

	usageOID := req.RefOID("usage")
	objectOID := req.RefOID("object")
	allocRef := ""
	if usage, ok := e.store.Get(usageOID); ok {
		if objectOID == "" {
			objectOID = usage.RefOID("system")
		}
		if rd, ok := usage.Get("reference_designator"); ok {
			allocRef, _ = rd.(string)
		}
		if allocRef == "" {
			if role, ok := usage.Get("system_role"); ok {
				allocRef, _ = role.(string)
			}
		}
	}

	entry := AllocationEntry{
		UsageOID:    usageOID,
		ObjectOID:   objectOID,
		AllocRef:    allocRef,
		ParameterID: e.parameterIDForRequirement(reqOID),
		Constraint:  constraintFromFields(req.Get),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rqtAllocz == nil {
		e.rqtAllocz = make(map[string]AllocationEntry)
	}
	e.rqtAllocz[reqOID] = entry

	if e.allocz == nil {
		e.allocz = make(map[string][]string)
	}
	for _, r := range e.allocz[usageOID] {
		if r == reqOID {
			return
		}
	}
	e.allocz[usageOID] = append(e.allocz[usageOID], reqOID)
}

// PurgeRequirement implements store.AllocationIndexPurger: it removes
// reqOID's allocation entry and its converse-lookup membership (spec.md
// §4.2 delete() on Requirement, §4.3.4).
func (e *Engine) PurgeRequirement(reqOID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.rqtAllocz[reqOID]
	if !ok {
		return
	}
	delete(e.rqtAllocz, reqOID)

	usages := e.allocz[entry.UsageOID]
	out := usages[:0]
	for _, r := range usages {
		if r != reqOID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		delete(e.allocz, entry.UsageOID)
	} else {
		e.allocz[entry.UsageOID] = out
	}
}

// Allocation returns the requirement allocation index entry for reqOID.
func (e *Engine) Allocation(reqOID string) (AllocationEntry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.rqtAllocz[reqOID]
	return entry, ok
}

// RequirementsForUsage returns the converse lookup: every requirement
// allocated to usageOID (spec.md §4.3.4 allocz).
func (e *Engine) RequirementsForUsage(usageOID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.allocz[usageOID]))
	copy(out, e.allocz[usageOID])
	return out
}
