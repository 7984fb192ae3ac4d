package paramengine

import "github.com/ontocore/core/pkg/coreerrors"

// maxCycleDepth is the depth to which assembly acyclicity is checked
// (spec.md §3: "The core detects cycles to depth 5 and refuses to compute
// rollups through a cyclical subgraph").
const maxCycleDepth = 5

// inPath reports whether oid already appears in path within maxCycleDepth
// steps of the current frame.
func inPath(path []string, oid string) bool {
	start := 0
	if len(path) > maxCycleDepth {
		start = len(path) - maxCycleDepth
	}
	for i := start; i < len(path); i++ {
		if path[i] == oid {
			return true
		}
	}
	return false
}

// CheckForCycles walks the assembly rooted at oid to depth 5 and returns the
// cyclical path if one exists, or nil (spec.md §8 scenario 4).
func (e *Engine) CheckForCycles(oid string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.checkForCyclesLocked(oid, nil)
}

func (e *Engine) checkForCyclesLocked(oid string, path []string) []string {
	if inPath(path, oid) {
		return append(append([]string{}, path...), oid)
	}
	if len(path) >= maxCycleDepth {
		return nil
	}
	path = append(path, oid)
	for _, child := range e.componentz[oid] {
		if cycle := e.checkForCyclesLocked(child.ComponentOID, path); cycle != nil {
			return cycle
		}
	}
	return nil
}

// GetBOM flattens the bill of materials rooted at oid, or returns nil if the
// subgraph is cyclical rather than diverging (spec.md §8 scenario 4).
func (e *Engine) GetBOM(oid string) []ComponentUsage {
	if cycle := e.CheckForCycles(oid); cycle != nil {
		e.log.WithField("oid", oid).Warn("refusing bom: cyclical assembly subgraph")
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []ComponentUsage
	var visit func(string)
	visit = func(o string) {
		for _, c := range e.componentz[o] {
			out = append(out, c)
			visit(c.ComponentOID)
		}
	}
	visit(oid)
	return out
}

// AssemblyValue computes the rollup of pid at oid (spec.md §4.3.3). A
// cyclical branch short-circuits, contributing its stored leaf value.
func (e *Engine) AssemblyValue(oid, pid string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, _ := e.assemblyValueLocked(oid, pid, nil)
	return v
}

func (e *Engine) assemblyValueLocked(oid, pid string, path []string) (float64, bool) {
	if inPath(path, oid) {
		return e.storedValueLocked(oid, pid), true
	}
	children, hasChildren := e.componentz[oid]
	if !hasChildren || len(children) == 0 {
		return e.storedValueLocked(oid, pid), true
	}
	if len(path) >= maxCycleDepth {
		return e.storedValueLocked(oid, pid), true
	}

	path = append(path, oid)
	sum := 0.0
	for _, c := range children {
		cv, _ := e.assemblyValueLocked(c.ComponentOID, pid, path)
		sum += cv * c.Quantity
	}
	return roundTo(sum, 6), true
}

func (e *Engine) storedValueLocked(oid, pid string) float64 {
	if bucket, ok := e.parameterz[oid]; ok {
		if v, ok := bucket[pid]; ok {
			return v
		}
	}
	return 0
}

// CBE returns the Current Best Estimate of variable at oid (spec.md §4.3.3).
func (e *Engine) CBE(oid, variable string) float64 {
	v := e.AssemblyValue(oid, ParameterID(variable, "CBE"))
	if e.metrics != nil {
		e.metrics.RollupCompute.WithLabelValues(variable, "CBE").Inc()
	}
	return v
}

// MEV returns the Maximum Expected Value of variable at oid, recursing over
// children and deriving Ctgcy, or applying CBE*(1+Ctgcy) at a leaf (spec.md
// §4.3.3, §8 MEV identity).
func (e *Engine) MEV(oid, variable string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.mevLocked(oid, variable, nil)
	if e.metrics != nil {
		e.metrics.RollupCompute.WithLabelValues(variable, "MEV").Inc()
	}
	return v
}

func (e *Engine) mevLocked(oid, variable string, path []string) float64 {
	mevPID := ParameterID(variable, "MEV")
	cbePID := ParameterID(variable, "CBE")
	ctgcyPID := ParameterID(variable, "Ctgcy")

	if inPath(path, oid) || len(path) >= maxCycleDepth {
		return e.storedValueLocked(oid, mevPID)
	}

	children := e.componentz[oid]
	if len(children) > 0 {
		path = append(path, oid)
		sum := 0.0
		for _, c := range children {
			sum += e.mevLocked(c.ComponentOID, variable, path) * c.Quantity
		}
		mev := roundTo(sum, 6)

		cbe, _ := e.assemblyValueLocked(oid, cbePID, path)
		if cbe > 0 {
			bucket := e.bucketLocked(oid)
			bucket[ctgcyPID] = (mev - cbe) / cbe
		}
		return mev
	}

	cbe, _ := e.assemblyValueLocked(oid, cbePID, path)
	ctgcy, ok := e.bucketLocked(oid)[ctgcyPID]
	if !ok {
		ctgcy = DefaultCtgcy
	}
	return roundTo(cbe*(1+ctgcy), 6)
}

func (e *Engine) bucketLocked(oid string) map[string]float64 {
	bucket, ok := e.parameterz[oid]
	if !ok {
		bucket = make(map[string]float64)
		e.parameterz[oid] = bucket
	}
	return bucket
}

// MarginResult is the literal tuple shape spec.md §8 scenario 3 names:
// (usage_oid, variable, NTE, units, margin).
type MarginResult struct {
	UsageOID string
	Variable string
	NTE      float64
	Units    string
	Margin   float64
	Defined  bool
}

// ComputeRequirementMargin computes the Margin for a performance requirement
// allocated to a usage (spec.md §4.3.3). Requirement fields consulted:
// usage (PSU oid), variable, max, units, constraint_type.
func (e *Engine) ComputeRequirementMargin(reqOID string) (MarginResult, *coreerrors.CoreError) {
	req, ok := e.store.Get(reqOID)
	if !ok {
		return MarginResult{}, coreerrors.UnknownParameter(reqOID)
	}

	constraintType, _ := req.Get("constraint_type")
	ctStr, _ := constraintType.(string)
	if ctStr != "maximum" {
		return MarginResult{Defined: false}, nil
	}

	usageOID := req.RefOID("usage")
	variable, _ := req.Get("variable")
	varStr, _ := variable.(string)
	maxVal, _ := req.Get("max")
	reqUnits, _ := req.Get("units")
	unitsStr, _ := reqUnits.(string)

	nte := toFloat(maxVal)
	e.mu.RLock()
	def, hasDef := e.parmDefz[ParameterID(varStr, "CBE")]
	e.mu.RUnlock()
	if hasDef {
		if q, perr := e.units.Parse(nte, unitsStr); perr == nil {
			if converted, cerr := e.units.Convert(q, siUnitFor(def.Dimension)); cerr == nil {
				nte = converted
			}
		}
	}

	usage, ok := e.store.Get(usageOID)
	if !ok {
		return MarginResult{Defined: false}, nil
	}
	systemOID := usage.RefOID("system")

	mev := e.MEV(systemOID, varStr)
	if mev == 0 {
		return MarginResult{Defined: false}, nil
	}

	margin := (nte - mev) / nte
	return MarginResult{
		UsageOID: usageOID,
		Variable: varStr,
		NTE:      nte,
		Units:    unitsStr,
		Margin:   roundTo(margin, 6),
		Defined:  true,
	}, nil
}
