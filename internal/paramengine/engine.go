// Package paramengine implements the Parametric Engine (spec.md §4.3):
// parameter/data-element value caches, recursive assembly rollups, the
// requirement allocation index, and the power-mode engine.
package paramengine

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ontocore/core/internal/store"
	"github.com/ontocore/core/internal/units"
	"github.com/ontocore/core/pkg/coreerrors"
	"github.com/ontocore/core/pkg/logger"
	"github.com/ontocore/core/pkg/metrics"
)

// EventSink replaces the source's pub-sub dispatcher (spec.md §9 Design
// Notes): the engine invokes it synchronously at well-defined points.
type EventSink interface {
	OnParameterChanged(oid, pid string)
	OnParametersRecomputed()
}

type noopSink struct{}

func (noopSink) OnParameterChanged(string, string) {}
func (noopSink) OnParametersRecomputed()           {}

// ParameterDefinition is one (variable, context) entry of parm_defz
// (spec.md §3, §4.3.1).
type ParameterDefinition struct {
	ID          string
	Variable    string
	Context     string
	Dimension   string
	Computed    bool
	ModDatetime string
}

// DataElementDefinition is one entry of de_defz (spec.md §3).
type DataElementDefinition struct {
	ID          string
	Name        string
	Label       string
	RangeType   string
	ModDatetime string
}

// ComponentUsage is one entry of the componentz index (spec.md §3, §6
// components.json row shape).
type ComponentUsage struct {
	ComponentOID        string  `json:"oid"`
	UsageOID            string  `json:"usage_oid"`
	Quantity            float64 `json:"quantity"`
	ReferenceDesignator string  `json:"reference_designator"`
}

// SystemUsage is one entry of the systemz index (spec.md §3, §6 systems.json
// row shape).
type SystemUsage struct {
	SystemOID  string `json:"oid"`
	UsageOID   string `json:"usage_oid"`
	SystemRole string `json:"system_role"`
}

// CanonicalVariables are seeded to 0 on a new HardwareProduct (spec.md §4.2
// save(), §4.3).
var CanonicalVariables = []string{"m", "P", "R_D"}

// DefaultCtgcy is the contingency fraction assumed when a leaf node carries
// no explicit Ctgcy value (spec.md §4.3.3).
const DefaultCtgcy = 0.25

// Engine owns the four parametric caches and the assembly/systems indices
// (spec.md §4.3.1, §5: these are process-wide mutable tables owned
// exclusively by the core worker).
type Engine struct {
	mu    sync.RWMutex
	store *store.Store
	units units.UnitService
	log   *logger.Logger
	metrics *metrics.Registry
	sink  EventSink

	parameterz   map[string]map[string]float64
	dataElementz map[string]map[string]interface{}
	parmDefz     map[string]ParameterDefinition
	deDefz       map[string]DataElementDefinition
	parmzByDimz  map[string][]string

	componentz map[string][]ComponentUsage
	systemz    map[string][]SystemUsage

	rqtAllocz map[string]AllocationEntry
	allocz    map[string][]string
	modeDefz  map[string]ModeTable

	pDefaults map[string]float64
}

// New constructs an Engine bound to an Object Store and UnitService.
func New(st *store.Store, unitSvc units.UnitService, log *logger.Logger, m *metrics.Registry) *Engine {
	if log == nil {
		log = logger.NewDefault("parametric-engine")
	}
	if unitSvc == nil {
		unitSvc = units.NewBuiltin()
	}
	return &Engine{
		store:        st,
		units:        unitSvc,
		log:          log,
		metrics:      m,
		sink:         noopSink{},
		parameterz:   make(map[string]map[string]float64),
		dataElementz: make(map[string]map[string]interface{}),
		parmDefz:     make(map[string]ParameterDefinition),
		deDefz:       make(map[string]DataElementDefinition),
		parmzByDimz:  make(map[string][]string),
		componentz:   make(map[string][]ComponentUsage),
		systemz:      make(map[string][]SystemUsage),
		rqtAllocz:    make(map[string]AllocationEntry),
		allocz:       make(map[string][]string),
		modeDefz:     make(map[string]ModeTable),
		pDefaults:    make(map[string]float64),
	}
}

// SetEventSink wires the parameter-change/recompute notification sink.
func (e *Engine) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = noopSink{}
	}
	e.sink = sink
}

// SetDefaults wires state.p_defaults (spec.md §6 configuration structures).
func (e *Engine) SetDefaults(pDefaults map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pDefaults = pDefaults
}

// SplitParameterID splits "variable[context]" into its parts.
func SplitParameterID(pid string) (variable, context string, ok bool) {
	i := strings.IndexByte(pid, '[')
	if i <= 0 || !strings.HasSuffix(pid, "]") {
		return "", "", false
	}
	return pid[:i], pid[i+1 : len(pid)-1], true
}

// ParameterID joins a variable and context into its canonical "variable[context]" id.
func ParameterID(variable, context string) string { return variable + "[" + context + "]" }

// BuildParameterDefinitionCache rebuilds parm_defz as the Cartesian product
// of every ParameterDefinition Thing and every ParameterContext Thing
// (spec.md §4.3.1).
func (e *Engine) BuildParameterDefinitionCache() {
	vars := e.store.GetByType(store.CNameParameterDefinition)
	contexts := e.store.GetByType(store.CNameParameterContext)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.parmDefz = make(map[string]ParameterDefinition)
	e.parmzByDimz = make(map[string][]string)

	for _, v := range vars {
		name, _ := v.Get("name")
		varName, _ := name.(string)
		if varName == "" {
			varName = v.Meta.Name
		}
		dim, _ := v.Get("dimensions")
		dimension, _ := dim.(string)

		for _, c := range contexts {
			ctxName, _ := c.Get("name")
			ctxID, _ := ctxName.(string)
			if ctxID == "" {
				ctxID = c.Meta.Name
			}
			computed, _ := c.Get("computed")
			isComputed, _ := computed.(bool)

			pid := ParameterID(varName, ctxID)
			e.parmDefz[pid] = ParameterDefinition{
				ID:          pid,
				Variable:    varName,
				Context:     ctxID,
				Dimension:   dimension,
				Computed:    isComputed,
				ModDatetime: v.Meta.ModDatetime,
			}
			if dimension != "" {
				e.parmzByDimz[dimension] = append(e.parmzByDimz[dimension], pid)
			}
		}
	}
	for dim := range e.parmzByDimz {
		sort.Strings(e.parmzByDimz[dim])
	}
}

// BuildDataElementDefinitionCache rebuilds de_defz from every
// DataElementDefinition Thing (spec.md §4.3.1).
func (e *Engine) BuildDataElementDefinitionCache() {
	defs := e.store.GetByType(store.CNameDataElementDef)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.deDefz = make(map[string]DataElementDefinition)
	for _, d := range defs {
		label, _ := d.Get("label")
		labelStr, _ := label.(string)
		rng, _ := d.Get("range_datatype")
		rngStr, _ := rng.(string)
		e.deDefz[d.OID] = DataElementDefinition{
			ID:          d.OID,
			Name:        d.Meta.Name,
			Label:       labelStr,
			RangeType:   rngStr,
			ModDatetime: d.Meta.ModDatetime,
		}
	}
}

// RebuildIndices rebuilds componentz from every Acu and systemz from every
// ProjectSystemUsage (spec.md §3: "the componentz index is the authoritative
// source of assembly structure").
func (e *Engine) RebuildIndices() {
	acus := e.store.GetAllSubtypes(store.CNameAcu)
	psus := e.store.GetAllSubtypes(store.CNameProjectSystemUsage)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.componentz = make(map[string][]ComponentUsage)
	for _, a := range acus {
		assembly := a.RefOID("assembly")
		if assembly == store.NullRef {
			continue
		}
		qty := 1.0
		if q, ok := a.Get("quantity"); ok {
			qty = toFloat(q)
		}
		refDes, _ := a.Get("reference_designator")
		refDesStr, _ := refDes.(string)
		e.componentz[assembly] = append(e.componentz[assembly], ComponentUsage{
			ComponentOID:        a.RefOID("component"),
			UsageOID:            a.OID,
			Quantity:            qty,
			ReferenceDesignator: refDesStr,
		})
	}

	e.systemz = make(map[string][]SystemUsage)
	for _, p := range psus {
		project := p.RefOID("project")
		if project == store.NullRef {
			continue
		}
		role, _ := p.Get("system_role")
		roleStr, _ := role.(string)
		e.systemz[project] = append(e.systemz[project], SystemUsage{
			SystemOID:  p.RefOID("system"),
			UsageOID:   p.OID,
			SystemRole: roleStr,
		})
	}
}

// RefreshComponentsFor rebuilds the componentz entry for a single assembly,
// used after a targeted Acu create/modify/delete (spec.md §3).
func (e *Engine) RefreshComponentsFor(assemblyOID string) {
	acus := e.store.SearchExact(map[string]interface{}{"assembly": store.RefCriterion(assemblyOID)}, store.CNameAcu)

	e.mu.Lock()
	defer e.mu.Unlock()
	var entries []ComponentUsage
	for _, a := range acus {
		qty := 1.0
		if q, ok := a.Get("quantity"); ok {
			qty = toFloat(q)
		}
		refDes, _ := a.Get("reference_designator")
		refDesStr, _ := refDes.(string)
		entries = append(entries, ComponentUsage{
			ComponentOID:        a.RefOID("component"),
			UsageOID:            a.OID,
			Quantity:            qty,
			ReferenceDesignator: refDesStr,
		})
	}
	if entries == nil {
		delete(e.componentz, assemblyOID)
		return
	}
	e.componentz[assemblyOID] = entries
}

func (e *Engine) hasAssemblyChildren(oid string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.componentz[oid]) > 0
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

// EnsureCanonicalParameters implements store.ParamSeeder: every
// HardwareProduct gets m, P, R_D seeded to 0 if absent (spec.md §4.2 save()).
func (e *Engine) EnsureCanonicalParameters(oid string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bucket, ok := e.parameterz[oid]
	if !ok {
		bucket = make(map[string]float64)
		e.parameterz[oid] = bucket
	}
	for _, v := range CanonicalVariables {
		pid := ParameterID(v, "CBE")
		if _, ok := bucket[pid]; !ok {
			bucket[pid] = 0
		}
	}
}

// GetPVal returns the value of pid at oid converted to requestedUnits
// (spec.md §4.3.2). For a CBE or MEV parameter on a Thing present in the
// componentz index, the value is the live rollup (spec.md §4.3.3: "the
// engine recomputes derived values eagerly"), not a stale cached one. It
// never errors — missing definitions or values yield 0.0, per §7 policy
// that the engine never raises for missing values.
func (e *Engine) GetPVal(oid, pid, requestedUnits string) float64 {
	e.mu.RLock()
	def, hasDef := e.parmDefz[pid]
	e.mu.RUnlock()
	if !hasDef {
		return 0.0
	}

	variable, context, isSplit := SplitParameterID(pid)

	value, hasValue := 0.0, false
	switch {
	case isSplit && context == "CBE" && e.hasAssemblyChildren(oid):
		value, hasValue = e.AssemblyValue(oid, pid), true
	case isSplit && context == "MEV" && e.hasAssemblyChildren(oid):
		value, hasValue = e.MEV(oid, variable), true
	default:
		e.mu.RLock()
		if bucket, ok := e.parameterz[oid]; ok {
			value, hasValue = bucket[pid]
		}
		e.mu.RUnlock()
	}
	if !hasValue {
		return 0.0
	}

	switch def.Dimension {
	case "percent":
		return value * 100
	case "money":
		return roundTo(value, 2)
	}

	if requestedUnits == "" {
		return value
	}
	q, err := e.units.Parse(value, siUnitFor(def.Dimension))
	if err != nil {
		return value
	}
	converted, err := e.units.Convert(q, requestedUnits)
	if err != nil {
		return value
	}
	return converted
}

// SetPVal sets pid at oid, converting from suppliedUnits to SI base units
// (spec.md §4.3.2). It refuses to set a computed parameter or one lacking a
// definition.
func (e *Engine) SetPVal(oid, pid string, value interface{}, suppliedUnits string) *coreerrors.CoreError {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, hasDef := e.parmDefz[pid]
	if !hasDef {
		return coreerrors.UnknownParameter(pid)
	}
	if def.Computed {
		return coreerrors.ComputedParameter(pid)
	}

	f, castErr := coerceFloat(value)
	if castErr != nil {
		return coreerrors.CastFailed(pid, fmtValue(value), castErr)
	}

	si := f
	if suppliedUnits != "" && def.Dimension != "" && def.Dimension != "percent" && def.Dimension != "money" {
		q, err := e.units.Parse(f, suppliedUnits)
		if err == nil {
			converted, cErr := e.units.Convert(q, siUnitFor(def.Dimension))
			if cErr == nil {
				si = converted
			}
			// parse/convert failure falls back to the raw magnitude as SI,
			// per spec.md §4.3.2 ("on parse failure falls back to SI").
		}
	} else if def.Dimension == "percent" {
		si = f / 100
	}

	bucket, ok := e.parameterz[oid]
	if !ok {
		bucket = make(map[string]float64)
		if d, ok := e.pDefaults[pid]; ok {
			bucket[pid] = d
		}
		e.parameterz[oid] = bucket
	}
	bucket[pid] = si

	e.sink.OnParameterChanged(oid, pid)
	return nil
}

// DeleteParameter removes pid at oid and dispatches an OnParameterChanged
// event (spec.md §4.3.2).
func (e *Engine) DeleteParameter(oid, pid string) {
	e.mu.Lock()
	if bucket, ok := e.parameterz[oid]; ok {
		delete(bucket, pid)
	}
	e.mu.Unlock()
	e.sink.OnParameterChanged(oid, pid)
}

// GetDataElement returns the typed value of deid at oid, or the
// type-appropriate null if absent (spec.md §4.3.2).
func (e *Engine) GetDataElement(oid, deid string) interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if bucket, ok := e.dataElementz[oid]; ok {
		if v, ok := bucket[deid]; ok {
			return v
		}
	}
	def, ok := e.deDefz[deid]
	if !ok {
		return nil
	}
	switch def.RangeType {
	case "boolean":
		return false
	case "int", "long":
		return 0
	case "float", "decimal":
		return 0.0
	default:
		return ""
	}
}

// SetDataElement sets deid at oid.
func (e *Engine) SetDataElement(oid, deid string, value interface{}) {
	e.mu.Lock()
	bucket, ok := e.dataElementz[oid]
	if !ok {
		bucket = make(map[string]interface{})
		e.dataElementz[oid] = bucket
	}
	bucket[deid] = value
	e.mu.Unlock()
	e.sink.OnParameterChanged(oid, deid)
}

// DeleteDataElement removes deid at oid and dispatches an event.
func (e *Engine) DeleteDataElement(oid, deid string) {
	e.mu.Lock()
	if bucket, ok := e.dataElementz[oid]; ok {
		delete(bucket, deid)
	}
	e.mu.Unlock()
	e.sink.OnParameterChanged(oid, deid)
}

// ParametersFor returns a copy of oid's parameter bucket, for the
// Serializer's "parameters" sub-dictionary (spec.md §4.4).
func (e *Engine) ParametersFor(oid string) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	bucket := e.parameterz[oid]
	out := make(map[string]float64, len(bucket))
	for k, v := range bucket {
		out[k] = v
	}
	return out
}

// DataElementsFor returns a copy of oid's data-element bucket, for the
// Serializer's "data_elements" sub-dictionary (spec.md §4.4).
func (e *Engine) DataElementsFor(oid string) map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	bucket := e.dataElementz[oid]
	out := make(map[string]interface{}, len(bucket))
	for k, v := range bucket {
		out[k] = v
	}
	return out
}

// RestoreParameters installs oid's parameter bucket wholesale, used when
// deserializing a record carrying a "parameters" sub-dictionary (spec.md
// §4.4).
func (e *Engine) RestoreParameters(oid string, params map[string]float64) {
	if len(params) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	bucket, ok := e.parameterz[oid]
	if !ok {
		bucket = make(map[string]float64, len(params))
		e.parameterz[oid] = bucket
	}
	for k, v := range params {
		bucket[k] = v
	}
}

// RestoreDataElements installs oid's data-element bucket wholesale (spec.md
// §4.4).
func (e *Engine) RestoreDataElements(oid string, des map[string]interface{}) {
	if len(des) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	bucket, ok := e.dataElementz[oid]
	if !ok {
		bucket = make(map[string]interface{}, len(des))
		e.dataElementz[oid] = bucket
	}
	for k, v := range des {
		bucket[k] = v
	}
}

func siUnitFor(dimension string) string {
	switch dimension {
	case "mass":
		return "kg"
	case "power":
		return "W"
	case "data_rate":
		return "bps"
	case "money":
		return "USD"
	default:
		return ""
	}
}

func roundTo(v float64, decimals int) float64 {
	shift := 1.0
	for i := 0; i < decimals; i++ {
		shift *= 10
	}
	if v >= 0 {
		return float64(int64(v*shift+0.5)) / shift
	}
	return -float64(int64(-v*shift+0.5)) / shift
}

func coerceFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		if n == "" {
			return 0, nil
		}
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, nil
	default:
		return 0, strconv.ErrSyntax
	}
}

func fmtValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strconv.FormatFloat(toFloat(v), 'f', -1, 64)
}
