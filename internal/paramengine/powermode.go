package paramengine

const (
	modalOff       = "Off"
	modalComputed  = "[computed]"
	modalNominal   = "Nominal"
	modalCBE       = "CBE"
)

// ModeTable is a project's mode table (spec.md §3): named modes, the modal
// context each top-level system usage carries per mode, and the modal
// context each component usage carries per mode within its owning system
// usage.
type ModeTable struct {
	Modes      map[string]string                      `json:"modes"`      // mode_oid -> name
	Systems    map[string]map[string]string            `json:"systems"`    // usage_oid -> mode_oid -> modal_context
	Components map[string]map[string]map[string]string `json:"components"` // system_usage_oid -> component_usage_oid -> mode_oid -> modal_context
}

// NewModeTable constructs an empty ModeTable.
func NewModeTable() ModeTable {
	return ModeTable{
		Modes:      make(map[string]string),
		Systems:    make(map[string]map[string]string),
		Components: make(map[string]map[string]map[string]string),
	}
}

// SetModeTable installs projectOID's mode table (loaded from mode_defs.json
// or built by the caller).
func (e *Engine) SetModeTable(projectOID string, table ModeTable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modeDefz[projectOID] = table
}

func (e *Engine) modalContext(table ModeTable, systemUsageOID, componentUsageOID, mode string) string {
	if byComponent, ok := table.Components[systemUsageOID]; ok {
		if byMode, ok := byComponent[componentUsageOID]; ok {
			if ctx, ok := byMode[mode]; ok {
				return ctx
			}
		}
	}
	if byMode, ok := table.Systems[componentUsageOID]; ok {
		if ctx, ok := byMode[mode]; ok {
			return ctx
		}
	}
	return modalOff
}

// GetUsageModeVal computes the power (or other modal variable) drawn by
// system usage u (over system s) in mode, recursing through "[computed]"
// contexts (spec.md §4.3.5, §8 scenario 6).
func (e *Engine) GetUsageModeVal(projectOID, usageOID, systemOID, mode, requestedUnits string) float64 {
	e.mu.RLock()
	table := e.modeDefz[projectOID]
	e.mu.RUnlock()

	return e.usageModeValLocked(table, usageOID, systemOID, mode, requestedUnits, 0)
}

func (e *Engine) usageModeValLocked(table ModeTable, systemUsageOID, systemOID, mode, requestedUnits string, depth int) float64 {
	if depth >= maxCycleDepth {
		return 0
	}

	ctx := table.Systems[systemUsageOID][mode]
	return e.resolveModalValue(table, systemUsageOID, systemOID, mode, ctx, requestedUnits, depth)
}

func (e *Engine) resolveModalValue(table ModeTable, systemUsageOID, objectOID, mode, ctx, requestedUnits string, depth int) float64 {
	switch ctx {
	case "":
		return 0
	case modalOff:
		return 0
	case modalComputed:
		return e.computedModalValue(table, systemUsageOID, objectOID, mode, requestedUnits, depth)
	default:
		pid := ParameterID("P", ctx)
		return e.GetPVal(objectOID, pid, requestedUnits)
	}
}

// computedModalValue sums each child component's modal power contribution,
// per the fallback chain in spec.md §4.3.5: a component's modal context is
// looked up first per-system-usage, else the component's own system-level
// entry, else "Off"; "Nominal" aliases to "CBE".
func (e *Engine) computedModalValue(table ModeTable, systemUsageOID, systemOID, mode, requestedUnits string, depth int) float64 {
	e.mu.RLock()
	children := append([]ComponentUsage(nil), e.componentz[systemOID]...)
	e.mu.RUnlock()

	sum := 0.0
	for _, c := range children {
		ctx := e.modalContext(table, systemUsageOID, c.UsageOID, mode)
		if ctx == modalNominal {
			ctx = modalCBE
		}
		sum += e.resolveModalValue(table, systemUsageOID, c.ComponentOID, mode, ctx, requestedUnits, depth+1) * c.Quantity
	}
	return roundTo(sum, 6)
}
