package permission

import "github.com/ontocore/core/internal/store"

// Oracle evaluates get_perms/is_cloaked/is_global_admin against a Store
// (spec.md §4.5). roleProductTypes maps a Role's Meta.ID to the set of
// ProductType ids its holders are authorized for, rebuilt from
// DisciplineProductType and DisciplineRole records.
type Oracle struct {
	store            *store.Store
	roleProductTypes map[string]map[string]bool
}

// New constructs an Oracle bound to st. Call RefreshRoleProductTypes once
// the reference data (DisciplineProductType/DisciplineRole) is loaded.
func New(st *store.Store) *Oracle {
	return &Oracle{store: st, roleProductTypes: map[string]map[string]bool{}}
}

// RefreshRoleProductTypes rebuilds the Role-id -> authorized-ProductType-id
// cache (spec.md §4.5 rule 13, HardwareProduct subsystem-type coverage).
// Call after DisciplineProductType or DisciplineRole records change.
func (o *Oracle) RefreshRoleProductTypes() {
	disciplineSubsystems := make(map[string][]string)
	for _, dpt := range o.store.GetByType(store.CNameDisciplineProductType) {
		did := o.idOf(dpt.RefOID("used_in_discipline"))
		ptid := o.idOf(dpt.RefOID("relevant_product_type"))
		if did == "" || ptid == "" {
			continue
		}
		disciplineSubsystems[did] = append(disciplineSubsystems[did], ptid)
	}

	roleDisciplines := make(map[string][]string)
	for _, dr := range o.store.GetByType(store.CNameDisciplineRole) {
		disciplineID := o.idOf(dr.RefOID("related_to_discipline"))
		roleID := o.idOf(dr.RefOID("related_role"))
		if roleID == "" || disciplineID == "" {
			continue
		}
		roleDisciplines[roleID] = append(roleDisciplines[roleID], disciplineID)
	}

	out := make(map[string]map[string]bool, len(roleDisciplines))
	for roleID, disciplineIDs := range roleDisciplines {
		for _, disciplineID := range disciplineIDs {
			for _, ptid := range disciplineSubsystems[disciplineID] {
				set, ok := out[roleID]
				if !ok {
					set = make(map[string]bool)
					out[roleID] = set
				}
				set[ptid] = true
			}
		}
	}
	o.roleProductTypes = out
}

// idOf resolves oid to its Thing's human-readable Meta.ID, or "" if oid is
// empty or unresolvable.
func (o *Oracle) idOf(oid string) string {
	if oid == "" {
		return ""
	}
	t, ok := o.store.Get(oid)
	if !ok {
		return ""
	}
	return t.Meta.ID
}

// subsystemTypesFor unions the authorized ProductType ids over every role
// in roleIDs.
func (o *Oracle) subsystemTypesFor(roleIDs map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for roleID := range roleIDs {
		for ptid := range o.roleProductTypes[roleID] {
			out[ptid] = true
		}
	}
	return out
}

// rolesIn returns the Role ids (Meta.ID) userOID holds in the given
// assignment context (by oid); a context of store.NullRef matches a global
// (context-free) assignment.
func (o *Oracle) rolesIn(userOID, contextOID string) map[string]bool {
	ras := o.store.SearchExact(map[string]interface{}{
		"assigned_to":             store.RefCriterion(userOID),
		"role_assignment_context": store.RefCriterion(contextOID),
	}, store.CNameRoleAssignment)

	roles := make(map[string]bool, len(ras))
	for _, ra := range ras {
		if roleID := o.idOf(ra.RefOID("assigned_role")); roleID != "" {
			roles[roleID] = true
		}
	}
	return roles
}

// IsGlobalAdmin reports whether userOID holds the Administrator role with
// no assignment context (spec.md §4.5 is_global_admin).
func (o *Oracle) IsGlobalAdmin(userOID string) bool {
	return o.rolesIn(userOID, store.NullRef)[roleAdministrator]
}
