package permission

import "github.com/ontocore/core/internal/store"

// GetPerms returns user's permissions on obj (spec.md §4.5). user may be
// nil ("no user resolvable"). Rules are evaluated in the fixed order
// below; most branches return as soon as they apply.
func (o *Oracle) GetPerms(obj *store.Thing, user *store.Thing, opts Options) Result {
	if obj == nil {
		return result("no object")
	}

	if obj.Meta.ID == sandboxProjectID && o.store.IsA(obj, store.CNameProject) {
		return result("object is the sandbox project", viewPerm, modifyPerm)
	}
	if obj.Meta.TBD {
		return result("object is TBD", viewPerm)
	}

	if opts.LocalAdmin || opts.Permissive {
		return result("local admin or permissive", viewPerm, modifyPerm, deletePerm)
	}

	if o.frozen(obj) {
		return result("object is frozen", viewPerm)
	}

	// Rule 5: view by default, except a non-public Product starts with
	// nothing until ownership/role checks below add to it.
	baseline := map[string]bool{}
	if o.store.IsA(obj, store.CNameProduct) {
		if obj.Meta.Public {
			baseline[viewPerm] = true
		}
	} else {
		baseline[viewPerm] = true
	}

	if user == nil {
		return resultFromSet("no user resolvable", baseline)
	}

	if o.store.IsA(obj, store.CNameProjectSystemUsage) {
		if project, ok := o.store.Get(obj.RefOID("project")); ok && project.Meta.ID == sandboxProjectID {
			return result("SANDBOX PSU is modifiable by any user", viewPerm, modifyPerm, deletePerm)
		}
	}

	if isReferenceDataClass(o.store, obj) {
		return result("reference data: view only", viewPerm)
	}
	if isHelperClass(obj.CName) {
		return result("universally modifiable", viewPerm, modifyPerm, deletePerm)
	}

	serverOrConnected := opts.Mode.serverOrConnectedClient()
	objectNotSynced := !opts.synced(obj.OID)

	if o.IsGlobalAdmin(user.OID) {
		perms := map[string]bool{viewPerm: true}
		if serverOrConnected || objectNotSynced {
			perms[modifyPerm] = true
			perms[deletePerm] = true
		}
		return resultFromSet("global admin", perms)
	}

	if opts.Mode == SiteModeOfflineClient && objectNotSynced {
		return result("offline client, object not synced", viewPerm, modifyPerm, deletePerm)
	}

	if obj.Meta.Creator != "" && obj.Meta.Creator == user.OID && !o.store.IsA(obj, store.CNamePerson) {
		perms := map[string]bool{viewPerm: true}
		if serverOrConnected {
			perms[modifyPerm] = true
			perms[deletePerm] = true
		}
		return resultFromSet("object creator", perms)
	}

	var ownerRoleIDs map[string]bool
	if obj.Meta.Owner != "" {
		ownerRoleIDs = o.rolesIn(user.OID, obj.Meta.Owner)
	}

	// Rule 13: Product / HardwareProduct product-type coverage.
	if o.store.IsA(obj, store.CNameProduct) {
		if obj.Meta.Owner == "" {
			return result("owner not specified", viewPerm)
		}
		if o.store.IsA(obj, store.CNameHardwareProduct) {
			subsystemTypes := o.subsystemTypesFor(ownerRoleIDs)
			ptID := o.idOf(obj.RefOID("product_type"))
			if subsystemTypes[ptID] {
				perms := map[string]bool{viewPerm: true}
				if serverOrConnected {
					perms[modifyPerm] = true
					perms[deletePerm] = true
				}
				return resultFromSet("role-based product type perms (HW)", perms)
			}
			return result("not authorized for this product type", viewPerm)
		}
		// A Product that isn't HardwareProduct falls through to the
		// remaining rules, same as an object of no special class below.
	}

	// Rule 14: Requirement managers.
	if o.store.IsA(obj, store.CNameRequirement) {
		if requirementManagerRoles.intersects(ownerRoleIDs) {
			perms := map[string]bool{viewPerm: true}
			if serverOrConnected {
				perms[modifyPerm] = true
				perms[deletePerm] = true
			}
			return resultFromSet("role-based perms (Requirement)", perms)
		}
		return result("role-based perms (Requirement)", viewPerm)
	}

	// Rule 15: Acu role coverage over assembly / component / TBD hint.
	if o.store.IsA(obj, store.CNameAcu) {
		return o.acuPerms(obj, user, serverOrConnected)
	}

	// Rule 16: ProjectSystemUsage / Project manager roles.
	if o.store.IsA(obj, store.CNameProjectSystemUsage) || o.store.IsA(obj, store.CNameProject) {
		if perms, ok := o.projectPerms(obj, user, serverOrConnected); ok {
			return perms
		}
		// Falls through to baseline, same as the original's bare elif
		// with no matching auth role.
	}

	// Rule 17: Port inherits its product's perms.
	if obj.CName == store.CNamePort {
		ofProduct, ok := o.store.Get(obj.RefOID("of_product"))
		if !ok {
			return result("port: of_product unresolved", viewPerm)
		}
		r := o.GetPerms(ofProduct, user, opts)
		r.Reason = "role-based perms (Port, via of_product)"
		return r
	}

	// Rule 18: Flow is the union of perms on its contexts and endpoints.
	if o.store.IsA(obj, store.CNameFlow) {
		return o.flowPerms(obj, user, opts)
	}

	return resultFromSet("no applicable role-based rule", baseline)
}

// frozen reports whether obj itself, or (for an Acu) its assembly, is
// frozen (spec.md §4.5 rule 4).
func (o *Oracle) frozen(obj *store.Thing) bool {
	if obj.Meta.Frozen {
		return true
	}
	if o.store.IsA(obj, store.CNameAcu) {
		if assembly, ok := o.store.Get(obj.RefOID("assembly")); ok {
			return assembly.Meta.Frozen
		}
	}
	return false
}

func (o *Oracle) acuPerms(obj, user *store.Thing, serverOrConnected bool) Result {
	assembly, ok := o.store.Get(obj.RefOID("assembly"))
	if !ok || assembly.Meta.Owner == "" {
		return result("assembly owner not specified", viewPerm)
	}

	roleIDs := o.rolesIn(user.OID, assembly.Meta.Owner)
	subsystemTypes := o.subsystemTypesFor(roleIDs)

	assemblyType := o.idOf(assembly.RefOID("product_type"))
	if subsystemTypes[assemblyType] {
		return withModifyDelete("role-based perms (Acu, assembly product type)", serverOrConnected)
	}

	component, hasComponent := o.store.Get(obj.RefOID("component"))
	if hasComponent {
		componentType := o.idOf(component.RefOID("product_type"))
		if subsystemTypes[componentType] {
			return withModifyDelete("role-based perms (Acu, component product type)", serverOrConnected)
		}
		return result("role-based perms (Acu, no matching product type)", viewPerm)
	}

	// No real component: obj.Meta.TBD marks a not-yet-determined
	// component, authorized via the Acu's product_type_hint instead.
	if obj.Meta.TBD {
		hintType := o.idOf(obj.Meta.ProductTypeHint)
		if subsystemTypes[hintType] {
			return withModifyDelete("role-based perms (Acu, TBD product type hint)", serverOrConnected)
		}
	}
	return result("role-based perms (Acu, no matching product type)", viewPerm)
}

func withModifyDelete(reason string, serverOrConnected bool) Result {
	perms := map[string]bool{viewPerm: true}
	if serverOrConnected {
		perms[modifyPerm] = true
		perms[deletePerm] = true
	}
	return resultFromSet(reason, perms)
}

// projectPerms implements rule 16. The second return value is false when
// the user holds none of the authorized roles, signaling the caller to
// fall through to the baseline perms instead of returning early.
func (o *Oracle) projectPerms(obj, user *store.Thing, serverOrConnected bool) (Result, bool) {
	var contextOID string
	if o.store.IsA(obj, store.CNameProjectSystemUsage) {
		contextOID = obj.RefOID("project")
	} else {
		contextOID = obj.OID
	}
	roleIDs := o.rolesIn(user.OID, contextOID)
	if !projectAuthorizedRoles.intersects(roleIDs) {
		return Result{}, false
	}
	return withModifyDelete("role-based perms (PSU/Project)", serverOrConnected), true
}

func (o *Oracle) flowPerms(obj, user *store.Thing, opts Options) Result {
	union := map[string]bool{}
	for _, field := range []string{"start_port_context", "end_port_context"} {
		if ctx, ok := o.store.Get(obj.RefOID(field)); ok {
			for _, p := range o.GetPerms(ctx, user, opts).Perms {
				union[p] = true
			}
		}
	}
	for _, field := range []string{"start_port", "end_port"} {
		port, ok := o.store.Get(obj.RefOID(field))
		if !ok {
			continue
		}
		ofProduct, ok := o.store.Get(port.RefOID("of_product"))
		if !ok {
			continue
		}
		for _, p := range o.GetPerms(ofProduct, user, opts).Perms {
			union[p] = true
		}
	}
	return resultFromSet("role-based perms (Flow, union of endpoints)", union)
}

type roleSet map[string]bool

func (s roleSet) intersects(other map[string]bool) bool {
	for role := range other {
		if s[role] {
			return true
		}
	}
	return false
}

func isReferenceDataClass(st *store.Store, obj *store.Thing) bool {
	for _, cname := range store.ReferenceDataClasses {
		if st.IsA(obj, cname) {
			return true
		}
	}
	return false
}

func isHelperClass(cname string) bool {
	for _, c := range store.HelperClasses {
		if c == cname {
			return true
		}
	}
	return false
}
