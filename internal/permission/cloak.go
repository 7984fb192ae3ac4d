package permission

import "github.com/ontocore/core/internal/store"

// IsCloaked reports whether obj is hidden from ordinary listing and
// traversal. Organization, ParameterDefinition, and any public object are
// never cloaked; Acu inherits cloaking from its assembly, ProjectSystemUsage
// from its system; SANDBOX usages are always cloaked. Every other object
// defaults to cloaked when not public.
func IsCloaked(st *store.Store, obj *store.Thing) bool {
	if obj == nil || obj.OID == "" {
		return false
	}
	if obj.Meta.Public {
		return false
	}
	if st.IsA(obj, store.CNameOrganization) || st.IsA(obj, store.CNameParameterDefinition) {
		return false
	}
	if st.IsA(obj, store.CNameAcu) {
		assembly, ok := st.Get(obj.RefOID("assembly"))
		if !ok {
			return false
		}
		return IsCloaked(st, assembly)
	}
	if st.IsA(obj, store.CNameProjectSystemUsage) {
		if project, ok := st.Get(obj.RefOID("project")); ok && project.Meta.ID == sandboxProjectID {
			return true
		}
		system, ok := st.Get(obj.RefOID("system"))
		if !ok {
			return false
		}
		return IsCloaked(st, system)
	}
	return true
}
