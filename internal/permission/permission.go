// Package permission implements the Permission Oracle (spec.md §4.5):
// get_perms, is_cloaked, and is_global_admin.
package permission

import "sort"

const (
	viewPerm   = "view"
	modifyPerm = "modify"
	deletePerm = "delete"
)

// sandboxProjectID is the Meta.ID of the distinguished Project that every
// user may modify (spec.md §4.5 rule 2, rule 7; is_cloaked's SANDBOX PSU
// carve-out).
const sandboxProjectID = "SANDBOX"

// Role ids the Oracle checks by name. The Requirement and
// Project/ProjectSystemUsage manager sets use different casing for
// "administrator" — that mismatch is carried over faithfully from how the
// role ids are actually assigned in practice.
const (
	roleAdministrator   = "Administrator"
	roleSystemsEngineer = "systems_engineer"
	roleLeadEngineer    = "lead_engineer"
)

var requirementManagerRoles = roleSet{
	roleAdministrator:   true,
	roleSystemsEngineer: true,
	roleLeadEngineer:    true,
}

var projectAuthorizedRoles = roleSet{
	"administrator": true, roleSystemsEngineer: true, roleLeadEngineer: true,
}

// SiteMode identifies where a GetPerms call is being evaluated (SPEC_FULL.md
// §4.5 expansion "User resolution"): a server process, a client connected
// to the server, or a disconnected client.
type SiteMode int

const (
	SiteModeServer SiteMode = iota
	SiteModeConnectedClient
	SiteModeOfflineClient
)

// serverOrConnectedClient reports whether mods/deletes are admissible under
// this mode regardless of sync state (spec.md §4.5 rules 10-16: "on server
// or connected client").
func (m SiteMode) serverOrConnectedClient() bool { return m != SiteModeOfflineClient }

// Options carries the deployment context GetPerms needs beyond the
// object/user pair.
type Options struct {
	// LocalAdmin and Permissive are blanket escalations (spec.md §4.5
	// rule 3); use with care, same as the client config flags they mirror.
	LocalAdmin bool
	Permissive bool
	Mode       SiteMode
	// Synced reports whether oid has already been synced to the
	// repository (spec.md §4.5 rules 10-11). A nil Synced treats every
	// oid as unsynced, the conservative default for a standalone core.
	Synced func(oid string) bool
}

func (o Options) synced(oid string) bool {
	if o.Synced == nil {
		return false
	}
	return o.Synced(oid)
}

// Result is the outcome of a GetPerms call.
type Result struct {
	Perms  []string
	Reason string
}

// Has reports whether r.Perms contains perm.
func (r Result) Has(perm string) bool {
	for _, p := range r.Perms {
		if p == perm {
			return true
		}
	}
	return false
}

func result(reason string, perms ...string) Result {
	return Result{Perms: perms, Reason: reason}
}

func resultFromSet(reason string, perms map[string]bool) Result {
	return Result{Perms: sortedKeys(perms), Reason: reason}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
