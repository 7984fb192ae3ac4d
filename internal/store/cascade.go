package store

import "github.com/ontocore/core/pkg/coreerrors"

// AllocationIndexPurger is the hook the Parametric Engine registers so a
// deleted Requirement's entry in the requirement-allocation index is purged
// without the store importing the engine package (spec.md §4.2 delete(),
// §4.3.4).
type AllocationIndexPurger interface {
	PurgeRequirement(oid string)
}

// SetAllocationIndexPurger wires the Parametric Engine's allocation-index
// cleanup hook.
func (s *Store) SetAllocationIndexPurger(p AllocationIndexPurger) { s.purger = p }

// referrersLocked returns every Thing whose field named by fieldsToCheck
// holds oid as its object-valued reference.
func (s *Store) referrersLocked(oid string, fields ...string) []*Thing {
	var out []*Thing
	for _, t := range s.things {
		for _, f := range fields {
			if t.RefOID(f) == oid {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Delete removes each of oids, applying the referential cascades named in
// spec.md §4.2 "Referential cascades" before removing the Thing itself.
// Deletion of the whole batch is refused atomically if any single oid's
// cascade is refused (Product with non-empty where_used).
func (s *Store) Delete(oids []string) *coreerrors.CoreError {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, oid := range oids {
		t, ok := s.things[oid]
		if !ok {
			continue
		}
		if s.registry.IsA(t.CName, CNameProduct) {
			if used := s.referrersLocked(oid, "product"); len(used) > 0 {
				s.recordMutation(t.CName, "delete", "refused")
				return coreerrors.DeleteRefused(oid, "product is referenced by one or more Acu.product (where_used is non-empty)")
			}
		}
	}

	for _, oid := range oids {
		s.cascadeDeleteLocked(oid)
	}
	s.refreshClassGauge()
	return nil
}

func (s *Store) cascadeDeleteLocked(oid string) {
	t, ok := s.things[oid]
	if !ok {
		return
	}

	switch {
	case s.registry.IsA(t.CName, CNameProject):
		s.cascadeDeleteProjectLocked(oid)
	case s.registry.IsA(t.CName, CNameOrganization):
		s.reassignOwnedObjectsLocked(oid, t)
	case s.registry.IsA(t.CName, CNameAcu), s.registry.IsA(t.CName, CNamePort):
		s.deleteReferencingFlowsLocked(oid)
	case s.registry.IsA(t.CName, CNameRequirement):
		s.cascadeDeleteRequirementLocked(oid)
	}

	delete(s.things, oid)
	s.recordMutation(t.CName, "delete", "ok")
}

// cascadeDeleteProjectLocked removes a Project's RoleAssignments and
// ProjectSystemUsages before the Project itself (spec.md §4.2).
func (s *Store) cascadeDeleteProjectLocked(oid string) {
	for _, ref := range s.referrersLocked(oid, "project") {
		if s.registry.IsA(ref.CName, CNameRoleAssignment) || s.registry.IsA(ref.CName, CNameProjectSystemUsage) {
			delete(s.things, ref.OID)
			s.recordMutation(ref.CName, "delete", "cascade")
		}
	}
}

// reassignOwnedObjectsLocked points every Thing owned by org at org's
// parent, or the platform root if org has none or the parent is itself
// being deleted (spec.md §4.2, §9 supplement).
func (s *Store) reassignOwnedObjectsLocked(org string, orgThing *Thing) {
	newOwner := orgThing.RefOID("parent_oid")
	if newOwner == NullRef {
		newOwner = PlatformRootOrganization
	} else if _, ok := s.things[newOwner]; !ok {
		newOwner = PlatformRootOrganization
	}

	for _, t := range s.things {
		if t.Meta.Owner == org {
			t.Meta.Owner = newOwner
		}
	}
}

// deleteReferencingFlowsLocked removes every Flow whose source or
// destination is oid, ahead of deleting the Acu/Port itself (spec.md §4.2).
func (s *Store) deleteReferencingFlowsLocked(oid string) {
	for _, ref := range s.referrersLocked(oid, "source", "destination") {
		if s.registry.IsA(ref.CName, CNameFlow) {
			delete(s.things, ref.OID)
			s.recordMutation(ref.CName, "delete", "cascade")
		}
	}
}

// cascadeDeleteRequirementLocked removes a Requirement's computable-form
// Relation and its ParameterRelations, and purges the requirement-
// allocation index entry via the Parametric Engine hook, if wired
// (spec.md §4.2, §4.3.4).
func (s *Store) cascadeDeleteRequirementLocked(oid string) {
	for _, rel := range s.referrersLocked(oid, "requirement") {
		if s.registry.IsA(rel.CName, CNameRelation) {
			for _, pr := range s.referrersLocked(rel.OID, "relation") {
				if s.registry.IsA(pr.CName, CNameParameterRelation) {
					delete(s.things, pr.OID)
					s.recordMutation(pr.CName, "delete", "cascade")
				}
			}
			delete(s.things, rel.OID)
			s.recordMutation(rel.CName, "delete", "cascade")
		}
	}

	if s.purger != nil {
		s.purger.PurgeRequirement(oid)
	}
}
