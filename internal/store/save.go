package store

import "github.com/ontocore/core/pkg/coreerrors"

// Insert adds a brand-new Thing, raising DuplicateOID if its oid is already
// present (spec.md §7 StoreError). Most callers should use Save, which
// routes to Insert or Update transparently per spec.md §4.2.
func (s *Store) Insert(t *Thing) (*Thing, *coreerrors.CoreError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.things[t.OID]; exists {
		s.recordMutation(t.CName, "insert", "error")
		return nil, coreerrors.DuplicateOID(t.OID)
	}

	clone := t.Clone()
	s.resolveOwnerLocked(clone)
	s.things[clone.OID] = clone
	s.seedCanonicalParametersLocked(clone)
	s.refreshClassGauge()
	s.recordMutation(t.CName, "insert", "ok")
	return clone.Clone(), nil
}

// Update replaces an existing Thing in place, incrementing Iteration when
// the class is versionable (spec.md §4.2 save(), §3 invariants). It never
// rewrites ModDatetime — callers stamp it before calling Save, so remote
// updates preserve their remote timestamp (spec.md §3 Lifecycle).
func (s *Store) Update(t *Thing) (*Thing, *coreerrors.CoreError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.things[t.OID]
	if !ok {
		return s.insertLocked(t)
	}

	clone := t.Clone()
	clone.Meta.CreateDatetime = existing.Meta.CreateDatetime
	if existing.Meta.Versionable {
		clone.Meta.Versionable = true
		clone.Meta.Iteration = existing.Meta.Iteration + 1
	}
	s.resolveOwnerLocked(clone)

	s.things[clone.OID] = clone
	s.refreshClassGauge()
	s.recordMutation(t.CName, "update", "ok")
	return clone.Clone(), nil
}

func (s *Store) insertLocked(t *Thing) (*Thing, *coreerrors.CoreError) {
	clone := t.Clone()
	s.resolveOwnerLocked(clone)
	s.things[clone.OID] = clone
	s.seedCanonicalParametersLocked(clone)
	s.refreshClassGauge()
	s.recordMutation(t.CName, "insert", "ok")
	return clone.Clone(), nil
}

// Save upserts each of objs: insert when new, update in place when existing
// (spec.md §4.2 save()).
func (s *Store) Save(objs []*Thing) ([]*Thing, *coreerrors.CoreError) {
	out := make([]*Thing, 0, len(objs))
	for _, t := range objs {
		s.mu.RLock()
		_, exists := s.things[t.OID]
		s.mu.RUnlock()

		var (
			saved *Thing
			err   *coreerrors.CoreError
		)
		if exists {
			saved, err = s.Update(t)
		} else {
			saved, err = s.Insert(t)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// resolveOwnerLocked fills a missing Owner by falling back to the creator's
// organization, or to the platform root when the creator, its organization
// field, or that organization is absent (spec.md §4.2 save()).
// Organization.parent_oid is not consulted.
func (s *Store) resolveOwnerLocked(t *Thing) {
	if t.Meta.Owner != "" {
		return
	}

	creator, ok := s.things[t.Meta.Creator]
	if !ok {
		t.Meta.Owner = PlatformRootOrganization
		return
	}

	org, ok := creator.Fields["organization"]
	orgOID, _ := org.(string)
	if !ok || orgOID == "" {
		t.Meta.Owner = PlatformRootOrganization
		return
	}

	t.Meta.Owner = s.rootmostOrganizationLocked(orgOID)
}

// rootmostOrganizationLocked is used only for the owner fallback itself: it
// returns orgOID unchanged (the creator's own organization), since spec.md
// §4.2 says the fallback target IS the creator's organization, not its
// root. Organization.parent_oid is instead read by the Organization delete
// cascade (cascade.go), one level up, to reassign orphaned owned objects.
func (s *Store) rootmostOrganizationLocked(orgOID string) string {
	if _, ok := s.things[orgOID]; !ok {
		return PlatformRootOrganization
	}
	return orgOID
}

// seedCanonicalParametersLocked asks the Parametric Engine (if wired) to
// ensure m, P, R_D exist on a newly inserted HardwareProduct (spec.md §4.2
// save()).
func (s *Store) seedCanonicalParametersLocked(t *Thing) {
	if s.seeder == nil {
		return
	}
	if t.CName == CNameHardwareProduct {
		s.seeder.EnsureCanonicalParameters(t.OID)
	}
}
