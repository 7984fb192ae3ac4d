package store

import (
	"sort"
	"sync"

	"github.com/ontocore/core/internal/schema"
	"github.com/ontocore/core/pkg/coreerrors"
	"github.com/ontocore/core/pkg/logger"
	"github.com/ontocore/core/pkg/metrics"
)

// ParamSeeder is the hook the Parametric Engine registers so the Object
// Store can ask it to seed canonical parameters on a new HardwareProduct
// (spec.md §4.2 save()), without the store importing the engine package.
type ParamSeeder interface {
	EnsureCanonicalParameters(oid string)
}

// Store holds the oid -> Thing mapping (spec.md §4.2). It is single-writer,
// multi-reader (spec.md §5): all mutations take the write lock; reads take
// the read lock and always return clones so callers never observe a
// concurrent writer's partial state.
type Store struct {
	mu       sync.RWMutex
	things   map[string]*Thing
	registry *schema.Registry
	log      *logger.Logger
	metrics  *metrics.Registry
	seeder   ParamSeeder
	purger   AllocationIndexPurger
}

// New constructs an empty Store bound to a schema Registry.
func New(registry *schema.Registry, log *logger.Logger, m *metrics.Registry) *Store {
	if log == nil {
		log = logger.NewDefault("object-store")
	}
	return &Store{
		things:   make(map[string]*Thing),
		registry: registry,
		log:      log,
		metrics:  m,
	}
}

// SetParamSeeder wires the Parametric Engine's canonical-parameter hook.
func (s *Store) SetParamSeeder(seeder ParamSeeder) { s.seeder = seeder }

func (s *Store) recordMutation(cname, op, outcome string) {
	if s.metrics != nil {
		s.metrics.StoreMutations.WithLabelValues(cname, op, outcome).Inc()
	}
}

func (s *Store) refreshClassGauge() {
	if s.metrics == nil {
		return
	}
	counts := make(map[string]int)
	for _, t := range s.things {
		counts[t.CName]++
	}
	s.metrics.ThingsByClass.Reset()
	for cname, n := range counts {
		s.metrics.ThingsByClass.WithLabelValues(cname).Set(float64(n))
	}
}

// Get returns the Thing for oid, and whether it was found (spec.md §4.2 get).
func (s *Store) Get(oid string) (*Thing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.things[oid]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// GetMany returns Things in the order requested, with nil entries for
// misses (spec.md §4.2 get_many).
func (s *Store) GetMany(oids []string) []*Thing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Thing, len(oids))
	for i, oid := range oids {
		if t, ok := s.things[oid]; ok {
			out[i] = t.Clone()
		}
	}
	return out
}

// GetByType returns every Thing whose exact CName equals cname (spec.md
// §4.2 get_by_type).
func (s *Store) GetByType(cname string) []*Thing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Thing
	for _, t := range s.things {
		if t.CName == cname {
			out = append(out, t.Clone())
		}
	}
	sortByOID(out)
	return out
}

// GetAllSubtypes returns the union of Things over the sub-DAG rooted at
// cname (spec.md §4.2 get_all_subtypes).
func (s *Store) GetAllSubtypes(cname string) []*Thing {
	subtypes := s.registry.Subtypes(cname)
	wanted := make(map[string]bool, len(subtypes))
	for _, c := range subtypes {
		wanted[c] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Thing
	for _, t := range s.things {
		if wanted[t.CName] {
			out = append(out, t.Clone())
		}
	}
	sortByOID(out)
	return out
}

// IsA reports whether cname is in obj's ancestor set, or obj's own class
// (spec.md §4.2 is_a).
func (s *Store) IsA(obj *Thing, cname string) bool {
	if obj == nil {
		return false
	}
	return s.registry.IsA(obj.CName, cname)
}

func matchesCriteria(t *Thing, criteria map[string]interface{}) bool {
	for field, want := range criteria {
		got, ok := t.Get(field)
		if !ok {
			got = nil
		}
		if wantRef, isRefWant := want.(nullRef); isRefWant {
			if got != wantRef.oid {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// nullRef wraps a reference-field comparison so that matching an explicit
// NullRef ("") is distinguishable from matching an absent-in-criteria
// field, per spec.md §4.2 select (object-valued criteria "match by referent
// oid, with null matching null").
type nullRef struct{ oid string }

// RefCriterion builds a criterion value for an object-valued field,
// matching by referent oid (the empty string matches a null reference).
func RefCriterion(oid string) interface{} { return nullRef{oid: oid} }

// Select returns the first Thing of cname matching criteria exactly, or
// nil (spec.md §4.2 select).
func (s *Store) Select(cname string, criteria map[string]interface{}) *Thing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*Thing
	for _, t := range s.things {
		if t.CName == cname {
			candidates = append(candidates, t)
		}
	}
	sortByOID(candidates)

	for _, t := range candidates {
		if matchesCriteria(t, criteria) {
			return t.Clone()
		}
	}
	return nil
}

// searchRoot picks the most specific class whose schema contains every
// criteria field, per spec.md §4.2 search_exact ("the most specific class
// containing all criteria fields is chosen as the search root").
func (s *Store) searchRoot(criteria map[string]interface{}) string {
	best := ""
	bestDepth := -1
	for cname, sc := range s.registry.Schemas() {
		hasAll := true
		for field := range criteria {
			if _, ok := sc.Fields[field]; !ok {
				hasAll = false
				break
			}
		}
		if !hasAll {
			continue
		}
		depth := len(s.registry.Ancestors(cname))
		if depth > bestDepth {
			bestDepth = depth
			best = cname
		}
	}
	return best
}

// SearchExact returns every matching Thing; if cname is empty the search
// root is inferred (spec.md §4.2 search_exact).
func (s *Store) SearchExact(criteria map[string]interface{}, cname string) []*Thing {
	root := cname
	if root == "" {
		root = s.searchRoot(criteria)
		if root == "" {
			return nil
		}
	}

	candidateClasses := s.registry.Subtypes(root)
	wanted := make(map[string]bool, len(candidateClasses))
	for _, c := range candidateClasses {
		wanted[c] = true
	}
	wanted[root] = true

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Thing
	for _, t := range s.things {
		if wanted[t.CName] && matchesCriteria(t, criteria) {
			out = append(out, t.Clone())
		}
	}
	sortByOID(out)
	return out
}

func sortByOID(things []*Thing) {
	sort.Slice(things, func(i, j int) bool { return things[i].OID < things[j].OID })
}
