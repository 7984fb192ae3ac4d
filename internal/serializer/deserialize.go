package serializer

import (
	"sort"

	"github.com/ontocore/core/internal/store"
	"github.com/ontocore/core/pkg/coreerrors"
	"github.com/ontocore/core/pkg/logger"
)

// topologicalOrder is the fixed class sequence deserialization processes
// records in, so relationship targets exist before referents (spec.md
// §4.4). Classes not named here ("others") are processed last, in the
// order their records appear.
var topologicalOrder = []string{
	store.CNameRelation,
	store.CNameDiscipline,
	store.CNameRole,
	store.CNameOrganization,
	store.CNameProject,
	store.CNamePerson,
	store.CNameRoleAssignment,
	store.CNameDataElementDef,
	store.CNameParameterDefinition,
	store.CNameParameterRelation,
	store.CNamePortType,
	store.CNamePortTemplate,
	store.CNameProductType,
	store.CNameActivityType,
	store.CNameProduct,
	store.CNameTemplate,
	store.CNameHardwareProduct,
	store.CNameSoftwareProduct,
	store.CNameDigitalProduct,
	store.CNameActivity,
	store.CNameMission,
	store.CNameActCompRel,
	store.CNameAcu,
	store.CNameProjectSystemUsage,
	store.CNameModel,
	store.CNamePort,
	store.CNameFlow,
	store.CNameRepresentation,
	store.CNameRepresentationFile,
	store.CNameRequirement,
}

var topologicalRank = func() map[string]int {
	rank := make(map[string]int, len(topologicalOrder))
	for i, cname := range topologicalOrder {
		rank[cname] = i
	}
	return rank
}()

// rankOf returns a class's position in the fixed topological order, or a
// rank after every named class for "others" (spec.md §4.4).
func rankOf(cname string) int {
	if r, ok := topologicalRank[cname]; ok {
		return r
	}
	return len(topologicalOrder)
}

// DeserializeOptions controls a Deserialize call.
type DeserializeOptions struct {
	// ForceUpdate bypasses the last-writer-wins mod_datetime check (spec.md
	// §4.4).
	ForceUpdate bool
	// SchemaVersion is the source schema version records were serialized
	// under; the migration table is applied before ordering (spec.md §4.4).
	SchemaVersion string
	// Parameters restores the "parameters"/"data_elements" sub-dictionaries
	// into the Parametric Engine's caches, if supplied.
	Parameters ParameterSource
	// RefreshComponents is invoked for every Acu/PSU record deserialized, to
	// opportunistically refresh the componentz/systemz indices (spec.md
	// §4.4 "Acu and PSU records additionally refresh the components and
	// systems indices opportunistically").
	RefreshComponents func(oid, cname string)
}

// Deserialize replays records into st in the fixed topological order,
// applying schema migration first and skipping records whose existing
// mod_datetime is later than the incoming one unless ForceUpdate is set
// (spec.md §4.4).
func Deserialize(st *store.Store, log *logger.Logger, records []Record, opts DeserializeOptions) *coreerrors.CoreError {
	if log == nil {
		log = logger.NewDefault("serializer")
	}

	migrated := make([]Record, 0, len(records))
	for _, rec := range records {
		migrated = append(migrated, applyMigrations(rec, opts.SchemaVersion)...)
	}

	ordered := make([]Record, len(migrated))
	copy(ordered, migrated)
	stableSortByRank(ordered)

	for _, rec := range ordered {
		cname, _ := rec[classTagKey].(string)
		if cname == "" {
			return coreerrors.UnknownClassTag("")
		}

		t := fromRecord(rec)
		oid := t.OID

		if existing, ok := st.Get(oid); ok && !opts.ForceUpdate {
			if existing.Meta.ModDatetime > t.Meta.ModDatetime {
				log.WithField("oid", oid).Debug("deserialize: skipping record older than stored mod_datetime")
				continue
			}
		}

		if _, err := st.Save([]*store.Thing{t}); err != nil {
			return err
		}

		if opts.Parameters != nil {
			opts.Parameters.RestoreParameters(oid, recordParameters(rec))
			opts.Parameters.RestoreDataElements(oid, recordDataElements(rec))
		}

		if opts.RefreshComponents != nil && (cname == store.CNameAcu || cname == store.CNameProjectSystemUsage) {
			opts.RefreshComponents(oid, cname)
		}
	}
	return nil
}

// stableSortByRank sorts records by topological rank, preserving relative
// order within a rank.
func stableSortByRank(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ci, _ := records[i][classTagKey].(string)
		cj, _ := records[j][classTagKey].(string)
		return rankOf(ci) < rankOf(cj)
	})
}
