package serializer

// migration rewrites a record serialized under an older schema version into
// the current shape (spec.md §4.4 "Schema migration"). Migrations run
// before topological ordering and may expand one record into several (or
// none, if the source record is dropped by the rewrite).
type migration func(Record) []Record

// migrationTable is keyed by the source schema version the record was
// serialized under. Idempotent: re-applying a migration to already-migrated
// data must be the identity (spec.md §8 "Schema migration idempotence"),
// so every migration checks for its own old shape before rewriting.
var migrationTable = map[string]migration{
	"2.0.0": migrateAcuToActCompRel,
}

// migrateAcuToActCompRel rewrites an Acu record whose assembly referent is
// an Activity into an ActCompRel record (spec.md §4.4 example): assembly ->
// composite_activity, component -> sub_activity, reference_designator ->
// sub_activity_role. A record that already carries composite_activity/
// sub_activity (or isn't an Acu) passes through unchanged, making the
// migration idempotent.
func migrateAcuToActCompRel(rec Record) []Record {
	cname, _ := rec[classTagKey].(string)
	if cname != "Acu" {
		return []Record{rec}
	}
	if _, already := rec["composite_activity"]; already {
		return []Record{rec}
	}

	out := Record{classTagKey: "ActCompRel"}
	for k, v := range rec {
		out[k] = v
	}
	out[classTagKey] = "ActCompRel"

	if assembly, ok := rec["assembly"]; ok {
		out["composite_activity"] = assembly
		delete(out, "assembly")
	}
	if component, ok := rec["component"]; ok {
		out["sub_activity"] = component
		delete(out, "component")
	}
	if refDes, ok := rec["reference_designator"]; ok {
		out["sub_activity_role"] = refDes
		delete(out, "reference_designator")
	}
	return []Record{out}
}

// applyMigrations runs the migration registered for sourceVersion, if any,
// returning the record unchanged when sourceVersion is empty or has no
// registered migration.
func applyMigrations(rec Record, sourceVersion string) []Record {
	m, ok := migrationTable[sourceVersion]
	if !ok {
		return []Record{rec}
	}
	return m(rec)
}
