package persistence

// migrateParameterDict converts parameters.json entries from the old
// dict-shaped format ({"value": ..., "units": ...}) to the flat numeric
// format, leaving already-flat entries untouched (spec.md §4.6: "written
// in an older dict-shaped format are auto-migrated to the flat format on
// load").
func migrateParameterDict(raw map[string]map[string]interface{}) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(raw))
	for oid, bucket := range raw {
		flat := make(map[string]float64, len(bucket))
		for pid, v := range bucket {
			flat[pid] = parameterValue(v)
		}
		out[oid] = flat
	}
	return out
}

// parameterValue extracts the numeric value from either format.
func parameterValue(v interface{}) float64 {
	if dict, ok := v.(map[string]interface{}); ok {
		return toFloat(dict["value"])
	}
	return toFloat(v)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// migrateDataElementDict mirrors migrateParameterDict for data_elements.json,
// whose values are not necessarily numeric so the old-format unwrap keeps
// whatever type "value" held.
func migrateDataElementDict(raw map[string]map[string]interface{}) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(raw))
	for oid, bucket := range raw {
		flat := make(map[string]interface{}, len(bucket))
		for deid, v := range bucket {
			if dict, ok := v.(map[string]interface{}); ok {
				if val, present := dict["value"]; present {
					flat[deid] = val
					continue
				}
			}
			flat[deid] = v
		}
		out[oid] = flat
	}
	return out
}
