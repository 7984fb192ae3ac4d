package serializer

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/ontocore/core/pkg/logger"
)

// PeekClassAndTimestamp extracts a raw serialized record's class tag and
// mod_datetime via a JSON-path query, without a full unmarshal (SPEC_FULL.md
// §4.4 expansion: migration and topological ordering both need these two
// fields ahead of decoding, and a malformed sibling record must not abort
// the rest of the batch).
func PeekClassAndTimestamp(raw []byte) (cname, modDatetime string, ok bool) {
	if !gjson.ValidBytes(raw) {
		return "", "", false
	}
	parsed := gjson.ParseBytes(raw)
	cname = parsed.Get(classTagKey).String()
	if cname == "" {
		return "", "", false
	}
	modDatetime = parsed.Get(fieldModDatetime).String()
	return cname, modDatetime, true
}

// DecodeRecords decodes a JSON array of raw serialized records (the
// "serialization exchange format" of spec.md §6) into Records, peeking each
// element's class tag first so a malformed record is skipped rather than
// aborting the whole batch (spec.md §7 "Snapshot writes are best-effort";
// extended here to best-effort batch decode).
func DecodeRecords(raw []byte, log *logger.Logger) (records []Record, skipped int) {
	if log == nil {
		log = logger.NewDefault("serializer")
	}
	if !gjson.ValidBytes(raw) {
		log.Warn("decode records: malformed top-level JSON, nothing decoded")
		return nil, 0
	}

	elements := gjson.ParseBytes(raw).Array()
	records = make([]Record, 0, len(elements))
	for i, el := range elements {
		elRaw := []byte(el.Raw)
		if cname, _, ok := PeekClassAndTimestamp(elRaw); !ok || cname == "" {
			log.WithField("index", i).Warn("decode records: skipping record with no class tag")
			skipped++
			continue
		}

		var rec Record
		if err := json.Unmarshal(elRaw, &rec); err != nil {
			log.WithField("index", i).WithField("error", err.Error()).Warn("decode records: skipping malformed record")
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

// EncodeRecords serializes records to the exchange format: a JSON array,
// each element's keys sorted (spec.md §4.6 "keys sorted" convention,
// applied here for the exchange format too).
func EncodeRecords(records []Record) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}
