package persistence

import "time"

// dateStamp names the daily backup directory (spec.md §4.6: "a backup
// directory dated by calendar day... last write wins" — calling this twice
// in one day returns the same name, so a second Save overwrites the first).
func dateStamp() string {
	return time.Now().Format("2006-01-02")
}
