package persistence

import (
	"github.com/robfig/cron/v3"
)

// Scheduler drives periodic snapshotting on a cron expression (SPEC_FULL.md
// §4.6 expansion "Scheduled snapshotting"). It is a thin wrapper: the
// triggered save is the exact same Persistence.Save an on-request caller
// would invoke, so retention and backup semantics are unchanged.
type Scheduler struct {
	cron    *cron.Cron
	persist *Persistence
	homeDir string
}

// NewScheduler builds a Scheduler that snapshots p to homeDir on expr (a
// standard 5-field cron expression). Call Start to begin, Stop to halt.
func NewScheduler(p *Persistence, homeDir, expr string) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, persist: p, homeDir: homeDir}
	if _, err := c.AddFunc(expr, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) tick() {
	report := s.persist.Save(s.homeDir)
	for file, status := range report {
		if status != "success" {
			s.persist.log.WithField("file", file).WithField("status", status).Warn("scheduled snapshot: non-success status")
		}
	}
}

// Start begins the cron schedule in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule, waiting for any in-flight snapshot to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
