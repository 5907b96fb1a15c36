// Package schedule runs periodic maintenance jobs.
package schedule

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Purger is anything that can sweep its expired entries.
type Purger interface {
	PurgeExpired() int
}

// Maintenance owns the background cron runner.
type Maintenance struct {
	cron *cron.Cron
}

// New creates an idle maintenance runner. Jobs are registered before
// Start and keep running until Stop.
func New() *Maintenance {
	return &Maintenance{cron: cron.New()}
}

// AddPurge schedules a cache sweep on the given cron expression
// (descriptors like "@hourly" work too).
func (m *Maintenance) AddPurge(spec string, p Purger) error {
	_, err := m.cron.AddFunc(spec, func() {
		if removed := p.PurgeExpired(); removed > 0 {
			log.Printf("schedule: purged %d expired cache entries", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("add purge job %q: %w", spec, err)
	}
	return nil
}

// Start begins running registered jobs in the background.
func (m *Maintenance) Start() {
	m.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}
