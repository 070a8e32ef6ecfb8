package engine

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// WithMaintenanceCron starts a cron scheduler that sweeps expired
// entries from the in-memory metadata index on schedule. It repurposes
// the teacher's AddLRUCronJob/StartCron split into a single call since
// the engine has exactly one maintenance job, not an open set of them.
// Calling it twice replaces the previous schedule.
func (e *Engine) WithMaintenanceCron(schedule cron.Schedule) *Engine {
	if e.cron != nil {
		stopCtx := e.cron.Stop()
		<-stopCtx.Done()
	}

	e.cron = cron.New()

	log.Info().Time("next_run", schedule.Next(time.Now())).Msg("engine: scheduling index sweep")

	e.cron.Schedule(schedule, cron.FuncJob(e.sweep))
	e.cron.Start()

	return e
}

// sweep drops every expired entry from the in-memory index. It never
// touches the store: an evicted entry's on-disk projection is
// untouched, and the next Retrieve call for that graph IRI re-derives
// it via getOrCreateMemo's store fallback.
func (e *Engine) sweep() {
	removed := e.index.SweepExpired(time.Now())
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("engine: swept expired index entries")
	}
}
