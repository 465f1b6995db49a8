package cron

import (
	"time"

	"github.com/jasonlvhit/gocron"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/engine"
)

type ReconcileJob struct {
}

func (j *ReconcileJob) Process() {
	s := gocron.NewScheduler()
	s.Every(5).Minutes().Do(reconcileStalePayouts)
	<-s.Start()
}

// reconcileStalePayouts surfaces dispatches stuck in processing past the
// rail timeout. The rows stay in processing; operators confirm or fail
// them against the rail's own record.
func reconcileStalePayouts() {
	orchestrator := engine.NewOrchestrator(engine.NewLedger())

	stale, err := orchestrator.ReconcileStale(time.Now().UTC(), config.Vars.DispatchTimeout)
	if err != nil {
		config.Logger.Errorf("payout reconciliation failed: %v", err)
		return
	}

	for _, request := range stale {
		config.Logger.Warnf("payout %d stuck in processing since %v", request.ID, request.DispatchedAt.Time)
	}
}
