package cron

import (
	"time"

	"github.com/jasonlvhit/gocron"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/engine"
)

type ClearingJob struct {
}

func (j *ClearingJob) Process() {
	s := gocron.NewScheduler()
	s.Every(1).Hour().Do(clearDueCommissions)
	<-s.Start()
}

func clearDueCommissions() {
	ledger := engine.NewLedger()

	cleared, err := ledger.ClearDue(time.Now().UTC(), config.Vars.ClearingWindow)
	if err != nil {
		config.Logger.Errorf("clearing pass failed: %v", err)
		return
	}

	if cleared > 0 {
		config.Logger.Infof("cleared %d commission entries", cleared)
	}
}
