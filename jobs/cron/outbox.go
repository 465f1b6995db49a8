package cron

import (
	"time"

	"github.com/jasonlvhit/gocron"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/mq_client"
)

type OutboxJob struct {
}

func (j *OutboxJob) Process() {
	s := gocron.NewScheduler()
	s.Every(1).Minute().Do(dispatchOutbox)
	<-s.Start()
}

// dispatchOutbox delivers committed events at least once: a row is marked
// dispatched only after the publish succeeds, and consumers dedupe on the
// event id.
func dispatchOutbox() {
	var events []*models.OutboxEvent

	config.DataBase.
		Where("dispatched_at IS NULL").
		Order("id asc").
		Limit(500).
		Find(&events)

	for _, event := range events {
		if err := mq_client.EnqueueEvent("events", "affiliate", event.Name, []byte(event.Payload)); err != nil {
			config.Logger.Errorf("outbox publish failed for event %d: %v", event.ID, err)
			return
		}

		config.InfluxDB.NewPoint("affiliate_events",
			map[string]string{"name": event.Name},
			map[string]interface{}{"event_id": event.ID},
		)

		config.DataBase.Model(event).Update("dispatched_at", time.Now().UTC())
	}
}
