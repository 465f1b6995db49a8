package engines

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/engine"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// PurchaseProcessorPayloadMessage is the envelope the payments subsystem
// publishes when a purchase settles or unwinds.
type PurchaseProcessorPayloadMessage struct {
	Action      string `json:"action"`
	ExternalRef string `json:"external_ref"`
	FinalState  string `json:"final_state,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

var (
	ActionPaid   = "paid"
	ActionUnwind = "unwind"
)

type PurchaseProcessorWorker struct {
	Gateway *engine.Gateway
}

func NewPurchaseProcessorWorker() *PurchaseProcessorWorker {
	return &PurchaseProcessorWorker{Gateway: engine.NewGateway()}
}

func (w *PurchaseProcessorWorker) Start() error {
	_, err := config.Nats.Subscribe("propex.purchases", func(m *nats.Msg) {
		w.Process(m.Data)
	})

	return err
}

func (w *PurchaseProcessorWorker) Process(payload []byte) {
	var message PurchaseProcessorPayloadMessage

	if err := json.Unmarshal(payload, &message); err != nil {
		config.Logger.Errorf("bad purchase payload: %v", err)
		return
	}

	var purchase models.Purchase
	if result := config.DataBase.First(&purchase, "external_ref = ?", message.ExternalRef); result.Error != nil {
		config.Logger.Errorf("unknown purchase %s", message.ExternalRef)
		return
	}

	var err error
	switch message.Action {
	case ActionPaid:
		err = w.Gateway.OnPurchasePaid(&purchase)
	case ActionUnwind:
		finalState := message.FinalState
		if finalState != types.PurchaseChargeback {
			finalState = types.PurchaseRefunded
		}
		err = w.Gateway.OnPurchaseUnwound(&purchase, finalState, message.Reason)
	}

	if err != nil {
		config.Logger.Errorf("purchase %s: %v", message.ExternalRef, err)
	}
}
