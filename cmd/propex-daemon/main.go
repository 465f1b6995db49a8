package main

import (
	"fmt"
	"os"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/mq_client"
	"github.com/propfund/propex/workers/daemons"
	"github.com/propfund/propex/workers/engines"
)

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}
	if err := mq_client.Connect(); err != nil {
		fmt.Println(err.Error())
		return
	}

	ARVG := os.Args[1:]

	for _, id := range ARVG {
		fmt.Println("Start propex-daemon: " + id)

		switch id {
		case "cron_job":
			worker := daemons.NewCronJob()
			worker.Start()
		case "purchase_processor":
			worker := engines.NewPurchaseProcessorWorker()
			if err := worker.Start(); err != nil {
				fmt.Println(err.Error())
				return
			}
			select {}
		default:
			fmt.Println("Unknown worker: " + id)
			os.Exit(1)
		}
	}
}
