package main

import (
	"fmt"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/routes"
)

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}

	r := routes.SetupRouter()
	// running
	r.Listen(":3000")
}
