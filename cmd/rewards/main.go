package main

import (
	"os"

	"github.com/questx-lab/engagement/pkg/xcontext"
)

var server srv

func main() {
	server.loadConfig()
	server.loadContext()
	server.loadApp()

	if err := server.app.Run(os.Args); err != nil {
		xcontext.Logger(server.ctx).Errorf("%v", err)
		os.Exit(1)
	}
}
