package main

import (
	"os"

	"github.com/agentgate/agentgate/cmd/agentgate/cmd"
	"github.com/agentgate/agentgate/internal/common"
)

func main() {
	common.ConfigureLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
