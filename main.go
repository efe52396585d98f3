// main is the entry point for the spectrum CLI.
package main

import (
	"os"

	"github.com/lambentLogic/spectrum/cmd"
	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/internal/iocache"
)

func main() {
	defer iocache.CloseStores()

	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()

	if profErr := cmd.StopProfiling(); profErr != nil {
		contract.LogWarn("Failed to stop profiling", profErr)
	}

	if err != nil {
		contract.LogWarn(err.Error(), nil)
		iocache.CloseStores() // os.Exit skips deferred calls
		os.Exit(1)
	}
}
