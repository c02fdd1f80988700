package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/cmd/requestor"
)

// Values for version are injected by the build.
var (
	VERSION = ""
)

func main() {
	start := time.Now()
	log.Trace().Msgf("Top of execution - %s", start.UTC())
	requestor.Execute(VERSION)
	log.Trace().Msgf("Execution finished - %s", time.Since(start))
}
