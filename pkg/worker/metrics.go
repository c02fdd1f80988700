package worker

import (
	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
)

var (
	cyclesCounter = telemetry.MustNewCounter(
		telemetry.Meter(), "requestor.work.cycles", "Proving cycles started")
	failuresCounter = telemetry.MustNewCounter(
		telemetry.Meter(), "requestor.work.failures", "Proving cycles that failed and were retried")
	publishedCounter = telemetry.MustNewCounter(
		telemetry.Meter(), "requestor.proofs.published", "Proofs published to the task queue")
)
