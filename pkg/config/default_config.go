package config

import (
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/viper"
)

const DefaultTaskPackage = "hash:sha3:0bf9efb4822c5cfd5606e62698e1edac1951f1973d0d944ca1ad5f07:" +
	"http://yacn.dev.golem.network:8000/ya-zksync-prover-0.2"

var Default = RequestorConfig{
	Market: MarketConfig{
		Subnet:      "devnet-alpha.3",
		NodeName:    "zk-sync-node",
		RuntimeName: "vm",
		TaskPackage: DefaultTaskPackage,
		Deadline:    25 * time.Minute,
		PollTimeout: 5 * time.Second,
		MaxEvents:   10,
	},
	Yagna: YagnaConfig{
		APIURL: "http://127.0.0.1:7465",
	},
	TaskQueue: TaskQueueConfig{
		WorkerName:        "yagna-node-1",
		RequestTimeout:    69 * time.Second,
		RegisterBlockSize: 0,
		Backoff: BackoffConfig{
			InitialInterval: time.Second,
			Multiplier:      1.5,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  120 * time.Second,
		},
	},
	Worker: WorkerConfig{
		Sizes:       []int{6, 30, 74, 150, 320, 630},
		RetryDelay:  10 * time.Second,
		EntryPoint:  "/bin/yagna-prover",
		Args:        []string{"ya-prover"},
		DebugDir:    ".",
		ProgressMax: 1644,
		StdoutFile:  "stdout-output.txt",
		StderrFile:  "stderr-output.txt",
	},
	Transfer: TransferConfig{
		ListenAddress: "0.0.0.0:7466",
		MaxUploadSize: 512 * datasize.MB,
	},
	Logging: LoggingConfig{
		Level: "info",
		Mode:  "default",
	},
}

// SetDefault registers every field of cfg as a viper default.
func SetDefault(cfg RequestorConfig) {
	defaults := map[string]any{
		MarketSubnet:      cfg.Market.Subnet,
		MarketNodeName:    cfg.Market.NodeName,
		MarketRuntimeName: cfg.Market.RuntimeName,
		MarketTaskPackage: cfg.Market.TaskPackage,
		MarketDeadline:    cfg.Market.Deadline,
		MarketPollTimeout: cfg.Market.PollTimeout,
		MarketMaxEvents:   cfg.Market.MaxEvents,

		YagnaAPIURL: cfg.Yagna.APIURL,
		YagnaAppKey: cfg.Yagna.AppKey,

		TaskQueueServerURL:              cfg.TaskQueue.ServerURL,
		TaskQueueWorkerName:             cfg.TaskQueue.WorkerName,
		TaskQueueRequestTimeout:         cfg.TaskQueue.RequestTimeout,
		TaskQueueRegisterBlockSize:      cfg.TaskQueue.RegisterBlockSize,
		TaskQueueBackoffInitialInterval: cfg.TaskQueue.Backoff.InitialInterval,
		TaskQueueBackoffMultiplier:      cfg.TaskQueue.Backoff.Multiplier,
		TaskQueueBackoffMaxInterval:     cfg.TaskQueue.Backoff.MaxInterval,
		TaskQueueBackoffMaxElapsedTime:  cfg.TaskQueue.Backoff.MaxElapsedTime,

		WorkerSizes:       cfg.Worker.Sizes,
		WorkerRetryDelay:  cfg.Worker.RetryDelay,
		WorkerEntryPoint:  cfg.Worker.EntryPoint,
		WorkerArgs:        cfg.Worker.Args,
		WorkerDebugDir:    cfg.Worker.DebugDir,
		WorkerProgressMax: cfg.Worker.ProgressMax,
		WorkerStdoutFile:  cfg.Worker.StdoutFile,
		WorkerStderrFile:  cfg.Worker.StderrFile,

		TransferListenAddress: cfg.Transfer.ListenAddress,
		TransferPublicURL:     cfg.Transfer.PublicURL,
		TransferMaxUploadSize: cfg.Transfer.MaxUploadSize.String(),

		LoggingLevel: cfg.Logging.Level,
		LoggingMode:  cfg.Logging.Mode,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}
