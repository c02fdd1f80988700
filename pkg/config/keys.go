package config

// Keys of every setting, as used by viper, flags and config.yaml.
const (
	MarketSubnet      = "Market.Subnet"
	MarketNodeName    = "Market.NodeName"
	MarketRuntimeName = "Market.RuntimeName"
	MarketTaskPackage = "Market.TaskPackage"
	MarketDeadline    = "Market.Deadline"
	MarketPollTimeout = "Market.PollTimeout"
	MarketMaxEvents   = "Market.MaxEvents"

	YagnaAPIURL = "Yagna.APIURL"
	YagnaAppKey = "Yagna.AppKey"

	TaskQueueServerURL              = "TaskQueue.ServerURL"
	TaskQueueWorkerName             = "TaskQueue.WorkerName"
	TaskQueueRequestTimeout         = "TaskQueue.RequestTimeout"
	TaskQueueRegisterBlockSize      = "TaskQueue.RegisterBlockSize"
	TaskQueueBackoffInitialInterval = "TaskQueue.Backoff.InitialInterval"
	TaskQueueBackoffMultiplier      = "TaskQueue.Backoff.Multiplier"
	TaskQueueBackoffMaxInterval     = "TaskQueue.Backoff.MaxInterval"
	TaskQueueBackoffMaxElapsedTime  = "TaskQueue.Backoff.MaxElapsedTime"

	WorkerSizes       = "Worker.Sizes"
	WorkerRetryDelay  = "Worker.RetryDelay"
	WorkerEntryPoint  = "Worker.EntryPoint"
	WorkerArgs        = "Worker.Args"
	WorkerDebugDir    = "Worker.DebugDir"
	WorkerProgressMax = "Worker.ProgressMax"
	WorkerStdoutFile  = "Worker.StdoutFile"
	WorkerStderrFile  = "Worker.StderrFile"

	TransferListenAddress = "Transfer.ListenAddress"
	TransferPublicURL     = "Transfer.PublicURL"
	TransferMaxUploadSize = "Transfer.MaxUploadSize"

	LoggingLevel = "Logging.Level"
	LoggingMode  = "Logging.Mode"
)

// legacyEnvVars are the variable names earlier deployments were configured with.
var legacyEnvVars = map[string]string{
	MarketSubnet:       "SUBNET",
	YagnaAppKey:        "YAGNA_APPKEY",
	TaskQueueServerURL: "SERVER_API_URL",
	LoggingLevel:       "LOG_LEVEL",
	LoggingMode:        "LOG_TYPE",
}
