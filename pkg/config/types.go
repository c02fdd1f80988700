package config

import (
	"time"

	"github.com/c2h5oh/datasize"
)

type RequestorConfig struct {
	Market    MarketConfig
	Yagna     YagnaConfig
	TaskQueue TaskQueueConfig
	Worker    WorkerConfig
	Transfer  TransferConfig
	Logging   LoggingConfig
}

type MarketConfig struct {
	// Subnet is the marketplace subnet tag both demand and providers must share.
	Subnet      string
	NodeName    string
	RuntimeName string
	// TaskPackage references the workload image deployed on the provider.
	TaskPackage string
	// Deadline bounds negotiation and is the expiration of the published demand.
	Deadline    time.Duration
	PollTimeout time.Duration
	MaxEvents   int
}

type YagnaConfig struct {
	APIURL string
	AppKey string
}

type TaskQueueConfig struct {
	ServerURL         string
	WorkerName        string
	RequestTimeout    time.Duration
	RegisterBlockSize int
	Backoff           BackoffConfig
}

type BackoffConfig struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

type WorkerConfig struct {
	// Sizes are the block size classes tried in order when claiming work.
	Sizes      []int
	RetryDelay time.Duration
	EntryPoint string
	Args       []string
	// DebugDir receives local copies of exchanged files. Empty disables them.
	DebugDir    string
	ProgressMax int64
	StdoutFile  string
	StderrFile  string
}

type TransferConfig struct {
	ListenAddress string
	// PublicURL is how the provider reaches this server. Defaults to http://<ListenAddress>.
	PublicURL     string
	MaxUploadSize datasize.ByteSize
}

type LoggingConfig struct {
	// Level sets the logging level. One of: trace, debug, info, warn, error, fatal.
	Level string
	// Mode specifies the logging mode. One of: default, json, combined.
	Mode string
}
