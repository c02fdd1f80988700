package requestor

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yagna-labs/zksync-requestor/pkg/config"
)

type flagDefinition struct {
	Name        string
	Path        string
	Default     interface{}
	Description string
}

// registerFlags defines every flag with its default and binds it to its viper path.
func registerFlags(cmd *cobra.Command, register map[string][]flagDefinition) error {
	for name, defs := range register {
		fset := pflag.NewFlagSet(name, pflag.ContinueOnError)
		for _, def := range defs {
			switch v := def.Default.(type) {
			case int:
				fset.Int(def.Name, v, def.Description)
			case int64:
				fset.Int64(def.Name, v, def.Description)
			case float64:
				fset.Float64(def.Name, v, def.Description)
			case bool:
				fset.Bool(def.Name, v, def.Description)
			case string:
				fset.String(def.Name, v, def.Description)
			case []string:
				fset.StringSlice(def.Name, v, def.Description)
			case []int:
				fset.IntSlice(def.Name, v, def.Description)
			case time.Duration:
				fset.Duration(def.Name, v, def.Description)
			default:
				return fmt.Errorf("unhandled type: %T", v)
			}
			if err := viper.BindPFlag(def.Path, fset.Lookup(def.Name)); err != nil {
				return err
			}
		}
		cmd.PersistentFlags().AddFlagSet(fset)
	}
	return nil
}

var MarketFlags = []flagDefinition{
	{
		Name:        "subnet",
		Path:        config.MarketSubnet,
		Default:     config.Default.Market.Subnet,
		Description: "Marketplace subnet shared with the providers. Also read from SUBNET.",
	},
	{
		Name:        "node-name",
		Path:        config.MarketNodeName,
		Default:     config.Default.Market.NodeName,
		Description: "Node name advertised in the demand",
	},
	{
		Name:        "runtime",
		Path:        config.MarketRuntimeName,
		Default:     config.Default.Market.RuntimeName,
		Description: "Runtime the provider must offer",
	},
	{
		Name:        "task-package",
		Path:        config.MarketTaskPackage,
		Default:     config.Default.Market.TaskPackage,
		Description: "Prover image deployed on the provider",
	},
	{
		Name:        "negotiation-deadline",
		Path:        config.MarketDeadline,
		Default:     config.Default.Market.Deadline,
		Description: "How long to look for a provider. Also the expiration of the demand and agreement.",
	},
	{
		Name:        "market-poll-timeout",
		Path:        config.MarketPollTimeout,
		Default:     config.Default.Market.PollTimeout,
		Description: "Timeout of each long poll for market events",
	},
	{
		Name:        "market-max-events",
		Path:        config.MarketMaxEvents,
		Default:     config.Default.Market.MaxEvents,
		Description: "Maximum market events fetched per poll",
	},
}

var YagnaFlags = []flagDefinition{
	{
		Name:        "yagna-api-url",
		Path:        config.YagnaAPIURL,
		Default:     config.Default.Yagna.APIURL,
		Description: "REST API of the local yagna daemon",
	},
	{
		Name:        "app-key",
		Path:        config.YagnaAppKey,
		Default:     config.Default.Yagna.AppKey,
		Description: "Yagna application key. Also read from YAGNA_APPKEY.",
	},
}

var TaskQueueFlags = []flagDefinition{
	{
		Name:        "server-url",
		Path:        config.TaskQueueServerURL,
		Default:     config.Default.TaskQueue.ServerURL,
		Description: "Proof coordination server. Also read from SERVER_API_URL.",
	},
	{
		Name:        "worker-name",
		Path:        config.TaskQueueWorkerName,
		Default:     config.Default.TaskQueue.WorkerName,
		Description: "Name this prover registers and claims work under",
	},
	{
		Name:        "request-timeout",
		Path:        config.TaskQueueRequestTimeout,
		Default:     config.Default.TaskQueue.RequestTimeout,
		Description: "Timeout of a single request to the coordination server",
	},
	{
		Name:        "register-block-size",
		Path:        config.TaskQueueRegisterBlockSize,
		Default:     config.Default.TaskQueue.RegisterBlockSize,
		Description: "Block size reported when registering the prover",
	},
	{
		Name:        "backoff-initial-interval",
		Path:        config.TaskQueueBackoffInitialInterval,
		Default:     config.Default.TaskQueue.Backoff.InitialInterval,
		Description: "First delay between retried requests",
	},
	{
		Name:        "backoff-multiplier",
		Path:        config.TaskQueueBackoffMultiplier,
		Default:     config.Default.TaskQueue.Backoff.Multiplier,
		Description: "Growth factor of the delay between retried requests",
	},
	{
		Name:        "backoff-max-interval",
		Path:        config.TaskQueueBackoffMaxInterval,
		Default:     config.Default.TaskQueue.Backoff.MaxInterval,
		Description: "Upper bound of the delay between retried requests",
	},
	{
		Name:        "backoff-max-elapsed-time",
		Path:        config.TaskQueueBackoffMaxElapsedTime,
		Default:     config.Default.TaskQueue.Backoff.MaxElapsedTime,
		Description: "Give up retrying a request after this long",
	},
}

var WorkerFlags = []flagDefinition{
	{
		Name:        "block-sizes",
		Path:        config.WorkerSizes,
		Default:     config.Default.Worker.Sizes,
		Description: "Block size classes tried in order when claiming work",
	},
	{
		Name:        "retry-delay",
		Path:        config.WorkerRetryDelay,
		Default:     config.Default.Worker.RetryDelay,
		Description: "Pause after a failed or empty work cycle",
	},
	{
		Name:        "entry-point",
		Path:        config.WorkerEntryPoint,
		Default:     config.Default.Worker.EntryPoint,
		Description: "Prover executable inside the provider runtime",
	},
	{
		Name:        "prover-args",
		Path:        config.WorkerArgs,
		Default:     config.Default.Worker.Args,
		Description: "Arguments passed to the prover",
	},
	{
		Name:        "debug-dir",
		Path:        config.WorkerDebugDir,
		Default:     config.Default.Worker.DebugDir,
		Description: "Directory receiving copies of exchanged files and prover output. Empty disables them.",
	},
	{
		Name:        "progress-max",
		Path:        config.WorkerProgressMax,
		Default:     config.Default.Worker.ProgressMax,
		Description: "Prover stdout bytes that make up a full progress bar",
	},
	{
		Name:        "stdout-file",
		Path:        config.WorkerStdoutFile,
		Default:     config.Default.Worker.StdoutFile,
		Description: "File in the debug directory receiving the prover stdout",
	},
	{
		Name:        "stderr-file",
		Path:        config.WorkerStderrFile,
		Default:     config.Default.Worker.StderrFile,
		Description: "File in the debug directory receiving the prover stderr",
	},
}

var TransferFlags = []flagDefinition{
	{
		Name:        "transfer-listen",
		Path:        config.TransferListenAddress,
		Default:     config.Default.Transfer.ListenAddress,
		Description: "Address the file transfer server listens on",
	},
	{
		Name:        "transfer-public-url",
		Path:        config.TransferPublicURL,
		Default:     config.Default.Transfer.PublicURL,
		Description: "URL providers reach the file transfer server at. Defaults to http://<transfer-listen>.",
	},
	{
		Name:        "max-upload-size",
		Path:        config.TransferMaxUploadSize,
		Default:     config.Default.Transfer.MaxUploadSize.String(),
		Description: "Largest file a provider may upload, e.g. 512MB",
	},
}

var LoggingFlags = []flagDefinition{
	{
		Name:        "log-level",
		Path:        config.LoggingLevel,
		Default:     config.Default.Logging.Level,
		Description: "One of: trace, debug, info, warn, error, fatal. Also read from LOG_LEVEL.",
	},
	{
		Name:        "log-mode",
		Path:        config.LoggingMode,
		Default:     config.Default.Logging.Mode,
		Description: "Log format: 'default','json','combined'. Also read from LOG_TYPE.",
	},
}
