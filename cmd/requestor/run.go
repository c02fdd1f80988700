package requestor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
	"github.com/yagna-labs/zksync-requestor/pkg/config"
	"github.com/yagna-labs/zksync-requestor/pkg/logger"
	"github.com/yagna-labs/zksync-requestor/pkg/market"
	"github.com/yagna-labs/zksync-requestor/pkg/system"
	"github.com/yagna-labs/zksync-requestor/pkg/taskqueue"
	"github.com/yagna-labs/zksync-requestor/pkg/transfer"
	"github.com/yagna-labs/zksync-requestor/pkg/transfer/httpfs"
	"github.com/yagna-labs/zksync-requestor/pkg/worker"
	"github.com/yagna-labs/zksync-requestor/pkg/yagna"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Rent a provider and prove blocks on it until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), GetCleanupManager(cmd.Context()), cfg)
		},
	}
	if err := registerFlags(runCmd, map[string][]flagDefinition{
		"market":    MarketFlags,
		"yagna":     YagnaFlags,
		"taskqueue": TaskQueueFlags,
		"worker":    WorkerFlags,
		"transfer":  TransferFlags,
	}); err != nil {
		panic(err)
	}
	return runCmd
}

// run drives the requestor from negotiation to the proving loop. Every resource
// acquired along the way registers its release on cm. An interrupt at any stage
// is a clean shutdown, not a failure.
func run(ctx context.Context, cm *system.CleanupManager, cfg config.RequestorConfig) error {
	err := serve(ctx, cm, cfg)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Ctx(ctx).Info().Msg("shutting down")
		return nil
	}
	return err
}

func serve(ctx context.Context, cm *system.CleanupManager, cfg config.RequestorConfig) error {
	server, err := httpfs.NewServer(httpfs.ServerParams{
		ListenAddress: cfg.Transfer.ListenAddress,
		PublicURL:     cfg.Transfer.PublicURL,
		MaxUploadSize: cfg.Transfer.MaxUploadSize,
	})
	if err != nil {
		return err
	}
	if err := server.Start(ctx, cm); err != nil {
		return errors.Wrap(err, "starting transfer server")
	}

	client, err := yagna.NewClient(yagna.ClientParams{
		BaseURL:     cfg.Yagna.APIURL,
		AppKey:      cfg.Yagna.AppKey,
		PollTimeout: cfg.Market.PollTimeout,
		MaxEvents:   cfg.Market.MaxEvents,
	})
	if err != nil {
		return err
	}

	demand := market.NewDemand(market.DemandParams{
		NodeName:    cfg.Market.NodeName,
		Subnet:      cfg.Market.Subnet,
		TaskPackage: cfg.Market.TaskPackage,
		RuntimeName: cfg.Market.RuntimeName,
		Deadline:    time.Now().Add(cfg.Market.Deadline),
	})
	negotiator := market.NewNegotiator(market.NegotiatorParams{Market: yagna.NewMarket(client)})
	agreement, err := negotiator.Negotiate(ctx, demand)
	if err != nil {
		return errors.Wrap(err, "negotiating a provider")
	}
	ctx = logger.ContextWithFields(ctx, "agreement_id", agreement.ID)
	log.Ctx(ctx).Info().Str("provider", agreement.ProviderName).Msg("agreement confirmed")

	tq, err := taskqueue.NewClient(taskqueue.ClientParams{
		BaseURL:        cfg.TaskQueue.ServerURL,
		WorkerName:     cfg.TaskQueue.WorkerName,
		RequestTimeout: cfg.TaskQueue.RequestTimeout,
		Backoff: taskqueue.BackoffParams{
			InitialInterval: cfg.TaskQueue.Backoff.InitialInterval,
			Multiplier:      cfg.TaskQueue.Backoff.Multiplier,
			MaxInterval:     cfg.TaskQueue.Backoff.MaxInterval,
			MaxElapsedTime:  cfg.TaskQueue.Backoff.MaxElapsedTime,
		},
	})
	if err != nil {
		return err
	}
	workerID, err := tq.Register(ctx, cfg.TaskQueue.RegisterBlockSize)
	if err != nil {
		return errors.Wrap(err, "registering with the task queue server")
	}
	log.Ctx(ctx).Info().Int32("worker_id", workerID).Msg("registered prover")
	cm.RegisterCallbackWithContext(func(ctx context.Context) error {
		return tq.Deregister(ctx, workerID)
	})

	act, err := yagna.CreateActivity(ctx, client, agreement.ID)
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	executor := activity.NewExecutor(activity.ExecutorParams{Activity: act})
	cm.RegisterCallbackWithContext(executor.Destroy)
	ctx = logger.ContextWithFields(ctx, "activity_id", executor.ActivityID())

	if _, err := executor.Execute(ctx, activity.Batch{activity.Deploy{}, activity.Start{}}); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to initialize yagna task")
		return nil
	}
	log.Ctx(ctx).Info().Msg("prover runtime started")

	transfers := transfer.NewTransfers(transfer.TransfersParams{
		Transport: server,
		Executor:  executor,
	})
	w, err := worker.NewWorker(worker.WorkerParams{
		TaskQueue:    tq,
		Transfers:    transfers,
		Runner:       executor,
		Sizes:        cfg.Worker.Sizes,
		EntryPoint:   cfg.Worker.EntryPoint,
		Args:         cfg.Worker.Args,
		RetryDelay:   cfg.Worker.RetryDelay,
		DebugDir:     cfg.Worker.DebugDir,
		StdoutFile:   cfg.Worker.StdoutFile,
		StderrFile:   cfg.Worker.StderrFile,
		ProgressMax:  cfg.Worker.ProgressMax,
		ShowProgress: true,
	})
	if err != nil {
		return err
	}

	return w.Run(ctx)
}
