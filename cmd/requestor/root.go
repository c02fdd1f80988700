package requestor

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yagna-labs/zksync-requestor/pkg/config"
	"github.com/yagna-labs/zksync-requestor/pkg/logger"
	"github.com/yagna-labs/zksync-requestor/pkg/system"
	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
)

const cleanupTimeout = 30 * time.Second

var ShutdownSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
}

func NewRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "zksync-requestor",
		Short:         "Prove zkSync blocks on providers rented from the Golem marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(configDir); err != nil {
				return errors.Wrap(err, "loading configuration")
			}
			mode, err := logger.ParseLogMode(viper.GetString(config.LoggingMode))
			if err != nil {
				return err
			}
			if err := logger.ConfigureLogging(mode, viper.GetString(config.LoggingLevel)); err != nil {
				return err
			}
			telemetry.SetupFromEnvs()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultDir(),
		"Directory holding an optional config.yaml")
	if err := registerFlags(rootCmd, map[string][]flagDefinition{
		"logging": LoggingFlags,
	}); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the requested command. Cleanup callbacks registered on the
// CleanupManager run once the command returns, whether it failed or not.
func Execute(version string) {
	if version != "" {
		telemetry.Version = version
	}
	// a missing .env is fine, the process environment is used as is
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	rootCmd := NewRootCmd()

	// Ensure commands are able to stop cleanly if someone presses ctrl+c
	ctx, cancel := signal.NotifyContext(context.Background(), ShutdownSignals...)
	defer cancel()

	cm := system.NewCleanupManager()
	cm.RegisterCallbackWithContext(telemetry.Cleanup)
	ctx = context.WithValue(ctx, SystemManagerKey, cm)

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	err := rootCmd.ExecuteContext(ctx)

	cleanupCtx, cleanupCancel := telemetry.NewCleanupContext(ctx, cleanupTimeout)
	cleanupErr := cm.Cleanup(cleanupCtx)
	log.WithLevel(logger.ErrOrDebug(cleanupErr)).Err(cleanupErr).Msg("cleanup finished")
	cleanupCancel()

	if err != nil {
		Fatal(rootCmd, err, 1)
	}
}

var Fatal = fatalError

func fatalError(cmd *cobra.Command, err error, code int) {
	if msg := err.Error(); msg != "" {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		cmd.PrintErr(msg)
	}
	os.Exit(code)
}
