package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	"github.com/stack-service/circle_transfer/internal/domain/services/harness"
	"github.com/stack-service/circle_transfer/internal/domain/services/transfer"
	"github.com/stack-service/circle_transfer/internal/infrastructure/config"
	"github.com/stack-service/circle_transfer/internal/infrastructure/params"
	"github.com/stack-service/circle_transfer/pkg/logger"
	"github.com/stack-service/circle_transfer/pkg/metrics"
	"github.com/stack-service/circle_transfer/pkg/tracing"
	"github.com/stack-service/circle_transfer/pkg/version"
)

const serviceName = "circle-transfer"

// globalFlags are shared by every command
type globalFlags struct {
	ParamsFile string
	LogLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Create a Circle business transfer in sandbox, then in production",
		Long: `circle-transfer loads CIRCLE_API_KEY_SANDBOX and CIRCLE_API_KEY_PRODUCTION,
reads the test parameter file and, for sandbox then production, resolves the
destination address to a registered recipient and creates one USD transfer.

A failure in one environment is logged and the next environment still runs.
The command exits non-zero only for configuration or input errors.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfers(cmd.Context(), cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.ParamsFile, "params", params.DefaultFile, "path to the test parameter JSON file")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level: debug|info|warn|error (default from LOG_LEVEL)")

	rootCmd.AddCommand(newPingCmd(flags))

	return rootCmd
}

// setup loads and validates configuration, then builds the logger
func setup(cmd *cobra.Command, flags *globalFlags) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("params") {
		cfg.ParamsFile = flags.ParamsFile
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, logger.New(cfg.LogLevel, cfg.Environment), nil
}

func runTransfers(ctx context.Context, cmd *cobra.Command, flags *globalFlags) error {
	cfg, log, err := setup(cmd, flags)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	shutdown, err := tracing.Init(ctx, serviceName, cfg.Telemetry.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Warnw("Tracing disabled", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warnw("Failed to flush traces", "error", err)
			}
		}()
	}

	testParams, err := params.Load(cfg.ParamsFile, cfg.IsSupportedChain)
	if err != nil {
		return err
	}

	if err := printParameters(cmd.OutOrStdout(), testParams); err != nil {
		return err
	}
	if testParams.Currency != "" && testParams.Currency != entities.ReportingCurrency {
		log.Warnw("Ignoring parameter currency, transfers are always created in USD",
			"currency", testParams.Currency)
	}

	runner := harness.NewRunner(serviceFactory(cfg, log), log)

	reports, err := runner.Run(ctx, *testParams)
	runner.LogSummary(reports)
	pushMetrics(ctx, cfg, log)

	return err
}

func serviceFactory(cfg *config.Config, log *logger.Logger) harness.ServiceFactory {
	creds := cfg.Credentials()
	return func(env entities.Environment) (harness.TransferService, error) {
		service, err := transfer.NewServiceForEnvironment(env, creds, transfer.ClientOptions{
			BaseURL: cfg.BaseURL(env),
			Timeout: cfg.Timeout(),
		}, log)
		if err != nil {
			return nil, err
		}
		return service, nil
	}
}

func printParameters(w io.Writer, testParams *entities.TestParameters) error {
	out, err := json.MarshalIndent(testParams, "", "  ")
	if err != nil {
		return fmt.Errorf("render test parameters: %w", err)
	}
	_, err = fmt.Fprintf(w, "Test parameters:\n%s\n", out)
	return err
}

func pushMetrics(ctx context.Context, cfg *config.Config, log *logger.Logger) {
	if err := metrics.Push(ctx, cfg.Telemetry.PushgatewayURL); err != nil {
		log.Warnw("Failed to push metrics", "gateway", cfg.Telemetry.PushgatewayURL, "error", err)
	}
}
