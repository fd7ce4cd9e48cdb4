package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stack-service/circle_transfer/internal/domain/services/harness"
)

func newPingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the sandbox and production Circle APIs are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			runner := harness.NewRunner(serviceFactory(cfg, log), log)
			reports, err := runner.Ping(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, report := range reports {
				if report.Err != nil {
					fmt.Fprintf(out, "%-10s unreachable: %v\n", report.Environment, report.Err)
					continue
				}
				fmt.Fprintf(out, "%-10s ok (%s)\n", report.Environment, report.Duration)
			}
			return nil
		},
	}
}
