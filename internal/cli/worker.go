package cli

import (
	"fmt"

	"candidaterank/internal/observability"
	"candidaterank/internal/queue"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Rank candidate batches consumed from an AMQP queue",
	Long: `Consume ranking requests from the configured AMQP queue and publish each
ranking to the message's reply-to queue with the same correlation id.

The broker URL and queue name come from queue.url and queue.requestQueue.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	om, err := observability.NewManager(cfg.Observability, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer shutdownObservability(om)

	engine, provider, err := newEngine(cfg, om.Recorder(), logger)
	if err != nil {
		return err
	}
	defer closeProvider(provider, logger)

	return queue.NewWorker(cfg.Queue, cfg.Server.MaxCandidates, engine, logger).Run(cmd.Context())
}
