package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/aihub-gateway/internal/events"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/aihub-gateway/internal/lib/sl"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		queues  []string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail domain events from RabbitMQ as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.RabbitMQ.URL == "" {
				return errors.New("rabbitmq.url is not configured")
			}
			logger := sl.NewLogger(cfg.Env, os.Stderr)

			conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
			if err != nil {
				return err
			}
			defer conn.Close()

			ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.GetEventQueues())
			if err != nil {
				return err
			}
			defer ch.Close()

			var mu sync.Mutex
			enc := json.NewEncoder(cmd.OutOrStdout())
			emit := func(_ context.Context, body []byte) error {
				e, err := events.Decode(body)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				return enc.Encode(e)
			}

			ctx := cmd.Context()
			errCh := make(chan error, len(queues))
			for _, q := range queues {
				go func(q string) {
					errCh <- rabbitmq.ConsumeMessages(ctx, ch, q, workers, logger, emit)
				}(q)
			}

			var errs []error
			for range queues {
				errs = append(errs, <-errCh)
			}
			return errors.Join(errs...)
		},
	}

	var defaults []string
	for _, q := range rabbitmq.GetEventQueues() {
		defaults = append(defaults, q.QueueName)
	}
	cmd.Flags().StringSliceVarP(&queues, "queue", "q", defaults, "queues to consume")
	cmd.Flags().IntVar(&workers, "workers", 4, "messages handled concurrently per queue")
	return cmd
}
