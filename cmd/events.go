/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/postboard/apiserver/config"
	"github.com/postboard/apiserver/internal/logger"
	"github.com/postboard/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

var eventsPattern string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect post lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Subscribe to post events and log each one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadSection[config.EventsConfig]()
		if err != nil {
			return err
		}
		if cfg.Backend == "" {
			return errors.New("EVENTS_BACKEND is not set")
		}
		log := logger.New(os.Stdout, "info", "text")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer broker.Close()

		log.Info("tailing events", "channel", cfg.Channel, "pattern", eventsPattern)
		err = broker.Subscribe(ctx, eventsPattern, func(_ context.Context, msg mq.Message) error {
			log.Info("event", "id", msg.ID, "routing_key", msg.RoutingKey, "data", string(msg.Data))
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
	eventsTailCmd.Flags().StringVar(&eventsPattern, "pattern", "post.#", "routing key pattern")
}
