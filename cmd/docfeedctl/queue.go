package main

import (
	"crypto/tls"
	"fmt"
	"strings"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docfeed/internal/config"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the ingestion queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depth and consumer count",
	RunE:  runQueueStatus,
}

var queueDeclareCmd = &cobra.Command{
	Use:   "declare",
	Short: "Declare the durable queue",
	Long:  `Declares the queue the worker consumes from. Safe to repeat; declaring an existing queue with matching settings is a no-op.`,
	RunE:  runQueueDeclare,
}

var queueDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the queue and its pending messages",
	RunE:  runQueueDelete,
}

var queuePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop all pending messages, keeping the queue",
	RunE:  runQueuePurge,
}

func init() {
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueDeclareCmd)
	queueCmd.AddCommand(queueDeleteCmd)
	queueCmd.AddCommand(queuePurgeCmd)
	rootCmd.AddCommand(queueCmd)
}

// brokerChannel is the slice of amqp091.Channel queue commands use.
type brokerChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error)
	QueuePurge(name string, noWait bool) (int, error)
}

// openBroker is a seam so tests can stand in for a broker. The returned
// func closes channel and connection.
var openBroker = func(cfg config.Config) (brokerChannel, func(), error) {
	var (
		conn *amqp091.Connection
		err  error
	)
	if strings.HasPrefix(cfg.Queue.URL, "amqps://") {
		tlsCfg := &tls.Config{InsecureSkipVerify: !cfg.Queue.TLSVerify} //nolint:gosec // opt-in via queue.tls_verify
		conn, err = amqp091.DialTLS(cfg.Queue.URL, tlsCfg)
	} else {
		conn, err = amqp091.Dial(cfg.Queue.URL)
	}
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

func withBroker(fn func(cfg config.Config, ch brokerChannel, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ch, done, err := openBroker(cfg)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer done()
		return fn(cfg, ch, cmd)
	}
}

func runQueueStatus(cmd *cobra.Command, args []string) error {
	return withBroker(func(cfg config.Config, ch brokerChannel, cmd *cobra.Command) error {
		// Passive declare fails when the queue does not exist, without
		// creating it as a side effect.
		q, err := ch.QueueDeclarePassive(cfg.Queue.Name, true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue %q not found: %w", cfg.Queue.Name, err)
		}
		cmd.Printf("Queue:     %s\n", q.Name)
		cmd.Printf("Messages:  %d\n", q.Messages)
		cmd.Printf("Consumers: %d\n", q.Consumers)
		return nil
	})(cmd, args)
}

func runQueueDeclare(cmd *cobra.Command, args []string) error {
	return withBroker(func(cfg config.Config, ch brokerChannel, cmd *cobra.Command) error {
		q, err := ch.QueueDeclare(cfg.Queue.Name, true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("declare queue %q: %w", cfg.Queue.Name, err)
		}
		cmd.Printf("Queue %s declared (messages=%d, consumers=%d)\n", q.Name, q.Messages, q.Consumers)
		return nil
	})(cmd, args)
}

func runQueueDelete(cmd *cobra.Command, args []string) error {
	return withBroker(func(cfg config.Config, ch brokerChannel, cmd *cobra.Command) error {
		n, err := ch.QueueDelete(cfg.Queue.Name, false, false, false)
		if err != nil {
			return fmt.Errorf("delete queue %q: %w", cfg.Queue.Name, err)
		}
		cmd.Printf("Queue %s deleted, %d pending messages dropped\n", cfg.Queue.Name, n)
		return nil
	})(cmd, args)
}

func runQueuePurge(cmd *cobra.Command, args []string) error {
	return withBroker(func(cfg config.Config, ch brokerChannel, cmd *cobra.Command) error {
		n, err := ch.QueuePurge(cfg.Queue.Name, false)
		if err != nil {
			return fmt.Errorf("purge queue %q: %w", cfg.Queue.Name, err)
		}
		cmd.Printf("Purged %d messages from %s\n", n, cfg.Queue.Name)
		return nil
	})(cmd, args)
}
