package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docfeed/internal/config"
	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/pkg/producer"
)

var (
	sendText   string
	sendFile   string
	sendStdin  bool
	sendPath   string
	sendID     string
	sendSource string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Publish a document to the ingestion queue",
	Long: `Publishes a document for the worker to chunk, embed and index.

Content travels inside the message with --text, --file or --stdin.
With --path only a file reference is published; the worker reads the
file from its own filesystem, so the path must be visible to it.`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendText, "text", "", "document text to publish")
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "read document text from a file")
	sendCmd.Flags().BoolVar(&sendStdin, "stdin", false, "read document text from stdin")
	sendCmd.Flags().StringVar(&sendPath, "path", "", "publish a file reference instead of content")
	sendCmd.Flags().StringVar(&sendID, "id", "", "document id (derived from content when empty)")
	sendCmd.Flags().StringVar(&sendSource, "source", domain.SourceManual, "source label stored with the document")
	rootCmd.AddCommand(sendCmd)
}

// publisher is the slice of producer.Producer the send command uses.
type publisher interface {
	Publish(ctx context.Context, msg producer.Message) error
	PublishFileRef(ctx context.Context, path string) error
	Close() error
}

// connectProducer is a seam so tests can capture published messages.
var connectProducer = func(cfg config.Config) (publisher, error) {
	opts := []producer.Option{producer.WithQueue(cfg.Queue.Name)}
	if cfg.Queue.TLSVerify {
		opts = append(opts, producer.WithTLSVerify())
	}
	return producer.Connect(cfg.Queue.URL, opts...)
}

func runSend(cmd *cobra.Command, _ []string) error {
	inputs := 0
	for _, set := range []bool{sendText != "", sendFile != "", sendStdin, sendPath != ""} {
		if set {
			inputs++
		}
	}
	if inputs != 1 {
		return errors.New("exactly one of --text, --file, --stdin or --path is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p, err := connectProducer(cfg)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer func() { _ = p.Close() }()

	ctx := context.Background()

	if sendPath != "" {
		if err := p.PublishFileRef(ctx, sendPath); err != nil {
			return fmt.Errorf("publish file reference: %w", err)
		}
		cmd.Printf("Published file reference %s to queue %s\n", sendPath, cfg.Queue.Name)
		return nil
	}

	content, err := readContent(cmd.InOrStdin())
	if err != nil {
		return err
	}

	msg := producer.Message{Content: content, DocumentID: sendID, Source: sendSource}
	if err := p.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	cmd.Printf("Published %d bytes to queue %s\n", len(content), cfg.Queue.Name)
	return nil
}

func readContent(stdin io.Reader) (string, error) {
	switch {
	case sendText != "":
		return sendText, nil
	case sendFile != "":
		data, err := os.ReadFile(sendFile)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", sendFile, err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errors.New("stdin is empty")
		}
		return string(data), nil
	}
}
