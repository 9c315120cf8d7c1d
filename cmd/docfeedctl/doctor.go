package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docfeed/internal/config"
	dbRedis "github.com/kailas-cloud/docfeed/internal/db/redis"
	idxQdrant "github.com/kailas-cloud/docfeed/internal/index/qdrant"
	geminiEmb "github.com/kailas-cloud/docfeed/internal/transport/gemini"
	openaiEmb "github.com/kailas-cloud/docfeed/internal/transport/openai"
)

var doctorTimeout time.Duration

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Probe every dependency the worker needs",
	Long: `Checks that the vector index, the embedding provider, the broker and
the optional budget database are reachable with the current configuration.
Exits non-zero when any required dependency fails.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 10*time.Second, "per-check timeout")
	rootCmd.AddCommand(doctorCmd)
}

// errProbeSkipped marks a check whose subject is not configured.
var errProbeSkipped = errors.New("skipped")

type probe struct {
	name string
	fn   func(ctx context.Context, cfg config.Config) (string, error)
}

// doctorProbes is a seam so tests can substitute fast fakes.
var doctorProbes = []probe{
	{name: "index", fn: probeIndex},
	{name: "embedding", fn: probeEmbedding},
	{name: "queue", fn: probeQueue},
	{name: "database", fn: probeDatabase},
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	env := config.GetEnv()
	cfg, err := loadConfig()
	if err != nil {
		cmd.Printf("%-10s FAIL  %v\n", "config", err)
		return errors.New("configuration is invalid")
	}
	cmd.Printf("%-10s ok    env=%s queue=%s collection=%s\n",
		"config", env, cfg.Queue.Name, cfg.Index.Collection)

	failed := false
	for _, p := range doctorProbes {
		ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
		detail, err := p.fn(ctx, cfg)
		cancel()

		switch {
		case errors.Is(err, errProbeSkipped):
			cmd.Printf("%-10s skip  %s\n", p.name, detail)
		case err != nil:
			failed = true
			cmd.Printf("%-10s FAIL  %v\n", p.name, err)
		default:
			cmd.Printf("%-10s ok    %s\n", p.name, detail)
		}
	}

	if failed {
		return errors.New("one or more checks failed")
	}
	return nil
}

func probeIndex(ctx context.Context, cfg config.Config) (string, error) {
	store, err := idxQdrant.NewStore(idxQdrant.Config{
		Host:   cfg.Index.Host,
		Port:   cfg.Index.Port,
		APIKey: cfg.Index.APIKey,
		UseTLS: cfg.Index.UseTLS,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = store.Close() }()

	if err := store.Ping(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", cfg.Index.Host, cfg.Index.Port), nil
}

func probeEmbedding(ctx context.Context, cfg config.Config) (string, error) {
	provName := cfg.Embedding.Provider
	provCfg := cfg.Embedding.Providers[provName]
	detail := fmt.Sprintf("%s/%s", provName, cfg.Embedding.Model)

	if provName == "openai" {
		e := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:  provCfg.APIKey,
			BaseURL: provCfg.BaseURL,
			Model:   cfg.Embedding.Model,
			Logger:  zap.NewNop(),
		})
		if err := e.HealthCheck(ctx); err != nil {
			return "", err
		}
		return detail, nil
	}

	e, err := geminiEmb.NewEmbedder(ctx, &geminiEmb.Config{
		APIKey: provCfg.APIKey,
		Model:  cfg.Embedding.Model,
		Logger: zap.NewNop(),
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = e.Close() }()

	if err := e.HealthCheck(ctx); err != nil {
		return "", err
	}
	return detail, nil
}

func probeQueue(_ context.Context, cfg config.Config) (string, error) {
	ch, done, err := openBroker(cfg)
	if err != nil {
		return "", err
	}
	defer done()

	q, err := ch.QueueDeclarePassive(cfg.Queue.Name, true, false, false, false, nil)
	if err != nil {
		// The worker declares the queue at startup; a reachable broker
		// without the queue is not a failure.
		return "broker reachable, queue not declared yet", nil
	}
	return fmt.Sprintf("%s: %d ready, %d consumers", q.Name, q.Messages, q.Consumers), nil
}

func probeDatabase(ctx context.Context, cfg config.Config) (string, error) {
	if len(cfg.Database.Addrs) == 0 {
		return "not configured", errProbeSkipped
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return "", err
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", cfg.Database.Addrs), nil
}
