package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/metrics"
)

const provider = "gemini"

// Embedder is an embedding provider using the Gemini API. Texts are embedded
// with the retrieval_document task type so stored passages pair with
// retrieval_query lookups on the chat side.
type Embedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
	logger *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey string
	Model  string
	Logger *zap.Logger
}

// NewEmbedder creates a Gemini embedding provider.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	model := client.EmbeddingModel(cfg.Model)
	model.TaskType = genai.TaskTypeRetrievalDocument

	return &Embedder{
		client: client,
		model:  model,
		name:   cfg.Model,
		logger: cfg.Logger,
	}, nil
}

// Embed implements domain.Embedder. Single attempt per call; retry policy
// belongs to the caller.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, domain.ErrEmptyInput
	}

	start := time.Now()

	resp, err := e.model.EmbedContent(ctx, genai.Text(text))

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.name, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.name, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.name, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.name, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrProviderUnavailable)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.name, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, e.name).Observe(duration.Seconds())

	// The embed endpoint reports no token usage; approximate from input
	// length so budget accounting still sees traffic.
	tokens := approxTokens(text)
	metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.name, "prompt").Add(float64(tokens))
	metrics.EmbeddingTokensTotal.WithLabelValues(provider, e.name, "total").Add(float64(tokens))

	return domain.EmbeddingResult{
		Embedding:    resp.Embedding.Values,
		PromptTokens: tokens,
		TotalTokens:  tokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	it := e.client.ListModels(ctx)
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Close releases the underlying API client.
func (e *Embedder) Close() error {
	if err := e.client.Close(); err != nil {
		return fmt.Errorf("close client: %w", err)
	}
	return nil
}

// approxTokens estimates token usage at four runes per token.
func approxTokens(text string) int {
	n := utf8.RuneCountInString(text)/4 + 1
	return n
}

// parseAPIError maps provider failures to domain sentinels. The genai SDK
// surfaces REST failures as googleapi errors and transport failures as gRPC
// status errors.
func parseAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("embedding API error %d: %s: %w", gerr.Code, gerr.Message, domain.ErrRateLimited)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", gerr.Code, gerr.Message, domain.ErrProviderUnavailable)
	}

	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.ResourceExhausted {
			return fmt.Errorf("embedding API error: %s: %w", s.Message(), domain.ErrRateLimited)
		}
		return fmt.Errorf("embedding API error: %s: %w", s.Message(), domain.ErrProviderUnavailable)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrProviderUnavailable)
}
