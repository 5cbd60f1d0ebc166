// Package gemini implements port.AdviceGenerator against the Gemini
// generateContent REST API. Every request declares a JSON response schema
// and the reply is validated field-by-field before it leaves this package;
// malformed or incomplete payloads are rejected, never coerced.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/infra/observability"
	"github.com/mahin/bachelor-expenses-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("gemini")

// Client calls the Gemini generateContent endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fastModel  string
	deepModel  string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a Gemini client. fastModel serves analysis and gift
// requests; deepModel serves savings-plan requests.
func NewClient(
	httpClient *http.Client,
	baseURL, apiKey, fastModel, deepModel string,
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Client {
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 1
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		fastModel:  fastModel,
		deepModel:  deepModel,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(maxConc),
		metrics:    metrics,
		logger:     logger,
	}
}

// --- Wire types for the generateContent API ---

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// generate sends one schema-constrained prompt to the given model and
// returns the raw JSON text of the first candidate.
func (c *Client) generate(ctx context.Context, model, prompt string, schema json.RawMessage) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Client.generate")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", model))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}
	defer c.bulkhead.Release()

	var genResp generateResponse

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(generateRequest{
				Contents: []content{{Parts: []part{{Text: prompt}}}},
				GenerationConfig: generationConfig{
					ResponseMIMEType: "application/json",
					ResponseSchema:   schema,
				},
			})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("x-goog-api-key", c.apiKey)

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("gemini API returned status %d", resp.StatusCode)
			}

			genResp = generateResponse{}
			return json.NewDecoder(resp.Body).Decode(&genResp)
		})
	})
	if err != nil {
		c.metrics.IncrExternalError("gemini")
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}

	c.metrics.RecordTokens(genResp.UsageMetadata.PromptTokenCount, genResp.UsageMetadata.CandidatesTokenCount)

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		c.metrics.IncrExternalError("gemini")
		return nil, &domain.ErrExternalService{
			Service: "gemini",
			Err:     fmt.Errorf("empty candidate list in response"),
		}
	}

	return []byte(genResp.Candidates[0].Content.Parts[0].Text), nil
}
