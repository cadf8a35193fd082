package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/metrics"
)

const callTimeout = 120 * time.Second

// Circuit breaker configuration.
const (
	cbFailureThreshold = 5
	cbCooldown         = 30 * time.Second
)

// Circuit breaker states.
const (
	cbClosed   = iota // Normal operation.
	cbOpen            // Fail fast.
	cbHalfOpen        // Probe with one request.
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint with
// strict json_schema structured output.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *logrus.Logger

	mu              sync.Mutex
	cbState         int
	cbFailures      int
	cbLastFailureAt time.Time
}

// NewOpenAIClient creates a client for the given endpoint, key and model.
func NewOpenAIClient(baseURL, apiKey, model string, log *logrus.Logger) *OpenAIClient {
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: callTimeout},
		log:     log,
		cbState: cbClosed,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete performs one schema-constrained call. It uses a circuit breaker
// to fail fast when the provider is down; a single HTTP attempt per call,
// since bounded retry policy belongs to the grounding loop above.
func (c *OpenAIClient) Complete(ctx context.Context, req CallRequest) (json.RawMessage, error) {
	if err := c.cbAllow(); err != nil {
		return nil, err
	}

	start := time.Now()

	raw, err := c.doComplete(ctx, req)

	metrics.ModelCallDuration.WithLabelValues(req.SchemaName).Observe(time.Since(start).Seconds())

	if err != nil {
		c.cbRecordFailure()
		metrics.ModelCallsTotal.WithLabelValues(req.SchemaName, "error").Inc()

		return nil, err
	}

	c.cbRecordSuccess()
	metrics.ModelCallsTotal.WithLabelValues(req.SchemaName, "ok").Inc()

	c.log.WithFields(logrus.Fields{
		"analysis_id": req.Metadata.AnalysisID,
		"call":        req.Metadata.DisplayName,
		"schema":      req.SchemaName,
		"duration":    time.Since(start),
	}).Debug("model call finished")

	return raw, nil
}

func (c *OpenAIClient) doComplete(ctx context.Context, req CallRequest) (json.RawMessage, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaFormat{
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &ModelError{Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain body so the connection can be reused.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best-effort error body.

		return nil, &ModelError{Status: resp.StatusCode, Msg: string(msg)}
	}

	var result chatResponse

	limited := io.LimitReader(resp.Body, 10<<20) // 10 MB
	if err := json.NewDecoder(limited).Decode(&result); err != nil {
		return nil, &ModelError{Msg: fmt.Sprintf("decoding chat response: %v", err)}
	}

	if len(result.Choices) == 0 {
		return nil, &ModelError{Msg: "provider returned no choices"}
	}

	msg := result.Choices[0].Message
	if msg.Refusal != "" {
		return nil, &ModelError{Msg: "provider refusal: " + msg.Refusal}
	}

	if !json.Valid([]byte(msg.Content)) {
		return nil, &ModelError{Msg: "provider returned invalid JSON content"}
	}

	return json.RawMessage(msg.Content), nil
}

// cbAllow checks whether the circuit breaker permits a request.
func (c *OpenAIClient) cbAllow() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.cbState {
	case cbClosed:
		return nil
	case cbOpen:
		if time.Since(c.cbLastFailureAt) >= cbCooldown {
			c.cbState = cbHalfOpen

			return nil
		}

		return ErrCircuitOpen
	case cbHalfOpen:
		// A probe is already in flight; reject additional requests.
		return ErrCircuitOpen
	}

	return nil
}

func (c *OpenAIClient) cbRecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cbFailures = 0
	c.cbState = cbClosed
}

func (c *OpenAIClient) cbRecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cbFailures++
	c.cbLastFailureAt = time.Now()

	if c.cbFailures >= cbFailureThreshold || c.cbState == cbHalfOpen {
		c.cbState = cbOpen
	}
}
