package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a direct HTTP client for a local Ollama server using
// the /api/chat endpoint. Reasoning-capable models report rationale in
// the message "thinking" field, which is surfaced as thinking fragments.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient creates an Ollama client.
// baseURL should be like "http://localhost:11434".
func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (o *OllamaClient) Name() string {
	return "ollama"
}

func (o *OllamaClient) buildBody(req ChatRequest, stream bool) ([]byte, error) {
	msgs := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, ollamaMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	body := map[string]any{
		"model":    model,
		"messages": msgs,
		"stream":   stream,
	}
	options := map[string]any{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(options) > 0 {
		body["options"] = options
	}
	return json.Marshal(body)
}

// Complete sends a non-streaming chat request.
func (o *OllamaClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	payload, err := o.buildBody(req, false)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &ChatResponse{
		Content:   result.Message.Content,
		Reasoning: result.Message.Thinking,
		Model:     result.Model,
		Duration:  time.Since(start),
	}, nil
}

// Stream sends a streaming chat request and returns a fragment channel.
func (o *OllamaClient) Stream(ctx context.Context, req ChatRequest) (<-chan Fragment, error) {
	payload, err := o.buildBody(req, true)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	ch := make(chan Fragment)
	go o.streamRequest(ctx, ch, payload)
	return ch, nil
}

func (o *OllamaClient) streamRequest(ctx context.Context, ch chan Fragment, payload []byte) {
	defer close(ch)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		ch <- Fragment{Type: FragmentError, Error: fmt.Sprintf("creating request: %v", err)}
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		ch <- Fragment{Type: FragmentError, Error: fmt.Sprintf("request failed: %v", err)}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		ch <- Fragment{Type: FragmentError, Error: fmt.Sprintf("ollama error (%d): %s", resp.StatusCode, string(body))}
		return
	}

	var content, thinking strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var evt ollamaChatResponse
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			continue
		}

		if evt.Message.Thinking != "" {
			thinking.WriteString(evt.Message.Thinking)
			if !send(ctx, ch, Fragment{Type: FragmentThinking, Text: evt.Message.Thinking}) {
				return
			}
		}
		if evt.Message.Content != "" {
			content.WriteString(evt.Message.Content)
			if !send(ctx, ch, Fragment{Type: FragmentDelta, Text: evt.Message.Content}) {
				return
			}
		}
		if evt.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		send(ctx, ch, Fragment{Type: FragmentError, Error: fmt.Sprintf("reading stream: %v", err)})
		return
	}

	send(ctx, ch, Fragment{
		Type: FragmentDone,
		Response: &ChatResponse{
			Content:   content.String(),
			Reasoning: thinking.String(),
			Model:     o.model,
		},
	})
}

// send delivers a fragment unless the context is done.
func send(ctx context.Context, ch chan Fragment, f Fragment) bool {
	select {
	case ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

type ollamaMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

type ollamaChatResponse struct {
	Model     string        `json:"model"`
	CreatedAt string        `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`

	TotalDuration   int64 `json:"total_duration"`
	LoadDuration    int64 `json:"load_duration"`
	PromptEvalCount int   `json:"prompt_eval_count"`
	EvalCount       int   `json:"eval_count"`
}
