package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client calls the OpenAI HTTP API with two alternative call shapes: the
// structured chat-completions endpoint (primary) and the single-input
// responses endpoint (fallback). Both return the extracted text, which may
// legitimately be empty without the call being an error.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	primaryModel  string
	fallbackModel string
	maxTokens     int
}

// NewClient creates an OpenAI client. baseURL should include the /v1 prefix.
func NewClient(httpClient *http.Client, baseURL, apiKey, primaryModel, fallbackModel string, maxTokens int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		maxTokens:     maxTokens,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type apiError struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *apiError `json:"error"`
}

// ChatCompletion is upstream call shape A: structured system/user turns with
// deterministic-leaning sampling. An explicit provider error comes back as
// *UpstreamError; any other failure (timeout, network, decode) is an
// ordinary error eligible for fallback.
func (c *Client) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	body, status, err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       c.primaryModel,
		Temperature: 0.2,
		MaxTokens:   c.maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if status < 200 || status >= 300 {
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return "", &UpstreamError{Status: status, Message: parsed.Error.Message}
		}
		return "", fmt.Errorf("chat completion returned status %d", status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode chat completion: %w", decodeErr)
	}

	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Respond is upstream call shape B: a single combined input string against
// the responses endpoint. Same error classification as ChatCompletion.
func (c *Client) Respond(ctx context.Context, input string) (string, error) {
	body, status, err := c.post(ctx, "/responses", responsesRequest{
		Model: c.fallbackModel,
		Input: input,
	})
	if err != nil {
		return "", err
	}

	var parsed responsesResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if status < 200 || status >= 300 {
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return "", &UpstreamError{Status: status, Message: parsed.Error.Message}
		}
		return "", fmt.Errorf("responses call returned status %d", status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode responses call: %w", decodeErr)
	}

	if text := strings.TrimSpace(parsed.OutputText); text != "" {
		return text, nil
	}
	// Some models return an output array instead of output_text.
	if len(parsed.Output) > 0 && len(parsed.Output[0].Content) > 0 {
		return strings.TrimSpace(parsed.Output[0].Content[0].Text), nil
	}
	return "", nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
