package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stackchan/go-stackchan/internal/httpc"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient creates a chat client for the given key and model.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		http:    httpc.NewClient(httpc.ChatTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL. Useful for compatible servers
// and tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// chatPayload is the completions request body.
type chatPayload struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// chatCompletionResponse is the non-streaming response body.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete requests a whole chat completion.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.post(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ProtocolError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(result.Choices) == 0 {
		return "", &ProtocolError{Err: fmt.Errorf("no choices returned")}
	}
	return result.Choices[0].Message.Content, nil
}

// Stream requests a streaming chat completion. The caller must Close the
// returned stream.
func (c *Client) Stream(ctx context.Context, messages []Message) (*Stream, error) {
	resp, err := c.post(ctx, messages, true)
	if err != nil {
		return nil, err
	}
	return &Stream{
		reader: bufio.NewReader(resp.Body),
		body:   resp.Body,
	}, nil
}

func (c *Client) post(ctx context.Context, messages []Message, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatPayload{
		Model:    c.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseAPIError(resp)
	}
	return resp, nil
}

// parseAPIError extracts the API's error body into an APIError.
func parseAPIError(resp *http.Response) error {
	var apiResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	message := resp.Status
	var code string
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Error.Message != "" {
			message = apiResp.Error.Message
			code = apiResp.Error.Code
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message, Code: code}
}

// Stream yields content deltas from an SSE chat completion response.
type Stream struct {
	reader *bufio.Reader
	body   io.ReadCloser
}

// streamEvent is the SSE data frame format.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Recv returns the next content delta. done is true once the stream has
// finished; delta is empty then.
func (s *Stream) Recv() (delta string, done bool, err error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err == io.EOF {
			return "", true, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("read stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return "", true, nil
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return "", false, &ProtocolError{Err: fmt.Errorf("malformed frame: %w", err)}
		}
		if len(event.Choices) == 0 {
			continue
		}

		choice := event.Choices[0]
		if choice.FinishReason != "" {
			return choice.Delta.Content, true, nil
		}
		return choice.Delta.Content, false, nil
	}
}

// Close stops the stream.
func (s *Stream) Close() error {
	return s.body.Close()
}
