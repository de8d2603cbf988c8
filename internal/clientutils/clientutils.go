package clientutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sylviahq/sylvia/internal/sse"
)

// JSONRequestConfig holds configuration for JSON requests
type JSONRequestConfig struct {
	URL     string
	Headers map[string]string
	Body    any
}

// SSERequestConfig holds configuration for SSE requests
type SSERequestConfig struct {
	URL     string
	Headers map[string]string
	Body    any
}

// DoJSON performs a JSON POST request and unmarshals the response
func DoJSON[T any](ctx context.Context, client *http.Client, config JSONRequestConfig) (*T, error) {
	reqBody, err := json.Marshal(config.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", config.URL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var result T
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// HTTPError is returned for non-2xx responses so callers can inspect the status.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// SSEStream reads a server-sent event stream, decoding each event's data
// payload into T.
type SSEStream[T any] struct {
	response *http.Response
	scanner  *sse.Scanner

	pending []string
	curr    *T
	err     error
	done    bool
}

// Next advances to the next decoded event. It returns false at end of stream
// or on error.
func (s *SSEStream[T]) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if strings.TrimSpace(line) != "" {
			s.pending = append(s.pending, line)
			continue
		}
		if len(s.pending) == 0 {
			continue
		}
		if s.decodePending() {
			return true
		}
		if s.err != nil {
			s.done = true
			return false
		}
	}
	s.done = true
	if err := s.scanner.Err(); err != nil {
		s.err = err
		return false
	}
	// Flush a trailing event that was not followed by a blank line.
	if len(s.pending) > 0 {
		return s.decodePending()
	}
	return false
}

func (s *SSEStream[T]) decodePending() bool {
	event := sse.ParseEvent(s.pending)
	s.pending = s.pending[:0]
	if event.Data == "" || event.Data == "[DONE]" {
		return false
	}
	var v T
	if err := json.Unmarshal([]byte(event.Data), &v); err != nil {
		s.err = fmt.Errorf("failed to decode sse event: %w", err)
		return false
	}
	s.curr = &v
	return true
}

// Current returns the most recently decoded event.
func (s *SSEStream[T]) Current() *T {
	return s.curr
}

// Err returns the terminal error, if any.
func (s *SSEStream[T]) Err() error {
	return s.err
}

// Close closes the underlying response body.
func (s *SSEStream[T]) Close() error {
	return s.response.Body.Close()
}

// DoSSE performs a streaming SSE POST request and returns a typed event stream.
func DoSSE[T any](ctx context.Context, client *http.Client, config SSERequestConfig) (*SSEStream[T], error) {
	reqBody, err := json.Marshal(config.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", config.URL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return &SSEStream[T]{
		response: resp,
		scanner:  sse.NewScanner(resp.Body),
	}, nil
}
