package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// ErrEmptyItinerary is returned when the input text is blank after trimming
var ErrEmptyItinerary = errors.New("itinerary text is empty")

// ErrMalformedExtraction is returned when the model response cannot be used.
// No partial waypoint list is ever accepted from a malformed response.
var ErrMalformedExtraction = errors.New("malformed extraction response")

const (
	maxAttempts      = 3
	initialBackoff   = 500 * time.Millisecond
	extractionTokens = 2000
)

// extractor implements the Extractor interface using OpenAI
type extractor struct {
	client *openai.Client
	model  string
}

// NewExtractor creates a new Extractor implementation
func NewExtractor(apiKey, model string) Extractor {
	if apiKey == "" {
		return &extractor{client: nil, model: model} // Will cause errors - for testing
	}

	return &extractor{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// ExtractWaypoints extracts an ordered waypoint list from itinerary text.
// Transient API failures are retried with bounded exponential backoff; a
// malformed response fails the call without retry.
func (e *extractor) ExtractWaypoints(ctx context.Context, text string) ([]ExtractedWaypoint, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyItinerary
	}
	if e.client == nil {
		return nil, errors.New("OpenAI client not initialized - invalid API key")
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		waypoints, err := e.extractOnce(ctx, text)
		if err == nil {
			return waypoints, nil
		}
		if errors.Is(err, ErrMalformedExtraction) {
			// Retrying the same prompt rarely fixes structural garbage;
			// surface it so the caller can edit the text and retry.
			return nil, err
		}
		lastErr = err
		logrus.WithError(err).WithField("attempt", attempt).Warn("waypoint extraction failed, backing off")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("waypoint extraction failed after %d attempts: %w", maxAttempts, lastErr)
}

// extractOnce performs a single structured-output completion call
func (e *extractor) extractOnce(ctx context.Context, text string) ([]ExtractedWaypoint, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Extract the waypoints from this itinerary:\n\n%s", text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type:       openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &ExtractionSchema,
		},
		Temperature: 0.2,
		MaxTokens:   extractionTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedExtraction)
	}

	var parsed struct {
		Waypoints []ExtractedWaypoint `json:"waypoints"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExtraction, err)
	}

	return ValidateAndSort(parsed.Waypoints)
}

// ValidateAndSort checks required fields on every entry and returns the list
// sorted by sequence ascending. Any invalid entry rejects the whole list.
func ValidateAndSort(waypoints []ExtractedWaypoint) ([]ExtractedWaypoint, error) {
	if waypoints == nil {
		return nil, fmt.Errorf("%w: waypoints field missing", ErrMalformedExtraction)
	}
	for i, w := range waypoints {
		if strings.TrimSpace(w.Name) == "" {
			return nil, fmt.Errorf("%w: entry %d has empty name", ErrMalformedExtraction, i)
		}
		if w.Sequence < 1 {
			return nil, fmt.Errorf("%w: entry %d has invalid sequence %d", ErrMalformedExtraction, i, w.Sequence)
		}
	}

	sorted := make([]ExtractedWaypoint, len(waypoints))
	copy(sorted, waypoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})
	return sorted, nil
}

// HealthCheck verifies OpenAI API connectivity
func (e *extractor) HealthCheck(ctx context.Context) error {
	if e.client == nil {
		return errors.New("OpenAI client not initialized")
	}

	_, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "Test",
			},
		},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("OpenAI API health check failed: %w", err)
	}

	return nil
}
