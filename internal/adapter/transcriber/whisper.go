package transcriber

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"proficiency-scoring/internal/domain"
)

// WhisperTranscriber implements domain.Transcriber on an OpenAI-compatible
// audio transcription endpoint.
type WhisperTranscriber struct {
	api      *openai.Client
	model    string
	language string
}

// NewWhisperTranscriber creates a transcriber. An empty baseURL uses the
// public OpenAI endpoint.
func NewWhisperTranscriber(baseURL, apiKey, model, language string) *WhisperTranscriber {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{
		api:      openai.NewClientWithConfig(config),
		model:    model,
		language: language,
	}
}

// Transcribe uploads the recording and returns the recognized text. Every
// failure is a *domain.TranscriptionError.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", domain.NewTranscriptionError(domain.FailureRejected, false, errors.New("empty recording"))
	}
	if filename == "" {
		filename = "response.wav"
	}

	resp, err := w.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: w.language,
	})
	if err != nil {
		return "", classify(ctx, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", domain.NewTranscriptionError(domain.FailureEmpty, false, errors.New("no speech recognized"))
	}
	return text, nil
}

func classify(ctx context.Context, err error) *domain.TranscriptionError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewTranscriptionError(domain.FailureTimeout, true, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTranscriptionError(domain.FailureTimeout, true, err)
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return domain.NewTranscriptionError(domain.FailureUnavailable, true, err)
	case status >= http.StatusBadRequest:
		return domain.NewTranscriptionError(domain.FailureRejected, false, err)
	case errors.Is(err, context.Canceled):
		return domain.NewTranscriptionError(domain.FailureUnavailable, false, err)
	default:
		// connection refused, DNS and similar
		return domain.NewTranscriptionError(domain.FailureUnavailable, true, err)
	}
}
