package drafting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// ErrEmptyDraft is returned when a generator answers without any text.
var ErrEmptyDraft = errors.New("generator returned an empty draft")

// TooManyRequestsError represents a rate limiting signal from the draft service.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// HTTPGenerator requests drafts from an external drafting service.
type HTTPGenerator struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type draftRequest struct {
	Intake model.Intake `json:"intake"`
}

type draftResponse struct {
	Draft string `json:"draft"`
}

// NewHTTPGenerator creates an HTTP generator. The request deadline comes from the caller.
func NewHTTPGenerator(baseURL string, logger *slog.Logger) (*HTTPGenerator, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse draft generator url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("draft generator url must be absolute")
	}
	return &HTTPGenerator{
		baseURL:    parsed,
		logger:     logger,
		httpClient: &http.Client{},
	}, nil
}

// GenerateDraft posts the intake to /api/drafts and returns the produced text.
func (g *HTTPGenerator) GenerateDraft(ctx context.Context, intake model.Intake) (string, error) {
	endpoint := *g.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/drafts")

	payload, err := json.Marshal(draftRequest{Intake: intake})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var data draftResponse
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return "", fmt.Errorf("decode draft response: %w", err)
		}
		text := strings.TrimSpace(data.Draft)
		if text == "" {
			return "", ErrEmptyDraft
		}
		return text, nil
	case http.StatusTooManyRequests:
		return "", TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		g.logger.Error("draft request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return "", fmt.Errorf("draft service error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
