package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/logging"
)

const (
	DefaultEvaluatorTimeout = 60 * time.Second

	maxEvaluatorResponse = 4 << 20
)

var ErrEvaluationFailed = errors.New("evaluation failed")

// Request is one batch submitted to the evaluator.
type Request struct {
	Email               string
	UserLanguage        string
	MarketplaceLanguage string
	SourceURL           string
	AdditionalText      string
	Uploads             []models.PendingUpload
}

func (r Request) Provenance() Provenance {
	return Provenance{UserLanguage: r.UserLanguage, MarketplaceLanguage: r.MarketplaceLanguage}
}

// Evaluator submits photos to the remote evaluation endpoint.
type Evaluator struct {
	url         string
	httpClient  *http.Client
	timeout     time.Duration
	rateLimiter *rate.Limiter
	logger      logging.Logger
}

// NewEvaluator returns a client for the endpoint at url. rps limits
// submissions per second; zero or less means unlimited.
func NewEvaluator(url string, timeout time.Duration, rps float64, logger logging.Logger) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultEvaluatorTimeout
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Evaluator{
		url:         url,
		httpClient:  &http.Client{},
		timeout:     timeout,
		rateLimiter: rate.NewLimiter(limit, 1),
		logger:      logger.With("module", "evaluator"),
	}
}

// Evaluate posts the batch as multipart form data and returns the raw JSON
// body. Any failure, including a non-2xx status, fails the whole batch with
// ErrEvaluationFailed.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) ([]byte, error) {
	if e.url == "" {
		return nil, fmt.Errorf("%w: no evaluator url configured", ErrEvaluationFailed)
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	e.logger.Info(ctx, "submitting batch", "images", len(req.Uploads))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEvaluatorResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrEvaluationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Warn(ctx, "evaluator rejected batch", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrEvaluationFailed, resp.StatusCode)
	}

	return data, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"email", req.Email},
		{"user_language", req.UserLanguage},
		{"marketplace_language", req.MarketplaceLanguage},
		{"source_url", req.SourceURL},
		{"additional_text", req.AdditionalText},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
	}

	for _, u := range req.Uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(u.Name)))
		contentType := u.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
		if _, err := part.Write(u.Data); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
		if err := w.WriteField(correlationField, u.CorrelationID); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
