package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tender-backend/internal/shared/telemetry"
)

const (
	defaultPollInterval = 2 * time.Second
	maxErrorBody        = 512
	requestAttempts     = 3
)

// Remote submits documents to an HTTP OCR service and polls the resulting job
// until it succeeds, fails or the context deadline passes.
//
//	POST {endpoint}/jobs      {"documentId","fileName","mimeType","content"} -> {"id","status"}
//	GET  {endpoint}/jobs/{id} -> {"id","status","text","pageCount","error"}
type Remote struct {
	endpoint     string
	apiKey       string
	pollInterval time.Duration
	httpClient   *http.Client
}

// NewRemote builds a Remote extractor.
func NewRemote(endpoint, apiKey string, pollInterval time.Duration) (*Remote, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("OCR_ENDPOINT is required for remote OCR")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("OCR_ENDPOINT invalid: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Remote{
		endpoint:     endpoint,
		apiKey:       apiKey,
		pollInterval: pollInterval,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type submitRequest struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	Content    string `json:"content"`
}

type jobResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Text      string `json:"text"`
	PageCount int    `json:"pageCount"`
	Error     string `json:"error"`
}

// Extract implements Extractor.
func (r *Remote) Extract(ctx context.Context, in Input) (Result, error) {
	payload, err := json.Marshal(submitRequest{
		DocumentID: in.DocumentID,
		FileName:   in.FileName,
		MimeType:   in.MimeType,
		Content:    base64.StdEncoding.EncodeToString(in.Data),
	})
	if err != nil {
		return Result{}, err
	}

	var job jobResponse
	err = withRetry(ctx, requestAttempts, "submit", func() error {
		var callErr error
		job, callErr = r.do(ctx, http.MethodPost, r.endpoint+"/jobs", payload)
		return callErr
	})
	if err != nil {
		return Result{}, fmt.Errorf("ocr submit: %w", err)
	}
	if job.ID == "" {
		return Result{}, errors.New("ocr submit: response missing job id")
	}
	telemetry.Info("ocr.submitted", map[string]any{
		"document_id": in.DocumentID,
		"ocr_job_id":  job.ID,
	})

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		switch strings.ToLower(job.Status) {
		case "succeeded", "completed", "done":
			text := strings.TrimSpace(job.Text)
			if text == "" {
				return Result{}, ErrNoText
			}
			return Result{Text: text, PageCount: job.PageCount}, nil
		case "failed", "error":
			msg := strings.TrimSpace(job.Error)
			if msg == "" {
				msg = "no reason given"
			}
			return Result{}, fmt.Errorf("%w: %s", ErrFailed, msg)
		}

		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("ocr poll %s: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}

		id := job.ID
		err = withRetry(ctx, requestAttempts, "poll", func() error {
			var callErr error
			job, callErr = r.do(ctx, http.MethodGet, r.endpoint+"/jobs/"+url.PathEscape(id), nil)
			return callErr
		})
		if err != nil {
			return Result{}, fmt.Errorf("ocr poll %s: %w", id, err)
		}
		if job.ID == "" {
			job.ID = id
		}
	}
}

func (r *Remote) do(ctx context.Context, method, target string, body []byte) (jobResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return jobResponse{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return jobResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return jobResponse{}, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return jobResponse{}, &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	var out jobResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return jobResponse{}, fmt.Errorf("ocr response parse: %w", err)
	}
	return out, nil
}

var _ Extractor = (*Remote)(nil)
