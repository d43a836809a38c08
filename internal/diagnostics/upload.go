// Package diagnostics collects a redacted snapshot of this node's
// configuration and registry state and uploads it to an mclo.gs-
// compatible paste endpoint for support purposes.
package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
)

// DefaultMclogsAPIURL is the default paste endpoint for `cmx diagnostics`.
const DefaultMclogsAPIURL = "https://api.mclo.gs/1/log"

var (
	ErrMissingUploadAPIURL = errors.New("diagnostics: upload api url is required")
	ErrInvalidUploadAPIURL = errors.New("diagnostics: upload api url is invalid")
)

type mclogsUploadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
	Raw     string `json:"raw"`
	Error   string `json:"error"`
}

// UploadReport posts content to an mclogs-compatible API endpoint and
// returns the resulting URL, retrying transient network/5xx failures
// with exponential backoff.
func UploadReport(ctx context.Context, apiURL string, content string) (string, error) {
	if apiURL == "" {
		return "", ErrMissingUploadAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUploadAPIURL, err)
	}

	var result string
	op := func() error {
		u, err := attemptUpload(ctx, apiURL, content)
		if err != nil {
			return err
		}
		result = u
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return result, nil
}

func attemptUpload(ctx context.Context, apiURL, content string) (string, error) {
	formData := new(bytes.Buffer)
	formWriter := multipart.NewWriter(formData)
	if err := formWriter.WriteField("content", content); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to write form field: %w", err))
	}
	if err := formWriter.Close(); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to finalize form data: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, formData)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create upload request: %w", err))
	}
	req.Header.Set("Content-Type", formWriter.FormDataContentType())

	client := &http.Client{Timeout: 30 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode >= 500 {
		return "", fmt.Errorf("upload failed with status %s: %s", res.Status, string(body))
	}
	if res.StatusCode != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("upload failed with status %s: %s", res.Status, string(body)))
	}

	var uploadResponse mclogsUploadResponse
	if err := json.Unmarshal(body, &uploadResponse); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode upload response: %w", err))
	}
	if !uploadResponse.Success {
		if uploadResponse.Error != "" {
			return "", backoff.Permanent(errors.New(uploadResponse.Error))
		}
		return "", backoff.Permanent(errors.New("upload failed"))
	}
	if uploadResponse.URL == "" {
		return "", backoff.Permanent(errors.New("upload response missing URL"))
	}
	return uploadResponse.URL, nil
}
