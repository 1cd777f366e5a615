package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/pkg/config"
	"github.com/sirupsen/logrus"
)

// Client talks to the external blob upload service. Uploaded files are
// referenced by the returned URL only; nothing is stored locally.

var ErrUploadFailed = errors.New("upload rejected by storage service")

type Result struct {
	URL string `json:"secure_url"`
	ID  string `json:"public_id"`
}

// FileUpload pairs a filename with its content stream.
type FileUpload struct {
	Name   string
	Reader io.Reader
}

// BatchResult reports per-file outcomes; a failed file never aborts the rest
// of the batch.
type BatchResult struct {
	Uploaded []Result
	Failed   []string
}

type Client struct {
	baseURL    string
	apiKey     string
	preset     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.UploadsConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		preset:     cfg.Preset,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Upload(ctx context.Context, name string, content io.Reader) (*Result, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer writer.Close()
		if err := writer.WriteField("upload_preset", c.preset); err != nil {
			pw.CloseWithError(err)
			return
		}
		if c.apiKey != "" {
			if err := writer.WriteField("api_key", c.apiKey); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WithFields(logrus.Fields{
			"file":   name,
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Upload rejected")
		return nil, fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"file": name,
		"url":  result.URL,
	}).Info("File uploaded")
	return &result, nil
}

// UploadAll uploads every file and keeps going past individual failures.
func (c *Client) UploadAll(ctx context.Context, files []FileUpload) *BatchResult {
	batch := &BatchResult{}
	for _, f := range files {
		result, err := c.Upload(ctx, f.Name, f.Reader)
		if err != nil {
			c.logger.WithError(err).WithField("file", f.Name).Warn("Skipping failed upload")
			batch.Failed = append(batch.Failed, f.Name)
			continue
		}
		batch.Uploaded = append(batch.Uploaded, *result)
	}
	return batch
}
