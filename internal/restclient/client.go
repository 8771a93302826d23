// Package restclient is the HTTP adapter for the external classification
// service. All persistence, inference and report generation live on the
// other side of this client; the dashboard only consumes it.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/dermascan/internal/classifier"
	"github.com/example/dermascan/internal/logging"
)

// DefaultBaseURL matches the classifier service's default listen address.
const DefaultBaseURL = "http://localhost:5000"

const defaultTimeout = 60 * time.Second

// StatusError is an HTTP-level failure from the classifier service,
// carrying the server's own error message when the body had one.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("classifier returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("classifier returned status %d", e.StatusCode)
}

// Client calls the classifier service over HTTP. It implements
// classifier.Client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New constructs a client for the service at baseURL.
func New(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.Named("restclient"),
	}
}

// Predict submits one image for classification via the multipart predict
// endpoint and decodes the stored prediction.
func (c *Client) Predict(ctx context.Context, filename string, data []byte) (*classifier.Prediction, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, logging.NewOperationError("restclient.predict", "", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, logging.NewOperationError("restclient.predict", "", err)
	}
	if err := writer.Close(); err != nil {
		return nil, logging.NewOperationError("restclient.predict", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/predict", body)
	if err != nil {
		return nil, logging.NewOperationError("restclient.predict", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("restclient.predict", "", err)
		c.logger.Error("predict request failed", zap.Error(wrapped), zap.String("filename", filename))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		c.logger.Error("predict rejected", zap.Error(err), zap.String("filename", filename))
		return nil, err
	}

	var prediction classifier.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, logging.NewOperationError("restclient.predict", "", err)
	}
	return &prediction, nil
}

// List fetches the complete prediction history.
func (c *Client) List(ctx context.Context) ([]classifier.Prediction, error) {
	var payload struct {
		Predictions []classifier.Prediction `json:"predictions"`
	}
	if err := c.getJSON(ctx, "/api/predictions", "restclient.list", &payload); err != nil {
		return nil, err
	}
	return payload.Predictions, nil
}

// Get fetches one prediction by identifier.
func (c *Client) Get(ctx context.Context, id string) (*classifier.Prediction, error) {
	var prediction classifier.Prediction
	if err := c.getJSON(ctx, "/api/prediction/"+url.PathEscape(id), "restclient.get", &prediction); err != nil {
		return nil, err
	}
	return &prediction, nil
}

// Delete removes one prediction and its stored files upstream.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/prediction/"+url.PathEscape(id), nil)
	if err != nil {
		return logging.NewOperationError("restclient.delete", id, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("restclient.delete", id, err)
		c.logger.Error("delete request failed", zap.Error(wrapped))
		return wrapped
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return classifier.ErrNotFound
	}
	return checkStatus(resp)
}

// FetchImage streams a stored upload's bytes.
func (c *Client) FetchImage(ctx context.Context, filename string) (*classifier.Document, error) {
	return c.fetchDocument(ctx, "/api/image/"+url.PathEscape(filename), "restclient.fetch_image")
}

// FetchReport streams the generated report document for a prediction.
func (c *Client) FetchReport(ctx context.Context, id string) (*classifier.Document, error) {
	return c.fetchDocument(ctx, "/api/report/"+url.PathEscape(id), "restclient.fetch_report")
}

// Health probes the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return logging.NewOperationError("restclient.health", "", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return logging.NewOperationError("restclient.health", "", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) getJSON(ctx context.Context, path, operation string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return logging.NewOperationError(operation, "", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError(operation, "", err)
		c.logger.Error("request failed", zap.Error(wrapped), zap.String("path", path))
		return wrapped
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return classifier.ErrNotFound
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return logging.NewOperationError(operation, "", err)
	}
	return nil
}

func (c *Client) fetchDocument(ctx context.Context, path, operation string) (*classifier.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, logging.NewOperationError(operation, "", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError(operation, "", err)
		c.logger.Error("document fetch failed", zap.Error(wrapped), zap.String("path", path))
		return nil, wrapped
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, classifier.ErrNotFound
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &classifier.Document{
		ContentType: resp.Header.Get("Content-Type"),
		Disposition: resp.Header.Get("Content-Disposition"),
		Body:        resp.Body,
	}, nil
}

// checkStatus converts a non-2xx response into a StatusError, decoding the
// server's error message when present. It drains at most a small prefix of
// the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
		}
		if payload.Message != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: payload.Message}
		}
	}
	return &StatusError{StatusCode: resp.StatusCode}
}
