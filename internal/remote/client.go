// Package remote provides the typed HTTP client for the symtrack API.
//
// All requests carry the deployment token in the `x-api-key` header
// and exchange JSON bodies. Responses are decoded explicitly and per
// item: one malformed entity in a /get-all payload is collected as an
// item error while the rest of the response is still used.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/symtrack/symtrack/internal/domain"
)

// PulledData is the decoded result of a /get-all call. ItemErrors
// carries the per-entity decode failures that did not poison the
// response.
type PulledData struct {
	Symptoms   []domain.Symptom
	Metrics    []domain.Metric
	ItemErrors []error
}

// PushAllResult reports per-entity outcomes of a /push-all call.
type PushAllResult struct {
	Symptoms PushOutcome `json:"symptoms"`
	Metrics  PushOutcome `json:"metrics"`
}

// PushOutcome lists which entity ids the server accepted and which it
// could not process.
type PushOutcome struct {
	Successful []string `json:"successful"`
	Failed     []string `json:"failed"`
}

// Client talks to one deployment of the symtrack API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *log.Logger
}

// New creates a client for the given endpoint. A trailing slash on
// baseURL is trimmed. If logger is nil, a default logger writing to
// stderr is used.
func New(baseURL, token string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Configured reports whether the client has both an endpoint and a token.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.token != ""
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues one request and returns the status plus the raw body.
// Network-level failures come back as *TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (int, []byte, error) {
	if !c.Configured() {
		return 0, nil, ErrMissingConfig
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("x-api-key", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	return resp.StatusCode, raw, nil
}

// errorMessage extracts the `{"error": ...}` body the server attaches
// to semantic failures. Bodies that are not in that shape come back
// verbatim, truncated.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// CreateSymptom publishes a locally created symptom via POST /symptoms.
func (c *Client) CreateSymptom(ctx context.Context, s domain.Symptom) error {
	status, raw, err := c.do(ctx, "create symptom", http.MethodPost, "/symptoms", nil, symptomToWire(s))
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Op: "create symptom", Status: status, Message: errorMessage(raw)}
	}
	var body struct {
		CreatedSymptom apiSymptom `json:"created_symptom"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return &APIError{Op: "create symptom", Status: status, Message: "malformed response body"}
	}
	return nil
}

// UpdateSymptom publishes a symptom edit via PATCH /symptoms/{id}.
// A 409 from the server means the symptom does not exist there and
// maps to ErrNotFound.
func (c *Client) UpdateSymptom(ctx context.Context, s domain.Symptom) error {
	wire := symptomToWire(s)
	payload := map[string]any{
		"name":        wire.Name,
		"other_names": wire.OtherNames,
		"updated_at":  wire.UpdatedAt,
	}
	status, raw, err := c.do(ctx, "update symptom", http.MethodPatch, "/symptoms/"+url.PathEscape(s.ID), nil, payload)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusConflict, http.StatusNotFound:
		return fmt.Errorf("symptom %s: %w", s.ID, ErrNotFound)
	default:
		return &APIError{Op: "update symptom", Status: status, Message: errorMessage(raw)}
	}
}

// DeleteSymptom publishes a symptom deletion via DELETE /symptoms/{id}.
// A 404 means the symptom is already gone and maps to ErrNotFound;
// callers treat that as success.
func (c *Client) DeleteSymptom(ctx context.Context, id string) error {
	status, raw, err := c.do(ctx, "delete symptom", http.MethodDelete, "/symptoms/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("symptom %s: %w", id, ErrNotFound)
	default:
		return &APIError{Op: "delete symptom", Status: status, Message: errorMessage(raw)}
	}
}

// CreateMetric publishes a locally created metric via POST /metrics.
func (c *Client) CreateMetric(ctx context.Context, m domain.Metric) error {
	status, raw, err := c.do(ctx, "create metric", http.MethodPost, "/metrics", nil, metricToWire(m))
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Op: "create metric", Status: status, Message: errorMessage(raw)}
	}
	var body struct {
		CreatedMetric apiMetric `json:"created_metric"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return &APIError{Op: "create metric", Status: status, Message: "malformed response body"}
	}
	return nil
}

// UpdateMetric publishes a metric edit via PATCH /metrics/{id}.
func (c *Client) UpdateMetric(ctx context.Context, m domain.Metric) error {
	wire := metricToWire(m)
	payload := map[string]any{
		"symptom_id": wire.SymptomID,
		"date":       wire.Date,
		"updated_at": wire.UpdatedAt,
		"intensity":  wire.Intensity,
		"notes":      wire.Notes,
	}
	status, raw, err := c.do(ctx, "update metric", http.MethodPatch, "/metrics/"+url.PathEscape(m.ID), nil, payload)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusConflict, http.StatusNotFound:
		return fmt.Errorf("metric %s: %w", m.ID, ErrNotFound)
	default:
		return &APIError{Op: "update metric", Status: status, Message: errorMessage(raw)}
	}
}

// DeleteMetric publishes a metric deletion via DELETE /metrics/{id}.
func (c *Client) DeleteMetric(ctx context.Context, id string) error {
	status, raw, err := c.do(ctx, "delete metric", http.MethodDelete, "/metrics/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("metric %s: %w", id, ErrNotFound)
	default:
		return &APIError{Op: "delete metric", Status: status, Message: errorMessage(raw)}
	}
}

// ReadAll fetches every symptom and metric the server published since
// the given instant via GET /get-all. A nil since fetches everything.
//
// Decoding is resilient: entities that fail to decode are collected
// into PulledData.ItemErrors and logged, and the good entities are
// still returned.
func (c *Client) ReadAll(ctx context.Context, since *time.Time) (PulledData, error) {
	query := url.Values{}
	if since != nil {
		query.Set("published_since", formatWireTime(*since))
	}

	status, raw, err := c.do(ctx, "read all", http.MethodGet, "/get-all", query, nil)
	if err != nil {
		return PulledData{}, err
	}
	if status != http.StatusOK {
		return PulledData{}, &APIError{Op: "read all", Status: status, Message: errorMessage(raw)}
	}

	var body struct {
		Symptoms []apiSymptom `json:"symptoms"`
		Metrics  []apiMetric  `json:"metrics"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return PulledData{}, &APIError{Op: "read all", Status: status, Message: "malformed response body"}
	}

	var pulled PulledData
	for _, rawSymptom := range body.Symptoms {
		symptom, err := symptomFromWire(rawSymptom)
		if err != nil {
			c.logger.Printf("WARNING: skipping pulled symptom: %v", err)
			pulled.ItemErrors = append(pulled.ItemErrors, err)
			continue
		}
		pulled.Symptoms = append(pulled.Symptoms, symptom)
	}
	for _, rawMetric := range body.Metrics {
		metric, err := metricFromWire(rawMetric)
		if err != nil {
			c.logger.Printf("WARNING: skipping pulled metric: %v", err)
			pulled.ItemErrors = append(pulled.ItemErrors, err)
			continue
		}
		pulled.Metrics = append(pulled.Metrics, metric)
	}
	return pulled, nil
}

// PushAll sends every given entity to POST /push-all in one request
// and returns the server's per-entity outcome lists.
func (c *Client) PushAll(ctx context.Context, symptoms []domain.Symptom, metrics []domain.Metric) (PushAllResult, error) {
	wireSymptoms := make([]apiSymptom, 0, len(symptoms))
	for _, s := range symptoms {
		wireSymptoms = append(wireSymptoms, symptomToWire(s))
	}
	wireMetrics := make([]apiMetric, 0, len(metrics))
	for _, m := range metrics {
		wireMetrics = append(wireMetrics, metricToWire(m))
	}

	payload := map[string]any{
		"symptoms": wireSymptoms,
		"metrics":  wireMetrics,
	}
	status, raw, err := c.do(ctx, "push all", http.MethodPost, "/push-all", nil, payload)
	if err != nil {
		return PushAllResult{}, err
	}
	if status != http.StatusOK {
		return PushAllResult{}, &APIError{Op: "push all", Status: status, Message: errorMessage(raw)}
	}

	var result PushAllResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return PushAllResult{}, &APIError{Op: "push all", Status: status, Message: "malformed response body"}
	}
	return result, nil
}

// Ping checks the endpoint via GET /health.
func (c *Client) Ping(ctx context.Context) error {
	status, raw, err := c.do(ctx, "ping", http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Op: "ping", Status: status, Message: errorMessage(raw)}
	}
	return nil
}
