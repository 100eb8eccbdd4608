package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hospital-bulk-api/config"
)

// FailureKind classifies why a remote call failed.
type FailureKind string

const (
	// FailureClient is a 4xx response; retrying cannot fix it.
	FailureClient FailureKind = "client-error"
	// FailureTransient is a 5xx response; retried until attempts ran out.
	FailureTransient FailureKind = "transient-error"
	// FailureTimeout means the request exceeded its deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureTransport covers connection-level errors.
	FailureTransport FailureKind = "transport-error"
)

// RemoteFailure is the failure half of a remote call outcome. Calls return
// either a result or a RemoteFailure, never both; nothing panics across the
// orchestration boundary.
type RemoteFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// HospitalCreateRequest is the body for POST /hospitals/ on the directory API.
type HospitalCreateRequest struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	Phone           *string `json:"phone,omitempty"`
	CreationBatchID string  `json:"creation_batch_id"`
}

// HospitalRecord is the directory API's representation of a created hospital.
type HospitalRecord struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	Phone           *string   `json:"phone,omitempty"`
	CreationBatchID string    `json:"creation_batch_id"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// HospitalAPIClient talks to the external Hospital Directory API. It owns
// the retry policy for create calls; activate and delete are single-shot.
type HospitalAPIClient struct {
	baseURL       string
	client        *http.Client
	warmupTimeout time.Duration
	maxRetries    int
	retryDelay    time.Duration
}

// NewHospitalAPIClient constructs a client from the provided settings.
// A nil httpClient gets a default one with the configured request timeout;
// tests inject their own to fake the transport.
func NewHospitalAPIClient(settings config.Settings, httpClient *http.Client) *HospitalAPIClient {
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if settings.SkipTLSVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		httpClient = &http.Client{
			Timeout:   settings.RequestTimeout,
			Transport: transport,
		}
	}
	maxRetries := settings.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HospitalAPIClient{
		baseURL:       strings.TrimRight(settings.HospitalAPIBaseURL, "/"),
		client:        httpClient,
		warmupTimeout: settings.WarmupTimeout,
		maxRetries:    maxRetries,
		retryDelay:    settings.RetryDelay,
	}
}

// Warmup probes the directory API root to wake it from a cold start before
// the first create call. Best-effort: any response means the service is up,
// and a failure only returns false, never an error.
func (c *HospitalAPIClient) Warmup(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.warmupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("hospital client: warmup failed: %v - continuing anyway", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("hospital client: warmup returned status %d", resp.StatusCode)
	}
	return true
}

// Create posts one hospital to the directory API. 4xx responses fail
// immediately; 5xx, timeouts, and transport errors are retried with the
// configured delay until the attempt budget is spent. Exactly one of the
// returned values is non-nil.
func (c *HospitalAPIClient) Create(ctx context.Context, data HospitalCreateRequest) (*HospitalRecord, *RemoteFailure) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, &RemoteFailure{Kind: FailureClient, Message: fmt.Sprintf("encoding request: %v", err)}
	}

	var lastFailure *RemoteFailure

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("hospital client: retry %d/%d: POST %s/hospitals/", attempt, c.maxRetries, c.baseURL)
			// The inter-attempt delay is a plain wait, not tied to ctx.
			time.Sleep(c.retryDelay)
		}

		record, failure := c.doCreate(ctx, body)
		if failure == nil {
			return record, nil
		}
		if failure.Kind == FailureClient {
			log.Printf("hospital client: client error, not retrying: %s", failure.Message)
			return nil, failure
		}
		lastFailure = failure
	}

	log.Printf("hospital client: create failed after %d attempts: %s", 1+c.maxRetries, lastFailure.Message)
	return nil, lastFailure
}

func (c *HospitalAPIClient) doCreate(ctx context.Context, body []byte) (*HospitalRecord, *RemoteFailure) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hospitals/", bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Request error: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &RemoteFailure{Kind: FailureTimeout, Message: "Request timeout"}
		}
		return nil, &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Request error: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Reading response: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var record HospitalRecord
		if err := json.Unmarshal(respBody, &record); err != nil {
			return nil, &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Decoding response: %v", err)}
		}
		return &record, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &RemoteFailure{
			Kind:    FailureClient,
			Message: fmt.Sprintf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	default:
		return nil, &RemoteFailure{
			Kind:    FailureTransient,
			Message: fmt.Sprintf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}
}

// ActivateBatch flips every hospital tagged with batchID to active. Single
// attempt; the caller only invokes this once zero rows have failed.
func (c *HospitalAPIClient) ActivateBatch(ctx context.Context, batchID string) *RemoteFailure {
	endpoint := fmt.Sprintf("%s/hospitals/batch/%s/activate", c.baseURL, batchID)
	log.Printf("hospital client: PATCH %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, nil)
	if err != nil {
		return &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Batch activation request error: %v", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &RemoteFailure{Kind: FailureTimeout, Message: "Batch activation timeout"}
		}
		return &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Batch activation request error: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	kind := FailureTransient
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		kind = FailureClient
	}
	return &RemoteFailure{
		Kind:    kind,
		Message: fmt.Sprintf("Batch activation failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
	}
}

// DeleteBatch removes every hospital tagged with batchID. Compensation hook
// for callers rolling back a partially created batch; the default pipeline
// never calls it.
func (c *HospitalAPIClient) DeleteBatch(ctx context.Context, batchID string) *RemoteFailure {
	endpoint := fmt.Sprintf("%s/hospitals/batch/%s", c.baseURL, batchID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Batch deletion error: %v", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &RemoteFailure{Kind: FailureTimeout, Message: "Batch deletion timeout"}
		}
		return &RemoteFailure{Kind: FailureTransport, Message: fmt.Sprintf("Batch deletion error: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	kind := FailureTransient
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		kind = FailureClient
	}
	return &RemoteFailure{
		Kind:    kind,
		Message: fmt.Sprintf("Batch deletion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
