package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"hospital-bulk-api/config"
)

func testSettings(baseURL string) config.Settings {
	return config.Settings{
		HospitalAPIBaseURL: baseURL,
		RequestTimeout:     2 * time.Second,
		WarmupTimeout:      time.Second,
		MaxRetries:         2,
		RetryDelay:         20 * time.Millisecond,
	}
}

func sampleCreateRequest(batchID string) HospitalCreateRequest {
	phone := "555-0100"
	return HospitalCreateRequest{
		Name:            "General Hospital",
		Address:         "1 Main St",
		Phone:           &phone,
		CreationBatchID: batchID,
	}
}

func writeHospitalRecord(w http.ResponseWriter, id int, req HospitalCreateRequest) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(HospitalRecord{
		ID:              id,
		Name:            req.Name,
		Address:         req.Address,
		Phone:           req.Phone,
		CreationBatchID: req.CreationBatchID,
		Active:          false,
		CreatedAt:       time.Now().UTC(),
	})
}

func TestCreateSuccessSingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		if r.Method != http.MethodPost || r.URL.Path != "/hospitals/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req HospitalCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.CreationBatchID != "batch-1" {
			t.Errorf("creation_batch_id = %q, want batch-1", req.CreationBatchID)
		}
		writeHospitalRecord(w, 42, req)
	}))
	defer srv.Close()

	client := NewHospitalAPIClient(testSettings(srv.URL), srv.Client())

	record, failure := client.Create(context.Background(), sampleCreateRequest("batch-1"))
	if failure != nil {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if record.ID != 42 || record.Name != "General Hospital" {
		t.Errorf("unexpected record: %+v", record)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestCreateClientErrorDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "duplicate hospital", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewHospitalAPIClient(testSettings(srv.URL), srv.Client())

	record, failure := client.Create(context.Background(), sampleCreateRequest("batch-1"))
	if record != nil {
		t.Fatalf("expected no record, got %+v", record)
	}
	if failure == nil || failure.Kind != FailureClient {
		t.Fatalf("expected client-error failure, got %+v", failure)
	}
	if !strings.Contains(failure.Message, "status 400") {
		t.Errorf("message %q should mention the status", failure.Message)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("4xx must not be retried: got %d attempts", got)
	}
}

func TestCreateNegativeRetryBudgetStillAttemptsOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "directory unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	settings := testSettings(srv.URL)
	settings.MaxRetries = -3
	client := NewHospitalAPIClient(settings, srv.Client())

	record, failure := client.Create(context.Background(), sampleCreateRequest("batch-neg"))
	if record != nil {
		t.Fatalf("expected no record, got %+v", record)
	}
	if failure == nil || failure.Kind != FailureTransient {
		t.Fatalf("expected a transient failure, got %+v", failure)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestCreateRetriesServerErrorUntilExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "directory unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHospitalAPIClient(testSettings(srv.URL), srv.Client())

	record, failure := client.Create(context.Background(), sampleCreateRequest("batch-1"))
	if record != nil {
		t.Fatalf("expected no record, got %+v", record)
	}
	if failure == nil || failure.Kind != FailureTransient {
		t.Fatalf("expected transient-error failure, got %+v", failure)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestCreateTimeoutThenSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			time.Sleep(300 * time.Millisecond)
			return
		}
		var req HospitalCreateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeHospitalRecord(w, 7, req)
	}))
	defer srv.Close()

	settings := testSettings(srv.URL)
	settings.RetryDelay = 50 * time.Millisecond
	httpClient := srv.Client()
	httpClient.Timeout = 100 * time.Millisecond
	client := NewHospitalAPIClient(settings, httpClient)

	start := time.Now()
	record, failure := client.Create(context.Background(), sampleCreateRequest("batch-1"))
	elapsed := time.Since(start)

	if failure != nil {
		t.Fatalf("expected success on third attempt, got %+v", failure)
	}
	if record.ID != 7 {
		t.Errorf("unexpected record: %+v", record)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("retry delay not observed: finished in %v", elapsed)
	}
}

func TestCreateTimeoutExhaustedReportsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	settings := testSettings(srv.URL)
	settings.RetryDelay = time.Millisecond
	httpClient := srv.Client()
	httpClient.Timeout = 50 * time.Millisecond
	client := NewHospitalAPIClient(settings, httpClient)

	_, failure := client.Create(context.Background(), sampleCreateRequest("batch-1"))
	if failure == nil || failure.Kind != FailureTimeout {
		t.Fatalf("expected timeout failure, got %+v", failure)
	}
	if failure.Message != "Request timeout" {
		t.Errorf("unexpected message %q", failure.Message)
	}
}

func TestActivateBatch(t *testing.T) {
	var gotPath, gotMethod string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := NewHospitalAPIClient(testSettings(srv.URL), srv.Client())

	if failure := client.ActivateBatch(context.Background(), "batch-1"); failure != nil {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if gotMethod != http.MethodPatch || gotPath != "/hospitals/batch/batch-1/activate" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotPath)
	}

	status = http.StatusInternalServerError
	failure := client.ActivateBatch(context.Background(), "batch-1")
	if failure == nil || failure.Kind != FailureTransient {
		t.Fatalf("expected transient failure on 500, got %+v", failure)
	}
	if !strings.Contains(failure.Message, "status 500") {
		t.Errorf("message %q should mention the status", failure.Message)
	}
}

func TestDeleteBatch(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewHospitalAPIClient(testSettings(srv.URL), srv.Client())

	if failure := client.DeleteBatch(context.Background(), "batch-1"); failure != nil {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if gotMethod != http.MethodDelete || gotPath != "/hospitals/batch/batch-1" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func TestWarmup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("warmup should probe the root, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))

	client := NewHospitalAPIClient(testSettings(srv.URL), srv.Client())
	if !client.Warmup(context.Background()) {
		t.Error("expected warmup to succeed")
	}

	// A dead server must not produce an error, only an advisory false.
	srv.Close()
	if client.Warmup(context.Background()) {
		t.Error("expected warmup to report failure after server shutdown")
	}
}
