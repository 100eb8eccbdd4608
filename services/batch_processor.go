package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"hospital-bulk-api/config"
	"hospital-bulk-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrLedgerBusy wraps database write failures that survived the bounded
// retry loop. Controllers map it to HTTP 503 for the current request only.
var ErrLedgerBusy = errors.New("ledger busy")

// finalizeTimeout bounds the terminal-status write once it has been
// detached from the request context.
const finalizeTimeout = 15 * time.Second

// HospitalProcessingDetail is the per-row slice of the upload response.
type HospitalProcessingDetail struct {
	Row          int     `json:"row"`
	HospitalID   *int    `json:"hospital_id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message"`
}

// BulkUploadResponse summarizes one processed batch.
type BulkUploadResponse struct {
	BatchID               string                     `json:"batch_id"`
	TotalHospitals        int                        `json:"total_hospitals"`
	ProcessedHospitals    int                        `json:"processed_hospitals"`
	FailedHospitals       int                        `json:"failed_hospitals"`
	ProcessingTimeSeconds float64                    `json:"processing_time_seconds"`
	BatchActivated        bool                       `json:"batch_activated"`
	Hospitals             []HospitalProcessingDetail `json:"hospitals"`
}

// BatchProcessorService drives one upload end to end: ledger record, warmup,
// the sequential per-row create loop, the all-or-nothing activation decision,
// and finalization.
type BatchProcessorService struct {
	db       *gorm.DB
	client   *HospitalAPIClient
	notifier *BatchNotifier
	settings config.Settings
}

// NewBatchProcessorService constructs a BatchProcessorService. A nil db
// falls back to the shared connection; a nil client is built from settings.
func NewBatchProcessorService(db *gorm.DB, client *HospitalAPIClient, settings config.Settings) *BatchProcessorService {
	if db == nil {
		db = config.DB
	}
	if client == nil {
		client = NewHospitalAPIClient(settings, nil)
	}
	return &BatchProcessorService{
		db:       db,
		client:   client,
		notifier: NewBatchNotifier(settings),
		settings: settings,
	}
}

// ProcessBatch processes already-parsed rows under a fresh batch token.
//
// Rows are handled strictly in input order; one row's failure never stops
// the loop. Activation runs only when every row succeeded. An activation
// failure leaves the remotely created hospitals inactive and marks the batch
// failed; no compensating delete is issued. Once the batch record exists it
// always reaches a terminal status: the finalizing write is detached from
// ctx so cancellation cannot strand it in processing.
func (s *BatchProcessorService) ProcessBatch(ctx context.Context, filename string, rows []HospitalRow) (*BulkUploadResponse, error) {
	start := time.Now()

	batch := models.BatchUpload{
		BatchID:        uuid.NewString(),
		Filename:       filename,
		TotalHospitals: len(rows),
		Status:         models.BatchStatusProcessing,
	}
	if err := s.saveWithRetry(ctx, "batch insert", func() error {
		return s.db.WithContext(ctx).Create(&batch).Error
	}); err != nil {
		return nil, err
	}

	log.Printf("batch processor: batch %s started (%d rows, file %q)", batch.BatchID, len(rows), filename)
	s.client.Warmup(ctx)

	details := make([]HospitalProcessingDetail, 0, len(rows))
	processedCount := 0
	failedCount := 0
	var ledgerErr error

	for idx, row := range rows {
		rowNumber := idx + 1

		var detail HospitalProcessingDetail
		var result models.HospitalProcessingResult

		if ok, msg := ValidateHospitalData(row); !ok {
			failedCount++
			result = failedRowResult(batch.ID, rowNumber, row, msg)
			detail = failedDetail(rowNumber, row.Name, msg)
		} else {
			record, failure := s.client.Create(ctx, HospitalCreateRequest{
				Name:            row.Name,
				Address:         row.Address,
				Phone:           row.Phone,
				CreationBatchID: batch.BatchID,
			})
			if failure != nil {
				failedCount++
				result = failedRowResult(batch.ID, rowNumber, row, failure.Message)
				detail = failedDetail(rowNumber, row.Name, failure.Message)
			} else {
				processedCount++
				hospitalID := record.ID
				result = models.HospitalProcessingResult{
					BatchUploadID: batch.ID,
					RowNumber:     rowNumber,
					HospitalID:    &hospitalID,
					Name:          record.Name,
					Address:       record.Address,
					Phone:         record.Phone,
					Status:        models.HospitalStatusCreatedAndActivated,
				}
				detail = HospitalProcessingDetail{
					Row:        rowNumber,
					HospitalID: &hospitalID,
					Name:       record.Name,
					Status:     models.HospitalStatusCreatedAndActivated,
				}
			}
		}

		if err := s.saveWithRetry(ctx, "row result insert", func() error {
			return s.db.WithContext(ctx).Create(&result).Error
		}); err != nil {
			ledgerErr = err
			break
		}
		details = append(details, detail)
	}

	batchActivated := false
	status := models.BatchStatusFailed

	if ledgerErr == nil {
		if failedCount == 0 {
			if failure := s.client.ActivateBatch(ctx, batch.BatchID); failure == nil {
				batchActivated = true
				status = models.BatchStatusCompleted
			} else {
				// Hospitals stay created-but-inactive remotely; accepted
				// inconsistency window, no automatic cleanup.
				log.Printf("batch processor: batch %s activation failed: %s", batch.BatchID, failure.Message)
			}
		} else {
			log.Printf("batch processor: batch %s has %d failed rows, skipping activation", batch.BatchID, failedCount)
		}
	}

	if ledgerErr != nil {
		// Rows that never reached the ledger count as failed so the
		// terminal counts still sum to the total.
		failedCount = len(rows) - processedCount
	}

	elapsed := math.Round(time.Since(start).Seconds()*100) / 100
	now := time.Now().UTC()

	batch.ProcessedHospitals = processedCount
	batch.FailedHospitals = failedCount
	batch.BatchActivated = batchActivated
	batch.ProcessingTimeSeconds = &elapsed
	batch.Status = status
	batch.CompletedAt = &now

	// The terminal write runs detached from the request context; a client
	// disconnect must not strand the batch record in processing.
	finalizeCtx, cancelFinalize := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancelFinalize()

	finalizeErr := s.saveWithRetry(finalizeCtx, "batch finalize", func() error {
		return s.db.WithContext(finalizeCtx).Model(&models.BatchUpload{}).
			Where("id = ?", batch.ID).
			Updates(map[string]interface{}{
				"processed_hospitals":     processedCount,
				"failed_hospitals":        failedCount,
				"batch_activated":         batchActivated,
				"processing_time_seconds": elapsed,
				"status":                  status,
				"completed_at":            now,
			}).Error
	})

	if ledgerErr != nil {
		return nil, ledgerErr
	}
	if finalizeErr != nil {
		return nil, finalizeErr
	}

	s.notifier.NotifyBatchFinished(&batch)

	return &BulkUploadResponse{
		BatchID:               batch.BatchID,
		TotalHospitals:        len(rows),
		ProcessedHospitals:    processedCount,
		FailedHospitals:       failedCount,
		ProcessingTimeSeconds: elapsed,
		BatchActivated:        batchActivated,
		Hospitals:             details,
	}, nil
}

func failedRowResult(batchID uint, rowNumber int, row HospitalRow, msg string) models.HospitalProcessingResult {
	errMsg := msg
	return models.HospitalProcessingResult{
		BatchUploadID: batchID,
		RowNumber:     rowNumber,
		Name:          row.Name,
		Address:       row.Address,
		Phone:         row.Phone,
		Status:        models.HospitalStatusFailed,
		ErrorMessage:  &errMsg,
	}
}

func failedDetail(rowNumber int, name, msg string) HospitalProcessingDetail {
	errMsg := msg
	return HospitalProcessingDetail{
		Row:          rowNumber,
		Name:         name,
		Status:       models.HospitalStatusFailed,
		ErrorMessage: &errMsg,
	}
}

// saveWithRetry retries a ledger write a bounded number of times before
// giving up with ErrLedgerBusy. Transient contention ("resource busy",
// deadlocks) usually clears within an attempt or two.
func (s *BatchProcessorService) saveWithRetry(ctx context.Context, op string, fn func() error) error {
	attempts := s.settings.LedgerWriteAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Printf("batch processor: %s failed (attempt %d/%d): %v", op, attempt, attempts, err)
		if attempt < attempts {
			select {
			case <-time.After(s.settings.LedgerRetryDelay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %v", ErrLedgerBusy, op, ctx.Err())
			}
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrLedgerBusy, op, err)
}
