package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"hospital-bulk-api/config"
	"hospital-bulk-api/models"
	"hospital-bulk-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BatchSummary is the list-view shape of a batch upload.
type BatchSummary struct {
	BatchID            string     `json:"batch_id"`
	Filename           string     `json:"filename"`
	TotalHospitals     int        `json:"total_hospitals"`
	ProcessedHospitals int        `json:"processed_hospitals"`
	FailedHospitals    int        `json:"failed_hospitals"`
	BatchActivated     bool       `json:"batch_activated"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// BulkCreateHospitals handles POST /api/v1/hospitals/bulk.
//
// CSV format: name,address,phone (phone optional). The whole file is
// validated before any remote call or ledger write happens.
func BulkCreateHospitals(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required"})
		return
	}
	defer file.Close()

	if header.Size > 5*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large (max 5MB)"})
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
		return
	}

	settings := config.LoadSettings()

	rows, err := services.ParseHospitalCSV(header.Filename, content, settings.MaxCSVRows)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CSV file"})
		return
	}

	svc := services.NewBatchProcessorService(nil, nil, settings)
	resp, err := svc.ProcessBatch(c.Request.Context(), header.Filename, rows)
	if err != nil {
		if errors.Is(err, services.ErrLedgerBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service busy, please retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process batch"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListBatches handles GET /api/v1/batches, newest first.
func ListBatches(c *gin.Context) {
	var batches []models.BatchUpload
	if err := config.DB.Order("created_at DESC").Find(&batches).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list batches"})
		return
	}

	summaries := make([]BatchSummary, 0, len(batches))
	for _, b := range batches {
		summaries = append(summaries, BatchSummary{
			BatchID:            b.BatchID,
			Filename:           b.Filename,
			TotalHospitals:     b.TotalHospitals,
			ProcessedHospitals: b.ProcessedHospitals,
			FailedHospitals:    b.FailedHospitals,
			BatchActivated:     b.BatchActivated,
			Status:             b.Status,
			CreatedAt:          b.CreatedAt,
			CompletedAt:        b.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, summaries)
}

// GetBatchDetails handles GET /api/v1/batches/:batch_id. Row results come
// back in input order.
func GetBatchDetails(c *gin.Context) {
	batchID := c.Param("batch_id")

	var batch models.BatchUpload
	if err := config.DB.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load batch"})
		return
	}

	var results []models.HospitalProcessingResult
	if err := config.DB.Where("batch_upload_id = ?", batch.ID).
		Order("row_number ASC").Find(&results).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load batch results"})
		return
	}

	details := make([]services.HospitalProcessingDetail, 0, len(results))
	for _, r := range results {
		details = append(details, services.HospitalProcessingDetail{
			Row:          r.RowNumber,
			HospitalID:   r.HospitalID,
			Name:         r.Name,
			Status:       r.Status,
			ErrorMessage: r.ErrorMessage,
		})
	}

	var elapsed float64
	if batch.ProcessingTimeSeconds != nil {
		elapsed = *batch.ProcessingTimeSeconds
	}

	c.JSON(http.StatusOK, services.BulkUploadResponse{
		BatchID:               batch.BatchID,
		TotalHospitals:        batch.TotalHospitals,
		ProcessedHospitals:    batch.ProcessedHospitals,
		FailedHospitals:       batch.FailedHospitals,
		ProcessingTimeSeconds: elapsed,
		BatchActivated:        batch.BatchActivated,
		Hospitals:             details,
	})
}
