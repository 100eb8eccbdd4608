package models

import "time"

// Batch lifecycle statuses. A batch is created as pending, flips to
// processing when work starts, and ends in exactly one terminal state.
const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// BatchUpload tracks one CSV upload end to end: aggregate counts, the
// activation outcome, and timing. Per-row outcomes hang off Results.
type BatchUpload struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	// BatchID is the UUID token sent to the Hospital Directory API with
	// every create call; assigned once, never changed.
	BatchID  string `json:"batch_id" gorm:"column:batch_id;type:varchar(36);uniqueIndex;not null"`
	Filename string `json:"filename" gorm:"column:filename;type:varchar(255);not null"`

	TotalHospitals     int `json:"total_hospitals" gorm:"column:total_hospitals;not null"`
	ProcessedHospitals int `json:"processed_hospitals" gorm:"column:processed_hospitals;not null;default:0"`
	FailedHospitals    int `json:"failed_hospitals" gorm:"column:failed_hospitals;not null;default:0"`

	BatchActivated        bool     `json:"batch_activated" gorm:"column:batch_activated;not null;default:false"`
	ProcessingTimeSeconds *float64 `json:"processing_time_seconds,omitempty" gorm:"column:processing_time_seconds"`
	Status                string   `json:"status" gorm:"column:status;type:enum('pending','processing','completed','failed');not null;default:'pending'"`

	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`

	Results []HospitalProcessingResult `json:"results,omitempty" gorm:"foreignKey:BatchUploadID"`
}

func (BatchUpload) TableName() string { return "batch_uploads" }
