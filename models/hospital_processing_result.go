package models

import "time"

// Per-row outcomes. A row either made it through creation (and is swept up
// by batch activation) or failed; there is no in-between state on disk.
const (
	HospitalStatusCreatedAndActivated = "created_and_activated"
	HospitalStatusFailed              = "failed"
)

// HospitalProcessingResult records the final outcome of one CSV row.
// Written exactly once when the row finishes processing.
type HospitalProcessingResult struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	BatchUploadID uint `json:"batch_upload_id" gorm:"column:batch_upload_id;index;not null"`

	// RowNumber is the 1-based position within the upload, header excluded.
	RowNumber int `json:"row_number" gorm:"column:row_number;not null"`

	// HospitalID is the identity assigned by the Hospital Directory API;
	// nil when creation never succeeded.
	HospitalID *int `json:"hospital_id,omitempty" gorm:"column:hospital_id"`

	Name    string  `json:"name" gorm:"column:name;type:varchar(200);not null"`
	Address string  `json:"address" gorm:"column:address;type:varchar(500);not null"`
	Phone   *string `json:"phone,omitempty" gorm:"column:phone;type:varchar(20)"`

	Status       string  `json:"status" gorm:"column:status;type:enum('created_and_activated','failed');not null"`
	ErrorMessage *string `json:"error_message,omitempty" gorm:"column:error_message;type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (HospitalProcessingResult) TableName() string { return "hospital_processing_results" }
