package ocr

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// TranscriptionJob tracks one asynchronous OCR run for an uploaded document.
type TranscriptionJob struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	DocumentID string `gorm:"type:varchar(36);index;not null" json:"document_id"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TranscriptionJob) TableName() string { return "transcription_jobs" }
