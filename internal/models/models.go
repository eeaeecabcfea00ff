package models

import "time"

type CaseStatus string

const (
	CaseActive    CaseStatus = "active"
	CasePaused    CaseStatus = "paused"
	CaseCompleted CaseStatus = "completed"
	CaseArchived  CaseStatus = "archived"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseActive, CasePaused, CaseCompleted, CaseArchived:
		return true
	}
	return false
}

type CasePriority string

const (
	PriorityLow    CasePriority = "low"
	PriorityMedium CasePriority = "medium"
	PriorityHigh   CasePriority = "high"
	PriorityUrgent CasePriority = "urgent"
)

func (p CasePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type TranscriptionStatus string

const (
	TranscriptionPending    TranscriptionStatus = "pending"
	TranscriptionProcessing TranscriptionStatus = "processing"
	TranscriptionCompleted  TranscriptionStatus = "completed"
	TranscriptionFailed     TranscriptionStatus = "failed"
	TranscriptionSkipped    TranscriptionStatus = "skipped"
)

// OwnerType discriminates which entity a document belongs to.
// A document has exactly one owner, never both.
type OwnerType string

const (
	OwnerCase   OwnerType = "case"
	OwnerClient OwnerType = "client"
)

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"type:varchar(128)" json:"name"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Client struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Email          string    `gorm:"type:varchar(255)" json:"email"`
	Phone          string    `gorm:"type:varchar(64)" json:"phone"`
	Address        string    `gorm:"type:varchar(512)" json:"address"`
	AdditionalInfo string    `gorm:"type:text" json:"additional_info"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

type Case struct {
	ID            string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	CaseNumber    string       `gorm:"type:varchar(64);index;not null" json:"case_number"`
	Title         string       `gorm:"type:varchar(255);not null" json:"title"`
	Description   string       `gorm:"type:text" json:"description"`
	Status        CaseStatus   `gorm:"type:varchar(16);index;not null" json:"status"`
	Priority      CasePriority `gorm:"type:varchar(16);not null" json:"priority"`
	ClientID      *string      `gorm:"type:varchar(36);index" json:"client_id"`
	Client        *Client      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	CaseType      string       `gorm:"type:varchar(64)" json:"case_type"`
	CourtInstance string       `gorm:"type:varchar(255)" json:"court_instance"`
	OpposingParty string       `gorm:"type:varchar(255)" json:"opposing_party"`
	Tags          []string     `gorm:"serializer:json;type:text" json:"tags"`
	InternalNotes string       `gorm:"type:text" json:"internal_notes"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (Case) TableName() string { return "cases" }

type CaseDocument struct {
	ID                  string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerType           OwnerType           `gorm:"type:varchar(16);index:idx_doc_owner,priority:1;not null" json:"owner_type"`
	OwnerID             string              `gorm:"type:varchar(36);index:idx_doc_owner,priority:2;not null" json:"owner_id"`
	FileName            string              `gorm:"type:varchar(255);not null" json:"file_name"`
	OriginalName        string              `gorm:"type:varchar(255)" json:"original_name"`
	FilePath            string              `gorm:"type:varchar(512);not null" json:"file_path"`
	FileSize            int64               `gorm:"not null" json:"file_size"`
	FileType            string              `gorm:"type:varchar(128)" json:"file_type"`
	DocumentType        string              `gorm:"type:varchar(128)" json:"document_type"`
	Transcription       *string             `gorm:"type:text" json:"transcription"`
	TranscriptionStatus TranscriptionStatus `gorm:"type:varchar(16);index;not null" json:"transcription_status"`
	Confidence          *float64            `json:"confidence"`
	ExtractedDates      []string            `gorm:"serializer:json;type:text" json:"extracted_dates"`
	ExtractedNumbers    []string            `gorm:"serializer:json;type:text" json:"extracted_numbers"`
	UploadedAt          time.Time           `gorm:"autoCreateTime" json:"uploaded_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func (CaseDocument) TableName() string { return "case_documents" }

// DocumentOwner is the tagged owner of a document.
type DocumentOwner struct {
	Type OwnerType
	ID   string
}

func (o DocumentOwner) Valid() bool {
	if o.ID == "" {
		return false
	}
	return o.Type == OwnerCase || o.Type == OwnerClient
}
