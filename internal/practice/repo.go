package practice

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lawdesk/lawdesk-server/internal/models"
)

var ErrNotFound = errors.New("practice: not found")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// clients

func (r *Repo) CreateClient(ctx context.Context, c *models.Client) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) Client(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *Repo) ListClients(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *Repo) UpdateClient(ctx context.Context, c *models.Client) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *Repo) DeleteClient(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) CountCasesByClient(ctx context.Context, clientID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Case{}).Where("client_id = ?", clientID).Count(&n).Error
	return n, err
}

// cases

func (r *Repo) CreateCase(ctx context.Context, c *models.Case) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) Case(ctx context.Context, id string) (*models.Case, error) {
	var c models.Case
	if err := r.db.WithContext(ctx).Preload("Client").First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *Repo) ListCases(ctx context.Context) ([]models.Case, error) {
	var out []models.Case
	err := r.db.WithContext(ctx).Preload("Client").Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *Repo) CasesByClient(ctx context.Context, clientID string) ([]models.Case, error) {
	var out []models.Case
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repo) UpdateCase(ctx context.Context, c *models.Case) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *Repo) DeleteCase(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Case{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// documents

func (r *Repo) CreateDocument(ctx context.Context, d *models.CaseDocument) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *Repo) Document(ctx context.Context, id string) (*models.CaseDocument, error) {
	var d models.CaseDocument
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *Repo) DocumentsByOwner(ctx context.Context, owner models.DocumentOwner) ([]models.CaseDocument, error) {
	var out []models.CaseDocument
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Order("uploaded_at DESC").
		Find(&out).Error
	return out, err
}

// CompletedDocuments returns completed-transcription documents for the owner,
// most recent first. This is the slice the context builder reads.
func (r *Repo) CompletedDocuments(ctx context.Context, owner models.DocumentOwner) ([]models.CaseDocument, error) {
	var out []models.CaseDocument
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND transcription_status = ?",
			owner.Type, owner.ID, models.TranscriptionCompleted).
		Order("uploaded_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repo) UpdateDocumentStatus(ctx context.Context, id string, status models.TranscriptionStatus) error {
	return r.db.WithContext(ctx).Model(&models.CaseDocument{}).
		Where("id = ?", id).
		Update("transcription_status", status).Error
}

// SaveTranscription records a finished OCR run on a document.
func (r *Repo) SaveTranscription(ctx context.Context, id, text, documentType string, confidence float64, dates, numbers []string) error {
	doc, err := r.Document(ctx, id)
	if err != nil {
		return err
	}
	doc.Transcription = &text
	if documentType != "" {
		doc.DocumentType = documentType
	}
	doc.Confidence = &confidence
	doc.ExtractedDates = dates
	doc.ExtractedNumbers = numbers
	doc.TranscriptionStatus = models.TranscriptionCompleted
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *Repo) DeleteDocument(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.CaseDocument{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// users

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
