package practice

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lawdesk/lawdesk-server/internal/common"
	"github.com/lawdesk/lawdesk-server/internal/logger"
	"github.com/lawdesk/lawdesk-server/internal/models"
	"github.com/lawdesk/lawdesk-server/internal/ocr"
	"github.com/lawdesk/lawdesk-server/internal/storage"
)

var (
	ErrValidation = errors.New("practice: validation failed")
	// ErrClientHasCases blocks client deletion while cases still reference
	// the client. Cases never silently lose their client.
	ErrClientHasCases = errors.New("practice: client still has cases")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// JobPublisher enqueues a transcription job id for the worker.
type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

// Service owns validation and the cross-store orchestration the repo alone
// cannot do: object storage on document create/delete, the client deletion
// policy, transcription job dispatch.
type Service struct {
	repo      *Repo
	objects   storage.ObjectStore
	publisher JobPublisher
	log       *logger.Logger
}

func NewService(repo *Repo, objects storage.ObjectStore, publisher JobPublisher, log *logger.Logger) *Service {
	return &Service{repo: repo, objects: objects, publisher: publisher, log: log}
}

func (s *Service) Repo() *Repo { return s.repo }

// clients

func (s *Service) CreateClient(ctx context.Context, c *models.Client) error {
	if c.Name == "" {
		return invalid("client name is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return s.repo.CreateClient(ctx, c)
}

func (s *Service) UpdateClient(ctx context.Context, c *models.Client) error {
	if c.Name == "" {
		return invalid("client name is required")
	}
	if _, err := s.repo.Client(ctx, c.ID); err != nil {
		return err
	}
	return s.repo.UpdateClient(ctx, c)
}

// DeleteClient enforces the deletion policy: restricted while cases
// reference the client; the client's own documents go with it, object first,
// row second.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	if _, err := s.repo.Client(ctx, id); err != nil {
		return err
	}

	n, err := s.repo.CountCasesByClient(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrClientHasCases
	}

	docs, err := s.repo.DocumentsByOwner(ctx, models.DocumentOwner{Type: models.OwnerClient, ID: id})
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := s.DeleteDocument(ctx, d.ID); err != nil {
			return err
		}
	}

	return s.repo.DeleteClient(ctx, id)
}

// cases

func (s *Service) CreateCase(ctx context.Context, c *models.Case) error {
	if err := validateCase(c); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ClientID != nil {
		if _, err := s.repo.Client(ctx, *c.ClientID); err != nil {
			return err
		}
	}
	return s.repo.CreateCase(ctx, c)
}

func (s *Service) UpdateCase(ctx context.Context, c *models.Case) error {
	if err := validateCase(c); err != nil {
		return err
	}
	if _, err := s.repo.Case(ctx, c.ID); err != nil {
		return err
	}
	// status transitions are intentionally free-form: any status may follow
	// any other
	return s.repo.UpdateCase(ctx, c)
}

func validateCase(c *models.Case) error {
	if c.Title == "" {
		return invalid("case title is required")
	}
	if c.CaseNumber == "" {
		return invalid("case number is required")
	}
	if !c.Status.Valid() {
		return invalid("unknown case status")
	}
	if !c.Priority.Valid() {
		return invalid("unknown case priority")
	}
	return nil
}

// documents

type UploadInput struct {
	Owner       models.DocumentOwner
	FileName    string
	ContentType string
	Data        []byte
	SkipOCR     bool
}

// UploadDocument stores the file, creates the metadata row with a pending
// transcription status, and enqueues the OCR job. When the MIME type cannot
// be transcribed (or SkipOCR is set) the document is stored with status
// skipped and no job is created.
func (s *Service) UploadDocument(ctx context.Context, in UploadInput) (*models.CaseDocument, error) {
	if !in.Owner.Valid() {
		return nil, invalid("document must belong to exactly one case or client")
	}
	if len(in.Data) == 0 {
		return nil, invalid("empty file")
	}
	switch in.Owner.Type {
	case models.OwnerCase:
		if _, err := s.repo.Case(ctx, in.Owner.ID); err != nil {
			return nil, err
		}
	case models.OwnerClient:
		if _, err := s.repo.Client(ctx, in.Owner.ID); err != nil {
			return nil, err
		}
	}

	docID := uuid.NewString()
	clean := filepath.Base(in.FileName)
	key := fmt.Sprintf("%s/%s/%s", in.Owner.Type, in.Owner.ID, docID+"-"+clean)

	if err := s.objects.Upload(ctx, key, in.Data, in.ContentType); err != nil {
		return nil, err
	}

	status := models.TranscriptionPending
	if in.SkipOCR || !ocr.SupportedMIME(in.ContentType) {
		status = models.TranscriptionSkipped
	}

	doc := &models.CaseDocument{
		ID:                  docID,
		OwnerType:           in.Owner.Type,
		OwnerID:             in.Owner.ID,
		FileName:            clean,
		OriginalName:        in.FileName,
		FilePath:            key,
		FileSize:            int64(len(in.Data)),
		FileType:            in.ContentType,
		TranscriptionStatus: status,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		// metadata failed; don't leave the object orphaned
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.log.Warn("orphaned object after failed document insert", "key", key, "error", delErr)
		}
		return nil, err
	}

	if status == models.TranscriptionPending {
		if err := s.enqueueTranscription(ctx, doc.ID); err != nil {
			s.log.Error("transcription enqueue failed", "document_id", doc.ID, "error", err)
			_ = s.repo.UpdateDocumentStatus(ctx, doc.ID, models.TranscriptionFailed)
		}
	}

	return doc, nil
}

func (s *Service) enqueueTranscription(ctx context.Context, documentID string) error {
	if s.publisher == nil {
		return errors.New("practice: no job publisher configured")
	}
	jobID, err := common.NewULID()
	if err != nil {
		return err
	}
	job := &ocr.TranscriptionJob{ID: jobID, DocumentID: documentID, Status: ocr.JobQueued}
	if err := s.repo.db.WithContext(ctx).Create(job).Error; err != nil {
		return err
	}
	return s.publisher.PublishJob(ctx, jobID)
}

// DeleteDocument removes the storage object and then the metadata row.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.repo.Document(ctx, id)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, doc.FilePath); err != nil {
		return err
	}
	return s.repo.DeleteDocument(ctx, id)
}
