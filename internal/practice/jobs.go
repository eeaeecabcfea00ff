package practice

import (
	"context"

	"github.com/lawdesk/lawdesk-server/internal/ocr"
)

// transcription job tracking, used by the worker

func (r *Repo) TranscriptionJob(ctx context.Context, id string) (*ocr.TranscriptionJob, error) {
	var j ocr.TranscriptionJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (r *Repo) MarkJobRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&ocr.TranscriptionJob{}).
		Where("id = ? AND status = ?", id, ocr.JobQueued).
		Update("status", ocr.JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&ocr.TranscriptionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": ocr.JobSucceeded, "error": nil}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&ocr.TranscriptionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": ocr.JobFailed, "error": errMsg}).Error
}

// LatestJobForDocument returns the most recent job for a document, if any.
func (r *Repo) LatestJobForDocument(ctx context.Context, documentID string) (*ocr.TranscriptionJob, error) {
	var j ocr.TranscriptionJob
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		First(&j).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}
