package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSessionNotFound covers both never-existed and swept-after-expiry.
	ErrSessionNotFound = errors.New("chat: session not found")
	// ErrSessionLimit is the distinct cap condition; callers translate it to
	// "start a new session" guidance rather than a generic failure.
	ErrSessionLimit = errors.New("chat: session message limit reached")
)

// SessionStore abstracts session persistence. The gorm store is canonical;
// the memory store serves tests and single-instance dev runs, the redis
// store serves multi-instance deployments.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Append adds a message and bumps the session's activity timestamp.
	// Returns ErrSessionLimit once the session holds the maximum number of
	// messages.
	Append(ctx context.Context, sessionID string, m *Message) error
	// Messages returns the session history oldest first.
	Messages(ctx context.Context, sessionID string) ([]Message, error)
	Delete(ctx context.Context, sessionID string) error
	// SweepExpired removes sessions whose last activity is before cutoff.
	SweepExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormStore persists sessions and messages as rows. Appends to one session
// are serialized by a row lock inside the transaction, so concurrent turns
// from multiple tabs cannot blow past the cap.
type GormStore struct {
	db          *gorm.DB
	maxMessages int
}

func NewGormStore(db *gorm.DB, maxMessages int) *GormStore {
	if maxMessages <= 0 {
		maxMessages = 100
	}
	return &GormStore{db: db, maxMessages: maxMessages}
}

func (s *GormStore) Create(ctx context.Context, sess *Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

func (s *GormStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *GormStore) Append(ctx context.Context, sessionID string, m *Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the locking read must be the transaction's first statement: under
		// REPEATABLE READ a plain read here would pin the snapshot before the
		// lock is held, and the count below would miss rows committed by a
		// concurrent append. sqlite has no FOR UPDATE; its single writer
		// serializes transactions anyway.
		q := tx
		if tx.Dialector.Name() == "mysql" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var sess Session
		if err := q.Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		if err := tx.Model(&Session{}).
			Where("session_id = ?", sessionID).
			Update("updated_at", time.Now()).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&Message{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(s.maxMessages) {
			return ErrSessionLimit
		}

		m.SessionID = sessionID
		return tx.Create(m).Error
	})
}

func (s *GormStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *GormStore) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&Session{}).Error
	})
}

func (s *GormStore) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var stale []Session
	if err := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}
	for _, sess := range stale {
		if err := s.Delete(ctx, sess.SessionID); err != nil {
			return 0, err
		}
	}
	return int64(len(stale)), nil
}
