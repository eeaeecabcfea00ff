package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs sessions with redis so several server instances can share
// them. Inactivity expiry is native: both keys carry the TTL and every append
// refreshes it, which makes SweepExpired a no-op here.
type RedisStore struct {
	rdb         *redis.Client
	maxMessages int
	ttl         time.Duration
}

func NewRedisStore(rdb *redis.Client, maxMessages int, ttl time.Duration) *RedisStore {
	if maxMessages <= 0 {
		maxMessages = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, maxMessages: maxMessages, ttl: ttl}
}

func metaKey(sessionID string) string { return "chat:session:" + sessionID }
func msgsKey(sessionID string) string { return "chat:session:" + sessionID + ":messages" }

func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, metaKey(sess.SessionID), b, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	b, err := s.rdb.Get(ctx, metaKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("chat: decode session: %w", err)
	}
	return &sess, nil
}

// appendRetries bounds the optimistic-lock retries when concurrent appends
// touch the same session.
const appendRetries = 5

func (s *RedisStore) Append(ctx context.Context, sessionID string, m *Message) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	// the cap check and the push must be atomic across instances: WATCH the
	// list so the EXEC aborts if another instance appended in between.
	key := msgsKey(sessionID)
	txf := func(tx *redis.Tx) error {
		count, err := tx.LLen(ctx, key).Result()
		if err != nil {
			return err
		}
		if count >= int64(s.maxMessages) {
			return ErrSessionLimit
		}

		m.SessionID = sessionID
		m.ID = uint64(count) + 1
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		sess.UpdatedAt = time.Now()
		sb, err := json.Marshal(sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, b)
			pipe.Expire(ctx, key, s.ttl)
			pipe.Set(ctx, metaKey(sessionID), sb, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < appendRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("chat: append contention on session %s", sessionID)
}

func (s *RedisStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	raw, err := s.rdb.LRange(ctx, msgsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("chat: decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, metaKey(sessionID), msgsKey(sessionID)).Err()
}

// SweepExpired is a no-op: redis TTLs already expire inactive sessions.
func (s *RedisStore) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	_ = cutoff
	return 0, nil
}
