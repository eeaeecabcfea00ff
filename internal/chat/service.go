package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/aicontext"
	"github.com/lawdesk/lawdesk-server/internal/logger"
)

// Service runs the chat flow: resolve the session, persist the user turn,
// assemble a bounded prompt, call the provider, persist the reply.
type Service struct {
	store      SessionStore
	provider   ai.Provider
	windowSize int
	ttl        time.Duration
	aiTimeout  time.Duration
	log        *logger.Logger
}

func NewService(store SessionStore, provider ai.Provider, windowSize int, ttl, aiTimeout time.Duration, log *logger.Logger) *Service {
	if windowSize <= 0 || windowSize > 100 {
		windowSize = 20
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if aiTimeout <= 0 {
		aiTimeout = 60 * time.Second
	}
	return &Service{
		store:      store,
		provider:   provider,
		windowSize: windowSize,
		ttl:        ttl,
		aiTimeout:  aiTimeout,
		log:        log,
	}
}

// GetOrCreate resolves sessionID to a live session. Absent, unknown and
// expired ids all mean "start new": a fresh random UUID is minted.
func (s *Service) GetOrCreate(ctx context.Context, sessionID string) (*Session, bool, error) {
	s.sweep(ctx)

	if sessionID != "" {
		sess, err := s.store.Get(ctx, sessionID)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, false, err
		}
	}

	sess := &Session{SessionID: uuid.NewString()}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// SendMessage appends the user turn, calls the provider with the context and
// a bounded window of recent turns, and appends the reply. The returned
// token count is the chars/4 estimate over the whole session history.
func (s *Service) SendMessage(ctx context.Context, sessionID, content, contextText string) (*Message, string, int, error) {
	sess, _, err := s.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, "", 0, err
	}

	userMsg := &Message{Role: RoleUser, Content: content}
	if err := s.store.Append(ctx, sess.SessionID, userMsg); err != nil {
		return nil, sess.SessionID, 0, err
	}

	history, err := s.store.Messages(ctx, sess.SessionID)
	if err != nil {
		return nil, sess.SessionID, 0, err
	}

	providerMsgs := s.promptWindow(history, content, contextText)

	cctx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	var reply string
	err = ai.Do(cctx, 3, time.Second, func() error {
		var callErr error
		reply, callErr = s.provider.Chat(cctx, providerMsgs)
		return callErr
	})
	if err != nil {
		return nil, sess.SessionID, 0, fmt.Errorf("chat: provider: %w", err)
	}

	assistantMsg := &Message{Role: RoleAssistant, Content: reply}
	if err := s.store.Append(ctx, sess.SessionID, assistantMsg); err != nil {
		return nil, sess.SessionID, 0, err
	}

	return assistantMsg, sess.SessionID, totalTokens(append(history, *assistantMsg)), nil
}

// History returns the session's ordered messages. An unknown or expired id
// yields a fresh empty session so the caller always leaves with a usable id.
func (s *Service) History(ctx context.Context, sessionID string) ([]Message, string, int, error) {
	s.sweep(ctx)

	if sessionID != "" {
		msgs, err := s.store.Messages(ctx, sessionID)
		if err == nil {
			return msgs, sessionID, totalTokens(msgs), nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, "", 0, err
		}
	}

	sess := &Session{SessionID: uuid.NewString()}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, "", 0, err
	}
	return []Message{}, sess.SessionID, 0, nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// promptWindow builds the provider input: the trailing windowSize turns of
// prior history (never the full session, to respect the model's input
// limits) with the new user message last. When a context string is present
// it is folded into the final user turn; the stored history keeps the raw
// message.
func (s *Service) promptWindow(history []Message, content, contextText string) []ai.Message {
	// everything before the user turn we just appended
	prior := history
	if len(prior) > 0 && prior[len(prior)-1].Role == RoleUser && prior[len(prior)-1].Content == content {
		prior = prior[:len(prior)-1]
	}
	if len(prior) > s.windowSize-1 {
		prior = prior[len(prior)-(s.windowSize-1):]
	}

	out := make([]ai.Message, 0, len(prior)+1)
	for _, m := range prior {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}

	final := content
	if contextText != "" {
		final = fmt.Sprintf("Context: %s\n\nQuestion: %s", contextText, content)
	}
	out = append(out, ai.Message{Role: RoleUser, Content: final})
	return out
}

// sweep runs the lazy expiry pass. Opportunistic at the start of relevant
// operations; session volume is assumed small enough that a background timer
// is not worth a goroutine in every deployment, and the redis store expires
// natively anyway.
func (s *Service) sweep(ctx context.Context) {
	n, err := s.store.SweepExpired(ctx, time.Now().Add(-s.ttl))
	if err != nil {
		s.log.Warn("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("expired chat sessions removed", "count", n)
	}
}

func totalTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += aicontext.EstimateTokens(m.Content)
	}
	return total
}
