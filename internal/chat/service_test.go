package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/logger"
)

type recordingProvider struct {
	last  []ai.Message
	reply string
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.last = append([]ai.Message(nil), messages...)
	if p.reply == "" {
		return "ok", nil
	}
	return p.reply, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Session{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, store SessionStore, prov ai.Provider) *Service {
	t.Helper()
	return NewService(store, prov, 20, 24*time.Hour, 5*time.Second, logger.NewNop())
}

func TestSendMessage_WritesUserAndAssistant(t *testing.T) {
	store := NewGormStore(openTestDB(t), 100)
	prov := &recordingProvider{}
	svc := newTestService(t, store, prov)

	msg, sid, tokens, err := svc.SendMessage(context.Background(), "", "Hello", "")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if sid == "" {
		t.Fatalf("expected a session id")
	}
	if msg.Role != RoleAssistant || msg.Content != "ok" {
		t.Fatalf("unexpected assistant msg: role=%q content=%q", msg.Role, msg.Content)
	}
	if tokens <= 0 {
		t.Fatalf("expected a positive token estimate, got %d", tokens)
	}

	msgs, err := store.Messages(context.Background(), sid)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "Hello" {
		t.Fatalf("unexpected user msg: role=%q content=%q", msgs[0].Role, msgs[0].Content)
	}
}

func TestSendMessage_NewSessionEachTimeWithoutID(t *testing.T) {
	store := NewMemoryStore(100)
	svc := newTestService(t, store, &recordingProvider{})

	_, sid1, _, err := svc.SendMessage(context.Background(), "", "one", "")
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	_, sid2, _, err := svc.SendMessage(context.Background(), "", "two", "")
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if sid1 == sid2 {
		t.Fatalf("omitting the session id twice must mint two distinct sessions")
	}
}

func TestSendMessage_ContextGoesUpstreamNotIntoHistory(t *testing.T) {
	store := NewMemoryStore(100)
	prov := &recordingProvider{}
	svc := newTestService(t, store, prov)

	_, sid, _, err := svc.SendMessage(context.Background(), "", "What next?", "Case A40-1/2024 is active")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	last := prov.last[len(prov.last)-1]
	if !strings.Contains(last.Content, "Case A40-1/2024 is active") {
		t.Fatalf("context missing from provider prompt: %q", last.Content)
	}
	if !strings.Contains(last.Content, "What next?") {
		t.Fatalf("user question missing from provider prompt: %q", last.Content)
	}

	msgs, _ := store.Messages(context.Background(), sid)
	if msgs[0].Content != "What next?" {
		t.Fatalf("stored user message must stay raw, got %q", msgs[0].Content)
	}
}

func TestSendMessage_UsesBoundedWindow(t *testing.T) {
	store := NewMemoryStore(100)
	prov := &recordingProvider{}
	window := 3
	svc := NewService(store, prov, window, 24*time.Hour, 5*time.Second, logger.NewNop())

	sess := &Session{SessionID: "fixed-session"}
	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for i := 0; i < 6; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := store.Append(context.Background(), sess.SessionID, &Message{Role: role, Content: "seed"}); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	if _, _, _, err := svc.SendMessage(context.Background(), sess.SessionID, "new", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(prov.last) != window {
		t.Fatalf("expected provider to receive %d messages, got %d", window, len(prov.last))
	}
	if prov.last[len(prov.last)-1].Content != "new" {
		t.Fatalf("expected the new user message last, got %q", prov.last[len(prov.last)-1].Content)
	}
}

func TestAppend_CapYieldsDistinctLimitError(t *testing.T) {
	for name, store := range map[string]SessionStore{
		"memory": NewMemoryStore(5),
		"gorm":   NewGormStore(openTestDB(t), 5),
	} {
		t.Run(name, func(t *testing.T) {
			sess := &Session{SessionID: "cap-" + name}
			if err := store.Create(context.Background(), sess); err != nil {
				t.Fatalf("create: %v", err)
			}
			for i := 0; i < 5; i++ {
				if err := store.Append(context.Background(), sess.SessionID, &Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)}); err != nil {
					t.Fatalf("append %d: %v", i, err)
				}
			}
			err := store.Append(context.Background(), sess.SessionID, &Message{Role: RoleUser, Content: "over"})
			if !errors.Is(err, ErrSessionLimit) {
				t.Fatalf("expected ErrSessionLimit on call MAX+1, got %v", err)
			}
		})
	}
}

func TestAppend_CapEnforcedAcrossConnections(t *testing.T) {
	// two stores over separate connections to the same database: the cap
	// check must see rows committed through the other connection, not a
	// stale snapshot from its own transaction
	a := NewGormStore(openTestDB(t), 3)
	b := NewGormStore(openTestDB(t), 3)

	sess := &Session{SessionID: "shared-cap"}
	if err := a.Create(context.Background(), sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.Append(context.Background(), sess.SessionID, &Message{Role: RoleUser, Content: "m0"}); err != nil {
		t.Fatalf("append via a: %v", err)
	}
	if err := b.Append(context.Background(), sess.SessionID, &Message{Role: RoleUser, Content: "m1"}); err != nil {
		t.Fatalf("append via b: %v", err)
	}
	if err := a.Append(context.Background(), sess.SessionID, &Message{Role: RoleAssistant, Content: "m2"}); err != nil {
		t.Fatalf("append via a: %v", err)
	}

	if err := b.Append(context.Background(), sess.SessionID, &Message{Role: RoleUser, Content: "over"}); err == nil || !errors.Is(err, ErrSessionLimit) {
		t.Fatalf("expected ErrSessionLimit across connections, got %v", err)
	}
	msgs, err := a.Messages(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected exactly 3 messages, got %d", len(msgs))
	}
}

// wrappingStore decorates errors the way a remote backend would, so the
// sentinel only surfaces through errors.Is.
type wrappingStore struct {
	SessionStore
}

func (w *wrappingStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := w.SessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session backend: %w", err)
	}
	return sess, nil
}

func (w *wrappingStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	msgs, err := w.SessionStore.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session backend: %w", err)
	}
	return msgs, nil
}

func TestSendMessage_WrappedNotFoundMintsFreshSession(t *testing.T) {
	store := &wrappingStore{SessionStore: NewMemoryStore(100)}
	svc := newTestService(t, store, &recordingProvider{})

	_, sid, _, err := svc.SendMessage(context.Background(), "never-created", "hi", "")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if sid == "" || sid == "never-created" {
		t.Fatalf("expected a freshly minted session id, got %q", sid)
	}

	if _, _, _, err := svc.History(context.Background(), "also-unknown"); err != nil {
		t.Fatalf("history with wrapped not-found: %v", err)
	}
}

func TestHistory_ExpiredSessionGetsFreshID(t *testing.T) {
	store := NewMemoryStore(100)
	svc := newTestService(t, store, &recordingProvider{})

	sess := &Session{SessionID: "stale", CreatedAt: time.Now().Add(-48 * time.Hour), UpdatedAt: time.Now().Add(-48 * time.Hour)}
	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	msgs, sid, tokens, err := svc.History(context.Background(), "stale")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if sid == "stale" {
		t.Fatalf("expired session must not be reused")
	}
	if len(msgs) != 0 || tokens != 0 {
		t.Fatalf("fresh session must be empty, got %d messages", len(msgs))
	}

	if _, err := store.Get(context.Background(), "stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session should be swept, got %v", err)
	}
}

func TestClear_RemovesHistory(t *testing.T) {
	store := NewGormStore(openTestDB(t), 100)
	svc := newTestService(t, store, &recordingProvider{})

	_, sid, _, err := svc.SendMessage(context.Background(), "", "hello", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := svc.Clear(context.Background(), sid); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(context.Background(), sid); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session gone after clear, got %v", err)
	}
}
