package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"seochat/internal/ai"
	"seochat/internal/model"
	"seochat/internal/repository/memstore"
)

type testEnv struct {
	store     *memstore.Store
	scraper   *fakeScraper
	pdf       *fakePDF
	llm       *fakeLLM
	publisher *fakePublisher

	identity  *IdentityService
	sessions  *SessionService
	tenants   *TenantService
	documents *DocumentService
	chats     *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	env := &testEnv{
		store:     store,
		scraper:   &fakeScraper{text: "scraped text"},
		pdf:       &fakePDF{text: "pdf text"},
		llm:       &fakeLLM{reply: "hi, how can I help?"},
		publisher: &fakePublisher{},
	}
	env.tenants = NewTenantService(store.Clients(), env.scraper, logger)
	env.identity = NewIdentityService(store.Users(), env.tenants, "https://cdn.example/widget.js", logger).
		WithBcryptCost(bcrypt.MinCost)
	env.sessions = NewSessionService(store.Sessions(), env.identity, nil, 7*24*time.Hour, logger)
	env.documents = NewDocumentService(store.Documents(), store.Clients(), env.pdf, nil, "documents/", logger)
	env.chats = NewChatService(store.Chats(), store.Clients(), store.Documents(), env.llm, env.publisher, logger)
	return env
}

func (e *testEnv) register(t *testing.T, username, password, email string) *RegisterResult {
	t.Helper()
	result, err := e.identity.Register(context.Background(), RegisterInput{
		Username: username,
		Password: password,
		Email:    email,
	})
	require.NoError(t, err)
	return result
}

type fakeScraper struct {
	text string
	err  error
	urls []string
}

func (f *fakeScraper) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.text, f.err
}

type fakePDF struct {
	text string
	err  error
}

func (f *fakePDF) Extract([]byte) (string, error) { return f.text, f.err }

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	got   []ai.ChatMessage
}

func (f *fakeLLM) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = messages
	return f.reply, f.err
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []model.Chat
}

func (f *fakePublisher) Publish(_ context.Context, chat model.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, chat)
	return nil
}

type fakeBlobs struct {
	objects map[string][]byte
}

func (f *fakeBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

type fakeThrottle struct {
	allowed  bool
	allowErr error
	fails    []string
	resets   []string
}

func (f *fakeThrottle) Allow(context.Context, string) (bool, error) { return f.allowed, f.allowErr }

func (f *fakeThrottle) Fail(_ context.Context, login string) error {
	f.fails = append(f.fails, login)
	return nil
}

func (f *fakeThrottle) Reset(_ context.Context, login string) error {
	f.resets = append(f.resets, login)
	return nil
}

// fixedClock returns a clock that can be moved forward by the test.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

var pdfBytes = []byte("%PDF-1.4\n%fake\n")
