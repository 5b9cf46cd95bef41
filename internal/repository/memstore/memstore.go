// Package memstore is a process-local implementation of the stores with the
// same uniqueness and upsert guarantees as the SQL schema. Every operation
// runs under a single mutex, which stands in for the database's unique
// indexes and row locks.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"seochat/internal/model"
	"seochat/internal/repository"
)

type Store struct {
	mu sync.Mutex

	nextUserID uint
	nextDocID  uint
	users      map[uint]*model.User
	sessions   map[string]*model.Session
	clients    map[string]*model.Client // by name
	documents  []*model.Document
	chats      []*model.Chat
}

func New() *Store {
	return &Store{
		users:    make(map[uint]*model.User),
		sessions: make(map[string]*model.Session),
		clients:  make(map[string]*model.Client),
	}
}

func (s *Store) Users() *UserStore         { return &UserStore{s: s} }
func (s *Store) Sessions() *SessionStore   { return &SessionStore{s: s} }
func (s *Store) Clients() *ClientStore     { return &ClientStore{s: s} }
func (s *Store) Documents() *DocumentStore { return &DocumentStore{s: s} }
func (s *Store) Chats() *ChatStore         { return &ChatStore{s: s} }

func duplicate(op string) error {
	return fmt.Errorf("%s failed: %w", op, repository.ErrDuplicate)
}

func strPtr(v string) *string { return &v }

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	return strPtr(*p)
}

// caller holds s.mu
func (s *Store) embedKeyTaken(key string, exceptUser uint) bool {
	for id, u := range s.users {
		if id != exceptUser && u.EmbedKey != nil && *u.EmbedKey == key {
			return true
		}
	}
	return false
}

// caller holds s.mu
func (s *Store) clientEmbedKeyTaken(key, exceptName string) bool {
	for name, c := range s.clients {
		if name != exceptName && c.EmbedKey != nil && *c.EmbedKey == key {
			return true
		}
	}
	return false
}

type UserStore struct{ s *Store }

func (u *UserStore) CreateWithTenant(_ context.Context, user *model.User, website string) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return duplicate("create user")
		}
	}
	if user.EmbedKey != nil {
		if s.embedKeyTaken(*user.EmbedKey, 0) || s.clientEmbedKeyTaken(*user.EmbedKey, user.Username) {
			return duplicate("create user")
		}
	}

	now := time.Now().UTC()
	s.nextUserID++
	stored := *user
	stored.ID = s.nextUserID
	stored.EmbedKey = copyStr(user.EmbedKey)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.users[stored.ID] = &stored
	user.ID = stored.ID
	user.CreatedAt = now
	user.UpdatedAt = now

	if c, ok := s.clients[user.Username]; ok {
		c.EmbedKey = copyStr(user.EmbedKey)
		if website != "" {
			c.Website = website
		}
		c.UpdatedAt = now
	} else {
		s.clients[user.Username] = &model.Client{
			ID:        uuid.NewString(),
			Name:      user.Username,
			Website:   website,
			EmbedKey:  copyStr(user.EmbedKey),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	associated := false
	for _, d := range s.documents {
		if d.ClientName == user.Username {
			d.EmbedKey = copyStr(user.EmbedKey)
			associated = true
		}
	}
	if !associated {
		s.nextDocID++
		s.documents = append(s.documents, &model.Document{
			ID:          s.nextDocID,
			ClientName:  user.Username,
			EmbedKey:    copyStr(user.EmbedKey),
			Placeholder: true,
			UploadedAt:  now,
		})
	}
	return nil
}

func (u *UserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == username {
			cp := *existing
			cp.EmbedKey = copyStr(existing.EmbedKey)
			return &cp, nil
		}
	}
	return nil, nil
}

func (u *UserStore) GetByLogin(_ context.Context, login string) (*model.User, error) {
	s := u.s
	email := strings.ToLower(login)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == login || existing.Email == email {
			cp := *existing
			cp.EmbedKey = copyStr(existing.EmbedKey)
			return &cp, nil
		}
	}
	return nil, nil
}

func (u *UserStore) SetEmbedKeyIfAbsent(_ context.Context, username, key string) (string, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if existing.Username != username {
			continue
		}
		if existing.EmbedKey != nil {
			return *existing.EmbedKey, nil
		}
		if s.embedKeyTaken(key, id) {
			return "", duplicate("set embed key")
		}
		existing.EmbedKey = strPtr(key)
		existing.UpdatedAt = time.Now().UTC()
		return key, nil
	}
	return "", nil
}

type SessionStore struct{ s *Store }

func (ss *SessionStore) Create(_ context.Context, session *model.Session) error {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return duplicate("create session")
	}
	if _, ok := s.users[session.UserID]; !ok {
		return errors.New("create session failed: unknown user")
	}
	cp := *session
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.sessions[cp.ID] = &cp
	return nil
}

func (ss *SessionStore) GetProfile(_ context.Context, sessionID string, now time.Time) (*model.UserProfile, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || !session.Active(now) {
		return nil, nil
	}
	user, ok := s.users[session.UserID]
	if !ok {
		return nil, nil
	}
	profile := &model.UserProfile{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		CompanyName: user.Username,
	}
	if c, ok := s.clients[user.Username]; ok {
		profile.CompanyName = c.Name
		profile.Website = c.Website
		profile.ClientID = c.ID
	}
	return profile, nil
}

func (ss *SessionStore) Delete(_ context.Context, sessionID string) error {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (ss *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, session := range s.sessions {
		if !session.Active(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

type ClientStore struct{ s *Store }

func (cs *ClientStore) UpsertProfile(_ context.Context, name, website, text string, at time.Time) (*model.Client, bool, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := at
	if c, ok := s.clients[name]; ok {
		c.Website = website
		c.ExtractedText = text
		c.ExtractedTextAt = &ts
		c.UpdatedAt = at
		cp := *c
		return &cp, false, nil
	}
	c := &model.Client{
		ID:              uuid.NewString(),
		Name:            name,
		Website:         website,
		ExtractedText:   text,
		ExtractedTextAt: &ts,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	s.clients[name] = c
	cp := *c
	return &cp, true, nil
}

func (cs *ClientStore) SetPrompt(_ context.Context, name, prompt string, at time.Time) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[name]; ok {
		ts := at
		c.CustomPrompt = prompt
		c.CustomPromptAt = &ts
		c.UpdatedAt = at
	}
	return nil
}

func (cs *ClientStore) SetExtractedText(_ context.Context, name, text string, at time.Time) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[name]; ok {
		ts := at
		c.ExtractedText = text
		c.ExtractedTextAt = &ts
		c.UpdatedAt = at
	}
	return nil
}

func (cs *ClientStore) GetByName(_ context.Context, name string) (*model.Client, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[name]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.EmbedKey = copyStr(c.EmbedKey)
	return &cp, nil
}

func (cs *ClientStore) GetByEmbedKey(_ context.Context, embedKey string) (*model.Client, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.EmbedKey != nil && *c.EmbedKey == embedKey {
			cp := *c
			cp.EmbedKey = copyStr(c.EmbedKey)
			return &cp, nil
		}
	}
	return nil, nil
}

func (cs *ClientStore) BindEmbedKey(_ context.Context, name, embedKey string) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clientEmbedKeyTaken(embedKey, name) {
		return duplicate("bind client embed key")
	}
	for _, d := range s.documents {
		if d.ClientName == name {
			d.EmbedKey = strPtr(embedKey)
		}
	}
	now := time.Now().UTC()
	if c, ok := s.clients[name]; ok {
		c.EmbedKey = strPtr(embedKey)
		c.UpdatedAt = now
		return nil
	}
	s.clients[name] = &model.Client{
		ID:        uuid.NewString(),
		Name:      name,
		EmbedKey:  strPtr(embedKey),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Count reports the number of client rows; tests use it to check upserts.
func (cs *ClientStore) Count() int {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	return len(cs.s.clients)
}

type DocumentStore struct{ s *Store }

func (ds *DocumentStore) Create(_ context.Context, doc *model.Document) error {
	s := ds.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDocID++
	doc.ID = s.nextDocID
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	cp := *doc
	cp.EmbedKey = copyStr(doc.EmbedKey)
	cp.FileData = append([]byte(nil), doc.FileData...)
	s.documents = append(s.documents, &cp)
	return nil
}

// caller holds s.mu
func (s *Store) latestDocument(match func(*model.Document) bool) *model.Document {
	candidates := make([]*model.Document, 0)
	for _, d := range s.documents {
		if !d.Placeholder && match(d) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].UploadedAt.Equal(candidates[j].UploadedAt) {
			return candidates[i].UploadedAt.After(candidates[j].UploadedAt)
		}
		return candidates[i].ID > candidates[j].ID
	})
	return candidates[0]
}

func (ds *DocumentStore) Latest(_ context.Context, clientName string) (*model.Document, error) {
	s := ds.s
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.latestDocument(func(d *model.Document) bool { return d.ClientName == clientName })
	if d == nil {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (ds *DocumentStore) LatestByEmbedKey(_ context.Context, embedKey string) (*model.Document, error) {
	s := ds.s
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.latestDocument(func(d *model.Document) bool {
		return d.EmbedKey != nil && *d.EmbedKey == embedKey
	})
	if d == nil {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (ds *DocumentStore) UpdateLatestText(_ context.Context, clientName, text string) (bool, error) {
	s := ds.s
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.latestDocument(func(d *model.Document) bool { return d.ClientName == clientName })
	if d == nil {
		return false, nil
	}
	d.PDFText = text
	return true, nil
}

// Count reports all document rows for a client, placeholders included.
func (ds *DocumentStore) Count(clientName string) int {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	n := 0
	for _, d := range ds.s.documents {
		if d.ClientName == clientName {
			n++
		}
	}
	return n
}

type ChatStore struct{ s *Store }

func (cs *ChatStore) Create(_ context.Context, chat *model.Chat) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	for _, c := range s.chats {
		if c.ID == chat.ID {
			return duplicate("create chat")
		}
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}
	cp := *chat
	cp.Messages = append(cp.Messages[:0:0], chat.Messages...)
	s.chats = append(s.chats, &cp)
	return nil
}

func (cs *ChatStore) List(_ context.Context, clientID *string, limit int) ([]model.Chat, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		if clientID != nil && c.ClientID != *clientID {
			continue
		}
		out = append(out, *c)
	}
	// same order as the SQL store: created_at DESC, id DESC
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
