package repository

import (
	"context"
	"flag"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"seochat/internal/model"
	pgplatform "seochat/internal/platform/postgres"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("seochat"),
		postgres.WithUsername("seochat"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("postgres container unavailable, skipping repository tests: %v", err)
		os.Exit(m.Run())
	}

	code := func() int {
		defer func() {
			if err := container.Terminate(ctx); err != nil {
				log.Printf("failed to terminate container: %v", err)
			}
		}()

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			log.Printf("failed to get connection string: %v", err)
			return 1
		}
		db, err := pgplatform.New(ctx, dsn)
		if err != nil {
			log.Printf("failed to open db: %v", err)
			return 1
		}
		if err := db.AutoMigrate(model.All()...); err != nil {
			log.Printf("failed to migrate: %v", err)
			return 1
		}
		testDB = db
		return m.Run()
	}()
	os.Exit(code)
}

func requireDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres not available")
	}
	t.Cleanup(func() {
		testDB.Exec("TRUNCATE users, sessions, clients, documents, chats RESTART IDENTITY")
	})
	return testDB
}

func newUser(name string) *model.User {
	key := uuid.NewString()[:32]
	return &model.User{
		Username:     name,
		Email:        name + "@x.com",
		PasswordHash: "hash",
		EmbedKey:     &key,
	}
}

func TestUserCreateWithTenant(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	clients := NewClientRepository(db)
	docs := NewDocumentRepository(db)

	user := newUser("bob")
	require.NoError(t, users.CreateWithTenant(ctx, user, "http://bob.com"))
	assert.NotZero(t, user.ID)

	client, err := clients.GetByName(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, *user.EmbedKey, *client.EmbedKey)
	assert.Equal(t, "http://bob.com", client.Website)

	byKey, err := clients.GetByEmbedKey(ctx, *user.EmbedKey)
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, client.ID, byKey.ID)

	latest, err := docs.Latest(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, latest, "placeholder must not be served")

	err = users.CreateWithTenant(ctx, newUser("bob"), "")
	assert.ErrorIs(t, err, ErrDuplicate)

	dupEmail := newUser("bobby")
	dupEmail.Email = "bob@x.com"
	assert.ErrorIs(t, users.CreateWithTenant(ctx, dupEmail, ""), ErrDuplicate)

	stored, err := users.GetByUsername(ctx, "bobby")
	require.NoError(t, err)
	assert.Nil(t, stored, "failed registration must not leave a row")

	byEmail, err := users.GetByLogin(ctx, "BOB@x.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestSetEmbedKeyIfAbsentConverges(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	require.NoError(t, db.Create(&model.User{Username: "legacy", Email: "legacy@x.com", PasswordHash: "h"}).Error)

	var wg sync.WaitGroup
	keys := make([]string, 8)
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := users.SetEmbedKeyIfAbsent(ctx, "legacy", uuid.NewString()[:32])
			assert.NoError(t, err)
			keys[i] = key
		}(i)
	}
	wg.Wait()

	for _, k := range keys {
		assert.Equal(t, keys[0], k)
	}

	missing, err := users.SetEmbedKeyIfAbsent(ctx, "ghost", "k")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestClientUpsertProfile(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	clients := NewClientRepository(db)
	at := time.Now().UTC()

	first, created, err := clients.UpsertProfile(ctx, "Acme", "http://a.com", "one", at)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := clients.UpsertProfile(ctx, "Acme", "http://b.com", "two", at)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "http://b.com", second.Website)
	assert.Equal(t, "two", second.ExtractedText)

	require.NoError(t, clients.SetPrompt(ctx, "Acme", "Be brief.", at))
	require.NoError(t, clients.BindEmbedKey(ctx, "Acme", "k1"))
	got, err := clients.GetByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", got.CustomPrompt)
	assert.Equal(t, "k1", *got.EmbedKey)

	var count int64
	require.NoError(t, db.Model(&model.Client{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	missing, err := clients.GetByName(ctx, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionProfileAndExpiry(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)

	user := newUser("carol")
	require.NoError(t, users.CreateWithTenant(ctx, user, "http://carol.com"))

	now := time.Now().UTC()
	require.NoError(t, sessions.Create(ctx, &model.Session{ID: "live", UserID: user.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	require.NoError(t, sessions.Create(ctx, &model.Session{ID: "old", UserID: user.ID, ExpiresAt: now.Add(-time.Minute), CreatedAt: now}))

	profile, err := sessions.GetProfile(ctx, "live", now)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "carol", profile.Username)
	assert.Equal(t, "carol", profile.CompanyName)
	assert.Equal(t, "http://carol.com", profile.Website)
	assert.NotEmpty(t, profile.ClientID)

	expired, err := sessions.GetProfile(ctx, "old", now)
	require.NoError(t, err)
	assert.Nil(t, expired)

	purged, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	require.NoError(t, sessions.Delete(ctx, "live"))
	require.NoError(t, sessions.Delete(ctx, "live"))
	gone, err := sessions.GetProfile(ctx, "live", now)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDocumentLatestWins(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	docs := NewDocumentRepository(db)
	at := time.Now().UTC().Truncate(time.Second)
	key := "embed-1"

	require.NoError(t, docs.Create(ctx, &model.Document{ClientName: "Acme", FileName: "a.pdf", PDFText: "a", UploadedAt: at}))
	require.NoError(t, docs.Create(ctx, &model.Document{ClientName: "Acme", FileName: "b.pdf", PDFText: "b", EmbedKey: &key, UploadedAt: at}))

	latest, err := docs.Latest(ctx, "Acme")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b.pdf", latest.FileName)

	byKey, err := docs.LatestByEmbedKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, latest.ID, byKey.ID)

	found, err := docs.UpdateLatestText(ctx, "Acme", "edited")
	require.NoError(t, err)
	assert.True(t, found)

	var first model.Document
	require.NoError(t, db.Where("file_name = ?", "a.pdf").First(&first).Error)
	assert.Equal(t, "a", first.PDFText)

	found, err = docs.UpdateLatestText(ctx, "Nobody", "x")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestChatListOrderingAndDuplicates(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	chats := NewChatRepository(db)
	base := time.Now().UTC()

	for i, clientID := range []string{"c1", "c2", "c1"} {
		require.NoError(t, chats.Create(ctx, &model.Chat{
			ID:        uuid.NewString(),
			ClientID:  clientID,
			Messages:  []model.ChatMessage{{Role: "user", Content: "hi"}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := chats.List(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	c1 := "c1"
	scoped, err := chats.List(ctx, &c1, 1)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "c1", scoped[0].ClientID)
	assert.Equal(t, "hi", scoped[0].Messages[0].Content)

	dup := all[0]
	assert.ErrorIs(t, chats.Create(ctx, &dup), ErrDuplicate)
}

func TestBindEmbedKeyPropagatesToDocuments(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	clients := NewClientRepository(db)
	docs := NewDocumentRepository(db)

	require.NoError(t, docs.Create(ctx, &model.Document{ClientName: "old", FileName: "a.pdf", PDFText: "a", UploadedAt: time.Now().UTC()}))
	require.NoError(t, clients.BindEmbedKey(ctx, "old", "late-key"))

	byKey, err := docs.LatestByEmbedKey(ctx, "late-key")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, "a.pdf", byKey.FileName)
}

func TestChatListBreaksTimestampTiesByID(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	chats := NewChatRepository(db)
	at := time.Now().UTC().Truncate(time.Second)

	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, chats.Create(ctx, &model.Chat{
			ID:        id,
			ClientID:  "c1",
			Messages:  []model.ChatMessage{{Role: "user", Content: id}},
			CreatedAt: at,
		}))
	}

	got, err := chats.List(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
}
