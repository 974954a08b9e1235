package repository

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"zbchat/internal/auth"
	"zbchat/internal/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// === USERS ===

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(openTestDB(t), testLogger())

	id, err := repo.Create("alice", "hash")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	user, err := repo.Get("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, id, user.ID)
	require.False(t, user.Online)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo := NewUserRepository(openTestDB(t), testLogger())

	_, err := repo.Create("alice", "hash")
	require.NoError(t, err)

	_, err = repo.Create("alice", "other-hash")
	require.ErrorIs(t, err, domain.ErrUserExists)
}

func TestUserRepository_VerifyCredentials(t *testing.T) {
	repo := NewUserRepository(openTestDB(t), testLogger())

	hash, err := auth.HashPassword("secret-pass")
	require.NoError(t, err)
	_, err = repo.Create("alice", hash)
	require.NoError(t, err)

	user, err := repo.VerifyCredentials("alice", "secret-pass")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	_, err = repo.VerifyCredentials("alice", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// Unknown usernames are indistinguishable from wrong passwords.
	_, err = repo.VerifyCredentials("nobody", "secret-pass")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUserRepository_SetOnline(t *testing.T) {
	repo := NewUserRepository(openTestDB(t), testLogger())
	_, err := repo.Create("alice", "hash")
	require.NoError(t, err)

	require.NoError(t, repo.SetOnline("alice", true))
	user, err := repo.Get("alice")
	require.NoError(t, err)
	require.True(t, user.Online)
	require.False(t, user.LastLogin.IsZero())

	require.NoError(t, repo.SetOnline("alice", false))
	user, err = repo.Get("alice")
	require.NoError(t, err)
	require.False(t, user.Online)
}

// === MESSAGES ===

func TestMessageRepository_StoreAndHistoryOrder(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t), testLogger())

	base := time.Now().UTC()
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Store(Record{
			Username: "alice",
			Type:     domain.MessageTypePlain,
			Content:  content,
			At:       base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := repo.History(HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "first", records[0].Content)
	require.Equal(t, "third", records[2].Content)
}

func TestMessageRepository_HistoryLimitKeepsNewest(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t), testLogger())

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Store(Record{
			Username: "alice",
			Type:     domain.MessageTypePlain,
			Content:  string(rune('a' + i)),
			At:       base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := repo.History(HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	// The newest two, oldest first.
	require.Equal(t, "d", records[0].Content)
	require.Equal(t, "e", records[1].Content)
}

func TestMessageRepository_HistoryFilters(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t), testLogger())

	base := time.Now().UTC()
	entries := []struct {
		username string
		content  string
	}{
		{"alice", "天气不错"},
		{"bob", "吃了吗"},
		{"alice", "去看电影吧"},
	}
	for i, e := range entries {
		require.NoError(t, repo.Store(Record{
			Username: e.username,
			Type:     domain.MessageTypePlain,
			Content:  e.content,
			At:       base.Add(time.Duration(i) * time.Second),
		}))
	}

	byUser, err := repo.History(HistoryQuery{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	bySearch, err := repo.History(HistoryQuery{Search: "电影"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	require.Equal(t, "去看电影吧", bySearch[0].Content)

	both, err := repo.History(HistoryQuery{Username: "bob", Search: "电影"})
	require.NoError(t, err)
	require.Empty(t, both)
}

func TestMessageRepository_HistoryOffsetPaging(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t), testLogger())

	base := time.Now().UTC()
	for i := 0; i < 6; i++ {
		require.NoError(t, repo.Store(Record{
			Username: "alice",
			Type:     domain.MessageTypePlain,
			Content:  string(rune('a' + i)),
			At:       base.Add(time.Duration(i) * time.Second),
		}))
	}

	// Page 1 of size 2, counting back from the newest.
	page, err := repo.History(HistoryQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "c", page[0].Content)
	require.Equal(t, "d", page[1].Content)
}

func TestMessageRepository_ExtraRoundTrip(t *testing.T) {
	repo := NewMessageRepository(openTestDB(t), testLogger())

	extra, err := json.Marshal(map[string]any{"iframe_src": "https://jx.m3u8.tv/jiexi/?url=x"})
	require.NoError(t, err)

	require.NoError(t, repo.Store(Record{
		Username: "alice",
		Type:     domain.MessageTypeMovie,
		Content:  "@电影 x",
		Extra:    extra,
	}))

	records, err := repo.History(HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(records[0].Extra, &decoded))
	require.Equal(t, "https://jx.m3u8.tv/jiexi/?url=x", decoded["iframe_src"])
}

// === SESSIONS ===

func TestSessionRepository_OpenAndEnd(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 0, testLogger())

	sessionID := uuid.New()
	userID := uuid.New()
	require.NoError(t, repo.Open(sessionID, userID))

	session, err := repo.Get(sessionID)
	require.NoError(t, err)
	require.Equal(t, userID, session.UserID)
	require.Nil(t, session.EndTime)

	require.NoError(t, repo.End(sessionID))
	session, err = repo.Get(sessionID)
	require.NoError(t, err)
	require.NotNil(t, session.EndTime)
	require.False(t, session.EndTime.Before(session.StartTime))
}

func TestSessionRepository_EndUnknownIsNoop(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 0, testLogger())
	require.NoError(t, repo.End(uuid.New()))
}

func TestSessionRepository_RecordsExpireAfterTTL(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), time.Second, testLogger())

	sessionID := uuid.New()
	require.NoError(t, repo.Open(sessionID, uuid.New()))

	_, err := repo.Get(sessionID)
	require.NoError(t, err)

	// Badger expiry has one-second granularity.
	time.Sleep(1100 * time.Millisecond)

	_, err = repo.Get(sessionID)
	require.ErrorIs(t, err, badger.ErrKeyNotFound)
}
