package repository

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"zbchat/internal/domain"
)

const sessionKeyPrefix = "session:"

// SessionRepository records the lifetime of each authenticated connection.
// Records carry a TTL so old sessions age out of the store on their own;
// a zero TTL keeps them forever.
type SessionRepository struct {
	db  *badger.DB
	ttl time.Duration
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, ttl time.Duration, log *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, ttl: ttl, log: log}
}

func sessionKey(id uuid.UUID) []byte {
	return []byte(sessionKeyPrefix + id.String())
}

func (r *SessionRepository) entry(key, data []byte) *badger.Entry {
	e := badger.NewEntry(key, data)
	if r.ttl > 0 {
		e = e.WithTTL(r.ttl)
	}
	return e
}

// Open records the start of a session.
func (r *SessionRepository) Open(sessionID, userID uuid.UUID) error {
	session := domain.Session{
		ID:        sessionID,
		UserID:    userID,
		StartTime: time.Now().UTC(),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(r.entry(sessionKey(sessionID), data))
	})
}

// End stamps the end time. Ending an unknown session is a no-op so the
// connection-close path never fails on a session that was never opened.
func (r *SessionRepository) End(sessionID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(sessionID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		var session domain.Session
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		session.EndTime = &now

		data, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return txn.SetEntry(r.entry(sessionKey(sessionID), data))
	})
}

// Get fetches a session by id.
func (r *SessionRepository) Get(sessionID uuid.UUID) (domain.Session, error) {
	var session domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	return session, err
}
