package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"zbchat/internal/auth"
	"zbchat/internal/domain"
)

const userKeyPrefix = "user:"

// UserRepository persists accounts in BadgerDB keyed by unique username.
type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

func userKey(username string) []byte {
	return []byte(userKeyPrefix + username)
}

// Create registers a new account with an already-hashed password.
// It returns domain.ErrUserExists when the username is taken.
func (r *UserRepository) Create(username, passwordHash string) (uuid.UUID, error) {
	user := domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal user: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		if _, err := txn.Get(key); err == nil {
			return domain.ErrUserExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// Get fetches an account by username.
func (r *UserRepository) Get(username string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	return user, err
}

// VerifyCredentials checks a username/password pair. An unknown username and
// a wrong password both return domain.ErrInvalidCredentials, nothing else.
func (r *UserRepository) VerifyCredentials(username, password string) (domain.User, error) {
	user, err := r.Get(username)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	ok, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		r.log.Error("password comparison failed", "username", username, "error", err)
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// SetOnline flips the online flag; going online also stamps last_login.
func (r *UserRepository) SetOnline(username string, online bool) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}

		var user domain.User
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		}); err != nil {
			return err
		}

		user.Online = online
		if online {
			user.LastLogin = time.Now().UTC()
		}

		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(username), data)
	})
}
