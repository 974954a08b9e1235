package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"zbchat/internal/domain"
)

const msgKeyPrefix = "msg:"

// Record is one append-only chat message as stored on disk. Extra carries
// the type-specific payload (iframe descriptor, music card, news list) as
// raw JSON, mirroring what goes out on the wire.
type Record struct {
	ID       uuid.UUID          `json:"id"`
	Username string             `json:"username"`
	Type     domain.MessageType `json:"type"`
	Content  string             `json:"content"`
	Extra    json.RawMessage    `json:"extra,omitempty"`
	At       time.Time          `json:"at"`
}

// HistoryQuery narrows a history scan. Zero values mean "no filter";
// a zero Limit falls back to domain.HistoryPushLimit.
type HistoryQuery struct {
	Limit    int
	Offset   int
	Search   string
	Username string
}

// MessageRepository persists messages in BadgerDB. The key embeds a
// zero-padded UnixNano timestamp so a prefix scan yields chronological
// order; the UUID suffix disambiguates same-nanosecond writes.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

func msgKey(rec Record) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", msgKeyPrefix, rec.At.UnixNano(), rec.ID))
}

// Store appends one message. Messages are never mutated after creation.
func (r *MessageRepository) Store(rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(msgKey(rec), data)
	})
}

// History walks messages newest-first applying the query filters, then
// returns the selected page oldest-first, which is the order clients render.
func (r *MessageRepository) History(q HistoryQuery) ([]Record, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = domain.HistoryPushLimit
	}

	var page []Record
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(msgKeyPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past every possible timestamp so the reverse walk starts
		// at the newest record.
		seekKey := append([]byte(msgKeyPrefix), 0xff)

		skipped := 0
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(page) == limit {
				break
			}

			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}

			if q.Username != "" && rec.Username != q.Username {
				continue
			}
			if q.Search != "" && !strings.Contains(rec.Content, q.Search) {
				continue
			}
			if skipped < q.Offset {
				skipped++
				continue
			}
			page = append(page, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}
