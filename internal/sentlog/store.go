// Package sentlog persists the append-only record of successful sends
// and answers the two questions the session controller asks: who already
// got mail on a given day, and how many went out that day.
package sentlog

import (
	"context"
	"fmt"
	"time"

	"github.com/resumeblast/internal/model"
)

// Store is the durable sent-log. Append must be immediately durable:
// a crash after N successful sends leaves exactly N records, never zero.
// The log is append-only from this interface; pruning is reserved for
// external maintenance (cmd/sendlog).
type Store interface {
	Append(ctx context.Context, rec model.SentRecord) error
	CountOn(ctx context.Context, day time.Time) (int, error)
	SentOn(ctx context.Context, day time.Time) (map[string]struct{}, error)
	All(ctx context.Context) ([]model.SentRecord, error)
	Prune(ctx context.Context, before time.Time) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// FilterUnsent returns the subsequence of recipients whose email is not
// in the sent set. Order is preserved and duplicates are not collapsed;
// merging and dedup within a session are the builder's and the cap's
// concern respectively.
func FilterUnsent(recipients []model.Recipient, sent map[string]struct{}) []model.Recipient {
	var unsent []model.Recipient
	for _, r := range recipients {
		if _, done := sent[r.Email]; done {
			continue
		}
		unsent = append(unsent, r)
	}
	return unsent
}

// Open constructs a store for the configured backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "csv":
		return NewCSVStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown sent-log backend %q", backend)
	}
}
