package sentlog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/resumeblast/internal/model"
)

const csvHeader = "email,company,date_sent\n"

// csvRecord is the on-disk row shape of the CSV backend.
type csvRecord struct {
	Email    string `csv:"email"`
	Company  string `csv:"company"`
	DateSent string `csv:"date_sent"`
}

// CSVStore keeps the sent-log in a plain CSV file. Each Append opens the
// file, writes one row, syncs, and closes, so every recorded send is on
// disk before the next one starts.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore opens the store at path, creating an empty log with a
// header row if none exists.
func NewCSVStore(path string) (*CSVStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(csvHeader), 0o644); err != nil {
			return nil, fmt.Errorf("create sent-log: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat sent-log: %w", err)
	}
	return &CSVStore{path: path}, nil
}

func (s *CSVStore) Append(ctx context.Context, rec model.SentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open sent-log: %w", err)
	}
	defer f.Close()

	row := []*csvRecord{{
		Email:    rec.Email,
		Company:  rec.Company,
		DateSent: model.Day(rec.DateSent),
	}}
	if err := gocsv.MarshalWithoutHeaders(&row, f); err != nil {
		return fmt.Errorf("append sent-log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync sent-log: %w", err)
	}
	return nil
}

func (s *CSVStore) CountOn(ctx context.Context, day time.Time) (int, error) {
	rows, err := s.load()
	if err != nil {
		return 0, err
	}
	key := model.Day(day)
	count := 0
	for _, row := range rows {
		if row.DateSent == key {
			count++
		}
	}
	return count, nil
}

func (s *CSVStore) SentOn(ctx context.Context, day time.Time) (map[string]struct{}, error) {
	rows, err := s.load()
	if err != nil {
		return nil, err
	}
	key := model.Day(day)
	sent := make(map[string]struct{})
	for _, row := range rows {
		if row.DateSent == key {
			sent[row.Email] = struct{}{}
		}
	}
	return sent, nil
}

func (s *CSVStore) All(ctx context.Context) ([]model.SentRecord, error) {
	rows, err := s.load()
	if err != nil {
		return nil, err
	}
	records := make([]model.SentRecord, 0, len(rows))
	for _, row := range rows {
		day, err := time.Parse(model.DayFormat, row.DateSent)
		if err != nil {
			// Rows with an unparseable date are maintenance debris; skip.
			continue
		}
		records = append(records, model.SentRecord{
			Email:    row.Email,
			Company:  row.Company,
			DateSent: day,
		})
	}
	return records, nil
}

// Prune rewrites the log keeping only records on or after the cutoff.
// The rewrite goes through a temp file and rename so a crash mid-prune
// never loses the whole log.
func (s *CSVStore) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return 0, err
	}

	cutoff := model.Day(before)
	var kept []*csvRecord
	removed := 0
	for _, row := range rows {
		if row.DateSent < cutoff {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	if removed == 0 {
		return 0, nil
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("prune sent-log: %w", err)
	}
	if err := gocsv.Marshal(&kept, f); err != nil {
		f.Close()
		return 0, fmt.Errorf("prune sent-log: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("prune sent-log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return 0, fmt.Errorf("prune sent-log: %w", err)
	}
	return removed, nil
}

func (s *CSVStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) load() ([]*csvRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sent-log: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var rows []*csvRecord
	if err := gocsv.UnmarshalString(string(data), &rows); err != nil {
		return nil, fmt.Errorf("decode sent-log: %w", err)
	}
	return rows, nil
}
