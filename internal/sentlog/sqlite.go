package sentlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/resumeblast/internal/model"
	"github.com/resumeblast/internal/sentlog/migrations"
)

// SQLiteStore keeps the sent-log in a local sqlite database. Every
// Append is its own committed transaction, so durability matches the
// CSV backend row for row.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path and
// brings the schema up to date.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := runMigrations(db); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		db.Close()
		return nil, fmt.Errorf("migrate sent-log schema: %w", err)
	}

	// One writer at a time, prevents SQLITE_BUSY mid-session
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return err
	}
	return m.Up()
}

func (s *SQLiteStore) Append(ctx context.Context, rec model.SentRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_log (email, company, date_sent) VALUES (?, ?, ?)`,
		rec.Email, rec.Company, model.Day(rec.DateSent),
	)
	if err != nil {
		return fmt.Errorf("append sent-log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountOn(ctx context.Context, day time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_log WHERE date_sent = ?`, model.Day(day),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sent-log: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) SentOn(ctx context.Context, day time.Time) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT email FROM sent_log WHERE date_sent = ?`, model.Day(day),
	)
	if err != nil {
		return nil, fmt.Errorf("query sent-log: %w", err)
	}
	defer rows.Close()

	sent := make(map[string]struct{})
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan sent-log: %w", err)
		}
		sent[email] = struct{}{}
	}
	return sent, rows.Err()
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.SentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, company, date_sent FROM sent_log ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sent-log: %w", err)
	}
	defer rows.Close()

	var records []model.SentRecord
	for rows.Next() {
		var (
			rec     model.SentRecord
			dateRaw string
		)
		if err := rows.Scan(&rec.Email, &rec.Company, &dateRaw); err != nil {
			return nil, fmt.Errorf("scan sent-log: %w", err)
		}
		day, err := time.Parse(model.DayFormat, dateRaw)
		if err != nil {
			continue
		}
		rec.DateSent = day
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sent_log WHERE date_sent < ?`, model.Day(before),
	)
	if err != nil {
		return 0, fmt.Errorf("prune sent-log: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
