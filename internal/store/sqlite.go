package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS deposits (
	id TEXT PRIMARY KEY,
	sender_id TEXT NOT NULL,
	sender_email TEXT NOT NULL,
	sender_name TEXT NOT NULL DEFAULT '',
	recipient_email TEXT NOT NULL,
	amount TEXT NOT NULL,
	deposit_date TEXT NOT NULL,
	voucher_ref TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	read_at TEXT,
	observation TEXT NOT NULL DEFAULT '',
	sender_deleted_at TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deposits_sender ON deposits(sender_id);
CREATE INDEX IF NOT EXISTS idx_deposits_recipient ON deposits(recipient_email);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	email TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(user_id, email)
);
`

// SQLiteStore is the durable Store implementation backed by an embedded
// SQLite database in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path. Use ":memory:" for an
// ephemeral database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writes; a single connection avoids lock contention
	// between concurrent mutations.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertDeposit(ctx context.Context, d domain.Deposit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deposits (
			id, sender_id, sender_email, sender_name, recipient_email,
			amount, deposit_date, voucher_ref, status, read_at,
			observation, sender_deleted_at, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		d.ID, d.SenderID, d.SenderEmail, d.SenderName, d.RecipientEmail,
		d.Amount.String(), formatTime(d.DepositDate), d.VoucherRef,
		string(d.Status), formatTimePtr(d.ReadAt),
		d.Observation, formatTimePtr(d.SenderDeletedAt), formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert deposit %s: %w", d.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Deposit(ctx context.Context, id string) (domain.Deposit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender_id, sender_email, sender_name, recipient_email,
		       amount, deposit_date, voucher_ref, status, read_at,
		       observation, sender_deleted_at, created_at
		FROM deposits WHERE id = ?
	`, id)
	d, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deposit{}, ErrDepositNotFound
	}
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("get deposit %s: %w", id, err)
	}
	return d, nil
}

func (s *SQLiteStore) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deposits SET status = ?, read_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.StatusRead), formatTime(readAt), id, string(domain.StatusSent))
	if err != nil {
		return fmt.Errorf("mark deposit %s read: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark deposit %s read: %w", id, err)
	}
	if affected == 0 {
		// Either the id is unknown or the record was already read; the guard
		// in the WHERE clause is what makes a repeated confirm keep the
		// first read_at.
		if _, err := s.Deposit(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SetSenderDeleted(ctx context.Context, id string, deletedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deposits SET sender_deleted_at = ? WHERE id = ?
	`, formatTimePtr(deletedAt), id)
	if err != nil {
		return fmt.Errorf("update deposit %s deletion marker: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deposit %s deletion marker: %w", id, err)
	}
	if affected == 0 {
		return ErrDepositNotFound
	}
	return nil
}

func (s *SQLiteStore) Deposits(ctx context.Context) ([]domain.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_email, sender_name, recipient_email,
		       amount, deposit_date, voucher_ref, status, read_at,
		       observation, sender_deleted_at, created_at
		FROM deposits
	`)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	return deposits, nil
}

func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deposits`); err != nil {
		return fmt.Errorf("purge deposits: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertContact(ctx context.Context, c domain.Contact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, user_id, email, name, created_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(user_id, email) DO UPDATE SET name = excluded.name
	`, c.ID, c.UserID, c.Email, c.Name, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert contact %s/%s: %w", c.UserID, c.Email, err)
	}
	return nil
}

func (s *SQLiteStore) Contacts(ctx context.Context, userID string) ([]domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, email, name, created_at
		FROM contacts WHERE user_id = ? ORDER BY name, email
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts for %s: %w", userID, err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var created string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Email, &c.Name, &created); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.CreatedAt = parseTime(created)
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts for %s: %w", userID, err)
	}
	return contacts, nil
}

func (s *SQLiteStore) DeleteContact(ctx context.Context, userID, email string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM contacts WHERE user_id = ? AND email = ?
	`, userID, email)
	if err != nil {
		return fmt.Errorf("delete contact %s/%s: %w", userID, email, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact %s/%s: %w", userID, email, err)
	}
	if affected == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (domain.Deposit, error) {
	var (
		d               domain.Deposit
		amount          string
		depositDate     string
		status          string
		readAt          sql.NullString
		senderDeletedAt sql.NullString
		createdAt       string
	)
	err := row.Scan(
		&d.ID, &d.SenderID, &d.SenderEmail, &d.SenderName, &d.RecipientEmail,
		&amount, &depositDate, &d.VoucherRef, &status, &readAt,
		&d.Observation, &senderDeletedAt, &createdAt,
	)
	if err != nil {
		return domain.Deposit{}, err
	}

	d.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("malformed amount %q: %w", amount, err)
	}
	d.DepositDate = parseTime(depositDate)
	d.Status = domain.Status(status)
	d.ReadAt = parseTimePtr(readAt)
	d.SenderDeletedAt = parseTimePtr(senderDeletedAt)
	d.CreatedAt = parseTime(createdAt)
	return d, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	if t.IsZero() {
		return nil
	}
	return &t
}
