// Package storage provides the SQLite-backed persistence layer:
// users and their OTP secrets, funnels, spendings, and the per-user
// token revocation threshold.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"funneltrack/internal/auth"
	"funneltrack/internal/core"
)

var (
	ErrFunnelNotFound   = errors.New("funnel not found")
	ErrSpendingNotFound = errors.New("spending not found")
)

// Repository is the SQLite store behind every persistent collaborator
// of the core: auth.UserStore, auth.RevocationStore, and the funnel
// and spending stores.
type Repository struct {
	db *sql.DB
}

var (
	_ auth.UserStore       = (*Repository)(nil)
	_ auth.RevocationStore = (*Repository)(nil)
)

// NewRepository opens (creating if needed) the database at dbPath and
// migrates the schema. Use ":memory:" for tests.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection keeps per-connection pragmas effective and
	// makes ":memory:" databases behave (every new connection would
	// otherwise see a fresh empty database).
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Cascade deletes depend on this pragma.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users (auth.UserStore) ---

func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", username, err)
	}
	return count > 0, nil
}

func (r *Repository) CreateUser(ctx context.Context, username, otpSecret string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, otp_secret) VALUES (?, ?)", username, otpSecret)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", username, err)
	}
	return nil
}

func (r *Repository) GetOTPSecret(ctx context.Context, username string) (string, error) {
	var secret string
	err := r.db.QueryRowContext(ctx,
		"SELECT otp_secret FROM users WHERE username = ?", username).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get user %s: %w", username, auth.ErrUserNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get user %s: %w", username, err)
	}
	return secret, nil
}

// --- revocation (auth.RevocationStore) ---

// Invalidate records iatUntil as the user's revocation threshold. The
// upsert is a single statement, so there is never a window with no
// record during an overwrite.
func (r *Repository) Invalidate(ctx context.Context, username string, iatUntil int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO token_blacklist (user_name, iat_until) VALUES (?, ?)
		ON CONFLICT(user_name) DO UPDATE SET iat_until = excluded.iat_until`,
		username, iatUntil)
	if err != nil {
		return fmt.Errorf("upsert revocation for %s: %w", username, err)
	}
	return nil
}

// IsAccepted reports whether a token issued at iat (epoch seconds) is
// still acceptable for the user: no record, or threshold strictly
// below iat. A missing record is the "never invalidated" state, not an
// error.
func (r *Repository) IsAccepted(ctx context.Context, username string, iat int64) (bool, error) {
	var until int64
	err := r.db.QueryRowContext(ctx,
		"SELECT iat_until FROM token_blacklist WHERE user_name = ?", username).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation for %s: %w", username, err)
	}
	return until < iat, nil
}

// PruneRevocations deletes thresholds older than cutoff (epoch
// seconds). Once every token issued before a threshold has expired the
// record can never reject anything again.
func (r *Repository) PruneRevocations(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM token_blacklist WHERE iat_until < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune revocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune revocations: %w", err)
	}
	return n, nil
}

// --- funnels ---

func (r *Repository) CreateFunnel(ctx context.Context, f core.Funnel) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO funnels (id, name, limit_amount, color, emoji, user_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, f.Name, f.Limit.String(), f.Color, f.Emoji, f.Owner)
	if err != nil {
		return "", fmt.Errorf("insert funnel: %w", err)
	}
	return id, nil
}

func (r *Repository) ListFunnels(ctx context.Context, owner string) ([]core.Funnel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, limit_amount, color, emoji, user_name
		FROM funnels WHERE user_name = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list funnels for %s: %w", owner, err)
	}
	defer rows.Close()

	var funnels []core.Funnel
	for rows.Next() {
		f, err := scanFunnel(rows)
		if err != nil {
			return nil, err
		}
		funnels = append(funnels, f)
	}
	return funnels, rows.Err()
}

func (r *Repository) GetFunnel(ctx context.Context, id, owner string) (core.Funnel, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, limit_amount, color, emoji, user_name
		FROM funnels WHERE id = ? AND user_name = ?`, id, owner)
	f, err := scanFunnel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Funnel{}, fmt.Errorf("funnel %s: %w", id, ErrFunnelNotFound)
	}
	if err != nil {
		return core.Funnel{}, err
	}
	return f, nil
}

func (r *Repository) UpdateFunnel(ctx context.Context, f core.Funnel) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE funnels SET name = ?, limit_amount = ?, color = ?, emoji = ?
		WHERE id = ? AND user_name = ?`,
		f.Name, f.Limit.String(), f.Color, f.Emoji, f.ID, f.Owner)
	if err != nil {
		return fmt.Errorf("update funnel %s: %w", f.ID, err)
	}
	return notFoundWhenZero(res, ErrFunnelNotFound)
}

// DeleteFunnel removes the funnel and, through the schema's cascade,
// every spending recorded in it.
func (r *Repository) DeleteFunnel(ctx context.Context, id, owner string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM funnels WHERE id = ? AND user_name = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete funnel %s: %w", id, err)
	}
	return notFoundWhenZero(res, ErrFunnelNotFound)
}

// --- spendings ---

func (r *Repository) CreateSpending(ctx context.Context, owner string, s core.Spending) (string, error) {
	if _, err := r.GetFunnel(ctx, s.FunnelID, owner); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spendings (id, amount, timestamp, funnel_id)
		VALUES (?, ?, ?, ?)`,
		id, s.Amount.String(), s.Timestamp, s.FunnelID)
	if err != nil {
		return "", fmt.Errorf("insert spending: %w", err)
	}
	return id, nil
}

// ListSpendings returns the owner's spendings with timestamp in
// [from, to). funnelID narrows the result to one funnel when set.
func (r *Repository) ListSpendings(ctx context.Context, owner, funnelID string, from, to int64) ([]core.Spending, error) {
	query := `
		SELECT s.id, s.amount, s.timestamp, s.funnel_id
		FROM spendings s
		JOIN funnels f ON f.id = s.funnel_id
		WHERE f.user_name = ? AND s.timestamp >= ? AND s.timestamp < ?`
	args := []any{owner, from, to}
	if funnelID != "" {
		query += " AND s.funnel_id = ?"
		args = append(args, funnelID)
	}
	query += " ORDER BY s.timestamp DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list spendings for %s: %w", owner, err)
	}
	defer rows.Close()

	var spendings []core.Spending
	for rows.Next() {
		var s core.Spending
		var amount string
		if err := rows.Scan(&s.ID, &amount, &s.Timestamp, &s.FunnelID); err != nil {
			return nil, fmt.Errorf("scan spending: %w", err)
		}
		if s.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse spending amount %q: %w", amount, err)
		}
		spendings = append(spendings, s)
	}
	return spendings, rows.Err()
}

// SumSpendings totals the amounts recorded in a funnel with timestamp
// in [from, to). The sum is taken in decimal, not in SQL floats.
func (r *Repository) SumSpendings(ctx context.Context, funnelID string, from, to int64) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT amount FROM spendings
		WHERE funnel_id = ? AND timestamp >= ? AND timestamp < ?`,
		funnelID, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum spendings for %s: %w", funnelID, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func (r *Repository) UpdateSpending(ctx context.Context, owner string, s core.Spending) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE spendings SET amount = ?, timestamp = ?, funnel_id = ?
		WHERE id = ? AND funnel_id IN (SELECT id FROM funnels WHERE user_name = ?)`,
		s.Amount.String(), s.Timestamp, s.FunnelID, s.ID, owner)
	if err != nil {
		return fmt.Errorf("update spending %s: %w", s.ID, err)
	}
	return notFoundWhenZero(res, ErrSpendingNotFound)
}

func (r *Repository) DeleteSpending(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM spendings
		WHERE id = ? AND funnel_id IN (SELECT id FROM funnels WHERE user_name = ?)`,
		id, owner)
	if err != nil {
		return fmt.Errorf("delete spending %s: %w", id, err)
	}
	return notFoundWhenZero(res, ErrSpendingNotFound)
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFunnel(row rowScanner) (core.Funnel, error) {
	var f core.Funnel
	var limit string
	if err := row.Scan(&f.ID, &f.Name, &limit, &f.Color, &f.Emoji, &f.Owner); err != nil {
		return core.Funnel{}, err
	}
	var err error
	if f.Limit, err = decimal.NewFromString(limit); err != nil {
		return core.Funnel{}, fmt.Errorf("parse funnel limit %q: %w", limit, err)
	}
	return f, nil
}

func notFoundWhenZero(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
