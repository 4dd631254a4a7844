package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/brahmamatch/server/internal/model"
)

const uniqueViolation = "23505"

type identityRepo struct {
	db *sql.DB
}

// NewIdentityRepo creates a Postgres-backed IdentityRepo.
func NewIdentityRepo(db *sql.DB) IdentityRepo {
	return &identityRepo{db: db}
}

const identityColumns = `id, phone, user_id, is_verified, created_at, last_otp_sent_at, last_login`

func scanIdentity(row interface{ Scan(dest ...any) error }) (model.Identity, error) {
	var (
		ident  model.Identity
		idStr  string
		userID sql.NullString
	)
	err := row.Scan(
		&idStr,
		&ident.Phone,
		&userID,
		&ident.IsVerified,
		&ident.CreatedAt,
		&ident.LastOTPSentAt,
		&ident.LastLogin,
	)
	if err != nil {
		return model.Identity{}, err
	}
	ident.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Identity{}, fmt.Errorf("parse identity id: %w", err)
	}
	if userID.Valid {
		ident.UserID = &userID.String
	}
	return ident, nil
}

// UpsertOnSend inserts the record on first contact and always refreshes
// last_otp_sent_at. ON CONFLICT keeps created_at, user_id and is_verified
// untouched for existing records.
func (r *identityRepo) UpsertOnSend(ctx context.Context, phone string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (phone, created_at, last_otp_sent_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (phone) DO UPDATE SET last_otp_sent_at = EXCLUDED.last_otp_sent_at
	`, phone, now)
	if err != nil {
		return fmt.Errorf("upsert identity on send: %w", err)
	}
	return nil
}

func (r *identityRepo) GetByPhone(ctx context.Context, phone string) (model.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+` FROM identities WHERE phone = $1
	`, phone)
	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Identity{}, ErrNotFound
		}
		return model.Identity{}, fmt.Errorf("query identity by phone: %w", err)
	}
	return ident, nil
}

func (r *identityRepo) GetByUserID(ctx context.Context, userID string) (model.Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+` FROM identities WHERE user_id = $1
	`, userID)
	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Identity{}, ErrNotFound
		}
		return model.Identity{}, fmt.Errorf("query identity by user id: %w", err)
	}
	return ident, nil
}

// CreateVerified inserts a fully verified record for a phone that has no
// record yet. Losing the phone race (ON CONFLICT DO NOTHING) or colliding on
// the candidate user_id both report created=false so the caller falls back to
// the attach path.
func (r *identityRepo) CreateVerified(ctx context.Context, phone, userID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (phone, user_id, is_verified, created_at, last_login)
		VALUES ($1, $2, TRUE, $3, $3)
		ON CONFLICT (phone) DO NOTHING
	`, phone, userID, now)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert verified identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert verified identity: rows affected: %w", err)
	}
	return n > 0, nil
}

// AssignUserIDIfAbsent performs the store-side leg of the one genuine race in
// the system: the conditional write only succeeds while user_id is NULL, and
// a uniqueness conflict on the candidate id is swallowed so the caller can
// re-read and adopt the winner's id.
func (r *identityRepo) AssignUserIDIfAbsent(ctx context.Context, phone, candidateID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE identities SET user_id = $2
		WHERE phone = $1 AND user_id IS NULL
	`, phone, candidateID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("assign user id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign user id: rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *identityRepo) MarkVerifiedLogin(ctx context.Context, phone string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE identities SET is_verified = TRUE, last_login = $2 WHERE phone = $1
	`, phone, now)
	if err != nil {
		return fmt.Errorf("mark verified login: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *identityRepo) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete identity: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *identityRepo) List(ctx context.Context, skip, limit int) ([]model.Identity, error) {
	if skip < 0 {
		skip = 0
	}
	limit = ClampLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+identityColumns+` FROM identities
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []model.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
