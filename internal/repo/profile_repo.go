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

type profileRepo struct {
	db *sql.DB
}

// NewProfileRepo creates a Postgres-backed ProfileRepo.
func NewProfileRepo(db *sql.DB) ProfileRepo {
	return &profileRepo{db: db}
}

const profileColumns = `id, user_id, full_name, fathers_name, mothers_name, interests,
	date_of_birth, birth_place, education, home_town, mama_pariwar, manglik,
	height_cm, age, gotra, job_employer, job_designation, job_location,
	salary_range, about_me, profile_image, gallery_images, created_at, updated_at`

func scanProfile(row interface{ Scan(dest ...any) error }) (model.Profile, error) {
	var (
		p     model.Profile
		idStr string
	)
	err := row.Scan(
		&idStr,
		&p.UserID,
		&p.FullName,
		&p.FathersName,
		&p.MothersName,
		pq.Array(&p.Interests),
		&p.DateOfBirth,
		&p.BirthPlace,
		&p.Education,
		&p.HomeTown,
		&p.MamaPariwar,
		&p.Manglik,
		&p.HeightCm,
		&p.Age,
		&p.Gotra,
		&p.JobEmployer,
		&p.JobDesignation,
		&p.JobLocation,
		&p.SalaryRange,
		&p.AboutMe,
		&p.ProfileImage,
		pq.Array(&p.GalleryImages),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return model.Profile{}, err
	}
	p.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Profile{}, fmt.Errorf("parse profile id: %w", err)
	}
	return p, nil
}

// Upsert ensures the row exists, then applies only the provided fields.
// Two statements in one transaction keep created_at write-once while letting
// the SET list stay dynamic.
func (r *profileRepo) Upsert(ctx context.Context, userID string, params UpdateProfileParams) (model.Profile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Profile{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, now)
	if err != nil {
		return model.Profile{}, fmt.Errorf("insert profile: %w", err)
	}

	set, args := buildProfileSet(params)
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, now, userID)

	query := fmt.Sprintf(
		"UPDATE profiles SET %s WHERE user_id = $%d",
		joinSet(set), len(args),
	)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return model.Profile{}, fmt.Errorf("read back profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Profile{}, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

// buildProfileSet collects assignments for the non-nil fields only.
func buildProfileSet(params UpdateProfileParams) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.FullName != nil {
		add("full_name", *params.FullName)
	}
	if params.FathersName != nil {
		add("fathers_name", *params.FathersName)
	}
	if params.MothersName != nil {
		add("mothers_name", *params.MothersName)
	}
	if params.Interests != nil {
		add("interests", pq.Array(params.Interests))
	}
	if params.DateOfBirth != nil {
		add("date_of_birth", *params.DateOfBirth)
	}
	if params.BirthPlace != nil {
		add("birth_place", *params.BirthPlace)
	}
	if params.Education != nil {
		add("education", *params.Education)
	}
	if params.HomeTown != nil {
		add("home_town", *params.HomeTown)
	}
	if params.MamaPariwar != nil {
		add("mama_pariwar", *params.MamaPariwar)
	}
	if params.Manglik != nil {
		add("manglik", *params.Manglik)
	}
	if params.HeightCm != nil {
		add("height_cm", *params.HeightCm)
	}
	if params.Age != nil {
		add("age", *params.Age)
	}
	if params.Gotra != nil {
		add("gotra", *params.Gotra)
	}
	if params.JobEmployer != nil {
		add("job_employer", *params.JobEmployer)
	}
	if params.JobDesignation != nil {
		add("job_designation", *params.JobDesignation)
	}
	if params.JobLocation != nil {
		add("job_location", *params.JobLocation)
	}
	if params.SalaryRange != nil {
		add("salary_range", *params.SalaryRange)
	}
	if params.AboutMe != nil {
		add("about_me", *params.AboutMe)
	}
	return set, args
}

func joinSet(set []string) string {
	out := ""
	for i, s := range set {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func (r *profileRepo) Get(ctx context.Context, userID string) (model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

func (r *profileRepo) List(ctx context.Context, skip, limit int) ([]model.Profile, error) {
	if skip < 0 {
		skip = 0
	}
	limit = ClampLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

func (r *profileRepo) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete profile: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *profileRepo) SetProfileImage(ctx context.Context, userID, imageB64 string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
			SET profile_image = EXCLUDED.profile_image, updated_at = EXCLUDED.updated_at
	`, userID, imageB64, now)
	if err != nil {
		return fmt.Errorf("set profile image: %w", err)
	}
	return nil
}

func (r *profileRepo) AppendGalleryImage(ctx context.Context, userID, imageB64 string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, gallery_images, created_at, updated_at)
		VALUES ($1, ARRAY[$2], $3, $3)
		ON CONFLICT (user_id) DO UPDATE
			SET gallery_images = profiles.gallery_images || EXCLUDED.gallery_images,
			    updated_at = EXCLUDED.updated_at
	`, userID, imageB64, now)
	if err != nil {
		return fmt.Errorf("append gallery image: %w", err)
	}
	return nil
}
