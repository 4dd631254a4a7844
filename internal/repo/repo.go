package repo

import (
	"context"
	"errors"
	"time"

	"github.com/brahmamatch/server/internal/model"
)

// ErrNotFound is returned when no record matches the lookup key.
var ErrNotFound = errors.New("record not found")

// DefaultListLimit applies when a caller passes a non-positive limit.
const DefaultListLimit = 50

// MaxListLimit bounds the page size for list operations.
const MaxListLimit = 200

// IdentityRepo is the persistent identity-record store. Every operation is
// atomic at single-record granularity; the store is the only synchronization
// point between concurrent requests. Uniqueness is enforced on phone and on
// user_id (sparse: absent ids never conflict).
type IdentityRepo interface {
	// UpsertOnSend creates the record on first contact (created_at = now,
	// unverified) and in all cases sets last_otp_sent_at = now. It never
	// overwrites created_at, user_id or is_verified on an existing record.
	UpsertOnSend(ctx context.Context, phone string, now time.Time) error

	GetByPhone(ctx context.Context, phone string) (model.Identity, error)
	GetByUserID(ctx context.Context, userID string) (model.Identity, error)

	// CreateVerified inserts a fresh, fully verified record. If another
	// writer created the phone's record first the insert is a no-op and
	// created reports false.
	CreateVerified(ctx context.Context, phone, userID string, now time.Time) (created bool, err error)

	// AssignUserIDIfAbsent sets user_id only when the record has none.
	// Returns whether this call's candidate won. A uniqueness conflict on the
	// candidate id resolves to (false, nil); the caller re-reads and adopts
	// whatever id is now stored.
	AssignUserIDIfAbsent(ctx context.Context, phone, candidateID string) (assigned bool, err error)

	MarkVerifiedLogin(ctx context.Context, phone string, now time.Time) error

	DeleteByUserID(ctx context.Context, userID string) (bool, error)

	// List returns identities ordered by created_at ascending.
	List(ctx context.Context, skip, limit int) ([]model.Identity, error)
}

// UpdateProfileParams carries the optional profile fields for a partial
// upsert. Only non-nil fields are written.
type UpdateProfileParams struct {
	FullName       *string
	FathersName    *string
	MothersName    *string
	Interests      []string
	DateOfBirth    *time.Time
	BirthPlace     *string
	Education      *string
	HomeTown       *string
	MamaPariwar    *string
	Manglik        *bool
	HeightCm       *float64
	Age            *int
	Gotra          *string
	JobEmployer    *string
	JobDesignation *string
	JobLocation    *string
	SalaryRange    *string
	AboutMe        *string
}

// ProfileRepo stores profile documents keyed by user_id.
type ProfileRepo interface {
	// Upsert creates the profile on first write (created_at set once) and
	// applies only the provided fields; updated_at refreshes on every write.
	// Returns the resulting document.
	Upsert(ctx context.Context, userID string, params UpdateProfileParams) (model.Profile, error)

	Get(ctx context.Context, userID string) (model.Profile, error)
	List(ctx context.Context, skip, limit int) ([]model.Profile, error)
	Delete(ctx context.Context, userID string) (bool, error)

	// SetProfileImage stores the base64 image, creating the profile row if it
	// does not exist yet.
	SetProfileImage(ctx context.Context, userID, imageB64 string) error

	// AppendGalleryImage appends to the gallery list, creating the profile
	// row if it does not exist yet. The gallery is append-only.
	AppendGalleryImage(ctx context.Context, userID, imageB64 string) error
}

// ClampLimit normalizes a requested page size into [1, MaxListLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
