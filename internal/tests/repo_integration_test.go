package tests

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brahmamatch/server/internal/auth"
	"github.com/brahmamatch/server/internal/repo"
)

// openTestDB connects to the database named by DATABASE_URL, applies
// migrations and truncates both tables. Tests are skipped when the variable
// is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration tests")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Ping())
	require.NoError(t, RunMigrations(db))
	require.NoError(t, TruncateAll(context.Background(), db))
	return db
}

func TestIdentityRepoPostgres(t *testing.T) {
	db := openTestDB(t)
	identities := repo.NewIdentityRepo(db)
	ctx := context.Background()
	phone := "+919800000001"

	t.Run("upsert on send is idempotent", func(t *testing.T) {
		first := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, identities.UpsertOnSend(ctx, phone, first))

		ident, err := identities.GetByPhone(ctx, phone)
		require.NoError(t, err)
		assert.False(t, ident.IsVerified)
		assert.False(t, ident.HasUserID())
		createdAt := ident.CreatedAt

		second := first.Add(time.Minute)
		require.NoError(t, identities.UpsertOnSend(ctx, phone, second))

		ident, err = identities.GetByPhone(ctx, phone)
		require.NoError(t, err)
		assert.Equal(t, createdAt, ident.CreatedAt, "created_at must not move on re-send")
		require.NotNil(t, ident.LastOTPSentAt)
		assert.Equal(t, second, ident.LastOTPSentAt.UTC())
	})

	t.Run("assign user id only once", func(t *testing.T) {
		assigned, err := identities.AssignUserIDIfAbsent(ctx, phone, auth.NewUserID())
		require.NoError(t, err)
		assert.True(t, assigned)

		assigned, err = identities.AssignUserIDIfAbsent(ctx, phone, auth.NewUserID())
		require.NoError(t, err)
		assert.False(t, assigned, "second candidate must lose")
	})

	t.Run("duplicate user id loses quietly", func(t *testing.T) {
		other := "+919800000002"
		now := time.Now().UTC()
		require.NoError(t, identities.UpsertOnSend(ctx, other, now))

		taken, err := identities.GetByPhone(ctx, phone)
		require.NoError(t, err)
		require.NotNil(t, taken.UserID)

		assigned, err := identities.AssignUserIDIfAbsent(ctx, other, *taken.UserID)
		require.NoError(t, err)
		assert.False(t, assigned, "unique index conflict resolves to a lost race, not an error")
	})

	t.Run("create verified respects existing phone", func(t *testing.T) {
		fresh := "+919800000003"
		now := time.Now().UTC()

		created, err := identities.CreateVerified(ctx, fresh, auth.NewUserID(), now)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = identities.CreateVerified(ctx, fresh, auth.NewUserID(), now)
		require.NoError(t, err)
		assert.False(t, created)

		ident, err := identities.GetByPhone(ctx, fresh)
		require.NoError(t, err)
		assert.True(t, ident.IsVerified)
	})

	t.Run("mark verified login", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, identities.MarkVerifiedLogin(ctx, phone, now))

		ident, err := identities.GetByPhone(ctx, phone)
		require.NoError(t, err)
		assert.True(t, ident.IsVerified)
		require.NotNil(t, ident.LastLogin)
		assert.Equal(t, now, ident.LastLogin.UTC())

		err = identities.MarkVerifiedLogin(ctx, "+910000000000", now)
		assert.ErrorIs(t, err, repo.ErrNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		idents, err := identities.List(ctx, 0, 10)
		require.NoError(t, err)
		require.NotEmpty(t, idents)

		ident, err := identities.GetByPhone(ctx, phone)
		require.NoError(t, err)

		byID, err := identities.GetByUserID(ctx, *ident.UserID)
		require.NoError(t, err)
		assert.Equal(t, phone, byID.Phone)

		deleted, err := identities.DeleteByUserID(ctx, *ident.UserID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = identities.GetByPhone(ctx, phone)
		assert.ErrorIs(t, err, repo.ErrNotFound)

		deleted, err = identities.DeleteByUserID(ctx, *ident.UserID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestProfileRepoPostgres(t *testing.T) {
	db := openTestDB(t)
	profiles := repo.NewProfileRepo(db)
	ctx := context.Background()
	userID := auth.NewUserID()

	strPtr := func(s string) *string { return &s }
	intPtr := func(i int) *int { return &i }

	t.Run("upsert creates then patches", func(t *testing.T) {
		created, err := profiles.Upsert(ctx, userID, repo.UpdateProfileParams{
			FullName:  strPtr("Ravi Joshi"),
			Age:       intPtr(31),
			Gotra:     strPtr("Kashyap"),
			Interests: []string{"music", "trekking"},
		})
		require.NoError(t, err)
		assert.Equal(t, userID, created.UserID)
		require.NotNil(t, created.FullName)
		assert.Equal(t, "Ravi Joshi", *created.FullName)
		assert.Equal(t, []string{"music", "trekking"}, created.Interests)

		patched, err := profiles.Upsert(ctx, userID, repo.UpdateProfileParams{
			Age: intPtr(32),
		})
		require.NoError(t, err)
		require.NotNil(t, patched.Age)
		assert.Equal(t, 32, *patched.Age)
		require.NotNil(t, patched.FullName)
		assert.Equal(t, "Ravi Joshi", *patched.FullName, "untouched fields survive a patch")
		assert.Equal(t, created.CreatedAt, patched.CreatedAt)
		assert.True(t, patched.UpdatedAt.After(created.UpdatedAt) || patched.UpdatedAt.Equal(created.UpdatedAt))
	})

	t.Run("images", func(t *testing.T) {
		require.NoError(t, profiles.SetProfileImage(ctx, userID, "aW1hZ2Ux"))
		require.NoError(t, profiles.AppendGalleryImage(ctx, userID, "Z2FsMQ=="))
		require.NoError(t, profiles.AppendGalleryImage(ctx, userID, "Z2FsMg=="))

		p, err := profiles.Get(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, p.ProfileImage)
		assert.Equal(t, "aW1hZ2Ux", *p.ProfileImage)
		assert.Equal(t, []string{"Z2FsMQ==", "Z2FsMg=="}, p.GalleryImages)
	})

	t.Run("image upload creates missing row", func(t *testing.T) {
		fresh := auth.NewUserID()
		require.NoError(t, profiles.AppendGalleryImage(ctx, fresh, "Zmlyc3Q="))

		p, err := profiles.Get(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, []string{"Zmlyc3Q="}, p.GalleryImages)
	})

	t.Run("list and delete", func(t *testing.T) {
		list, err := profiles.List(ctx, 0, 10)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		deleted, err := profiles.Delete(ctx, userID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = profiles.Get(ctx, userID)
		assert.ErrorIs(t, err, repo.ErrNotFound)

		deleted, err = profiles.Delete(ctx, userID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
