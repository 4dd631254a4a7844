package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brahmamatch/server/internal/repo"
)

const testPhone = "+915550001000"

func TestNewUserIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUserID()
		require.Len(t, id, 24)
		for _, ch := range id {
			require.True(t, (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f'), "non-hex char %q in %q", ch, id)
		}
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestInitiateSendCreatesPendingRecord(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.InitiateSend(ctx, testPhone, now))

	ident, err := identities.GetByPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.False(t, ident.IsVerified)
	assert.False(t, ident.HasUserID())
	assert.Equal(t, now, ident.CreatedAt)
	require.NotNil(t, ident.LastOTPSentAt)
	assert.Equal(t, now, *ident.LastOTPSentAt)
	assert.Nil(t, ident.LastLogin)
}

func TestInitiateSendIdempotentCreatedAt(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()

	first := time.Now().UTC()
	require.NoError(t, r.InitiateSend(ctx, testPhone, first))

	second := first.Add(time.Minute)
	require.NoError(t, r.InitiateSend(ctx, testPhone, second))

	ident, err := identities.GetByPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, first, ident.CreatedAt, "created_at must never change after first send")
	require.NotNil(t, ident.LastOTPSentAt)
	assert.Equal(t, second, *ident.LastOTPSentAt)
}

func TestCompleteVerificationRejectedMutatesNothing(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.InitiateSend(ctx, testPhone, now))

	_, err := r.CompleteVerification(ctx, testPhone, false, now.Add(time.Second))
	assert.ErrorIs(t, err, ErrVerificationRejected)

	ident, err := identities.GetByPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.False(t, ident.IsVerified)
	assert.False(t, ident.HasUserID())
	assert.Nil(t, ident.LastLogin)
}

func TestCompleteVerificationFreshPhoneFlow(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()

	sendAt := time.Now().UTC()
	require.NoError(t, r.InitiateSend(ctx, testPhone, sendAt))

	verifyAt := sendAt.Add(30 * time.Second)
	ident, err := r.CompleteVerification(ctx, testPhone, true, verifyAt)
	require.NoError(t, err)

	assert.True(t, ident.IsVerified)
	require.True(t, ident.HasUserID())
	assert.Len(t, *ident.UserID, 24)
	require.NotNil(t, ident.LastLogin)
	assert.Equal(t, verifyAt, *ident.LastLogin)
	assert.Equal(t, sendAt, ident.CreatedAt)
}

func TestCompleteVerificationUnknownPhoneCreatesActiveRecord(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()
	now := time.Now().UTC()

	// Approved verification for a phone with no send record: treated as a
	// fresh fully verified registration, not an error.
	ident, err := r.CompleteVerification(ctx, testPhone, true, now)
	require.NoError(t, err)
	assert.True(t, ident.IsVerified)
	require.True(t, ident.HasUserID())
	require.NotNil(t, ident.LastLogin)
	assert.Equal(t, now, ident.CreatedAt)
}

func TestCompleteVerificationReloginKeepsUserID(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()

	t0 := time.Now().UTC()
	require.NoError(t, r.InitiateSend(ctx, testPhone, t0))
	first, err := r.CompleteVerification(ctx, testPhone, true, t0.Add(time.Second))
	require.NoError(t, err)

	// Re-send, then verify again later.
	require.NoError(t, r.InitiateSend(ctx, testPhone, t0.Add(time.Hour)))
	second, err := r.CompleteVerification(ctx, testPhone, true, t0.Add(time.Hour+time.Second))
	require.NoError(t, err)

	assert.Equal(t, *first.UserID, *second.UserID, "user_id must be stable across re-logins")
	require.NotNil(t, second.LastLogin)
	assert.True(t, second.LastLogin.After(*first.LastLogin))
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestConcurrentVerificationsConvergeOnOneUserID(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.InitiateSend(ctx, testPhone, now))

	const n = 32
	results := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ident, err := r.CompleteVerification(ctx, testPhone, true, now.Add(time.Second))
			if err != nil {
				errs[i] = err
				return
			}
			if ident.UserID != nil {
				results[i] = *ident.UserID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotEmpty(t, results[i], "caller %d observed no user_id", i)
	}
	for i := 1; i < n; i++ {
		assert.Equal(t, results[0], results[i], "all concurrent callers must adopt the winning id")
	}

	ident, err := identities.GetByPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, results[0], *ident.UserID)
}

func TestConcurrentVerificationsOnUnknownPhone(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()
	now := time.Now().UTC()

	// No send record at all: every caller races through the create path.
	const n = 16
	results := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ident, err := r.CompleteVerification(ctx, testPhone, true, now)
			if err != nil {
				errs[i] = err
				return
			}
			if ident.UserID != nil {
				results[i] = *ident.UserID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotEmpty(t, results[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestConcurrentSendsKeepSingleRecord(t *testing.T) {
	identities := repo.NewMemoryIdentityRepo()
	r := NewReconciler(identities)
	ctx := context.Background()
	now := time.Now().UTC()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_ = r.InitiateSend(ctx, testPhone, now.Add(time.Duration(i)*time.Millisecond))
		}(i)
	}
	wg.Wait()

	list, err := identities.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
